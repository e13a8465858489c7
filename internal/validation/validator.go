package validation

import (
	"strings"

	"github.com/rendis/recviz/internal/trace"
	"github.com/rendis/recviz/pkg/schema"
)

// ConditionChecker compiles a breakpoint condition without evaluating it.
type ConditionChecker interface {
	Check(expression string) error
}

// RunRequest asks for a new simulation.
type RunRequest struct {
	Algorithm  string `json:"algorithm"`
	N          int    `json:"n"`
	Breakpoint string `json:"breakpoint,omitempty"`
	Autoplay   bool   `json:"autoplay,omitempty"`
}

// SeekRequest moves the playhead.
type SeekRequest struct {
	Step int `json:"step"`
}

// BreakpointRequest sets or clears (empty expression) a breakpoint.
type BreakpointRequest struct {
	Expression string `json:"expression"`
}

// ThemeRequest stores the display preference.
type ThemeRequest struct {
	Theme schema.Theme `json:"theme"`
}

// RequestValidator runs the two validation stages for incoming requests:
// structural (JSON Schema) and semantic (catalog input range, breakpoint
// compilation). Structural failures short-circuit.
type RequestValidator struct {
	schemas    *SchemaValidator
	conditions ConditionChecker
}

// NewRequestValidator creates a RequestValidator. conditions may be nil to
// skip breakpoint compilation.
func NewRequestValidator(conditions ConditionChecker) (*RequestValidator, error) {
	sv, err := NewSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &RequestValidator{schemas: sv, conditions: conditions}, nil
}

// Schemas exposes the underlying schema validator.
func (v *RequestValidator) Schemas() *SchemaValidator {
	return v.schemas
}

// RunRequest decodes and validates a run request body.
func (v *RequestValidator) RunRequest(raw []byte) (*RunRequest, error) {
	var req RunRequest
	if err := v.schemas.Decode(SchemaRunRequest, raw, &req); err != nil {
		return nil, err
	}
	if err := v.checkRun(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// RunArgs validates run arguments that arrive already decoded.
func (v *RequestValidator) RunArgs(args map[string]any) (*RunRequest, error) {
	var req RunRequest
	if err := v.schemas.DecodeValue(SchemaRunRequest, args, &req); err != nil {
		return nil, err
	}
	if err := v.checkRun(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (v *RequestValidator) checkRun(req *RunRequest) error {
	alg, err := schema.ParseAlgorithm(req.Algorithm)
	if err != nil {
		return err
	}
	p, err := trace.LookupProblem(alg)
	if err != nil {
		return err
	}
	if err := p.Validate(req.N); err != nil {
		return err
	}
	return v.Breakpoint(req.Breakpoint)
}

// Breakpoint compiles a non-empty breakpoint condition.
func (v *RequestValidator) Breakpoint(expression string) error {
	if strings.TrimSpace(expression) == "" || v.conditions == nil {
		return nil
	}
	return v.conditions.Check(expression)
}

// SeekRequest decodes a seek body.
func (v *RequestValidator) SeekRequest(raw []byte) (*SeekRequest, error) {
	var req SeekRequest
	if err := v.schemas.Decode(SchemaSeekRequest, raw, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// BreakpointRequest decodes a breakpoint body and compiles its expression.
func (v *RequestValidator) BreakpointRequest(raw []byte) (*BreakpointRequest, error) {
	var req BreakpointRequest
	if err := v.schemas.Decode(SchemaBreakpointRequest, raw, &req); err != nil {
		return nil, err
	}
	if err := v.Breakpoint(req.Expression); err != nil {
		return nil, err
	}
	return &req, nil
}

// ThemeRequest decodes a theme body.
func (v *RequestValidator) ThemeRequest(raw []byte) (*ThemeRequest, error) {
	var req ThemeRequest
	if err := v.schemas.Decode(SchemaThemeRequest, raw, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Settings validates a settings.json document and decodes it into out.
func (v *RequestValidator) Settings(raw []byte, out any) error {
	return v.schemas.Decode(SchemaSettings, raw, out)
}
