package validation

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rendis/recviz/pkg/schema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema names, one per embedded document.
const (
	SchemaRunRequest        = "run_request"
	SchemaSeekRequest       = "seek_request"
	SchemaBreakpointRequest = "breakpoint_request"
	SchemaThemeRequest      = "theme_request"
	SchemaSettings          = "settings"
)

var printer = message.NewPrinter(language.English)

// SchemaValidator checks documents against the embedded JSON Schemas
// (Draft 2020-12). Schemas are compiled once; it is safe for concurrent use.
type SchemaValidator struct {
	schemas map[string]*jsonschema.Schema
}

// NewSchemaValidator compiles every embedded schema.
func NewSchemaValidator() (*SchemaValidator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read embedded schemas: %w", err)
	}

	c := jsonschema.NewCompiler()
	c.AssertFormat()

	urls := make(map[string]string, len(entries))
	for _, e := range entries {
		raw, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", e.Name(), err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("unmarshal schema %s: %w", e.Name(), err)
		}
		url := "https://recviz.dev/schemas/" + e.Name()
		if err := c.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", e.Name(), err)
		}
		urls[strings.TrimSuffix(e.Name(), path.Ext(e.Name()))] = url
	}

	v := &SchemaValidator{schemas: make(map[string]*jsonschema.Schema, len(urls))}
	for name, url := range urls {
		sch, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		v.schemas[name] = sch
	}
	return v, nil
}

// Validate checks a decoded JSON value (as produced by
// jsonschema.UnmarshalJSON) against the named schema.
func (v *SchemaValidator) Validate(name string, doc any) error {
	sch, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	if err := sch.Validate(doc); err != nil {
		return toRecvizError(err)
	}
	return nil
}

// Decode validates raw JSON against the named schema, then unmarshals it
// into out.
func (v *SchemaValidator) Decode(name string, raw []byte, out any) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "request body is not valid JSON").WithCause(err)
	}
	if err := v.Validate(name, doc); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return schema.NewError(schema.ErrCodeValidation, "cannot decode request").WithCause(err)
	}
	return nil
}

// DecodeValue is Decode for an already-decoded Go value such as MCP tool
// arguments.
func (v *SchemaValidator) DecodeValue(name string, value any, out any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "cannot encode arguments").WithCause(err)
	}
	return v.Decode(name, raw, out)
}

// toRecvizError flattens a jsonschema.ValidationError into one issue per
// failing leaf.
func toRecvizError(err error) error {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return schema.NewError(schema.ErrCodeValidation, err.Error()).WithCause(err)
	}
	result := &schema.ValidationResult{}
	collectIssues(verr, result)
	if result.Valid() {
		result.Add("/", verr.Error())
	}
	return result.ToError()
}

func collectIssues(verr *jsonschema.ValidationError, result *schema.ValidationResult) {
	if len(verr.Causes) == 0 {
		loc := "/" + strings.Join(verr.InstanceLocation, "/")
		result.Add(loc, verr.ErrorKind.LocalizedString(printer))
		return
	}
	for _, cause := range verr.Causes {
		collectIssues(cause, result)
	}
}
