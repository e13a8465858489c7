package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/recviz/pkg/schema"
)

// stubChecker rejects any expression containing "bad".
type stubChecker struct{}

func (stubChecker) Check(expression string) error {
	if expression == "bad" {
		return schema.NewError(schema.ErrCodeValidation, "cel compile error")
	}
	return nil
}

func newValidator(t *testing.T) *RequestValidator {
	t.Helper()
	v, err := NewRequestValidator(stubChecker{})
	require.NoError(t, err)
	return v
}

func TestNewSchemaValidatorCompilesEverySchema(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)
	for _, name := range []string{
		SchemaRunRequest, SchemaSeekRequest, SchemaBreakpointRequest, SchemaThemeRequest, SchemaSettings,
	} {
		assert.Contains(t, sv.schemas, name)
	}
	assert.Error(t, sv.Validate("nope", map[string]any{}))
}

func TestRunRequest(t *testing.T) {
	v := newValidator(t)

	req, err := v.RunRequest([]byte(`{"algorithm": "fibonacci", "n": 4, "autoplay": true}`))
	require.NoError(t, err)
	assert.Equal(t, &RunRequest{Algorithm: "fibonacci", N: 4, Autoplay: true}, req)
}

func TestRunRequestStructuralErrors(t *testing.T) {
	v := newValidator(t)

	cases := map[string]struct {
		body string
		want string
	}{
		"missing n":       {`{"algorithm": "hanoi"}`, "missing property 'n'"},
		"unknown alg":     {`{"algorithm": "ackermann", "n": 2}`, "/algorithm: value must be one of"},
		"string n":        {`{"algorithm": "hanoi", "n": "3"}`, "/n: got string, want integer"},
		"extra field":     {`{"algorithm": "hanoi", "n": 3, "speed": 2}`, "additional properties 'speed' not allowed"},
		"not json":        {`{"algorithm":`, "not valid JSON"},
		"fractional step": {`{"algorithm": "hanoi", "n": 2.5}`, "want integer"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.RunRequest([]byte(tc.body))
			require.Error(t, err)
			assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestRunRequestMultipleIssues(t *testing.T) {
	v := newValidator(t)
	_, err := v.RunRequest([]byte(`{"n": "x", "color": 1}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation issues")

	var re *schema.RecvizError
	require.True(t, errors.As(err, &re))
	issues, ok := re.Details["issues"].([]schema.ValidationIssue)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(issues), 2)
}

func TestRunRequestSemanticErrors(t *testing.T) {
	v := newValidator(t)

	_, err := v.RunRequest([]byte(`{"algorithm": "factorial", "n": 11}`))
	require.Error(t, err)
	assert.Equal(t, "[VALIDATION_ERROR] factorial input must be between 1 and 10", err.Error())

	_, err = v.RunRequest([]byte(`{"algorithm": "hanoi", "n": 0}`))
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))

	_, err = v.RunRequest([]byte(`{"algorithm": "hanoi", "n": 3, "breakpoint": "bad"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cel compile error")
}

func TestRunArgs(t *testing.T) {
	v := newValidator(t)

	req, err := v.RunArgs(map[string]any{"algorithm": "hanoi", "n": float64(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, req.N)

	_, err = v.RunArgs(map[string]any{"algorithm": "hanoi"})
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
}

func TestSmallRequests(t *testing.T) {
	v := newValidator(t)

	seek, err := v.SeekRequest([]byte(`{"step": 7}`))
	require.NoError(t, err)
	assert.Equal(t, 7, seek.Step)
	_, err = v.SeekRequest([]byte(`{}`))
	assert.Error(t, err)

	bp, err := v.BreakpointRequest([]byte(`{"expression": ""}`))
	require.NoError(t, err)
	assert.Equal(t, "", bp.Expression)
	_, err = v.BreakpointRequest([]byte(`{"expression": "bad"}`))
	assert.Error(t, err)

	theme, err := v.ThemeRequest([]byte(`{"theme": "light"}`))
	require.NoError(t, err)
	assert.Equal(t, schema.ThemeLight, theme.Theme)
	_, err = v.ThemeRequest([]byte(`{"theme": "sepia"}`))
	assert.Error(t, err)
}

func TestSettings(t *testing.T) {
	v := newValidator(t)

	var out struct {
		ListenAddr       string `json:"listen_addr"`
		AutoplayInterval string `json:"autoplay_interval"`
	}
	require.NoError(t, v.Settings([]byte(`{"listen_addr": ":9000", "autoplay_interval": "1500ms"}`), &out))
	assert.Equal(t, ":9000", out.ListenAddr)
	assert.Equal(t, "1500ms", out.AutoplayInterval)

	err := v.Settings([]byte(`{"autoplay_interval": "soon"}`), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/autoplay_interval")

	err = v.Settings([]byte(`{"log_level": "trace"}`), &out)
	assert.Error(t, err)
}

func TestNilConditionChecker(t *testing.T) {
	v, err := NewRequestValidator(nil)
	require.NoError(t, err)
	assert.NoError(t, v.Breakpoint("anything"))
}
