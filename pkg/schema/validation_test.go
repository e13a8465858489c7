package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationResult_EmptyIsValid(t *testing.T) {
	r := &ValidationResult{}
	assert.True(t, r.Valid())
	assert.NoError(t, r.ToError())
}

func TestValidationResult_SingleIssue(t *testing.T) {
	r := &ValidationResult{}
	r.Add("/input", "must be >= 1")

	require.False(t, r.Valid())
	err := r.ToError()
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeValidation))
	assert.Equal(t, "[VALIDATION_ERROR] /input: must be >= 1", err.Error())
}

func TestValidationResult_MergeAndJoin(t *testing.T) {
	r1 := &ValidationResult{}
	r1.Add("/algorithm", "value must be one of factorial, fibonacci, hanoi")

	r2 := &ValidationResult{}
	r2.Add("", "missing property input")
	r1.Merge(r2)
	r1.Merge(nil)

	require.Len(t, r1.Issues, 2)
	err := r1.ToError()
	assert.Contains(t, err.Error(), "2 validation issues")
	assert.Contains(t, err.Error(), "missing property input")
}

func TestCodeOfWrapped(t *testing.T) {
	base := NewErrorf(ErrCodeLimitExceeded, "maximum recursive calls (%d) exceeded", 256)
	wrapped := fmt.Errorf("run: %w", base)

	assert.Equal(t, ErrCodeLimitExceeded, CodeOf(wrapped))
	assert.True(t, HasCode(wrapped, ErrCodeLimitExceeded))
	assert.False(t, HasCode(errors.New("plain"), ErrCodeLimitExceeded))
	assert.Equal(t, "", CodeOf(nil))
}

func TestRecvizErrorFormatting(t *testing.T) {
	cause := errors.New("disk full")
	err := NewError(ErrCodeStore, "save theme").WithCause(cause).WithNode("node_3")

	assert.Equal(t, "[STORE_ERROR] node node_3: save theme", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm(" Fibonacci ")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmFibonacci, a)

	_, err = ParseAlgorithm("ackermann")
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeValidation))
}

func TestParseTheme(t *testing.T) {
	th, err := ParseTheme("light")
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, th)

	_, err = ParseTheme("sepia")
	assert.True(t, HasCode(err, ErrCodeValidation))
}
