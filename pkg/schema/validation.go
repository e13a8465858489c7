package schema

import (
	"fmt"
	"strings"
)

// ValidationIssue is a single problem found in a request or settings document.
type ValidationIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i ValidationIssue) String() string {
	if i.Path == "" || i.Path == "/" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationResult aggregates the issues reported for one document.
type ValidationResult struct {
	Issues []ValidationIssue `json:"issues,omitempty"`
}

// Valid returns true if no issue was recorded.
func (r *ValidationResult) Valid() bool {
	return len(r.Issues) == 0
}

// Add records an issue at the given JSON pointer path.
func (r *ValidationResult) Add(path, message string) {
	r.Issues = append(r.Issues, ValidationIssue{Path: path, Message: message})
}

// Merge combines another ValidationResult into this one.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Issues = append(r.Issues, other.Issues...)
}

// ToError converts the result to a VALIDATION_ERROR, or nil if valid.
func (r *ValidationResult) ToError() error {
	if r.Valid() {
		return nil
	}

	msg := r.Issues[0].String()
	if len(r.Issues) > 1 {
		parts := make([]string, 0, len(r.Issues))
		for _, is := range r.Issues {
			parts = append(parts, is.String())
		}
		msg = fmt.Sprintf("%d validation issues: %s", len(r.Issues), strings.Join(parts, "; "))
	}

	return NewError(ErrCodeValidation, msg).
		WithDetails(map[string]any{"issues": r.Issues})
}
