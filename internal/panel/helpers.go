package panel

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rendis/recviz/pkg/schema"
)

// toJSON marshals a value to JSON for template rendering.
func toJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// joinStrings joins template string slices.
func joinStrings(sep string, items []string) string {
	return strings.Join(items, sep)
}

// themeFlip returns the theme the toggle switches to.
func themeFlip(t schema.Theme) schema.Theme {
	if t == schema.ThemeLight {
		return schema.ThemeDark
	}
	return schema.ThemeLight
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorBody is the JSON shape of a domain error.
type errorBody struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// writeRecvizError maps a domain error to its HTTP status.
func writeRecvizError(w http.ResponseWriter, err error) {
	var re *schema.RecvizError
	if !errors.As(err, &re) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, statusFor(re.Code), errorBody{Error: re.Message, Code: re.Code, Details: re.Details})
}

// statusFor maps an error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case schema.ErrCodeValidation, schema.ErrCodeExecution:
		return http.StatusBadRequest
	case schema.ErrCodeLimitExceeded:
		return http.StatusUnprocessableEntity
	case schema.ErrCodeNotFound:
		return http.StatusNotFound
	case schema.ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// queryInt extracts an integer query param with a default value.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
