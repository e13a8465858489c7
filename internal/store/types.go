package store

import "time"

// Preference keys.
const (
	PreferenceTheme = "theme"
)

// Preference is a single persisted display setting.
type Preference struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
