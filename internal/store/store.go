package store

import (
	"context"

	"github.com/rendis/recviz/pkg/schema"
)

// Store defines the persistence layer contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// Preferences
	GetPreference(ctx context.Context, key string) (*Preference, error)
	SetPreference(ctx context.Context, pref *Preference) error
	ListPreferences(ctx context.Context) ([]*Preference, error)
	DeletePreference(ctx context.Context, key string) error

	// Theme is the typed view of the theme preference.
	Theme(ctx context.Context) (schema.Theme, error)
	SetTheme(ctx context.Context, theme schema.Theme) error

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}
