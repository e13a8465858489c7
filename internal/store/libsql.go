package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/recviz/pkg/schema"
)

var _ Store = (*LibSQLStore)(nil)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/recviz.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB.
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending embedded migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	pending, err := loadMigrations(migrationFS)
	if err != nil {
		return storeError("load migrations", err)
	}
	return runMigrations(ctx, s.db, pending)
}

// SchemaVersion returns the highest applied migration version.
func (s *LibSQLStore) SchemaVersion(ctx context.Context) (int, error) {
	v, err := currentVersion(ctx, s.db)
	if err != nil {
		return 0, storeError("schema version", err)
	}
	return v, nil
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// --- Preferences ---

func (s *LibSQLStore) GetPreference(ctx context.Context, key string) (*Preference, error) {
	p := &Preference{}
	err := s.db.QueryRowContext(ctx,
		`SELECT key, value, updated_at FROM preferences WHERE key = ?`, key,
	).Scan(&p.Key, &p.Value, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeNotFound("preference", key)
	}
	if err != nil {
		return nil, storeError("get preference", err)
	}
	return p, nil
}

func (s *LibSQLStore) SetPreference(ctx context.Context, pref *Preference) error {
	if pref.Key == "" {
		return schema.NewError(schema.ErrCodeValidation, "preference key is required")
	}
	pref.UpdatedAt = timeOrNow(pref.UpdatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		pref.Key, pref.Value, pref.UpdatedAt,
	)
	if err != nil {
		return storeError("set preference", err)
	}
	return nil
}

func (s *LibSQLStore) ListPreferences(ctx context.Context) ([]*Preference, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, updated_at FROM preferences ORDER BY key`)
	if err != nil {
		return nil, storeError("list preferences", err)
	}
	defer rows.Close()

	var out []*Preference
	for rows.Next() {
		p := &Preference{}
		if err := rows.Scan(&p.Key, &p.Value, &p.UpdatedAt); err != nil {
			return nil, storeError("scan preference", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *LibSQLStore) DeletePreference(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, key)
	if err != nil {
		return storeError("delete preference", err)
	}
	return checkRowsAffected(res, "preference", key)
}

// Theme returns the stored theme, or dark when none has been saved.
func (s *LibSQLStore) Theme(ctx context.Context) (schema.Theme, error) {
	p, err := s.GetPreference(ctx, PreferenceTheme)
	if schema.HasCode(err, schema.ErrCodeNotFound) {
		return schema.ThemeDark, nil
	}
	if err != nil {
		return "", err
	}
	theme, err := schema.ParseTheme(p.Value)
	if err != nil {
		// Unknown stored values read as the default.
		return schema.ThemeDark, nil
	}
	return theme, nil
}

// SetTheme stores the theme preference.
func (s *LibSQLStore) SetTheme(ctx context.Context, theme schema.Theme) error {
	if _, err := schema.ParseTheme(string(theme)); err != nil {
		return err
	}
	return s.SetPreference(ctx, &Preference{Key: PreferenceTheme, Value: string(theme)})
}

// --- Helpers ---

func storeNotFound(resource, id string) *schema.RecvizError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func storeError(op string, err error) *schema.RecvizError {
	return schema.NewErrorf(schema.ErrCodeStore, "%s: %v", op, err).WithCause(err)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
