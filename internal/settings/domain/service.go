package domain

import (
	"context"
	"errors"
)

// Store is the opaque key-value persistence collaborator. Depending on the
// deployment mode it may be backed by the database or by the host platform's
// per-user property service.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

var ErrPropertyNotFound = errors.New("property_not_found")

// Service owns the settings load/save cycle: merge with defaults, forward
// migration, validation, and fail-open fallback to defaults.
type Service interface {
	// Load returns the current settings. It never fails open into an
	// invalid document: parse or validation trouble falls back to defaults.
	Load(ctx context.Context) (Settings, error)
	// Save validates and persists the document. A validation failure
	// returns ValidationError and leaves the store untouched.
	Save(ctx context.Context, s Settings) error
	// Reset deletes the stored document so the next load reseeds defaults.
	Reset(ctx context.Context) error
}
