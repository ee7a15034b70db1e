// Package origin persists the base address of the value-stream service.
package origin

import (
	"context"
	"errors"
	"strings"

	"github.com/sw33tLie/valuestream/pkg/storage"
)

// DEFAULT_ORIGIN is used until the user saves an override.
const DEFAULT_ORIGIN = "https://alpha.valuestream.news"

// Settings is the key-value persistence the store needs. *storage.DB
// satisfies it.
type Settings interface {
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

// Store resolves and persists the service origin.
type Store struct {
	settings Settings
	fallback string
}

// NewStore returns a Store backed by settings. An empty fallback selects
// DEFAULT_ORIGIN.
func NewStore(settings Settings, fallback string) *Store {
	fallback = Normalize(fallback)
	if fallback == "" {
		fallback = DEFAULT_ORIGIN
	}
	return &Store{settings: settings, fallback: fallback}
}

// Get returns the saved origin, or the default when none is saved or the
// backing store cannot be read.
func (s *Store) Get(ctx context.Context) (string, error) {
	v, err := s.settings.GetSetting(ctx, storage.KeyOriginOverride)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && v == "") {
		return s.fallback, nil
	}
	if err != nil {
		return s.fallback, err
	}
	return v, nil
}

// Set persists address after stripping a single trailing slash. Reachability
// is not checked.
func (s *Store) Set(ctx context.Context, address string) error {
	address = Normalize(address)
	if address == "" {
		return errors.New("empty origin")
	}
	return s.settings.PutSetting(ctx, storage.KeyOriginOverride, address)
}

// Reset drops the override so Get falls back to the default again.
func (s *Store) Reset(ctx context.Context) error {
	return s.settings.DeleteSetting(ctx, storage.KeyOriginOverride)
}

// Default returns the address Get falls back to.
func (s *Store) Default() string { return s.fallback }

// Normalize trims whitespace and exactly one trailing "/".
func Normalize(address string) string {
	address = strings.TrimSpace(address)
	return strings.TrimSuffix(address, "/")
}
