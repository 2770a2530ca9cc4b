package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/homebus/internal/event"
)

// Errors returned by stores.
var (
	// ErrUnknownDriver indicates a driver name with no backend.
	ErrUnknownDriver = errors.New("unknown store driver")

	// ErrInvalidKey indicates an empty key.
	ErrInvalidKey = errors.New("invalid store key")

	// ErrCorrupt indicates a backing file that is not a JSON object.
	ErrCorrupt = errors.New("store file is corrupt")

	// ErrClosed indicates use of a closed store.
	ErrClosed = errors.New("store is closed")
)

// Store is a persistent key/value store.
type Store interface {
	// Get returns the value of key and whether it exists.
	Get(ctx context.Context, key string) (any, bool, error)

	// Put sets key to value. The value must be JSON-encodable.
	Put(ctx context.Context, key string, value any) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// All returns every stored entry.
	All(ctx context.Context) (map[string]any, error)

	// Close releases the backend.
	Close() error
}

// Open opens a store by driver name: "json" or "sqlite".
func Open(driver, path string) (Store, error) {
	switch driver {
	case "json":
		return OpenJSON(path)
	case "sqlite":
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// Save writes every blackboard entry to s and removes stored keys that are
// no longer on the blackboard.
func Save(ctx context.Context, s Store, st *event.State) error {
	snapshot := st.Snapshot()

	stored, err := s.All(ctx)
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	for key := range stored {
		if _, ok := snapshot[key]; ok {
			continue
		}
		if err := s.Delete(ctx, key); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}
	for key, value := range snapshot {
		if err := s.Put(ctx, key, value); err != nil {
			return fmt.Errorf("save state %q: %w", key, err)
		}
	}
	return nil
}

// Restore loads every stored entry onto the blackboard. It returns the
// number of entries restored.
func Restore(ctx context.Context, s Store, st *event.State) (int, error) {
	all, err := s.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore state: %w", err)
	}
	for key, value := range all {
		st.Set(key, value)
	}
	return len(all), nil
}

// encode renders value as JSON text.
func encode(value any) (string, error) {
	doc, err := sjson.Set("", "v", value)
	if err != nil {
		return "", err
	}
	return gjson.Get(doc, "v").Raw, nil
}

// decode parses JSON text produced by encode.
func decode(raw string) any {
	return gjson.Parse(raw).Value()
}

// escapePath makes key usable as a single gjson/sjson path component.
func escapePath(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		switch r {
		case '.', '*', '?':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// checkKey rejects empty keys and keys using path syntax that cannot be
// escaped.
func checkKey(key string) error {
	if key == "" || strings.ContainsAny(key, `|#@\!=<>%:`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
