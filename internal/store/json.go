package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// JSONStore keeps all entries in one JSON object on disk. Every write
// rewrites the file through a temporary file and a rename.
type JSONStore struct {
	mu     sync.Mutex
	path   string
	doc    []byte
	closed bool
}

// OpenJSON opens or creates the document at path.
func OpenJSON(path string) (*JSONStore, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		data = []byte("{}")
	case err != nil:
		return nil, fmt.Errorf("failed to open store: %w", err)
	case !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject():
		return nil, fmt.Errorf("%w: %s", ErrCorrupt, path)
	}
	return &JSONStore{path: path, doc: data}, nil
}

// Path returns the backing file.
func (s *JSONStore) Path() string {
	return s.path
}

// Get implements Store.
func (s *JSONStore) Get(ctx context.Context, key string) (any, bool, error) {
	if err := s.check(ctx, key); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r := gjson.GetBytes(s.doc, escapePath(key))
	if !r.Exists() {
		return nil, false, nil
	}
	return r.Value(), true, nil
}

// Put implements Store.
func (s *JSONStore) Put(ctx context.Context, key string, value any) error {
	if err := s.check(ctx, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := sjson.SetBytes(s.doc, escapePath(key), value)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return s.commit(doc)
}

// Delete implements Store.
func (s *JSONStore) Delete(ctx context.Context, key string) error {
	if err := s.check(ctx, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := escapePath(key)
	if !gjson.GetBytes(s.doc, path).Exists() {
		return nil
	}
	doc, err := sjson.DeleteBytes(s.doc, path)
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return s.commit(doc)
}

// All implements Store.
func (s *JSONStore) All(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	out := make(map[string]any)
	gjson.ParseBytes(s.doc).ForEach(func(k, v gjson.Result) bool {
		out[k.String()] = v.Value()
		return true
	})
	return out, nil
}

// Close implements Store.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *JSONStore) check(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// commit writes doc to disk and adopts it. Called with s.mu held.
func (s *JSONStore) commit(doc []byte) error {
	if s.closed {
		return ErrClosed
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if _, err := tmp.Write(doc); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write store: %w", err)
	}
	s.doc = doc
	return nil
}
