package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reloads struct {
	mu   sync.Mutex
	docs []*Document
	errs []error
}

func (r *reloads) record(doc *Document, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, doc)
	r.errs = append(r.errs, err)
}

func (r *reloads) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}

func (r *reloads) last() (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs[len(r.docs)-1], r.errs[len(r.errs)-1]
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"one"}`), 0o644))

	var got reloads
	w, err := Watch(path, got.record, WithReloadDelay(20*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	// Unrelated files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o644))

	require.NoError(t, os.WriteFile(path, []byte(`{"name":"two"}`), 0o644))
	require.Eventually(t, func() bool { return got.count() >= 1 }, 2*time.Second, 10*time.Millisecond)

	doc, err := got.last()
	require.NoError(t, err)
	assert.Equal(t, "two", doc.Name)
	assert.Equal(t, path, w.Path())
}

func TestWatcher_ReportsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`name = "ok"`), 0o644))

	var got reloads
	w, err := Watch(path, got.record, WithReloadDelay(20*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte(`name = `), 0o644))
	require.Eventually(t, func() bool { return got.count() >= 1 }, 2*time.Second, 10*time.Millisecond)

	doc, err := got.last()
	assert.Nil(t, doc)
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestWatcher_CoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: a\n"), 0o644))

	var got reloads
	w, err := Watch(path, got.record, WithReloadDelay(200*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	for _, name := range []string{"b", "c", "d"} {
		require.NoError(t, os.WriteFile(path, []byte("name: "+name+"\n"), 0o644))
	}
	require.Eventually(t, func() bool { return got.count() >= 1 }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)

	assert.Equal(t, 1, got.count())
	doc, err := got.last()
	require.NoError(t, err)
	assert.Equal(t, "d", doc.Name)
}

func TestWatcher_Close(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"x"}`), 0o644))

	w, err := Watch(path, func(*Document, error) {})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Close(), ErrWatcherClosed)
}
