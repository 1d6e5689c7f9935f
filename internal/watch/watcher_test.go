package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpString(t *testing.T) {
	assert.Equal(t, "write", OpWrite.String())
	assert.Equal(t, "remove", OpRemove.String())
	assert.Equal(t, "unknown", Op(42).String())
}

func TestDedupe_KeepsLatestOpInFirstSeenOrder(t *testing.T) {
	got := dedupe([]Event{
		{Path: "a", Op: OpWrite},
		{Path: "b", Op: OpWrite},
		{Path: "a", Op: OpRemove},
		{Path: "b", Op: OpWrite},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Path)
	assert.Equal(t, OpRemove, got[0].Op)
	assert.Equal(t, "b", got[1].Path)
	assert.Equal(t, OpWrite, got[1].Op)
}

func TestNew_RejectsMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), Options{})
	assert.Error(t, err)
}

func TestNew_RejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	_, err := New(path, Options{})
	assert.Error(t, err)
}

func TestRun_DeliversMatchingWrites(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "Chatlogs")
	require.NoError(t, os.Mkdir(sub, 0755))

	w, err := New(dir, Options{
		Debounce: 20 * time.Millisecond,
		Match:    func(path string) bool { return strings.HasSuffix(path, ".txt") },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan Event, 16)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, out) }()

	// Give the watcher time to register directories.
	time.Sleep(100 * time.Millisecond)

	target := filepath.Join(sub, "Local_20240101_120000.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "ignored.log"), []byte("x"), 0644))

	select {
	case ev := <-out:
		assert.Equal(t, target, ev.Path)
		assert.Equal(t, OpWrite, ev.Op)
	case <-time.After(3 * time.Second):
		t.Fatal("no event delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
