package monitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForEvent(t *testing.T, lw *LogWatcher) model.FileEvent {
	t.Helper()
	select {
	case ev := <-lw.Events():
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("no file event received")
		return model.FileEvent{}
	}
}

func TestLogWatcherReportsLogFiles(t *testing.T) {
	dir := t.TempDir()
	lw, err := NewLogWatcher([]string{dir})
	require.NoError(t, err)
	defer lw.Close()

	path := filepath.Join(dir, "builds.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"kind":"build"}`+"\n"), 0644))

	ev := waitForEvent(t, lw)
	assert.Equal(t, path, ev.Path)
	assert.NotEmpty(t, ev.Operation)
}

func TestLogWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	lw, err := NewLogWatcher([]string{dir})
	require.NoError(t, err)
	defer lw.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	select {
	case ev := <-lw.Events():
		t.Fatalf("unexpected event for %s", ev.Path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestLogWatcherFollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()
	lw, err := NewLogWatcher([]string{dir})
	require.NoError(t, err)
	defer lw.Close()

	sub := filepath.Join(dir, "a2")
	require.NoError(t, os.Mkdir(sub, 0755))
	// the new directory is registered asynchronously
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(sub, "runs.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0644))
	assert.Equal(t, path, waitForEvent(t, lw).Path)
}

func TestLogWatcherClose(t *testing.T) {
	lw, err := NewLogWatcher([]string{t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, lw.Close())
	assert.NoError(t, lw.Close(), "closing twice is a no-op")

	select {
	case _, ok := <-lw.Events():
		assert.False(t, ok, "events channel is closed")
	case <-time.After(time.Second):
		t.Fatal("events channel not closed")
	}
}
