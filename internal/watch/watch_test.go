package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/bkper/bkper-cli/internal/log"
)

const pollFrequency = time.Millisecond * 250

func TestWatchCoalescesOneEventPerDirPerScan(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	ctx, cancel := context.WithCancel(log.ContextWithNewDefaultLogger(context.Background()))
	defer cancel()

	dir := t.TempDir()
	writeFile(t, dir, "index.ts", "export default {}")

	w := NewWatcher("**/*.ts")
	topic, err := w.Watch(ctx, pollFrequency, []string{dir})
	assert.NoError(t, err)
	events := make(chan Event, 128)
	topic.Subscribe(events)
	defer topic.Close()

	// Several writes within one poll period produce a single event.
	writeFile(t, dir, "index.ts", "export default { a: 1 }")
	writeFile(t, dir, "other.ts", "export const b = 2")

	event := waitForEvent(t, events)
	assert.Equal(t, dir, event.Dir)

	select {
	case event := <-events:
		t.Fatalf("unexpected extra event: %+v", event)
	case <-time.After(pollFrequency * 3):
	}
}

func TestWatchIgnoresUnmatchedFiles(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	ctx, cancel := context.WithCancel(log.ContextWithNewDefaultLogger(context.Background()))
	defer cancel()

	dir := t.TempDir()
	w := NewWatcher("**/*.ts")
	topic, err := w.Watch(ctx, pollFrequency, []string{dir})
	assert.NoError(t, err)
	events := make(chan Event, 128)
	topic.Subscribe(events)
	defer topic.Close()

	writeFile(t, dir, "notes.txt", "not watched")

	select {
	case event := <-events:
		t.Fatalf("unexpected event for unmatched file: %+v", event)
	case <-time.After(pollFrequency * 3):
	}
}

func TestWatchRejectsSecondWatch(t *testing.T) {
	ctx := log.ContextWithNewDefaultLogger(context.Background())
	dir := t.TempDir()
	w := NewWatcher("**/*.ts")
	topic, err := w.Watch(ctx, pollFrequency, []string{dir})
	assert.NoError(t, err)
	defer topic.Close()
	_, err = w.Watch(ctx, pollFrequency, []string{dir})
	assert.Error(t, err)
}

func TestCompareFileHashes(t *testing.T) {
	old := FileHashes{"a": []byte{1}, "b": []byte{2}}

	change, path, equal := CompareFileHashes(old, FileHashes{"a": []byte{1}, "b": []byte{2}})
	assert.True(t, equal)
	assert.Equal(t, ' ', rune(change))
	assert.Equal(t, "", path)

	change, path, equal = CompareFileHashes(old, FileHashes{"a": []byte{1}})
	assert.False(t, equal)
	assert.Equal(t, FileRemoved, change)
	assert.Equal(t, "b", path)

	change, path, equal = CompareFileHashes(old, FileHashes{"a": []byte{1}, "b": []byte{3}})
	assert.False(t, equal)
	assert.Equal(t, FileChanged, change)

	change, path, equal = CompareFileHashes(old, FileHashes{"a": []byte{1}, "b": []byte{2}, "c": []byte{4}})
	assert.False(t, equal)
	assert.Equal(t, FileAdded, change)
	assert.Equal(t, "c", path)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600)
	assert.NoError(t, err)
}

func waitForEvent(t *testing.T, events chan Event) Event {
	t.Helper()
	select {
	case event := <-events:
		return event
	case <-time.After(time.Second * 5):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}
