package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alecthomas/types/pubsub"

	"github.com/bkper/bkper-cli/internal/log"
)

// Event is published when the contents of a watched directory change.
//
// Each poll emits at most one Event per directory, so a burst of saves within
// one poll period collapses into a single event.
type Event struct {
	// Dir is the watched root the change occurred under.
	Dir    string
	Path   string
	Change FileChangeType
	Time   time.Time
}

// Watcher polls a set of directory trees for changes to files matching a set
// of doublestar patterns, publishing an event per changed directory.
type Watcher struct {
	isWatching bool

	// patterns are relative to each watched directory
	patterns []string

	mutex  sync.Mutex
	hashes map[string]FileHashes
}

func NewWatcher(patterns ...string) *Watcher {
	return &Watcher{
		patterns: patterns,
		hashes:   map[string]FileHashes{},
	}
}

// Watch the given directories for changes, publishing an event for each.
//
// The poll period doubles as the debounce window: however many files change
// within one period, a directory produces a single event.
func (w *Watcher) Watch(ctx context.Context, period time.Duration, dirs []string) (*pubsub.Topic[Event], error) {
	if w.isWatching {
		return nil, fmt.Errorf("file watcher is already watching")
	}
	w.isWatching = true

	logger := log.FromContext(ctx)

	// Snapshot initial state so startup does not produce change events.
	w.mutex.Lock()
	for _, dir := range dirs {
		hashes, err := computeFileHashes(dir, w.patterns)
		if err != nil {
			w.mutex.Unlock()
			return nil, fmt.Errorf("could not scan %s: %w", dir, err)
		}
		w.hashes[dir] = hashes
	}
	w.mutex.Unlock()

	topic := pubsub.New[Event]()
	go func() {
		wait := topic.Wait()
		for {
			select {
			case <-time.After(period):

			case <-wait:
				return

			case <-ctx.Done():
				_ = topic.Close()
				return
			}

			w.mutex.Lock()
			for _, dir := range dirs {
				hashes, err := computeFileHashes(dir, w.patterns)
				if err != nil {
					logger.Tracef("error scanning %s: %v", dir, err)
					continue
				}
				changeType, path, equal := CompareFileHashes(w.hashes[dir], hashes)
				if equal {
					continue
				}
				logger.Debugf("changed %q: %c%s", dir, changeType, path)
				topic.Publish(Event{Dir: dir, Path: path, Change: changeType, Time: time.Now()})
				w.hashes[dir] = hashes
			}
			w.mutex.Unlock()
		}
	}()
	return topic, nil
}
