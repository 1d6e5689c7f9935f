// Package watch reports debounced file changes under a directory tree.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"eve-intel/internal/logger"
)

// Op is the kind of change reported for a path.
type Op int

const (
	// OpWrite covers creation and appends.
	OpWrite Op = iota
	// OpRemove covers deletion and rename-away.
	OpRemove
)

func (op Op) String() string {
	switch op {
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event is one debounced change.
type Event struct {
	Path string
	Op   Op
	Time time.Time
}

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period after the last raw event before a batch
	// is delivered. Default 200ms.
	Debounce time.Duration
	// Match filters paths; nil accepts every file.
	Match func(path string) bool
}

// Watcher watches a directory recursively.
type Watcher struct {
	root string
	opts Options
	fs   *fsnotify.Watcher
}

// New creates a watcher for root. Call Run to start delivering events.
func New(root string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = 200 * time.Millisecond
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch %s: not a directory", root)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{root: root, opts: opts, fs: fw}, nil
}

// Run delivers batches of changes to out until ctx is canceled. Within a
// batch each path appears once, carrying its latest operation.
func (w *Watcher) Run(ctx context.Context, out chan<- Event) error {
	defer w.fs.Close()

	if err := w.addRecursive(w.root); err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	logger.Info("WATCH", fmt.Sprintf("Watching %s", w.root))

	var batch []Event
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() bool {
		for _, ev := range dedupe(batch) {
			select {
			case out <- ev:
			case <-ctx.Done():
				return false
			}
		}
		batch = batch[:0]
		timer, timerC = nil, nil
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			change, keep := w.convert(ev)
			if !keep {
				continue
			}
			batch = append(batch, change)
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.opts.Debounce)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			logger.Warn("WATCH", fmt.Sprintf("Watch error: %v", err))
		case <-timerC:
			if !flush() {
				return nil
			}
		}
	}
}

func (w *Watcher) convert(ev fsnotify.Event) (Event, bool) {
	change := Event{Path: ev.Name, Time: time.Now()}
	switch {
	case ev.Has(fsnotify.Create):
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				logger.Warn("WATCH", fmt.Sprintf("Cannot watch %s: %v", ev.Name, err))
			}
			return Event{}, false
		}
		change.Op = OpWrite
	case ev.Has(fsnotify.Write):
		change.Op = OpWrite
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		change.Op = OpRemove
	default:
		return Event{}, false
	}
	if w.opts.Match != nil && !w.opts.Match(ev.Name) {
		return Event{}, false
	}
	return change, true
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		return w.fs.Add(path)
	})
}

// dedupe keeps one event per path, in first-seen order, with the latest op.
func dedupe(events []Event) []Event {
	seen := make(map[string]int, len(events))
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if i, ok := seen[ev.Path]; ok {
			out[i] = ev
			continue
		}
		seen[ev.Path] = len(out)
		out = append(out, ev)
	}
	return out
}
