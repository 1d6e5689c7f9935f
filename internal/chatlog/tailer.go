package chatlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"eve-intel/internal/logger"
	"eve-intel/internal/metrics"
	"eve-intel/internal/watch"
)

// fileNamePattern matches "<CHANNEL>_<YYYYMMDD>_<HHMMSS>[_<listener id>].txt".
var fileNamePattern = regexp.MustCompile(`(?i)^(.+)_(\d{8})_(\d{6})(?:_\d+)?\.txt$`)

// StartMode selects what happens to content that existed before startup.
type StartMode int

const (
	// Resume skips existing content, except for Local which is replayed so
	// the current location of every listener is known.
	Resume StartMode = iota
	// CatchUp replays all existing content in timestamp order.
	CatchUp
)

// ParseStartMode maps "resume"/"warm" and "catchup"/"cold" to a StartMode.
func ParseStartMode(s string) (StartMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "resume", "warm":
		return Resume, nil
	case "catchup", "catch-up", "cold":
		return CatchUp, nil
	default:
		return Resume, fmt.Errorf("unknown start mode %q", s)
	}
}

func (m StartMode) String() string {
	if m == CatchUp {
		return "catch-up"
	}
	return "resume"
}

// TailerOptions configures which files a Tailer follows.
type TailerOptions struct {
	Dir      string
	Channels []string
	// Players limits the tailer to these listeners; empty means any.
	Players []string
}

// Tailer turns chat log file changes into Lines for the watched channels
// and listeners. It is driven from a single goroutine.
type Tailer struct {
	dir      string
	channels map[string]bool
	players  map[string]bool
	cache    *Cache
}

// NewTailer builds a tailer. Local is always watched.
func NewTailer(opts TailerOptions) *Tailer {
	t := &Tailer{
		dir:      opts.Dir,
		channels: map[string]bool{strings.ToUpper(LocalChannel): true},
		players:  make(map[string]bool),
		cache:    NewCache(),
	}
	for _, c := range opts.Channels {
		if c = strings.TrimSpace(c); c != "" {
			t.channels[strings.ToUpper(c)] = true
		}
	}
	for _, p := range opts.Players {
		if p = strings.TrimSpace(p); p != "" {
			t.players[strings.ToUpper(p)] = true
		}
	}
	return t
}

// Cache exposes the session cache.
func (t *Tailer) Cache() *Cache { return t.cache }

// MatchName reports whether a file name looks like a log of a watched channel.
func (t *Tailer) MatchName(path string) bool {
	m := fileNamePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return false
	}
	return t.channels[strings.ToUpper(m[1])]
}

func (t *Tailer) relevant(h *Handle) bool {
	if !t.channels[strings.ToUpper(h.ChannelName)] {
		return false
	}
	return len(t.players) == 0 || t.players[strings.ToUpper(h.Listener)]
}

// open parses path and applies the relevance filter. A nil handle with a
// nil error means the file is not followed.
func (t *Tailer) open(path string) (*Handle, error) {
	if !t.MatchName(path) {
		return nil, nil
	}
	h, err := Open(path)
	if errors.Is(err, ErrNoHeader) {
		// The client writes the header before the first message marker.
		metrics.ChatFiles.WithLabelValues("pending").Inc()
		return nil, err
	}
	if err != nil {
		metrics.ChatFiles.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if !t.relevant(h) {
		metrics.ChatFiles.WithLabelValues("ignored").Inc()
		return nil, nil
	}
	return h, nil
}

// Discover scans the log directory and caches the newest session of every
// relevant channel.
func (t *Tailer) Discover() ([]*Handle, error) {
	err := filepath.WalkDir(t.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == t.dir {
				return err
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		h, err := t.open(path)
		if err != nil {
			skipped(path, err)
			return nil
		}
		if h != nil {
			t.cache.InsertIfNewer(h)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", t.dir, err)
	}

	handles := t.cache.Handles()
	sort.Slice(handles, func(i, j int) bool { return handles[i].Path < handles[j].Path })
	for _, h := range handles {
		metrics.ChatFiles.WithLabelValues("followed").Inc()
		logger.Info("CHAT", fmt.Sprintf("Following %s (%s)", h.ChannelName, h.Listener))
	}
	return handles, nil
}

// Start discovers existing sessions and returns the backlog selected by
// mode, sorted by timestamp.
func (t *Tailer) Start(mode StartMode) ([]Line, error) {
	handles, err := t.Discover()
	if err != nil {
		return nil, err
	}
	var backlog []Line
	for _, h := range handles {
		if mode == Resume && !h.IsLocal() {
			if err := h.FastForward(); err != nil {
				logger.Warn("CHAT", err.Error())
			}
			continue
		}
		lines, err := h.ReadNew()
		if err != nil {
			logger.Warn("CHAT", err.Error())
			continue
		}
		backlog = append(backlog, lines...)
	}
	sort.SliceStable(backlog, func(i, j int) bool { return backlog[i].Time.Before(backlog[j].Time) })
	count(backlog)
	logger.Success("CHAT", fmt.Sprintf("Started in %s mode: %d sessions, %d backlog lines", mode, len(handles), len(backlog)))
	return backlog, nil
}

// Handle applies one file change and returns the lines it made available.
// A newer session replaces the cached one and is read from its header end.
// An older session than the cached one is ignored.
func (t *Tailer) Handle(ev watch.Event) []Line {
	if ev.Op == watch.OpRemove {
		if t.cache.RemovePath(ev.Path) {
			logger.Debug("CHAT", fmt.Sprintf("Dropped %s", filepath.Base(ev.Path)))
		}
		return nil
	}

	fresh, err := t.open(ev.Path)
	if err != nil {
		skipped(ev.Path, err)
		return nil
	}
	if fresh == nil {
		return nil
	}

	h, inserted := t.cache.InsertIfNewer(fresh)
	if !inserted && !h.SameSession(fresh) {
		logger.Debug("CHAT", fmt.Sprintf("Ignoring stale session %s", fresh))
		return nil
	}
	if inserted {
		logger.Info("CHAT", fmt.Sprintf("New session %s", fresh))
	}

	lines, err := h.ReadNew()
	if errors.Is(err, ErrTruncated) {
		t.cache.RemovePath(h.Path)
		logger.Warn("CHAT", err.Error())
		return nil
	}
	if err != nil {
		logger.Warn("CHAT", err.Error())
		return nil
	}
	count(lines)
	return lines
}

// Run forwards the lines produced by each event to out until events is
// closed or ctx is canceled.
func (t *Tailer) Run(ctx context.Context, events <-chan watch.Event, out chan<- Line) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			for _, line := range t.Handle(ev) {
				select {
				case out <- line:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

// skipped reports a file that could not be opened. A file without a
// message marker yet is not an error.
func skipped(path string, err error) {
	msg := fmt.Sprintf("Skipping %s: %v", filepath.Base(path), err)
	if errors.Is(err, ErrNoHeader) {
		logger.Debug("CHAT", msg)
		return
	}
	logger.Warn("CHAT", msg)
}

func count(lines []Line) {
	for _, l := range lines {
		metrics.ChatLines.WithLabelValues(l.Channel).Inc()
	}
}
