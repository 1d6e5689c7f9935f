// Package location tracks the current solar system of every listener from
// the game's Local channel notices.
package location

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"eve-intel/internal/chatlog"
	"eve-intel/internal/graph"
	"eve-intel/internal/logger"
)

var changedPattern = regexp.MustCompile(`^Channel changed to Local : (.+)$`)

// Tracker maps listener names to their current system.
type Tracker struct {
	universe *graph.Universe

	mu      sync.RWMutex
	players map[string]*graph.System
}

// NewTracker creates a tracker resolving system names against u.
func NewTracker(u *graph.Universe) *Tracker {
	return &Tracker{universe: u, players: make(map[string]*graph.System)}
}

// Observe updates the listener's location if line is a Local channel
// change notice. It reports whether the location changed.
func (t *Tracker) Observe(line chatlog.Line) bool {
	if !line.Local || !line.FromSystem() {
		return false
	}
	m := changedPattern.FindStringSubmatch(line.Message)
	if m == nil {
		return false
	}
	name := strings.TrimSpace(strings.Trim(m[1], "*"))
	sys, ok := t.universe.Find(name)
	if !ok {
		logger.Warn("INTEL", fmt.Sprintf("%s moved to unknown system %q", line.Listener, name))
		return false
	}

	t.mu.Lock()
	prev := t.players[line.Listener]
	t.players[line.Listener] = sys
	t.mu.Unlock()

	if prev != nil && prev.ID == sys.ID {
		return false
	}
	logger.Info("INTEL", fmt.Sprintf("%s is in %s (%s)", line.Listener, sys.Name, sys.Region))
	return true
}

// Set records a location directly.
func (t *Tracker) Set(player string, sys *graph.System) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.players[player] = sys
}

// Location returns the listener's last known system.
func (t *Tracker) Location(player string) (*graph.System, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sys, ok := t.players[player]
	return sys, ok
}

// Players returns how many listeners have a known location.
func (t *Tracker) Players() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.players)
}
