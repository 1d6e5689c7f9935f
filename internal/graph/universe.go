package graph

import (
	"sort"
	"strings"
)

// System is a solar system from the universe snapshot.
type System struct {
	ID            int32
	Name          string
	Constellation string
	Region        string
}

// Universe holds the solar systems connected by stargates plus the name
// tables used to recognise systems and ships in free text.
//
// A Universe is built once at startup and never mutated afterwards, so it
// can be shared by every goroutine without locking.
type Universe struct {
	// Systems maps systemID -> system
	Systems map[int32]*System
	// Adj maps systemID -> ordered, duplicate-free list of neighboring systemIDs
	Adj map[int32][]int32
	// Aliases maps an uppercased name variant -> candidate systemIDs
	Aliases map[string][]int32
	// Ships holds uppercased ship type names
	Ships map[string]bool
	// StopWords holds uppercased words that never carry intel
	StopWords map[string]bool
}

// NewUniverse creates an empty Universe with initialized maps.
func NewUniverse() *Universe {
	return &Universe{
		Systems:   make(map[int32]*System),
		Adj:       make(map[int32][]int32),
		Aliases:   make(map[string][]int32),
		Ships:     make(map[string]bool),
		StopWords: make(map[string]bool),
	}
}

// AddSystem registers a system and its full name as an alias.
func (u *Universe) AddSystem(s *System) {
	u.Systems[s.ID] = s
	u.AddAlias(s.Name, s.ID)
}

// AddGate adds a bidirectional stargate connection. Repeated gates are ignored.
func (u *Universe) AddGate(fromSystem, toSystem int32) {
	if fromSystem == toSystem {
		return
	}
	u.Adj[fromSystem] = appendUnique(u.Adj[fromSystem], toSystem)
	u.Adj[toSystem] = appendUnique(u.Adj[toSystem], fromSystem)
}

// AddAlias maps a (case-insensitive) name variant to a system.
func (u *Universe) AddAlias(alias string, systemID int32) {
	key := normalizeName(alias)
	if key == "" {
		return
	}
	u.Aliases[key] = appendUnique(u.Aliases[key], systemID)
}

// AddShip registers a ship type name.
func (u *Universe) AddShip(name string) {
	if key := normalizeName(name); key != "" {
		u.Ships[key] = true
	}
}

// AddStopWord registers a word that is dropped before classification.
func (u *Universe) AddStopWord(word string) {
	if key := normalizeName(word); key != "" {
		u.StopWords[key] = true
	}
}

// System returns the system with the given ID.
func (u *Universe) System(id int32) (*System, bool) {
	s, ok := u.Systems[id]
	return s, ok
}

// Neighbors returns the systems one jump away from id.
func (u *Universe) Neighbors(id int32) []int32 {
	return u.Adj[id]
}

// Lookup returns every system the name may refer to. Aliases can be
// ambiguous, so more than one system may come back.
func (u *Universe) Lookup(name string) []*System {
	ids := u.Aliases[normalizeName(name)]
	if len(ids) == 0 {
		return nil
	}
	out := make([]*System, 0, len(ids))
	for _, id := range ids {
		if s, ok := u.Systems[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Find resolves a name to a single system, preferring an exact name match
// over a shortened alias.
func (u *Universe) Find(name string) (*System, bool) {
	candidates := u.Lookup(name)
	if len(candidates) == 0 {
		return nil, false
	}
	key := normalizeName(name)
	for _, s := range candidates {
		if strings.ToUpper(s.Name) == key {
			return s, true
		}
	}
	return candidates[0], true
}

// IsShip reports whether token names a ship type.
func (u *Universe) IsShip(token string) bool {
	return u.Ships[normalizeName(token)]
}

// IsStopWord reports whether token is a stop word.
func (u *Universe) IsStopWord(token string) bool {
	return u.StopWords[normalizeName(token)]
}

// SystemNames returns all system names sorted alphabetically.
func (u *Universe) SystemNames() []string {
	names := make([]string, 0, len(u.Systems))
	for _, s := range u.Systems {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func appendUnique(list []int32, id int32) []int32 {
	for _, v := range list {
		if v == id {
			return list
		}
	}
	return append(list, id)
}
