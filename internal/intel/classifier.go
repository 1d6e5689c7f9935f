// Package intel turns chat lines into threat reports scored by jump
// distance from the reporting pilot.
package intel

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"eve-intel/internal/chatlog"
	"eve-intel/internal/graph"
	"eve-intel/internal/logger"
	"eve-intel/internal/metrics"
)

// clauseSeparator delimits clauses in pasted intel ("Name  System  Ship").
const clauseSeparator = "  "

var linkPrefix = strings.NewReplacer("Solar System - ", "", "SOLAR SYSTEM - ", "", "Solar System -", "", "SOLAR SYSTEM -", "")

// Report is a classified intel line.
type Report struct {
	ID      uuid.UUID
	Time    time.Time
	Message string
	// Player is the listener whose log carried the line.
	Player  string
	Sender  string
	Channel string
	// Tokens are the words left after system names and override words.
	Tokens          []string
	Route           *graph.Route
	Origin          *graph.System
	InvolvedPlayers []string
	Threat          Assessment
}

// Distance returns the route length, or -1 when no system resolved.
func (r Report) Distance() int {
	if r.Route == nil {
		return -1
	}
	return r.Route.Distance
}

// Classifier resolves systems in chat lines against a universe.
type Classifier struct {
	universe *graph.Universe
}

// NewClassifier creates a classifier over u.
func NewClassifier(u *graph.Universe) *Classifier {
	return &Classifier{universe: u}
}

// Relevant reports whether line should be classified: pilot messages on
// intel channels only.
func (c *Classifier) Relevant(line chatlog.Line) bool {
	return !line.Local && !line.FromSystem() && strings.TrimSpace(line.Message) != ""
}

// Classify scores line as seen by a pilot in location. A line naming no
// known system yields an Unknown report.
func (c *Classifier) Classify(line chatlog.Line, location *graph.System) Report {
	normalized := c.normalize(line.Message)
	tokens := c.tokenize(line.Message)
	route, residual := c.route(tokens, location)
	threat, residual := Assess(route, residual)

	r := Report{
		ID:              uuid.New(),
		Time:            line.Time,
		Message:         line.Message,
		Player:          line.Listener,
		Sender:          line.Sender,
		Channel:         line.Channel,
		Tokens:          residual,
		Route:           route,
		InvolvedPlayers: c.involvedPlayers(normalized),
		Threat:          threat,
	}
	if route != nil {
		r.Origin = route.Destination
	}
	metrics.Reports.WithLabelValues(threat.Kind.String()).Inc()
	logger.Debug("INTEL", fmt.Sprintf("%s: %q -> %s", line.Channel, line.Message, threat))
	return r
}

// route finds the candidate systems named by tokens and picks one. Among
// resolved candidates the farthest wins. Tokens naming a system are removed
// from the returned residual list.
func (c *Classifier) route(tokens []string, location *graph.System) (*graph.Route, []string) {
	var routes []*graph.Route
	names := make(map[string]bool)

	for _, tok := range tokens {
		candidates := c.universe.Lookup(tok)
		if len(candidates) == 0 {
			continue
		}
		names[tok] = true
		for _, sys := range candidates {
			start := time.Now()
			r, err := c.universe.Route(location.ID, sys.ID)
			metrics.RouteDuration.Observe(time.Since(start).Seconds())
			if err != nil {
				logger.Debug("ROUTE", fmt.Sprintf("%s -> %s: %v", location.Name, sys.Name, err))
				continue
			}
			routes = append(routes, r)
		}
	}

	residual := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !names[tok] {
			residual = append(residual, tok)
		}
	}
	if len(routes) == 0 {
		return nil, residual
	}
	sort.SliceStable(routes, func(i, j int) bool { return routes[i].Distance < routes[j].Distance })
	return routes[len(routes)-1], residual
}

// normalize drops wildcards and noise words while keeping the double-space
// clause structure.
func (c *Classifier) normalize(text string) string {
	text = strings.ReplaceAll(text, "*", "")
	var clauses []string
	for _, clause := range strings.Split(text, clauseSeparator) {
		var words []string
		for _, w := range strings.Split(clause, " ") {
			if w == "" || c.noise(w) {
				continue
			}
			words = append(words, w)
		}
		if len(words) > 0 {
			clauses = append(clauses, strings.Join(words, " "))
		}
	}
	return strings.Join(clauses, clauseSeparator)
}

// tokenize splits text into uppercase words with noise removed.
func (c *Classifier) tokenize(text string) []string {
	text = linkPrefix.Replace(text)
	var tokens []string
	for _, w := range strings.Fields(text) {
		w = strings.NewReplacer("*", "", "?", "").Replace(strings.ToUpper(w))
		if w == "" || c.noise(w) {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

func (c *Classifier) noise(word string) bool {
	return c.universe.IsStopWord(word) || c.universe.IsShip(word)
}

// involvedPlayers guesses pilot names: clauses that are not a system, a
// ship, a stop word or a clear/status request.
func (c *Classifier) involvedPlayers(normalized string) []string {
	var players []string
	for _, clause := range strings.Split(normalized, clauseSeparator) {
		clause = strings.TrimSpace(clause)
		if clause == "" || c.noise(clause) || overrideOnly(clause) {
			continue
		}
		if _, ok := c.universe.Find(clause); ok {
			continue
		}
		players = append(players, clause)
	}
	return players
}

// overrideOnly reports whether every word of clause is a clear or status word.
func overrideOnly(clause string) bool {
	words := strings.Fields(strings.ToUpper(strings.ReplaceAll(clause, "?", "")))
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !contains(clearWords, w) && !contains(statusWords, w) {
			return false
		}
	}
	return true
}
