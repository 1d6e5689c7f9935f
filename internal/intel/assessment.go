package intel

import (
	"fmt"

	"eve-intel/internal/graph"
)

// Kind is the severity class of a report.
type Kind int

const (
	Unknown Kind = iota
	NoThreat
	Irrelevant
	Low
	High
	Critical
	StatusRequest
)

func (k Kind) String() string {
	switch k {
	case NoThreat:
		return "clear"
	case Irrelevant:
		return "irrelevant"
	case Low:
		return "low"
	case High:
		return "high"
	case Critical:
		return "critical"
	case StatusRequest:
		return "status"
	default:
		return "unknown"
	}
}

// Jump bands.
const (
	HighMaxJumps  = 4
	LowMaxJumps   = 10
	ClearMaxJumps = 5
)

var (
	clearWords  = []string{"CLR", "CLEAR", "CLEA"}
	statusWords = []string{"STS", "STATUS", "STAT"}
)

// Assessment is the threat verdict for one report. Jumps is meaningful for
// the proximity kinds, System for NoThreat and StatusRequest.
type Assessment struct {
	Kind   Kind
	Jumps  int
	System *graph.System
}

func (a Assessment) String() string {
	switch a.Kind {
	case NoThreat, StatusRequest:
		if a.System != nil {
			return fmt.Sprintf("%s(%s)", a.Kind, a.System.Name)
		}
		return a.Kind.String()
	case Unknown:
		return a.Kind.String()
	default:
		return fmt.Sprintf("%s(%d)", a.Kind, a.Jumps)
	}
}

// Band maps a jump distance to a proximity kind.
func Band(jumps int) Kind {
	switch {
	case jumps <= 0:
		return Critical
	case jumps <= HighMaxJumps:
		return High
	case jumps <= LowMaxJumps:
		return Low
	default:
		return Irrelevant
	}
}

// Assess scores a route and overrides the band when the residual tokens
// carry an all-clear or status-request word. It returns the tokens left
// once the override vocabulary is removed.
func Assess(route *graph.Route, tokens []string) (Assessment, []string) {
	if route == nil {
		return Assessment{Kind: Unknown}, tokens
	}
	d := route.Distance

	if rest, ok := difference(tokens, clearWords); ok {
		if d <= ClearMaxJumps {
			return Assessment{Kind: NoThreat, Jumps: d, System: route.Destination}, rest
		}
		return Assessment{Kind: Irrelevant, Jumps: d}, rest
	}
	if rest, ok := difference(tokens, statusWords); ok {
		return Assessment{Kind: StatusRequest, Jumps: d, System: route.Destination}, rest
	}
	return Assessment{Kind: Band(d), Jumps: d}, tokens
}

// difference removes every token found in vocab and reports whether any
// token was removed.
func difference(tokens, vocab []string) ([]string, bool) {
	rest := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !contains(vocab, t) {
			rest = append(rest, t)
		}
	}
	return rest, len(rest) != len(tokens)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
