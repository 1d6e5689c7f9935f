package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRoute is returned when two systems are not connected by stargates.
	ErrNoRoute = errors.New("no route")
	// ErrUnknownSystem is returned for IDs missing from the universe.
	ErrUnknownSystem = errors.New("unknown system")
)

// Route is the shortest stargate path between two systems.
type Route struct {
	// Systems runs from Source to Destination inclusive, without consecutive repeats.
	Systems     []*System
	Distance    int
	Source      *System
	Destination *System
}

// SystemsWithinRadius returns all systems reachable from origin within maxJumps,
// mapped to their distance in jumps.
func (u *Universe) SystemsWithinRadius(origin int32, maxJumps int) map[int32]int {
	result := make(map[int32]int)
	result[origin] = 0

	queue := []int32{origin}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		dist := result[current]
		if dist >= maxJumps {
			continue
		}
		for _, neighbor := range u.Adj[current] {
			if _, visited := result[neighbor]; !visited {
				result[neighbor] = dist + 1
				queue = append(queue, neighbor)
			}
		}
	}
	return result
}

// Route returns the shortest route from source to destination using a
// bidirectional breadth-first search.
//
// A system routes to itself with distance 0. Systems without any gate and
// systems in disconnected parts of the graph yield ErrNoRoute.
func (u *Universe) Route(source, destination int32) (*Route, error) {
	src, ok := u.Systems[source]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSystem, source)
	}
	dst, ok := u.Systems[destination]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSystem, destination)
	}
	if source == destination {
		return &Route{Systems: []*System{src}, Source: src, Destination: dst}, nil
	}
	if len(u.Adj[source]) == 0 || len(u.Adj[destination]) == 0 {
		return nil, fmt.Errorf("%w: %s -> %s", ErrNoRoute, src.Name, dst.Name)
	}

	pred, succ, meet, found := u.walk(source, destination)
	if !found {
		return nil, fmt.Errorf("%w: %s -> %s", ErrNoRoute, src.Name, dst.Name)
	}

	// meet back to source, reversed
	var path []int32
	for node := meet; ; node = pred[node] {
		path = append(path, node)
		if node == source {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	// meet forward to destination
	for node := meet; node != destination; {
		node = succ[node]
		path = append(path, node)
	}

	systems := make([]*System, 0, len(path))
	for _, id := range path {
		s := u.Systems[id]
		if s == nil {
			s = &System{ID: id}
		}
		if n := len(systems); n > 0 && systems[n-1].ID == s.ID {
			continue
		}
		systems = append(systems, s)
	}

	return &Route{
		Systems:     systems,
		Distance:    len(systems) - 1,
		Source:      src,
		Destination: dst,
	}, nil
}

// walk expands the smaller frontier first until one side reaches a node the
// other side already knows. pred links forward-search nodes back towards
// source, succ links backward-search nodes on towards destination.
func (u *Universe) walk(source, destination int32) (pred, succ map[int32]int32, meet int32, found bool) {
	pred = map[int32]int32{source: source}
	succ = map[int32]int32{destination: destination}
	forward := []int32{source}
	backward := []int32{destination}

	for len(forward) > 0 && len(backward) > 0 {
		if len(forward) <= len(backward) {
			current := forward
			forward = nil
			for _, v := range current {
				for _, w := range u.Adj[v] {
					if _, seen := pred[w]; !seen {
						pred[w] = v
						forward = append(forward, w)
					}
					if _, ok := succ[w]; ok {
						return pred, succ, w, true
					}
				}
			}
		} else {
			current := backward
			backward = nil
			for _, v := range current {
				for _, w := range u.Adj[v] {
					if _, seen := succ[w]; !seen {
						succ[w] = v
						backward = append(backward, w)
					}
					if _, ok := pred[w]; ok {
						return pred, succ, w, true
					}
				}
			}
		}
	}
	return nil, nil, 0, false
}
