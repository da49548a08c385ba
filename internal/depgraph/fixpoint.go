package depgraph

import "fmt"

// FixpointToken proves that a graph reached fixpoint. Only Fixpoint can mint
// a valid token; operations gated on completed discovery (dictionary
// finalization) demand one, so they cannot be reached from ordinary
// call-site code paths.
type FixpointToken struct {
	graph *Graph
}

// Valid reports whether the token was minted by a completed graph.
func (t FixpointToken) Valid() bool { return t.graph != nil }

// Fixpoint returns a token once marking is complete. It fails while a Run is
// in flight, before any Run finished, or if new roots were marked after the
// last Run.
func (g *Graph) Fixpoint() (FixpointToken, error) {
	if g == nil {
		return FixpointToken{}, fmt.Errorf("depgraph: nil graph")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return FixpointToken{}, fmt.Errorf("depgraph: marking still in progress")
	}
	if !g.complete || len(g.frontier) != 0 {
		return FixpointToken{}, fmt.Errorf("depgraph: fixpoint not reached")
	}
	return FixpointToken{graph: g}, nil
}
