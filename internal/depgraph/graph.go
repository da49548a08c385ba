package depgraph

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Node is one lazily-discovered compile artifact: a method body, a type, or
// any derived entity that can be needed for output. A node's dependency list
// is computed at most once, when the engine first expands it.
type Node interface {
	// Key is a structural, run-stable identity. Two nodes with equal keys
	// are the same artifact; keys never depend on discovery order.
	Key() string
	// Dependencies computes the artifacts this node needs. Called exactly
	// once per node, possibly concurrently with other nodes' expansions.
	Dependencies(ctx context.Context) ([]Node, error)
}

// CommitFunc observes one expanded node. The engine invokes it sequentially,
// in sorted key order within each marking round, so side effects applied here
// land in a reproducible order regardless of worker count.
type CommitFunc func(Node) error

// Graph brings a lazily-expanding artifact set to a fixpoint where "marked"
// is closed under "depends on".
//
// Dictionary layout nodes are deliberately absent from this model: they have
// no inbound or outbound edges and are never marked here. Their contents are
// populated as a side effect of committing unrelated nodes (see CommitFunc),
// which is the one sanctioned exception to edge-driven discovery.
type Graph struct {
	mu       sync.Mutex
	jobs     int
	marked   map[string]*markEntry
	frontier []Node
	running  bool
	complete bool
	commit   CommitFunc

	expansions int
}

type markEntry struct {
	node Node
	deps []Node
}

// Option configures a Graph.
type Option func(*Graph)

// WithJobs bounds the number of concurrent expansions per round.
func WithJobs(jobs int) Option {
	return func(g *Graph) {
		if jobs > 0 {
			g.jobs = jobs
		}
	}
}

// WithCommit installs the deterministic per-node commit hook.
func WithCommit(fn CommitFunc) Option {
	return func(g *Graph) { g.commit = fn }
}

// New creates an empty graph. Without WithJobs the worker count defaults to
// the number of CPUs.
func New(opts ...Option) *Graph {
	g := &Graph{
		jobs:   runtime.NumCPU(),
		marked: make(map[string]*markEntry, 64),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Mark records that the node is needed for output. Marking an already-marked
// node is a no-op. Expansion is deferred to the next Run round; the first
// mark of a key wins and later marks never recompute it. Safe for concurrent
// callers.
func (g *Graph) Mark(n Node) bool {
	if g == nil || n == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.markLocked(n)
}

func (g *Graph) markLocked(n Node) bool {
	key := n.Key()
	if _, ok := g.marked[key]; ok {
		return false
	}
	g.marked[key] = &markEntry{node: n}
	g.frontier = append(g.frontier, n)
	g.complete = false
	return true
}

// Run drives marking to fixpoint: it repeatedly takes the current frontier,
// expands every node in parallel, commits the expansions in sorted key order,
// and marks the discovered dependencies. Run returns when a full round marks
// nothing new.
func (g *Graph) Run(ctx context.Context) error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		return fmt.Errorf("depgraph: Run is already in progress")
	}
	g.running = true
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.running = false
		g.mu.Unlock()
	}()

	for {
		g.mu.Lock()
		round := g.frontier
		g.frontier = nil
		g.mu.Unlock()
		if len(round) == 0 {
			break
		}
		sort.Slice(round, func(i, j int) bool { return round[i].Key() < round[j].Key() })

		if err := g.expandRound(ctx, round); err != nil {
			return err
		}
		if err := g.commitRound(round); err != nil {
			return err
		}
	}

	g.mu.Lock()
	g.complete = true
	g.mu.Unlock()
	return nil
}

// expandRound computes dependency lists for the whole round in parallel.
func (g *Graph) expandRound(ctx context.Context, round []Node) error {
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.jobs)
	for _, n := range round {
		eg.Go(func() error {
			deps, err := n.Dependencies(gctx)
			if err != nil {
				return fmt.Errorf("expand %s: %w", n.Key(), err)
			}
			g.mu.Lock()
			g.marked[n.Key()].deps = deps
			g.expansions++
			g.mu.Unlock()
			return nil
		})
	}
	return eg.Wait()
}

// commitRound applies side effects and marks dependencies, sequentially and
// in round order.
func (g *Graph) commitRound(round []Node) error {
	for _, n := range round {
		if g.commit != nil {
			if err := g.commit(n); err != nil {
				return fmt.Errorf("commit %s: %w", n.Key(), err)
			}
		}
		g.mu.Lock()
		for _, dep := range g.marked[n.Key()].deps {
			g.markLocked(dep)
		}
		g.mu.Unlock()
	}
	return nil
}

// Marked reports whether a node with the given key has been marked.
func (g *Graph) Marked(key string) bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.marked[key]
	return ok
}

// MarkedCount returns the number of marked nodes.
func (g *Graph) MarkedCount() int {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.marked)
}

// Keys returns the marked node keys in sorted order.
func (g *Graph) Keys() []string {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	keys := make([]string, 0, len(g.marked))
	for k := range g.marked {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
