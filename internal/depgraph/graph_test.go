package depgraph

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeNode struct {
	key      string
	deps     []Node
	expanded *atomic.Int32
}

func (n *fakeNode) Key() string { return n.key }

func (n *fakeNode) Dependencies(context.Context) ([]Node, error) {
	if n.expanded != nil {
		n.expanded.Add(1)
	}
	return n.deps, nil
}

func TestMarkIsIdempotent(t *testing.T) {
	g := New(WithJobs(1))
	n := &fakeNode{key: "a"}
	if !g.Mark(n) {
		t.Fatalf("first mark should report newly marked")
	}
	if g.Mark(n) {
		t.Fatalf("second mark must be a no-op")
	}
	if g.MarkedCount() != 1 {
		t.Fatalf("expected 1 marked node, got %d", g.MarkedCount())
	}
}

func TestExpansionHappensOnce(t *testing.T) {
	var count atomic.Int32
	leaf := &fakeNode{key: "leaf", expanded: &count}
	// Two roots both depend on the same leaf.
	g := New(WithJobs(4))
	g.Mark(&fakeNode{key: "r1", deps: []Node{leaf}})
	g.Mark(&fakeNode{key: "r2", deps: []Node{leaf}})
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := count.Load(); got != 1 {
		t.Fatalf("leaf expanded %d times, want 1", got)
	}
}

func TestCyclicDependenciesTerminate(t *testing.T) {
	a := &fakeNode{key: "a"}
	b := &fakeNode{key: "b", deps: []Node{a}}
	a.deps = []Node{b}
	g := New(WithJobs(2))
	g.Mark(a)
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !g.Marked("a") || !g.Marked("b") {
		t.Fatalf("both cycle members must be marked")
	}
}

func TestCommitOrderIsDeterministic(t *testing.T) {
	build := func(jobs int) []string {
		var mu sync.Mutex
		var order []string
		g := New(WithJobs(jobs), WithCommit(func(n Node) error {
			mu.Lock()
			order = append(order, n.Key())
			mu.Unlock()
			return nil
		}))
		// Roots marked in scrambled order; each fans out to shared children.
		shared := &fakeNode{key: "m:shared"}
		for _, k := range []string{"m:zeta", "m:alpha", "m:kilo"} {
			g.Mark(&fakeNode{key: k, deps: []Node{shared, &fakeNode{key: k + ":body"}}})
		}
		if err := g.Run(context.Background()); err != nil {
			t.Fatalf("run: %v", err)
		}
		return order
	}
	first := build(1)
	second := build(8)
	if len(first) != len(second) {
		t.Fatalf("commit counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("commit order diverges at %d: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestFixpointGating(t *testing.T) {
	g := New(WithJobs(1))
	if _, err := g.Fixpoint(); err == nil {
		t.Fatalf("fixpoint before any run must fail")
	}
	g.Mark(&fakeNode{key: "a"})
	if _, err := g.Fixpoint(); err == nil {
		t.Fatalf("fixpoint with pending frontier must fail")
	}
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	tok, err := g.Fixpoint()
	if err != nil {
		t.Fatalf("fixpoint after run: %v", err)
	}
	if !tok.Valid() {
		t.Fatalf("token from completed graph must be valid")
	}
	// New roots invalidate completion until the next run.
	g.Mark(&fakeNode{key: "late"})
	if _, err := g.Fixpoint(); err == nil {
		t.Fatalf("fixpoint after late mark must fail")
	}
}

func TestExpansionErrorAborts(t *testing.T) {
	g := New(WithJobs(2))
	g.Mark(&failingNode{})
	if err := g.Run(context.Background()); err == nil {
		t.Fatalf("expansion error must abort the run")
	}
}

type failingNode struct{}

func (n *failingNode) Key() string { return "bad" }

func (n *failingNode) Dependencies(context.Context) ([]Node, error) {
	return nil, fmt.Errorf("broken artifact")
}
