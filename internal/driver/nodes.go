package driver

import (
	"context"

	"keel/internal/depgraph"
	"keel/internal/dictlayout"
	"keel/internal/types"
)

// ownerNeed is one dictionary need resolved against the session interner.
type ownerNeed struct {
	owner  types.OwnerID
	lookup dictlayout.Lookup
}

// methodNode is the graph artifact for one canonical method body. Its edges
// are the canonical methods the body calls; its dictionary needs are not
// edges — they are applied to the owner registry when the engine commits the
// node, in deterministic round order.
type methodNode struct {
	key   string
	calls []depgraph.Node
	needs []ownerNeed
}

func (n *methodNode) Key() string { return "method:" + n.key }

func (n *methodNode) Dependencies(context.Context) ([]depgraph.Node, error) {
	return n.calls, nil
}
