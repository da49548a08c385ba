package dictlayout

import (
	"slices"
	"sync"

	"keel/internal/types"
)

// NodeState tracks the lifecycle of a layout node.
type NodeState uint8

const (
	// StateOpen accepts new entries from concurrent discovery.
	StateOpen NodeState = iota
	// StateFixed holds an externally supplied layout, closed from creation.
	StateFixed
	// StateFinalized has stable slot numbers and is immutable.
	StateFinalized
)

func (s NodeState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateFixed:
		return "fixed"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Node accumulates the unique lookup descriptors one canonical owner needs.
//
// It is deliberately not a depgraph.Node: a dictionary layout has no static
// edges to or from other artifacts. Its contents arrive as a side effect of
// compiling unrelated call sites, which register needs here while the graph
// engine expands their nodes.
type Node struct {
	owner types.OwnerID

	mu      sync.Mutex
	state   NodeState
	entries []Lookup
	index   map[Lookup]int
}

func newNode(owner types.OwnerID) *Node {
	return &Node{
		owner: owner,
		index: make(map[Lookup]int, 8),
	}
}

// Owner returns the canonical owner this node describes.
func (n *Node) Owner() types.OwnerID { return n.owner }

// State returns the current lifecycle state.
func (n *Node) State() NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// AddEntry registers that some compiled call site needs the descriptor.
// Re-adding an equal descriptor is a no-op; first insertion order is
// preserved and later determines slot numbers. Safe for arbitrary concurrent
// callers. Adding to a Fixed or Finalized node is a contract violation.
func (n *Node) AddEntry(l Lookup) error {
	if !l.IsValid() {
		return &ContractError{Kind: ContractErrUnknownLookup, Owner: n.owner, Op: "AddEntry"}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != StateOpen {
		return &ContractError{Kind: ContractErrClosedNode, Owner: n.owner, Op: "AddEntry", State: n.state}
	}
	if _, ok := n.index[l]; ok {
		return nil
	}
	n.index[l] = len(n.entries)
	n.entries = append(n.entries, l)
	return nil
}

// Has reports whether an equal descriptor is already present.
func (n *Node) Has(l Lookup) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.index[l]
	return ok
}

// Count returns the number of unique descriptors accumulated so far.
// While the node is Open this only ever grows.
func (n *Node) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.entries)
}

// Entries returns the descriptors in slot order (first-seen order for Open
// nodes, supplied order for Fixed ones).
func (n *Node) Entries() []Lookup {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.entries)
}

// SupplyFixedLayout installs an out-of-band, already-ordered layout and
// closes the node. Valid only on a fresh Open node with no accumulated
// entries; anything else is a contract violation.
func (n *Node) SupplyFixedLayout(ordered []Lookup) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != StateOpen || len(n.entries) != 0 {
		return &ContractError{Kind: ContractErrRefix, Owner: n.owner, Op: "SupplyFixedLayout", State: n.state}
	}
	for _, l := range ordered {
		if !l.IsValid() {
			return &ContractError{Kind: ContractErrUnknownLookup, Owner: n.owner, Op: "SupplyFixedLayout"}
		}
		if _, ok := n.index[l]; ok {
			return &ContractError{Kind: ContractErrRefix, Owner: n.owner, Op: "SupplyFixedLayout", State: n.state}
		}
		n.index[l] = len(n.entries)
		n.entries = append(n.entries, l)
	}
	n.state = StateFixed
	return nil
}

// finalize transitions Open to Finalized, freezing first-seen order as the
// slot order. Fixed and already-Finalized nodes pass through unchanged.
// Reachable only via Finalizer, which demands a fixpoint proof.
func (n *Node) finalize() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state == StateOpen {
		n.state = StateFinalized
	}
}

// SlotOf returns the stable slot index of a descriptor. Defined only once
// the node is Fixed or Finalized, and only for descriptors present at that
// point.
func (n *Node) SlotOf(l Lookup) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state == StateOpen {
		return 0, &ContractError{Kind: ContractErrNotFinalized, Owner: n.owner, Op: "SlotOf", State: n.state}
	}
	slot, ok := n.index[l]
	if !ok {
		return 0, &ContractError{Kind: ContractErrMissingLookup, Owner: n.owner, Op: "SlotOf"}
	}
	return slot, nil
}

// SlotCount returns the number of slots the owner's dictionary reserves.
// Defined only once the node is Fixed or Finalized.
func (n *Node) SlotCount() (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state == StateOpen {
		return 0, &ContractError{Kind: ContractErrNotFinalized, Owner: n.owner, Op: "SlotCount", State: n.state}
	}
	return len(n.entries), nil
}

// ByteOffsetOf returns the dictionary byte offset of a descriptor for the
// given target.
func (n *Node) ByteOffsetOf(l Lookup, target Target) (int, error) {
	slot, err := n.SlotOf(l)
	if err != nil {
		return 0, err
	}
	return target.ByteOffset(slot), nil
}
