package dictlayout

import (
	"sort"

	"keel/internal/depgraph"
	"keel/internal/types"
)

// Finalizer closes every layout node after discovery is complete. It can
// only be constructed from a valid fixpoint token, so ordinary call-site
// code paths — which never hold one — cannot finalize early.
type Finalizer struct {
	reg *Registry
	in  *types.Interner
}

// NewFinalizer validates the fixpoint proof and returns a finalizer bound to
// the registry.
func NewFinalizer(tok depgraph.FixpointToken, reg *Registry, in *types.Interner) (*Finalizer, error) {
	if !tok.Valid() {
		return nil, &ContractError{Kind: ContractErrNoFixpoint, Op: "NewFinalizer"}
	}
	return &Finalizer{reg: reg, in: in}, nil
}

// FinalizeAll closes every node in structural owner-key order and publishes
// the immutable layout set. Calling it again returns an equivalent set; the
// nodes are already closed and pass through unchanged.
func (f *Finalizer) FinalizeAll() *LayoutSet {
	owners := f.reg.Owners()
	sort.Slice(owners, func(i, j int) bool {
		return f.in.OwnerKey(owners[i]) < f.in.OwnerKey(owners[j])
	})
	nodes := make(map[types.OwnerID]*Node, len(owners))
	for _, owner := range owners {
		n, _ := f.reg.Get(owner)
		n.finalize()
		nodes[owner] = n
	}
	return &LayoutSet{in: f.in, order: owners, nodes: nodes}
}

// LayoutSet is the authoritative, read-only view of every finalized layout,
// consumed by codegen (slot offsets for call sites) and by image emission
// (ordered tagged content and slot counts).
type LayoutSet struct {
	in    *types.Interner
	order []types.OwnerID
	nodes map[types.OwnerID]*Node
}

// Owners returns every owner in structural key order.
func (s *LayoutSet) Owners() []types.OwnerID {
	out := make([]types.OwnerID, len(s.order))
	copy(out, s.order)
	return out
}

// Node returns the finalized node for an owner.
func (s *LayoutSet) Node(owner types.OwnerID) (*Node, bool) {
	n, ok := s.nodes[owner]
	return n, ok
}

// SlotOf returns the slot index of a descriptor within an owner's dictionary.
func (s *LayoutSet) SlotOf(owner types.OwnerID, l Lookup) (int, error) {
	n, ok := s.nodes[owner]
	if !ok {
		return 0, &ContractError{Kind: ContractErrMissingLookup, Owner: owner, Op: "SlotOf"}
	}
	return n.SlotOf(l)
}

// SlotCount returns the dictionary size, in slots, an owner reserves.
func (s *LayoutSet) SlotCount(owner types.OwnerID) (int, error) {
	n, ok := s.nodes[owner]
	if !ok {
		return 0, &ContractError{Kind: ContractErrMissingLookup, Owner: owner, Op: "SlotCount"}
	}
	return n.SlotCount()
}

// Interner exposes the session interner for rendering diagnostics.
func (s *LayoutSet) Interner() *types.Interner { return s.in }
