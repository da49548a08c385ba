package dictlayout

import (
	"sync"

	"keel/internal/types"
)

// Registry is the session-owned map from canonical owner to its unique
// layout node. It is created at compilation-session start and discarded with
// the session; nothing here is process-global.
//
// GetOrCreate is an atomic get-or-insert: concurrent first accesses for the
// same owner can never both create. The registry lock guards only the map;
// descriptor accumulation is synchronized per node, so discovery on
// unrelated owners never serializes.
type Registry struct {
	mu    sync.RWMutex
	nodes map[types.OwnerID]*Node
}

// NewRegistry creates an empty registry for one compilation session.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[types.OwnerID]*Node, 64)}
}

// GetOrCreate returns the unique node for the owner, creating it Open and
// empty on first access. All callers, concurrent or sequential, observe the
// same instance.
func (r *Registry) GetOrCreate(owner types.OwnerID) *Node {
	r.mu.RLock()
	n, ok := r.nodes[owner]
	r.mu.RUnlock()
	if ok {
		return n
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.nodes[owner]; ok {
		return n
	}
	n = newNode(owner)
	r.nodes[owner] = n
	return n
}

// Get returns the node for the owner if one exists.
func (r *Registry) Get(owner types.OwnerID) (*Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[owner]
	return n, ok
}

// Len returns the number of owners with a layout node.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Owners returns every owner that has a node, in unspecified order.
// Callers needing reproducible iteration sort by a structural key; the
// Finalizer does exactly that.
func (r *Registry) Owners() []types.OwnerID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owners := make([]types.OwnerID, 0, len(r.nodes))
	for owner := range r.nodes {
		owners = append(owners, owner)
	}
	return owners
}
