package dictlayout

import (
	"fmt"

	"keel/internal/types"
)

// ContractErrorKind enumerates the ways this subsystem's contracts can be
// violated. Every one of them is a compiler-internal bug: the driver aborts
// the compilation on sight and never retries.
type ContractErrorKind uint8

const (
	// ContractErrClosedNode indicates an AddEntry on a Fixed or Finalized node.
	ContractErrClosedNode ContractErrorKind = iota + 1
	// ContractErrRefix indicates SupplyFixedLayout on a node that is already
	// Fixed, Finalized, or has accumulated open entries.
	ContractErrRefix
	// ContractErrNotFinalized indicates a slot query before finalization.
	ContractErrNotFinalized
	// ContractErrUnknownLookup indicates an attempt to store a descriptor
	// outside the closed kind set.
	ContractErrUnknownLookup
	// ContractErrMissingLookup indicates a slot query for a descriptor that
	// was not present at finalization time.
	ContractErrMissingLookup
	// ContractErrNoFixpoint indicates finalization attempted without a valid
	// fixpoint token.
	ContractErrNoFixpoint
)

// ContractError identifies the owner and operation of a violated contract.
type ContractError struct {
	Kind  ContractErrorKind
	Owner types.OwnerID
	Op    string
	State NodeState
}

func (e *ContractError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ContractErrClosedNode:
		return fmt.Sprintf("%s on %s node (owner#%d): layout is closed to new entries", e.Op, e.State, e.Owner)
	case ContractErrRefix:
		return fmt.Sprintf("%s (owner#%d): node already has a layout (state %s)", e.Op, e.Owner, e.State)
	case ContractErrNotFinalized:
		return fmt.Sprintf("%s (owner#%d): slots are undefined before finalization (state %s)", e.Op, e.Owner, e.State)
	case ContractErrUnknownLookup:
		return fmt.Sprintf("%s (owner#%d): descriptor kind outside the closed lookup set", e.Op, e.Owner)
	case ContractErrMissingLookup:
		return fmt.Sprintf("%s (owner#%d): descriptor was not present at finalization", e.Op, e.Owner)
	case ContractErrNoFixpoint:
		return fmt.Sprintf("%s: finalization requires a confirmed dependency-graph fixpoint", e.Op)
	default:
		return fmt.Sprintf("contract error kind=%d owner#%d op=%s", e.Kind, e.Owner, e.Op)
	}
}
