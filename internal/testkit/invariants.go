package testkit

import (
	"fmt"

	"keel/internal/dictlayout"
)

// CheckLayoutInvariants runs a minimal set of invariants on a finalized set:
// 1) every node is closed (fixed or finalized), never open
// 2) slots are dense: exactly 0..count-1, each defined for its descriptor
// 3) no descriptor appears twice within one owner
func CheckLayoutInvariants(set *dictlayout.LayoutSet) error {
	if set == nil {
		return fmt.Errorf("nil layout set")
	}
	in := set.Interner()
	for _, owner := range set.Owners() {
		node, ok := set.Node(owner)
		if !ok {
			return fmt.Errorf("owner %s listed without a node", in.OwnerKey(owner))
		}
		if node.State() == dictlayout.StateOpen {
			return fmt.Errorf("owner %s is still open after finalization", in.OwnerKey(owner))
		}
		count, err := node.SlotCount()
		if err != nil {
			return fmt.Errorf("owner %s: %w", in.OwnerKey(owner), err)
		}
		entries := node.Entries()
		if len(entries) != count {
			return fmt.Errorf("owner %s: %d entries vs %d slots", in.OwnerKey(owner), len(entries), count)
		}
		seen := make(map[dictlayout.Lookup]bool, count)
		for want, l := range entries {
			if seen[l] {
				return fmt.Errorf("owner %s: duplicate descriptor %s", in.OwnerKey(owner), l.Format(in))
			}
			seen[l] = true
			slot, err := node.SlotOf(l)
			if err != nil {
				return fmt.Errorf("owner %s slot %d: %w", in.OwnerKey(owner), want, err)
			}
			if slot != want {
				return fmt.Errorf("owner %s: descriptor %s at slot %d, want %d", in.OwnerKey(owner), l.Format(in), slot, want)
			}
		}
	}
	return nil
}
