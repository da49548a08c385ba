package types

import "slices"

// Instantiation carries the concrete type arguments substituted into one
// canonical owner when the runtime materializes a dictionary for it.
// Compile time never inspects the arguments; they exist so the resolution
// contract can be stated against a concrete shape.
type Instantiation struct {
	TypeArgs   []TypeID
	MethodArgs []TypeID
}

// NormalizeArgs produces a deterministic clone used for instantiation keys.
func NormalizeArgs(args []TypeID) []TypeID {
	if len(args) == 0 {
		return nil
	}
	return slices.Clone(args)
}
