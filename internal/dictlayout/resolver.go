package dictlayout

import (
	"context"
	"fmt"

	"keel/internal/types"
)

// RuntimeValue is an opaque pointer-sized cell content produced when the
// runtime type loader materializes a dictionary for one concrete
// instantiation.
type RuntimeValue uint64

// RuntimeResolver is implemented by the runtime type loader. Each method
// resolves one lookup kind against a concrete instantiation's substituted
// arguments. Nothing in this package ever calls it: compile time decides the
// shape of every slot, run time decides its value.
type RuntimeResolver interface {
	TypeHandle(ctx context.Context, t types.TypeID, inst types.Instantiation) (RuntimeValue, error)
	MethodEntry(ctx context.Context, m types.MethodID, inst types.Instantiation) (RuntimeValue, error)
	FieldOffset(ctx context.Context, t types.TypeID, field uint32, inst types.Instantiation) (RuntimeValue, error)
	InterfaceCell(ctx context.Context, iface types.TypeID, m types.MethodID, inst types.Instantiation) (RuntimeValue, error)
	ConstrainedCall(ctx context.Context, constraint types.TypeID, m types.MethodID, inst types.Instantiation) (RuntimeValue, error)
	AllocHelper(ctx context.Context, t types.TypeID, inst types.Instantiation) (RuntimeValue, error)
}

// Resolve dispatches the lookup to the resolver for one instantiation.
// Exhaustive over the closed kind set; an unknown kind is a fatal loader-side
// condition, reported as an error rather than stored.
func (l Lookup) Resolve(ctx context.Context, r RuntimeResolver, inst types.Instantiation) (RuntimeValue, error) {
	switch l.Kind {
	case LookupTypeHandle:
		return r.TypeHandle(ctx, l.Type, inst)
	case LookupMethodEntry:
		return r.MethodEntry(ctx, l.Method, inst)
	case LookupFieldOffset:
		return r.FieldOffset(ctx, l.Type, l.Field, inst)
	case LookupInterfaceCell:
		return r.InterfaceCell(ctx, l.Type, l.Method, inst)
	case LookupConstrainedCall:
		return r.ConstrainedCall(ctx, l.Type, l.Method, inst)
	case LookupAllocHelper:
		return r.AllocHelper(ctx, l.Type, inst)
	default:
		return 0, fmt.Errorf("dictlayout: unknown lookup kind %d", uint8(l.Kind))
	}
}
