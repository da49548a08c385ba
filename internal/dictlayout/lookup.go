package dictlayout

import (
	"fmt"

	"keel/internal/types"
)

// LookupKind enumerates the closed set of runtime-determined facts a shared
// generic body can ask its dictionary for. The set is fixed by design; every
// switch over it in this package is exhaustive.
type LookupKind uint8

const (
	LookupInvalid LookupKind = iota
	// LookupTypeHandle is the exact runtime type descriptor for a type
	// reference involving formal parameters.
	LookupTypeHandle
	// LookupMethodEntry is the callable entry point for a method whose open
	// form references type parameters.
	LookupMethodEntry
	// LookupFieldOffset is a field byte offset that varies with value-type
	// layout across instantiations.
	LookupFieldOffset
	// LookupInterfaceCell is the dispatch cell for an interface/method pair.
	LookupInterfaceCell
	// LookupConstrainedCall is the resolved target of a constrained virtual
	// call on a type parameter.
	LookupConstrainedCall
	// LookupAllocHelper is the allocation/size helper for a parameterized
	// type.
	LookupAllocHelper
)

// Tag returns the stable serialization tag for persisting fixed layouts.
// Tags are part of the image format and must never be renumbered or reused.
func (k LookupKind) Tag() string {
	switch k {
	case LookupTypeHandle:
		return "type-handle"
	case LookupMethodEntry:
		return "method-entry"
	case LookupFieldOffset:
		return "field-offset"
	case LookupInterfaceCell:
		return "interface-cell"
	case LookupConstrainedCall:
		return "constrained-call"
	case LookupAllocHelper:
		return "alloc-helper"
	default:
		return ""
	}
}

// KindForTag is the inverse of Tag.
func KindForTag(tag string) (LookupKind, bool) {
	switch tag {
	case "type-handle":
		return LookupTypeHandle, true
	case "method-entry":
		return LookupMethodEntry, true
	case "field-offset":
		return LookupFieldOffset, true
	case "interface-cell":
		return LookupInterfaceCell, true
	case "constrained-call":
		return LookupConstrainedCall, true
	case "alloc-helper":
		return LookupAllocHelper, true
	default:
		return LookupInvalid, false
	}
}

func (k LookupKind) String() string {
	if tag := k.Tag(); tag != "" {
		return tag
	}
	return fmt.Sprintf("lookup(%d)", uint8(k))
}

// Lookup describes one runtime-determined fact. It is a plain comparable
// value: structural equality is ID equality on the operands, which is exactly
// the deduplication key a layout node needs.
//
// Field usage by kind:
//
//	TypeHandle      Type
//	MethodEntry     Method
//	FieldOffset     Type, Field
//	InterfaceCell   Type (the interface), Method
//	ConstrainedCall Type (the constraint), Method
//	AllocHelper     Type
type Lookup struct {
	Kind   LookupKind
	Type   types.TypeID
	Method types.MethodID
	Field  uint32
}

// TypeHandle builds a type-descriptor lookup.
func TypeHandle(t types.TypeID) Lookup {
	return Lookup{Kind: LookupTypeHandle, Type: t}
}

// MethodEntry builds an entry-point lookup.
func MethodEntry(m types.MethodID) Lookup {
	return Lookup{Kind: LookupMethodEntry, Method: m}
}

// FieldOffset builds a field-offset lookup.
func FieldOffset(t types.TypeID, field uint32) Lookup {
	return Lookup{Kind: LookupFieldOffset, Type: t, Field: field}
}

// InterfaceCell builds an interface-dispatch-cell lookup.
func InterfaceCell(iface types.TypeID, m types.MethodID) Lookup {
	return Lookup{Kind: LookupInterfaceCell, Type: iface, Method: m}
}

// ConstrainedCall builds a constrained-virtual-call lookup.
func ConstrainedCall(constraint types.TypeID, m types.MethodID) Lookup {
	return Lookup{Kind: LookupConstrainedCall, Type: constraint, Method: m}
}

// AllocHelper builds an allocation-helper lookup.
func AllocHelper(t types.TypeID) Lookup {
	return Lookup{Kind: LookupAllocHelper, Type: t}
}

// IsValid reports whether the lookup carries a known kind and the operands
// that kind requires.
func (l Lookup) IsValid() bool {
	switch l.Kind {
	case LookupTypeHandle, LookupAllocHelper:
		return l.Type.IsValid()
	case LookupMethodEntry:
		return l.Method.IsValid()
	case LookupFieldOffset:
		return l.Type.IsValid()
	case LookupInterfaceCell, LookupConstrainedCall:
		return l.Type.IsValid() && l.Method.IsValid()
	default:
		return false
	}
}

// Format renders the lookup with interned names for diagnostics.
func (l Lookup) Format(in *types.Interner) string {
	switch l.Kind {
	case LookupTypeHandle:
		return fmt.Sprintf("type-handle(%s)", in.TypeKey(l.Type))
	case LookupMethodEntry:
		return fmt.Sprintf("method-entry(%s)", in.MethodKey(l.Method))
	case LookupFieldOffset:
		return fmt.Sprintf("field-offset(%s, %d)", in.TypeKey(l.Type), l.Field)
	case LookupInterfaceCell:
		return fmt.Sprintf("interface-cell(%s, %s)", in.TypeKey(l.Type), in.MethodKey(l.Method))
	case LookupConstrainedCall:
		return fmt.Sprintf("constrained-call(%s, %s)", in.TypeKey(l.Type), in.MethodKey(l.Method))
	case LookupAllocHelper:
		return fmt.Sprintf("alloc-helper(%s)", in.TypeKey(l.Type))
	default:
		return fmt.Sprintf("invalid-lookup(%d)", uint8(l.Kind))
	}
}
