package types

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
)

// OwnerKind discriminates canonical generic types from canonical generic methods.
type OwnerKind uint8

const (
	OwnerInvalid OwnerKind = iota
	// OwnerType is the canonical form of a generic type.
	OwnerType
	// OwnerMethod is the canonical form of a generic method body.
	OwnerMethod
)

func (k OwnerKind) String() string {
	switch k {
	case OwnerInvalid:
		return "invalid"
	case OwnerType:
		return "type"
	case OwnerMethod:
		return "method"
	default:
		return fmt.Sprintf("owner(%d)", uint8(k))
	}
}

// Owner identifies one canonical owner. Exactly one of Type/Method is set,
// selected by Kind. The struct is comparable and serves as its own map key.
type Owner struct {
	Kind   OwnerKind
	Type   TypeID
	Method MethodID
}

// InternTypeOwner ensures the canonical generic type has a stable OwnerID.
func (in *Interner) InternTypeOwner(t TypeID) OwnerID {
	if !t.IsValid() {
		return NoOwnerID
	}
	return in.internOwner(Owner{Kind: OwnerType, Type: t})
}

// InternMethodOwner ensures the canonical generic method has a stable OwnerID.
func (in *Interner) InternMethodOwner(m MethodID) OwnerID {
	if !m.IsValid() {
		return NoOwnerID
	}
	return in.internOwner(Owner{Kind: OwnerMethod, Method: m})
}

func (in *Interner) internOwner(o Owner) OwnerID {
	if id, ok := in.ownerIndex[o]; ok {
		return id
	}
	lenOwners, err := safecast.Conv[uint32](len(in.owners))
	if err != nil {
		panic(fmt.Errorf("len(owners) overflow: %w", err))
	}
	id := OwnerID(lenOwners)
	in.owners = append(in.owners, o)
	in.ownerIndex[o] = id
	return id
}

// LookupOwner returns the descriptor for an OwnerID.
func (in *Interner) LookupOwner(id OwnerID) (Owner, bool) {
	if !id.IsValid() || int(id) >= len(in.owners) {
		return Owner{}, false
	}
	return in.owners[id], true
}

// OwnerKey renders a fully structural, run-stable key for an owner.
// Keys depend only on interned names and shapes, never on ID assignment
// order, so sorting by OwnerKey is reproducible across compilations.
func (in *Interner) OwnerKey(id OwnerID) string {
	o, ok := in.LookupOwner(id)
	if !ok {
		return "owner:invalid"
	}
	switch o.Kind {
	case OwnerType:
		return "type:" + in.TypeKey(o.Type)
	case OwnerMethod:
		return "method:" + in.MethodKey(o.Method)
	default:
		return "owner:invalid"
	}
}

// TypeKey renders a structural, run-stable key for a type reference.
func (in *Interner) TypeKey(id TypeID) string {
	t, ok := in.Lookup(id)
	if !ok {
		return "?"
	}
	switch t.Kind {
	case KindParam:
		scope := "T"
		if t.FromMethod {
			scope = "M"
		}
		return fmt.Sprintf("!%s%d", scope, t.Index)
	case KindNamed:
		if len(t.Args) == 0 {
			return in.Name(t.Sym)
		}
		parts := make([]string, 0, len(t.Args))
		for _, a := range t.Args {
			parts = append(parts, in.TypeKey(a))
		}
		return in.Name(t.Sym) + "<" + strings.Join(parts, ",") + ">"
	case KindPointer:
		return "*" + in.TypeKey(t.Elem)
	default:
		return "?"
	}
}

// MethodKey renders a structural, run-stable key for a method reference.
func (in *Interner) MethodKey(id MethodID) string {
	m, ok := in.LookupMethod(id)
	if !ok {
		return "?"
	}
	key := in.Name(m.Name)
	if m.Recv.IsValid() {
		key = in.TypeKey(m.Recv) + "." + key
	}
	if len(m.Args) > 0 {
		parts := make([]string, 0, len(m.Args))
		for _, a := range m.Args {
			parts = append(parts, in.TypeKey(a))
		}
		key += "<" + strings.Join(parts, ",") + ">"
	}
	return key
}
