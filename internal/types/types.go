package types

import "fmt"

// Kind enumerates all supported kinds of type references.
//
// The interner does not model the full type system of the managed language;
// it models exactly the shapes a shared generic body can name: formal type
// parameters, named (possibly generic) types applied to arguments, and
// managed pointers to either.
type Kind uint8

const (
	KindInvalid Kind = iota
	// KindParam is a formal type parameter of the canonical owner,
	// identified by zero-based index. FromMethod selects between the
	// declaring type's parameter list and the method's own list.
	KindParam
	// KindNamed is a named type, optionally applied to type arguments.
	KindNamed
	// KindPointer is a managed pointer to the element type.
	KindPointer
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindParam:
		return "param"
	case KindNamed:
		return "named"
	case KindPointer:
		return "pointer"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Type is the structural descriptor of one type reference.
// Only the fields relevant to Kind are meaningful; the rest stay zero.
type Type struct {
	Kind       Kind
	Sym        StringID // KindNamed: the type's name
	Elem       TypeID   // KindPointer: pointee
	Index      uint32   // KindParam: parameter position
	FromMethod bool     // KindParam: method parameter rather than type parameter
	Args       []TypeID // KindNamed: type arguments, possibly empty
}

// MakeParam builds a reference to the owner's type parameter at index.
func MakeParam(index uint32, fromMethod bool) Type {
	return Type{Kind: KindParam, Index: index, FromMethod: fromMethod}
}

// MakeNamed builds a named type reference applied to the given arguments.
func MakeNamed(sym StringID, args ...TypeID) Type {
	return Type{Kind: KindNamed, Sym: sym, Args: args}
}

// MakePointer builds a managed pointer reference.
func MakePointer(elem TypeID) Type {
	return Type{Kind: KindPointer, Elem: elem}
}

// Method is the structural descriptor of one method reference: a named
// method on a declaring type, optionally applied to its own type arguments.
type Method struct {
	Recv TypeID
	Name StringID
	Args []TypeID
}
