package types

// StringID identifies an interned symbol name.
type StringID uint32

// NoStringID marks the absence of a name.
const NoStringID StringID = 0

// TypeID uniquely identifies a type reference inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// MethodID uniquely identifies a method reference inside the interner.
type MethodID uint32

// NoMethodID marks the absence of a method.
const NoMethodID MethodID = 0

// OwnerID identifies a canonical owner: the single generic type or method
// representative that stands in for an entire family of instantiations.
type OwnerID uint32

// NoOwnerID marks the absence of an owner.
const NoOwnerID OwnerID = 0

// IsValid reports whether the ID refers to an interned name.
func (id StringID) IsValid() bool { return id != NoStringID }

// IsValid reports whether the ID refers to an interned type.
func (id TypeID) IsValid() bool { return id != NoTypeID }

// IsValid reports whether the ID refers to an interned method.
func (id MethodID) IsValid() bool { return id != NoMethodID }

// IsValid reports whether the ID refers to an interned owner.
func (id OwnerID) IsValid() bool { return id != NoOwnerID }
