package types

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
)

// Interner provides stable IDs by hashing structural descriptors.
//
// The compiler frontend owns type identity; this facade dedupes the
// references that flow through dictionary layout so that structural equality
// reduces to ID equality. IDs are dense and assigned in interning order.
type Interner struct {
	names     []string
	nameIndex map[string]StringID

	types     []Type
	typeIndex map[typeKey]TypeID

	methods     []Method
	methodIndex map[methodKey]MethodID

	owners     []Owner
	ownerIndex map[Owner]OwnerID
}

// NewInterner constructs an empty interner with the zero IDs reserved.
func NewInterner() *Interner {
	in := &Interner{
		nameIndex:   make(map[string]StringID, 64),
		typeIndex:   make(map[typeKey]TypeID, 64),
		methodIndex: make(map[methodKey]MethodID, 64),
		ownerIndex:  make(map[Owner]OwnerID, 32),
	}
	// Reserve 0 as the invalid sentinel in every table.
	in.names = append(in.names, "")
	in.types = append(in.types, Type{})
	in.methods = append(in.methods, Method{})
	in.owners = append(in.owners, Owner{})
	return in
}

// InternName ensures the symbol name has a stable StringID.
// Names arrive from external frontends in arbitrary Unicode forms; they are
// NFC-normalized before hashing so identity does not depend on the producer.
func (in *Interner) InternName(name string) StringID {
	if name == "" {
		return NoStringID
	}
	name = norm.NFC.String(name)
	if id, ok := in.nameIndex[name]; ok {
		return id
	}
	lenNames, err := safecast.Conv[uint32](len(in.names))
	if err != nil {
		panic(fmt.Errorf("len(names) overflow: %w", err))
	}
	id := StringID(lenNames)
	in.names = append(in.names, name)
	in.nameIndex[name] = id
	return id
}

// Name returns the interned spelling for a StringID.
func (in *Interner) Name(id StringID) string {
	if !id.IsValid() || int(id) >= len(in.names) {
		return ""
	}
	return in.names[id]
}

// Intern ensures the provided type descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := in.typeKeyOf(t)
	if id, ok := in.typeIndex[key]; ok {
		return id
	}
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	t.Args = slices.Clone(t.Args)
	in.types = append(in.types, t)
	in.typeIndex[key] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if !id.IsValid() || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	t, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return t
}

// InternMethod ensures the method descriptor has a stable MethodID.
func (in *Interner) InternMethod(m Method) MethodID {
	if !m.Name.IsValid() {
		return NoMethodID
	}
	key := methodKey{Recv: m.Recv, Name: m.Name, ArgsKey: argsKey(m.Args)}
	if id, ok := in.methodIndex[key]; ok {
		return id
	}
	lenMethods, err := safecast.Conv[uint32](len(in.methods))
	if err != nil {
		panic(fmt.Errorf("len(methods) overflow: %w", err))
	}
	id := MethodID(lenMethods)
	m.Args = slices.Clone(m.Args)
	in.methods = append(in.methods, m)
	in.methodIndex[key] = id
	return id
}

// LookupMethod returns the descriptor for a MethodID.
func (in *Interner) LookupMethod(id MethodID) (Method, bool) {
	if !id.IsValid() || int(id) >= len(in.methods) {
		return Method{}, false
	}
	return in.methods[id], true
}

type typeKey struct {
	Kind       Kind
	Sym        StringID
	Elem       TypeID
	Index      uint32
	FromMethod bool
	ArgsKey    string
}

type methodKey struct {
	Recv    TypeID
	Name    StringID
	ArgsKey string
}

func (in *Interner) typeKeyOf(t Type) typeKey {
	return typeKey{
		Kind:       t.Kind,
		Sym:        t.Sym,
		Elem:       t.Elem,
		Index:      t.Index,
		FromMethod: t.FromMethod,
		ArgsKey:    argsKey(t.Args),
	}
}

// argsKey flattens a type-argument list into a stable map key.
// Go maps cannot use slices as keys, so the IDs are joined textually.
func argsKey(args []TypeID) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	for i, arg := range args {
		if i > 0 {
			b.WriteByte('#')
		}
		b.WriteString(strconv.FormatUint(uint64(arg), 10))
	}
	return b.String()
}
