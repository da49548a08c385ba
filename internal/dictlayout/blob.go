package dictlayout

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"keel/internal/types"
)

// Current schema version - increment when the blob format changes.
const blobSchemaVersion uint16 = 1

// TypeSpec is the serialized, interner-independent form of a type reference.
// Blobs carry structural names, never session-local IDs, so a layout written
// by one compilation can seed another.
type TypeSpec struct {
	Kind       string
	Sym        string
	Index      uint32
	FromMethod bool
	Elem       *TypeSpec
	Args       []TypeSpec
}

// MethodSpec is the serialized form of a method reference.
type MethodSpec struct {
	Recv *TypeSpec
	Name string
	Args []TypeSpec
}

// OwnerSpec is the serialized form of a canonical owner.
type OwnerSpec struct {
	Kind   string // "type" or "method"
	Type   *TypeSpec
	Method *MethodSpec
}

// LookupSpec is one tagged descriptor in a persisted layout.
type LookupSpec struct {
	Tag    string
	Type   *TypeSpec
	Method *MethodSpec
	Field  uint32
}

// OwnerLayout is the ordered descriptor list of one owner. Position in
// Entries is the slot number.
type OwnerLayout struct {
	Owner   OwnerSpec
	Entries []LookupSpec
}

// Blob is a persisted set of fixed dictionary layouts.
type Blob struct {
	Schema uint16
	Target string
	Owners []OwnerLayout
}

// ExportLayouts renders a finalized layout set as a blob for image emission.
func ExportLayouts(set *LayoutSet, target Target) *Blob {
	in := set.Interner()
	blob := &Blob{Schema: blobSchemaVersion, Target: target.Triple}
	for _, owner := range set.Owners() {
		n, _ := set.Node(owner)
		entries := n.Entries()
		ol := OwnerLayout{
			Owner:   OwnerSpecOf(in, owner),
			Entries: make([]LookupSpec, 0, len(entries)),
		}
		for _, l := range entries {
			ol.Entries = append(ol.Entries, LookupSpecOf(in, l))
		}
		blob.Owners = append(blob.Owners, ol)
	}
	return blob
}

// ApplyFixedLayouts interns every owner in the blob and installs its ordered
// descriptor list via SupplyFixedLayout. Used for cross-compilation-unit and
// versioned dictionaries whose content was computed out-of-band.
func ApplyFixedLayouts(blob *Blob, in *types.Interner, reg *Registry) error {
	if blob.Schema != blobSchemaVersion {
		return fmt.Errorf("dictlayout: blob schema %d, want %d", blob.Schema, blobSchemaVersion)
	}
	for _, ol := range blob.Owners {
		owner, err := InternOwnerSpec(in, ol.Owner)
		if err != nil {
			return err
		}
		ordered := make([]Lookup, 0, len(ol.Entries))
		for _, ls := range ol.Entries {
			l, err := InternLookupSpec(in, ls)
			if err != nil {
				return err
			}
			ordered = append(ordered, l)
		}
		if err := reg.GetOrCreate(owner).SupplyFixedLayout(ordered); err != nil {
			return err
		}
	}
	return nil
}

// EncodeBlob writes the blob in msgpack form.
func EncodeBlob(w io.Writer, blob *Blob) error {
	return msgpack.NewEncoder(w).Encode(blob)
}

// DecodeBlob reads a msgpack blob.
func DecodeBlob(r io.Reader) (*Blob, error) {
	var blob Blob
	if err := msgpack.NewDecoder(r).Decode(&blob); err != nil {
		return nil, err
	}
	return &blob, nil
}

// WriteBlobFile writes the blob atomically: temp file in the target
// directory, then rename.
func WriteBlobFile(path string, blob *Blob) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(f.Name())
	}()
	if err := EncodeBlob(f, blob); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// ReadBlobFile reads a blob from disk.
func ReadBlobFile(path string) (*Blob, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return DecodeBlob(f)
}

// TypeSpecOf renders a type reference in wire form.
func TypeSpecOf(in *types.Interner, id types.TypeID) *TypeSpec {
	if !id.IsValid() {
		return nil
	}
	t := in.MustLookup(id)
	switch t.Kind {
	case types.KindParam:
		return &TypeSpec{Kind: "param", Index: t.Index, FromMethod: t.FromMethod}
	case types.KindNamed:
		spec := &TypeSpec{Kind: "named", Sym: in.Name(t.Sym)}
		for _, a := range t.Args {
			spec.Args = append(spec.Args, *TypeSpecOf(in, a))
		}
		return spec
	case types.KindPointer:
		return &TypeSpec{Kind: "pointer", Elem: TypeSpecOf(in, t.Elem)}
	default:
		return nil
	}
}

// MethodSpecOf renders a method reference in wire form.
func MethodSpecOf(in *types.Interner, id types.MethodID) *MethodSpec {
	if !id.IsValid() {
		return nil
	}
	m, _ := in.LookupMethod(id)
	spec := &MethodSpec{Recv: TypeSpecOf(in, m.Recv), Name: in.Name(m.Name)}
	for _, a := range m.Args {
		spec.Args = append(spec.Args, *TypeSpecOf(in, a))
	}
	return spec
}

// OwnerSpecOf renders a canonical owner in wire form.
func OwnerSpecOf(in *types.Interner, id types.OwnerID) OwnerSpec {
	o, _ := in.LookupOwner(id)
	switch o.Kind {
	case types.OwnerType:
		return OwnerSpec{Kind: "type", Type: TypeSpecOf(in, o.Type)}
	case types.OwnerMethod:
		return OwnerSpec{Kind: "method", Method: MethodSpecOf(in, o.Method)}
	default:
		return OwnerSpec{}
	}
}

// LookupSpecOf renders a lookup descriptor in wire form.
func LookupSpecOf(in *types.Interner, l Lookup) LookupSpec {
	return LookupSpec{
		Tag:    l.Kind.Tag(),
		Type:   TypeSpecOf(in, l.Type),
		Method: MethodSpecOf(in, l.Method),
		Field:  l.Field,
	}
}

// InternTypeSpec interns a wire-form type reference into the session interner.
func InternTypeSpec(in *types.Interner, spec *TypeSpec) (types.TypeID, error) {
	if spec == nil {
		return types.NoTypeID, nil
	}
	switch spec.Kind {
	case "param":
		return in.Intern(types.MakeParam(spec.Index, spec.FromMethod)), nil
	case "named":
		args := make([]types.TypeID, 0, len(spec.Args))
		for i := range spec.Args {
			a, err := InternTypeSpec(in, &spec.Args[i])
			if err != nil {
				return types.NoTypeID, err
			}
			args = append(args, a)
		}
		return in.Intern(types.MakeNamed(in.InternName(spec.Sym), args...)), nil
	case "pointer":
		elem, err := InternTypeSpec(in, spec.Elem)
		if err != nil {
			return types.NoTypeID, err
		}
		return in.Intern(types.MakePointer(elem)), nil
	default:
		return types.NoTypeID, fmt.Errorf("dictlayout: unknown type spec kind %q", spec.Kind)
	}
}

// InternMethodSpec interns a wire-form method reference.
func InternMethodSpec(in *types.Interner, spec *MethodSpec) (types.MethodID, error) {
	if spec == nil {
		return types.NoMethodID, nil
	}
	recv, err := InternTypeSpec(in, spec.Recv)
	if err != nil {
		return types.NoMethodID, err
	}
	args := make([]types.TypeID, 0, len(spec.Args))
	for i := range spec.Args {
		a, err := InternTypeSpec(in, &spec.Args[i])
		if err != nil {
			return types.NoMethodID, err
		}
		args = append(args, a)
	}
	return in.InternMethod(types.Method{Recv: recv, Name: in.InternName(spec.Name), Args: args}), nil
}

// InternOwnerSpec interns a wire-form canonical owner.
func InternOwnerSpec(in *types.Interner, spec OwnerSpec) (types.OwnerID, error) {
	switch spec.Kind {
	case "type":
		t, err := InternTypeSpec(in, spec.Type)
		if err != nil {
			return types.NoOwnerID, err
		}
		return in.InternTypeOwner(t), nil
	case "method":
		m, err := InternMethodSpec(in, spec.Method)
		if err != nil {
			return types.NoOwnerID, err
		}
		return in.InternMethodOwner(m), nil
	default:
		return types.NoOwnerID, fmt.Errorf("dictlayout: unknown owner spec kind %q", spec.Kind)
	}
}

// InternLookupSpec interns a wire-form lookup descriptor.
func InternLookupSpec(in *types.Interner, spec LookupSpec) (Lookup, error) {
	kind, ok := KindForTag(spec.Tag)
	if !ok {
		return Lookup{}, fmt.Errorf("dictlayout: unknown lookup tag %q", spec.Tag)
	}
	t, err := InternTypeSpec(in, spec.Type)
	if err != nil {
		return Lookup{}, err
	}
	m, err := InternMethodSpec(in, spec.Method)
	if err != nil {
		return Lookup{}, err
	}
	return Lookup{Kind: kind, Type: t, Method: m, Field: spec.Field}, nil
}
