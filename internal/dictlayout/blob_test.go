package dictlayout

import (
	"path/filepath"
	"testing"

	"keel/internal/types"
)

func TestBlobRoundTripSeedsFixedLayouts(t *testing.T) {
	// Produce a finalized set in one "compilation".
	f := newFixture(t)
	n := f.reg.GetOrCreate(f.owner)
	entry := MethodEntry(f.in.InternMethod(types.Method{Recv: f.listOfT, Name: f.in.InternName("M"), Args: []types.TypeID{f.elem}}))
	for _, l := range []Lookup{entry, f.typeOfT, ConstrainedCall(f.elem, f.in.InternMethod(types.Method{Name: f.in.InternName("ToString")}))} {
		if err := n.AddEntry(l); err != nil {
			t.Fatalf("add entry: %v", err)
		}
	}
	set := f.finalizeAll(t)
	blob := ExportLayouts(set, X86_64LinuxGNU())

	path := filepath.Join(t.TempDir(), "layouts.mp")
	if err := WriteBlobFile(path, blob); err != nil {
		t.Fatalf("write blob: %v", err)
	}
	read, err := ReadBlobFile(path)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}

	// Apply in a second session with its own interner; IDs differ, slots must not.
	in2 := types.NewInterner()
	reg2 := NewRegistry()
	if err := ApplyFixedLayouts(read, in2, reg2); err != nil {
		t.Fatalf("apply fixed layouts: %v", err)
	}
	if reg2.Len() != 1 {
		t.Fatalf("second session has %d owners, want 1", reg2.Len())
	}
	owner2 := reg2.Owners()[0]
	n2, _ := reg2.Get(owner2)
	if n2.State() != StateFixed {
		t.Fatalf("seeded node state %s, want fixed", n2.State())
	}
	count, err := n2.SlotCount()
	if err != nil || count != 3 {
		t.Fatalf("seeded slot count: got %d, %v; want 3", count, err)
	}
	// Same structural descriptor resolves to the same slot across sessions.
	elem2 := in2.Intern(types.MakeParam(0, false))
	if slot, err := n2.SlotOf(TypeHandle(elem2)); err != nil || slot != 1 {
		t.Fatalf("type handle slot in second session: got %d, %v; want 1", slot, err)
	}
	if f.in.OwnerKey(f.owner) != in2.OwnerKey(owner2) {
		t.Fatalf("owner keys diverge across sessions: %q vs %q", f.in.OwnerKey(f.owner), in2.OwnerKey(owner2))
	}
}

func TestLookupTagsRoundTrip(t *testing.T) {
	kinds := []LookupKind{
		LookupTypeHandle, LookupMethodEntry, LookupFieldOffset,
		LookupInterfaceCell, LookupConstrainedCall, LookupAllocHelper,
	}
	for _, k := range kinds {
		got, ok := KindForTag(k.Tag())
		if !ok || got != k {
			t.Fatalf("tag %q does not round-trip: got %v", k.Tag(), got)
		}
	}
	if _, ok := KindForTag("vtable-chunk"); ok {
		t.Fatalf("unknown tags must be rejected")
	}
}
