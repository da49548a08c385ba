package dictlayout

import (
	"context"
	"errors"
	"testing"

	"keel/internal/depgraph"
	"keel/internal/types"
)

// fixture interns the owner and operands of the List<T>.Add examples.
type fixture struct {
	in       *types.Interner
	reg      *Registry
	owner    types.OwnerID
	elem     types.TypeID
	listOfT  types.TypeID
	typeOfT  Lookup
	fieldOff Lookup
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	in := types.NewInterner()
	elem := in.Intern(types.MakeParam(0, false))
	listOfT := in.Intern(types.MakeNamed(in.InternName("List"), elem))
	add := in.InternMethod(types.Method{Recv: listOfT, Name: in.InternName("Add")})
	return &fixture{
		in:       in,
		reg:      NewRegistry(),
		owner:    in.InternMethodOwner(add),
		elem:     elem,
		listOfT:  listOfT,
		typeOfT:  TypeHandle(elem),
		fieldOff: FieldOffset(listOfT, 1),
	}
}

func confirmedFixpoint(t *testing.T) depgraph.FixpointToken {
	t.Helper()
	g := depgraph.New(depgraph.WithJobs(1))
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("run empty graph: %v", err)
	}
	tok, err := g.Fixpoint()
	if err != nil {
		t.Fatalf("fixpoint: %v", err)
	}
	return tok
}

func (f *fixture) finalizeAll(t *testing.T) *LayoutSet {
	t.Helper()
	fin, err := NewFinalizer(confirmedFixpoint(t), f.reg, f.in)
	if err != nil {
		t.Fatalf("new finalizer: %v", err)
	}
	return fin.FinalizeAll()
}

func TestDiscoveryOrderDeterminesSlots(t *testing.T) {
	f := newFixture(t)
	n := f.reg.GetOrCreate(f.owner)
	// TypeOf(T), FieldOffset(T, 1), then TypeOf(T) again from another site.
	for _, l := range []Lookup{f.typeOfT, f.fieldOff, f.typeOfT} {
		if err := n.AddEntry(l); err != nil {
			t.Fatalf("add entry: %v", err)
		}
	}
	set := f.finalizeAll(t)
	if slot, err := set.SlotOf(f.owner, f.typeOfT); err != nil || slot != 0 {
		t.Fatalf("type handle slot: got %d, %v; want 0", slot, err)
	}
	if slot, err := set.SlotOf(f.owner, f.fieldOff); err != nil || slot != 1 {
		t.Fatalf("field offset slot: got %d, %v; want 1", slot, err)
	}
	if count, err := set.SlotCount(f.owner); err != nil || count != 2 {
		t.Fatalf("slot count: got %d, %v; want 2", count, err)
	}
}

func TestAddEntryIsIdempotent(t *testing.T) {
	f := newFixture(t)
	n := f.reg.GetOrCreate(f.owner)
	if err := n.AddEntry(f.typeOfT); err != nil {
		t.Fatalf("add entry: %v", err)
	}
	before := n.Entries()
	if err := n.AddEntry(f.typeOfT); err != nil {
		t.Fatalf("re-add entry: %v", err)
	}
	after := n.Entries()
	if len(before) != 1 || len(after) != 1 || before[0] != after[0] {
		t.Fatalf("duplicate add changed the descriptor set: %v vs %v", before, after)
	}
}

func TestOpenNodeOnlyGrows(t *testing.T) {
	f := newFixture(t)
	n := f.reg.GetOrCreate(f.owner)
	last := 0
	for _, l := range []Lookup{f.typeOfT, f.typeOfT, f.fieldOff, AllocHelper(f.listOfT)} {
		if err := n.AddEntry(l); err != nil {
			t.Fatalf("add entry: %v", err)
		}
		if c := n.Count(); c < last {
			t.Fatalf("descriptor count shrank: %d -> %d", last, c)
		} else {
			last = c
		}
	}
}

func TestFinalizeClosesNode(t *testing.T) {
	f := newFixture(t)
	n := f.reg.GetOrCreate(f.owner)
	if err := n.AddEntry(f.typeOfT); err != nil {
		t.Fatalf("add entry: %v", err)
	}
	set := f.finalizeAll(t)

	err := n.AddEntry(f.fieldOff)
	var cerr *ContractError
	if !errors.As(err, &cerr) || cerr.Kind != ContractErrClosedNode {
		t.Fatalf("add after finalize: got %v, want closed-node contract error", err)
	}
	// Slots are defined for finalized content only.
	if _, err := set.SlotOf(f.owner, f.fieldOff); err == nil {
		t.Fatalf("slot of absent descriptor must be undefined")
	}
}

func TestSlotOfBeforeFinalizeFails(t *testing.T) {
	f := newFixture(t)
	n := f.reg.GetOrCreate(f.owner)
	if err := n.AddEntry(f.typeOfT); err != nil {
		t.Fatalf("add entry: %v", err)
	}
	var cerr *ContractError
	if _, err := n.SlotOf(f.typeOfT); !errors.As(err, &cerr) || cerr.Kind != ContractErrNotFinalized {
		t.Fatalf("slot query on open node: got %v, want not-finalized contract error", err)
	}
}

func TestFixedLayoutRejectsAddEntry(t *testing.T) {
	f := newFixture(t)
	entry := MethodEntry(f.in.InternMethod(types.Method{
		Recv: f.listOfT,
		Name: f.in.InternName("M"),
		Args: []types.TypeID{f.elem},
	}))
	n := f.reg.GetOrCreate(f.owner)
	if err := n.SupplyFixedLayout([]Lookup{entry, f.typeOfT}); err != nil {
		t.Fatalf("supply fixed layout: %v", err)
	}
	var cerr *ContractError
	if err := n.AddEntry(f.typeOfT); !errors.As(err, &cerr) || cerr.Kind != ContractErrClosedNode {
		t.Fatalf("add to fixed node: got %v, want closed-node contract error", err)
	}
	set := f.finalizeAll(t)
	if slot, err := set.SlotOf(f.owner, entry); err != nil || slot != 0 {
		t.Fatalf("fixed slot 0: got %d, %v", slot, err)
	}
	if slot, err := set.SlotOf(f.owner, f.typeOfT); err != nil || slot != 1 {
		t.Fatalf("fixed slot 1: got %d, %v", slot, err)
	}
}

func TestSupplyFixedLayoutOnUsedNodeFails(t *testing.T) {
	f := newFixture(t)
	n := f.reg.GetOrCreate(f.owner)
	if err := n.AddEntry(f.typeOfT); err != nil {
		t.Fatalf("add entry: %v", err)
	}
	var cerr *ContractError
	if err := n.SupplyFixedLayout([]Lookup{f.fieldOff}); !errors.As(err, &cerr) || cerr.Kind != ContractErrRefix {
		t.Fatalf("refix of open node with entries: got %v, want refix contract error", err)
	}
}

func TestFinalizerRequiresFixpointProof(t *testing.T) {
	f := newFixture(t)
	var cerr *ContractError
	if _, err := NewFinalizer(depgraph.FixpointToken{}, f.reg, f.in); !errors.As(err, &cerr) || cerr.Kind != ContractErrNoFixpoint {
		t.Fatalf("finalizer without proof: got %v, want no-fixpoint contract error", err)
	}
}

func TestByteOffsetsFollowPointerSize(t *testing.T) {
	f := newFixture(t)
	n := f.reg.GetOrCreate(f.owner)
	for _, l := range []Lookup{f.typeOfT, f.fieldOff} {
		if err := n.AddEntry(l); err != nil {
			t.Fatalf("add entry: %v", err)
		}
	}
	f.finalizeAll(t)
	target := X86_64LinuxGNU()
	off, err := n.ByteOffsetOf(f.fieldOff, target)
	if err != nil {
		t.Fatalf("byte offset: %v", err)
	}
	if off != target.PtrSize {
		t.Fatalf("slot 1 byte offset: got %d, want %d", off, target.PtrSize)
	}
}

func TestInvalidLookupRejected(t *testing.T) {
	f := newFixture(t)
	n := f.reg.GetOrCreate(f.owner)
	var cerr *ContractError
	if err := n.AddEntry(Lookup{}); !errors.As(err, &cerr) || cerr.Kind != ContractErrUnknownLookup {
		t.Fatalf("invalid lookup: got %v, want unknown-lookup contract error", err)
	}
}
