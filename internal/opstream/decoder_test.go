package opstream

import (
	"errors"
	"testing"

	"github.com/teranos/agent-react-devtools/internal/wireerr"
)

func TestDecodeAddRootThenShortAdd(t *testing.T) {
	// rendererId=1, rootId=100, table=["App"], ADD root, ADD(App) short shape
	batch := []int64{
		1, 100, 4, 3, 'A', 'p', 'p',
		opAdd, 100, 11 /*Root*/, 1, 1, 1, 1,
		opAdd, 101, 5 /*Function*/, 100, 0, 1, 0,
	}
	d := NewDecoder()
	decoded, err := d.Decode(batch)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded.Ops) != 2 {
		t.Fatalf("ops = %d, want 2", len(decoded.Ops))
	}
	root, ok := decoded.Ops[0].(AddRoot)
	if !ok || root.ID != 100 || !root.StrictModeCompliant {
		t.Fatalf("op[0] = %+v", decoded.Ops[0])
	}
	node, ok := decoded.Ops[1].(AddNode)
	if !ok || node.ID != 101 || node.NamePropStrID != -1 {
		t.Fatalf("op[1] = %+v, want short-shape AddNode", decoded.Ops[1])
	}
	name, ok := Resolve(decoded.StringTable, node.DisplayNameStrID)
	if !ok || name != "App" {
		t.Fatalf("display name = %q, %v", name, ok)
	}
}

func TestExtendedAddLatchesForRestOfConnection(t *testing.T) {
	d := NewDecoder()

	// First batch carries a suspense opcode, latching extended-ADD.
	first := []int64{1, 1, 0, opSuspenseReorderChildren, 5, 1, 6}
	if _, err := d.Decode(first); err != nil {
		t.Fatalf("first Decode: %v", err)
	}
	if !d.extendedAdd {
		t.Fatalf("extendedAdd should have latched")
	}

	// Second batch's ADD is now parsed with the extended (name-prop) shape.
	second := []int64{1, 1, 0, opAdd, 10, 5, 1, 0, 1, 0, 99}
	decoded, err := d.Decode(second)
	if err != nil {
		t.Fatalf("second Decode: %v", err)
	}
	node := decoded.Ops[0].(AddNode)
	if node.NamePropStrID != 99 {
		t.Fatalf("NamePropStrID = %d, want 99 (extended shape consumed)", node.NamePropStrID)
	}
}

func TestRemoveAndReorderChildren(t *testing.T) {
	batch := []int64{
		1, 1, 0,
		opRemove, 2, 5, 6,
		opReorderChildren, 1, 2, 7, 8,
	}
	d := NewDecoder()
	decoded, err := d.Decode(batch)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	rm := decoded.Ops[0].(Remove)
	if len(rm.IDs) != 2 || rm.IDs[0] != 5 || rm.IDs[1] != 6 {
		t.Fatalf("Remove.IDs = %v", rm.IDs)
	}
	reorder := decoded.Ops[1].(ReorderChildren)
	if reorder.ParentID != 1 || len(reorder.ChildIDs) != 2 {
		t.Fatalf("ReorderChildren = %+v", reorder)
	}
}

func TestMalformedBatchTruncatedStringTable(t *testing.T) {
	batch := []int64{1, 1, 5 /* claims 5 but none follow */}
	d := NewDecoder()
	_, err := d.Decode(batch)
	if err == nil {
		t.Fatalf("expected error for truncated string table")
	}
	if !errors.Is(err, wireerr.ErrMalformedBatch) {
		t.Fatalf("err = %v, want wrapped ErrMalformedBatch", err)
	}
}

func TestUnknownOpcodeIsIgnoredNotFatal(t *testing.T) {
	batch := []int64{1, 1, 0, 255}
	d := NewDecoder()
	decoded, err := d.Decode(batch)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ignored, ok := decoded.Ops[0].(Ignored)
	if !ok || ignored.Opcode != 255 {
		t.Fatalf("op = %+v, want Ignored{255}", decoded.Ops[0])
	}
}
