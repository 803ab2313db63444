package opstream

import "testing"

func TestDecodeStringTableRoundTrip(t *testing.T) {
	// "Hi" (len 2) then "Go" (len 2): [2,'H','i',2,'G','o'], size=6
	ints := []int64{2, 'H', 'i', 2, 'G', 'o'}
	table, err := DecodeStringTable(ints, 6)
	if err != nil {
		t.Fatalf("DecodeStringTable: %v", err)
	}
	if len(table) != 3 || table[0] != "" || table[1] != "Hi" || table[2] != "Go" {
		t.Fatalf("table = %#v", table)
	}
}

func TestResolveZeroIndexIsAbsent(t *testing.T) {
	table, err := DecodeStringTable([]int64{1, 'x'}, 2)
	if err != nil {
		t.Fatalf("DecodeStringTable: %v", err)
	}
	if s, ok := Resolve(table, 0); ok || s != "" {
		t.Fatalf("Resolve(0) = (%q, %v), want (\"\", false)", s, ok)
	}
	if s, ok := Resolve(table, 1); !ok || s != "x" {
		t.Fatalf("Resolve(1) = (%q, %v), want (\"x\", true)", s, ok)
	}
	if _, ok := Resolve(table, 99); ok {
		t.Fatalf("Resolve(99) should be out of range")
	}
}

func TestDecodeStringTableOverrun(t *testing.T) {
	if _, err := DecodeStringTable([]int64{5, 'a'}, 2); err == nil {
		t.Fatalf("expected error for entry length overrunning declared size")
	}
}
