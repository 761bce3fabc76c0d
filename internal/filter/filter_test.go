package filter

import "testing"

func TestFilterSetAllPredicatesMustPass(t *testing.T) {
	fs := NewFilterSet()
	if err := fs.Add(0, []byte("10"), Lower, true, 10); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := fs.Add(0, []byte("20"), Upper, true, 10); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if !fs.Eval([]byte("15XXXXXXXX")) {
		t.Fatal("expected 15 to pass [10,20]")
	}
	if fs.Eval([]byte("05XXXXXXXX")) {
		t.Fatal("expected 05 to fail the lower bound")
	}
	if fs.Eval([]byte("25XXXXXXXX")) {
		t.Fatal("expected 25 to fail the upper bound")
	}
}

func TestFilterBoundInclusivity(t *testing.T) {
	fs := NewFilterSet()
	if err := fs.Add(0, []byte("10"), Lower, false, 10); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if fs.Eval([]byte("10XXXXXXXX")) {
		t.Fatal("expected exclusive lower bound to reject the boundary value")
	}
	if !fs.Eval([]byte("11XXXXXXXX")) {
		t.Fatal("expected exclusive lower bound to accept a value above the boundary")
	}
}

func TestFilterSentinelSpaceAlwaysPasses(t *testing.T) {
	fs := NewFilterSet()
	if err := fs.Add(0, []byte("10"), Lower, true, 10); err != nil {
		t.Fatalf("Add: %v", err)
	}
	// Last byte of the compared field is a space: the predicate is
	// trivially satisfied regardless of the rest of the comparison.
	if !fs.Eval([]byte("0 XXXXXXXX")) {
		t.Fatal("expected the space-sentinel rule to make the predicate pass")
	}
}

func TestFilterSetRejectsOutOfRangePredicate(t *testing.T) {
	fs := NewFilterSet()
	if err := fs.Add(8, []byte("ABCD"), Lower, true, 10); err == nil {
		t.Fatal("expected an error for a predicate extending past the record")
	}
}

func TestFilterSetEmptyMatchesEverything(t *testing.T) {
	fs := NewFilterSet()
	if !fs.Eval([]byte("anything")) {
		t.Fatal("expected an empty FilterSet to pass every record")
	}
	if fs.Len() != 0 {
		t.Fatalf("expected length 0, got %d", fs.Len())
	}
}
