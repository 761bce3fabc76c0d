package main

import "testing"

func TestMultiFlagAccumulates(t *testing.T) {
	var m multiFlag
	if err := m.Set("0:lower:true:A"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := m.Set("5:upper:false:Z"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(m) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(m))
	}
}

func TestBuildFilterSetParsesValidSpec(t *testing.T) {
	ff := &fileFlags{filters: multiFlag{"2:lower:true:AB"}}
	fs, err := ff.buildFilterSet(10)
	if err != nil {
		t.Fatalf("buildFilterSet: %v", err)
	}
	if fs.Len() != 1 {
		t.Fatalf("expected 1 predicate, got %d", fs.Len())
	}
}

func TestBuildFilterSetRejectsMalformedSpec(t *testing.T) {
	ff := &fileFlags{filters: multiFlag{"not-enough-parts"}}
	if _, err := ff.buildFilterSet(10); err == nil {
		t.Fatal("expected an error for a malformed --filter value")
	}
}

func TestBuildFilterSetRejectsBadBound(t *testing.T) {
	ff := &fileFlags{filters: multiFlag{"0:sideways:true:A"}}
	if _, err := ff.buildFilterSet(10); err == nil {
		t.Fatal("expected an error for an unknown bound")
	}
}

func TestBuildFilterSetRejectsOutOfRangePredicate(t *testing.T) {
	ff := &fileFlags{filters: multiFlag{"8:lower:true:ABCD"}}
	if _, err := ff.buildFilterSet(10); err == nil {
		t.Fatal("expected an error for a predicate extending past the record")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	empty := ""
	ff := &fileFlags{path: &empty}
	if _, _, err := ff.open(); err == nil {
		t.Fatal("expected an error when --path is empty")
	}
}
