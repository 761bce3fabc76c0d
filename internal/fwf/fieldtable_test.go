package fwf

import "testing"

func intp(v int) *int { return &v }

func TestBuildFieldTableResolvesStartLenAndStop(t *testing.T) {
	spec := FileSpec{Fields: []FieldSpec{
		{Name: "id", Start: intp(0), Len: intp(4)},
		{Name: "name", Start: intp(4), Stop: intp(10)},
		{Name: "flag", Len: intp(1), Stop: intp(11)},
	}}
	ft, err := BuildFieldTable(spec, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	name, ok := ft.Lookup("name")
	if !ok || name.Start != 4 || name.Len != 6 {
		t.Fatalf("unexpected name field: %+v ok=%v", name, ok)
	}
	flag, ok := ft.Lookup("flag")
	if !ok || flag.Start != 10 || flag.Len != 1 {
		t.Fatalf("unexpected flag field: %+v ok=%v", flag, ok)
	}
	if len(ft.Fields()) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(ft.Fields()))
	}
}

func TestBuildFieldTableRejectsUnderspecifiedField(t *testing.T) {
	spec := FileSpec{Fields: []FieldSpec{{Name: "bad", Start: intp(0)}}}
	if _, err := BuildFieldTable(spec, 10); err == nil {
		t.Fatal("expected an error for a field missing two of start/len/stop")
	}
}

func TestBuildFieldTableRejectsFieldPastRecordEnd(t *testing.T) {
	spec := FileSpec{Fields: []FieldSpec{{Name: "overrun", Start: intp(8), Len: intp(4)}}}
	if _, err := BuildFieldTable(spec, 10); err == nil {
		t.Fatal("expected an error for a field extending past the record")
	}
}

func TestBuildFieldTableRejectsDuplicateNames(t *testing.T) {
	spec := FileSpec{Fields: []FieldSpec{
		{Name: "id", Start: intp(0), Len: intp(4)},
		{Name: "id", Start: intp(4), Len: intp(4)},
	}}
	if _, err := BuildFieldTable(spec, 10); err == nil {
		t.Fatal("expected an error for a duplicate field name")
	}
}

func TestBuildFieldTableRejectsReservedNames(t *testing.T) {
	spec := FileSpec{Fields: []FieldSpec{{Name: "_lineno", Start: intp(0), Len: intp(4)}}}
	if _, err := BuildFieldTable(spec, 10); err == nil {
		t.Fatal("expected an error for a reserved field name")
	}
}
