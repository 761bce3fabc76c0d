package fwf

import "github.com/fwftable/fwftable/internal/common"

// Field is a single named byte range within a record: raw value semantics
// only, no encoding interpretation, no trimming, no case folding (§3).
type Field struct {
	Name  string
	Start int
	Len   int
}

// FieldSpec is the caller-supplied description of one field: any two of
// Start/Len/Stop determine the third, per §6's FileSpec contract.
type FieldSpec struct {
	Name  string
	Start *int
	Len   *int
	Stop  *int // exclusive end, i.e. Start+Len
}

// resolve fills in the field's (start, len) from whichever two of
// start/len/stop were supplied.
func (fs FieldSpec) resolve() (Field, error) {
	switch {
	case fs.Start != nil && fs.Len != nil:
		return Field{Name: fs.Name, Start: *fs.Start, Len: *fs.Len}, nil
	case fs.Start != nil && fs.Stop != nil:
		return Field{Name: fs.Name, Start: *fs.Start, Len: *fs.Stop - *fs.Start}, nil
	case fs.Len != nil && fs.Stop != nil:
		return Field{Name: fs.Name, Start: *fs.Stop - *fs.Len, Len: *fs.Len}, nil
	default:
		return Field{}, common.New(common.KindConfig, "field "+fs.Name+" needs two of start/len/stop")
	}
}

// FileSpec is the language-neutral description of a fixed-width-field
// file's layout, per §6.
type FileSpec struct {
	Fields       []FieldSpec
	NewlineBytes int
	Comment      CommentPredicate
}

// FieldTable resolves field names to (start, len) byte ranges in constant
// time. Reserved pseudo-fields (_lineno, _file, _line) are never part of a
// FieldTable; sinks materialize them on demand instead (§4.3).
type FieldTable struct {
	byName map[string]Field
	order  []Field
}

var reservedNames = map[string]bool{
	"_lineno": true,
	"_file":   true,
	"_line":   true,
}

// BuildFieldTable resolves a FileSpec's fields and validates that every
// field lies entirely inside the record's data width (W-N). Duplicate
// field names are a ConfigError. Non-overlap is not validated (§3 does not
// require it).
func BuildFieldTable(spec FileSpec, dataWidth int) (*FieldTable, error) {
	ft := &FieldTable{byName: make(map[string]Field, len(spec.Fields))}

	for _, fs := range spec.Fields {
		if reservedNames[fs.Name] {
			return nil, common.New(common.KindConfig, "field name "+fs.Name+" is reserved")
		}
		f, err := fs.resolve()
		if err != nil {
			return nil, err
		}
		if f.Start < 0 || f.Len < 0 || f.Start+f.Len > dataWidth {
			return nil, common.New(common.KindConfig, "field "+f.Name+" extends outside record")
		}
		if _, dup := ft.byName[f.Name]; dup {
			return nil, common.New(common.KindConfig, "duplicate field name "+f.Name)
		}
		ft.byName[f.Name] = f
		ft.order = append(ft.order, f)
	}

	return ft, nil
}

// Lookup returns the field with the given name.
func (ft *FieldTable) Lookup(name string) (Field, bool) {
	f, ok := ft.byName[name]
	return f, ok
}

// Fields returns all fields in declaration order.
func (ft *FieldTable) Fields() []Field {
	return ft.order
}
