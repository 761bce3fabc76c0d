package server

import (
	"sync"

	"github.com/fwftable/fwftable/internal/common"
	"github.com/fwftable/fwftable/internal/fwf"
)

// FieldSpecDTO is the wire shape of one field description in an open
// request: any two of Start/Len/Stop must be set, matching §6's FileSpec
// contract.
type FieldSpecDTO struct {
	Name  string `json:"name"`
	Start *int   `json:"start,omitempty"`
	Len   *int   `json:"len,omitempty"`
	Stop  *int   `json:"stop,omitempty"`
}

// OpenParams describes a file well enough to derive its geometry and field
// table: the data width (W-N) is supplied directly rather than summed from
// fields, since fields need not tile the record (§6: "W is externally
// specified by field widths + N").
type OpenParams struct {
	Path         string         `json:"path"`
	DataWidth    int            `json:"data_width"`
	NewlineBytes int            `json:"newline_bytes"`
	Fields       []FieldSpecDTO `json:"fields"`
}

// Handle is an opened FWF file: its mapping, derived geometry and resolved
// field table. Handles are cached by path in a Registry so repeated
// requests against the same file don't remap or re-derive geometry.
type Handle struct {
	Path   string
	Map    *fwf.FileMap
	Geom   fwf.RecordGeometry
	Fields *fwf.FieldTable
}

// Registry caches opened Handles by path and named indexes built against
// them, so build_*_index and lookup can be split across separate requests.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*Handle
	indexes map[string]any // *index.UniqueIndex | *index.MultiIndex
	nextID  int64
}

// NewRegistry creates an empty handle/index registry, one per server
// instance.
func NewRegistry() *Registry {
	return &Registry{
		handles: make(map[string]*Handle),
		indexes: make(map[string]any),
	}
}

// Open returns the cached Handle for p.Path, opening and deriving it on
// first use. Subsequent Opens of the same path ignore p's field/geometry
// parameters and return the cached Handle, matching geometry's "pure
// function of handle" contract (§6).
func (r *Registry) Open(p OpenParams) (*Handle, error) {
	r.mu.RLock()
	if h, ok := r.handles[p.Path]; ok {
		r.mu.RUnlock()
		return h, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[p.Path]; ok {
		return h, nil
	}

	fm, err := fwf.OpenFileMap(p.Path)
	if err != nil {
		return nil, err
	}

	geom, err := fwf.DeriveGeometry(fm.Bytes(), p.DataWidth, p.NewlineBytes, nil)
	if err != nil {
		_ = fm.Close()
		return nil, err
	}

	fields := make([]fwf.FieldSpec, 0, len(p.Fields))
	for _, f := range p.Fields {
		fields = append(fields, fwf.FieldSpec{Name: f.Name, Start: f.Start, Len: f.Len, Stop: f.Stop})
	}
	ft, err := fwf.BuildFieldTable(fwf.FileSpec{Fields: fields, NewlineBytes: p.NewlineBytes}, geom.DataWidth())
	if err != nil {
		_ = fm.Close()
		return nil, err
	}

	h := &Handle{Path: p.Path, Map: fm, Geom: geom, Fields: ft}
	r.handles[p.Path] = h
	return h, nil
}

// resolveField looks up a field by name, or falls back to an explicit
// (start, length) pair supplied directly in the request.
func (h *Handle) resolveField(name string, start, length *int) (int, int, error) {
	if name != "" {
		f, ok := h.Fields.Lookup(name)
		if !ok {
			return 0, 0, common.New(common.KindConfig, "unknown field "+name)
		}
		return f.Start, f.Len, nil
	}
	if start == nil || length == nil {
		return 0, 0, common.New(common.KindConfig, "field name or (start, length) required")
	}
	return *start, *length, nil
}

// storeIndex assigns a fresh index_id to idx and caches it for later
// lookup requests.
func (r *Registry) storeIndex(idx any) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := indexIDPrefix(idx) + itoa(r.nextID)
	r.indexes[id] = idx
	return id
}

func (r *Registry) index(id string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.indexes[id]
	return idx, ok
}

// Close releases every mapped file held by the registry. Indexes are
// plain in-memory structures and need no explicit release.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for _, h := range r.handles {
		if err := h.Map.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
