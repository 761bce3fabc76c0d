// Package packedindex implements the memory-optimized non-unique index of
// §4.8/§4.10 (C8): a hash map of key -> head slot, with three parallel
// int32 arrays holding line numbers and chain links. This is the
// structure-of-arrays alternative to a generic map[key][]int64 used when a
// full-table key set (100M+ records) must fit in memory.
package packedindex

import "github.com/fwftable/fwftable/internal/common"

// state is the BUILDING -> FINALIZED state machine of §4.10.
type state int

const (
	building state = iota
	finalized
)

// PackedMultiIndex is the four-array representation of §3: head map plus
// line_no/next/tail parallel arrays. Slot 0 is reserved ("empty").
type PackedMultiIndex struct {
	head   map[any]int32
	lineNo []int32
	next   []int32
	tail   []int32 // dropped (nilled) on Finalize
	last   int32
	cap    int32
	state  state
}

// New pre-sizes the structure for up to capacity entries (typically R+1,
// the record count of the file plus the reserved slot).
func New(capacity int) *PackedMultiIndex {
	cap32 := int32(capacity) + 1
	return &PackedMultiIndex{
		head:   make(map[any]int32, capacity),
		lineNo: make([]int32, cap32),
		next:   make([]int32, cap32),
		tail:   make([]int32, cap32),
		cap:    cap32,
	}
}

func keyOf(bytesKey string, isInt bool, intKey int64) any {
	if isInt {
		return intKey
	}
	return bytesKey
}

// InsertBytes inserts a bytes-keyed (key, lineNo) pair, per §4.8's Insert
// algorithm. Fails with StateError if the index is already finalized or if
// capacity is exhausted.
func (p *PackedMultiIndex) InsertBytes(key string, lineNo int32) error {
	return p.insert(keyOf(key, false, 0), lineNo)
}

// InsertInt inserts an int-keyed (key, lineNo) pair.
func (p *PackedMultiIndex) InsertInt(key int64, lineNo int32) error {
	return p.insert(keyOf("", true, key), lineNo)
}

func (p *PackedMultiIndex) insert(mapKey any, lineNo int32) error {
	if p.state == finalized {
		return common.New(common.KindState, "insert into finalized PackedMultiIndex")
	}
	if p.last+1 >= p.cap {
		return common.New(common.KindState, "PackedMultiIndex capacity exceeded")
	}

	p.last++
	s := p.last
	p.lineNo[s] = lineNo
	p.next[s] = 0

	if h, ok := p.head[mapKey]; !ok {
		p.head[mapKey] = s
		p.tail[s] = s
	} else {
		t := p.tail[h]
		p.next[t] = s
		p.tail[h] = s
	}
	return nil
}

// LookupBytes returns the ascending-insertion-order line numbers for a
// bytes key, or (nil, false) on a miss — never an error (§7).
func (p *PackedMultiIndex) LookupBytes(key string) ([]int32, bool) {
	return p.lookup(keyOf(key, false, 0))
}

// LookupInt returns the ascending-insertion-order line numbers for an int
// key, or (nil, false) on a miss.
func (p *PackedMultiIndex) LookupInt(key int64) ([]int32, bool) {
	return p.lookup(keyOf("", true, key))
}

func (p *PackedMultiIndex) lookup(mapKey any) ([]int32, bool) {
	h, ok := p.head[mapKey]
	if !ok {
		return nil, false
	}
	var out []int32
	for s := h; s != 0; s = p.next[s] {
		out = append(out, p.lineNo[s])
	}
	return out, true
}

// IsUnique reports whether key maps to exactly one line number: per the
// Open Question resolution in §9, this means next[head[k]] == 0. A missing
// key reports false (there is nothing to be unique about).
func (p *PackedMultiIndex) IsUnique(mapKeyLookup func() (int32, bool)) bool {
	h, ok := mapKeyLookup()
	if !ok {
		return false
	}
	return p.next[h] == 0
}

// IsUniqueBytes is the bytes-keyed convenience wrapper for IsUnique.
func (p *PackedMultiIndex) IsUniqueBytes(key string) bool {
	h, ok := p.head[keyOf(key, false, 0)]
	if !ok {
		return false
	}
	return p.next[h] == 0
}

// IsUniqueInt is the int-keyed convenience wrapper for IsUnique.
func (p *PackedMultiIndex) IsUniqueInt(key int64) bool {
	h, ok := p.head[keyOf("", true, key)]
	if !ok {
		return false
	}
	return p.next[h] == 0
}

// Finalize drops the tail array (only needed for O(1) append during
// BUILDING) and transitions to FINALIZED, making the index read-only.
func (p *PackedMultiIndex) Finalize() {
	p.tail = nil
	p.state = finalized
}

// Len returns the number of distinct keys held.
func (p *PackedMultiIndex) Len() int { return len(p.head) }

// Slots returns the number of used slots (the `last` counter of §4.8).
func (p *PackedMultiIndex) Slots() int32 { return p.last }

// HeadEntry pairs a raw map key with its head slot, for persistence (§6).
type HeadEntry struct {
	RawKey any // string (bytes key) or int64 (int key)
	Head   int32
}

// Heads returns every (key, head slot) pair, in unspecified order. The
// persisted format sorts them before writing.
func (p *PackedMultiIndex) Heads() []HeadEntry {
	out := make([]HeadEntry, 0, len(p.head))
	for k, h := range p.head {
		out = append(out, HeadEntry{RawKey: k, Head: h})
	}
	return out
}

// LineNos returns the raw line_no array, slots [0, Slots()], slot 0 being
// the reserved sentinel. Read-only: callers must not mutate the returned
// slice.
func (p *PackedMultiIndex) LineNos() []int32 { return p.lineNo[:p.last+1] }

// Next returns the raw next-pointer array, slots [0, Slots()], slot 0 being
// the reserved sentinel.
func (p *PackedMultiIndex) Next() []int32 { return p.next[:p.last+1] }

// FromArrays reconstructs a finalized PackedMultiIndex directly from a
// previously persisted head map and line_no/next arrays (§6's "reloadable
// without rescanning"). The arrays are taken by reference, not copied.
func FromArrays(heads []HeadEntry, lineNo, next []int32) *PackedMultiIndex {
	p := &PackedMultiIndex{
		head:   make(map[any]int32, len(heads)),
		lineNo: lineNo,
		next:   next,
		last:   int32(len(lineNo)) - 1,
		cap:    int32(len(lineNo)),
		state:  finalized,
	}
	for _, h := range heads {
		p.head[h.RawKey] = h.Head
	}
	return p
}
