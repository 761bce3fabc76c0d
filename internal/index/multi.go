package index

// MultiIndex maps a raw key to the ordered sequence of coordinates of every
// record bearing that key, insertion order preserved (§3, property 5).
type MultiIndex struct {
	m map[any][]Coordinate
}

// NewMultiIndex creates an empty MultiIndex pre-sized for capacity distinct
// keys.
func NewMultiIndex(capacity int) *MultiIndex {
	return &MultiIndex{m: make(map[any][]Coordinate, capacity)}
}

// Insert appends coord to key's sequence.
func (m *MultiIndex) Insert(key Key, coord Coordinate) {
	k := key.mapKey()
	m.m[k] = append(m.m[k], coord)
}

// Lookup returns the coordinate sequence for key, or (nil, false) on a
// miss — never an error (§7).
func (m *MultiIndex) Lookup(key Key) ([]Coordinate, bool) {
	c, ok := m.m[key.mapKey()]
	return c, ok
}

// Len returns the number of distinct keys held.
func (m *MultiIndex) Len() int { return len(m.m) }

// MultiIndexSink feeds a ScanLoop's passing records into a MultiIndex,
// keyed either by raw field bytes or a parsed integer (§4.6).
type MultiIndexSink struct {
	start, length int
	asInt         bool
	fileID        int
	index         *MultiIndex
}

// NewMultiIndexSink builds a sink over field [start,start+length) of every
// passing record, tagging coordinates with fileID.
func NewMultiIndexSink(start, length, capacity, fileID int, asInt bool) *MultiIndexSink {
	return NewMultiIndexSinkInto(NewMultiIndex(capacity), start, length, fileID, asInt)
}

// NewMultiIndexSinkInto builds a sink that writes into an already-existing
// MultiIndex, so a MultiFile view can fold several files into one shared
// index while tagging each with its own fileID (§4.9).
func NewMultiIndexSinkInto(index *MultiIndex, start, length, fileID int, asInt bool) *MultiIndexSink {
	return &MultiIndexSink{
		start: start, length: length, asInt: asInt, fileID: fileID,
		index: index,
	}
}

func (s *MultiIndexSink) Accept(lineNo int64, record []byte) error {
	field := record[s.start : s.start+s.length]
	key, err := fieldKey(field, s.asInt, lineNo)
	if err != nil {
		return err
	}
	s.index.Insert(key, Coordinate{FileID: s.fileID, LineNo: lineNo})
	return nil
}

func (s *MultiIndexSink) Finalize() (any, error) {
	return s.index, nil
}
