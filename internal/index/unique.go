package index

// UniqueIndex maps a raw key to a single record coordinate. On repeated
// key, the last insertion (in scan delivery order) wins (§3, property 4).
type UniqueIndex struct {
	m map[any]Coordinate
}

// NewUniqueIndex creates an empty UniqueIndex pre-sized for capacity
// distinct keys.
func NewUniqueIndex(capacity int) *UniqueIndex {
	return &UniqueIndex{m: make(map[any]Coordinate, capacity)}
}

// Insert records key -> coord, overwriting any prior coordinate for key.
func (u *UniqueIndex) Insert(key Key, coord Coordinate) {
	u.m[key.mapKey()] = coord
}

// Lookup returns the coordinate for key. A miss is NotFound: it returns
// (zero value, false), never an error (§7).
func (u *UniqueIndex) Lookup(key Key) (Coordinate, bool) {
	c, ok := u.m[key.mapKey()]
	return c, ok
}

// Len returns the number of distinct keys held.
func (u *UniqueIndex) Len() int { return len(u.m) }

// Entry pairs a raw map key with its coordinate, for persistence (§6).
type Entry struct {
	RawKey any // string (bytes key) or int64 (int key), matching Key.mapKey()
	Coord  Coordinate
}

// Entries returns every (key, coordinate) pair, in unspecified order. The
// persisted format sorts them before writing, so iteration order here
// doesn't matter.
func (u *UniqueIndex) Entries() []Entry {
	out := make([]Entry, 0, len(u.m))
	for k, c := range u.m {
		out = append(out, Entry{RawKey: k, Coord: c})
	}
	return out
}

// UniqueIndexSink feeds a ScanLoop's passing records into a UniqueIndex,
// keyed either by raw field bytes or a parsed integer (§4.6).
type UniqueIndexSink struct {
	start, length int
	asInt         bool
	fileID        int
	index         *UniqueIndex
}

// NewUniqueIndexSink builds a sink over field [start,start+length) of every
// passing record, tagging coordinates with fileID (0 for single-file use).
func NewUniqueIndexSink(start, length, capacity, fileID int, asInt bool) *UniqueIndexSink {
	return NewUniqueIndexSinkInto(NewUniqueIndex(capacity), start, length, fileID, asInt)
}

// NewUniqueIndexSinkInto builds a sink that writes into an already-existing
// UniqueIndex rather than allocating a fresh one, so a MultiFile view can
// fold several files' records into one shared index while tagging each
// with its own fileID (§4.9).
func NewUniqueIndexSinkInto(index *UniqueIndex, start, length, fileID int, asInt bool) *UniqueIndexSink {
	return &UniqueIndexSink{
		start: start, length: length, asInt: asInt, fileID: fileID,
		index: index,
	}
}

func (s *UniqueIndexSink) Accept(lineNo int64, record []byte) error {
	field := record[s.start : s.start+s.length]
	key, err := fieldKey(field, s.asInt, lineNo)
	if err != nil {
		return err
	}
	s.index.Insert(key, Coordinate{FileID: s.fileID, LineNo: lineNo})
	return nil
}

func (s *UniqueIndexSink) Finalize() (any, error) {
	return s.index, nil
}
