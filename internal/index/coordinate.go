// Package index implements the UniqueIndex and MultiIndex dictionaries of
// §3/§4.6 (C7): key -> record coordinate(s).
package index

// Coordinate is a (file_id, line_no) pair, a stable physical address for a
// record (§3).
type Coordinate struct {
	FileID int
	LineNo int64
}

// Key is a raw index key: either the field's raw bytes (as a string, since
// Go map keys must be comparable) or a parsed integer. Exactly one of the
// two forms is used per index, decided at construction time.
type Key struct {
	Bytes string
	Int   int64
	isInt bool
}

// BytesKey constructs a byte-keyed Key. The caller's slice is copied since
// sinks treat field bytes as borrowed during accept (§4.6).
func BytesKey(b []byte) Key { return Key{Bytes: string(b)} }

// IntKey constructs an integer-keyed Key.
func IntKey(v int64) Key { return Key{Int: v, isInt: true} }

// mapKey returns the comparable value actually used as the map key,
// disambiguating the bytes/int key spaces.
func (k Key) mapKey() any {
	if k.isInt {
		return k.Int
	}
	return k.Bytes
}

// IsInt reports whether k is an integer-keyed Key, for callers (notably
// internal/persist) that need to serialize the key's underlying form.
func (k Key) IsInt() bool { return k.isInt }

// RawBytes returns the raw key bytes of a bytes-keyed Key. Only meaningful
// when IsInt() is false.
func (k Key) RawBytes() []byte { return []byte(k.Bytes) }

// IntValue returns the integer value of an int-keyed Key. Only meaningful
// when IsInt() is true.
func (k Key) IntValue() int64 { return k.Int }
