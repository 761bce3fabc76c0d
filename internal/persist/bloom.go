package persist

import (
	"encoding/binary"
	"hash/crc32"
	"math"
	"os"

	"github.com/fwftable/fwftable/internal/common"
)

// BloomFilter is an optional negative-lookup accelerator sidecar for a
// persisted index: "definitely not present" in O(1), never a source of
// truth for NotFound (§7's NotFound is still decided by an actual index
// miss). Grounded on the teacher's BloomFilter (bloom.go), generalized from
// string keys to raw field bytes.
type BloomFilter struct {
	bits      []byte
	size      int
	hashCount int
	count     int
}

// NewBloomFilter sizes a filter for n expected elements at fpRate false
// positive rate, using the standard m = -n*ln(p)/ln(2)^2, k = (m/n)*ln(2)
// formulas (same as the teacher, using the real math.Log rather than the
// teacher's hand-rolled approximation — nothing in this module needs to
// avoid the stdlib math package the way the hot scan loop avoids
// allocation).
func NewBloomFilter(n int, fpRate float64) *BloomFilter {
	if n < 1 {
		n = 1
	}
	if fpRate <= 0 {
		fpRate = 0.01
	}

	m := int(-float64(n) * math.Log(fpRate) / (math.Ln2 * math.Ln2))
	if m < 1024 {
		m = 1024
	}
	m = ((m + 7) / 8) * 8

	k := int(float64(m) / float64(n) * math.Ln2)
	if k < 1 {
		k = 1
	}
	if k > 10 {
		k = 10
	}

	return &BloomFilter{bits: make([]byte, m/8), size: m, hashCount: k}
}

func (bf *BloomFilter) positions(key []byte) (h1, h2 uint32) {
	h1 = crc32.ChecksumIEEE(key)
	var buf [256]byte
	reversed := appendReversed(buf[:0], key)
	reversed = append(reversed, "salt"...)
	h2 = crc32.ChecksumIEEE(reversed)
	return
}

// Add inserts key into the filter.
func (bf *BloomFilter) Add(key []byte) {
	h1, h2 := bf.positions(key)
	for i := 0; i < bf.hashCount; i++ {
		pos := bloomSlot(h1, h2, i, bf.size)
		bf.bits[pos/8] |= 1 << (pos % 8)
	}
	bf.count++
}

// MightContain returns false if key is definitely absent, true if it might
// be present.
func (bf *BloomFilter) MightContain(key []byte) bool {
	h1, h2 := bf.positions(key)
	for i := 0; i < bf.hashCount; i++ {
		pos := bloomSlot(h1, h2, i, bf.size)
		if bf.bits[pos/8]&(1<<(pos%8)) == 0 {
			return false
		}
	}
	return true
}

func bloomSlot(h1, h2 uint32, i, size int) int {
	combined := int(h1) + i*int(h2)
	if combined < 0 {
		combined = -combined
	}
	return combined % size
}

func appendReversed(dst, s []byte) []byte {
	start := len(dst)
	dst = append(dst, s...)
	for i, j := start, len(dst)-1; i < j; i, j = i+1, j-1 {
		dst[i], dst[j] = dst[j], dst[i]
	}
	return dst
}

// Serialize encodes the filter as a 24-byte header (size, hashCount, count,
// all big-endian int64) followed by the bit array.
func (bf *BloomFilter) Serialize() []byte {
	header := make([]byte, 24)
	binary.BigEndian.PutUint64(header[0:8], uint64(bf.size))
	binary.BigEndian.PutUint64(header[8:16], uint64(bf.hashCount))
	binary.BigEndian.PutUint64(header[16:24], uint64(bf.count))
	return append(header, bf.bits...)
}

// DeserializeBloom reconstructs a filter from Serialize's output.
func DeserializeBloom(data []byte) (*BloomFilter, error) {
	if len(data) < 24 {
		return nil, common.New(common.KindIO, "bloom filter data too short")
	}
	return &BloomFilter{
		size:      int(binary.BigEndian.Uint64(data[0:8])),
		hashCount: int(binary.BigEndian.Uint64(data[8:16])),
		count:     int(binary.BigEndian.Uint64(data[16:24])),
		bits:      data[24:],
	}, nil
}

// WriteBloomFilter writes bf's serialized form to path.
func WriteBloomFilter(path string, bf *BloomFilter) error {
	if err := os.WriteFile(path, bf.Serialize(), 0o644); err != nil {
		return common.Wrap(common.KindIO, "write bloom filter", err)
	}
	return nil
}

// ReadBloomFilter loads a bloom filter previously written by
// WriteBloomFilter.
func ReadBloomFilter(path string) (*BloomFilter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.Wrap(common.KindIO, "read bloom filter", err)
	}
	return DeserializeBloom(data)
}
