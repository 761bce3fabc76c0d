package persist

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/fwftable/fwftable/internal/common"
	"github.com/fwftable/fwftable/internal/fwf"
	"github.com/fwftable/fwftable/internal/index"
)

// UniqueReader answers point lookups against a persisted unique index
// without loading the whole file into memory: the footer and compressed
// blocks stay mmap-backed, and decompressed blocks are cached by a
// byte-budget-bounded BlockCache, grounded on the teacher's mmap-based
// BlockReader (NewBlockReaderMmap in cidx.go).
type UniqueReader struct {
	path   string
	fm     *fwf.FileMap
	footer Footer
	cache  *BlockCache
	bloom  *BloomFilter // optional, nil if no sidecar was loaded
}

// OpenUniqueReader mmaps path and parses its footer. cacheBytes bounds the
// decompressed-block cache; bloomPath, if non-empty, loads a sidecar bloom
// filter for fast negative pre-checks.
func OpenUniqueReader(path string, cacheBytes int64, bloomPath string) (*UniqueReader, error) {
	fm, err := fwf.OpenFileMap(path)
	if err != nil {
		return nil, err
	}
	footer, _, err := readFooter(fm.Bytes())
	if err != nil {
		_ = fm.Close()
		return nil, err
	}
	if footer.Kind != KindUnique {
		_ = fm.Close()
		return nil, common.New(common.KindConfig, "index file is not a unique index")
	}

	r := &UniqueReader{path: path, fm: fm, footer: footer, cache: NewBlockCache(cacheBytes)}
	if bloomPath != "" {
		bf, err := ReadBloomFilter(bloomPath)
		if err != nil {
			_ = fm.Close()
			return nil, err
		}
		r.bloom = bf
	}
	return r, nil
}

// Close releases the underlying mapping.
func (r *UniqueReader) Close() error { return r.fm.Close() }

// Lookup finds key's coordinate. Returns (zero, false) on a miss — never
// an error (§7): both "key never existed" and "bloom filter ruled it out"
// collapse to the same NotFound outcome.
func (r *UniqueReader) Lookup(key index.Key) (index.Coordinate, bool, error) {
	var rawKey any
	if key.IsInt() {
		rawKey = key.IntValue()
	} else {
		rawKey = string(key.RawBytes())
	}
	_, keyBytes := EncodeKey(rawKey)

	if r.bloom != nil && !r.bloom.MightContain(keyBytes) {
		return index.Coordinate{}, false, nil
	}

	blocks := r.footer.Blocks
	// Blocks are sorted by StartKey (WriteUniqueIndex's invariant): find
	// the last block whose StartKey <= key.
	i := sort.Search(len(blocks), func(i int) bool {
		return bytes.Compare(blocks[i].StartKey, keyBytes) > 0
	})
	if i == 0 {
		return index.Coordinate{}, false, nil
	}
	meta := blocks[i-1]

	entries, err := r.readBlock(meta)
	if err != nil {
		return index.Coordinate{}, false, err
	}
	// A merged file may hold several records for one key, in delivery
	// order; the last match wins, as with index.UniqueIndex.Insert.
	var (
		coord index.Coordinate
		found bool
	)
	for _, e := range entries {
		if bytes.Equal(rawKeyBytes(e.rawKey), keyBytes) {
			coord, found = e.coord, true
		}
	}
	return coord, found, nil
}

func (r *UniqueReader) readBlock(meta BlockMeta) ([]uniqueEntry, error) {
	cacheKey := fmt.Sprintf("%s:%d", r.path, meta.Offset)
	if raw, ok := r.cache.Get(cacheKey); ok {
		return decodeUniqueBlock(raw)
	}

	end := meta.Offset + meta.Length
	compData, err := r.fm.Slice(int(meta.Offset), int(end))
	if err != nil {
		return nil, err
	}
	raw, err := DecompressBlock(compData, BlockTargetSize*2)
	if err != nil {
		return nil, err
	}
	r.cache.Put(cacheKey, raw)
	return decodeUniqueBlock(raw)
}
