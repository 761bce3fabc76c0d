package persist

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"sort"

	"github.com/fwftable/fwftable/internal/common"
	"github.com/fwftable/fwftable/internal/index"
)

// uniqueRecordOverhead is the fixed-size part of a serialized unique-index
// record: KeyTag(1) + keyLen(4) + fileID(4) + lineNo(8).
const uniqueRecordOverhead = 1 + 4 + 4 + 8

// WriteUniqueIndex persists idx's key->coordinate map to w in the block
// format of format.go, keys sorted ascending so the footer's StartKey
// entries support binary search on read.
func WriteUniqueIndex(w io.Writer, idx *index.UniqueIndex) error {
	entries := idx.Entries()
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(rawKeyBytes(entries[i].RawKey), rawKeyBytes(entries[j].RawKey)) < 0
	})

	if _, err := w.Write([]byte(Magic)); err != nil {
		return common.Wrap(common.KindIO, "write magic", err)
	}

	var footer Footer
	footer.Kind = KindUnique
	offset := int64(len(Magic))

	var block bytes.Buffer
	blockStartIdx := 0
	flush := func(upto int) error {
		if upto == blockStartIdx {
			return nil
		}
		compressed, err := CompressBlock(block.Bytes())
		if err != nil {
			return err
		}
		tag, key := EncodeKey(entries[blockStartIdx].RawKey)
		meta := BlockMeta{
			StartKeyTag: tag,
			StartKey:    key,
			Offset:      offset,
			Length:      int64(len(compressed)),
			RecordCount: int64(upto - blockStartIdx),
			IsDistinct:  upto-blockStartIdx == 1,
		}
		footer.Blocks = append(footer.Blocks, meta)
		n, err := w.Write(compressed)
		if err != nil {
			return common.Wrap(common.KindIO, "write block", err)
		}
		offset += int64(n)
		block.Reset()
		blockStartIdx = upto
		return nil
	}

	for i, e := range entries {
		tag, keyBytes := EncodeKey(e.RawKey)
		rec := make([]byte, uniqueRecordOverhead+len(keyBytes))
		rec[0] = byte(tag)
		binary.BigEndian.PutUint32(rec[1:5], uint32(len(keyBytes)))
		binary.BigEndian.PutUint32(rec[5:9], uint32(int32(e.Coord.FileID)))
		binary.BigEndian.PutUint64(rec[9:17], uint64(e.Coord.LineNo))
		copy(rec[uniqueRecordOverhead:], keyBytes)
		block.Write(rec)

		if block.Len() >= BlockTargetSize {
			if err := flush(i + 1); err != nil {
				return err
			}
		}
	}
	if err := flush(len(entries)); err != nil {
		return err
	}

	return WriteFooter(w, footer)
}

func rawKeyBytes(rawKey any) []byte {
	_, b := EncodeKey(rawKey)
	return b
}

// uniqueEntry is one decoded on-disk record.
type uniqueEntry struct {
	rawKey any
	coord  index.Coordinate
}

func decodeUniqueBlock(raw []byte) ([]uniqueEntry, error) {
	var out []uniqueEntry
	p := 0
	for p < len(raw) {
		if p+uniqueRecordOverhead > len(raw) {
			return nil, common.New(common.KindIO, "truncated unique index record")
		}
		tag := KeyTag(raw[p])
		keyLen := int(binary.BigEndian.Uint32(raw[p+1 : p+5]))
		fileID := int32(binary.BigEndian.Uint32(raw[p+5 : p+9]))
		lineNo := int64(binary.BigEndian.Uint64(raw[p+9 : p+17]))
		p += uniqueRecordOverhead
		if p+keyLen > len(raw) {
			return nil, common.New(common.KindIO, "truncated unique index key")
		}
		key := raw[p : p+keyLen]
		p += keyLen
		out = append(out, uniqueEntry{
			rawKey: DecodeKey(tag, key),
			coord:  index.Coordinate{FileID: int(fileID), LineNo: lineNo},
		})
	}
	return out, nil
}

// ReadUniqueIndex loads a persisted unique index file in full, rebuilding
// an in-memory index.UniqueIndex. For very large files prefer
// OpenUniqueReader, which keeps the data mmap-backed and decompresses
// blocks on demand.
func ReadUniqueIndex(path string) (*index.UniqueIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.Wrap(common.KindIO, "read index file", err)
	}
	footer, _, err := readFooter(data)
	if err != nil {
		return nil, err
	}
	if footer.Kind != KindUnique {
		return nil, common.New(common.KindConfig, "index file is not a unique index")
	}

	out := index.NewUniqueIndex(0)
	for _, meta := range footer.Blocks {
		raw, err := DecompressBlock(data[meta.Offset:meta.Offset+meta.Length], BlockTargetSize*2)
		if err != nil {
			return nil, err
		}
		entries, err := decodeUniqueBlock(raw)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			var key index.Key
			if s, ok := e.rawKey.(string); ok {
				key = index.BytesKey([]byte(s))
			} else {
				key = index.IntKey(e.rawKey.(int64))
			}
			out.Insert(key, e.coord)
		}
	}
	return out, nil
}
