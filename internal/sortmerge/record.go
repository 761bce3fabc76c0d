// Package sortmerge implements the external merge-sort index builder of
// §B.2: a UniqueIndex over a file too large to sort in memory, built by
// spilling sorted chunks to LZ4-compressed temp files and k-way merging
// them into the persisted block format of internal/persist. Grounded on
// the teacher's Sorter (src/go/internal/indexer/sorter.go).
package sortmerge

import (
	"encoding/binary"
	"io"

	"github.com/fwftable/fwftable/internal/common"
	"github.com/fwftable/fwftable/internal/persist"
)

// Record is one (key, coordinate) pair flowing through the sorter, the
// same shape index.Entry holds, but carried outside of any map
// so the sorter never needs to materialize the full key set in memory.
type Record struct {
	RawKey any // string or int64, matching index.Key's mapKey() forms
	FileID int32
	LineNo int64
}

// recordOverhead is the fixed-size part of a serialized Record in the
// sorter's temp-chunk format: tag(1) + keyLen(4) + fileID(4) + lineNo(8).
const recordOverhead = 1 + 4 + 4 + 8

func writeRecord(w io.Writer, rec Record) error {
	tag, keyBytes := persist.EncodeKey(rec.RawKey)
	header := make([]byte, recordOverhead)
	header[0] = byte(tag)
	binary.BigEndian.PutUint32(header[1:5], uint32(len(keyBytes)))
	binary.BigEndian.PutUint32(header[5:9], uint32(rec.FileID))
	binary.BigEndian.PutUint64(header[9:17], uint64(rec.LineNo))
	if _, err := w.Write(header); err != nil {
		return common.Wrap(common.KindIO, "write chunk record header", err)
	}
	if _, err := w.Write(keyBytes); err != nil {
		return common.Wrap(common.KindIO, "write chunk record key", err)
	}
	return nil
}

func readRecord(r io.Reader) (Record, error) {
	header := make([]byte, recordOverhead)
	if _, err := io.ReadFull(r, header); err != nil {
		return Record{}, err // io.EOF propagates to the caller unwrapped
	}
	tag := persist.KeyTag(header[0])
	keyLen := binary.BigEndian.Uint32(header[1:5])
	fileID := int32(binary.BigEndian.Uint32(header[5:9]))
	lineNo := int64(binary.BigEndian.Uint64(header[9:17]))

	keyBytes := make([]byte, keyLen)
	if _, err := io.ReadFull(r, keyBytes); err != nil {
		return Record{}, common.Wrap(common.KindIO, "read chunk record key", err)
	}
	return Record{RawKey: persist.DecodeKey(tag, keyBytes), FileID: fileID, LineNo: lineNo}, nil
}

func keyBytesOf(rawKey any) []byte {
	_, b := persist.EncodeKey(rawKey)
	return b
}
