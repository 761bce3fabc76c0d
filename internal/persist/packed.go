package persist

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"sort"

	"github.com/fwftable/fwftable/internal/common"
	"github.com/fwftable/fwftable/internal/packedindex"
)

// packedHeadOverhead is the fixed-size part of a serialized head record:
// KeyTag(1) + keyLen(4) + head(4).
const packedHeadOverhead = 1 + 4 + 4

// WritePackedIndex persists a finalized PackedMultiIndex: the head map as
// one sorted, block-compressed section, followed by the raw line_no and
// next arrays as a second uncompressed-length-prefixed, LZ4-compressed
// section. Both sections are recorded in the footer so a reader can
// reconstruct the exact four-array layout §6 requires.
func WritePackedIndex(w io.Writer, idx *packedindex.PackedMultiIndex) error {
	heads := idx.Heads()
	sort.Slice(heads, func(i, j int) bool {
		return bytes.Compare(rawKeyBytes(heads[i].RawKey), rawKeyBytes(heads[j].RawKey)) < 0
	})

	if _, err := w.Write([]byte(Magic)); err != nil {
		return common.Wrap(common.KindIO, "write magic", err)
	}

	var footer Footer
	footer.Kind = KindPacked
	offset := int64(len(Magic))

	var block bytes.Buffer
	blockStartIdx := 0
	flushHeads := func(upto int) error {
		if upto == blockStartIdx {
			return nil
		}
		compressed, err := CompressBlock(block.Bytes())
		if err != nil {
			return err
		}
		tag, key := EncodeKey(heads[blockStartIdx].RawKey)
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

	for i, h := range heads {
		tag, keyBytes := EncodeKey(h.RawKey)
		rec := make([]byte, packedHeadOverhead+len(keyBytes))
		rec[0] = byte(tag)
		binary.BigEndian.PutUint32(rec[1:5], uint32(len(keyBytes)))
		binary.BigEndian.PutUint32(rec[5:9], uint32(h.Head))
		copy(rec[packedHeadOverhead:], keyBytes)
		block.Write(rec)

		if block.Len() >= BlockTargetSize {
			if err := flushHeads(i + 1); err != nil {
				return err
			}
		}
	}
	if err := flushHeads(len(heads)); err != nil {
		return err
	}

	// Arrays section: one block holding the concatenated line_no/next
	// int32 arrays, recorded with no StartKey.
	lineNo := idx.LineNos()
	next := idx.Next()
	arrBuf := make([]byte, 8+4*len(lineNo)+4*len(next))
	binary.BigEndian.PutUint32(arrBuf[0:4], uint32(len(lineNo)))
	binary.BigEndian.PutUint32(arrBuf[4:8], uint32(len(next)))
	p := 8
	for _, v := range lineNo {
		binary.BigEndian.PutUint32(arrBuf[p:p+4], uint32(v))
		p += 4
	}
	for _, v := range next {
		binary.BigEndian.PutUint32(arrBuf[p:p+4], uint32(v))
		p += 4
	}
	compressedArr, err := CompressBlock(arrBuf)
	if err != nil {
		return err
	}
	// Always the last entry in footer.Blocks; ReadPackedIndex relies on
	// position, not a flag, to tell it apart from head blocks.
	footer.Blocks = append(footer.Blocks, BlockMeta{
		Offset:      offset,
		Length:      int64(len(compressedArr)),
		RecordCount: int64(len(lineNo)),
	})
	if _, err := w.Write(compressedArr); err != nil {
		return common.Wrap(common.KindIO, "write arrays block", err)
	}

	return WriteFooter(w, footer)
}

// ReadPackedIndex loads a persisted packed index file in full, rebuilding
// an in-memory PackedMultiIndex via packedindex.FromArrays.
func ReadPackedIndex(path string) (*packedindex.PackedMultiIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.Wrap(common.KindIO, "read index file", err)
	}
	footer, _, err := readFooter(data)
	if err != nil {
		return nil, err
	}
	if footer.Kind != KindPacked {
		return nil, common.New(common.KindConfig, "index file is not a packed index")
	}
	if len(footer.Blocks) == 0 {
		return nil, common.New(common.KindIO, "packed index file has no blocks")
	}

	arraysMeta := footer.Blocks[len(footer.Blocks)-1]
	headBlocks := footer.Blocks[:len(footer.Blocks)-1]

	var heads []packedindex.HeadEntry
	for _, meta := range headBlocks {
		raw, err := DecompressBlock(data[meta.Offset:meta.Offset+meta.Length], BlockTargetSize*2)
		if err != nil {
			return nil, err
		}
		p := 0
		for p < len(raw) {
			if p+packedHeadOverhead > len(raw) {
				return nil, common.New(common.KindIO, "truncated head record")
			}
			tag := KeyTag(raw[p])
			keyLen := int(binary.BigEndian.Uint32(raw[p+1 : p+5]))
			head := int32(binary.BigEndian.Uint32(raw[p+5 : p+9]))
			p += packedHeadOverhead
			if p+keyLen > len(raw) {
				return nil, common.New(common.KindIO, "truncated head key")
			}
			key := DecodeKey(tag, raw[p:p+keyLen])
			p += keyLen
			heads = append(heads, packedindex.HeadEntry{RawKey: key, Head: head})
		}
	}

	arrRaw, err := DecompressBlock(data[arraysMeta.Offset:arraysMeta.Offset+arraysMeta.Length], int(arraysMeta.RecordCount)*8+8)
	if err != nil {
		return nil, err
	}
	if len(arrRaw) < 8 {
		return nil, common.New(common.KindIO, "truncated arrays block")
	}
	lineNoCount := int(binary.BigEndian.Uint32(arrRaw[0:4]))
	nextCount := int(binary.BigEndian.Uint32(arrRaw[4:8]))
	p := 8
	lineNo := make([]int32, lineNoCount)
	for i := range lineNo {
		lineNo[i] = int32(binary.BigEndian.Uint32(arrRaw[p : p+4]))
		p += 4
	}
	next := make([]int32, nextCount)
	for i := range next {
		next[i] = int32(binary.BigEndian.Uint32(arrRaw[p : p+4]))
		p += 4
	}

	return packedindex.FromArrays(heads, lineNo, next), nil
}
