package sortmerge

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"os"
	"sync/atomic"

	"github.com/pierrec/lz4/v4"

	"github.com/fwftable/fwftable/internal/common"
	"github.com/fwftable/fwftable/internal/persist"
)

// mergeItem is one candidate in the k-way merge's min-heap: the next
// unread record from a given chunk, tagged with its source chunk index so
// the merge can pull the chunk's following record after popping this one.
type mergeItem struct {
	record Record
	source int
}

func (m mergeItem) less(other mergeItem) bool {
	return lessRecord(m.record, other.record)
}

// manualHeap is a hand-rolled binary min-heap over mergeItem, avoiding the
// container/heap interface-boxing overhead on a structure popped once per
// merged record, grounded on the teacher's manualHeap (sorter.go).
type manualHeap []mergeItem

func (h *manualHeap) push(x mergeItem) {
	*h = append(*h, x)
	h.up(len(*h) - 1)
}

func (h *manualHeap) pop() mergeItem {
	old := *h
	n := len(old)
	x := old[0]
	old[0] = old[n-1]
	*h = old[:n-1]
	h.down(0, n-1)
	return x
}

func (h *manualHeap) up(j int) {
	for {
		i := (j - 1) / 2
		if i == j || !(*h)[j].less((*h)[i]) {
			break
		}
		(*h)[i], (*h)[j] = (*h)[j], (*h)[i]
		j = i
	}
}

func (h *manualHeap) down(i0, n int) {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && (*h)[j2].less((*h)[j1]) {
			j = j2
		}
		if !(*h)[j].less((*h)[i]) {
			break
		}
		(*h)[i], (*h)[j] = (*h)[j], (*h)[i]
		i = j
	}
}

// kWayMerge streams every chunk file in sorted order, writing every merged
// record to s.outputPath in the internal/persist block format, so the
// output is directly loadable via persist.ReadUniqueIndex or
// persist.OpenUniqueReader without a separate conversion step. Records with
// a repeated key are all kept; both loaders resolve them last-write-wins.
func (s *Sorter) kWayMerge() (int64, error) {
	chunkCount := len(s.chunkFiles)
	readers := make([]*bufio.Reader, chunkCount)
	files := make([]*os.File, chunkCount)

	for i, path := range s.chunkFiles {
		f, err := os.Open(path)
		if err != nil {
			return 0, common.Wrap(common.KindIO, "open chunk file", err)
		}
		files[i] = f
		readers[i] = bufio.NewReaderSize(lz4.NewReader(f), 64*1024)
	}
	defer func() {
		for _, f := range files {
			if f != nil {
				_ = f.Close()
			}
		}
	}()

	out, err := os.Create(s.outputPath)
	if err != nil {
		return 0, common.Wrap(common.KindIO, "create output file", err)
	}
	defer func() { _ = out.Close() }()

	if _, err := out.Write([]byte(persist.Magic)); err != nil {
		return 0, common.Wrap(common.KindIO, "write magic", err)
	}

	h := make(manualHeap, 0, chunkCount)
	for i := range readers {
		rec, err := readRecord(readers[i])
		if err == nil {
			h = append(h, mergeItem{record: rec, source: i})
		}
	}
	n := len(h)
	for i := n/2 - 1; i >= 0; i-- {
		h.down(i, n)
	}

	var footer persist.Footer
	footer.Kind = persist.KindUnique
	offset := int64(len(persist.Magic))

	var block bytes.Buffer
	var blockCount int
	var blockStartKey any
	var distinct int64
	var lastKeyBytes []byte
	first := true

	flush := func() error {
		if blockCount == 0 {
			return nil
		}
		compressed, err := persist.CompressBlock(block.Bytes())
		if err != nil {
			return err
		}
		tag, key := persist.EncodeKey(blockStartKey)
		footer.Blocks = append(footer.Blocks, persist.BlockMeta{
			StartKeyTag: tag,
			StartKey:    key,
			Offset:      offset,
			Length:      int64(len(compressed)),
			RecordCount: int64(blockCount),
			IsDistinct:  blockCount == 1,
		})
		wn, err := out.Write(compressed)
		if err != nil {
			return common.Wrap(common.KindIO, "write merged block", err)
		}
		offset += int64(wn)
		block.Reset()
		blockCount = 0
		return nil
	}

	appendRecord := func(rec Record) error {
		if blockCount == 0 {
			blockStartKey = rec.RawKey
		}
		if err := writeIndexRecord(&block, rec); err != nil {
			return err
		}
		blockCount++
		atomic.AddInt64(&s.mergedRecords, 1)
		if block.Len() >= persist.BlockTargetSize {
			return flush()
		}
		return nil
	}

	for len(h) > 0 {
		item := h.pop()
		rec := item.record
		kb := keyBytesOf(rec.RawKey)

		// Last-write-wins across equal keys (§3, property 4): every record
		// with this key is written to the block stream, in merge order;
		// index.UniqueIndex.Insert at load time keeps only the last one.
		// Distinct-key counting still only counts the key transition.
		if first || !bytes.Equal(kb, lastKeyBytes) {
			distinct++
			if s.bloom != nil {
				s.bloom.Add(kb)
			}
			lastKeyBytes = append(lastKeyBytes[:0], kb...)
			first = false
		}

		if err := appendRecord(rec); err != nil {
			return 0, err
		}

		next, err := readRecord(readers[item.source])
		if err == nil {
			h.push(mergeItem{record: next, source: item.source})
		}
	}

	if err := flush(); err != nil {
		return 0, err
	}
	if err := persist.WriteFooter(out, footer); err != nil {
		return 0, err
	}
	return distinct, nil
}

// writeIndexRecord serializes rec in the exact on-disk shape
// internal/persist's unique-index reader expects: KeyTag(1) + keyLen(4) +
// fileID(4) + lineNo(8) + key bytes.
func writeIndexRecord(w *bytes.Buffer, rec Record) error {
	tag, keyBytes := persist.EncodeKey(rec.RawKey)
	header := [17]byte{}
	header[0] = byte(tag)
	binary.BigEndian.PutUint32(header[1:5], uint32(len(keyBytes)))
	binary.BigEndian.PutUint32(header[5:9], uint32(rec.FileID))
	binary.BigEndian.PutUint64(header[9:17], uint64(rec.LineNo))
	w.Write(header[:])
	w.Write(keyBytes)
	return nil
}

