package sortmerge

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/pierrec/lz4/v4"
	"go.uber.org/zap"

	"github.com/fwftable/fwftable/internal/common"
	"github.com/fwftable/fwftable/internal/logging"
	"github.com/fwftable/fwftable/internal/persist"
)

// State is the Collecting -> Merging -> Done state machine of §B.2.
type State int32

const (
	StateCollecting State = iota
	StateMerging
	StateDone
)

// Sorter builds a persisted UniqueIndex over more records than fit in
// memory at once: Add buffers records and spills sorted, LZ4-compressed
// chunks to tempDir once the buffer fills, and Finalize k-way merges the
// chunks into a single persist-format index file at outputPath, grounded
// on the teacher's Sorter (sorter.go).
type Sorter struct {
	outputPath string
	tempDir    string
	chunkSize  int

	memBuffer  []Record
	chunkFiles []string

	bloom *persist.BloomFilter // optional, populated with every distinct key during merge
	log   *zap.SugaredLogger

	totalRecords  int64
	mergedRecords int64
	state         int32
}

// NewSorter creates a sorter that spills to tempDir and writes its final
// merged index to outputPath. memoryLimitBytes bounds the in-memory chunk
// buffer; bloom, if non-nil, is populated with every distinct key as the
// merge discovers it. logger may be nil.
func NewSorter(outputPath, tempDir string, memoryLimitBytes int, bloom *persist.BloomFilter, logger *zap.SugaredLogger) *Sorter {
	// ~100 bytes per buffered Record is a safe over-estimate (raw key +
	// interface overhead + slice growth), matching the teacher's sizing.
	chunkSize := memoryLimitBytes / 100
	if chunkSize < 1000 {
		chunkSize = 1000
	}
	return &Sorter{
		outputPath: outputPath,
		tempDir:    tempDir,
		chunkSize:  chunkSize,
		memBuffer:  make([]Record, 0, chunkSize),
		bloom:      bloom,
		log:        logging.OrNop(logger),
	}
}

// Add buffers one record, spilling the current chunk to disk once the
// buffer reaches its configured size.
func (s *Sorter) Add(rec Record) error {
	s.memBuffer = append(s.memBuffer, rec)
	atomic.AddInt64(&s.totalRecords, 1)
	if len(s.memBuffer) >= s.chunkSize {
		return s.flushChunk()
	}
	return nil
}

func (s *Sorter) flushChunk() error {
	if len(s.memBuffer) == 0 {
		return nil
	}

	sort.Slice(s.memBuffer, func(i, j int) bool {
		return lessRecord(s.memBuffer[i], s.memBuffer[j])
	})

	chunkPath := filepath.Join(s.tempDir, fmt.Sprintf("chunk_%d.tmp", len(s.chunkFiles)))
	file, err := os.Create(chunkPath)
	if err != nil {
		return common.Wrap(common.KindIO, "create chunk file", err)
	}

	lw := lz4.NewWriter(file)
	bw := bufio.NewWriterSize(lw, 256*1024)

	for _, rec := range s.memBuffer {
		if err := writeRecord(bw, rec); err != nil {
			_ = bw.Flush()
			_ = lw.Close()
			_ = file.Close()
			return err
		}
	}

	if err := bw.Flush(); err != nil {
		_ = lw.Close()
		_ = file.Close()
		return common.Wrap(common.KindIO, "flush chunk", err)
	}
	if err := lw.Close(); err != nil {
		_ = file.Close()
		return common.Wrap(common.KindIO, "close lz4 writer", err)
	}
	if err := file.Close(); err != nil {
		return common.Wrap(common.KindIO, "close chunk file", err)
	}

	s.chunkFiles = append(s.chunkFiles, chunkPath)
	s.memBuffer = s.memBuffer[:0]
	s.log.Debugw("spilled sort chunk", "path", chunkPath, "chunks", len(s.chunkFiles))
	return nil
}

func lessRecord(a, b Record) bool {
	cmp := bytes.Compare(keyBytesOf(a.RawKey), keyBytesOf(b.RawKey))
	if cmp != 0 {
		return cmp < 0
	}
	if a.FileID != b.FileID {
		return a.FileID < b.FileID
	}
	return a.LineNo < b.LineNo
}

// Finalize flushes any remaining buffered records, k-way merges every
// chunk, and writes the merged result to outputPath as a persist-format
// unique index file. Returns the number of distinct keys written.
func (s *Sorter) Finalize() (int64, error) {
	if err := s.flushChunk(); err != nil {
		return 0, err
	}
	atomic.StoreInt32(&s.state, int32(StateMerging))

	if len(s.chunkFiles) == 0 {
		f, err := os.Create(s.outputPath)
		if err != nil {
			return 0, common.Wrap(common.KindIO, "create empty output", err)
		}
		if _, err := f.Write([]byte(persist.Magic)); err != nil {
			_ = f.Close()
			return 0, common.Wrap(common.KindIO, "write magic", err)
		}
		err = persist.WriteFooter(f, persist.Footer{Kind: persist.KindUnique})
		_ = f.Close()
		if err != nil {
			return 0, err
		}
		atomic.StoreInt32(&s.state, int32(StateDone))
		return 0, nil
	}

	distinct, err := s.kWayMerge()
	if err == nil {
		atomic.StoreInt32(&s.state, int32(StateDone))
		s.log.Infow("merge complete", "chunks", len(s.chunkFiles), "distinctKeys", distinct, "totalRecords", atomic.LoadInt64(&s.totalRecords))
	}
	return distinct, err
}

// Cleanup removes every spilled chunk file. Safe to call after Finalize or
// on an abandoned sorter.
func (s *Sorter) Cleanup() {
	for _, p := range s.chunkFiles {
		_ = os.Remove(p)
	}
	s.chunkFiles = nil
}

// Stats reports progress, safe to call concurrently with Add/Finalize.
type Stats struct {
	TotalRecords  int64
	MergedRecords int64
	ChunkCount    int
	State         State
}

func (s *Sorter) Stats() Stats {
	state := State(atomic.LoadInt32(&s.state))
	chunkCount := 0
	if state != StateDone {
		chunkCount = len(s.chunkFiles)
	}
	return Stats{
		TotalRecords:  atomic.LoadInt64(&s.totalRecords),
		MergedRecords: atomic.LoadInt64(&s.mergedRecords),
		ChunkCount:    chunkCount,
		State:         state,
	}
}
