// Package multifile implements the MultiFile view of §4.9 (C9): several
// FileMap+RecordGeometry pairs federated as one logical record stream,
// addressed by (file_id, line_no) coordinates.
package multifile

import (
	"github.com/fwftable/fwftable/internal/filter"
	"github.com/fwftable/fwftable/internal/fwf"
	"github.com/fwftable/fwftable/internal/scan"
)

// File is one component of a MultiFile view: an open mapping, its derived
// geometry, and the file_id tag attached to every coordinate it produces.
type File struct {
	ID   int
	Map  *fwf.FileMap
	Geom fwf.RecordGeometry
}

// MultiFile carries an ordered list of component files. Scans delegate to
// ScanLoop once per file, in list order (§153's ordering guarantee).
type MultiFile struct {
	files  []File
	global bool
}

// New builds a MultiFile over files, scanned in the given order. When
// global is true, line_no is a cumulative ordinal across every file in the
// view; when false, line_no restarts at 0 for each file (file-local
// numbering), per §4.9.
func New(files []File, global bool) *MultiFile {
	return &MultiFile{files: files, global: global}
}

// Files returns the component file list, in scan order.
func (mf *MultiFile) Files() []File { return mf.files }

// Scan runs fs over every component file in order, feeding each file's
// passing records to a freshly constructed Sink (via newSink) before
// moving to the next file. newSink lets the caller fold every file's
// output into one shared structure (see index.NewUniqueIndexSinkInto and
// its MultiIndex counterpart) while tagging coordinates with the file's ID.
func Scan(mf *MultiFile, fs *filter.FilterSet, newSink func(fileID int) scan.Sink) error {
	var cumulative int64
	for _, f := range mf.files {
		var offset int64
		if mf.global {
			offset = cumulative
		}
		sink := newSink(f.ID)
		if _, err := scan.Run(f.Map, f.Geom, fs, sink, offset); err != nil {
			return err
		}
		cumulative += int64(f.Geom.Count)
	}
	return nil
}
