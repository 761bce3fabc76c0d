package scan

import (
	"github.com/fwftable/fwftable/internal/filter"
	"github.com/fwftable/fwftable/internal/fwf"
)

// Run is the single hot path of §4.5: walk every whole record in file
// order, evaluate FilterSet, invoke Sink.accept per passing record, then
// finalize. offset numbers the first record (used by MultiFile to number
// globally across files). It performs no allocation beyond what fs and
// sink do internally, and touches each record's bytes at most once per
// predicate plus once for sink extraction.
func Run(fm *fwf.FileMap, geom fwf.RecordGeometry, fs *filter.FilterSet, sink Sink, offset int64) (any, error) {
	data := fm.Bytes()
	dataWidth := geom.DataWidth()

	p := geom.Start
	end := geom.End()
	n := offset

	for p+dataWidth <= end {
		record := data[p : p+geom.Width]
		if fs == nil || fs.Eval(record) {
			if err := sink.Accept(n, record); err != nil {
				return nil, err
			}
		}
		p += geom.Width
		n++
	}

	return sink.Finalize()
}
