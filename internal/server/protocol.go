// Package server exposes the §6 operation table over line-delimited JSON,
// the external interface over the core scan-and-index engine. No WHERE-tree
// DSL, no GROUP BY/aggregation: only geometry, scan_line_numbers,
// scan_bytes_column, scan_int_column, build_unique_index, build_multi_index
// and lookup are reachable from the wire protocol (§B.3's deliberate
// narrowing of the teacher's general CSV query surface).
package server

import (
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/fwftable/fwftable/internal/common"
	"github.com/fwftable/fwftable/internal/filter"
	"github.com/fwftable/fwftable/internal/index"
	"github.com/fwftable/fwftable/internal/scan"
)

// Request is one line of the wire protocol: an operation name plus its
// raw, op-specific parameters.
type Request struct {
	Op     string          `json:"op"`
	Params json.RawMessage `json:"params"`
}

// Response is the single reply shape for every operation: exactly one of
// Data/Error is populated.
type Response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// FilterDTO is one predicate over the wire: Value is base64-encoded raw
// field bytes, since FWF fields carry no text encoding (§3).
type FilterDTO struct {
	Start     int    `json:"start"`
	Value     string `json:"value"`
	Bound     string `json:"bound"` // "lower" or "upper"
	Inclusive bool   `json:"inclusive"`
}

func (r *Registry) buildFilterSet(dataWidth int, dtos []FilterDTO) (*filter.FilterSet, error) {
	fs := filter.NewFilterSet()
	for _, d := range dtos {
		value, err := base64.StdEncoding.DecodeString(d.Value)
		if err != nil {
			return nil, common.Wrap(common.KindConfig, "filter value is not valid base64", err)
		}
		var bound filter.Bound
		switch d.Bound {
		case "lower":
			bound = filter.Lower
		case "upper":
			bound = filter.Upper
		default:
			return nil, common.New(common.KindConfig, "filter bound must be \"lower\" or \"upper\"")
		}
		if err := fs.Add(d.Start, value, bound, d.Inclusive, dataWidth); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

// Dispatch decodes one request line and executes it against reg, returning
// the Response to write back. It never panics: every error path from the
// core engine is converted to an error Response rather than propagated.
func Dispatch(reg *Registry, line []byte) Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return errorResponse(common.Wrap(common.KindConfig, "invalid request JSON", err))
	}

	var (
		data any
		err  error
	)
	switch req.Op {
	case "geometry":
		data, err = handleGeometry(reg, req.Params)
	case "scan_line_numbers":
		data, err = handleScanLineNumbers(reg, req.Params)
	case "scan_bytes_column":
		data, err = handleScanBytesColumn(reg, req.Params)
	case "scan_int_column":
		data, err = handleScanIntColumn(reg, req.Params)
	case "build_unique_index":
		data, err = handleBuildUniqueIndex(reg, req.Params)
	case "build_multi_index":
		data, err = handleBuildMultiIndex(reg, req.Params)
	case "lookup":
		data, err = handleLookup(reg, req.Params)
	default:
		err = common.New(common.KindConfig, "unknown op "+req.Op)
	}

	if err != nil {
		return errorResponse(err)
	}
	return Response{Status: "ok", Data: data}
}

func errorResponse(err error) Response {
	return Response{Status: "error", Error: err.Error()}
}

type geometryParams struct {
	OpenParams
}

type geometryResult struct {
	Width        int `json:"w"`
	NewlineBytes int `json:"n"`
	Start        int `json:"s"`
	Count        int `json:"r"`
}

func handleGeometry(reg *Registry, raw json.RawMessage) (any, error) {
	var p geometryParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, common.Wrap(common.KindConfig, "invalid geometry params", err)
	}
	h, err := reg.Open(p.OpenParams)
	if err != nil {
		return nil, err
	}
	return geometryResult{Width: h.Geom.Width, NewlineBytes: h.Geom.NewlineBytes, Start: h.Geom.Start, Count: h.Geom.Count}, nil
}

type scanParams struct {
	OpenParams
	Field   string      `json:"field,omitempty"`
	Start   *int        `json:"start,omitempty"`
	Length  *int        `json:"length,omitempty"`
	Filters []FilterDTO `json:"filters,omitempty"`
}

func handleScanLineNumbers(reg *Registry, raw json.RawMessage) (any, error) {
	var p scanParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, common.Wrap(common.KindConfig, "invalid scan_line_numbers params", err)
	}
	h, err := reg.Open(p.OpenParams)
	if err != nil {
		return nil, err
	}
	fs, err := reg.buildFilterSet(h.Geom.DataWidth(), p.Filters)
	if err != nil {
		return nil, err
	}
	result, err := scan.Run(h.Map, h.Geom, fs, scan.NewLineNumberSink(h.Geom.Count), 0)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func handleScanBytesColumn(reg *Registry, raw json.RawMessage) (any, error) {
	var p scanParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, common.Wrap(common.KindConfig, "invalid scan_bytes_column params", err)
	}
	h, err := reg.Open(p.OpenParams)
	if err != nil {
		return nil, err
	}
	start, length, err := h.resolveField(p.Field, p.Start, p.Length)
	if err != nil {
		return nil, err
	}
	fs, err := reg.buildFilterSet(h.Geom.DataWidth(), p.Filters)
	if err != nil {
		return nil, err
	}
	res, err := scan.Run(h.Map, h.Geom, fs, scan.NewBytesColumnSink(start, length, h.Geom.Count), 0)
	if err != nil {
		return nil, err
	}
	col := res.(scan.BytesColumnResult)
	return map[string]any{
		"rows":        col.Rows,
		"stride":      col.Stride,
		"data_base64": base64.StdEncoding.EncodeToString(col.Data),
	}, nil
}

func handleScanIntColumn(reg *Registry, raw json.RawMessage) (any, error) {
	var p scanParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, common.Wrap(common.KindConfig, "invalid scan_int_column params", err)
	}
	h, err := reg.Open(p.OpenParams)
	if err != nil {
		return nil, err
	}
	start, length, err := h.resolveField(p.Field, p.Start, p.Length)
	if err != nil {
		return nil, err
	}
	fs, err := reg.buildFilterSet(h.Geom.DataWidth(), p.Filters)
	if err != nil {
		return nil, err
	}
	return scan.Run(h.Map, h.Geom, fs, scan.NewIntColumnSink(start, length, h.Geom.Count), 0)
}

type buildIndexParams struct {
	scanParams
	KeyIsInt bool `json:"key_is_int"`
}

func handleBuildUniqueIndex(reg *Registry, raw json.RawMessage) (any, error) {
	var p buildIndexParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, common.Wrap(common.KindConfig, "invalid build_unique_index params", err)
	}
	h, err := reg.Open(p.OpenParams)
	if err != nil {
		return nil, err
	}
	start, length, err := h.resolveField(p.Field, p.Start, p.Length)
	if err != nil {
		return nil, err
	}
	fs, err := reg.buildFilterSet(h.Geom.DataWidth(), p.Filters)
	if err != nil {
		return nil, err
	}
	sink := index.NewUniqueIndexSink(start, length, h.Geom.Count, 0, p.KeyIsInt)
	result, err := scan.Run(h.Map, h.Geom, fs, sink, 0)
	if err != nil {
		return nil, err
	}
	idx := result.(*index.UniqueIndex)
	id := reg.storeIndex(idx)
	return map[string]any{"index_id": id, "distinct_keys": idx.Len()}, nil
}

func handleBuildMultiIndex(reg *Registry, raw json.RawMessage) (any, error) {
	var p buildIndexParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, common.Wrap(common.KindConfig, "invalid build_multi_index params", err)
	}
	h, err := reg.Open(p.OpenParams)
	if err != nil {
		return nil, err
	}
	start, length, err := h.resolveField(p.Field, p.Start, p.Length)
	if err != nil {
		return nil, err
	}
	fs, err := reg.buildFilterSet(h.Geom.DataWidth(), p.Filters)
	if err != nil {
		return nil, err
	}
	sink := index.NewMultiIndexSink(start, length, h.Geom.Count, 0, p.KeyIsInt)
	result, err := scan.Run(h.Map, h.Geom, fs, sink, 0)
	if err != nil {
		return nil, err
	}
	idx := result.(*index.MultiIndex)
	id := reg.storeIndex(idx)
	return map[string]any{"index_id": id, "distinct_keys": idx.Len()}, nil
}

type lookupParams struct {
	IndexID string `json:"index_id"`
	Key     string `json:"key"`        // base64-encoded bytes key
	KeyInt  *int64 `json:"key_int"`    // set instead of Key for an int key
}

func handleLookup(reg *Registry, raw json.RawMessage) (any, error) {
	var p lookupParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, common.Wrap(common.KindConfig, "invalid lookup params", err)
	}
	idx, ok := reg.index(p.IndexID)
	if !ok {
		return nil, common.New(common.KindConfig, "unknown index_id "+p.IndexID)
	}

	var key index.Key
	if p.KeyInt != nil {
		key = index.IntKey(*p.KeyInt)
	} else {
		keyBytes, err := base64.StdEncoding.DecodeString(p.Key)
		if err != nil {
			return nil, common.Wrap(common.KindConfig, "lookup key is not valid base64", err)
		}
		key = index.BytesKey(keyBytes)
	}

	switch v := idx.(type) {
	case *index.UniqueIndex:
		coord, found := v.Lookup(key)
		if !found {
			return map[string]any{"found": false}, nil
		}
		return map[string]any{"found": true, "line_no": coord.LineNo}, nil
	case *index.MultiIndex:
		coords, found := v.Lookup(key)
		if !found {
			return map[string]any{"found": false}, nil
		}
		lines := make([]int64, len(coords))
		for i, c := range coords {
			lines[i] = c.LineNo
		}
		return map[string]any{"found": true, "line_nos": lines}, nil
	default:
		return nil, common.New(common.KindConfig, "index_id refers to an unsupported index type")
	}
}

// marshalResponse serializes resp as a single newline-terminated JSON line,
// the wire framing both TCPServer and UDSServer use.
func marshalResponse(resp Response) ([]byte, error) {
	body, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(body, '\n'), nil
}

func indexIDPrefix(idx any) string {
	switch idx.(type) {
	case *index.UniqueIndex:
		return "uidx-"
	case *index.MultiIndex:
		return "midx-"
	default:
		return "idx-"
	}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
