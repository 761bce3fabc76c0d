package index

import (
	"github.com/fwftable/fwftable/internal/common"
	"github.com/fwftable/fwftable/internal/fwf"
)

// fieldKey copies field bytes into a BytesKey, or parses it as a decimal
// integer into an IntKey, per the keyed_as bytes|int choice of §6. Field
// bytes are borrowed during Accept, so the bytes case must copy — BytesKey
// does that via the string conversion.
func fieldKey(field []byte, asInt bool, lineNo int64) (Key, error) {
	if !asInt {
		return BytesKey(field), nil
	}
	v, err := fwf.ParseDecimalInt64(field)
	if err != nil {
		if pe, ok := err.(*common.ParseError); ok {
			pe.LineNo = lineNo
		}
		return Key{}, err
	}
	return IntKey(v), nil
}
