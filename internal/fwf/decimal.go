package fwf

import "github.com/fwftable/fwftable/internal/common"

// ParseDecimalInt64 implements §4.7's decimal integer parser: skip leading
// spaces, accept one optional sign, require at least one digit, reject any
// other byte, reject overflow. It allocates only on the error path, for the
// returned ParseError and its copy of the field bytes.
func ParseDecimalInt64(field []byte) (int64, error) {
	i := 0
	n := len(field)

	for i < n && field[i] == ' ' {
		i++
	}

	neg := false
	if i < n && (field[i] == '+' || field[i] == '-') {
		neg = field[i] == '-'
		i++
	}

	if i >= n {
		return 0, &common.ParseError{Raw: append([]byte(nil), field...),
			Err: common.New(common.KindParse, "no digits")}
	}

	var val int64
	digits := 0
	for ; i < n; i++ {
		b := field[i]
		if b < '0' || b > '9' {
			return 0, &common.ParseError{Raw: append([]byte(nil), field...),
				Err: common.New(common.KindParse, "non-digit byte in field")}
		}
		digit := int64(b - '0')

		// Overflow check before the multiply/add.
		if val > (maxInt64-digit)/10 {
			return 0, &common.ParseError{Raw: append([]byte(nil), field...),
				Err: common.New(common.KindParse, "integer overflow")}
		}
		val = val*10 + digit
		digits++
	}

	if digits == 0 {
		return 0, &common.ParseError{Raw: append([]byte(nil), field...),
			Err: common.New(common.KindParse, "no digits")}
	}

	if neg {
		val = -val
	}
	return val, nil
}

const maxInt64 = 1<<63 - 1

// ParseDecimalInt32 parses as ParseDecimalInt64 then range-checks into an
// int32, surfacing an overflow ParseError if the value doesn't fit.
func ParseDecimalInt32(field []byte) (int32, error) {
	v, err := ParseDecimalInt64(field)
	if err != nil {
		return 0, err
	}
	if v < -(1<<31) || v > (1<<31)-1 {
		return 0, &common.ParseError{Raw: append([]byte(nil), field...),
			Err: common.New(common.KindParse, "integer overflow for int32")}
	}
	return int32(v), nil
}
