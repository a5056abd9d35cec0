package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimal magnitudes (digit count plus exponent) outside this range cannot be
// a finite non-zero float64.
const (
	maxMagnitude = 309
	minMagnitude = -324
)

// Number is a form value coerced to a JSON number. Input that does not parse
// as a number, or overflows float64, is kept as an invalid Number and encodes
// as null.
type Number struct {
	value float64
	valid bool
}

// CoerceNumber converts form input the way a browser's Number() does for
// decimal text: surrounding space is ignored, an empty string is zero and a
// value beyond float64 range is not a number.
func CoerceNumber(s string) Number {
	s = strings.TrimSpace(s)
	if s == "" {
		return Number{valid: true}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Number{}
	}
	return fromDecimal(d)
}

// fromDecimal checks the magnitude before converting so that a huge exponent
// never gets expanded.
func fromDecimal(d decimal.Decimal) Number {
	if d.IsZero() {
		return Number{valid: true}
	}

	magnitude := int64(d.NumDigits()) + int64(d.Exponent())
	if magnitude > maxMagnitude {
		return Number{}
	}
	if magnitude < minMagnitude {
		return Number{valid: true}
	}

	f := d.InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return Number{}
	}
	return Number{value: f, valid: true}
}

func NumberFromInt(i int64) Number {
	return Number{value: float64(i), valid: true}
}

func (n Number) Valid() bool {
	return n.valid
}

func (n Number) Float64() float64 {
	return n.value
}

func (n Number) Equal(other Number) bool {
	if n.valid != other.valid {
		return false
	}
	return !n.valid || n.value == other.value
}

func (n Number) String() string {
	if !n.valid {
		return "NaN"
	}
	return strconv.FormatFloat(n.value, 'g', -1, 64)
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}

func (n *Number) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*n = Number{}
		return nil
	}
	d, err := decimal.NewFromString(string(bytes.Trim(data, `"`)))
	if err != nil {
		return err
	}
	parsed := fromDecimal(d)
	if !parsed.valid {
		return errors.New("number out of range: " + string(data))
	}
	*n = parsed
	return nil
}
