package auth

import (
	"bytes"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

const hexDigits = "0123456789abcdef"

// stringify writes v in normalized compact form. Strings are escaped only
// for quotes, backslashes and control characters. Numbers use the shortest
// round-trip form with exponents outside [1e-6, 1e21). A repeated key keeps
// its last value at its first position, and integer-like keys sort first.
func stringify(buf *bytes.Buffer, v gjson.Result) {
	switch v.Type {
	case gjson.Null:
		buf.WriteString("null")
	case gjson.False:
		buf.WriteString("false")
	case gjson.True:
		buf.WriteString("true")
	case gjson.Number:
		buf.WriteString(formatNumber(v.Num))
	case gjson.String:
		quote(buf, v.Str)
	case gjson.JSON:
		if v.IsArray() {
			buf.WriteByte('[')
			for i, item := range v.Array() {
				if i > 0 {
					buf.WriteByte(',')
				}
				stringify(buf, item)
			}
			buf.WriteByte(']')
			return
		}
		stringifyObject(buf, v)
	}
}

func stringifyObject(buf *bytes.Buffer, v gjson.Result) {
	var keys []string
	values := map[string]gjson.Result{}
	v.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if _, ok := values[k]; !ok {
			keys = append(keys, k)
		}
		values[k] = value
		return true
	})

	var indexes, names []string
	for _, k := range keys {
		if isArrayIndex(k) {
			indexes = append(indexes, k)
		} else {
			names = append(names, k)
		}
	}
	sort.Slice(indexes, func(i, j int) bool {
		if len(indexes[i]) != len(indexes[j]) {
			return len(indexes[i]) < len(indexes[j])
		}
		return indexes[i] < indexes[j]
	})

	buf.WriteByte('{')
	for i, k := range append(indexes, names...) {
		if i > 0 {
			buf.WriteByte(',')
		}
		quote(buf, k)
		buf.WriteByte(':')
		stringify(buf, values[k])
	}
	buf.WriteByte('}')
}

// isArrayIndex reports whether k is a canonical integer below 2^32-1
func isArrayIndex(k string) bool {
	if k == "" || (len(k) > 1 && k[0] == '0') {
		return false
	}
	n, err := strconv.ParseUint(k, 10, 64)
	return err == nil && n < math.MaxUint32
}

func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func quote(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if c < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[c>>4])
				buf.WriteByte(hexDigits[c&0xf])
				continue
			}
			buf.WriteByte(c)
		}
	}
	buf.WriteByte('"')
}
