package writer

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// CellValue converts a value into what gets written to a cell: empty text for
// nil, NaN and infinities; numbers as numbers; strings as numbers when they
// parse as a finite float and as trimmed text otherwise; slices and maps as
// their JSON text.
func CellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return textOrNumber(x)
	case json.Number:
		return textOrNumber(string(x))
	case float64:
		return finiteOrEmpty(x)
	case float32:
		return finiteOrEmpty(float64(x))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, bool:
		return x
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		b, err := json.Marshal(v)
		if err != nil {
			return strings.TrimSpace(fmt.Sprint(v))
		}
		return string(b)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return ""
		}
		return CellValue(rv.Elem().Interface())
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func finiteOrEmpty(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return f
}

func textOrNumber(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}
