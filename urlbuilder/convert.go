package urlbuilder

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
)

// EnumMember is implemented by enum-like types that declare a
// serialization name distinct from their symbolic (String) name.
type EnumMember interface {
	EnumMember() string
}

// Stringify renders v for use in a path or query string:
//   - EnumMember values render their declared name, falling back to String.
//   - booleans render as lowercase true/false.
//   - byte slices render as standard base64.
//   - other slices and arrays render each element recursively, joined by commas.
//   - numbers use invariant strconv formatting, time.Time uses RFC 3339.
//   - nil renders as the empty string.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case EnumMember:
		if name := val.EnumMember(); name != "" {
			return name
		}
		if s, ok := v.(fmt.Stringer); ok {
			return s.String()
		}
	case bool:
		return strconv.FormatBool(val)
	case []byte:
		return base64.StdEncoding.EncodeToString(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return val.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return ""
		}
		return Stringify(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return ""
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return base64.StdEncoding.EncodeToString(rv.Bytes())
		}
		return joinElems(rv)
	case reflect.Array:
		return joinElems(rv)
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	case reflect.String:
		return rv.String()
	}

	return fmt.Sprint(v)
}

func joinElems(rv reflect.Value) string {
	parts := make([]string, rv.Len())
	for i := range rv.Len() {
		parts[i] = Stringify(rv.Index(i).Interface())
	}
	return strings.Join(parts, ",")
}

// isNil reports whether v is nil or a typed nil pointer, map or slice.
func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}

	return false
}

func sortedKeys(values url.Values) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
