package record

import (
	"fmt"
	"reflect"
	"strconv"
)

// IDText converts an identifier to its textual wire form.
// Returns false when the identifier is absent, empty or a collection.
func IDText(id any) (string, bool) {
	if IsNil(id) {
		return "", false
	}

	var s string
	switch v := id.(type) {
	case string:
		s = v
	case *string:
		s = *v
	case []byte:
		s = string(v)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case int32:
		s = strconv.FormatInt(int64(v), 10)
	case uint:
		s = strconv.FormatUint(uint64(v), 10)
	case uint64:
		s = strconv.FormatUint(v, 10)
	case uint32:
		s = strconv.FormatUint(uint64(v), 10)
	case fmt.Stringer:
		s = v.String()
	default:
		switch reflect.ValueOf(v).Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			// collections are never a single identifier
			return "", false
		}
		// custom identifier types
		s = fmt.Sprintf("%v", v)
	}

	if s == "" {
		return "", false
	}
	return s, true
}
