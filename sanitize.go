package edgelog

import (
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Maximum recursion depth when converting values
const maxSanitizeDepth = 10

const (
	markerNil        = "<nil>"
	markerCircular   = "<circular reference>"
	markerMaxDepth   = "<max depth reached>"
	unsupportedFmt   = "<%s>"
	sanitizedNaN     = "NaN"
	sanitizedPosInf  = "+Inf"
	sanitizedNegInf  = "-Inf"
	jsonTagName      = "json"
	jsonTagOmitField = "-"
)

var (
	errorType         = reflect.TypeOf((*error)(nil)).Elem()
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// sanitize converts v into a tree of maps, slices and scalars that
// encoding/json can always encode. Structs become maps of their exported
// fields, errors are decomposed, cycles and excessive depth are replaced by
// marker strings and values JSON cannot represent (funcs, channels, NaN)
// become descriptive strings.
func sanitize(v any) any {
	if v == nil {
		return nil
	}
	visited := make(map[uintptr]bool)
	return sanitizeValue(reflect.ValueOf(v), visited, 0)
}

// sanitizeFields applies sanitize to every value of f.
func sanitizeFields(f Fields) map[string]any {
	if len(f) == 0 {
		return nil
	}
	out := make(map[string]any, len(f))
	for k, v := range f {
		out[k] = sanitize(v)
	}
	return out
}

func sanitizeValue(val reflect.Value, visited map[uintptr]bool, depth int) any {
	if !val.IsValid() {
		return nil
	}
	if depth > maxSanitizeDepth {
		return markerMaxDepth
	}

	for val.Kind() == reflect.Interface {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	typ := val.Type()
	if val.CanInterface() {
		switch {
		case typ.Implements(errorType):
			if isNilable(val) && val.IsNil() {
				return nil
			}
			return map[string]any(errorFields(val.Interface().(error)))
		case typ.Implements(jsonMarshalerType), typ.Implements(textMarshalerType):
			if isNilable(val) && val.IsNil() {
				return nil
			}
			return val.Interface()
		}
	}

	switch val.Kind() {
	case reflect.Ptr:
		if val.IsNil() {
			return nil
		}
		ptr := val.Pointer()
		if visited[ptr] {
			return markerCircular
		}
		visited[ptr] = true
		defer delete(visited, ptr)
		return sanitizeValue(val.Elem(), visited, depth+1)

	case reflect.Struct:
		out := make(map[string]any, val.NumField())
		for i := 0; i < val.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			name := field.Name
			if tag, ok := field.Tag.Lookup(jsonTagName); ok {
				tagName, _, _ := strings.Cut(tag, ",")
				if tagName == jsonTagOmitField {
					continue
				}
				if tagName != emptyString {
					name = tagName
				}
			}
			out[name] = sanitizeValue(val.Field(i), visited, depth+1)
		}
		return out

	case reflect.Map:
		if val.IsNil() {
			return nil
		}
		ptr := val.Pointer()
		if visited[ptr] {
			return markerCircular
		}
		visited[ptr] = true
		defer delete(visited, ptr)

		out := make(map[string]any, val.Len())
		iter := val.MapRange()
		for iter.Next() {
			key := fmt.Sprintf("%v", iter.Key().Interface())
			out[key] = sanitizeValue(iter.Value(), visited, depth+1)
		}
		return out

	case reflect.Slice:
		if val.IsNil() {
			return nil
		}
		if typ.Elem().Kind() == reflect.Uint8 {
			return val.Bytes()
		}
		return sanitizeList(val, visited, depth)

	case reflect.Array:
		return sanitizeList(val, visited, depth)

	case reflect.Float32, reflect.Float64:
		f := val.Float()
		switch {
		case math.IsNaN(f):
			return sanitizedNaN
		case math.IsInf(f, 1):
			return sanitizedPosInf
		case math.IsInf(f, -1):
			return sanitizedNegInf
		}
		return f

	case reflect.Complex64, reflect.Complex128:
		return fmt.Sprintf("%v", val.Complex())

	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		if val.IsNil() {
			return nil
		}
		return fmt.Sprintf(unsupportedFmt, typ.String())

	case reflect.String:
		return val.String()

	case reflect.Bool:
		return val.Bool()

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return val.Int()

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return val.Uint()

	default:
		if val.CanInterface() {
			return val.Interface()
		}
		return markerNil
	}
}

func sanitizeList(val reflect.Value, visited map[uintptr]bool, depth int) []any {
	out := make([]any, val.Len())
	for i := 0; i < val.Len(); i++ {
		out[i] = sanitizeValue(val.Index(i), visited, depth+1)
	}
	return out
}

func isNilable(val reflect.Value) bool {
	switch val.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}
