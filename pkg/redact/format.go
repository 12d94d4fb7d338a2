package redact

import (
	"reflect"
	"strconv"
)

func formatArrayPathPart(path string, index int) string {
	return path + "[" + strconv.Itoa(index) + "]"
}

func formatFieldPathPart(path, current string) string {
	if path == "" {
		return current
	}
	return path + "." + current
}

// formatKind maps a reflected kind to the JSON-ish type name reported in
// redaction metadata.
func formatKind(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.Array, reflect.Slice:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.String:
		return "string"
	case reflect.Invalid:
		return "null"
	default:
		return "unknown"
	}
}

// kindOf unwraps interfaces and pointers so map entries report the kind of
// the value they hold.
func kindOf(v reflect.Value) reflect.Kind {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return reflect.Invalid
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return reflect.Invalid
	}
	return v.Kind()
}
