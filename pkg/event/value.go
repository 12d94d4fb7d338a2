package event

// Value is the closed set of property values accepted by track properties:
// a Primitive, or a homogeneous list of one primitive kind.
// The marker method is unexported, so no type outside this package can
// satisfy it; nested objects and functions are rejected at compile time.
type Value interface {
	value()
}

// Primitive is the subset of Value accepted by user traits and exception
// tags/extra: String, Number or Bool.
type Primitive interface {
	Value
	primitive()
}

type (
	String  string
	Number  float64
	Bool    bool
	Strings []string
	Numbers []float64
	Bools   []bool
)

func (String) value()  {}
func (Number) value()  {}
func (Bool) value()    {}
func (Strings) value() {}
func (Numbers) value() {}
func (Bools) value()   {}

func (String) primitive() {}
func (Number) primitive() {}
func (Bool) primitive()   {}

// Plain converts v to the plain Go value it wraps.
func Plain(v Value) any {
	switch t := v.(type) {
	case String:
		return string(t)
	case Number:
		return float64(t)
	case Bool:
		return bool(t)
	case Strings:
		return append([]string(nil), t...)
	case Numbers:
		return append([]float64(nil), t...)
	case Bools:
		return append([]bool(nil), t...)
	default:
		return nil
	}
}

// PlainMap converts m with Plain. Entries holding a nil Value are skipped.
// Returns nil for an empty map.
func PlainMap[T Value](m map[string]T) map[string]any {
	if len(m) == 0 {
		return nil
	}
	ret := make(map[string]any, len(m))
	for k, v := range m {
		p := Plain(v)
		if p == nil {
			continue
		}
		ret[k] = p
	}
	return ret
}
