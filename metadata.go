package fleet

// Value is the tagged-union opaque value used by Instance.Metadata and by
// event payload extras. The core never introspects a Value beyond storing
// and returning it; callers decode at the use site.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	list []Value
	m    map[string]Value
}

// Kind identifies which field of a Value is populated.
type Kind int

const (
	KindNil Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "nil"
	}
}

func StringValue(v string) Value             { return Value{kind: KindString, s: v} }
func IntValue(v int64) Value                 { return Value{kind: KindInt, i: v} }
func FloatValue(v float64) Value             { return Value{kind: KindFloat, f: v} }
func BoolValue(v bool) Value                 { return Value{kind: KindBool, b: v} }
func ListValue(v []Value) Value              { return Value{kind: KindList, list: v} }
func MapValue(v map[string]Value) Value      { return Value{kind: KindMap, m: v} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) String() (string, bool) {
	return v.s, v.kind == KindString
}

func (v Value) Int() (int64, bool) {
	return v.i, v.kind == KindInt
}

func (v Value) Float() (float64, bool) {
	return v.f, v.kind == KindFloat
}

func (v Value) Bool() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v Value) List() ([]Value, bool) {
	return v.list, v.kind == KindList
}

func (v Value) Map() (map[string]Value, bool) {
	return v.m, v.kind == KindMap
}

// Metadata is the caller-owned, string-keyed opaque value bag attached to
// every Instance.
type Metadata map[string]Value

// Clone returns a shallow copy so callers can't mutate an Instance's bag
// through a reference they were handed.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
