package database

import (
	"cmp"
	"strconv"
)

// Value is a typed scalar. It backs literals, key tuples and exported cells.
type Value struct {
	typ Type
	b   bool
	n   float64
	s   string
}

func BooleanValue(b bool) Value    { return Value{typ: Boolean, b: b} }
func NumericValue(n float64) Value { return Value{typ: Numeric, n: n} }
func StringValue(s string) Value   { return Value{typ: String, s: s} }

// ValueOf converts a Go scalar (bool, string or any integer/float kind).
func ValueOf(v interface{}) (Value, bool) {
	switch x := v.(type) {
	case Value:
		return x, true
	case bool:
		return BooleanValue(x), true
	case string:
		return StringValue(x), true
	case float64:
		return NumericValue(x), true
	case float32:
		return NumericValue(float64(x)), true
	case int:
		return NumericValue(float64(x)), true
	case int32:
		return NumericValue(float64(x)), true
	case int64:
		return NumericValue(float64(x)), true
	case uint:
		return NumericValue(float64(x)), true
	case uint32:
		return NumericValue(float64(x)), true
	case uint64:
		return NumericValue(float64(x)), true
	default:
		return Value{}, false
	}
}

// ValueFrom reads column i of r as a Value of type typ.
func ValueFrom(r Record, i int, typ Type) Value {
	switch typ {
	case Boolean:
		return BooleanValue(r.GetBoolean(i))
	case Numeric:
		return NumericValue(r.GetNumeric(i))
	case String:
		return StringValue(r.GetString(i))
	default:
		badAccess("cannot read column %d of type %s", i, typ)
		return Value{}
	}
}

func (v Value) Type() Type { return v.typ }

func (v Value) Boolean() bool {
	if v.typ != Boolean {
		badAccess("value of type %s read as BOOLEAN", v.typ)
	}
	return v.b
}

func (v Value) Numeric() float64 {
	if v.typ != Numeric {
		badAccess("value of type %s read as NUMERIC", v.typ)
	}
	return v.n
}

func (v Value) Str() string {
	if v.typ != String {
		badAccess("value of type %s read as STRING", v.typ)
	}
	return v.s
}

// Interface returns the value as a plain Go scalar.
func (v Value) Interface() interface{} {
	switch v.typ {
	case Boolean:
		return v.b
	case Numeric:
		return v.n
	case String:
		return v.s
	default:
		return nil
	}
}

// Compare orders values of the same type: false < true, NaN lowest among
// numbers, strings lexicographically.
func (v Value) Compare(o Value) int {
	if v.typ != o.typ {
		badAccess("comparing %s with %s", v.typ, o.typ)
	}
	switch v.typ {
	case Boolean:
		return CompareBooleans(v.b, o.b)
	case Numeric:
		return cmp.Compare(v.n, o.n)
	default:
		return cmp.Compare(v.s, o.s)
	}
}

func (v Value) String() string {
	switch v.typ {
	case Boolean:
		return strconv.FormatBool(v.b)
	case Numeric:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case String:
		return v.s
	default:
		return "<undefined>"
	}
}

// Quoted renders strings in single quotes, as they appear in expressions.
func (v Value) Quoted() string {
	if v.typ == String {
		return "'" + v.s + "'"
	}
	return v.String()
}

func CompareBooleans(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// CompareColumn compares column i of two records of the same schema.
func CompareColumn(typ Type, a Record, i int, b Record, j int) int {
	switch typ {
	case Boolean:
		return CompareBooleans(a.GetBoolean(i), b.GetBoolean(j))
	case Numeric:
		return cmp.Compare(a.GetNumeric(i), b.GetNumeric(j))
	case String:
		return cmp.Compare(a.GetString(i), b.GetString(j))
	default:
		badAccess("cannot compare columns of type %s", typ)
		return 0
	}
}

// Tuple is an ordered list of values, used to remember key values after the
// record they came from has been invalidated.
type Tuple []Value

// CaptureTuple copies the given columns of r into dst, reusing its storage.
func CaptureTuple(dst Tuple, r Record, schema *Schema, columns []int) Tuple {
	dst = dst[:0]
	for _, c := range columns {
		dst = append(dst, ValueFrom(r, c, schema.Column(c).Type()))
	}
	return dst
}

// CompareRecord compares the tuple lexicographically against columns of r.
func (t Tuple) CompareRecord(r Record, columns []int) int {
	for i, c := range columns {
		v := t[i]
		var d int
		switch v.typ {
		case Boolean:
			d = CompareBooleans(v.b, r.GetBoolean(c))
		case Numeric:
			d = cmp.Compare(v.n, r.GetNumeric(c))
		default:
			d = cmp.Compare(v.s, r.GetString(c))
		}
		if d != 0 {
			return d
		}
	}
	return 0
}

func (t Tuple) Compare(o Tuple) int {
	for i := range t {
		if d := t[i].Compare(o[i]); d != 0 {
			return d
		}
	}
	return cmp.Compare(len(t), len(o))
}

// CompareRecords compares columns ca of a against columns cb of b.
func CompareRecords(schema *Schema, a Record, ca []int, b Record, cb []int) int {
	for i := range ca {
		if d := CompareColumn(schema.Column(ca[i]).Type(), a, ca[i], b, cb[i]); d != 0 {
			return d
		}
	}
	return 0
}
