package payload

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"specpilot/internal/extractor"
)

// Kind tags a Value.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindNull
	KindArray
	KindObject
)

// Field is one key of an object Value.
type Field struct {
	Key   string
	Value Value
}

// Value is a synthesized payload: a plain tree of scalars, arrays and
// objects whose fields keep declaration order.
type Value struct {
	Kind   Kind
	Str    string
	Num    float64
	Bool   bool
	Items  []Value
	Fields []Field
}

func String(s string) Value { return Value{Kind: KindString, Str: s} }

func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

func Null() Value { return Value{Kind: KindNull} }

func Array(items ...Value) Value {
	return Value{Kind: KindArray, Items: append([]Value{}, items...)}
}

func Object(fields ...Field) Value {
	return Value{Kind: KindObject, Fields: append([]Field{}, fields...)}
}

// Get returns the field with the given key of an object value.
func (v Value) Get(key string) (Value, bool) {
	for _, f := range v.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// FromLiteral converts an evaluated source literal into a Value.
func FromLiteral(lit any) Value {
	switch x := lit.(type) {
	case string:
		return String(x)
	case float64:
		return Number(x)
	case bool:
		return Bool(x)
	case []any:
		items := make([]Value, 0, len(x))
		for _, it := range x {
			items = append(items, FromLiteral(it))
		}
		return Array(items...)
	case extractor.ObjectLiteral:
		fields := make([]Field, 0, len(x.Keys))
		for _, k := range x.Keys {
			fields = append(fields, Field{Key: k, Value: FromLiteral(x.Values[k])})
		}
		return Object(fields...)
	}
	return Null()
}

// Literal renders the value as a TypeScript expression. Object keys are
// quoted only when they are not valid identifiers.
func (v Value) Literal() string {
	var b strings.Builder
	v.writeLiteral(&b, "")
	return b.String()
}

func (v Value) writeLiteral(b *strings.Builder, indent string) {
	switch v.Kind {
	case KindObject:
		if len(v.Fields) == 0 {
			b.WriteString("{}")
			return
		}
		inner := indent + "  "
		b.WriteString("{\n")
		for i, f := range v.Fields {
			b.WriteString(inner)
			if extractor.IsIdentifier(f.Key) {
				b.WriteString(f.Key)
			} else {
				b.WriteString(quote(f.Key))
			}
			b.WriteString(": ")
			f.Value.writeLiteral(b, inner)
			if i < len(v.Fields)-1 {
				b.WriteString(",")
			}
			b.WriteString("\n")
		}
		b.WriteString(indent)
		b.WriteString("}")
	case KindArray:
		b.WriteString("[")
		for i, it := range v.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			it.writeLiteral(b, indent)
		}
		b.WriteString("]")
	default:
		b.WriteString(v.scalarJSON())
	}
}

func (v Value) scalarJSON() string {
	switch v.Kind {
	case KindString:
		return quote(v.Str)
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	}
	return "null"
}

// MarshalJSON encodes the value with object keys in declaration order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	v.writeJSON(&buf)
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) {
	switch v.Kind {
	case KindObject:
		buf.WriteByte('{')
		for i, f := range v.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(quote(f.Key))
			buf.WriteByte(':')
			f.Value.writeJSON(buf)
		}
		buf.WriteByte('}')
	case KindArray:
		buf.WriteByte('[')
		for i, it := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			it.writeJSON(buf)
		}
		buf.WriteByte(']')
	default:
		buf.WriteString(v.scalarJSON())
	}
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
