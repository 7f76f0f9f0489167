package scene

import (
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ValueType enumerates the closed set of attribute value kinds.
type ValueType uint8

const (
	InvalidType ValueType = iota
	ScalarType
	VectorType
	StringType
)

func (t ValueType) String() string {
	switch t {
	case ScalarType:
		return "scalar"
	case VectorType:
		return "vector"
	case StringType:
		return "string"
	default:
		return "invalid"
	}
}

// Value is an attribute value: a scalar, a three component vector or a string.
type Value struct {
	typ ValueType
	num float64
	vec Vec3
	str string
}

func Scalar(f float64) Value    { return Value{typ: ScalarType, num: f} }
func Vector(v Vec3) Value       { return Value{typ: VectorType, vec: v} }
func Vec(x, y, z float64) Value { return Vector(Vec3{x, y, z}) }
func String(s string) Value     { return Value{typ: StringType, str: s} }
func (v Value) Type() ValueType { return v.typ }
func (v Value) Float() float64  { return v.num }
func (v Value) Vec() Vec3       { return v.vec }
func (v Value) Str() string     { return v.str }
func (v Value) IsValid() bool   { return v.typ != InvalidType }

// Equal compares two values of the same type. Numeric components match when
// they differ by at most tol; tol 0 means exact equality, with NaN equal to NaN.
func (v Value) Equal(o Value, tol float64) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case ScalarType:
		return floatEqual(v.num, o.num, tol)
	case VectorType:
		for i := range v.vec {
			if !floatEqual(v.vec[i], o.vec[i], tol) {
				return false
			}
		}
		return true
	case StringType:
		return v.str == o.str
	default:
		return true
	}
}

func floatEqual(a, b, tol float64) bool {
	if a == b {
		return true
	}
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return tol > 0 && math.Abs(a-b) <= tol
}

func (v Value) String() string {
	switch v.typ {
	case ScalarType:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case VectorType:
		return fmt.Sprintf("(%s, %s, %s)",
			strconv.FormatFloat(v.vec[0], 'g', -1, 64),
			strconv.FormatFloat(v.vec[1], 'g', -1, 64),
			strconv.FormatFloat(v.vec[2], 'g', -1, 64))
	case StringType:
		return strconv.Quote(v.str)
	default:
		return "<invalid>"
	}
}

// ValueOf converts decoded configuration data into a Value. Numbers become
// scalars, strings stay strings and three element numeric lists become vectors.
func ValueOf(raw any) (Value, error) {
	switch x := raw.(type) {
	case Value:
		return x, nil
	case float64:
		return Scalar(x), nil
	case float32:
		return Scalar(float64(x)), nil
	case int:
		return Scalar(float64(x)), nil
	case int64:
		return Scalar(float64(x)), nil
	case uint64:
		return Scalar(float64(x)), nil
	case bool:
		if x {
			return Scalar(1), nil
		}
		return Scalar(0), nil
	case string:
		return String(x), nil
	case Vec3:
		return Vector(x), nil
	case []float64:
		if len(x) != 3 {
			return Value{}, fmt.Errorf("vector needs 3 components, got %d", len(x))
		}
		return Vec(x[0], x[1], x[2]), nil
	case []any:
		if len(x) != 3 {
			return Value{}, fmt.Errorf("vector needs 3 components, got %d", len(x))
		}
		var out Vec3
		for i, c := range x {
			s, err := ValueOf(c)
			if err != nil || s.typ != ScalarType {
				return Value{}, fmt.Errorf("vector component %d is not numeric", i)
			}
			out[i] = s.num
		}
		return Vector(out), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

// MarshalYAML writes scalars as floats, vectors as three element flow lists
// and strings as strings. Floats use the shortest representation that parses
// back to the same bits.
func (v Value) MarshalYAML() (any, error) {
	switch v.typ {
	case ScalarType:
		return floatNode(v.num), nil
	case VectorType:
		node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, c := range v.vec {
			node.Content = append(node.Content, floatNode(c))
		}
		return node, nil
	case StringType:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.str, Style: yaml.DoubleQuotedStyle}, nil
	default:
		return nil, fmt.Errorf("cannot marshal invalid value")
	}
}

func floatNode(f float64) *yaml.Node {
	var s string
	switch {
	case math.IsNaN(f):
		s = ".nan"
	case math.IsInf(f, 1):
		s = ".inf"
	case math.IsInf(f, -1):
		s = "-.inf"
	default:
		s = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Value: s}
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!float", "!!int":
			var f float64
			if err := node.Decode(&f); err != nil {
				return err
			}
			*v = Scalar(f)
			return nil
		case "!!str":
			*v = String(node.Value)
			return nil
		default:
			return fmt.Errorf("line %d: unsupported scalar %s", node.Line, node.ShortTag())
		}
	case yaml.SequenceNode:
		if len(node.Content) != 3 {
			return fmt.Errorf("line %d: vector needs 3 components, got %d", node.Line, len(node.Content))
		}
		var out Vec3
		for i, c := range node.Content {
			if err := c.Decode(&out[i]); err != nil {
				return fmt.Errorf("line %d: vector component %d: %w", c.Line, i, err)
			}
		}
		*v = Vector(out)
		return nil
	default:
		return fmt.Errorf("line %d: unsupported value node", node.Line)
	}
}
