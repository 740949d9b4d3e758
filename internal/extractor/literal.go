package extractor

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// ObjectLiteral is an evaluated object literal with keys in source order.
type ObjectLiteral struct {
	Keys   []string
	Values map[string]any
}

// Get returns the value for key.
func (o ObjectLiteral) Get(key string) (any, bool) {
	v, ok := o.Values[key]
	return v, ok
}

// Eval evaluates a simple literal expression. Supported: strings, template
// strings without substitutions, numbers, booleans, null, undefined, arrays,
// objects, unary minus/plus, parentheses and + - * / over literal operands.
// Result types are string, float64, bool, nil, []any and ObjectLiteral.
// Anything else reports false.
func Eval(n *sitter.Node, source []byte) (any, bool) {
	if n == nil {
		return nil, false
	}
	switch n.Type() {
	case "string":
		return unquote(n.Content(source)), true
	case "template_string":
		if namedChildOfType(n, "template_substitution") != nil {
			return nil, false
		}
		return unquote(n.Content(source)), true
	case "number":
		return parseNumber(n.Content(source))
	case "true":
		return true, true
	case "false":
		return false, true
	case "null", "undefined":
		return nil, true
	case "parenthesized_expression":
		if n.NamedChildCount() == 0 {
			return nil, false
		}
		return Eval(n.NamedChild(0), source)
	case "unary_expression":
		return evalUnary(n, source)
	case "binary_expression":
		return evalBinary(n, source)
	case "array":
		var items []any
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() == "comment" {
				continue
			}
			v, ok := Eval(c, source)
			if !ok {
				return nil, false
			}
			items = append(items, v)
		}
		return items, true
	case "object":
		return evalObject(n, source)
	}
	return nil, false
}

// EvalNumber evaluates n and reports whether it is numeric.
func EvalNumber(n *sitter.Node, source []byte) (float64, bool) {
	v, ok := Eval(n, source)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func evalUnary(n *sitter.Node, source []byte) (any, bool) {
	op := Content(n.ChildByFieldName("operator"), source)
	v, ok := EvalNumber(n.ChildByFieldName("argument"), source)
	if !ok {
		return nil, false
	}
	switch op {
	case "-":
		return -v, true
	case "+":
		return v, true
	}
	return nil, false
}

func evalBinary(n *sitter.Node, source []byte) (any, bool) {
	op := Content(n.ChildByFieldName("operator"), source)
	left, ok := Eval(n.ChildByFieldName("left"), source)
	if !ok {
		return nil, false
	}
	right, ok := Eval(n.ChildByFieldName("right"), source)
	if !ok {
		return nil, false
	}

	ls, lstr := left.(string)
	rs, rstr := right.(string)
	if op == "+" && lstr && rstr {
		return ls + rs, true
	}

	l, lnum := left.(float64)
	r, rnum := right.(float64)
	if !lnum || !rnum {
		return nil, false
	}
	switch op {
	case "+":
		return l + r, true
	case "-":
		return l - r, true
	case "*":
		return l * r, true
	case "/":
		if r == 0 {
			return nil, false
		}
		return l / r, true
	}
	return nil, false
}

func evalObject(n *sitter.Node, source []byte) (any, bool) {
	obj := ObjectLiteral{Values: map[string]any{}}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "pair" {
			if c.Type() == "comment" {
				continue
			}
			return nil, false
		}
		key := unquote(Content(c.ChildByFieldName("key"), source))
		v, ok := Eval(c.ChildByFieldName("value"), source)
		if !ok {
			return nil, false
		}
		if _, seen := obj.Values[key]; !seen {
			obj.Keys = append(obj.Keys, key)
		}
		obj.Values[key] = v
	}
	return obj, true
}

func parseNumber(text string) (any, bool) {
	text = strings.ReplaceAll(text, "_", "")
	if i, err := strconv.ParseInt(text, 0, 64); err == nil {
		return float64(i), true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, false
	}
	return f, true
}

// unquote strips matching quote characters and resolves the common escapes.
func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'' || first == '`') {
			s = s[1 : len(s)-1]
			r := strings.NewReplacer(`\\`, `\`, `\'`, `'`, `\"`, `"`, "\\`", "`", `\n`, "\n", `\t`, "\t")
			return r.Replace(s)
		}
	}
	return s
}
