package extractor

import (
	sitter "github.com/smacker/go-tree-sitter"
)

func newClass(f *SourceFile, name string, node *sitter.Node) *Class {
	// "@Injectable() export class X" attaches the decorator to the export
	// statement, where it is a preceding sibling of the class node.
	return &Class{Name: name, File: f, Node: node, Decorators: collectDecorators(f, node)}
}

func (c *Class) body() *sitter.Node {
	return c.Node.ChildByFieldName("body")
}

// Extends returns the base class name when the class extends a plain
// identifier, or "".
func (c *Class) Extends() string {
	heritage := namedChildOfType(c.Node, "class_heritage")
	if heritage == nil {
		return ""
	}
	clause := namedChildOfType(heritage, "extends_clause")
	if clause == nil {
		return ""
	}
	v := clause.ChildByFieldName("value")
	if v == nil && clause.NamedChildCount() > 0 {
		v = clause.NamedChild(0)
	}
	if v == nil || v.Type() != "identifier" {
		return ""
	}
	return c.File.Text(v)
}

// Properties returns the declared fields of the class in declaration order.
func (c *Class) Properties() []Property {
	body := c.body()
	if body == nil {
		return nil
	}
	var props []Property
	for i := 0; i < int(body.NamedChildCount()); i++ {
		n := body.NamedChild(i)
		if n.Type() != "public_field_definition" && n.Type() != "field_definition" {
			continue
		}
		name := n.ChildByFieldName("name")
		if name == nil {
			name = n.ChildByFieldName("property")
		}
		if name == nil {
			continue
		}
		props = append(props, Property{
			Name:        unquote(c.File.Text(name)),
			Type:        typeText(c.File, n.ChildByFieldName("type")),
			Optional:    hasToken(n, "?"),
			Initializer: n.ChildByFieldName("value") != nil,
			Decorators:  collectDecorators(c.File, n),
			Node:        n,
		})
	}
	return props
}

// Property returns the declared field with the given name.
func (c *Class) Property(name string) (Property, bool) {
	for _, p := range c.Properties() {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Methods returns the methods of the class, excluding the constructor.
func (c *Class) Methods() []*Method {
	var out []*Method
	for _, m := range c.allMethods() {
		if m.Name != "constructor" {
			out = append(out, m)
		}
	}
	return out
}

// Method returns the first method with the given name.
func (c *Class) Method(name string) (*Method, bool) {
	if name == "constructor" {
		return nil, false
	}
	for _, m := range c.allMethods() {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Constructor returns the first constructor implementation of the class.
func (c *Class) Constructor() (*Method, bool) {
	for _, m := range c.allMethods() {
		if m.Name == "constructor" {
			return m, true
		}
	}
	return nil, false
}

func (c *Class) allMethods() []*Method {
	body := c.body()
	if body == nil {
		return nil
	}
	var out []*Method
	for i := 0; i < int(body.NamedChildCount()); i++ {
		n := body.NamedChild(i)
		if n.Type() != "method_definition" {
			continue
		}
		// Overload signatures have no body and are method_signature nodes,
		// so every method_definition here is an implementation.
		out = append(out, &Method{
			Name:       unquote(c.File.Text(n.ChildByFieldName("name"))),
			Class:      c,
			Node:       n,
			Decorators: collectDecorators(c.File, n),
			Async:      hasToken(n, "async"),
		})
	}
	return out
}

// Body returns the statement block of the method, or nil for a bodiless declaration.
func (m *Method) Body() *sitter.Node {
	return m.Node.ChildByFieldName("body")
}

// File returns the source file declaring the method.
func (m *Method) File() *SourceFile {
	return m.Class.File
}

// ReturnType returns the declared return type text, or "" when not annotated.
func (m *Method) ReturnType() string {
	return typeText(m.Class.File, m.Node.ChildByFieldName("return_type"))
}

// Params returns the formal parameters of the method.
func (m *Method) Params() []Param {
	params := m.Node.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	f := m.Class.File
	var out []Param
	for i := 0; i < int(params.NamedChildCount()); i++ {
		n := params.NamedChild(i)
		if n.Type() != "required_parameter" && n.Type() != "optional_parameter" {
			continue
		}
		pattern := n.ChildByFieldName("pattern")
		if pattern == nil {
			pattern = namedChildOfType(n, "identifier")
		}
		out = append(out, Param{
			Name:       f.Text(pattern),
			Type:       typeText(f, n.ChildByFieldName("type")),
			Optional:   n.Type() == "optional_parameter",
			Default:    n.ChildByFieldName("value") != nil,
			Property:   namedChildOfType(n, "accessibility_modifier") != nil || hasToken(n, "readonly"),
			Decorators: collectDecorators(f, n),
			Node:       n,
		})
	}
	return out
}

// Walk visits every named node of the method body in document order.
func (m *Method) Walk(fn func(*sitter.Node) bool) {
	Walk(m.Body(), fn)
}

// Text returns the source text of a node inside the method.
func (m *Method) Text(n *sitter.Node) string {
	return m.Class.File.Text(n)
}

// typeText strips the leading colon of a type annotation and collapses whitespace.
func typeText(f *SourceFile, n *sitter.Node) string {
	if n == nil {
		return ""
	}
	if n.Type() == "type_annotation" && n.NamedChildCount() > 0 {
		n = n.NamedChild(0)
	}
	return CollapseWhitespace(f.Text(n))
}

// collectDecorators returns the decorators that precede n as siblings
// (method decorators in a class body) followed by n's own decorator children.
func collectDecorators(f *SourceFile, n *sitter.Node) []Decorator {
	var preceding []Decorator
	for prev := n.PrevNamedSibling(); prev != nil; prev = prev.PrevNamedSibling() {
		if prev.Type() == "comment" {
			continue
		}
		if prev.Type() != "decorator" {
			break
		}
		preceding = append([]Decorator{parseDecorator(f, prev)}, preceding...)
	}
	return append(preceding, directDecorators(f, n)...)
}

func directDecorators(f *SourceFile, n *sitter.Node) []Decorator {
	var out []Decorator
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "decorator" {
			out = append(out, parseDecorator(f, c))
		}
	}
	return out
}

func parseDecorator(f *SourceFile, n *sitter.Node) Decorator {
	d := Decorator{Node: n}
	if n.NamedChildCount() == 0 {
		return d
	}
	expr := n.NamedChild(0)
	if expr.Type() == "call_expression" {
		if args := expr.ChildByFieldName("arguments"); args != nil {
			for i := 0; i < int(args.NamedChildCount()); i++ {
				if a := args.NamedChild(i); a.Type() != "comment" {
					d.Args = append(d.Args, a)
				}
			}
		}
		expr = expr.ChildByFieldName("function")
	}
	if expr != nil && expr.Type() == "member_expression" {
		expr = expr.ChildByFieldName("property")
	}
	d.Name = f.Text(expr)
	return d
}
