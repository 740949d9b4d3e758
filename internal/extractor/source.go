package extractor

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Root returns the program node of the file.
func (f *SourceFile) Root() *sitter.Node {
	return f.root
}

// Text returns the source text of a node belonging to this file.
func (f *SourceFile) Text(n *sitter.Node) string {
	return Content(n, f.Source)
}

// ClassNames lists the top-level class names in declaration order.
func (f *SourceFile) ClassNames() []string {
	var names []string
	for _, d := range f.decls {
		if d.kind == declClass {
			names = append(names, d.name)
		}
	}
	return names
}

// Class returns the first top-level class with the given name.
func (f *SourceFile) Class(name string) (*Class, bool) {
	for _, d := range f.decls {
		if d.kind == declClass && d.name == name {
			return newClass(f, name, d.node), true
		}
	}
	return nil, false
}

// HasEnum reports whether the file declares a top-level enum with the given name.
func (f *SourceFile) HasEnum(name string) bool {
	for _, d := range f.decls {
		if d.kind == declEnum && d.name == name {
			return true
		}
	}
	return false
}

// Enum returns the top-level enum with the given name.
func (f *SourceFile) Enum(name string) (*Enum, bool) {
	for _, d := range f.decls {
		if d.kind == declEnum && d.name == name {
			return f.buildEnum(name, d.node), true
		}
	}
	return nil, false
}

// Imports returns every named import binding of the file in document order.
// Default and namespace imports are reported with Name equal to Local.
func (f *SourceFile) Imports() []Import {
	var out []Import
	for i := 0; i < int(f.root.NamedChildCount()); i++ {
		stmt := f.root.NamedChild(i)
		if stmt.Type() != "import_statement" {
			continue
		}
		module := unquote(f.Text(stmt.ChildByFieldName("source")))
		clause := namedChildOfType(stmt, "import_clause")
		if clause == nil {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			c := clause.NamedChild(j)
			switch c.Type() {
			case "identifier":
				name := f.Text(c)
				out = append(out, Import{Module: module, Name: name, Local: name})
			case "named_imports":
				for k := 0; k < int(c.NamedChildCount()); k++ {
					spec := c.NamedChild(k)
					if spec.Type() != "import_specifier" {
						continue
					}
					name := f.Text(spec.ChildByFieldName("name"))
					local := name
					if alias := spec.ChildByFieldName("alias"); alias != nil {
						local = f.Text(alias)
					}
					out = append(out, Import{Module: module, Name: name, Local: local})
				}
			}
		}
	}
	return out
}

func (f *SourceFile) buildEnum(name string, node *sitter.Node) *Enum {
	e := &Enum{Name: name, File: f}
	body := node.ChildByFieldName("body")
	if body == nil {
		return e
	}

	next := 0.0
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		switch c.Type() {
		case "property_identifier", "string":
			e.Members = append(e.Members, EnumMember{Name: unquote(f.Text(c)), Value: next})
			next++
		case "enum_assignment":
			member := EnumMember{Name: unquote(f.Text(c.ChildByFieldName("name")))}
			if v, ok := Eval(c.ChildByFieldName("value"), f.Source); ok {
				member.Value = v
				if n, isNum := v.(float64); isNum {
					next = n + 1
				}
			} else {
				member.Value = next
				next++
			}
			e.Members = append(e.Members, member)
		}
	}
	return e
}
