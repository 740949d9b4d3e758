package extractor

import sitter "github.com/smacker/go-tree-sitter"

// SourceFile is one parsed TypeScript file. The tree stays alive for as long
// as the file is referenced, so nodes handed out by Class and Method remain valid.
type SourceFile struct {
	Path   string
	Source []byte

	tree  *sitter.Tree
	root  *sitter.Node
	decls []declaration
}

type declKind string

const (
	declClass declKind = "class"
	declEnum  declKind = "enum"
)

type declaration struct {
	kind declKind
	name string
	node *sitter.Node
}

// Class is a class declaration found in a SourceFile.
type Class struct {
	Name       string
	File       *SourceFile
	Node       *sitter.Node
	Decorators []Decorator
}

// Method is a method (or constructor) of a Class.
type Method struct {
	Name       string
	Class      *Class
	Node       *sitter.Node
	Decorators []Decorator
	Async      bool
}

// Param is one formal parameter of a Method.
type Param struct {
	Name       string
	Type       string // declared type text without the leading colon
	Optional   bool   // "?" marker
	Default    bool   // has an initializer
	Property   bool   // constructor parameter property (private/public/readonly)
	Decorators []Decorator
	Node       *sitter.Node
}

// Property is a declared class field.
type Property struct {
	Name        string
	Type        string
	Optional    bool // "?" marker
	Initializer bool
	Decorators  []Decorator
	Node        *sitter.Node
}

// Decorator is an annotation attached to a class, member or parameter.
// Args holds the argument expression nodes of a call-style decorator.
type Decorator struct {
	Name string
	Args []*sitter.Node
	Node *sitter.Node
}

// Import is one named binding from an import statement.
type Import struct {
	Module string // module specifier, unquoted
	Name   string // exported name
	Local  string // local alias (equals Name when not aliased)
}

// Enum is an enum declaration with its members in declaration order.
type Enum struct {
	Name    string
	File    *SourceFile
	Members []EnumMember
}

// EnumMember is one enum entry. Value is a string or float64.
type EnumMember struct {
	Name  string
	Value any
}

// Arg returns the i-th argument node, or nil.
func (d Decorator) Arg(i int) *sitter.Node {
	if i < 0 || i >= len(d.Args) {
		return nil
	}
	return d.Args[i]
}

// HasDecorator reports whether any decorator in decs has one of the names.
func HasDecorator(decs []Decorator, names ...string) bool {
	_, ok := FindDecorator(decs, names...)
	return ok
}

// FindDecorator returns the first decorator matching one of the names.
func FindDecorator(decs []Decorator, names ...string) (Decorator, bool) {
	for _, d := range decs {
		for _, n := range names {
			if d.Name == n {
				return d, true
			}
		}
	}
	return Decorator{}, false
}

// DecoratorNames returns the set of decorator names.
func DecoratorNames(decs []Decorator) map[string]bool {
	set := make(map[string]bool, len(decs))
	for _, d := range decs {
		set[d.Name] = true
	}
	return set
}
