// Package callgraph follows an entry handler's field accesses to the
// methods it delegates to.
package callgraph

import (
	sitter "github.com/smacker/go-tree-sitter"

	"specpilot/internal/cache"
	"specpilot/internal/extractor"
)

// ClassFinder resolves class declarations by name within a project root.
type ClassFinder interface {
	FindClass(root, name string) (cache.Lookup, bool)
}

// ServiceCall is one this.<Field>.<Method>(...) call. TargetType is the
// symbol name of the field's declared type and may be empty.
type ServiceCall struct {
	Field      string
	TargetType string
	Method     string
	Node       *sitter.Node
}

// Tracer resolves delegation calls out of entry handlers.
type Tracer struct {
	finder ClassFinder
}

func NewTracer(finder ClassFinder) *Tracer {
	return &Tracer{finder: finder}
}

// FirstServiceCall returns the first this.<field>.<method>(...) call in a
// pre-order walk of the handler body. It reports false when the class or
// method is missing or no call qualifies.
func (t *Tracer) FirstServiceCall(root, entryClass, entryMethod string) (ServiceCall, bool) {
	cls, m, ok := t.method(root, entryClass, entryMethod)
	if !ok {
		return ServiceCall{}, false
	}
	binding := NewFieldBinding(cls)

	var (
		result ServiceCall
		found  bool
	)
	m.Walk(func(n *sitter.Node) bool {
		if found {
			return false
		}
		if n.Type() != "call_expression" {
			return true
		}
		field, method, ok := extractor.ThisFieldCall(n, cls.File.Source)
		if !ok {
			return true
		}
		target, _ := binding.Lookup(field)
		result = ServiceCall{Field: field, TargetType: target, Method: method, Node: n}
		found = true
		return false
	})
	return result, found
}

// ServiceCalls returns every this.<field>.<method>(...) call in document
// order whose field is a typed constructor parameter.
func (t *Tracer) ServiceCalls(root, entryClass, entryMethod string) ([]ServiceCall, bool) {
	cls, m, ok := t.method(root, entryClass, entryMethod)
	if !ok {
		return nil, false
	}
	return collectServiceCalls(cls, m), true
}

func collectServiceCalls(cls *extractor.Class, m *extractor.Method) []ServiceCall {
	binding := NewFieldBinding(cls)

	var calls []ServiceCall
	m.Walk(func(n *sitter.Node) bool {
		if n.Type() != "call_expression" {
			return true
		}
		field, method, ok := extractor.ThisFieldCall(n, cls.File.Source)
		if !ok || !binding.Injected(field) {
			return true
		}
		target, _ := binding.Lookup(field)
		calls = append(calls, ServiceCall{Field: field, TargetType: target, Method: method, Node: n})
		return true
	})
	return calls
}

// Method resolves a class and one of its methods.
func (t *Tracer) Method(root, className, methodName string) (*extractor.Method, bool) {
	_, m, ok := t.method(root, className, methodName)
	return m, ok
}

func (t *Tracer) method(root, className, methodName string) (*extractor.Class, *extractor.Method, bool) {
	lookup, ok := t.finder.FindClass(root, className)
	if !ok {
		return nil, nil, false
	}
	m, ok := lookup.Class.Method(methodName)
	if !ok {
		return nil, nil, false
	}
	return lookup.Class, m, true
}
