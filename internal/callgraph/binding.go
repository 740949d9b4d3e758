package callgraph

import "specpilot/internal/extractor"

// FieldBinding maps instance field names to the symbol name of their
// declared type. Typed class properties take precedence over constructor
// parameters of the same name; an untyped property falls through to the
// parameter.
type FieldBinding struct {
	fields   map[string]string
	injected map[string]bool
}

// NewFieldBinding builds the binding for cls.
func NewFieldBinding(cls *extractor.Class) FieldBinding {
	b := FieldBinding{
		fields:   make(map[string]string),
		injected: make(map[string]bool),
	}
	var untyped []string
	for _, p := range cls.Properties() {
		if _, seen := b.fields[p.Name]; seen {
			continue
		}
		if t := extractor.TypeSymbolName(p.Type); t != "" {
			b.fields[p.Name] = t
		} else {
			untyped = append(untyped, p.Name)
		}
	}
	if ctor, ok := cls.Constructor(); ok {
		for _, p := range ctor.Params() {
			if t, seen := b.fields[p.Name]; !seen || t == "" {
				b.fields[p.Name] = extractor.TypeSymbolName(p.Type)
			}
			if extractor.TypeSymbolName(p.Type) != "" {
				b.injected[p.Name] = true
			}
		}
	}
	for _, name := range untyped {
		if _, seen := b.fields[name]; !seen {
			b.fields[name] = ""
		}
	}
	return b
}

// Lookup returns the type symbol bound to field. A field that exists but
// has no declared type reports ("", true).
func (b FieldBinding) Lookup(field string) (string, bool) {
	t, ok := b.fields[field]
	return t, ok
}

// Injected reports whether field is a typed constructor parameter.
func (b FieldBinding) Injected(field string) bool {
	return b.injected[field]
}
