// Package exceptions picks the representative error type a class is
// likely to raise.
package exceptions

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"specpilot/internal/cache"
	"specpilot/internal/extractor"
)

// FrameworkModule is the module whose exception imports count as hints.
const FrameworkModule = "@nestjs/common"

// Priority lists the well-known exceptions in preference order. A match
// here always beats usage frequency.
var Priority = []string{
	"NotFoundException",
	"ConflictException",
	"BadRequestException",
	"UnauthorizedException",
	"ForbiddenException",
	"GoneException",
	"UnprocessableEntityException",
}

// Construction weights.
const (
	weightThrown = 2
	weightNew    = 1
)

// Hint is the inferred exception and the module it is imported from
// ("" when declared locally).
type Hint struct {
	Name       string
	ImportFrom string
}

type ClassFinder interface {
	FindClass(root, name string) (cache.Lookup, bool)
}

// Inferrer infers exceptions per class.
type Inferrer struct {
	finder ClassFinder
}

func NewInferrer(finder ClassFinder) *Inferrer {
	return &Inferrer{finder: finder}
}

// signals holds what was seen in the declaring file.
type signals struct {
	imported    []string       // framework exception names in import order
	constructed map[string]int // name -> accumulated weight
	order       []string       // constructed names in first-seen order
	modules     map[string]string
}

// Infer returns the representative exception for className.
func (i *Inferrer) Infer(root, className string) (Hint, bool) {
	lookup, ok := i.finder.FindClass(root, className)
	if !ok {
		return Hint{}, false
	}
	s := collect(lookup.Class)

	name, ok := priorityMatch(s)
	if !ok {
		name, ok = heaviest(s)
	}
	if !ok && len(s.imported) > 0 {
		name, ok = s.imported[0], true
	}
	if !ok {
		return Hint{}, false
	}
	return Hint{Name: name, ImportFrom: s.modules[name]}, true
}

func collect(cls *extractor.Class) signals {
	s := signals{
		constructed: make(map[string]int),
		modules:     make(map[string]string),
	}

	s.imported = ImportedExceptions(cls.File)
	aliases := make(map[string]string)
	for _, imp := range cls.File.Imports() {
		aliases[imp.Local] = imp.Name
		if _, seen := s.modules[imp.Name]; !seen {
			s.modules[imp.Name] = imp.Module
		}
	}

	src := cls.File.Source
	extractor.Walk(cls.Node, func(n *sitter.Node) bool {
		if n.Type() != "new_expression" {
			return true
		}
		name := extractor.Content(n.ChildByFieldName("constructor"), src)
		if original, ok := aliases[name]; ok {
			name = original
		}
		if !IsErrorName(name) {
			return true
		}
		w := weightNew
		if extractor.InThrow(n, cls.Node) {
			w = weightThrown
		}
		if _, seen := s.constructed[name]; !seen {
			s.order = append(s.order, name)
		}
		s.constructed[name] += w
		return true
	})
	return s
}

// priorityMatch returns the first priority name present in either signal.
func priorityMatch(s signals) (string, bool) {
	for _, name := range Priority {
		if _, ok := s.constructed[name]; ok || contains(s.imported, name) {
			return name, true
		}
	}
	return "", false
}

// heaviest returns the constructed name with the highest weight; ties go
// to the first seen.
func heaviest(s signals) (string, bool) {
	best, bestWeight := "", 0
	for _, name := range s.order {
		if w := s.constructed[name]; w > bestWeight {
			best, bestWeight = name, w
		}
	}
	return best, best != ""
}

// ImportedExceptions lists the exception names a file imports from the
// framework module, in import order.
func ImportedExceptions(f *extractor.SourceFile) []string {
	var out []string
	for _, imp := range f.Imports() {
		if imp.Module == FrameworkModule && strings.HasSuffix(imp.Name, "Exception") && !contains(out, imp.Name) {
			out = append(out, imp.Name)
		}
	}
	return out
}

// IsErrorName reports whether a constructed type name looks like an error.
func IsErrorName(name string) bool {
	return strings.HasSuffix(name, "Exception") || strings.HasSuffix(name, "Error")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
