package extractor

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// LoopKinds are the node types that count as loop constructs.
var LoopKinds = []string{"for_statement", "for_in_statement", "while_statement", "do_statement"}

// Walk visits n and all its named descendants depth-first in document order.
// Returning false from fn skips the node's children.
func Walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		Walk(n.NamedChild(i), fn)
	}
}

// Find returns the first node in document order for which match is true.
func Find(n *sitter.Node, match func(*sitter.Node) bool) *sitter.Node {
	var found *sitter.Node
	Walk(n, func(c *sitter.Node) bool {
		if found != nil {
			return false
		}
		if match(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

// Enclosing returns the nearest ancestor of n whose type is in kinds,
// stopping (and returning nil) at stop. A nil stop walks to the root.
func Enclosing(n, stop *sitter.Node, kinds ...string) *sitter.Node {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		if stop != nil && cur.Equal(stop) {
			return nil
		}
		if isKind(cur, kinds) {
			return cur
		}
	}
	return nil
}

// InLoop reports whether n sits inside a loop construct below stop.
func InLoop(n, stop *sitter.Node) bool {
	return Enclosing(n, stop, LoopKinds...) != nil
}

// InThrow reports whether n sits inside a throw statement below stop.
func InThrow(n, stop *sitter.Node) bool {
	return Enclosing(n, stop, "throw_statement") != nil
}

// Content returns the source text of a node, or "" for nil.
func Content(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(source)
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func isKind(n *sitter.Node, kinds []string) bool {
	t := n.Type()
	for _, k := range kinds {
		if t == k {
			return true
		}
	}
	return false
}

// namedChildOfType returns the first named child of n with the given type.
func namedChildOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == typ {
			return c
		}
	}
	return nil
}

// hasToken reports whether n has a direct (anonymous or named) child of the given type.
func hasToken(n *sitter.Node, typ string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == typ {
			return true
		}
	}
	return false
}
