// Package analysis computes complexity metrics and anti-pattern findings
// over method bodies.
package analysis

import (
	sitter "github.com/smacker/go-tree-sitter"

	"specpilot/internal/extractor"
)

// Complexity thresholds used when reporting.
const (
	ComplexityInfo = 7
	ComplexityWarn = 10
)

// decisionKinds are the node types that each add one path.
var decisionKinds = map[string]bool{
	"if_statement":       true,
	"for_statement":      true,
	"for_in_statement":   true, // also for..of
	"while_statement":    true,
	"do_statement":       true,
	"catch_clause":       true,
	"switch_case":        true, // default labels are switch_default
	"ternary_expression": true,
}

// CyclomaticComplexity returns 1 plus the number of decision points in the
// method body. The count is syntactic and includes nested closures.
func CyclomaticComplexity(m *extractor.Method) int {
	return complexityOf(m.Body())
}

func complexityOf(body *sitter.Node) int {
	score := 1
	extractor.Walk(body, func(n *sitter.Node) bool {
		t := n.Type()
		switch {
		case decisionKinds[t]:
			score++
		case t == "binary_expression":
			if op := n.ChildByFieldName("operator"); op != nil {
				if ot := op.Type(); ot == "&&" || ot == "||" {
					score++
				}
			}
		}
		return true
	})
	return score
}
