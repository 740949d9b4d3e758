package analysis

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"specpilot/internal/extractor"
)

// LoopFinding reports whether a data-fetch call is awaited inside a loop.
// Sample is the callee text of the first such call.
type LoopFinding struct {
	Suspect bool
	Sample  string
}

// DetectLoopBoundRemoteCalls looks for awaited fetch-like calls inside
// loops, the usual shape of an N+1 query. The first match wins.
func DetectLoopBoundRemoteCalls(m *extractor.Method) LoopFinding {
	src := m.File().Source

	var finding LoopFinding
	m.Walk(func(loop *sitter.Node) bool {
		if finding.Suspect {
			return false
		}
		if !isLoop(loop) {
			return true
		}
		extractor.Walk(loop, func(n *sitter.Node) bool {
			if finding.Suspect {
				return false
			}
			if n.Type() != "await_expression" {
				return true
			}
			call := extractor.Find(n, func(c *sitter.Node) bool { return c.Type() == "call_expression" })
			if call == nil {
				return true
			}
			name := TerminalPropertyName(extractor.Content(call, src))
			if name == "" {
				name = extractor.CalleeName(call, src)
			}
			if IsOrmFetchName(name) {
				finding = LoopFinding{
					Suspect: true,
					Sample:  extractor.CollapseWhitespace(extractor.Content(call.ChildByFieldName("function"), src)),
				}
				return false
			}
			return true
		})
		return !finding.Suspect
	})
	return finding
}

func isLoop(n *sitter.Node) bool {
	for _, k := range extractor.LoopKinds {
		if n.Type() == k {
			return true
		}
	}
	return false
}

var terminalCallRe = regexp.MustCompile(`\.([a-zA-Z0-9_]+)\s*\(\s*\)\s*$`)

// TerminalPropertyName returns the member name of a chain that ends in a
// zero-argument call, e.g. "getMany" for qb.where(...).getMany().
func TerminalPropertyName(exprText string) string {
	m := terminalCallRe.FindStringSubmatch(exprText)
	if m == nil {
		return ""
	}
	return m[1]
}

var (
	typeormFetchNames = []string{
		"find", "findone", "findby", "findandcount", "findbyids", "findoneby",
		"findonebyorfail", "query", "count", "findoptions", "getmany", "getone",
	}
	prismaFetchNames = []string{"findmany", "findfirst", "findunique", "count"}
)

// IsOrmFetchName reports whether a call name looks like a data fetch:
// find*/get* prefixes, anything mentioning query or count, and the TypeORM
// and Prisma client read methods.
func IsOrmFetchName(name string) bool {
	n := strings.ToLower(name)
	if n == "" {
		return false
	}
	if strings.HasPrefix(n, "find") || strings.HasPrefix(n, "get") || strings.Contains(n, "query") {
		return true
	}
	for _, k := range typeormFetchNames {
		if strings.Contains(n, k) {
			return true
		}
	}
	for _, k := range prismaFetchNames {
		if strings.Contains(n, k) {
			return true
		}
	}
	return false
}
