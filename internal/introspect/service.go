// Package introspect reads facts about service methods and entry handlers
// that the feedback rules consume.
package introspect

import (
	"log/slog"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"specpilot/internal/cache"
	"specpilot/internal/exceptions"
	"specpilot/internal/extractor"
)

// SnippetLimit caps the call-site snippet length in runes.
const SnippetLimit = 140

// CallSite is one this.<Receiver>.<Method>(...) call in a method body.
type CallSite struct {
	Receiver string `json:"receiver"`
	Method   string `json:"method"`
	InLoop   bool   `json:"inLoop"`
	Snippet  string `json:"snippet,omitempty"`
}

// Result describes one service method. Results are shared through the
// cache and must not be mutated.
type Result struct {
	Class           string     `json:"className"`
	Method          string     `json:"methodName"`
	ParamCount      int        `json:"paramCount"`
	ParamTypes      []string   `json:"paramTypeTexts"`
	ReturnType      string     `json:"returnTypeText"`
	Calls           []CallSite `json:"calls"`
	ExceptionHints  []string   `json:"exceptionHints"`
	ThrowsDetected  []string   `json:"throwsDetected"`
	UsesTransaction bool       `json:"usesTransaction"`
}

type ClassFinder interface {
	FindClass(root, name string) (cache.Lookup, bool)
}

// Inspector answers introspection queries. Service method results are
// cached per (root, class, method) for the configured TTL, absent results
// included.
type Inspector struct {
	finder  ClassFinder
	results *cache.TTLCache[*Result]
	logger  *slog.Logger
}

func NewInspector(finder ClassFinder, ttl time.Duration, logger *slog.Logger) *Inspector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inspector{
		finder:  finder,
		results: cache.NewTTLCache[*Result](ttl),
		logger:  logger,
	}
}

// SetClock replaces the time source of the result cache.
func (in *Inspector) SetClock(now func() time.Time) {
	in.results.SetClock(now)
}

// Invalidate drops every cached result for root.
func (in *Inspector) Invalidate(root string) {
	in.results.InvalidatePrefix(cache.Key(root))
}

// ServiceMethod analyzes className.methodName. Within the TTL repeated
// calls return the same *Result.
func (in *Inspector) ServiceMethod(root, className, methodName string) (*Result, bool) {
	res := in.results.GetOrCompute(cache.Key(root, className, methodName), func() *Result {
		in.logger.Debug("analyzing service method", "class", className, "method", methodName)
		return in.analyze(root, className, methodName)
	})
	return res, res != nil
}

func (in *Inspector) analyze(root, className, methodName string) *Result {
	lookup, ok := in.finder.FindClass(root, className)
	if !ok {
		return nil
	}
	m, ok := lookup.Class.Method(methodName)
	if !ok {
		return nil
	}
	src := lookup.File.Source

	aliases := make(map[string]string)
	for _, imp := range lookup.File.Imports() {
		aliases[imp.Local] = imp.Name
	}

	res := &Result{
		Class:          className,
		Method:         methodName,
		ReturnType:     m.ReturnType(),
		Calls:          []CallSite{},
		ExceptionHints: exceptions.ImportedExceptions(lookup.File),
		ThrowsDetected: []string{},
	}
	for _, p := range m.Params() {
		t := p.Type
		if t == "" {
			t = "any"
		}
		res.ParamTypes = append(res.ParamTypes, t)
	}
	res.ParamCount = len(res.ParamTypes)

	seenThrow := map[string]bool{}
	m.Walk(func(n *sitter.Node) bool {
		switch n.Type() {
		case "call_expression":
			if isTransactionCall(n, src) {
				res.UsesTransaction = true
			}
			if field, method, ok := extractor.ThisFieldCall(n, src); ok {
				res.Calls = append(res.Calls, CallSite{
					Receiver: field,
					Method:   method,
					InLoop:   extractor.InLoop(n, m.Body()),
					Snippet:  snippet(extractor.Content(n, src)),
				})
			}
		case "new_expression":
			name := extractor.Content(n.ChildByFieldName("constructor"), src)
			if original, ok := aliases[name]; ok {
				name = original
			}
			if exceptions.IsErrorName(name) && !seenThrow[name] {
				seenThrow[name] = true
				res.ThrowsDetected = append(res.ThrowsDetected, name)
			}
		}
		return true
	})
	return res
}

// isTransactionCall matches x.transaction(...) and Prisma's x.$transaction(...).
func isTransactionCall(call *sitter.Node, src []byte) bool {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "member_expression" {
		return false
	}
	name := extractor.Content(fn.ChildByFieldName("property"), src)
	return name == "transaction" || name == "$transaction"
}

func snippet(s string) string {
	s = extractor.CollapseWhitespace(s)
	if utf8.RuneCountInString(s) <= SnippetLimit {
		return s
	}
	return string([]rune(s)[:SnippetLimit])
}
