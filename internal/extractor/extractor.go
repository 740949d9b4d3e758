package extractor

import (
	"context"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
)

// LanguageExtractor supplies the grammar and the declaration query for a language.
type LanguageExtractor interface {
	GetLanguage() *sitter.Language
	GetQuery() string
}

// Extractor parses source files into SourceFiles using a language extractor.
// A single Extractor must not be shared between goroutines: it owns a parser.
type Extractor struct {
	langExtractor LanguageExtractor
	langName      string
	parser        *sitter.Parser
	query         *sitter.Query
}

// NewExtractor creates a new extractor for a given language.
func NewExtractor(lang string) (*Extractor, error) {
	var langExt LanguageExtractor
	switch lang {
	case "typescript", "ts":
		langExt = &TypeScriptExtractor{}
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}

	query, err := sitter.NewQuery([]byte(langExt.GetQuery()), langExt.GetLanguage())
	if err != nil {
		return nil, fmt.Errorf("failed to create query: %w", err)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(langExt.GetLanguage())

	return &Extractor{
		langExtractor: langExt,
		langName:      lang,
		parser:        parser,
		query:         query,
	}, nil
}

// ExtractFromFile reads and parses a single source file.
func (e *Extractor) ExtractFromFile(path string) (*SourceFile, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return e.ExtractFromSource(context.Background(), path, source)
}

// ExtractFromSource parses source that has already been read.
func (e *Extractor) ExtractFromSource(ctx context.Context, path string, source []byte) (*SourceFile, error) {
	tree, err := e.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", path, err)
	}

	sf := &SourceFile{
		Path:   path,
		Source: source,
		tree:   tree,
		root:   tree.RootNode(),
	}
	sf.decls = e.collectDeclarations(sf)
	return sf, nil
}

// collectDeclarations runs the declaration query and keeps top-level
// classes and enums in document order.
func (e *Extractor) collectDeclarations(sf *SourceFile) []declaration {
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(e.query, sf.root)

	var decls []declaration
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}

		var d declaration
		for _, c := range m.Captures {
			switch e.query.CaptureNameForId(c.Index) {
			case "class":
				d.kind, d.node = declClass, c.Node
			case "enum":
				d.kind, d.node = declEnum, c.Node
			case "name":
				d.name = c.Node.Content(sf.Source)
			}
		}
		if d.node == nil || d.name == "" || !isTopLevel(d.node) {
			continue
		}
		decls = append(decls, d)
	}
	return decls
}

// isTopLevel reports whether a declaration sits directly in the program,
// optionally wrapped by an export statement.
func isTopLevel(n *sitter.Node) bool {
	parent := n.Parent()
	if parent != nil && parent.Type() == "export_statement" {
		parent = parent.Parent()
	}
	return parent != nil && parent.Type() == "program"
}
