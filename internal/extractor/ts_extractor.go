package extractor

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// TypeScriptExtractor implements LanguageExtractor for TypeScript.
type TypeScriptExtractor struct{}

func (t *TypeScriptExtractor) GetLanguage() *sitter.Language {
	return typescript.GetLanguage()
}

func (t *TypeScriptExtractor) GetQuery() string {
	return `
		(class_declaration name: (type_identifier) @name) @class
		(abstract_class_declaration name: (type_identifier) @name) @class
		(enum_declaration name: (identifier) @name) @enum
	`
}
