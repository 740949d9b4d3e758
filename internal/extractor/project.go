package extractor

import (
	"path/filepath"
	"sort"
	"strings"
)

// Project is a parsed set of source files under one root.
// Files are ordered with files under the conventional src/ directory first,
// then by path, which fixes the first-match-wins order of class lookups.
type Project struct {
	Root       string
	ConfigPath string // build configuration file in use; "" in fallback mode

	files  []*SourceFile
	byPath map[string]*SourceFile
	index  map[string][]string // class name -> declaring file paths
}

// NewProject orders the files and builds the declaration index.
func NewProject(root, configPath string, files []*SourceFile) *Project {
	ordered := make([]*SourceFile, len(files))
	copy(ordered, files)
	sort.SliceStable(ordered, func(i, j int) bool {
		si, sj := inSrc(root, ordered[i].Path), inSrc(root, ordered[j].Path)
		if si != sj {
			return si
		}
		return ordered[i].Path < ordered[j].Path
	})

	p := &Project{
		Root:       root,
		ConfigPath: configPath,
		files:      ordered,
		byPath:     make(map[string]*SourceFile, len(ordered)),
		index:      make(map[string][]string),
	}
	for _, f := range ordered {
		p.byPath[f.Path] = f
		for _, name := range f.ClassNames() {
			p.index[name] = append(p.index[name], f.Path)
		}
	}
	return p
}

// Files returns the source files in lookup order.
func (p *Project) Files() []*SourceFile {
	return p.files
}

// File returns the source file at path.
func (p *Project) File(path string) (*SourceFile, bool) {
	f, ok := p.byPath[path]
	return f, ok
}

// Declarations lists every file that declares a class with the given name.
func (p *Project) Declarations(className string) []string {
	return p.index[className]
}

// FindEnum returns the first enum with the given name in lookup order.
func (p *Project) FindEnum(name string) (*Enum, bool) {
	for _, f := range p.files {
		if e, ok := f.Enum(name); ok {
			return e, true
		}
	}
	return nil, false
}

func inSrc(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	return strings.HasPrefix(rel, "src/") || strings.Contains(rel, "/src/")
}
