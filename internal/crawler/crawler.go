package crawler

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"

	"specpilot/internal/extractor"
)

// ConfigCandidates are the build configuration files tried in order; the first
// one that exists wins.
var ConfigCandidates = []string{
	"tsconfig.json",
	"tsconfig.app.json",
	"tsconfig.base.json",
	"tsconfig.build.json",
}

// FallbackSourceDir is scanned when no build configuration is found.
const FallbackSourceDir = "src"

// FindConfig returns the absolute path of the first existing build
// configuration under root, or "" when none exists.
func FindConfig(root string) string {
	for _, name := range ConfigCandidates {
		p := filepath.Join(root, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// Crawler scans a directory for TypeScript source files.
type Crawler struct {
	ignored []string
	workers int
	logger  *slog.Logger
}

// NewCrawler creates a new crawler instance.
func NewCrawler(logger *slog.Logger) *Crawler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{
		ignored: []string{".git", "node_modules", "dist", "build", "coverage"},
		workers: runtime.GOMAXPROCS(0),
		logger:  logger,
	}
}

// ScanProject walks dir and calls onFile for every .ts source file,
// skipping declaration files, ignored directories and .gitignore matches
// relative to root.
func (c *Crawler) ScanProject(root, dir string, onFile func(path string)) error {
	gi := loadGitignore(root)

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path == dir {
				return nil
			}
			name := d.Name()
			for _, ign := range c.ignored {
				if name == ign {
					return filepath.SkipDir
				}
			}
			if strings.HasPrefix(name, ".") || (gi != nil && (gi.MatchesPath(rel) || gi.MatchesPath(rel+"/"))) {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if !strings.HasSuffix(name, ".ts") || strings.HasSuffix(name, ".d.ts") {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		onFile(path)
		return nil
	})
}

// LoadProject discovers and parses the project under root. With a build
// configuration every source file under root is loaded; without one only
// the conventional src/ directory is.
func (c *Crawler) LoadProject(ctx context.Context, root string) (*extractor.Project, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	configPath := FindConfig(root)
	scanDir := root
	if configPath == "" {
		scanDir = filepath.Join(root, FallbackSourceDir)
		if _, err := os.Stat(scanDir); err != nil {
			c.logger.Debug("no build config and no source dir", "root", root)
			return extractor.NewProject(root, "", nil), nil
		}
	}

	var paths []string
	if err := c.ScanProject(root, scanDir, func(p string) { paths = append(paths, p) }); err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	files, err := c.parseConcurrent(ctx, paths)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("project loaded", "root", root, "config", configPath, "files", len(files))
	return extractor.NewProject(root, configPath, files), nil
}

// parseConcurrent parses files with a bounded worker pool. Each worker owns
// its extractor because tree-sitter parsers are not safe for concurrent use.
// Files that fail to read or parse are skipped.
func (c *Crawler) parseConcurrent(ctx context.Context, paths []string) ([]*extractor.SourceFile, error) {
	results := make([]*extractor.SourceFile, len(paths))
	work := make(chan int)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(work)
		for i := range paths {
			select {
			case work <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	workers := c.workers
	if workers > len(paths) {
		workers = len(paths)
	}
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			ext, err := extractor.NewExtractor("typescript")
			if err != nil {
				return err
			}
			for i := range work {
				source, err := os.ReadFile(paths[i])
				if err != nil {
					c.logger.Warn("failed to read file", "path", paths[i], "error", err)
					continue
				}
				sf, err := ext.ExtractFromSource(ctx, paths[i], source)
				if err != nil {
					c.logger.Warn("failed to parse file", "path", paths[i], "error", err)
					continue
				}
				results[i] = sf
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	files := make([]*extractor.SourceFile, 0, len(results))
	for _, sf := range results {
		if sf != nil {
			files = append(files, sf)
		}
	}
	return files, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
