// Package cache memoizes parsed projects, class locations and analysis
// results per project root.
package cache

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"specpilot/internal/crawler"
	"specpilot/internal/extractor"
)

const noConfig = "no-tsconfig"

// Loader loads a project from disk.
type Loader interface {
	LoadProject(ctx context.Context, root string) (*extractor.Project, error)
}

// Lookup is the result of a class lookup.
type Lookup struct {
	Class *extractor.Class
	File  *extractor.SourceFile
	// Candidates lists every file declaring the class name. More than one
	// entry means the lookup was ambiguous and the first match was used.
	Candidates []string
}

// Ambiguous reports whether more than one file declares the class.
func (l Lookup) Ambiguous() bool {
	return len(l.Candidates) > 1
}

// Stats counts cache activity.
type Stats struct {
	Loads     int // projects loaded from disk
	FullScans int // class lookups that scanned every file
	ClassHits int // class lookups answered from the location cache
}

// ProjectCache memoizes parsed projects keyed by root and build
// configuration, plus the last known file of each looked-up class.
// Entries live until Invalidate.
type ProjectCache struct {
	loader Loader
	logger *slog.Logger

	mu       sync.Mutex
	projects map[string]*extractor.Project
	classes  map[string]string // root::class -> declaring file
	stats    Stats

	group singleflight.Group
}

// NewProjectCache creates an empty cache backed by loader.
func NewProjectCache(loader Loader, logger *slog.Logger) *ProjectCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectCache{
		loader:   loader,
		logger:   logger,
		projects: make(map[string]*extractor.Project),
		classes:  make(map[string]string),
	}
}

// NormalizeRoot makes equivalent spellings of a project root share cache
// entries: the root is made absolute and cleaned.
func NormalizeRoot(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return filepath.Clean(root)
}

func projectKey(root string) string {
	config := crawler.FindConfig(root)
	if config == "" {
		config = noConfig
	}
	return Key(root, config)
}

func classKey(root, name string) string {
	return Key(root, name)
}

// Project returns the memoized project for root, loading it on first use.
// Concurrent first calls share one load.
func (c *ProjectCache) Project(ctx context.Context, root string) (*extractor.Project, error) {
	root = NormalizeRoot(root)
	key := projectKey(root)

	c.mu.Lock()
	if p, ok := c.projects[key]; ok {
		c.mu.Unlock()
		return p, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		if p, ok := c.projects[key]; ok {
			c.mu.Unlock()
			return p, nil
		}
		c.mu.Unlock()

		p, err := c.loader.LoadProject(ctx, root)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.projects[key] = p
		c.stats.Loads++
		c.mu.Unlock()
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*extractor.Project), nil
}

// Invalidate drops every project and class location scoped to root.
func (c *ProjectCache) Invalidate(root string) {
	prefix := Key(root)

	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.projects {
		if strings.HasPrefix(k, prefix) {
			delete(c.projects, k)
		}
	}
	for k := range c.classes {
		if strings.HasPrefix(k, prefix) {
			delete(c.classes, k)
		}
	}
}

// FindClass locates a class declaration by name. A cached location is
// re-validated before use; on a miss every file is scanned in project order
// and the first declaring file wins. Not found is reported as false, and a
// project that fails to load counts as not found.
func (c *ProjectCache) FindClass(root, name string) (Lookup, bool) {
	p, err := c.Project(context.Background(), root)
	if err != nil {
		c.logger.Warn("project load failed", "root", root, "error", err)
		return Lookup{}, false
	}

	key := classKey(root, name)

	c.mu.Lock()
	path, cached := c.classes[key]
	c.mu.Unlock()

	if cached {
		if sf, ok := p.File(path); ok {
			if cls, ok := sf.Class(name); ok {
				c.mu.Lock()
				c.stats.ClassHits++
				c.mu.Unlock()
				return Lookup{Class: cls, File: sf, Candidates: p.Declarations(name)}, true
			}
		}
		c.mu.Lock()
		delete(c.classes, key)
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.stats.FullScans++
	c.mu.Unlock()

	for _, sf := range p.Files() {
		cls, ok := sf.Class(name)
		if !ok {
			continue
		}
		c.mu.Lock()
		c.classes[key] = sf.Path
		c.mu.Unlock()

		lookup := Lookup{Class: cls, File: sf, Candidates: p.Declarations(name)}
		if lookup.Ambiguous() {
			c.logger.Warn("class declared in multiple files, using first match",
				"class", name, "used", sf.Path, "candidates", lookup.Candidates)
		}
		return lookup, true
	}
	return Lookup{}, false
}

// FindEnum locates an enum declaration by name.
func (c *ProjectCache) FindEnum(root, name string) (*extractor.Enum, bool) {
	p, err := c.Project(context.Background(), root)
	if err != nil {
		return nil, false
	}
	return p.FindEnum(name)
}

// Stats returns a snapshot of the cache counters.
func (c *ProjectCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
