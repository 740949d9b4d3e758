// Package engine wires the analyzers to one set of project caches.
package engine

import (
	"context"
	"log/slog"
	"time"

	"specpilot/internal/analysis"
	"specpilot/internal/cache"
	"specpilot/internal/callgraph"
	"specpilot/internal/crawler"
	"specpilot/internal/exceptions"
	"specpilot/internal/extractor"
	"specpilot/internal/introspect"
	"specpilot/internal/payload"
)

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	Logger   *slog.Logger
	Loader   cache.Loader  // defaults to a crawler
	TTL      time.Duration // analysis result cache lifetime
	MaxDepth int           // payload nesting bound; 0 selects payload.DefaultMaxDepth
}

// Engine owns every cache and exposes the analysis operations keyed by
// project root.
type Engine struct {
	logger   *slog.Logger
	maxDepth int

	projects  *cache.ProjectCache
	tracer    *callgraph.Tracer
	inspector *introspect.Inspector
	inferrer  *exceptions.Inferrer
	synth     *payload.Synthesizer
}

// New creates an Engine with empty caches.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loader := opts.Loader
	if loader == nil {
		loader = crawler.NewCrawler(logger)
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = payload.DefaultMaxDepth
	}

	projects := cache.NewProjectCache(loader, logger)
	return &Engine{
		logger:    logger,
		maxDepth:  maxDepth,
		projects:  projects,
		tracer:    callgraph.NewTracer(projects),
		inspector: introspect.NewInspector(projects, opts.TTL, logger),
		inferrer:  exceptions.NewInferrer(projects),
		synth:     payload.NewSynthesizer(projects, logger),
	}
}

// SetClock replaces the time source of the analysis result cache.
func (e *Engine) SetClock(now func() time.Time) {
	e.inspector.SetClock(now)
}

// Project loads (or returns the memoized) project under root.
func (e *Engine) Project(ctx context.Context, root string) (*extractor.Project, error) {
	return e.projects.Project(ctx, root)
}

// Invalidate drops every cached entry scoped to root.
func (e *Engine) Invalidate(root string) {
	e.projects.Invalidate(root)
	e.inspector.Invalidate(root)
	e.logger.Debug("invalidated project caches", "root", root)
}

// Stats reports project cache activity.
func (e *Engine) Stats() cache.Stats {
	return e.projects.Stats()
}

func (e *Engine) FindClass(root, name string) (cache.Lookup, bool) {
	return e.projects.FindClass(root, name)
}

// FirstServiceCall returns the representative delegation call of an entry handler.
func (e *Engine) FirstServiceCall(root, entryClass, entryMethod string) (callgraph.ServiceCall, bool) {
	return e.tracer.FirstServiceCall(root, entryClass, entryMethod)
}

// ServiceCalls returns every delegation call of an entry handler.
func (e *Engine) ServiceCalls(root, entryClass, entryMethod string) ([]callgraph.ServiceCall, bool) {
	return e.tracer.ServiceCalls(root, entryClass, entryMethod)
}

// Complexity returns the cyclomatic complexity of className.methodName.
func (e *Engine) Complexity(root, className, methodName string) (int, bool) {
	m, ok := e.tracer.Method(root, className, methodName)
	if !ok {
		return 0, false
	}
	return analysis.CyclomaticComplexity(m), true
}

// LoopBoundRemoteCalls runs the N+1 heuristic on className.methodName.
func (e *Engine) LoopBoundRemoteCalls(root, className, methodName string) (analysis.LoopFinding, bool) {
	m, ok := e.tracer.Method(root, className, methodName)
	if !ok {
		return analysis.LoopFinding{}, false
	}
	return analysis.DetectLoopBoundRemoteCalls(m), true
}

// InferException returns the representative exception of className.
func (e *Engine) InferException(root, className string) (exceptions.Hint, bool) {
	return e.inferrer.Infer(root, className)
}

// Synthesize builds a minimal payload for className. maxDepth < 0 uses
// the engine default.
func (e *Engine) Synthesize(root, className string, maxDepth int) (payload.Value, bool) {
	if maxDepth < 0 {
		maxDepth = e.maxDepth
	}
	return e.synth.Synthesize(root, className, maxDepth)
}

// ServiceMethod returns the cached introspection of className.methodName.
func (e *Engine) ServiceMethod(root, className, methodName string) (*introspect.Result, bool) {
	return e.inspector.ServiceMethod(root, className, methodName)
}

func (e *Engine) Swagger(root, controller, handler string) (introspect.SwaggerUsage, bool) {
	return e.inspector.Swagger(root, controller, handler)
}

func (e *Engine) Auth(root, controller, handler string) (introspect.AuthUsage, bool) {
	return e.inspector.Auth(root, controller, handler)
}

func (e *Engine) HandlerParamCount(root, controller, handler string) (int, bool) {
	return e.inspector.HandlerParamCount(root, controller, handler)
}
