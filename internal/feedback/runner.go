package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"specpilot/internal/storage"
)

const (
	DefaultReportDir  = ".specpilot/reports"
	DefaultFixtureDir = ".specpilot/fixtures"
)

// RunnerOptions configures a Runner. Relative directories resolve against
// the project root.
type RunnerOptions struct {
	ReportDir  string
	FixtureDir string
	Policy     Policy
	Store      storage.Store // optional history store
	Logger     *slog.Logger
}

// Runner produces, writes and records the report of each route.
type Runner struct {
	analyzer   Analyzer
	store      storage.Store
	policy     Policy
	reportDir  string
	fixtureDir string
	logger     *slog.Logger
	now        func() time.Time
}

func NewRunner(a Analyzer, opts RunnerOptions) *Runner {
	r := &Runner{
		analyzer:   a,
		store:      opts.Store,
		policy:     opts.Policy,
		reportDir:  opts.ReportDir,
		fixtureDir: opts.FixtureDir,
		logger:     opts.Logger,
		now:        time.Now,
	}
	if r.reportDir == "" {
		r.reportDir = DefaultReportDir
	}
	if r.fixtureDir == "" {
		r.fixtureDir = DefaultFixtureDir
	}
	if r.policy.SensitivePaths == nil && r.policy.PublicMetaKeys == nil {
		r.policy = DefaultPolicy()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// SetClock replaces the report timestamp source.
func (r *Runner) SetClock(now func() time.Time) {
	r.now = now
}

// Outcome is the result of running one route.
type Outcome struct {
	Report   Report
	File     string   // report file, "" when skipped
	Fixtures []string // written fixture files
	Skipped  bool     // route opted out of feedback
}

// Run analyzes one route. Routes with feedback disabled get an empty
// report that is neither written nor stored.
func (r *Runner) Run(ctx context.Context, root string, route Route) (Outcome, error) {
	key := route.Key()
	if !route.Options.FeedbackEnabled() {
		r.logger.Debug("feedback disabled for route", "route", key)
		return Outcome{Report: MakeReport(key, nil, route.HTTP, r.now()), Skipped: true}, nil
	}

	issues := ControllerIssues(r.analyzer, root, route, r.policy)
	issues = append(issues, AnalyzeControllerToService(r.analyzer, root, route.Controller, route.Handler)...)
	report := MakeReport(key, issues, route.HTTP, r.now())

	file, err := WriteReport(r.dir(root, r.reportDir), report)
	if err != nil {
		return Outcome{Report: report}, err
	}
	out := Outcome{Report: report, File: file}

	if r.store != nil {
		if err := r.store.SaveReport(ctx, reportRecord(report)); err != nil {
			return out, err
		}
	}

	if route.Options.FixturesEnabled() {
		fixtures, err := r.writeFixtures(ctx, root, route)
		out.Fixtures = fixtures
		if err != nil {
			return out, err
		}
	}

	r.logger.Info("feedback report written",
		"route", key, "file", file, "warn", report.Summary.Warn, "error", report.Summary.Error)
	return out, nil
}

// RunAll runs every route and keeps going past failures. The returned
// error joins every route error.
func (r *Runner) RunAll(ctx context.Context, root string, routes []Route) ([]Outcome, error) {
	var (
		outcomes []Outcome
		errs     []error
	)
	for _, route := range routes {
		out, err := r.Run(ctx, root, route)
		if err != nil {
			errs = append(errs, fmt.Errorf("route %s: %w", route.Key(), err))
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, errors.Join(errs...)
}

func (r *Runner) writeFixtures(ctx context.Context, root string, route Route) ([]string, error) {
	var files []string
	for _, class := range DTOClasses(r.analyzer, root, route.ParamTypes) {
		v, ok := r.analyzer.Synthesize(root, class, -1)
		if !ok {
			continue
		}
		file, err := WriteFixture(r.dir(root, r.fixtureDir), class, v)
		if err != nil {
			return files, err
		}
		files = append(files, file)

		if r.store == nil {
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			return files, fmt.Errorf("failed to encode fixture %s: %w", class, err)
		}
		rec := storage.FixtureRecord{Root: root, Class: class, Payload: data, CreatedAt: r.now()}
		if err := r.store.SaveFixture(ctx, rec); err != nil {
			return files, err
		}
	}
	return files, nil
}

func (r *Runner) dir(root, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}

func reportRecord(report Report) storage.ReportRecord {
	issues, _ := json.Marshal(report.Issues)
	rec := storage.ReportRecord{
		RouteKey:    report.RouteKey,
		Issues:      issues,
		Info:        report.Summary.Info,
		Warn:        report.Summary.Warn,
		Error:       report.Summary.Error,
		GeneratedAt: report.GeneratedAt,
	}
	if report.HTTP != nil {
		rec.Method = report.HTTP.Method
		rec.Path = report.HTTP.Path
	}
	return rec
}
