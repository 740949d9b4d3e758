// Package feedback turns analyzer findings into per-route reports.
package feedback

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"specpilot/internal/payload"
)

type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Issue is one finding attached to a route.
type Issue struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Hint     string   `json:"hint,omitempty"`
}

// Summary counts issues per severity.
type Summary struct {
	Info  int `json:"info"`
	Warn  int `json:"warn"`
	Error int `json:"error"`
}

// Report is the feedback for one route.
type Report struct {
	RouteKey    string
	HTTP        *HTTP
	Issues      []Issue
	Summary     Summary
	GeneratedAt time.Time
}

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func (r Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RouteKey    string  `json:"routeKey"`
		HTTP        *HTTP   `json:"http,omitempty"`
		Issues      []Issue `json:"issues"`
		Summary     Summary `json:"summary"`
		GeneratedAt string  `json:"generatedAt"`
	}{r.RouteKey, r.HTTP, r.Issues, r.Summary, r.GeneratedAt.UTC().Format(timestampLayout)})
}

func Summarize(issues []Issue) Summary {
	var s Summary
	for _, i := range issues {
		switch i.Severity {
		case SeverityInfo:
			s.Info++
		case SeverityWarn:
			s.Warn++
		case SeverityError:
			s.Error++
		}
	}
	return s
}

// MakeReport assembles a report. A zero http is omitted.
func MakeReport(routeKey string, issues []Issue, http HTTP, at time.Time) Report {
	if issues == nil {
		issues = []Issue{}
	}
	r := Report{
		RouteKey:    routeKey,
		Issues:      issues,
		Summary:     Summarize(issues),
		GeneratedAt: at,
	}
	if http != (HTTP{}) {
		r.HTTP = &http
	}
	return r
}

var unsafeChars = regexp.MustCompile(`\W+`)

// SafeFileName replaces every run of non-word characters with "_".
func SafeFileName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// WriteReport validates report, writes it as indented JSON to
// dir/<routeKey>.json and returns the file path. An invalid report is not
// written.
func WriteReport(dir string, report Report) (string, error) {
	if err := ValidateReport(report); err != nil {
		return "", err
	}
	return writeJSON(dir, SafeFileName(report.RouteKey), report)
}

// WriteFixture writes a synthesized payload to dir/<class>.json.
func WriteFixture(dir, class string, v payload.Value) (string, error) {
	return writeJSON(dir, SafeFileName(class), v)
}

func writeJSON(dir, name string, v any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", name, err)
	}
	file := filepath.Join(dir, name+".json")
	if err := os.WriteFile(file, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", file, err)
	}
	return file, nil
}
