package storage

import (
	"context"
	"encoding/json"
	"time"
)

// Store combines report history and fixture storage.
type Store interface {
	ReportStore
	FixtureStore
	Close() error
}

// ReportStore persists feedback reports. Every run is appended; older runs
// of the same route stay available as history.
type ReportStore interface {
	// SaveReport appends a report run.
	SaveReport(ctx context.Context, r ReportRecord) error

	// LatestReport returns the most recent run for a route key.
	LatestReport(ctx context.Context, routeKey string) (ReportRecord, bool, error)

	// ReportHistory returns up to limit runs for a route key, newest first.
	ReportHistory(ctx context.Context, routeKey string, limit int) ([]ReportRecord, error)

	// ListLatestReports returns the newest run of every route, ordered by route key.
	ListLatestReports(ctx context.Context) ([]ReportRecord, error)
}

// FixtureStore persists synthesized payload fixtures, one per (root, class).
type FixtureStore interface {
	SaveFixture(ctx context.Context, f FixtureRecord) error
	LoadFixture(ctx context.Context, root, class string) (FixtureRecord, bool, error)
}

// ReportRecord is one stored report run. Issues holds the JSON encoded issue list.
type ReportRecord struct {
	RouteKey    string
	Method      string
	Path        string
	Issues      json.RawMessage
	Info        int
	Warn        int
	Error       int
	GeneratedAt time.Time
}

// FixtureRecord is a stored payload fixture. Payload holds JSON.
type FixtureRecord struct {
	Root      string
	Class     string
	Payload   json.RawMessage
	CreatedAt time.Time
}
