package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testReport(key string, at time.Time, warn int) ReportRecord {
	return ReportRecord{
		RouteKey:    key,
		Method:      "GET",
		Path:        "/orders",
		Issues:      json.RawMessage(`[{"code":"SP001","severity":"warn","message":"no guard"}]`),
		Warn:        warn,
		GeneratedAt: at,
	}
}

func TestSQLiteStore_ReportHistory(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveReport(ctx, testReport("OrdersController.list", t0, 1)))
	require.NoError(t, store.SaveReport(ctx, testReport("OrdersController.list", t0.Add(time.Minute), 2)))
	require.NoError(t, store.SaveReport(ctx, testReport("UsersController.me", t0, 0)))

	latest, ok, err := store.LatestReport(ctx, "OrdersController.list")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, latest.Warn)
	assert.Equal(t, t0.Add(time.Minute), latest.GeneratedAt)
	assert.JSONEq(t, `[{"code":"SP001","severity":"warn","message":"no guard"}]`, string(latest.Issues))

	history, err := store.ReportHistory(ctx, "OrdersController.list", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].Warn)
	assert.Equal(t, 1, history[1].Warn)

	history, err = store.ReportHistory(ctx, "OrdersController.list", 1)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	all, err := store.ListLatestReports(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "OrdersController.list", all[0].RouteKey)
	assert.Equal(t, 2, all[0].Warn)
	assert.Equal(t, "UsersController.me", all[1].RouteKey)
}

func TestSQLiteStore_LatestReportMissing(t *testing.T) {
	store := openStore(t)

	_, ok, err := store.LatestReport(context.Background(), "Nope.nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_FixtureUpsert(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveFixture(ctx, FixtureRecord{
		Root: "/app", Class: "CreateUserDto", Payload: json.RawMessage(`{"email":"a"}`), CreatedAt: t0,
	}))
	require.NoError(t, store.SaveFixture(ctx, FixtureRecord{
		Root: "/app", Class: "CreateUserDto", Payload: json.RawMessage(`{"email":"b"}`), CreatedAt: t0.Add(time.Hour),
	}))

	f, ok, err := store.LoadFixture(ctx, "/app", "CreateUserDto")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"email":"b"}`, string(f.Payload))
	assert.Equal(t, t0.Add(time.Hour), f.CreatedAt)

	_, ok, err = store.LoadFixture(ctx, "/other", "CreateUserDto")
	require.NoError(t, err)
	assert.False(t, ok, "fixtures are scoped to their root")
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.SaveReport(ctx, testReport("A.b", time.Unix(100, 0).UTC(), 3)))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	r, ok, err := store.LatestReport(ctx, "A.b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, r.Warn)
}

func TestSQLiteStore_SaveReportRejectsMalformedIssues(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	bad := testReport("OrdersController.list", t0, 1)
	bad.Issues = json.RawMessage(`{"code":"SP001"}`)
	assert.Error(t, store.SaveReport(ctx, bad))

	bad.Issues = json.RawMessage(`[{"code":"SP001","severity":"fatal","message":"x"}]`)
	assert.Error(t, store.SaveReport(ctx, bad))

	_, ok, err := store.LatestReport(ctx, "OrdersController.list")
	require.NoError(t, err)
	assert.False(t, ok, "rejected reports are not stored")

	empty := testReport("OrdersController.list", t0, 0)
	empty.Issues = nil
	require.NoError(t, store.SaveReport(ctx, empty))
	latest, ok, err := store.LatestReport(ctx, "OrdersController.list")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[]`, string(latest.Issues))
}
