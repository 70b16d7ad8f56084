package journal_test

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/copydesk/internal/config"
	"github.com/kiranshivaraju/copydesk/internal/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns the connection string.
func setupTestDB(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("copydesk_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, journal.RunMigrations(connStr, migrationsDir()))
	return connStr
}

func setupJournal(t *testing.T) *journal.PostgresJournal {
	t.Helper()
	connStr := setupTestDB(t)
	pool, err := pgxpool.New(context.Background(), connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return journal.NewPostgresJournal(pool)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	connStr := setupTestDB(t)
	assert.NoError(t, journal.RunMigrations(connStr, migrationsDir()))
}

func TestConnect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	connStr := setupTestDB(t)

	pool, err := journal.Connect(context.Background(), config.DatabaseConfig{
		URL:             connStr,
		MaxOpenConns:    4,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	defer pool.Close()

	assert.NoError(t, journal.NewPostgresJournal(pool).Ping(context.Background()))
}

func TestConnect_BadURL(t *testing.T) {
	_, err := journal.Connect(context.Background(), config.DatabaseConfig{URL: "://nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse database URL")
}

func TestRecordAndRecent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	j := setupJournal(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	first := journal.NewEvent("job-1", journal.KindSubmitted, "processing")
	first.CreatedAt = base
	second := journal.NewEvent("job-1", journal.KindTerminal, "failed").WithDetail("Optimization failed: boom")
	second.CreatedAt = base.Add(time.Second)
	third := journal.NewEvent("job-2", journal.KindSelected, "completed")
	third.CreatedAt = base.Add(2 * time.Second)

	for _, e := range []journal.Event{first, second, third} {
		require.NoError(t, j.Record(ctx, e))
	}

	events, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, third.ID, events[0].ID)
	assert.Equal(t, journal.KindSelected, events[0].Kind)
	assert.Nil(t, events[0].Detail)

	assert.Equal(t, second.ID, events[1].ID)
	require.NotNil(t, events[1].Detail)
	assert.Equal(t, "Optimization failed: boom", *events[1].Detail)

	assert.Equal(t, first.ID, events[2].ID)
	assert.Equal(t, "processing", events[2].Status)
}

func TestRecent_Limit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	j := setupJournal(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, j.Record(ctx, journal.NewEvent("job", journal.KindSelected, "processing")))
	}

	events, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestRecent_Empty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	j := setupJournal(t)

	events, err := j.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}
