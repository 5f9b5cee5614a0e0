// Package e2e drives the idea lifecycle against a real Postgres (and optionally Redis).
// Set IDEAFLOW_E2E_POSTGRES_DSN to run it; IDEAFLOW_E2E_REDIS_ADDR enables the history cache.
package e2e

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaflow/internal/common/auth"
	"ideaflow/internal/common/logger"
	"ideaflow/internal/models"
	"ideaflow/internal/store"
	"ideaflow/internal/workflow"
)

type testEnv struct {
	db          *sql.DB
	pg          *store.Postgres
	transitions workflow.TransitionStore
	evaluator   *workflow.Evaluator
	executor    *workflow.Executor
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping E2E tests in short mode")
	}
	dsn := os.Getenv("IDEAFLOW_E2E_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("IDEAFLOW_E2E_POSTGRES_DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, db.PingContext(ctx))
	applyMigrations(t, db)

	log := logger.NewTestLogger(t)
	pg := store.NewPostgres(db, log)

	var transitions workflow.TransitionStore = pg
	if addr := os.Getenv("IDEAFLOW_E2E_REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		t.Cleanup(func() { rdb.Close() })
		require.NoError(t, rdb.Ping(ctx).Err())
		transitions = store.NewCachedHistory(pg, rdb, time.Minute, log)
	}

	return &testEnv{
		db:          db,
		pg:          pg,
		transitions: transitions,
		evaluator:   workflow.NewEvaluator(pg, log, workflow.WithEvaluationTimeout(5*time.Second)),
		executor:    workflow.NewExecutor(transitions, workflow.OverridePolicy{}, nil, log),
	}
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	_, file, _, _ := runtime.Caller(0)
	schema, err := os.ReadFile(filepath.Join(filepath.Dir(file), "..", "..", "migrations", "001_init.sql"))
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)
}

func (e *testEnv) seedIdea(t *testing.T) string {
	t.Helper()
	var id string
	err := e.db.QueryRow(
		`INSERT INTO ideas (group_id, submitted_by, title) VALUES ($1, $2, $3) RETURNING id`,
		uuid.NewString(), uuid.NewString(), "Community solar co-op",
	).Scan(&id)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = e.db.Exec(`DELETE FROM ideas WHERE id = $1`, id) })
	return id
}

func (e *testEnv) exec(t *testing.T, query string, args ...interface{}) {
	t.Helper()
	_, err := e.db.Exec(query, args...)
	require.NoError(t, err)
}

func adminGrant(t *testing.T) auth.AdminGrant {
	grant, err := auth.Principal{UserID: uuid.NewString(), Roles: []string{"admin"}}.RequireAdmin("admin")
	require.NoError(t, err)
	return grant
}

// ==========================
// Lifecycle
// ==========================

func TestIdeaLifecycle(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	ideaID := env.seedIdea(t)

	report := env.evaluator.EvaluateNext(ctx, ideaID, models.StatusProposed)
	assert.False(t, report.CanProgress)
	assert.Len(t, report.UnmetCriteria, 2)

	for i := 0; i < 2; i++ {
		env.exec(t, `INSERT INTO votes (idea_id, user_id, vote) VALUES ($1, $2, true)`, ideaID, uuid.NewString())
	}
	env.exec(t, `INSERT INTO comments (idea_id, author_id, content) VALUES ($1, $2, 'promising')`, ideaID, uuid.NewString())
	env.exec(t, `INSERT INTO evaluations (idea_id, evaluator_id, market_size, feasibility, strategic_fit, novelty)
		VALUES ($1, $2, 4, 3, 3, 3)`, ideaID, uuid.NewString())

	report = env.evaluator.EvaluateProgression(ctx, ideaID, models.StatusProposed, models.StatusUnderReview)
	require.True(t, report.CanProgress, report.UnmetCriteria)

	grant := adminGrant(t)
	tr, err := env.executor.ApplyStatusChange(ctx, grant, workflow.StatusChange{
		IdeaID:       ideaID,
		NewStatus:    models.StatusUnderReview,
		Reason:       "community traction",
		ExpectedFrom: models.StatusProposed.Ptr(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tr.ID)
	assert.Equal(t, models.StatusProposed, *tr.FromStatus)

	idea, err := env.pg.GetIdea(ctx, ideaID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, idea.Status)

	report = env.evaluator.EvaluateNext(ctx, ideaID, idea.Status)
	assert.Equal(t, models.StatusValidated, report.To)
	assert.Contains(t, report.UnmetCriteria, "Need 4 more evaluations")

	// Admin override skips the remaining criteria.
	_, err = env.executor.ApplyStatusChange(ctx, grant, workflow.StatusChange{
		IdeaID:    ideaID,
		NewStatus: models.StatusInvestmentReady,
	})
	require.NoError(t, err)

	_, err = env.executor.ApplyStatusChange(ctx, grant, workflow.StatusChange{
		IdeaID:       ideaID,
		NewStatus:    models.StatusProposed,
		ExpectedFrom: models.StatusUnderReview.Ptr(),
	})
	assert.ErrorIs(t, err, workflow.ErrConcurrentModification)

	history, err := env.executor.History(ctx, ideaID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.StatusInvestmentReady, history[0].ToStatus)
	assert.Nil(t, history[0].Reason)
	assert.Equal(t, models.StatusUnderReview, history[1].ToStatus)
}

func TestUnknownIdea(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, err := env.pg.GetIdea(ctx, uuid.NewString())
	assert.ErrorIs(t, err, workflow.ErrIdeaNotFound)

	_, err = env.executor.ApplyStatusChange(ctx, adminGrant(t), workflow.StatusChange{
		IdeaID:    "not-a-uuid",
		NewStatus: models.StatusValidated,
	})
	assert.ErrorIs(t, err, workflow.ErrIdeaNotFound)
}
