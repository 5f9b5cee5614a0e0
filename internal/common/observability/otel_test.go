package observability

import (
	"context"
	"strings"
	"testing"
	"time"

	"ideaflow/internal/common/config"
	"ideaflow/internal/common/logger"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RecordsJobMetrics(t *testing.T) {
	reg := promclient.NewRegistry()
	obs, err := New(context.Background(),
		config.ObservabilityConfig{ServiceName: "ideaflow-test"},
		config.AppConfig{Version: "test", Environment: "test"},
		logger.NewTestLogger(t),
		Options{Registerer: reg},
	)
	require.NoError(t, err)

	ctx := context.Background()
	obs.RecordJobProcessed(ctx, "evaluate-progression", "completed")
	obs.RecordJobDuration(ctx, "evaluate-progression", 40*time.Millisecond, "completed")

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.True(t, containsPrefix(names, "jobs_processed"), "gathered: %v", names)
	assert.True(t, containsPrefix(names, "jobs_duration"), "gathered: %v", names)

	_, span := obs.Tracer("test").Start(ctx, "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, obs.Shutdown(ctx))
}

func containsPrefix(names []string, prefix string) bool {
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			return true
		}
	}
	return false
}
