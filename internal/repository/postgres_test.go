package repository

import (
	"testing"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckystars0612/SecGram/internal/observability"
)

func TestBuildInsert(t *testing.T) {
	s := &PostgresStore{
		qb:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		logger:  observability.NopLogger{},
		metrics: observability.NopMetrics{},
	}

	processedAt := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	rec := JobRecord{
		ID:          "job-1",
		SourcePath:  "/data/in.zip",
		Kind:        KindArchive,
		Status:      StatusDone,
		ProcessedAt: processedAt,
	}

	query, args, err := s.buildInsert(rec).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "INSERT INTO intake_jobs")
	assert.Contains(t, query, "ON CONFLICT (id) DO UPDATE")
	assert.Contains(t, query, "$6")
	assert.Equal(t, []interface{}{
		"job-1", "/data/in.zip", "archive", "done", "", processedAt,
	}, args)
}
