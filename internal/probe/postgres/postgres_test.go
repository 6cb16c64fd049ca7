package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigilo/vigilo/internal/domain/target"
)

func TestRunRejectsNonDatabaseTarget(t *testing.T) {
	res := New().Run(context.Background(), &target.Endpoint{
		ID:    "ep-1",
		OrgID: "org-1",
		URL:   "https://example.com",
	})
	require.NotNil(t, res)
	assert.False(t, res.Healthy)
	require.NotNil(t, res.ErrorMessage)
	assert.Contains(t, *res.ErrorMessage, "unsupported target type")
}

func TestRunUnreachableServerIsUnhealthy(t *testing.T) {
	res := New().Run(context.Background(), &target.Database{
		ID:            "db-1",
		OrgID:         "org-1",
		Engine:        target.EnginePostgres,
		ConnectionURL: "postgres://user:pw@127.0.0.1:1/app",
		Timeout:       500 * time.Millisecond,
	})
	require.NotNil(t, res)
	assert.False(t, res.Healthy)
	require.NotNil(t, res.ErrorMessage)
	assert.Nil(t, res.DB)
	assert.Equal(t, "db-1", res.TargetID)
	assert.Equal(t, target.KindDatabase, res.Kind)
}

func TestRunMalformedURLFailsFast(t *testing.T) {
	start := time.Now()
	res := New().Run(context.Background(), &target.Database{
		ID:            "db-2",
		OrgID:         "org-1",
		Engine:        target.EnginePostgres,
		ConnectionURL: "not a connection url",
		Timeout:       5 * time.Second,
	})
	require.NotNil(t, res)
	assert.False(t, res.Healthy)
	require.NotNil(t, res.ErrorMessage)
	assert.Less(t, time.Since(start), time.Second)
}
