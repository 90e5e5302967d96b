package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wholesale-crm/internal/common/config"
	"wholesale-crm/internal/common/logger"
	"wholesale-crm/internal/persistence"
)

func persistenceConfig(t *testing.T) config.PersistenceConfig {
	return config.PersistenceConfig{
		Table:         "crm_collections",
		FallbackDir:   t.TempDir(),
		ChannelPrefix: "crm",
		WriteTimeout:  1000,
	}
}

func TestNewShim_NoBackendsUsesFileStore(t *testing.T) {
	cfg := persistenceConfig(t)

	shim, degraded := newShim(context.Background(), cfg, nil, nil, logger.NewTestLogger(t))
	assert.Contains(t, degraded, "postgres")
	assert.Contains(t, degraded, "redis")

	require.NoError(t, shim.Save(context.Background(), persistence.Buyers, []map[string]string{{"id": "b1"}}))

	doc, err := os.ReadFile(filepath.Join(cfg.FallbackDir, "Buyers.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"b1"}]`, string(doc))
}

func TestNewShim_SchemaFailureDropsPrimary(t *testing.T) {
	cfg := persistenceConfig(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS crm_collections")).
		WillReturnError(errors.New("permission denied"))

	shim, degraded := newShim(context.Background(), cfg, db, nil, logger.NewTestLogger(t))
	assert.Contains(t, degraded["postgres"], "permission denied")

	require.NoError(t, shim.Save(context.Background(), persistence.Leads, []map[string]string{}))
	assert.FileExists(t, filepath.Join(cfg.FallbackDir, "Leads.json"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewShim_AllBackendsUp(t *testing.T) {
	cfg := persistenceConfig(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS crm_collections")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO crm_collections")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	shim, degraded := newShim(context.Background(), cfg, db, rdb, logger.NewTestLogger(t))
	assert.Empty(t, degraded)

	require.NoError(t, shim.Save(context.Background(), persistence.Contracts, []map[string]string{}))
	assert.NoFileExists(t, filepath.Join(cfg.FallbackDir, "Contracts.json"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadiness(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("degraded backends stay ready", func(t *testing.T) {
		ready, checks := readiness(context.Background(),
			map[string]func(context.Context) error{"zeebe": ok},
			map[string]string{"postgres": fallbackNotice, "redis": fallbackNotice})

		assert.True(t, ready)
		assert.Equal(t, "ok", checks["zeebe"])
		assert.Equal(t, "degraded: "+fallbackNotice, checks["postgres"])
		assert.Equal(t, "degraded: "+fallbackNotice, checks["redis"])
	})

	t.Run("failed ping is not ready", func(t *testing.T) {
		ready, checks := readiness(context.Background(),
			map[string]func(context.Context) error{"zeebe": down, "postgres": ok},
			nil)

		assert.False(t, ready)
		assert.Equal(t, "connection refused", checks["zeebe"])
		assert.Equal(t, "ok", checks["postgres"])
	})

	t.Run("degraded backend ping is skipped", func(t *testing.T) {
		ready, checks := readiness(context.Background(),
			map[string]func(context.Context) error{"postgres": down},
			map[string]string{"postgres": "schema missing"})

		assert.True(t, ready)
		assert.Equal(t, "degraded: schema missing", checks["postgres"])
	})
}
