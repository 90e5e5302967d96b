package main

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"

	"wholesale-crm/internal/common/config"
	"wholesale-crm/internal/common/logger"
	"wholesale-crm/internal/persistence"
)

const fallbackNotice = "unavailable, using local fallback"

// newShim builds the persistence shim from whatever shared backends came up.
// A nil db or redis client, or a schema that cannot be created, leaves the
// shim on the local file store. The returned map names each skipped backend.
func newShim(ctx context.Context, cfg config.PersistenceConfig, db *sql.DB, rdb *redis.Client, log logger.Logger) (*persistence.Shim, map[string]string) {
	degraded := map[string]string{}
	opts := persistence.ShimOptions{
		Fallback:     persistence.NewFileStore(cfg.FallbackDir),
		WriteTimeout: config.GetDuration(cfg.WriteTimeout),
	}

	if db != nil {
		primary, err := persistence.NewPostgresStore(db, cfg.Table)
		if err == nil {
			err = primary.EnsureSchema(ctx)
		}
		if err != nil {
			log.Warn("postgres collections store disabled", map[string]interface{}{"error": err.Error()})
			degraded["postgres"] = err.Error()
		} else {
			opts.Primary = primary
		}
	} else {
		degraded["postgres"] = fallbackNotice
	}

	if rdb != nil {
		opts.Broadcaster = persistence.NewRedisBroadcaster(rdb, cfg.ChannelPrefix)
	} else {
		degraded["redis"] = fallbackNotice
	}

	if len(degraded) > 0 {
		log.Warn("persistence running degraded", map[string]interface{}{
			"degraded":    degraded,
			"fallbackDir": cfg.FallbackDir,
		})
	}
	return persistence.NewShim(opts, log), degraded
}

// readiness runs each ping. Degraded backends are reported but do not fail
// readiness since the local fallback still serves writes.
func readiness(ctx context.Context, pings map[string]func(context.Context) error, degraded map[string]string) (bool, map[string]string) {
	checks := map[string]string{}
	ready := true
	for name, reason := range degraded {
		checks[name] = "degraded: " + reason
	}
	for name, ping := range pings {
		if _, skip := degraded[name]; skip {
			continue
		}
		if err := ping(ctx); err != nil {
			checks[name] = err.Error()
			ready = false
			continue
		}
		checks[name] = "ok"
	}
	return ready, checks
}
