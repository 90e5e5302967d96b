// cmd/crm-manager/main.go
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	commonaws "wholesale-crm/internal/common/aws"
	"wholesale-crm/internal/common/camunda"
	"wholesale-crm/internal/common/config"
	"wholesale-crm/internal/common/database"
	"wholesale-crm/internal/common/logger"
	"wholesale-crm/internal/common/observability"
	"wholesale-crm/internal/common/zoho"
	"wholesale-crm/internal/crm"
	"wholesale-crm/internal/matching"
	"wholesale-crm/internal/models"
	"wholesale-crm/internal/persistence"
	"wholesale-crm/internal/search"

	mb "wholesale-crm/internal/workers/buyers/match-buyers"
	sbp "wholesale-crm/internal/workers/buyers/score-buyer-performance"
	sb "wholesale-crm/internal/workers/buyers/search-buyers"
	cbs "wholesale-crm/internal/workers/crm/crm-buyer-sync"
	nmb "wholesale-crm/internal/workers/deals/notify-matched-buyers"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(operationName+" failed, retrying", map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("starting crm manager", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs := observability.New("crm-manager", log)
	defer obs.Shutdown(context.Background())

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Init PostgreSQL with retry ---
	var (
		pg *database.PostgresClient
		db *sql.DB
	)
	err = retryWithBackoff(func() error {
		var err error
		if pg != nil {
			pg.Close()
		}
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		log.Warn("postgres unavailable, collections stay on local fallback", map[string]interface{}{"error": err.Error()})
		if pg != nil {
			pg.Close()
			pg = nil
		}
	} else {
		defer pg.Close()
		db = pg.DB
	}

	// --- Init Redis with retry ---
	var (
		rdb         *database.RedisClient
		redisClient *redis.Client
	)
	err = retryWithBackoff(func() error {
		var err error
		if rdb != nil {
			rdb.Close()
		}
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, log, "Redis connection")
	if err != nil {
		log.Warn("redis unavailable, change broadcast disabled", map[string]interface{}{"error": err.Error()})
		if rdb != nil {
			rdb.Close()
			rdb = nil
		}
	} else {
		defer rdb.Close()
		redisClient = rdb.Client
	}

	// --- Persistence ---
	writeTimeout := config.GetDuration(cfg.Persistence.WriteTimeout)
	shim, degraded := newShim(ctx, cfg.Persistence, db, redisClient, log)

	queue := persistence.NewWriteBehind(shim, log)
	queueDone := make(chan struct{})
	go func() {
		defer close(queueDone)
		queue.Run(ctx, 2*writeTimeout)
	}()

	engine := matching.NewEngine(matching.Config{Threshold: cfg.Matching.Threshold}, log)
	store := crm.NewStore(engine, queue, log)
	store.Load(ctx, shim)
	store.RefreshPerformance()

	autosave, err := persistence.NewAutosave(cfg.Persistence.AutosaveSchedule, store, queue, writeTimeout, log)
	if err != nil {
		zapLog.Fatal("invalid autosave schedule", zap.Error(err))
	}
	autosave.Start()

	// --- Buyer search index ---
	var index *search.BuyerIndex
	if cfg.Search.Enabled {
		index = startBuyerIndex(ctx, cfg, shim, store, log)
	}

	// --- External service clients ---
	var (
		email nmb.EmailSender
		sms   nmb.SMSSender
	)
	if cfg.Integrations.AWS.SES.Enabled || cfg.Integrations.AWS.SNS.Enabled {
		awsCfg, err := commonaws.LoadConfig(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("failed to load AWS config", zap.Error(err))
		}
		if cfg.Integrations.AWS.SES.Enabled {
			email = commonaws.NewSESClient(awsCfg, cfg.Integrations.AWS.SES.FromEmail)
		}
		if cfg.Integrations.AWS.SNS.Enabled {
			sms = commonaws.NewSNSClient(awsCfg, cfg.Integrations.AWS.SNS.SenderID)
		}
	}
	zohoClient := zoho.NewCRMClient(
		cfg.Integrations.Zoho.APIKey,
		cfg.Integrations.Zoho.AuthToken,
		cfg.Integrations.Zoho.BaseURL,
	)

	// --- Zeebe ---
	zeebe, err := camunda.NewClient(ctx, cfg.Camunda.BrokerAddress)
	if err != nil {
		zapLog.Fatal("zeebe client failed", zap.Error(err))
	}

	var workers []*camunda.CamundaWorker
	register := func(taskType string, handler camunda.JobHandler) {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		if !wcfg.Enabled {
			log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
			return
		}
		workers = append(workers, camunda.StartWorker(zeebe.GetClient(), taskType, wcfg, handler, obs, log))
	}

	register(mb.TaskType, mb.NewHandler(mb.LoadConfig(config.GetWorkerConfig(cfg, mb.TaskType)), store, log))
	register(sbp.TaskType, sbp.NewHandler(sbp.LoadConfig(config.GetWorkerConfig(cfg, sbp.TaskType)), store, log))
	register(nmb.TaskType, nmb.NewHandler(
		nmb.LoadConfig(config.GetWorkerConfig(cfg, nmb.TaskType), cfg.Integrations),
		store, email, sms, log,
	))

	syncHandler, err := cbs.NewHandler(cbs.LoadConfig(config.GetWorkerConfig(cfg, cbs.TaskType)), store, zohoClient, log)
	if err != nil {
		zapLog.Fatal("failed to create crm-buyer-sync handler", zap.Error(err))
	}
	register(cbs.TaskType, syncHandler)

	if index != nil {
		register(sb.TaskType, sb.NewHandler(sb.LoadConfig(config.GetWorkerConfig(cfg, sb.TaskType)), index, log))
	}
	log.Info("workers registered", map[string]interface{}{"count": len(workers)})

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]interface{}{
			"status":      "healthy",
			"time":        time.Now().Format(time.RFC3339),
			"collections": store.Counts(),
			"pending":     queue.Pending(),
		})
	})
	pings := map[string]func(context.Context) error{"zeebe": zeebe.HealthCheck}
	if pg != nil {
		pings["postgres"] = pg.Ping
	}
	if rdb != nil {
		pings["redis"] = rdb.Ping
	}
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ready, checks := readiness(r.Context(), pings, degraded)

		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeStatus(w, status, map[string]interface{}{
			"ready":    ready,
			"degraded": len(degraded) > 0,
			"checks":   checks,
			"time":     time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: cfg.HTTP.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("health/metrics server listening", map[string]interface{}{"address": cfg.HTTP.Address})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("health/metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping workers", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	autosave.Stop()
	store.SaveAll()
	stop()
	<-queueDone

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("error stopping http server", map[string]interface{}{"error": err.Error()})
	}
	if err := zeebe.Close(); err != nil {
		log.Error("error closing zeebe client", map[string]interface{}{"error": err.Error()})
	}

	log.Info("crm manager stopped", nil)
}

// startBuyerIndex reindexes the directory now and on every Buyers change
// broadcast. Search failures never stop the manager.
func startBuyerIndex(ctx context.Context, cfg *config.Config, shim *persistence.Shim, store *crm.Store, log logger.Logger) *search.BuyerIndex {
	esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		log.Error("elasticsearch unavailable, search disabled", map[string]interface{}{"error": err.Error()})
		return nil
	}
	if err := esClient.Ping(ctx); err != nil {
		log.Warn("elasticsearch ping failed", map[string]interface{}{"error": err.Error()})
	}

	index := search.NewBuyerIndex(esClient.Client, cfg.Search.Index, log)
	if err := index.EnsureIndex(ctx); err != nil {
		log.Warn("failed to ensure buyer index", map[string]interface{}{"error": err.Error()})
	}
	reindex := func(buyers []models.Buyer) {
		rctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := index.Reindex(rctx, buyers); err != nil {
			log.Warn("buyer reindex failed", map[string]interface{}{"error": err.Error()})
		}
	}
	reindex(store.ListBuyers())

	if _, err := persistence.Subscribe(ctx, shim, persistence.Buyers, reindex); err != nil {
		log.Warn("buyer change subscription failed", map[string]interface{}{"error": err.Error()})
	}
	return index
}

func writeStatus(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
