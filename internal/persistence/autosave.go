package persistence

import (
	"context"
	"time"

	"wholesale-crm/internal/common/logger"

	"github.com/robfig/cron/v3"
)

// Snapshotter enqueues every collection it owns.
type Snapshotter interface {
	SaveAll()
}

// Autosave periodically snapshots the store and flushes the write-behind
// queue. A tick also retries snapshots a previous flush requeued.
type Autosave struct {
	cron    *cron.Cron
	source  Snapshotter
	queue   *WriteBehind
	timeout time.Duration
	logger  logger.Logger
}

func NewAutosave(schedule string, source Snapshotter, queue *WriteBehind, timeout time.Duration, log logger.Logger) (*Autosave, error) {
	a := &Autosave{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		source:  source,
		queue:   queue,
		timeout: timeout,
		logger:  log.WithFields(map[string]interface{}{"component": "autosave", "schedule": schedule}),
	}
	if _, err := a.cron.AddFunc(schedule, a.Tick); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Autosave) Start() {
	a.cron.Start()
	a.logger.Info("autosave scheduled", nil)
}

// Stop halts the schedule and waits for a running tick.
func (a *Autosave) Stop() {
	<-a.cron.Stop().Done()
}

func (a *Autosave) Tick() {
	a.source.SaveAll()

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	if err := a.queue.Flush(ctx); err != nil {
		a.logger.Warn("autosave flush incomplete", map[string]interface{}{
			"error":   err.Error(),
			"pending": a.queue.Pending(),
		})
	}
}
