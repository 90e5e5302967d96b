package persistence

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"wholesale-crm/internal/common/logger"
	"wholesale-crm/internal/common/metrics"
)

// WriteBehind queues the latest snapshot per collection and saves it off
// the caller's path. Enqueue never blocks; an older pending snapshot of the
// same collection is replaced.
type WriteBehind struct {
	shim   *Shim
	logger logger.Logger

	// flushMu keeps batches saved in the order they were taken.
	flushMu sync.Mutex

	mu      sync.Mutex
	pending map[Collection]interface{}
	signal  chan struct{}
}

func NewWriteBehind(shim *Shim, log logger.Logger) *WriteBehind {
	return &WriteBehind{
		shim:    shim,
		logger:  log.WithFields(map[string]interface{}{"component": "write-behind"}),
		pending: make(map[Collection]interface{}),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue records snapshot as the next value to save for name. The caller
// must not mutate snapshot afterwards.
func (w *WriteBehind) Enqueue(name Collection, snapshot interface{}) {
	w.mu.Lock()
	w.pending[name] = snapshot
	metrics.PendingWrites.Set(float64(len(w.pending)))
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Pending reports how many collections await a save.
func (w *WriteBehind) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Flush saves every pending snapshot. Snapshots that could not be saved
// anywhere are requeued unless a newer one arrived meanwhile.
func (w *WriteBehind) Flush(ctx context.Context) error {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[Collection]interface{})
	metrics.PendingWrites.Set(0)
	w.mu.Unlock()

	var errs []error
	for _, name := range Collections {
		snapshot, ok := batch[name]
		if !ok {
			continue
		}
		if err := w.shim.Save(ctx, name, snapshot); err != nil {
			errs = append(errs, err)
			w.requeue(name, snapshot)
		}
	}

	if len(errs) > 0 {
		w.logger.Error("write-behind flush incomplete", map[string]interface{}{
			"failed": len(errs),
		})
	}
	return stderrors.Join(errs...)
}

func (w *WriteBehind) requeue(name Collection, snapshot interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, newer := w.pending[name]; !newer {
		w.pending[name] = snapshot
	}
	metrics.PendingWrites.Set(float64(len(w.pending)))
}

// Run flushes whenever snapshots are enqueued until ctx is done, then
// performs a final flush bounded by finalTimeout.
func (w *WriteBehind) Run(ctx context.Context, finalTimeout time.Duration) {
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), finalTimeout)
			if err := w.Flush(flushCtx); err != nil {
				w.logger.Warn("final flush failed", map[string]interface{}{"error": err.Error()})
			}
			cancel()
			return
		case <-w.signal:
			_ = w.Flush(ctx)
		}
	}
}
