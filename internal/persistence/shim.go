package persistence

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"wholesale-crm/internal/common/errors"
	"wholesale-crm/internal/common/logger"
	"wholesale-crm/internal/common/metrics"
)

// Shim saves collections to the primary store, downgrading to the fallback
// on failure, and announces successful saves through the broadcaster.
// Primary and broadcaster may be nil.
type Shim struct {
	primary      DocumentStore
	fallback     DocumentStore
	broadcaster  Broadcaster
	writeTimeout time.Duration
	logger       logger.Logger
}

type ShimOptions struct {
	Primary      DocumentStore
	Fallback     DocumentStore
	Broadcaster  Broadcaster
	WriteTimeout time.Duration
}

func NewShim(opts ShimOptions, log logger.Logger) *Shim {
	return &Shim{
		primary:      opts.Primary,
		fallback:     opts.Fallback,
		broadcaster:  opts.Broadcaster,
		writeTimeout: opts.WriteTimeout,
		logger:       log.WithFields(map[string]interface{}{"component": "persistence"}),
	}
}

// Save replaces the stored collection with items. It returns an error only
// when neither store accepted the write.
func (s *Shim) Save(ctx context.Context, name Collection, items interface{}) error {
	doc, err := json.Marshal(items)
	if err != nil {
		return errors.NewParseError(err)
	}

	if s.primary != nil {
		perr := s.put(ctx, s.primary, name, doc)
		if perr == nil {
			metrics.PersistenceWrites.WithLabelValues(string(name), s.primary.Name(), "ok").Inc()
			s.publish(ctx, name, doc)
			return nil
		}
		metrics.PersistenceWrites.WithLabelValues(string(name), s.primary.Name(), "error").Inc()
		metrics.PersistenceFallbacks.WithLabelValues(string(name)).Inc()
		s.logger.Warn("primary save failed, using local fallback", map[string]interface{}{
			"collection": string(name),
			"error":      perr.Error(),
		})
		if s.fallback == nil {
			return errors.NewPersistenceFailedError(string(name), perr)
		}
	}

	if s.fallback == nil {
		return errors.NewPersistenceFailedError(string(name), stderrors.New("no store configured"))
	}

	if err := s.put(ctx, s.fallback, name, doc); err != nil {
		metrics.PersistenceWrites.WithLabelValues(string(name), s.fallback.Name(), "error").Inc()
		s.logger.Error("fallback save failed", map[string]interface{}{
			"collection": string(name),
			"error":      err,
		})
		return errors.NewFallbackWriteFailedError(string(name), err)
	}
	metrics.PersistenceWrites.WithLabelValues(string(name), s.fallback.Name(), "ok").Inc()

	// A fallback-only save stays local; peers would not find it in the
	// primary store anyway.
	if s.primary == nil {
		s.publish(ctx, name, doc)
	}
	return nil
}

func (s *Shim) put(ctx context.Context, store DocumentStore, name Collection, doc []byte) error {
	if s.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()
	}
	return store.Put(ctx, name, doc)
}

func (s *Shim) publish(ctx context.Context, name Collection, doc []byte) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Publish(ctx, name, doc); err != nil {
		metrics.NotificationsDropped.WithLabelValues(string(name)).Inc()
		s.logger.Warn("change notification not published", map[string]interface{}{
			"collection": string(name),
			"error":      err.Error(),
		})
	}
}

// loadDocument returns the stored document from the primary, then the
// fallback. ok is false when neither has it.
func (s *Shim) loadDocument(ctx context.Context, name Collection) ([]byte, bool) {
	for _, store := range []DocumentStore{s.primary, s.fallback} {
		if store == nil {
			continue
		}
		doc, err := store.Get(ctx, name)
		if err == nil {
			return doc, true
		}
		if !stderrors.Is(err, ErrNoDocument) {
			s.logger.Warn("load failed", map[string]interface{}{
				"collection": string(name),
				"store":      store.Name(),
				"error":      err.Error(),
			})
		}
	}
	return nil, false
}

// Load returns the stored collection, or def when nothing usable is stored.
// It never fails.
func Load[T any](ctx context.Context, s *Shim, name Collection, def []T) []T {
	doc, ok := s.loadDocument(ctx, name)
	if !ok {
		return def
	}

	var items []T
	if err := json.Unmarshal(doc, &items); err != nil {
		s.logger.Warn("stored collection is not decodable, using default", map[string]interface{}{
			"collection": string(name),
			"error":      err.Error(),
		})
		return def
	}
	if items == nil {
		return def
	}
	return items
}

// Subscribe calls fn with every snapshot broadcast for name until ctx is
// done or the returned cancel func is called. Undecodable payloads are
// dropped.
func Subscribe[T any](ctx context.Context, s *Shim, name Collection, fn func([]T)) (func(), error) {
	if s.broadcaster == nil {
		return func() {}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	payloads, closeSub, err := s.broadcaster.Subscribe(ctx, name)
	if err != nil {
		cancel()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for payload := range payloads {
			var items []T
			if err := json.Unmarshal(payload, &items); err != nil {
				metrics.NotificationsDropped.WithLabelValues(string(name)).Inc()
				s.logger.Warn("dropping undecodable change notification", map[string]interface{}{
					"collection": string(name),
					"error":      err.Error(),
				})
				continue
			}
			fn(items)
		}
	}()

	return func() {
		cancel()
		closeSub()
		<-done
	}, nil
}
