// Package crm owns the in-memory CRM collections. Mutations are applied
// synchronously and handed to a write-behind persister; callers see success
// before the write lands.
package crm

import (
	"context"
	"slices"
	"sync"
	"time"

	"wholesale-crm/internal/common/errors"
	"wholesale-crm/internal/common/logger"
	"wholesale-crm/internal/matching"
	"wholesale-crm/internal/models"
	"wholesale-crm/internal/persistence"
)

// Persister accepts collection snapshots for eventual saving.
type Persister interface {
	Enqueue(name persistence.Collection, snapshot interface{})
}

type Store struct {
	mu         sync.RWMutex
	leads      []models.Lead
	properties []models.Property
	contracts  []models.Contract
	buyers     []models.Buyer
	deals      []models.WholesaleDeal

	engine    *matching.Engine
	persister Persister
	now       func() time.Time
	logger    logger.Logger
}

func NewStore(engine *matching.Engine, persister Persister, log logger.Logger) *Store {
	return &Store{
		engine:    engine,
		persister: persister,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    log.WithFields(map[string]interface{}{"component": "crm-store"}),
	}
}

// Load replaces every collection with what the shim returns, defaulting to
// empty lists.
func (s *Store) Load(ctx context.Context, shim *persistence.Shim) {
	leads := persistence.Load(ctx, shim, persistence.Leads, []models.Lead{})
	properties := persistence.Load(ctx, shim, persistence.Properties, []models.Property{})
	contracts := persistence.Load(ctx, shim, persistence.Contracts, []models.Contract{})
	buyers := persistence.Load(ctx, shim, persistence.Buyers, []models.Buyer{})
	deals := persistence.Load(ctx, shim, persistence.WholesaleDeals, []models.WholesaleDeal{})

	s.mu.Lock()
	s.leads, s.properties, s.contracts, s.buyers, s.deals = leads, properties, contracts, buyers, deals
	s.mu.Unlock()

	s.logger.Info("collections loaded", map[string]interface{}{
		"leads":      len(leads),
		"properties": len(properties),
		"contracts":  len(contracts),
		"buyers":     len(buyers),
		"deals":      len(deals),
	})
}

// SaveAll enqueues every collection.
func (s *Store) SaveAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.persister.Enqueue(persistence.Leads, slices.Clone(s.leads))
	s.persister.Enqueue(persistence.Properties, slices.Clone(s.properties))
	s.persister.Enqueue(persistence.Contracts, slices.Clone(s.contracts))
	s.persister.Enqueue(persistence.Buyers, slices.Clone(s.buyers))
	s.persister.Enqueue(persistence.WholesaleDeals, slices.Clone(s.deals))
}

// Counts reports the size of each collection.
func (s *Store) Counts() map[persistence.Collection]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[persistence.Collection]int{
		persistence.Leads:          len(s.leads),
		persistence.Properties:     len(s.properties),
		persistence.Contracts:      len(s.contracts),
		persistence.Buyers:         len(s.buyers),
		persistence.WholesaleDeals: len(s.deals),
	}
}

// ==========================
// Generic collection helpers
// ==========================

type record interface {
	GetID() string
}

func indexOf[T record](items []T, id string) int {
	return slices.IndexFunc(items, func(item T) bool { return item.GetID() == id })
}

func insert[T record](items []T, name persistence.Collection, rec T) ([]T, error) {
	if indexOf(items, rec.GetID()) >= 0 {
		return items, errors.NewDuplicateIDError(string(name), rec.GetID())
	}
	return append(items, rec), nil
}

func find[T record](items []T, name persistence.Collection, id string) (T, error) {
	i := indexOf(items, id)
	if i < 0 {
		var zero T
		return zero, errors.NewNotFoundError(string(name), id)
	}
	return items[i], nil
}

func replace[T record](items []T, name persistence.Collection, rec T) error {
	i := indexOf(items, rec.GetID())
	if i < 0 {
		return errors.NewNotFoundError(string(name), rec.GetID())
	}
	items[i] = rec
	return nil
}

func remove[T record](items []T, name persistence.Collection, id string) ([]T, error) {
	i := indexOf(items, id)
	if i < 0 {
		return items, errors.NewNotFoundError(string(name), id)
	}
	return slices.Delete(items, i, i+1), nil
}

// persist must be called with s.mu held.
func persist[T any](s *Store, name persistence.Collection, items []T) {
	s.persister.Enqueue(name, slices.Clone(items))
}
