package crm

import (
	"slices"

	"wholesale-crm/internal/matching"
	"wholesale-crm/internal/models"
	"wholesale-crm/internal/performance"
	"wholesale-crm/internal/persistence"
)

// AddBuyer creates a buyer from params and scores it against the current
// contract history.
func (s *Store) AddBuyer(p models.BuyerParams) (models.Buyer, error) {
	buyer, err := models.NewBuyer(p, s.now())
	if err != nil {
		return models.Buyer{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	performance.Apply(&buyer, s.contracts, s.now())
	if s.buyers, err = insert(s.buyers, persistence.Buyers, buyer); err != nil {
		return models.Buyer{}, err
	}
	persist(s, persistence.Buyers, s.buyers)
	return buyer, nil
}

// UpdateBuyer replaces the editable fields of buyer id. Derived fields are
// recomputed, never taken from params.
func (s *Store) UpdateBuyer(id string, p models.BuyerParams) (models.Buyer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := find(s.buyers, persistence.Buyers, id)
	if err != nil {
		return models.Buyer{}, err
	}

	p.ID = id
	if p.Source == "" {
		p.Source = existing.Source
	}
	buyer, err := models.NewBuyer(p, s.now())
	if err != nil {
		return models.Buyer{}, err
	}
	buyer.CreatedAt = existing.CreatedAt
	performance.Apply(&buyer, s.contracts, s.now())

	if err := replace(s.buyers, persistence.Buyers, buyer); err != nil {
		return models.Buyer{}, err
	}
	persist(s, persistence.Buyers, s.buyers)
	return buyer, nil
}

// DeleteBuyer removes the buyer and unlinks its contracts. Unlinked
// contracts keep BuyerName, so they fall back to the name join.
func (s *Store) DeleteBuyer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.buyers, err = remove(s.buyers, persistence.Buyers, id); err != nil {
		return err
	}

	unlinked := 0
	for i := range s.contracts {
		if s.contracts[i].BuyerID == id {
			s.contracts[i].BuyerID = ""
			s.contracts[i].UpdatedAt = s.now()
			unlinked++
		}
	}
	if unlinked > 0 {
		persist(s, persistence.Contracts, s.contracts)
		s.refreshPerformanceLocked()
	}
	persist(s, persistence.Buyers, s.buyers)
	return nil
}

func (s *Store) GetBuyer(id string) (models.Buyer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.buyers, persistence.Buyers, id)
}

func (s *Store) ListBuyers() []models.Buyer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.buyers)
}

// RefreshPerformance rescores every buyer and returns the results in
// directory order.
func (s *Store) RefreshPerformance() []performance.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshPerformanceLocked()
}

// RefreshBuyerPerformance rescores a single buyer.
func (s *Store) RefreshBuyerPerformance(id string) (performance.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.buyers, id)
	if i < 0 {
		_, err := find(s.buyers, persistence.Buyers, id)
		return performance.Result{}, err
	}

	before := s.buyers[i]
	res := performance.Apply(&s.buyers[i], s.contracts, s.now())
	if scoreChanged(before, s.buyers[i]) {
		persist(s, persistence.Buyers, s.buyers)
	}
	return res, nil
}

func (s *Store) refreshPerformanceLocked() []performance.Result {
	now := s.now()
	results := make([]performance.Result, len(s.buyers))
	changed := false
	for i := range s.buyers {
		before := s.buyers[i]
		results[i] = performance.Apply(&s.buyers[i], s.contracts, now)
		changed = changed || scoreChanged(before, s.buyers[i])
	}
	if changed {
		persist(s, persistence.Buyers, s.buyers)
	}
	return results
}

func scoreChanged(before, after models.Buyer) bool {
	return before.PerformanceScore != after.PerformanceScore || before.DealsCompleted != after.DealsCompleted
}

// MatchProperty ranks the directory against a property in inventory.
func (s *Store) MatchProperty(id string) ([]matching.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prop, err := find(s.properties, persistence.Properties, id)
	if err != nil {
		return nil, err
	}
	return s.engine.Match(s.buyers, prop), nil
}

// MatchTarget ranks the directory against an ad hoc target.
func (s *Store) MatchTarget(target models.MatchTarget) []matching.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Match(s.buyers, target)
}
