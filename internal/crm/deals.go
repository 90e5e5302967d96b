package crm

import (
	"fmt"
	"slices"

	"wholesale-crm/internal/matching"
	"wholesale-crm/internal/models"
	"wholesale-crm/internal/persistence"
)

func (s *Store) AddDeal(d models.WholesaleDeal) (models.WholesaleDeal, error) {
	deal, err := models.NewWholesaleDeal(d, s.now())
	if err != nil {
		return models.WholesaleDeal{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deals, err = insert(s.deals, persistence.WholesaleDeals, deal); err != nil {
		return models.WholesaleDeal{}, err
	}
	persist(s, persistence.WholesaleDeals, s.deals)
	return deal, nil
}

// UpdateDeal replaces the submitted fields of deal d.ID. Status, history and
// matched buyers change only through UpdateDealStatus and MatchDeal.
func (s *Store) UpdateDeal(d models.WholesaleDeal) (models.WholesaleDeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := find(s.deals, persistence.WholesaleDeals, d.ID)
	if err != nil {
		return models.WholesaleDeal{}, err
	}

	d.Status = existing.Status
	deal, err := models.NewWholesaleDeal(d, s.now())
	if err != nil {
		return models.WholesaleDeal{}, err
	}
	deal.StatusHistory = slices.Clone(existing.StatusHistory)
	deal.MatchedBuyerIDs = slices.Clone(existing.MatchedBuyerIDs)
	deal.CreatedAt = existing.CreatedAt

	if err := replace(s.deals, persistence.WholesaleDeals, deal); err != nil {
		return models.WholesaleDeal{}, err
	}
	persist(s, persistence.WholesaleDeals, s.deals)
	return deal, nil
}

func (s *Store) DeleteDeal(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.deals, err = remove(s.deals, persistence.WholesaleDeals, id); err != nil {
		return err
	}
	persist(s, persistence.WholesaleDeals, s.deals)
	return nil
}

func (s *Store) GetDeal(id string) (models.WholesaleDeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.deals, persistence.WholesaleDeals, id)
}

func (s *Store) ListDeals() []models.WholesaleDeal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.deals)
}

// UpdateDealStatus moves a deal to status and records notes in its history.
func (s *Store) UpdateDealStatus(id string, status models.DealStatus, notes string) (models.WholesaleDeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.deals, id)
	if i < 0 {
		return find(s.deals, persistence.WholesaleDeals, id)
	}

	deal := s.deals[i]
	deal.StatusHistory = slices.Clone(deal.StatusHistory)
	if err := deal.Transition(status, notes, s.now()); err != nil {
		return models.WholesaleDeal{}, err
	}
	s.deals[i] = deal
	persist(s, persistence.WholesaleDeals, s.deals)
	return deal, nil
}

// MatchDeal ranks the directory against a deal and records the matched
// buyer ids on it. A pending or reviewed deal with at least one match moves
// to matched.
func (s *Store) MatchDeal(id string) ([]matching.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.deals, id)
	if i < 0 {
		_, err := find(s.deals, persistence.WholesaleDeals, id)
		return nil, err
	}

	deal := s.deals[i]
	results := s.engine.Match(s.buyers, deal)

	ids := make([]string, len(results))
	for j, r := range results {
		ids[j] = r.Buyer.ID
	}
	deal.MatchedBuyerIDs = ids
	deal.UpdatedAt = s.now()

	if len(ids) > 0 && (deal.Status == models.DealStatusPending || deal.Status == models.DealStatusReviewed) {
		deal.StatusHistory = slices.Clone(deal.StatusHistory)
		note := fmt.Sprintf("Matched %d buyer(s)", len(ids))
		if err := deal.Transition(models.DealStatusMatched, note, s.now()); err != nil {
			return nil, err
		}
	}

	s.deals[i] = deal
	persist(s, persistence.WholesaleDeals, s.deals)

	s.logger.Info("deal matched", map[string]interface{}{
		"dealId":  id,
		"matched": len(ids),
		"status":  string(deal.Status),
	})
	return results, nil
}

// MatchedBuyers returns the directory entries recorded on a deal, skipping
// ids that no longer exist.
func (s *Store) MatchedBuyers(dealID string) ([]models.Buyer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deal, err := find(s.deals, persistence.WholesaleDeals, dealID)
	if err != nil {
		return nil, err
	}

	buyers := make([]models.Buyer, 0, len(deal.MatchedBuyerIDs))
	for _, bid := range deal.MatchedBuyerIDs {
		if j := indexOf(s.buyers, bid); j >= 0 {
			buyers = append(buyers, s.buyers[j])
		}
	}
	return buyers, nil
}
