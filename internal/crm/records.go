package crm

import (
	"slices"

	"wholesale-crm/internal/common/errors"
	"wholesale-crm/internal/models"
	"wholesale-crm/internal/persistence"
)

// ==========================
// Leads
// ==========================

func (s *Store) AddLead(l models.Lead) (models.Lead, error) {
	lead, err := models.NewLead(l, s.now())
	if err != nil {
		return models.Lead{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leads, err = insert(s.leads, persistence.Leads, lead); err != nil {
		return models.Lead{}, err
	}
	persist(s, persistence.Leads, s.leads)
	return lead, nil
}

func (s *Store) UpdateLead(l models.Lead) (models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := find(s.leads, persistence.Leads, l.ID)
	if err != nil {
		return models.Lead{}, err
	}
	lead, err := models.NewLead(l, s.now())
	if err != nil {
		return models.Lead{}, err
	}
	lead.CreatedAt = existing.CreatedAt

	if err := replace(s.leads, persistence.Leads, lead); err != nil {
		return models.Lead{}, err
	}
	persist(s, persistence.Leads, s.leads)
	return lead, nil
}

func (s *Store) DeleteLead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.leads, err = remove(s.leads, persistence.Leads, id); err != nil {
		return err
	}
	persist(s, persistence.Leads, s.leads)
	return nil
}

func (s *Store) GetLead(id string) (models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.leads, persistence.Leads, id)
}

func (s *Store) ListLeads() []models.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.leads)
}

// ==========================
// Properties
// ==========================

func (s *Store) AddProperty(p models.Property) (models.Property, error) {
	prop, err := models.NewProperty(p, s.now())
	if err != nil {
		return models.Property{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.properties, err = insert(s.properties, persistence.Properties, prop); err != nil {
		return models.Property{}, err
	}
	persist(s, persistence.Properties, s.properties)
	return prop, nil
}

func (s *Store) UpdateProperty(p models.Property) (models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := find(s.properties, persistence.Properties, p.ID)
	if err != nil {
		return models.Property{}, err
	}
	prop, err := models.NewProperty(p, s.now())
	if err != nil {
		return models.Property{}, err
	}
	prop.CreatedAt = existing.CreatedAt

	if err := replace(s.properties, persistence.Properties, prop); err != nil {
		return models.Property{}, err
	}
	persist(s, persistence.Properties, s.properties)
	return prop, nil
}

func (s *Store) DeleteProperty(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.properties, err = remove(s.properties, persistence.Properties, id); err != nil {
		return err
	}
	persist(s, persistence.Properties, s.properties)
	return nil
}

func (s *Store) GetProperty(id string) (models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.properties, persistence.Properties, id)
}

func (s *Store) ListProperties() []models.Property {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.properties)
}

// ==========================
// Contracts
// ==========================

// AddContract stores c and rescores buyers, since executed contracts feed
// the performance score. A BuyerID must name a directory buyer; its name
// fills BuyerName when that is blank.
func (s *Store) AddContract(c models.Contract) (models.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.linkBuyerLocked(&c, ""); err != nil {
		return models.Contract{}, err
	}
	contract, err := models.NewContract(c, s.now())
	if err != nil {
		return models.Contract{}, err
	}
	if s.contracts, err = insert(s.contracts, persistence.Contracts, contract); err != nil {
		return models.Contract{}, err
	}
	persist(s, persistence.Contracts, s.contracts)
	s.refreshPerformanceLocked()
	return contract, nil
}

func (s *Store) UpdateContract(c models.Contract) (models.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := find(s.contracts, persistence.Contracts, c.ID)
	if err != nil {
		return models.Contract{}, err
	}
	if err := s.linkBuyerLocked(&c, existing.BuyerID); err != nil {
		return models.Contract{}, err
	}
	contract, err := models.NewContract(c, s.now())
	if err != nil {
		return models.Contract{}, err
	}
	contract.CreatedAt = existing.CreatedAt

	if err := replace(s.contracts, persistence.Contracts, contract); err != nil {
		return models.Contract{}, err
	}
	persist(s, persistence.Contracts, s.contracts)
	s.refreshPerformanceLocked()
	return contract, nil
}

func (s *Store) DeleteContract(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.contracts, err = remove(s.contracts, persistence.Contracts, id); err != nil {
		return err
	}
	persist(s, persistence.Contracts, s.contracts)
	s.refreshPerformanceLocked()
	return nil
}

func (s *Store) GetContract(id string) (models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.contracts, persistence.Contracts, id)
}

func (s *Store) ListContracts() []models.Contract {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.contracts)
}

// linkBuyerLocked checks c.BuyerID against the directory. An id equal to
// storedID was accepted earlier and is kept even if that buyer is gone.
func (s *Store) linkBuyerLocked(c *models.Contract, storedID string) error {
	if c.BuyerID == "" {
		return nil
	}
	buyer, err := find(s.buyers, persistence.Buyers, c.BuyerID)
	if err != nil {
		if c.BuyerID == storedID {
			return nil
		}
		return errors.NewValidationError("buyerId", "unknown buyer "+c.BuyerID)
	}
	if c.BuyerName == "" {
		c.BuyerName = buyer.Name
	}
	return nil
}
