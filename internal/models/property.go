// internal/models/property.go
package models

import (
	"fmt"
	"strings"
	"time"

	"wholesale-crm/internal/common/errors"

	"github.com/google/uuid"
)

// MatchTarget is anything buyers can be matched against: a property in
// inventory or an incoming wholesale deal. Absent numeric fields are nil.
type MatchTarget interface {
	TargetID() string
	TargetPrice() *float64
	TargetAddress() string
	TargetType() string
	TargetBedrooms() *int
	TargetBathrooms() *float64
	TargetSquareFeet() *int
}

type PropertyStatus string

const (
	PropertyStatusActive        PropertyStatus = "active"
	PropertyStatusUnderContract PropertyStatus = "under-contract"
	PropertyStatusSold          PropertyStatus = "sold"
	PropertyStatusOnHold        PropertyStatus = "on-hold"
)

func (s PropertyStatus) IsValid() bool {
	switch s {
	case PropertyStatusActive, PropertyStatusUnderContract, PropertyStatusSold, PropertyStatusOnHold:
		return true
	}
	return false
}

type Property struct {
	ID            string         `json:"id"`
	Address       string         `json:"address"`
	PropertyType  string         `json:"propertyType,omitempty"`
	PurchasePrice *float64       `json:"purchasePrice,omitempty"`
	ARV           *float64       `json:"arv,omitempty"`
	RepairCost    *float64       `json:"repairCost,omitempty"`
	Bedrooms      *int           `json:"bedrooms,omitempty"`
	Bathrooms     *float64       `json:"bathrooms,omitempty"`
	SquareFeet    *int           `json:"sqft,omitempty"`
	Status        PropertyStatus `json:"status"`
	Notes         string         `json:"notes,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func (p Property) GetID() string { return p.ID }
func (p Property) TargetID() string { return p.ID }
func (p Property) TargetPrice() *float64 { return p.PurchasePrice }
func (p Property) TargetAddress() string { return p.Address }
func (p Property) TargetType() string { return p.PropertyType }
func (p Property) TargetBedrooms() *int { return p.Bedrooms }
func (p Property) TargetBathrooms() *float64 { return p.Bathrooms }
func (p Property) TargetSquareFeet() *int { return p.SquareFeet }

// NewProperty validates p and fills id, status and timestamps.
func NewProperty(p Property, now time.Time) (Property, error) {
	p.Address = strings.TrimSpace(p.Address)
	if p.Address == "" {
		return Property{}, errors.NewValidationError("address", "property address is required")
	}
	if p.Status == "" {
		p.Status = PropertyStatusActive
	}
	if !p.Status.IsValid() {
		return Property{}, errors.NewValidationError("status", fmt.Sprintf("unknown property status %q", p.Status))
	}
	if err := nonNegative("purchasePrice", p.PurchasePrice); err != nil {
		return Property{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}
