// internal/models/buyer.go
package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"wholesale-crm/internal/common/errors"

	"github.com/google/uuid"
)

type BuyerType string

const (
	BuyerTypeHedgeFund       BuyerType = "hedge-fund"
	BuyerTypePrivateInvestor BuyerType = "private-investor"
	BuyerTypeFixFlip         BuyerType = "fix-flip"
	BuyerTypeBuyHold         BuyerType = "buy-hold"
	BuyerTypeWholesaler      BuyerType = "wholesaler"
	BuyerTypeCashBuyer       BuyerType = "cash-buyer"
	BuyerTypeOther           BuyerType = "other"
)

func (t BuyerType) IsValid() bool {
	switch t {
	case BuyerTypeHedgeFund, BuyerTypePrivateInvestor, BuyerTypeFixFlip, BuyerTypeBuyHold,
		BuyerTypeWholesaler, BuyerTypeCashBuyer, BuyerTypeOther:
		return true
	}
	return false
}

type BuyerStatus string

const (
	BuyerStatusActive   BuyerStatus = "active"
	BuyerStatusWarm     BuyerStatus = "warm"
	BuyerStatusCold     BuyerStatus = "cold"
	BuyerStatusInactive BuyerStatus = "inactive"
)

func (s BuyerStatus) IsValid() bool {
	switch s {
	case BuyerStatusActive, BuyerStatusWarm, BuyerStatusCold, BuyerStatusInactive:
		return true
	}
	return false
}

// BuyerSource records how a buyer entered the directory.
type BuyerSource string

const (
	BuyerSourceManual   BuyerSource = "manual"
	BuyerSourceImport   BuyerSource = "csv-import"
	BuyerSourceReferral BuyerSource = "referral"
)

// Buyer is a directory entry together with its buy-box.
type Buyer struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Company          string      `json:"company,omitempty"`
	Email            string      `json:"email,omitempty"`
	Phone            string      `json:"phone,omitempty"`
	Type             BuyerType   `json:"type"`
	Status           BuyerStatus `json:"status"`
	MinBudget        *float64    `json:"minBudget,omitempty"`
	MaxBudget        *float64    `json:"maxBudget,omitempty"`
	PreferredAreas   []string    `json:"preferredAreas,omitempty"`
	PropertyTypes    []string    `json:"propertyTypes,omitempty"`
	MinBedrooms      *int        `json:"minBedrooms,omitempty"`
	MinBathrooms     *float64    `json:"minBathrooms,omitempty"`
	MinSquareFeet    *int        `json:"minSquareFeet,omitempty"`
	PerformanceScore int         `json:"performanceScore"`
	DealsCompleted   int         `json:"dealsCompleted"`
	LastContact      *time.Time  `json:"lastContact,omitempty"`
	Source           BuyerSource `json:"source,omitempty"`
	Notes            string      `json:"notes,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

func (b Buyer) GetID() string { return b.ID }

// HasBudget reports whether both budget bounds are present.
func (b Buyer) HasBudget() bool {
	return b.MinBudget != nil && b.MaxBudget != nil
}

// BuyerParams carries user input for creating or replacing a buyer.
type BuyerParams struct {
	ID             string
	Name           string
	Company        string
	Email          string
	Phone          string
	Type           BuyerType
	Status         BuyerStatus
	MinBudget      *float64
	MaxBudget      *float64
	PreferredAreas []string
	PropertyTypes  []string
	MinBedrooms    *int
	MinBathrooms   *float64
	MinSquareFeet  *int
	LastContact    *time.Time
	Source         BuyerSource
	Notes          string
}

// NewBuyer validates params and returns a buyer. Type defaults to other,
// status to active and source to manual.
func NewBuyer(p BuyerParams, now time.Time) (Buyer, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return Buyer{}, errors.NewValidationError("name", "buyer name is required")
	}

	if p.Type == "" {
		p.Type = BuyerTypeOther
	}
	if !p.Type.IsValid() {
		return Buyer{}, errors.NewValidationError("type", fmt.Sprintf("unknown buyer type %q", p.Type))
	}
	if p.Status == "" {
		p.Status = BuyerStatusActive
	}
	if !p.Status.IsValid() {
		return Buyer{}, errors.NewValidationError("status", fmt.Sprintf("unknown buyer status %q", p.Status))
	}
	if p.Source == "" {
		p.Source = BuyerSourceManual
	}

	if err := nonNegative("minBudget", p.MinBudget); err != nil {
		return Buyer{}, err
	}
	if err := nonNegative("maxBudget", p.MaxBudget); err != nil {
		return Buyer{}, err
	}
	if p.MinBudget != nil && p.MaxBudget != nil && *p.MinBudget > *p.MaxBudget {
		return Buyer{}, errors.NewValidationError("minBudget", "minimum budget exceeds maximum budget")
	}
	if p.MinBedrooms != nil && *p.MinBedrooms < 0 {
		return Buyer{}, errors.NewValidationError("minBedrooms", "must not be negative")
	}
	if err := nonNegative("minBathrooms", p.MinBathrooms); err != nil {
		return Buyer{}, err
	}
	if p.MinSquareFeet != nil && *p.MinSquareFeet < 0 {
		return Buyer{}, errors.NewValidationError("minSquareFeet", "must not be negative")
	}

	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}

	return Buyer{
		ID:             id,
		Name:           name,
		Company:        strings.TrimSpace(p.Company),
		Email:          strings.TrimSpace(p.Email),
		Phone:          strings.TrimSpace(p.Phone),
		Type:           p.Type,
		Status:         p.Status,
		MinBudget:      p.MinBudget,
		MaxBudget:      p.MaxBudget,
		PreferredAreas: cleanList(p.PreferredAreas),
		PropertyTypes:  cleanList(p.PropertyTypes),
		MinBedrooms:    p.MinBedrooms,
		MinBathrooms:   p.MinBathrooms,
		MinSquareFeet:  p.MinSquareFeet,
		LastContact:    p.LastContact,
		Source:         p.Source,
		Notes:          p.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ParseList splits a comma-separated free-text field into trimmed,
// non-empty tokens.
func ParseList(s string) []string {
	return cleanList(strings.Split(s, ","))
}

func cleanList(in []string) []string {
	var out []string
	for _, item := range in {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func nonNegative(field string, v *float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return errors.NewValidationError(field, "must be a finite number")
	}
	if *v < 0 {
		return errors.NewValidationError(field, "must not be negative")
	}
	return nil
}
