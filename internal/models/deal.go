// internal/models/deal.go
package models

import (
	"fmt"
	"strings"
	"time"

	"wholesale-crm/internal/common/errors"

	"github.com/google/uuid"
)

type DealStatus string

const (
	DealStatusPending  DealStatus = "pending"
	DealStatusReviewed DealStatus = "reviewed"
	DealStatusMatched  DealStatus = "matched"
	DealStatusClosed   DealStatus = "closed"
	DealStatusRejected DealStatus = "rejected"
)

func (s DealStatus) IsValid() bool {
	switch s {
	case DealStatusPending, DealStatusReviewed, DealStatusMatched, DealStatusClosed, DealStatusRejected:
		return true
	}
	return false
}

// StatusChange is one entry of a deal's append-only status log.
type StatusChange struct {
	Status DealStatus `json:"status"`
	Notes  string     `json:"notes,omitempty"`
	Date   time.Time  `json:"date"`
}

// WholesaleDeal is a deal submitted by another wholesaler.
type WholesaleDeal struct {
	ID                string         `json:"id"`
	PropertyAddress   string         `json:"propertyAddress"`
	PropertyType      string         `json:"propertyType,omitempty"`
	Price             *float64       `json:"price,omitempty"`
	ARV               *float64       `json:"arv,omitempty"`
	Bedrooms          *int           `json:"bedrooms,omitempty"`
	Bathrooms         *float64       `json:"bathrooms,omitempty"`
	SquareFeet        *int           `json:"sqft,omitempty"`
	WholesalerName    string         `json:"wholesalerName,omitempty"`
	WholesalerPhone   string         `json:"wholesalerPhone,omitempty"`
	WholesalerEmail   string         `json:"wholesalerEmail,omitempty"`
	WholesalerCompany string         `json:"wholesalerCompany,omitempty"`
	Status            DealStatus     `json:"status"`
	MatchedBuyerIDs   []string       `json:"matchedBuyerIds,omitempty"`
	StatusHistory     []StatusChange `json:"statusHistory"`
	Notes             string         `json:"notes,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

func (d WholesaleDeal) GetID() string { return d.ID }
func (d WholesaleDeal) TargetID() string { return d.ID }
func (d WholesaleDeal) TargetPrice() *float64 { return d.Price }
func (d WholesaleDeal) TargetAddress() string { return d.PropertyAddress }
func (d WholesaleDeal) TargetType() string { return d.PropertyType }
func (d WholesaleDeal) TargetBedrooms() *int { return d.Bedrooms }
func (d WholesaleDeal) TargetBathrooms() *float64 { return d.Bathrooms }
func (d WholesaleDeal) TargetSquareFeet() *int { return d.SquareFeet }

// Spread is ARV minus the asking price, when both are known.
func (d WholesaleDeal) Spread() (float64, bool) {
	if d.ARV == nil || d.Price == nil {
		return 0, false
	}
	return *d.ARV - *d.Price, true
}

// NewWholesaleDeal validates d and opens its status history.
func NewWholesaleDeal(d WholesaleDeal, now time.Time) (WholesaleDeal, error) {
	d.PropertyAddress = strings.TrimSpace(d.PropertyAddress)
	if d.PropertyAddress == "" {
		return WholesaleDeal{}, errors.NewValidationError("propertyAddress", "property address is required")
	}
	if d.Status == "" {
		d.Status = DealStatusPending
	}
	if !d.Status.IsValid() {
		return WholesaleDeal{}, errors.NewValidationError("status", fmt.Sprintf("unknown deal status %q", d.Status))
	}
	if err := nonNegative("price", d.Price); err != nil {
		return WholesaleDeal{}, err
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.StatusHistory = []StatusChange{{Status: d.Status, Notes: "Deal submitted", Date: now}}
	d.CreatedAt = now
	d.UpdatedAt = now
	return d, nil
}

// Transition moves the deal to status and appends to the history. Any
// status may follow any other.
func (d *WholesaleDeal) Transition(status DealStatus, notes string, now time.Time) error {
	if !status.IsValid() {
		return errors.NewValidationError("status", fmt.Sprintf("unknown deal status %q", status))
	}
	d.Status = status
	d.StatusHistory = append(d.StatusHistory, StatusChange{Status: status, Notes: notes, Date: now})
	d.UpdatedAt = now
	return nil
}
