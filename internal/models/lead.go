// internal/models/lead.go
package models

import (
	"fmt"
	"strings"
	"time"

	"wholesale-crm/internal/common/errors"

	"github.com/google/uuid"
)

type LeadStatus string

const (
	LeadStatusNew           LeadStatus = "new"
	LeadStatusContacted     LeadStatus = "contacted"
	LeadStatusQualified     LeadStatus = "qualified"
	LeadStatusNegotiating   LeadStatus = "negotiating"
	LeadStatusUnderContract LeadStatus = "under-contract"
	LeadStatusClosed        LeadStatus = "closed"
	LeadStatusDead          LeadStatus = "dead"
)

func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusNegotiating,
		LeadStatusUnderContract, LeadStatusClosed, LeadStatusDead:
		return true
	}
	return false
}

// Lead is a seller in the acquisition pipeline.
type Lead struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	PropertyAddress string     `json:"propertyAddress,omitempty"`
	Source          string     `json:"source,omitempty"`
	Status          LeadStatus `json:"status"`
	EstimatedValue  *float64   `json:"estimatedValue,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (l Lead) GetID() string { return l.ID }

func NewLead(l Lead, now time.Time) (Lead, error) {
	l.Name = strings.TrimSpace(l.Name)
	if l.Name == "" {
		return Lead{}, errors.NewValidationError("name", "lead name is required")
	}
	if l.Status == "" {
		l.Status = LeadStatusNew
	}
	if !l.Status.IsValid() {
		return Lead{}, errors.NewValidationError("status", fmt.Sprintf("unknown lead status %q", l.Status))
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = now
	l.UpdatedAt = now
	return l, nil
}
