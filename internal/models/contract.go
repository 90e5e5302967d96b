// internal/models/contract.go
package models

import (
	"fmt"
	"strings"
	"time"

	"wholesale-crm/internal/common/errors"

	"github.com/google/uuid"
)

type ContractType string

const (
	ContractTypePurchase   ContractType = "Purchase"
	ContractTypeAssignment ContractType = "Assignment"
	ContractTypeOption     ContractType = "Option"
	ContractTypeWholesale  ContractType = "Wholesale"
)

func (t ContractType) IsValid() bool {
	switch t {
	case ContractTypePurchase, ContractTypeAssignment, ContractTypeOption, ContractTypeWholesale:
		return true
	}
	return false
}

type ContractStatus string

const (
	ContractStatusDraft     ContractStatus = "draft"
	ContractStatusActive    ContractStatus = "active"
	ContractStatusExecuted  ContractStatus = "executed"
	ContractStatusCancelled ContractStatus = "cancelled"
)

func (s ContractStatus) IsValid() bool {
	switch s {
	case ContractStatusDraft, ContractStatusActive, ContractStatusExecuted, ContractStatusCancelled:
		return true
	}
	return false
}

// Contract is a purchase or assignment agreement. BuyerID links the
// contract to a directory buyer; BuyerName is kept for display and for
// records created before the link existed.
type Contract struct {
	ID              string         `json:"id"`
	Type            ContractType   `json:"type"`
	PropertyAddress string         `json:"propertyAddress"`
	SellerName      string         `json:"sellerName"`
	BuyerName       string         `json:"buyerName"`
	BuyerID         string         `json:"buyerId,omitempty"`
	PurchasePrice   *float64       `json:"purchasePrice,omitempty"`
	EMD             *float64       `json:"emd,omitempty"`
	AssignmentFee   *float64       `json:"assignmentFee,omitempty"`
	Status          ContractStatus `json:"status"`
	ClosingDate     *time.Time     `json:"closingDate,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

func (c Contract) GetID() string { return c.ID }

func NewContract(c Contract, now time.Time) (Contract, error) {
	c.PropertyAddress = strings.TrimSpace(c.PropertyAddress)
	c.SellerName = strings.TrimSpace(c.SellerName)
	c.BuyerName = strings.TrimSpace(c.BuyerName)

	if c.PropertyAddress == "" {
		return Contract{}, errors.NewValidationError("propertyAddress", "property address is required")
	}
	if c.SellerName == "" {
		return Contract{}, errors.NewValidationError("sellerName", "seller name is required")
	}
	if c.BuyerName == "" {
		return Contract{}, errors.NewValidationError("buyerName", "buyer name is required")
	}
	if c.Type == "" {
		c.Type = ContractTypePurchase
	}
	if !c.Type.IsValid() {
		return Contract{}, errors.NewValidationError("type", fmt.Sprintf("unknown contract type %q", c.Type))
	}
	if c.Status == "" {
		c.Status = ContractStatusDraft
	}
	if !c.Status.IsValid() {
		return Contract{}, errors.NewValidationError("status", fmt.Sprintf("unknown contract status %q", c.Status))
	}
	if err := nonNegative("purchasePrice", c.PurchasePrice); err != nil {
		return Contract{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return c, nil
}
