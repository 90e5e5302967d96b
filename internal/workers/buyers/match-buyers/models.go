package matchbuyers

import (
	"wholesale-crm/internal/common/validation"
	"wholesale-crm/internal/matching"
)

// Input names exactly one match target.
type Input struct {
	PropertyID string `json:"propertyId,omitempty"`
	DealID     string `json:"dealId,omitempty"`
}

type Output struct {
	TargetID   string  `json:"targetId"`
	TargetKind string  `json:"targetKind"`
	Matches    []Match `json:"matches"`
	MatchCount int     `json:"matchCount"`
}

type Match struct {
	BuyerID   string           `json:"buyerId"`
	BuyerName string           `json:"buyerName"`
	Score     int              `json:"score"`
	Factors   matching.Factors `json:"factors"`
}

const (
	KindProperty = "property"
	KindDeal     = "deal"
)

var inputSchema = validation.MustCompile(TaskType, `{
	"type": "object",
	"properties": {
		"propertyId": {"type": "string", "minLength": 1},
		"dealId": {"type": "string", "minLength": 1}
	},
	"oneOf": [
		{"required": ["propertyId"]},
		{"required": ["dealId"]}
	]
}`)
