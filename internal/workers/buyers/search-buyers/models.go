package searchbuyers

import (
	"wholesale-crm/internal/common/validation"
	"wholesale-crm/internal/models"
)

type Input struct {
	Query  string `json:"query,omitempty"`
	Status string `json:"status,omitempty"`
	Type   string `json:"type,omitempty"`
	From   int    `json:"from,omitempty"`
	Size   int    `json:"size,omitempty"`
}

type Output struct {
	Buyers []models.Buyer `json:"buyers"`
	Total  int64          `json:"total"`
	TookMs int64          `json:"tookMs"`
}

var inputSchema = validation.MustCompile(TaskType, `{
	"type": "object",
	"properties": {
		"query": {"type": "string", "maxLength": 256},
		"status": {"type": "string", "enum": ["", "active", "warm", "cold", "inactive"]},
		"type": {"type": "string"},
		"from": {"type": "integer", "minimum": 0},
		"size": {"type": "integer", "minimum": 0, "maximum": 100}
	}
}`)
