package scorebuyerperformance

import "wholesale-crm/internal/common/validation"

// Input rescoring one buyer, or the whole directory when BuyerID is empty.
type Input struct {
	BuyerID string `json:"buyerId,omitempty"`
}

type Output struct {
	Scores  map[string]int `json:"scores"`
	Updated int            `json:"updated"`
}

var inputSchema = validation.MustCompile(TaskType, `{
	"type": "object",
	"properties": {
		"buyerId": {"type": "string"}
	}
}`)
