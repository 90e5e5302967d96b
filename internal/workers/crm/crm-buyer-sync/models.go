package crmbuyersync

import "wholesale-crm/internal/common/validation"

type Input struct {
	BuyerID string `json:"buyerId"`
}

type Output struct {
	BuyerID     string `json:"buyerId"`
	ContactID   string `json:"crmContactId,omitempty"`
	Action      string `json:"crmAction"`
	CRMProvider string `json:"crmProvider"`
}

const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDisabled = "disabled"
)

var inputSchema = validation.MustCompile(TaskType, `{
	"type": "object",
	"required": ["buyerId"],
	"properties": {
		"buyerId": {"type": "string", "minLength": 1}
	}
}`)
