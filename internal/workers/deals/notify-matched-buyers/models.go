package notifymatchedbuyers

import "wholesale-crm/internal/common/validation"

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

const (
	StatusSent    = "sent"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Input selects a deal and the channels to use. No channels means both.
type Input struct {
	DealID   string   `json:"dealId"`
	Channels []string `json:"channels,omitempty"`
}

type Output struct {
	DealID     string     `json:"dealId"`
	Sent       int        `json:"sent"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
	Deliveries []Delivery `json:"deliveries"`
}

type Delivery struct {
	BuyerID   string `json:"buyerId"`
	Channel   string `json:"channel"`
	Status    string `json:"status"`
	MessageID string `json:"messageId,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

var inputSchema = validation.MustCompile(TaskType, `{
	"type": "object",
	"required": ["dealId"],
	"properties": {
		"dealId": {"type": "string", "minLength": 1},
		"channels": {
			"type": "array",
			"items": {"type": "string", "enum": ["email", "sms"]},
			"uniqueItems": true
		}
	}
}`)
