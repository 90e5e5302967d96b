package crmbuyersync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"wholesale-crm/internal/common/errors"
	"wholesale-crm/internal/common/logger"
	"wholesale-crm/internal/common/metrics"
	"wholesale-crm/internal/common/zoho"
	"wholesale-crm/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "crm-buyer-sync"

type BuyerSource interface {
	GetBuyer(id string) (models.Buyer, error)
}

// ContactAPI is the part of the Zoho client the sync needs.
type ContactAPI interface {
	IsConfigured() bool
	SearchContacts(ctx context.Context, email string) ([]zoho.Contact, error)
	CreateContact(ctx context.Context, contact *zoho.Contact) (string, error)
	UpdateContact(ctx context.Context, contactID string, contact *zoho.Contact) error
}

type Handler struct {
	config *Config
	buyers BuyerSource
	crm    ContactAPI
	errors *errors.JobErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, buyers BuyerSource, crm ContactAPI, log logger.Logger) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		buyers: buyers,
		crm:    crm,
		errors: errors.NewJobErrorHandler(log),
		logger: log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.GetKey(),
		"workflowKey": job.GetProcessInstanceKey(),
	})

	if !h.config.Enabled {
		h.completeJob(ctx, client, job, &Output{Action: ActionDisabled, CRMProvider: "zoho"})
		return
	}

	raw := []byte(job.GetVariables())
	if err := inputSchema.Check(raw); err != nil {
		h.failJob(ctx, client, job, err)
		return
	}
	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		h.failJob(ctx, client, job, errors.NewParseError(err))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

// Execute upserts the buyer as a Zoho contact keyed by email.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if h.crm == nil || !h.crm.IsConfigured() {
		return nil, errors.NewCRMNotConfiguredError()
	}

	buyer, err := h.buyers.GetBuyer(input.BuyerID)
	if err != nil {
		return nil, err
	}
	if buyer.Email == "" {
		return nil, errors.NewValidationError("email", "buyer has no email address to sync on")
	}

	contact := toContact(buyer, h.config.LeadSource)
	out := &Output{BuyerID: buyer.ID, CRMProvider: "zoho"}

	existing, err := h.crm.SearchContacts(ctx, buyer.Email)
	if err != nil {
		return nil, errors.NewCRMAPIError(err)
	}

	if len(existing) > 0 {
		if err := h.crm.UpdateContact(ctx, existing[0].ID, contact); err != nil {
			return nil, errors.NewCRMAPIError(err)
		}
		out.ContactID, out.Action = existing[0].ID, ActionUpdated
	} else {
		id, err := h.crm.CreateContact(ctx, contact)
		if err != nil {
			return nil, errors.NewCRMAPIError(err)
		}
		out.ContactID, out.Action = id, ActionCreated
	}

	h.logger.Info("buyer synced to crm", map[string]interface{}{
		"buyerId":   buyer.ID,
		"contactId": out.ContactID,
		"action":    out.Action,
	})
	return out, nil
}

func toContact(b models.Buyer, source string) *zoho.Contact {
	first, last := splitName(b.Name)
	return &zoho.Contact{
		Email:       b.Email,
		FirstName:   first,
		LastName:    last,
		Phone:       b.Phone,
		AccountName: b.Company,
		Source:      source,
		Description: describeBuyBox(b),
	}
}

// splitName puts everything after the first word into the last name. Zoho
// requires a last name, so single-word names go there.
func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func describeBuyBox(b models.Buyer) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Type: %s", b.Type))
	if b.MinBudget != nil || b.MaxBudget != nil {
		parts = append(parts, fmt.Sprintf("Budget: %s - %s", money(b.MinBudget), money(b.MaxBudget)))
	}
	if len(b.PreferredAreas) > 0 {
		parts = append(parts, "Areas: "+strings.Join(b.PreferredAreas, ", "))
	}
	if len(b.PropertyTypes) > 0 {
		parts = append(parts, "Property types: "+strings.Join(b.PropertyTypes, ", "))
	}
	parts = append(parts, fmt.Sprintf("Performance: %d", b.PerformanceScore))
	return strings.Join(parts, "\n")
}

func money(v *float64) string {
	if v == nil {
		return "any"
	}
	return fmt.Sprintf("$%.0f", *v)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.failJob(ctx, client, job, errors.NewParseError(err))
		return
	}
	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := errors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, stdErr)
}
