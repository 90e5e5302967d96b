package notifymatchedbuyers

import (
	"context"
	"encoding/json"
	"fmt"

	"wholesale-crm/internal/common/errors"
	"wholesale-crm/internal/common/logger"
	"wholesale-crm/internal/common/metrics"
	"wholesale-crm/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "notify-matched-buyers"

type DealStore interface {
	GetDeal(id string) (models.WholesaleDeal, error)
	MatchedBuyers(dealID string) ([]models.Buyer, error)
}

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, text, html string) (string, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type Handler struct {
	config *Config
	deals  DealStore
	email  EmailSender
	sms    SMSSender
	errors *errors.JobErrorHandler
	logger logger.Logger
}

// NewHandler accepts nil senders; their channel is then reported as skipped.
func NewHandler(config *Config, deals DealStore, email EmailSender, sms SMSSender, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		deals:  deals,
		email:  email,
		sms:    sms,
		errors: errors.NewJobErrorHandler(log),
		logger: log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.GetKey(),
		"workflowKey": job.GetProcessInstanceKey(),
	})

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

// Execute messages every matched buyer on each requested channel. Buyers
// without contact details for a channel are skipped. The job fails only when
// nothing was delivered and at least one send failed.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	deal, err := h.deals.GetDeal(input.DealID)
	if err != nil {
		return nil, err
	}
	buyers, err := h.deals.MatchedBuyers(input.DealID)
	if err != nil {
		return nil, err
	}

	channels := input.Channels
	if len(channels) == 0 {
		channels = []string{ChannelEmail, ChannelSMS}
	}

	out := &Output{DealID: deal.ID, Deliveries: []Delivery{}}
	var lastErr error
	for _, buyer := range buyers {
		data := messageData{Buyer: buyer, Deal: deal}
		for _, ch := range channels {
			d := h.deliver(ctx, ch, data)
			switch d.Status {
			case StatusSent:
				out.Sent++
			case StatusFailed:
				out.Failed++
				lastErr = fmt.Errorf("%s to buyer %s: %s", ch, buyer.ID, d.Reason)
			default:
				out.Skipped++
			}
			out.Deliveries = append(out.Deliveries, d)
		}
	}

	h.logger.Info("matched buyers notified", map[string]interface{}{
		"dealId":  deal.ID,
		"buyers":  len(buyers),
		"sent":    out.Sent,
		"skipped": out.Skipped,
		"failed":  out.Failed,
	})

	if out.Sent == 0 && lastErr != nil {
		return nil, errors.NewNotificationSendFailedError(channels[0], lastErr)
	}
	return out, nil
}

func (h *Handler) deliver(ctx context.Context, channel string, data messageData) Delivery {
	d := Delivery{BuyerID: data.Buyer.ID, Channel: channel, Status: StatusSkipped}

	var (
		id  string
		err error
	)
	switch channel {
	case ChannelEmail:
		if !h.config.EmailEnabled || h.email == nil {
			d.Reason = "email disabled"
			return d
		}
		if data.Buyer.Email == "" {
			d.Reason = "no email address"
			return d
		}
		id, err = h.sendEmail(ctx, data)
	case ChannelSMS:
		if !h.config.SMSEnabled || h.sms == nil {
			d.Reason = "sms disabled"
			return d
		}
		if data.Buyer.Phone == "" {
			d.Reason = "no phone number"
			return d
		}
		id, err = h.sendSMS(ctx, data)
	default:
		d.Reason = "unknown channel"
		return d
	}

	if err != nil {
		h.logger.Warn("notification send failed", map[string]interface{}{
			"buyerId": data.Buyer.ID,
			"channel": channel,
			"error":   err.Error(),
		})
		d.Status, d.Reason = StatusFailed, err.Error()
		return d
	}
	d.Status, d.MessageID = StatusSent, id
	return d
}

func (h *Handler) sendEmail(ctx context.Context, data messageData) (string, error) {
	subject, err := render(subjectTmpl, data)
	if err != nil {
		return "", err
	}
	body, err := render(emailTmpl, data)
	if err != nil {
		return "", err
	}
	return h.email.SendEmail(ctx, data.Buyer.Email, subject, body, "")
}

func (h *Handler) sendSMS(ctx context.Context, data messageData) (string, error) {
	msg, err := render(smsTmpl, data)
	if err != nil {
		return "", err
	}
	return h.sms.SendSMS(ctx, data.Buyer.Phone, msg)
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
