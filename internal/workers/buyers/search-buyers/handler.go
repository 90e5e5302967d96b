package searchbuyers

import (
	"context"
	"encoding/json"

	"wholesale-crm/internal/common/errors"
	"wholesale-crm/internal/common/logger"
	"wholesale-crm/internal/common/metrics"
	"wholesale-crm/internal/models"
	"wholesale-crm/internal/search"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "search-buyers"

type Searcher interface {
	Search(ctx context.Context, q search.Query) (*search.Result, error)
}

type Handler struct {
	config   *Config
	searcher Searcher
	errors   *errors.JobErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, searcher Searcher, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		searcher: searcher,
		errors:   errors.NewJobErrorHandler(log),
		logger:   log,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	status := models.BuyerStatus(input.Status)
	if status != "" && !status.IsValid() {
		return nil, errors.NewValidationError("status", "unknown buyer status "+input.Status)
	}
	buyerType := models.BuyerType(input.Type)
	if buyerType != "" && !buyerType.IsValid() {
		return nil, errors.NewValidationError("type", "unknown buyer type "+input.Type)
	}

	res, err := h.searcher.Search(ctx, search.Query{
		Text:   input.Query,
		Status: status,
		Type:   buyerType,
		From:   input.From,
		Size:   input.Size,
	})
	if err != nil {
		return nil, err
	}

	h.logger.Debug("buyer search", map[string]interface{}{
		"query": input.Query,
		"total": res.Total,
		"took":  res.Took,
	})
	return &Output{Buyers: res.Buyers, Total: res.Total, TookMs: res.Took}, nil
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
