package matchbuyers

import (
	"context"
	"encoding/json"

	"wholesale-crm/internal/common/errors"
	"wholesale-crm/internal/common/logger"
	"wholesale-crm/internal/common/metrics"
	"wholesale-crm/internal/matching"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "match-buyers"

// Matcher ranks the buyer directory against stored targets.
type Matcher interface {
	MatchProperty(id string) ([]matching.Result, error)
	MatchDeal(id string) ([]matching.Result, error)
}

type Handler struct {
	config  *Config
	matcher Matcher
	errors  *errors.JobErrorHandler
	logger  logger.Logger
}

func NewHandler(config *Config, matcher Matcher, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		matcher: matcher,
		errors:  errors.NewJobErrorHandler(log),
		logger:  log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.GetKey(),
		"workflowKey": job.GetProcessInstanceKey(),
	})

	input, err := parseInput(job.GetVariables())
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

// Execute matches a deal when dealId is set, otherwise a property. Matching a
// deal records the buyers on it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	var (
		results []matching.Result
		err     error
		out     = &Output{}
	)

	switch {
	case input.DealID != "" && input.PropertyID != "":
		return nil, errors.NewValidationError("(root)", "only one of propertyId or dealId may be set")
	case input.DealID != "":
		out.TargetID, out.TargetKind = input.DealID, KindDeal
		results, err = h.matcher.MatchDeal(input.DealID)
	case input.PropertyID != "":
		out.TargetID, out.TargetKind = input.PropertyID, KindProperty
		results, err = h.matcher.MatchProperty(input.PropertyID)
	default:
		return nil, errors.NewValidationError("propertyId", "propertyId or dealId is required")
	}
	if err != nil {
		return nil, err
	}

	out.Matches = make([]Match, len(results))
	for i, r := range results {
		out.Matches[i] = Match{
			BuyerID:   r.Buyer.ID,
			BuyerName: r.Buyer.Name,
			Score:     r.Score,
			Factors:   r.Factors,
		}
	}
	out.MatchCount = len(out.Matches)

	h.logger.Info("buyers matched", map[string]interface{}{
		"targetId":   out.TargetID,
		"targetKind": out.TargetKind,
		"matchCount": out.MatchCount,
	})
	return out, nil
}

func parseInput(variables string) (*Input, error) {
	if err := inputSchema.Check([]byte(variables)); err != nil {
		return nil, err
	}
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewParseError(err)
	}
	return &input, nil
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
