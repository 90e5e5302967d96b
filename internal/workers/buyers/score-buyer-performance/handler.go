package scorebuyerperformance

import (
	"context"
	"encoding/json"

	"wholesale-crm/internal/common/errors"
	"wholesale-crm/internal/common/logger"
	"wholesale-crm/internal/common/metrics"
	"wholesale-crm/internal/performance"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "score-buyer-performance"

type Scorer interface {
	RefreshPerformance() []performance.Result
	RefreshBuyerPerformance(id string) (performance.Result, error)
}

type Handler struct {
	config *Config
	scorer Scorer
	errors *errors.JobErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, scorer Scorer, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		scorer: scorer,
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

// Execute recomputes performance scores. The scorer writes results back to
// the directory, so repeated runs over unchanged data are no-ops.
func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	var results []performance.Result
	if input.BuyerID != "" {
		res, err := h.scorer.RefreshBuyerPerformance(input.BuyerID)
		if err != nil {
			return nil, err
		}
		results = []performance.Result{res}
	} else {
		results = h.scorer.RefreshPerformance()
	}

	out := &Output{Scores: make(map[string]int, len(results)), Updated: len(results)}
	for _, r := range results {
		out.Scores[r.BuyerID] = r.Score
	}

	h.logger.Info("buyer performance scored", map[string]interface{}{
		"buyerId": input.BuyerID,
		"updated": out.Updated,
	})
	return out, nil
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
