package rundailyrollup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"leadflow-workers/internal/common/camunda"
	"leadflow-workers/internal/common/errors"
	"leadflow-workers/internal/common/logger"
	"leadflow-workers/internal/common/timeutil"
	"leadflow-workers/internal/models"
	"leadflow-workers/internal/rollup"
	"leadflow-workers/internal/workers"
)

const TaskType = "run-daily-rollup"

type Runner interface {
	Run(ctx context.Context, req rollup.Request) (models.DailyRecord, error)
}

type Handler struct {
	config       *Config
	runner       Runner
	calendar     *timeutil.Calendar
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, runner Runner, calendar *timeutil.Calendar, errorHandler *errors.ErrorHandler, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		runner:       runner,
		calendar:     calendar,
		errorHandler: errorHandler,
		logger:       log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		stdErr := errors.NewParseError(err)
		h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
		return stdErr
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		stdErr := workers.Classify("daily rollup", err)
		h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
		return stdErr
	}

	return camunda.CompleteJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input cannot be nil", rollup.ErrInvalidInput)
	}
	date, err := h.calendar.ResolveDate(input.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rollup.ErrInvalidInput, err)
	}

	rec, err := h.runner.Run(ctx, rollup.Request{
		ServerID: input.ServerID,
		Date:     date,
		Finalize: h.calendar.IsPast(date),
	})
	if err != nil {
		return nil, err
	}

	return &Output{
		DailyRecordID:     rec.ID,
		ServerID:          rec.ServerID,
		Date:              rec.Date,
		TotalLeads:        rec.TotalLeads,
		TotalConversions:  rec.TotalConversions,
		TotalSpent:        rec.TotalSpent,
		ConversionRate:    rec.ConversionRate,
		CostPerLead:       rec.CostPerLead,
		CostPerConversion: rec.CostPerConversion,
		Finalized:         rec.Finalized,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
