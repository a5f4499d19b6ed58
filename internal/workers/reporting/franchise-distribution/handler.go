package franchisedistribution

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
	"leadflow-workers/internal/distribution"
	"leadflow-workers/internal/models"
	"leadflow-workers/internal/workers"
)

const TaskType = "franchise-distribution"

type Reporter interface {
	DistributionReport(ctx context.Context, date string) (models.DistributionReport, error)
}

type Handler struct {
	config       *Config
	reporter     Reporter
	calendar     *timeutil.Calendar
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, reporter Reporter, calendar *timeutil.Calendar, errorHandler *errors.ErrorHandler, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		reporter:     reporter,
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
		stdErr := workers.Classify("distribution report", err)
		h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
		return stdErr
	}

	return camunda.CompleteJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input cannot be nil", distribution.ErrInvalidInput)
	}
	date, err := h.calendar.ResolveDate(input.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", distribution.ErrInvalidInput, err)
	}

	report, err := h.reporter.DistributionReport(ctx, date)
	if err != nil {
		return nil, err
	}
	if report.Franchises == nil {
		report.Franchises = []models.FranchiseShare{}
	}

	h.logger.Debug("distribution report built", map[string]interface{}{
		"date":       date,
		"total":      report.TotalAssignments,
		"franchises": len(report.Franchises),
	})
	return &report, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
