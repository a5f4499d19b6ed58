package rollupallservers

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
	"leadflow-workers/internal/rollup"
	"leadflow-workers/internal/workers"
)

const TaskType = "rollup-all-servers"

type BatchRunner interface {
	RunAll(ctx context.Context, date string, finalize bool) (rollup.Summary, error)
}

type Handler struct {
	config       *Config
	runner       BatchRunner
	calendar     *timeutil.Calendar
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, runner BatchRunner, calendar *timeutil.Calendar, errorHandler *errors.ErrorHandler, log logger.Logger) *Handler {
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
		stdErr := workers.Classify("rollup all servers", err)
		h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
		return stdErr
	}

	return camunda.CompleteJob(ctx, client, job, output)
}

// execute completes even when some servers fail; the process decides what to
// do with failedServerIds.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input cannot be nil", rollup.ErrInvalidInput)
	}
	date, err := h.calendar.ResolveDate(input.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rollup.ErrInvalidInput, err)
	}
	finalize := h.calendar.IsPast(date)

	summary, err := h.runner.RunAll(ctx, date, finalize)
	if err != nil {
		return nil, err
	}

	if summary.Failed > 0 {
		h.logger.Warn("rollup finished with failures", map[string]interface{}{
			"date":            date,
			"processed":       summary.Processed,
			"failed":          summary.Failed,
			"failedServerIds": summary.FailedServerIDs,
		})
	} else {
		h.logger.Info("rollup finished", map[string]interface{}{
			"date":      date,
			"processed": summary.Processed,
		})
	}

	return &Output{
		Date:             date,
		Finalized:        finalize,
		ServersProcessed: summary.Processed,
		ServersFailed:    summary.Failed,
		FailedServerIDs:  summary.FailedServerIDs,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
