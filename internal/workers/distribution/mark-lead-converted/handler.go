package markleadconverted

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"leadflow-workers/internal/common/camunda"
	"leadflow-workers/internal/common/errors"
	"leadflow-workers/internal/common/logger"
	"leadflow-workers/internal/distribution"
	"leadflow-workers/internal/workers"
)

const TaskType = "mark-lead-converted"

type Converter interface {
	MarkConverted(ctx context.Context, leadID string) error
}

type Handler struct {
	config       *Config
	converter    Converter
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, converter Converter, errorHandler *errors.ErrorHandler, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		converter:    converter,
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
		stdErr := workers.Classify("mark converted", err)
		h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
		return stdErr
	}

	return camunda.CompleteJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input cannot be nil", distribution.ErrInvalidInput)
	}
	if err := h.converter.MarkConverted(ctx, input.LeadID); err != nil {
		return nil, err
	}
	h.logger.Info("lead converted", map[string]interface{}{"leadId": input.LeadID})
	return &Output{LeadID: input.LeadID, Converted: true}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
