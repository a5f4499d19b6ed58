package recordphoneassignment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"leadflow-workers/internal/common/camunda"
	"leadflow-workers/internal/common/errors"
	"leadflow-workers/internal/common/events"
	"leadflow-workers/internal/common/logger"
	"leadflow-workers/internal/common/timeutil"
	"leadflow-workers/internal/distribution"
	"leadflow-workers/internal/models"
	"leadflow-workers/internal/workers"
)

const TaskType = "record-phone-assignment"

type Recorder interface {
	Record(ctx context.Context, a models.Assignment) (distribution.RecordResult, error)
}

type Handler struct {
	config       *Config
	recorder     Recorder
	publisher    events.Publisher
	calendar     *timeutil.Calendar
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, recorder Recorder, publisher events.Publisher, calendar *timeutil.Calendar, errorHandler *errors.ErrorHandler, log logger.Logger) *Handler {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Handler{
		config:       config,
		recorder:     recorder,
		publisher:    publisher,
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
		stdErr := workers.Classify("record assignment", err)
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

	res, err := h.recorder.Record(ctx, models.Assignment{
		LeadID:        input.LeadID,
		FranchiseID:   input.FranchiseID,
		PhoneID:       input.PhoneID,
		ServerID:      input.ServerID,
		Date:          date,
		SelectionPass: input.SelectionPass,
	})
	if err != nil {
		return nil, err
	}

	if res.Inserted {
		h.publish(ctx, res.Assignment)
	} else {
		h.logger.Info("lead already assigned", map[string]interface{}{
			"leadId":       res.Assignment.LeadID,
			"assignmentId": res.Assignment.ID,
			"phoneId":      res.Assignment.PhoneID,
		})
	}

	out := &Output{
		AssignmentID:  res.Assignment.ID,
		Recorded:      res.Inserted,
		PhoneID:       res.Assignment.PhoneID,
		UsageCount:    res.UsageCount,
		DailyGoal:     res.DailyGoal,
		GoalOvershoot: res.GoalOvershoot,
		Date:          res.Assignment.Date,
	}
	if res.GoalOvershoot {
		warning := errors.NewConsistencyWarning("daily goal exceeded",
			fmt.Sprintf("phone %s has %d assignments on %s against a goal of %d",
				res.Assignment.PhoneID, res.UsageCount, res.Assignment.Date, res.DailyGoal))
		h.logger.Warn(warning.Message, map[string]interface{}{
			"code":         string(warning.Code),
			"details":      warning.Details,
			"assignmentId": res.Assignment.ID,
			"franchiseId":  res.Assignment.FranchiseID,
		})
		out.Warning = string(warning.Code)
	}
	return out, nil
}

func (h *Handler) publish(ctx context.Context, a models.Assignment) {
	pctx, cancel := context.WithTimeout(ctx, h.config.PublishTimeout)
	defer cancel()

	if err := h.publisher.PublishAssignment(pctx, events.NewAssignmentEvent(a)); err != nil {
		h.logger.Warn("failed to publish assignment event", map[string]interface{}{
			"assignmentId": a.ID,
			"leadId":       a.LeadID,
			"error":        err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
