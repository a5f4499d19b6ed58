package selectfranchisephone

import (
	"context"
	"encoding/json"
	stderrors "errors"
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

const TaskType = "select-franchise-phone"

// PhoneSelector is the part of distribution.Selector this worker drives.
type PhoneSelector interface {
	ResolveFranchise(ctx context.Context, franchiseID, serverID string) (string, error)
	Select(ctx context.Context, franchiseID, date string) (distribution.Selection, error)
	Claim(ctx context.Context, req distribution.ClaimRequest) (distribution.ClaimResult, error)
}

type Handler struct {
	config       *Config
	selector     PhoneSelector
	publisher    events.Publisher
	calendar     *timeutil.Calendar
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, selector PhoneSelector, publisher events.Publisher, calendar *timeutil.Calendar, errorHandler *errors.ErrorHandler, log logger.Logger) *Handler {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Handler{
		config:       config,
		selector:     selector,
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
		stdErr := workers.Classify("phone selection", err)
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

	franchiseID, err := h.selector.ResolveFranchise(ctx, input.FranchiseID, input.ServerID)
	if stderrors.Is(err, distribution.ErrNotFound) {
		h.logger.Warn("server has no default franchise", map[string]interface{}{
			"serverId": input.ServerID,
		})
		return &Output{Found: false, Reason: ReasonNoDefaultFranchise, Date: date}, nil
	}
	if err != nil {
		return nil, err
	}

	claim := h.config.ClaimByDefault && input.LeadID != ""
	if input.Claim != nil {
		claim = *input.Claim
	}
	if claim && input.LeadID == "" {
		return nil, fmt.Errorf("%w: leadId is required to claim", distribution.ErrInvalidInput)
	}

	if claim {
		res, err := h.selector.Claim(ctx, distribution.ClaimRequest{
			FranchiseID: franchiseID,
			LeadID:      input.LeadID,
			ServerID:    input.ServerID,
			Date:        date,
		})
		if stderrors.Is(err, distribution.ErrNotFound) {
			return h.notFound(franchiseID, date), nil
		}
		if err != nil {
			return nil, err
		}
		if !res.Duplicate {
			h.publish(ctx, res.Assignment)
		}
		out := toOutput(franchiseID, date, res.Selection)
		out.AssignmentID = res.Assignment.ID
		out.Duplicate = res.Duplicate
		return out, nil
	}

	sel, err := h.selector.Select(ctx, franchiseID, date)
	if stderrors.Is(err, distribution.ErrNotFound) {
		return h.notFound(franchiseID, date), nil
	}
	if err != nil {
		return nil, err
	}
	return toOutput(franchiseID, date, sel), nil
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

func (h *Handler) notFound(franchiseID, date string) *Output {
	h.logger.Warn("no eligible phone", map[string]interface{}{
		"franchiseId": franchiseID,
		"date":        date,
	})
	return &Output{Found: false, Reason: ReasonNoEligiblePhone, FranchiseID: franchiseID, Date: date}
}

func toOutput(franchiseID, date string, sel distribution.Selection) *Output {
	return &Output{
		Found:         true,
		FranchiseID:   franchiseID,
		PhoneID:       sel.Phone.ID,
		PhoneNumber:   sel.Phone.PhoneNumber,
		SelectionPass: sel.Pass,
		UsageCount:    sel.UsageCount,
		DailyGoal:     sel.DailyGoal,
		Date:          date,
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
