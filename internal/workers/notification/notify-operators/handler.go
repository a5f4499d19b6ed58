package notifyoperators

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	awsclient "leadflow-workers/internal/common/aws"
	"leadflow-workers/internal/common/camunda"
	"leadflow-workers/internal/common/errors"
	"leadflow-workers/internal/common/logger"
	"leadflow-workers/internal/workers"
)

const TaskType = "notify-operators"

type Handler struct {
	config       *Config
	sesClient    awsclient.SESAPI
	snsClient    awsclient.SNSAPI
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
	now          func() time.Time
}

// NewHandler accepts nil clients for channels that are switched off.
func NewHandler(config *Config, sesClient awsclient.SESAPI, snsClient awsclient.SNSAPI, errorHandler *errors.ErrorHandler, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		sesClient:    sesClient,
		snsClient:    snsClient,
		errorHandler: errorHandler,
		logger:       log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:          time.Now,
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
		stdErr := workers.Classify("notify operators", err)
		h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
		return stdErr
	}

	return camunda.CompleteJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.NewValidationError("input cannot be nil")
	}
	tmpl, ok := templates[input.AlertType]
	if !ok {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown alert type %q", input.AlertType))
	}
	rank, ok := severityRank[input.Severity]
	if !ok {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown severity %q", input.Severity))
	}

	data := map[string]string{
		"alertType":   input.AlertType,
		"severity":    input.Severity,
		"franchiseId": input.FranchiseID,
		"serverId":    input.ServerID,
		"details":     formatDetails(input.Details),
	}
	subject := renderTemplate(tmpl.subject, data)
	body := renderTemplate(tmpl.body, data)

	out := &Output{
		NotificationID: uuid.New().String(),
		Channels:       []string{},
		SentAt:         h.now().UTC().Format(time.RFC3339),
	}

	var (
		attempted int
		lastErr   *errors.StandardError
	)

	if h.config.EmailEnabled && h.sesClient != nil && len(h.config.Recipients) > 0 {
		attempted++
		if err := h.sendEmail(ctx, subject, body); err != nil {
			lastErr = errors.NewNotificationSendFailedError(ChannelEmail, err)
			h.logger.Error("email send failed", map[string]interface{}{
				"alertType": input.AlertType,
				"error":     err.Error(),
			})
		} else {
			out.Channels = append(out.Channels, ChannelEmail)
		}
	}

	if h.config.SMSEnabled && h.snsClient != nil && rank >= severityRank[h.config.SMSMinSeverity] {
		for _, phone := range h.config.PhoneNumbers {
			attempted++
			if err := h.sendSMS(ctx, phone, subject); err != nil {
				lastErr = errors.NewNotificationSendFailedError(ChannelSMS, err)
				h.logger.Error("SMS send failed", map[string]interface{}{
					"alertType": input.AlertType,
					"error":     err.Error(),
				})
				continue
			}
			if len(out.Channels) == 0 || out.Channels[len(out.Channels)-1] != ChannelSMS {
				out.Channels = append(out.Channels, ChannelSMS)
			}
		}
	}

	sent := len(out.Channels)
	switch {
	case attempted == 0:
		out.Status = StatusDisabled
	case sent == 0:
		return nil, lastErr
	case lastErr != nil:
		out.Status = StatusPartial
	default:
		out.Status = StatusSent
	}

	h.logger.Info("operators notified", map[string]interface{}{
		"notificationId": out.NotificationID,
		"alertType":      input.AlertType,
		"status":         out.Status,
		"channels":       out.Channels,
	})
	return out, nil
}

func (h *Handler) sendEmail(ctx context.Context, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: h.config.Recipients},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, to, message string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}

// renderTemplate fills {{key}} placeholders; unknown placeholders render empty.
func renderTemplate(tmpl string, data map[string]string) string {
	result := tmpl
	for k, v := range data {
		result = strings.ReplaceAll(result, "{{"+k+"}}", v)
	}
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return strings.TrimSpace(result)
}

// formatDetails renders details as sorted key=value pairs.
func formatDetails(details map[string]interface{}) string {
	if len(details) == 0 {
		return ""
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, details[k]))
	}
	return strings.Join(parts, ", ")
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
