// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel/trace"

	"leadflow-workers/internal/common/config"
	"leadflow-workers/internal/common/errors"
	"leadflow-workers/internal/common/logger"
	"leadflow-workers/internal/common/metrics"
	"leadflow-workers/internal/common/observability"
	"leadflow-workers/internal/common/validation"
)

// JobHandler completes, fails or throws the job itself. The returned error only
// feeds metrics.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job) error
}

// HandlerFunc adapts a function to JobHandler.
type HandlerFunc func(client worker.JobClient, job entities.Job) error

func (f HandlerFunc) Handle(client worker.JobClient, job entities.Job) error {
	return f(client, job)
}

// Options carries the cross-cutting collaborators every worker shares.
type Options struct {
	Observability *observability.Observability
	Validator     *validation.Validator
	ErrorHandler  *errors.ErrorHandler
	Logger        logger.Logger
}

// Instrument wraps h with input validation, tracing and job metrics.
func Instrument(taskType string, h JobHandler, opts Options) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		defer metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()

		ctx := context.Background()
		if opts.Observability != nil {
			var span trace.Span
			ctx, span = opts.Observability.StartSpan(ctx, taskType, map[string]string{
				"task_type":    taskType,
				"bpmn_process": job.BpmnProcessId,
			})
			defer span.End()
		}

		err := validateJob(ctx, taskType, client, job, opts)
		if err == nil {
			err = h.Handle(client, job)
		}

		status := "completed"
		if err != nil {
			status = "failed"
			metrics.WorkerJobsFailed.WithLabelValues(taskType, string(errors.AsStandardError(err).Code)).Inc()
		} else {
			metrics.WorkerJobsCompleted.WithLabelValues(taskType).Inc()
		}
		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())

		if opts.Observability != nil {
			opts.Observability.RecordJobProcessed(ctx, taskType, status)
			opts.Observability.RecordJobDuration(ctx, taskType, time.Since(start), status)
		}
	}
}

func validateJob(ctx context.Context, taskType string, client worker.JobClient, job entities.Job, opts Options) error {
	if opts.Validator == nil {
		return nil
	}
	res := opts.Validator.Validate(taskType, job.Variables)
	if res.Valid {
		return nil
	}

	stdErr := errors.NewValidationError(joinMessages(res.GetErrorMessages()))
	if opts.Logger != nil {
		opts.Logger.Warn("job variables rejected", map[string]interface{}{
			"taskType": taskType,
			"jobKey":   job.Key,
			"errors":   res.GetErrorMessages(),
		})
	}
	if opts.ErrorHandler != nil {
		opts.ErrorHandler.HandleJobError(ctx, client, job, stdErr)
	}
	return stdErr
}

func joinMessages(msgs []string) string {
	return strings.Join(msgs, "; ")
}

// Open registers an instrumented job worker for taskType.
func Open(client zbc.Client, taskType string, wcfg config.WorkerConfig, h JobHandler, opts Options) worker.JobWorker {
	return client.NewJobWorker().
		JobType(taskType).
		Handler(Instrument(taskType, h, opts)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Name(taskType + "-worker").
		Open()
}

// CompleteJob sends the output variables for a finished job.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		return errors.NewInternalError(err)
	}
	return ExecuteWithRetry(ctx, DefaultRetryConfig, func(ctx context.Context) error {
		_, err := cmd.Send(ctx)
		return err
	}, "complete job")
}
