// Package workers holds what the task-type packages share.
package workers

import (
	"context"
	stderrors "errors"

	"leadflow-workers/internal/common/errors"
	"leadflow-workers/internal/distribution"
	"leadflow-workers/internal/rollup"
	"leadflow-workers/internal/store/postgres"
)

// Classify maps an engine error onto the job error taxonomy. Bad input and
// unknown entities are thrown; store failures and timeouts are retried.
func Classify(op string, err error) *errors.StandardError {
	var stdErr *errors.StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}

	switch {
	case stderrors.Is(err, distribution.ErrInvalidInput),
		stderrors.Is(err, rollup.ErrInvalidInput),
		stderrors.Is(err, rollup.ErrUnknownServer):
		return errors.NewValidationError(err.Error())
	case stderrors.Is(err, distribution.ErrNotFound):
		return errors.NewResourceNotFoundError(op, err.Error())
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewQueryTimeoutError(op, err)
	case stderrors.Is(err, postgres.ErrTransient):
		return errors.NewTransientStoreError(op, err)
	default:
		return errors.NewInternalError(err)
	}
}
