package rollupallservers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"leadflow-workers/internal/common/errors"
	"leadflow-workers/internal/common/logger"
	"leadflow-workers/internal/common/timeutil"
	"leadflow-workers/internal/rollup"
)

type MockBatchRunner struct {
	mock.Mock
}

func (m *MockBatchRunner) RunAll(ctx context.Context, date string, finalize bool) (rollup.Summary, error) {
	args := m.Called(ctx, date, finalize)
	return args.Get(0).(rollup.Summary), args.Error(1)
}

func createTestHandler(t *testing.T, runner BatchRunner) *Handler {
	log := logger.NewTestLogger(t)
	cal := timeutil.NewCalendar(time.UTC, func() time.Time {
		return time.Date(2024, 3, 2, 1, 0, 0, 0, time.UTC)
	})
	return NewHandler(DefaultConfig(), runner, cal, errors.NewErrorHandler(log), log)
}

func TestHandler_Execute_PartialFailure(t *testing.T) {
	runner := new(MockBatchRunner)
	runner.On("RunAll", mock.Anything, "2024-03-01", true).Return(rollup.Summary{
		Processed:       2,
		Failed:          1,
		FailedServerIDs: []string{"srv-3"},
	}, nil)

	out, err := createTestHandler(t, runner).Execute(context.Background(), &Input{Date: "2024-03-01"})
	require.NoError(t, err)

	assert.Equal(t, "2024-03-01", out.Date)
	assert.True(t, out.Finalized)
	assert.Equal(t, 2, out.ServersProcessed)
	assert.Equal(t, 1, out.ServersFailed)
	assert.Equal(t, []string{"srv-3"}, out.FailedServerIDs)
	runner.AssertExpectations(t)
}

func TestHandler_Execute_DefaultsToToday(t *testing.T) {
	runner := new(MockBatchRunner)
	runner.On("RunAll", mock.Anything, "2024-03-02", false).
		Return(rollup.Summary{Processed: 3, FailedServerIDs: []string{}}, nil)

	out, err := createTestHandler(t, runner).Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.False(t, out.Finalized)
	assert.Empty(t, out.FailedServerIDs)
}

func TestHandler_Execute_ListFailure(t *testing.T) {
	runner := new(MockBatchRunner)
	runner.On("RunAll", mock.Anything, "2024-03-02", false).
		Return(rollup.Summary{}, fmt.Errorf("list active servers: %w", context.DeadlineExceeded))

	_, err := createTestHandler(t, runner).Execute(context.Background(), &Input{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHandler_Execute_BadDate(t *testing.T) {
	_, err := createTestHandler(t, new(MockBatchRunner)).Execute(context.Background(), &Input{Date: "tomorrow"})
	assert.ErrorIs(t, err, rollup.ErrInvalidInput)
}
