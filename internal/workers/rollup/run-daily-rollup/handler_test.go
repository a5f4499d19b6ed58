package rundailyrollup

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"leadflow-workers/internal/common/config"
	"leadflow-workers/internal/common/errors"
	"leadflow-workers/internal/common/logger"
	"leadflow-workers/internal/common/timeutil"
	"leadflow-workers/internal/models"
	"leadflow-workers/internal/rollup"
	"leadflow-workers/internal/store/postgres"
	"leadflow-workers/internal/workers"
)

// ==========================
// Mock Implementations
// ==========================

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, req rollup.Request) (models.DailyRecord, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.DailyRecord), args.Error(1)
}

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T, runner Runner) *Handler {
	log := logger.NewTestLogger(t)
	cal := timeutil.NewCalendar(time.UTC, func() time.Time {
		return time.Date(2024, 3, 2, 1, 0, 0, 0, time.UTC)
	})
	return NewHandler(DefaultConfig(), runner, cal, errors.NewErrorHandler(log), log)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_FinalizesPastDays(t *testing.T) {
	tests := []struct {
		name         string
		date         string
		wantDate     string
		wantFinalize bool
	}{
		{"yesterday", "2024-03-01", "2024-03-01", true},
		{"today by default", "", "2024-03-02", false},
		{"explicit today", "2024-03-02", "2024-03-02", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(MockRunner)
			runner.On("Run", mock.Anything, rollup.Request{
				ServerID: "srv-1", Date: tt.wantDate, Finalize: tt.wantFinalize,
			}).Return(models.DailyRecord{
				ID: "dr-1", ServerID: "srv-1", Date: tt.wantDate,
				TotalLeads: 4, TotalConversions: 1, TotalSpent: 100,
				ConversionRate: 25, CostPerLead: 25, CostPerConversion: 100,
				Finalized: tt.wantFinalize,
			}, nil)

			out, err := createTestHandler(t, runner).Execute(context.Background(),
				&Input{ServerID: "srv-1", Date: tt.date})
			require.NoError(t, err)

			assert.Equal(t, "dr-1", out.DailyRecordID)
			assert.Equal(t, tt.wantDate, out.Date)
			assert.Equal(t, 4, out.TotalLeads)
			assert.Equal(t, 25.0, out.ConversionRate)
			assert.Equal(t, 100.0, out.CostPerConversion)
			assert.Equal(t, tt.wantFinalize, out.Finalized)
			runner.AssertExpectations(t)
		})
	}
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	t.Run("bad date", func(t *testing.T) {
		runner := new(MockRunner)
		_, err := createTestHandler(t, runner).Execute(context.Background(), &Input{ServerID: "srv-1", Date: "2024-13-01"})
		assert.ErrorIs(t, err, rollup.ErrInvalidInput)
		runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	})

	t.Run("unknown server is a validation error", func(t *testing.T) {
		runner := new(MockRunner)
		runner.On("Run", mock.Anything, mock.Anything).
			Return(models.DailyRecord{}, fmt.Errorf("rollup srv-x/2024-03-01: %w", rollup.ErrUnknownServer))

		_, err := createTestHandler(t, runner).Execute(context.Background(), &Input{ServerID: "srv-x", Date: "2024-03-01"})
		require.ErrorIs(t, err, rollup.ErrUnknownServer)
		stdErr := workers.Classify("daily rollup", err)
		assert.Equal(t, errors.ErrCodeValidation, stdErr.Code)
		assert.False(t, stdErr.Retryable)
	})

	t.Run("store failure is retryable", func(t *testing.T) {
		runner := new(MockRunner)
		runner.On("Run", mock.Anything, mock.Anything).
			Return(models.DailyRecord{}, fmt.Errorf("totals: %w: connection reset", postgres.ErrTransient))

		_, err := createTestHandler(t, runner).Execute(context.Background(), &Input{ServerID: "srv-1"})
		require.Error(t, err)
		stdErr := workers.Classify("daily rollup", err)
		assert.Equal(t, errors.ErrCodeTransientStore, stdErr.Code)
		assert.True(t, stdErr.Retryable)
	})

	t.Run("nil input", func(t *testing.T) {
		_, err := createTestHandler(t, new(MockRunner)).Execute(context.Background(), nil)
		assert.ErrorIs(t, err, rollup.ErrInvalidInput)
	})
}

func TestLoadConfig(t *testing.T) {
	cfg := LoadConfig(&config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: false, MaxJobsActive: 2, Timeout: 60000},
	}})
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 2, cfg.MaxJobsActive)
	assert.Equal(t, time.Minute, cfg.Timeout)
}
