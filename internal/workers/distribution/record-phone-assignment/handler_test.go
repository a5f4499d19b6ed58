package recordphoneassignment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"leadflow-workers/internal/common/errors"
	"leadflow-workers/internal/common/events"
	"leadflow-workers/internal/common/logger"
	"leadflow-workers/internal/common/timeutil"
	"leadflow-workers/internal/distribution"
	"leadflow-workers/internal/models"
)

// ==========================
// Mock Implementations
// ==========================

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, a models.Assignment) (distribution.RecordResult, error) {
	args := m.Called(ctx, a)
	return args.Get(0).(distribution.RecordResult), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishAssignment(ctx context.Context, event events.AssignmentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) Close() error { return nil }

// ==========================
// Test Helper Functions
// ==========================

const today = "2024-03-01"

func createTestHandler(t *testing.T, rec Recorder, pub events.Publisher) *Handler {
	log := logger.NewTestLogger(t)
	cal := timeutil.NewCalendar(time.UTC, func() time.Time {
		return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	})
	return NewHandler(DefaultConfig(), rec, pub, cal, errors.NewErrorHandler(log), log)
}

func stored(input *Input, date string) models.Assignment {
	return models.Assignment{
		ID:            "as-1",
		LeadID:        input.LeadID,
		FranchiseID:   input.FranchiseID,
		PhoneID:       input.PhoneID,
		Date:          date,
		SelectionPass: input.SelectionPass,
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_RecordsAndPublishes(t *testing.T) {
	input := &Input{LeadID: "lead-1", FranchiseID: "fr-1", PhoneID: "ph-1", SelectionPass: models.PassPrimary}

	rec := new(MockRecorder)
	rec.On("Record", mock.Anything, mock.MatchedBy(func(a models.Assignment) bool {
		return a.LeadID == "lead-1" && a.PhoneID == "ph-1" && a.Date == today
	})).Return(distribution.RecordResult{
		Assignment: stored(input, today),
		Inserted:   true,
		UsageCount: 3,
		DailyGoal:  5,
	}, nil)

	pub := new(MockPublisher)
	pub.On("PublishAssignment", mock.Anything, mock.MatchedBy(func(e events.AssignmentEvent) bool {
		return e.AssignmentID == "as-1" && e.FranchiseID == "fr-1"
	})).Return(nil)

	out, err := createTestHandler(t, rec, pub).Execute(context.Background(), input)
	require.NoError(t, err)

	assert.True(t, out.Recorded)
	assert.Equal(t, "as-1", out.AssignmentID)
	assert.Equal(t, 3, out.UsageCount)
	assert.Equal(t, 5, out.DailyGoal)
	assert.False(t, out.GoalOvershoot)
	assert.Empty(t, out.Warning)
	assert.Equal(t, today, out.Date)
	rec.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestHandler_Execute_DuplicateDoesNotPublish(t *testing.T) {
	input := &Input{LeadID: "lead-1", FranchiseID: "fr-1", PhoneID: "ph-2", Date: "2024-02-29"}
	first := stored(&Input{LeadID: "lead-1", FranchiseID: "fr-1", PhoneID: "ph-1"}, "2024-02-29")

	rec := new(MockRecorder)
	rec.On("Record", mock.Anything, mock.Anything).Return(distribution.RecordResult{
		Assignment: first,
		Inserted:   false,
		UsageCount: 2,
		DailyGoal:  5,
	}, nil)
	pub := new(MockPublisher)

	out, err := createTestHandler(t, rec, pub).Execute(context.Background(), input)
	require.NoError(t, err)

	assert.False(t, out.Recorded)
	assert.Equal(t, "ph-1", out.PhoneID)
	pub.AssertNotCalled(t, "PublishAssignment", mock.Anything, mock.Anything)
}

func TestHandler_Execute_PublishFailureIsNotFatal(t *testing.T) {
	input := &Input{LeadID: "lead-1", FranchiseID: "fr-1", PhoneID: "ph-1", SelectionPass: models.PassPrimary}

	rec := new(MockRecorder)
	rec.On("Record", mock.Anything, mock.Anything).Return(distribution.RecordResult{
		Assignment:    stored(input, today),
		Inserted:      true,
		UsageCount:    6,
		DailyGoal:     5,
		GoalOvershoot: true,
	}, nil)
	pub := new(MockPublisher)
	pub.On("PublishAssignment", mock.Anything, mock.Anything).Return(fmt.Errorf("broker down"))

	out, err := createTestHandler(t, rec, pub).Execute(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, out.Recorded)
	assert.True(t, out.GoalOvershoot)
	assert.Equal(t, string(errors.ErrCodeConsistencyWarning), out.Warning)
	pub.AssertExpectations(t)
}

func TestHandler_Execute_NilPublisher(t *testing.T) {
	input := &Input{LeadID: "lead-1", FranchiseID: "fr-1", PhoneID: "ph-1"}

	rec := new(MockRecorder)
	rec.On("Record", mock.Anything, mock.Anything).Return(distribution.RecordResult{
		Assignment: stored(input, today),
		Inserted:   true,
	}, nil)

	out, err := createTestHandler(t, rec, nil).Execute(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, out.Recorded)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	t.Run("nil input", func(t *testing.T) {
		_, err := createTestHandler(t, new(MockRecorder), nil).Execute(context.Background(), nil)
		assert.ErrorIs(t, err, distribution.ErrInvalidInput)
	})

	t.Run("bad date", func(t *testing.T) {
		rec := new(MockRecorder)
		_, err := createTestHandler(t, rec, nil).Execute(context.Background(),
			&Input{LeadID: "lead-1", FranchiseID: "fr-1", PhoneID: "ph-1", Date: "yesterday"})
		assert.ErrorIs(t, err, distribution.ErrInvalidInput)
		rec.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("recorder error is returned", func(t *testing.T) {
		rec := new(MockRecorder)
		rec.On("Record", mock.Anything, mock.Anything).
			Return(distribution.RecordResult{}, fmt.Errorf("%w: phone id is required", distribution.ErrInvalidInput))

		_, err := createTestHandler(t, rec, nil).Execute(context.Background(), &Input{LeadID: "lead-1", FranchiseID: "fr-1"})
		assert.ErrorIs(t, err, distribution.ErrInvalidInput)
	})
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.PublishTimeout = 0
	assert.Error(t, cfg.Validate())
	assert.Equal(t, DefaultConfig().Timeout, LoadConfig(nil).Timeout)
}
