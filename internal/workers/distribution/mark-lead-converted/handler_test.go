package markleadconverted

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"leadflow-workers/internal/common/errors"
	"leadflow-workers/internal/common/logger"
	"leadflow-workers/internal/distribution"
	"leadflow-workers/internal/workers"
)

type MockConverter struct {
	mock.Mock
}

func (m *MockConverter) MarkConverted(ctx context.Context, leadID string) error {
	return m.Called(ctx, leadID).Error(0)
}

func createTestHandler(t *testing.T, conv Converter) *Handler {
	log := logger.NewTestLogger(t)
	return NewHandler(DefaultConfig(), conv, errors.NewErrorHandler(log), log)
}

func TestHandler_Execute_Success(t *testing.T) {
	conv := new(MockConverter)
	conv.On("MarkConverted", mock.Anything, "lead-1").Return(nil)

	out, err := createTestHandler(t, conv).Execute(context.Background(), &Input{LeadID: "lead-1"})
	require.NoError(t, err)
	assert.Equal(t, &Output{LeadID: "lead-1", Converted: true}, out)
	conv.AssertExpectations(t)
}

func TestHandler_Execute_UnknownLead(t *testing.T) {
	conv := new(MockConverter)
	conv.On("MarkConverted", mock.Anything, "lead-x").
		Return(fmt.Errorf("lead lead-x: %w", distribution.ErrNotFound))

	_, err := createTestHandler(t, conv).Execute(context.Background(), &Input{LeadID: "lead-x"})
	require.ErrorIs(t, err, distribution.ErrNotFound)
	assert.Equal(t, errors.ErrCodeResourceNotFound, workers.Classify("mark converted", err).Code)
}

func TestHandler_Execute_NilInput(t *testing.T) {
	_, err := createTestHandler(t, new(MockConverter)).Execute(context.Background(), nil)
	assert.ErrorIs(t, err, distribution.ErrInvalidInput)
}
