package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
	"github.com/zatekoja/woundsense/backend/internal/domain/providers"
)

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.AssessmentEvent) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.AssessmentEvent, error) {
	args := m.Called(ctx, channel)
	return args.Get(0).(<-chan *entities.AssessmentEvent), args.Error(1)
}

func (m *MockEventBus) Close() error {
	return m.Called().Error(0)
}

func sampleEntry() *entities.AuditEntry {
	return &entities.AuditEntry{
		ID:                 "a-1",
		Timestamp:          time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		PatientID:          "P-001",
		DoctorID:           "dr_smith",
		Measurements:       entities.Measurements{Area: 3},
		Report:             "Signs of infection around the margin.",
		DetectionSucceeded: true,
	}
}

func TestPublishingSink_PublishesToBothChannels(t *testing.T) {
	bus := new(MockEventBus)
	sink := NewPublishingSink(bus)

	matches := mock.MatchedBy(func(e *entities.AssessmentEvent) bool {
		return e.AssessmentID == "a-1" && e.Alert && e.EventType == entities.AssessmentEventTypeCompleted
	})
	bus.On("Publish", mock.Anything, providers.EventChannelAssessments, matches).Return(nil)
	bus.On("Publish", mock.Anything, "doctor:dr_smith", matches).Return(nil)

	require.NoError(t, sink.Record(context.Background(), sampleEntry()))
	bus.AssertExpectations(t)
}

func TestPublishingSink_NoDoctorChannelWithoutDoctor(t *testing.T) {
	bus := new(MockEventBus)
	sink := NewPublishingSink(bus)
	entry := sampleEntry()
	entry.DoctorID = ""

	bus.On("Publish", mock.Anything, providers.EventChannelAssessments, mock.Anything).Return(nil)

	require.NoError(t, sink.Record(context.Background(), entry))
	bus.AssertNumberOfCalls(t, "Publish", 1)
}

func TestPublishingSink_ReportsPublishFailure(t *testing.T) {
	bus := new(MockEventBus)
	sink := NewPublishingSink(bus)
	cause := errors.New("redis down")

	bus.On("Publish", mock.Anything, providers.EventChannelAssessments, mock.Anything).Return(cause)
	bus.On("Publish", mock.Anything, "doctor:dr_smith", mock.Anything).Return(nil)

	err := sink.Record(context.Background(), sampleEntry())

	assert.ErrorIs(t, err, cause)
	bus.AssertNumberOfCalls(t, "Publish", 2)
}
