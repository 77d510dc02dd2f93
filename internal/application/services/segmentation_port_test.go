package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/woundsense/backend/internal/application/services"
	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
)

type MockSegmentationModel struct {
	mock.Mock
}

func (m *MockSegmentationModel) Segment(ctx context.Context, imageRef string) (*entities.Mask, bool, error) {
	args := m.Called(ctx, imageRef)
	var mask *entities.Mask
	if args.Get(0) != nil {
		mask = args.Get(0).(*entities.Mask)
	}
	return mask, args.Bool(1), args.Error(2)
}

func assertUnavailableOutcome(t *testing.T, mask *entities.Mask, ok bool) {
	t.Helper()
	assert.False(t, ok)
	assert.True(t, mask.IsCanonical())
	assert.Equal(t, entities.CanonicalFrameSize*entities.CanonicalFrameSize, mask.Count())
}

func TestNewSegmentationPort_SelectsCapability(t *testing.T) {
	assert.Equal(t, services.CapabilityUnavailable, services.CapabilityOf(services.NewSegmentationPort(nil)))
	assert.Equal(t, services.CapabilityModelBacked, services.CapabilityOf(services.NewSegmentationPort(new(MockSegmentationModel))))
}

func TestUnavailable_AlwaysFilledMaskAndNoSuccess(t *testing.T) {
	mask, ok := services.Unavailable{}.Segment(context.Background(), "static/uploads/a.jpg")
	assertUnavailableOutcome(t, mask, ok)
}

func TestModelBacked_Detection(t *testing.T) {
	model := new(MockSegmentationModel)
	detected := entities.NewCanonicalMask()
	detected.Set(10, 10, true)
	model.On("Segment", mock.Anything, "wound.jpg").Return(detected, true, nil)

	mask, ok := services.NewSegmentationPort(model).Segment(context.Background(), "wound.jpg")

	assert.True(t, ok)
	assert.Same(t, detected, mask)
	model.AssertExpectations(t)
}

func TestModelBacked_DegradesToUnavailable(t *testing.T) {
	tests := []struct {
		name     string
		mask     *entities.Mask
		detected bool
		err      error
	}{
		{name: "model error", err: errors.New("cuda out of memory")},
		{name: "nothing detected", mask: entities.NewCanonicalMask(), detected: false},
		{name: "nil mask reported as detected", mask: nil, detected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := new(MockSegmentationModel)
			model.On("Segment", mock.Anything, "wound.jpg").Return(tt.mask, tt.detected, tt.err)

			mask, ok := services.NewSegmentationPort(model).Segment(context.Background(), "wound.jpg")

			assertUnavailableOutcome(t, mask, ok)
		})
	}
}
