package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
)

func message(t *testing.T, event *entities.AssessmentEvent) *redis.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return &redis.Message{Channel: "assessment:completed", Payload: string(data)}
}

func TestForward_DecodesAndSkipsMalformed(t *testing.T) {
	defer goleak.VerifyNone(t)

	msgs := make(chan *redis.Message, 3)
	out := make(chan *entities.AssessmentEvent, 3)

	msgs <- message(t, &entities.AssessmentEvent{AssessmentID: "a-1", Alert: true})
	msgs <- &redis.Message{Payload: "{not json"}
	msgs <- message(t, &entities.AssessmentEvent{AssessmentID: "a-2"})
	close(msgs)

	forward(context.Background(), "assessment:completed", msgs, out)

	var got []string
	for event := range out {
		got = append(got, event.AssessmentID)
	}
	assert.Equal(t, []string{"a-1", "a-2"}, got)
}

func TestForward_DropsWhenSubscriberIsFull(t *testing.T) {
	msgs := make(chan *redis.Message, 2)
	out := make(chan *entities.AssessmentEvent, 1)

	msgs <- message(t, &entities.AssessmentEvent{AssessmentID: "a-1"})
	msgs <- message(t, &entities.AssessmentEvent{AssessmentID: "a-2"})
	close(msgs)

	forward(context.Background(), "assessment:completed", msgs, out)

	first, ok := <-out
	require.True(t, ok)
	assert.Equal(t, "a-1", first.AssessmentID)
	_, ok = <-out
	assert.False(t, ok)
}

func TestForward_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	msgs := make(chan *redis.Message)
	out := make(chan *entities.AssessmentEvent, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		forward(ctx, "doctor:dr_smith", msgs, out)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forward did not return after cancel")
	}
	_, ok := <-out
	assert.False(t, ok)
}

func TestRedisEventBus_SubscribeAfterClose(t *testing.T) {
	bus := NewRedisEventBus(nil)
	require.NoError(t, bus.Close())

	_, err := bus.Subscribe(context.Background(), "assessment:completed")
	assert.ErrorIs(t, err, ErrBusClosed)
}
