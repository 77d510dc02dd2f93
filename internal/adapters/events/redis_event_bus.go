package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
	"github.com/zatekoja/woundsense/backend/internal/domain/providers"
	redisclient "github.com/zatekoja/woundsense/backend/internal/infrastructure/clients/redis"
)

// ErrBusClosed is returned by Subscribe after Close.
var ErrBusClosed = errors.New("event bus closed")

// subscriberBuffer is how many undelivered events a slow subscriber may hold
// before newer events are dropped for it.
const subscriberBuffer = 100

// RedisEventBus carries assessment events over Redis pub/sub. Every Subscribe
// call owns its own Redis subscription; it ends when the caller's context is
// cancelled or the bus is closed, and the returned channel is then closed.
type RedisEventBus struct {
	client *redisclient.Client

	mu      sync.Mutex
	closed  bool
	cancels map[int]context.CancelFunc
	nextID  int
	wg      sync.WaitGroup
}

var _ providers.EventBus = (*RedisEventBus)(nil)

// NewRedisEventBus creates an event bus on client.
func NewRedisEventBus(client *redisclient.Client) *RedisEventBus {
	return &RedisEventBus{
		client:  client,
		cancels: make(map[int]context.CancelFunc),
	}
}

// Publish sends event to channel as JSON.
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.AssessmentEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	log.Debug().Str("channel", channel).Str("assessment_id", event.AssessmentID).Msg("published assessment event")
	return nil
}

// Subscribe starts receiving events published to channel. The subscription
// is confirmed with Redis before Subscribe returns.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.AssessmentEvent, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBusClosed
	}
	subCtx, cancel := context.WithCancel(ctx)
	id := b.nextID
	b.nextID++
	b.cancels[id] = cancel
	b.wg.Add(1)
	b.mu.Unlock()

	pubsub := b.client.Client().Subscribe(subCtx, channel)
	if _, err := pubsub.Receive(subCtx); err != nil {
		_ = pubsub.Close()
		b.release(id)
		b.wg.Done()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	log.Info().Str("channel", channel).Msg("subscribed to assessment events")

	out := make(chan *entities.AssessmentEvent, subscriberBuffer)
	go func() {
		defer b.wg.Done()
		defer b.release(id)
		defer func() {
			if err := pubsub.Close(); err != nil {
				log.Warn().Err(err).Str("channel", channel).Msg("failed to close subscription")
			}
		}()
		forward(subCtx, channel, pubsub.Channel(), out)
	}()
	return out, nil
}

// forward decodes messages into out until ctx ends or msgs closes, then
// closes out. Undecodable payloads are skipped. A full out drops the event.
func forward(ctx context.Context, channel string, msgs <-chan *redis.Message, out chan<- *entities.AssessmentEvent) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			event := &entities.AssessmentEvent{}
			if err := json.Unmarshal([]byte(msg.Payload), event); err != nil {
				log.Warn().Err(err).Str("channel", channel).Msg("skipping malformed assessment event")
				continue
			}
			select {
			case out <- event:
			default:
				log.Warn().Str("channel", channel).Str("assessment_id", event.AssessmentID).Msg("subscriber is behind, dropping event")
			}
		}
	}
}

func (b *RedisEventBus) release(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cancel, ok := b.cancels[id]; ok {
		cancel()
		delete(b.cancels, id)
	}
}

// Close ends every subscription and waits for their channels to close.
// Publish still works afterwards; the Redis client is owned by the caller.
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	b.closed = true
	for id, cancel := range b.cancels {
		cancel()
		delete(b.cancels, id)
	}
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}
