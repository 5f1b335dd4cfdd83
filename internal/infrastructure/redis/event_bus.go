package redis

import (
	"context"
	"encoding/json"

	"flowdeck/internal/domain"

	"github.com/redis/go-redis/v9"
)

type RunEventBus struct {
	client         *redis.Client
	pausedChannel  string
	resumedChannel string
	deletedChannel string
}

func NewRunEventBus(client *redis.Client) *RunEventBus {
	return &RunEventBus{
		client:         client,
		pausedChannel:  "workflow:events:paused",
		resumedChannel: "workflow:events:resumed",
		deletedChannel: "workflow:events:deleted",
	}
}

// PublishRunPaused broadcasts the pause event to the network
func (b *RunEventBus) PublishRunPaused(ctx context.Context, event domain.RunPausedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.pausedChannel, payload).Err()
}

func (b *RunEventBus) PublishRunResumed(ctx context.Context, event domain.RunResumedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.resumedChannel, payload).Err()
}

func (b *RunEventBus) PublishRunDeleted(ctx context.Context, event domain.RunDeletedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.deletedChannel, payload).Err()
}

// SubscribeToPausedEvents opens a continuous stream of pause events for
// interested schedulers (e.g. human-input notifiers).
func (b *RunEventBus) SubscribeToPausedEvents(ctx context.Context) (<-chan domain.RunPausedEvent, error) {
	pubsub := b.client.Subscribe(ctx, b.pausedChannel)

	msgChan := make(chan domain.RunPausedEvent)

	go func() {
		defer close(msgChan)
		for {
			select {
			case <-ctx.Done(): // Handle shutdown gracefully
				pubsub.Close()
				return
			default:
				msg, err := pubsub.ReceiveMessage(ctx)
				if err == nil {
					var event domain.RunPausedEvent
					if err := json.Unmarshal([]byte(msg.Payload), &event); err == nil {
						msgChan <- event
					}
				}
			}
		}
	}()

	return msgChan, nil
}
