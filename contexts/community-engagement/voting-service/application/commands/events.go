package commands

import (
	"encoding/json"
	"time"

	"pressroom/contexts/community-engagement/voting-service/ports"
)

func newEngagementEnvelope(
	eventID string,
	eventType string,
	entityID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Command-side events are partitioned by entity for stable ordering on
	// entity-scoped consumers.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "voting-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "entity_id",
		PartitionKey:     entityID,
		Data:             payload,
	}, nil
}
