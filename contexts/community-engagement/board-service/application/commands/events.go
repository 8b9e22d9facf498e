package commands

import (
	"encoding/json"
	"time"

	"pressroom/contexts/community-engagement/board-service/ports"
)

func newBoardEnvelope(
	eventID string,
	eventType string,
	entityID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Created events are partitioned by entity so projection consumers see a
	// stable ordering per votable entity.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "board-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "entity_id",
		PartitionKey:     entityID,
		Data:             payload,
	}, nil
}
