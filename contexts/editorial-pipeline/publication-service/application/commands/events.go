package commands

import (
	"encoding/json"
	"time"

	"pressroom/contexts/editorial-pipeline/publication-service/ports"
)

func newPublicationEnvelope(
	eventID string,
	eventType string,
	reviewID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Workflow events are partitioned per review so consumers observe each
	// review's transitions in order.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "publication-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "review_id",
		PartitionKey:     reviewID,
		Data:             payload,
	}, nil
}
