package postgresadapter

import (
	"context"
	"time"

	"pressroom/contexts/editorial-pipeline/publication-service/ports"

	"github.com/google/uuid"
)

// SystemClock is the production clock for postgres-backed wiring.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// UUIDGenerator issues v4 identifiers for reviews, audits, and events.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.Clock = SystemClock{}
var _ ports.IDGenerator = UUIDGenerator{}
