package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"pressroom/contexts/community-engagement/voting-service/domain/entities"
	domainerrors "pressroom/contexts/community-engagement/voting-service/domain/errors"
	"pressroom/contexts/community-engagement/voting-service/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

type Store struct {
	mu sync.RWMutex

	votes       map[string]entities.Vote
	summaries   map[string]entities.VoteSummary
	projections map[string]ports.VotableProjection
	idempotency map[string]ports.IdempotencyRecord
	outbox      map[string]outboxRecord
	eventDedup  map[string]dedupRecord
}

func NewStore(seed []ports.VotableProjection) *Store {
	projections := make(map[string]ports.VotableProjection, len(seed))
	for _, projection := range seed {
		projections[entityKey(projection.EntityType, projection.EntityID)] = projection
	}
	return &Store{
		votes:       make(map[string]entities.Vote),
		summaries:   make(map[string]entities.VoteSummary),
		projections: projections,
		idempotency: make(map[string]ports.IdempotencyRecord),
		outbox:      make(map[string]outboxRecord),
		eventDedup:  make(map[string]dedupRecord),
	}
}

func (s *Store) SetProjection(projection ports.VotableProjection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projections[entityKey(projection.EntityType, projection.EntityID)] = ports.VotableProjection{
		EntityType: projection.EntityType,
		EntityID:   strings.TrimSpace(projection.EntityID),
		AuthorID:   strings.TrimSpace(projection.AuthorID),
		CreatedAt:  projection.CreatedAt.UTC(),
	}
}

func (s *Store) SetSummary(summary entities.VoteSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[entityKey(summary.EntityType, summary.EntityID)] = summary
}

func (s *Store) SetVote(vote entities.Vote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes[strings.TrimSpace(vote.VoteID)] = vote
}

func (s *Store) GetVoteByIdentity(
	_ context.Context,
	entityType entities.EntityType,
	entityID string,
	userID string,
) (entities.Vote, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vote, ok := s.findVoteByIdentity(entityType, entityID, userID)
	if !ok {
		return entities.Vote{}, false, nil
	}
	return vote, true, nil
}

func (s *Store) ApplyVote(
	_ context.Context,
	vote entities.Vote,
	previous entities.VoteType,
) (entities.VoteSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if vote.VoteType == entities.VoteTypeNone {
		if existing, ok := s.findVoteByIdentity(vote.EntityType, vote.EntityID, vote.UserID); ok {
			delete(s.votes, existing.VoteID)
		}
	} else {
		if strings.TrimSpace(vote.VoteID) == "" {
			vote.VoteID = uuid.NewString()
		}
		s.votes[strings.TrimSpace(vote.VoteID)] = vote
	}

	key := entityKey(vote.EntityType, vote.EntityID)
	summary, ok := s.summaries[key]
	if !ok {
		summary = entities.VoteSummary{
			EntityType: vote.EntityType,
			EntityID:   strings.TrimSpace(vote.EntityID),
		}
	}
	summary = summary.Apply(previous, vote.VoteType)
	summary.UpdatedAt = vote.UpdatedAt.UTC()
	s.summaries[key] = summary
	return summary, nil
}

func (s *Store) GetSummary(
	_ context.Context,
	entityType entities.EntityType,
	entityID string,
) (entities.VoteSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if summary, ok := s.summaries[entityKey(entityType, entityID)]; ok {
		return summary, nil
	}
	return entities.VoteSummary{
		EntityType: entityType,
		EntityID:   strings.TrimSpace(entityID),
	}, nil
}

func (s *Store) GetProjection(
	_ context.Context,
	entityType entities.EntityType,
	entityID string,
) (ports.VotableProjection, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	projection, ok := s.projections[entityKey(entityType, entityID)]
	if !ok {
		return ports.VotableProjection{}, false, nil
	}
	return projection, true, nil
}

func (s *Store) SaveProjection(_ context.Context, projection ports.VotableProjection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projections[entityKey(projection.EntityType, projection.EntityID)] = ports.VotableProjection{
		EntityType: projection.EntityType,
		EntityID:   strings.TrimSpace(projection.EntityID),
		AuthorID:   strings.TrimSpace(projection.AuthorID),
		CreatedAt:  projection.CreatedAt.UTC(),
	}
	return nil
}

func (s *Store) Get(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = strings.TrimSpace(key)
	record, exists := s.idempotency[key]
	if !exists {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.After(now.UTC()) {
		delete(s.idempotency, key)
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) Put(_ context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(record.Key)
	existing, exists := s.idempotency[key]
	if exists {
		if existing.RequestHash != record.RequestHash {
			return domainerrors.ErrIdempotencyConflict
		}
		return nil
	}
	s.idempotency[key] = ports.IdempotencyRecord{
		Key:         key,
		RequestHash: strings.TrimSpace(record.RequestHash),
		EntityType:  record.EntityType,
		EntityID:    strings.TrimSpace(record.EntityID),
		VoteType:    record.VoteType,
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) ReserveEvent(
	_ context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	existing, ok := s.eventDedup[key]
	if ok {
		if !existing.expiresAt.IsZero() && time.Now().UTC().After(existing.expiresAt.UTC()) {
			delete(s.eventDedup, key)
		} else {
			if existing.payloadHash != strings.TrimSpace(payloadHash) {
				return false, domainerrors.ErrConflict
			}
			return true, nil
		}
	}

	s.eventDedup[key] = dedupRecord{
		payloadHash: strings.TrimSpace(payloadHash),
		expiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) findVoteByIdentity(
	entityType entities.EntityType,
	entityID string,
	userID string,
) (entities.Vote, bool) {
	entityID = strings.TrimSpace(entityID)
	userID = strings.TrimSpace(userID)
	for _, vote := range s.votes {
		if vote.EntityType != entityType {
			continue
		}
		if vote.EntityID != entityID || vote.UserID != userID {
			continue
		}
		return vote, true
	}
	return entities.Vote{}, false
}

func entityKey(entityType entities.EntityType, entityID string) string {
	return string(entityType) + "|" + strings.TrimSpace(entityID)
}
