package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"pressroom/contexts/editorial-pipeline/publication-service/domain/entities"
	domainerrors "pressroom/contexts/editorial-pipeline/publication-service/domain/errors"
	"pressroom/contexts/editorial-pipeline/publication-service/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type Store struct {
	mu sync.RWMutex

	reviews     map[string]entities.Review
	audits      map[string][]entities.PublicationAudit
	idempotency map[string]ports.IdempotencyRecord
	outbox      map[string]outboxRecord
}

func NewStore() *Store {
	return &Store{
		reviews:     make(map[string]entities.Review),
		audits:      make(map[string][]entities.PublicationAudit),
		idempotency: make(map[string]ports.IdempotencyRecord),
		outbox:      make(map[string]outboxRecord),
	}
}

// SetReview seeds a review in an arbitrary state.
func (s *Store) SetReview(review entities.Review) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[strings.TrimSpace(review.ReviewID)] = review
}

func (s *Store) CreateReview(_ context.Context, review entities.Review, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reviewID := strings.TrimSpace(review.ReviewID)
	if _, exists := s.reviews[reviewID]; exists {
		return domainerrors.ErrConflict
	}
	s.reviews[reviewID] = review
	return s.appendOutbox(envelope)
}

func (s *Store) UpdateReviewContent(_ context.Context, review entities.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reviewID := strings.TrimSpace(review.ReviewID)
	if _, exists := s.reviews[reviewID]; !exists {
		return domainerrors.ErrReviewNotFound
	}
	s.reviews[reviewID] = review
	return nil
}

func (s *Store) GetReview(_ context.Context, reviewID string) (entities.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	review, ok := s.reviews[strings.TrimSpace(reviewID)]
	if !ok {
		return entities.Review{}, domainerrors.ErrReviewNotFound
	}
	return review, nil
}

func (s *Store) ListReviews(_ context.Context, filter ports.ReviewFilter) ([]entities.Review, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]entities.Review, 0, len(s.reviews))
	for _, review := range s.reviews {
		if !matchesFilter(review, filter) {
			continue
		}
		matched = append(matched, review)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if filter.Offset >= total {
		return []entities.Review{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if filter.Limit <= 0 || end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (s *Store) ListDueScheduled(_ context.Context, now time.Time, limit int) ([]entities.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	due := make([]entities.Review, 0)
	for _, review := range s.reviews {
		if review.Status != entities.StatusScheduled || review.ScheduledPublishAt == nil {
			continue
		}
		if review.ScheduledPublishAt.After(now.UTC()) {
			continue
		}
		due = append(due, review)
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].ScheduledPublishAt.Before(*due[j].ScheduledPublishAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *Store) ApplyTransition(
	_ context.Context,
	review entities.Review,
	audit entities.PublicationAudit,
	envelope ports.EventEnvelope,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reviewID := strings.TrimSpace(review.ReviewID)
	existing, ok := s.reviews[reviewID]
	if !ok {
		return domainerrors.ErrReviewNotFound
	}
	if string(existing.Status) != audit.OldStatus || string(existing.ReviewStatus) != audit.OldReviewStatus {
		return domainerrors.ErrConflict
	}
	s.reviews[reviewID] = review
	s.audits[reviewID] = append(s.audits[reviewID], audit)
	return s.appendOutbox(envelope)
}

func (s *Store) ListAudits(_ context.Context, reviewID string) ([]entities.PublicationAudit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	audits := s.audits[strings.TrimSpace(reviewID)]
	out := make([]entities.PublicationAudit, len(audits))
	copy(out, audits)
	return out, nil
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
		ReviewID:    strings.TrimSpace(record.ReviewID),
		Action:      strings.TrimSpace(record.Action),
		ExpiresAt:   record.ExpiresAt.UTC(),
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

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// appendOutbox requires s.mu to be held.
func (s *Store) appendOutbox(envelope ports.EventEnvelope) error {
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

func matchesFilter(review entities.Review, filter ports.ReviewFilter) bool {
	if filter.Status != "" && string(review.Status) != filter.Status {
		return false
	}
	if filter.ReviewStatus != "" && string(review.ReviewStatus) != filter.ReviewStatus {
		return false
	}
	if filter.AuthorID != "" && review.AuthorID != filter.AuthorID {
		return false
	}
	if filter.ReviewerID != "" && review.ReviewerID != filter.ReviewerID {
		return false
	}
	if filter.Search != "" && !strings.Contains(strings.ToLower(review.Title), strings.ToLower(filter.Search)) {
		return false
	}
	return true
}
