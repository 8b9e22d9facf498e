package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"pressroom/contexts/community-engagement/board-service/domain/entities"
	domainerrors "pressroom/contexts/community-engagement/board-service/domain/errors"
	"pressroom/contexts/community-engagement/board-service/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type voteCounters struct {
	upvotes   int
	downvotes int
}

type Store struct {
	mu sync.RWMutex

	suggestions map[string]entities.Suggestion
	posts       map[string]entities.CommunityPost
	polls       map[string]entities.Poll
	counters    map[string]voteCounters
	userVotes   map[string]string
	outbox      map[string]outboxRecord
}

func NewStore() *Store {
	return &Store{
		suggestions: make(map[string]entities.Suggestion),
		posts:       make(map[string]entities.CommunityPost),
		polls:       make(map[string]entities.Poll),
		counters:    make(map[string]voteCounters),
		userVotes:   make(map[string]string),
		outbox:      make(map[string]outboxRecord),
	}
}

// SetVoteCounters seeds the counters a read model joins with.
func (s *Store) SetVoteCounters(entityType string, entityID string, upvotes int, downvotes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[entityKey(entityType, entityID)] = voteCounters{upvotes: upvotes, downvotes: downvotes}
}

// SetUserVote seeds one caller's stance. Vote is "up" or "down"; an empty
// vote clears the stance.
func (s *Store) SetUserVote(entityType string, entityID string, userID string, vote string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userVoteKey(entityType, entityID, userID)
	if strings.TrimSpace(vote) == "" {
		delete(s.userVotes, key)
		return
	}
	s.userVotes[key] = strings.TrimSpace(vote)
}

func (s *Store) SaveSuggestion(_ context.Context, suggestion entities.Suggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions[strings.TrimSpace(suggestion.SuggestionID)] = suggestion
	return nil
}

func (s *Store) GetSuggestion(_ context.Context, suggestionID string) (entities.Suggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	suggestion, ok := s.suggestions[strings.TrimSpace(suggestionID)]
	if !ok {
		return entities.Suggestion{}, domainerrors.ErrSuggestionNotFound
	}
	return suggestion, nil
}

func (s *Store) ListSuggestions(_ context.Context) ([]entities.Suggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Suggestion, 0, len(s.suggestions))
	for _, suggestion := range s.suggestions {
		items = append(items, suggestion)
	}
	sortNewestFirst(items, func(item entities.Suggestion) time.Time { return item.CreatedAt })
	return items, nil
}

func (s *Store) ListSuggestionsPage(ctx context.Context, limit int, offset int) ([]entities.Suggestion, int, error) {
	items, err := s.ListSuggestions(ctx)
	if err != nil {
		return nil, 0, err
	}
	total := len(items)
	return pageOf(items, limit, offset), total, nil
}

func (s *Store) SavePost(_ context.Context, post entities.CommunityPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[strings.TrimSpace(post.PostID)] = post
	return nil
}

func (s *Store) GetPost(_ context.Context, postID string) (entities.CommunityPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	post, ok := s.posts[strings.TrimSpace(postID)]
	if !ok {
		return entities.CommunityPost{}, domainerrors.ErrPostNotFound
	}
	return post, nil
}

func (s *Store) ListPosts(_ context.Context) ([]entities.CommunityPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.CommunityPost, 0, len(s.posts))
	for _, post := range s.posts {
		items = append(items, post)
	}
	sortNewestFirst(items, func(item entities.CommunityPost) time.Time { return item.CreatedAt })
	return items, nil
}

func (s *Store) ListPostsPage(ctx context.Context, limit int, offset int) ([]entities.CommunityPost, int, error) {
	items, err := s.ListPosts(ctx)
	if err != nil {
		return nil, 0, err
	}
	total := len(items)
	return pageOf(items, limit, offset), total, nil
}

func (s *Store) SavePoll(_ context.Context, poll entities.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls[strings.TrimSpace(poll.PollID)] = poll
	return nil
}

func (s *Store) GetPoll(_ context.Context, pollID string) (entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	poll, ok := s.polls[strings.TrimSpace(pollID)]
	if !ok {
		return entities.Poll{}, domainerrors.ErrPollNotFound
	}
	return poll, nil
}

func (s *Store) ListPolls(_ context.Context) ([]entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Poll, 0, len(s.polls))
	for _, poll := range s.polls {
		items = append(items, poll)
	}
	sortNewestFirst(items, func(item entities.Poll) time.Time { return item.CreatedAt })
	return items, nil
}

func (s *Store) ListPollsPage(ctx context.Context, limit int, offset int) ([]entities.Poll, int, error) {
	items, err := s.ListPolls(ctx)
	if err != nil {
		return nil, 0, err
	}
	total := len(items)
	return pageOf(items, limit, offset), total, nil
}

func (s *Store) GetVoteStates(
	_ context.Context,
	entityType string,
	entityIDs []string,
	userID string,
) (map[string]ports.VoteState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make(map[string]ports.VoteState, len(entityIDs))
	for _, entityID := range entityIDs {
		entityID = strings.TrimSpace(entityID)
		state := ports.VoteState{}
		if counters, ok := s.counters[entityKey(entityType, entityID)]; ok {
			state.Upvotes = counters.upvotes
			state.Downvotes = counters.downvotes
		}
		if strings.TrimSpace(userID) != "" {
			state.UserVote = s.userVotes[userVoteKey(entityType, entityID, userID)]
		}
		states[entityID] = state
	}
	return states, nil
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

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func sortNewestFirst[T any](items []T, createdAt func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]).After(createdAt(items[j]))
	})
}

func pageOf[T any](items []T, limit int, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func entityKey(entityType string, entityID string) string {
	return entityType + "|" + strings.TrimSpace(entityID)
}

func userVoteKey(entityType string, entityID string, userID string) string {
	return entityType + "|" + strings.TrimSpace(entityID) + "|" + strings.TrimSpace(userID)
}
