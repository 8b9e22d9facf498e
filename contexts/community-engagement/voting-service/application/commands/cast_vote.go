package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "pressroom/contexts/community-engagement/voting-service/application"
	"pressroom/contexts/community-engagement/voting-service/domain/entities"
	domainerrors "pressroom/contexts/community-engagement/voting-service/domain/errors"
	"pressroom/contexts/community-engagement/voting-service/ports"
)

// CastVoteCommand is the write-model input for all vote mutations. A none
// vote retracts the caller's existing vote.
type CastVoteCommand struct {
	UserID         string
	IdempotencyKey string
	EntityType     entities.EntityType
	EntityID       string
	VoteType       entities.VoteType
}

// CastVoteResult returns the caller's final vote state plus the updated
// counters, with a replay marker the transport maps to API semantics.
type CastVoteResult struct {
	EntityType entities.EntityType
	EntityID   string
	UserID     string
	VoteType   entities.VoteType
	Summary    entities.VoteSummary
	Replayed   bool
}

// VoteUseCase orchestrates vote casting: entity existence via projection,
// closed vote vocabulary, atomic row+counter mutation, and outbox emission.
type VoteUseCase struct {
	Votes          ports.VoteRepository
	Projections    ports.ProjectionRepository
	Idempotency    ports.IdempotencyStore
	Outbox         ports.OutboxWriter
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// CastVote applies one vote transition for (entity_type, entity_id, user_id).
// Repeating the current state is a no-op; retracting without a vote is too.
// The method is replay-safe when the caller supplies an idempotency key.
func (uc VoteUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (CastVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("vote cast processing started",
		"event", "engagement_vote_cast_started",
		"module", "community-engagement/voting-service",
		"layer", "application",
		"user_id", strings.TrimSpace(cmd.UserID),
		"entity_type", string(cmd.EntityType),
		"entity_id", strings.TrimSpace(cmd.EntityID),
		"vote_type", string(cmd.VoteType),
	)
	if strings.TrimSpace(cmd.UserID) == "" ||
		strings.TrimSpace(cmd.EntityID) == "" ||
		!cmd.EntityType.Valid() ||
		!cmd.VoteType.Valid() {
		logger.Warn("vote cast validation failed",
			"event", "engagement_vote_cast_validation_failed",
			"module", "community-engagement/voting-service",
			"layer", "application",
			"user_id", strings.TrimSpace(cmd.UserID),
			"entity_type", string(cmd.EntityType),
			"entity_id", strings.TrimSpace(cmd.EntityID),
		)
		return CastVoteResult{}, domainerrors.ErrInvalidVoteInput
	}
	if cmd.VoteType == entities.VoteTypeDown && !cmd.EntityType.AllowsDownvotes() {
		logger.Warn("vote cast rejected downvote for entity shape",
			"event", "engagement_vote_cast_downvote_rejected",
			"module", "community-engagement/voting-service",
			"layer", "application",
			"entity_type", string(cmd.EntityType),
			"entity_id", strings.TrimSpace(cmd.EntityID),
		)
		return CastVoteResult{}, domainerrors.ErrInvalidVoteInput
	}

	now := uc.now()
	requestHash := hashCastVoteCommand(cmd)
	idempotencyKey := strings.TrimSpace(cmd.IdempotencyKey)
	if idempotencyKey != "" {
		record, found, err := uc.Idempotency.Get(ctx, idempotencyKey, now)
		if err != nil {
			logger.Error("vote cast idempotency lookup failed",
				"event", "engagement_vote_cast_idempotency_lookup_failed",
				"module", "community-engagement/voting-service",
				"layer", "application",
				"user_id", strings.TrimSpace(cmd.UserID),
				"entity_id", strings.TrimSpace(cmd.EntityID),
				"error", err.Error(),
			)
			return CastVoteResult{}, err
		}
		if found {
			if record.RequestHash != requestHash {
				logger.Warn("vote cast idempotency conflict",
					"event", "engagement_vote_cast_idempotency_conflict",
					"module", "community-engagement/voting-service",
					"layer", "application",
					"user_id", strings.TrimSpace(cmd.UserID),
					"entity_id", strings.TrimSpace(cmd.EntityID),
				)
				return CastVoteResult{}, domainerrors.ErrIdempotencyConflict
			}
			summary, err := uc.Votes.GetSummary(ctx, record.EntityType, record.EntityID)
			if err != nil {
				return CastVoteResult{}, err
			}
			logger.Info("vote cast replayed",
				"event", "engagement_vote_cast_replayed",
				"module", "community-engagement/voting-service",
				"layer", "application",
				"user_id", strings.TrimSpace(cmd.UserID),
				"entity_id", record.EntityID,
			)
			return CastVoteResult{
				EntityType: record.EntityType,
				EntityID:   record.EntityID,
				UserID:     strings.TrimSpace(cmd.UserID),
				VoteType:   record.VoteType,
				Summary:    summary,
				Replayed:   true,
			}, nil
		}
	}

	if _, found, err := uc.Projections.GetProjection(ctx, cmd.EntityType, cmd.EntityID); err != nil {
		return CastVoteResult{}, err
	} else if !found {
		logger.Warn("vote cast target entity unknown",
			"event", "engagement_vote_cast_entity_unknown",
			"module", "community-engagement/voting-service",
			"layer", "application",
			"entity_type", string(cmd.EntityType),
			"entity_id", strings.TrimSpace(cmd.EntityID),
		)
		return CastVoteResult{}, domainerrors.ErrEntityNotFound
	}

	existing, found, err := uc.Votes.GetVoteByIdentity(ctx, cmd.EntityType, cmd.EntityID, cmd.UserID)
	if err != nil {
		return CastVoteResult{}, err
	}
	previous := entities.VoteTypeNone
	if found {
		previous = existing.VoteType
	}

	vote := entities.Vote{
		VoteID:     existing.VoteID,
		EntityType: cmd.EntityType,
		EntityID:   strings.TrimSpace(cmd.EntityID),
		UserID:     strings.TrimSpace(cmd.UserID),
		VoteType:   cmd.VoteType,
		CreatedAt:  existing.CreatedAt,
		UpdatedAt:  now,
	}
	if !found && cmd.VoteType != entities.VoteTypeNone {
		voteID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return CastVoteResult{}, err
		}
		vote.VoteID = voteID
		vote.CreatedAt = now
	}

	summary, err := uc.Votes.ApplyVote(ctx, vote, previous)
	if err != nil {
		logger.Error("vote cast persistence failed",
			"event", "engagement_vote_cast_persist_failed",
			"module", "community-engagement/voting-service",
			"layer", "application",
			"entity_type", string(cmd.EntityType),
			"entity_id", strings.TrimSpace(cmd.EntityID),
			"user_id", strings.TrimSpace(cmd.UserID),
			"error", err.Error(),
		)
		return CastVoteResult{}, err
	}

	if err := uc.appendVoteEvent(ctx, vote, previous, summary, now); err != nil {
		return CastVoteResult{}, err
	}
	if idempotencyKey != "" {
		if err := uc.Idempotency.Put(ctx, ports.IdempotencyRecord{
			Key:         idempotencyKey,
			RequestHash: requestHash,
			EntityType:  cmd.EntityType,
			EntityID:    strings.TrimSpace(cmd.EntityID),
			VoteType:    cmd.VoteType,
			ExpiresAt:   now.Add(uc.resolveIdempotencyTTL()),
		}); err != nil {
			return CastVoteResult{}, err
		}
	}

	logger.Info("vote cast applied",
		"event", "engagement_vote_cast_applied",
		"module", "community-engagement/voting-service",
		"layer", "application",
		"entity_type", string(cmd.EntityType),
		"entity_id", strings.TrimSpace(cmd.EntityID),
		"user_id", strings.TrimSpace(cmd.UserID),
		"vote_type", string(cmd.VoteType),
		"previous_vote_type", string(previous),
		"upvotes", summary.Upvotes,
		"downvotes", summary.Downvotes,
	)
	return CastVoteResult{
		EntityType: cmd.EntityType,
		EntityID:   strings.TrimSpace(cmd.EntityID),
		UserID:     strings.TrimSpace(cmd.UserID),
		VoteType:   cmd.VoteType,
		Summary:    summary,
	}, nil
}

func (uc VoteUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc VoteUseCase) resolveIdempotencyTTL() time.Duration {
	if uc.IdempotencyTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return uc.IdempotencyTTL
}

func (uc VoteUseCase) appendVoteEvent(
	ctx context.Context,
	vote entities.Vote,
	previous entities.VoteType,
	summary entities.VoteSummary,
	occurredAt time.Time,
) error {
	// A nil outbox skips event emission.
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newEngagementEnvelope(eventID, "vote.cast", vote.EntityID, occurredAt, map[string]any{
		"entity_type":        string(vote.EntityType),
		"entity_id":          vote.EntityID,
		"user_id":            vote.UserID,
		"vote_type":          string(vote.VoteType),
		"previous_vote_type": string(previous),
		"upvotes":            summary.Upvotes,
		"downvotes":          summary.Downvotes,
		"occurred_at":        occurredAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func hashCastVoteCommand(cmd CastVoteCommand) string {
	payload := map[string]string{
		"user_id":     strings.TrimSpace(cmd.UserID),
		"entity_type": string(cmd.EntityType),
		"entity_id":   strings.TrimSpace(cmd.EntityID),
		"vote_type":   string(cmd.VoteType),
		"op":          "cast_vote",
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
