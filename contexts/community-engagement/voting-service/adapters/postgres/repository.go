package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"pressroom/contexts/community-engagement/voting-service/domain/entities"
	domainerrors "pressroom/contexts/community-engagement/voting-service/domain/errors"
	"pressroom/contexts/community-engagement/voting-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// AutoMigrate creates or updates the tables this adapter owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&voteModel{},
		&voteSummaryModel{},
		&votableProjectionModel{},
		&idempotencyModel{},
		&outboxModel{},
		&eventDedupModel{},
	)
}

func (r *Repository) GetVoteByIdentity(
	ctx context.Context,
	entityType entities.EntityType,
	entityID string,
	userID string,
) (entities.Vote, bool, error) {
	var row voteModel
	err := r.db.WithContext(ctx).
		Where("entity_type = ?", string(entityType)).
		Where("entity_id = ?", strings.TrimSpace(entityID)).
		Where("user_id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Vote{}, false, nil
		}
		return entities.Vote{}, false, r.logError("engagement_vote_repo_get_vote_by_identity_failed", err,
			"entity_type", string(entityType),
			"entity_id", strings.TrimSpace(entityID),
			"user_id", strings.TrimSpace(userID),
		)
	}
	return row.toEntity(), true, nil
}

// ApplyVote mutates the vote row and the summary counters in one transaction.
// A none vote deletes the row; counters are clamped at zero in SQL.
func (r *Repository) ApplyVote(
	ctx context.Context,
	vote entities.Vote,
	previous entities.VoteType,
) (entities.VoteSummary, error) {
	upDelta, downDelta := voteDeltas(previous, vote.VoteType)

	var summaryRow voteSummaryModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if vote.VoteType == entities.VoteTypeNone {
			if err := tx.
				Where("entity_type = ?", string(vote.EntityType)).
				Where("entity_id = ?", strings.TrimSpace(vote.EntityID)).
				Where("user_id = ?", strings.TrimSpace(vote.UserID)).
				Delete(&voteModel{}).Error; err != nil {
				return err
			}
		} else {
			row := voteModelFromEntity(vote)
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "entity_type"},
					{Name: "entity_id"},
					{Name: "user_id"},
				},
				DoUpdates: clause.Assignments(map[string]any{
					"vote_type":  row.VoteType,
					"updated_at": row.UpdatedAt,
				}),
			}).Create(&row).Error; err != nil {
				return err
			}
		}

		summarySeed := voteSummaryModel{
			EntityType: string(vote.EntityType),
			EntityID:   strings.TrimSpace(vote.EntityID),
			Upvotes:    clampNonNegative(upDelta),
			Downvotes:  clampNonNegative(downDelta),
			UpdatedAt:  vote.UpdatedAt.UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "entity_type"},
				{Name: "entity_id"},
			},
			DoUpdates: clause.Assignments(map[string]any{
				"upvotes":    gorm.Expr("GREATEST(vote_summaries.upvotes + ?, 0)", upDelta),
				"downvotes":  gorm.Expr("GREATEST(vote_summaries.downvotes + ?, 0)", downDelta),
				"updated_at": vote.UpdatedAt.UTC(),
			}),
		}).Create(&summarySeed).Error; err != nil {
			return err
		}

		return tx.
			Where("entity_type = ?", string(vote.EntityType)).
			Where("entity_id = ?", strings.TrimSpace(vote.EntityID)).
			First(&summaryRow).
			Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return entities.VoteSummary{}, domainerrors.ErrConflict
		}
		return entities.VoteSummary{}, r.logError("engagement_vote_repo_apply_vote_failed", err,
			"entity_type", string(vote.EntityType),
			"entity_id", strings.TrimSpace(vote.EntityID),
			"user_id", strings.TrimSpace(vote.UserID),
			"vote_type", string(vote.VoteType),
		)
	}
	return summaryRow.toEntity(), nil
}

func (r *Repository) GetSummary(
	ctx context.Context,
	entityType entities.EntityType,
	entityID string,
) (entities.VoteSummary, error) {
	var row voteSummaryModel
	err := r.db.WithContext(ctx).
		Where("entity_type = ?", string(entityType)).
		Where("entity_id = ?", strings.TrimSpace(entityID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VoteSummary{
				EntityType: entityType,
				EntityID:   strings.TrimSpace(entityID),
			}, nil
		}
		return entities.VoteSummary{}, r.logError("engagement_vote_repo_get_summary_failed", err,
			"entity_type", string(entityType),
			"entity_id", strings.TrimSpace(entityID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetProjection(
	ctx context.Context,
	entityType entities.EntityType,
	entityID string,
) (ports.VotableProjection, bool, error) {
	var row votableProjectionModel
	err := r.db.WithContext(ctx).
		Where("entity_type = ?", string(entityType)).
		Where("entity_id = ?", strings.TrimSpace(entityID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.VotableProjection{}, false, nil
		}
		return ports.VotableProjection{}, false, r.logError("engagement_vote_repo_get_projection_failed", err,
			"entity_type", string(entityType),
			"entity_id", strings.TrimSpace(entityID),
		)
	}
	return ports.VotableProjection{
		EntityType: entities.EntityType(row.EntityType),
		EntityID:   row.EntityID,
		AuthorID:   row.AuthorID,
		CreatedAt:  row.CreatedAt.UTC(),
	}, true, nil
}

func (r *Repository) SaveProjection(ctx context.Context, projection ports.VotableProjection) error {
	row := votableProjectionModel{
		EntityType: string(projection.EntityType),
		EntityID:   strings.TrimSpace(projection.EntityID),
		AuthorID:   strings.TrimSpace(projection.AuthorID),
		CreatedAt:  projection.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "entity_type"},
			{Name: "entity_id"},
		},
		DoUpdates: clause.Assignments(map[string]any{
			"author_id": row.AuthorID,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("engagement_vote_repo_save_projection_failed", create.Error,
			"entity_type", row.EntityType,
			"entity_id", row.EntityID,
		)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, r.logError("engagement_vote_repo_idempotency_get_failed", err,
			"idempotency_key", strings.TrimSpace(key),
		)
	}
	if !row.ExpiresAt.IsZero() && now.UTC().After(row.ExpiresAt.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("key = ?", strings.TrimSpace(key)).
			Delete(&idempotencyModel{}).Error; err != nil {
			return ports.IdempotencyRecord{}, false, r.logError("engagement_vote_repo_idempotency_expire_delete_failed", err,
				"idempotency_key", strings.TrimSpace(key),
			)
		}
		return ports.IdempotencyRecord{}, false, nil
	}
	return ports.IdempotencyRecord{
		Key:         row.Key,
		RequestHash: row.RequestHash,
		EntityType:  entities.EntityType(row.EntityType),
		EntityID:    row.EntityID,
		VoteType:    entities.VoteType(row.VoteType),
		ExpiresAt:   row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *Repository) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:         strings.TrimSpace(record.Key),
		RequestHash: strings.TrimSpace(record.RequestHash),
		EntityType:  string(record.EntityType),
		EntityID:    strings.TrimSpace(record.EntityID),
		VoteType:    string(record.VoteType),
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("engagement_vote_repo_idempotency_put_failed", create.Error, "idempotency_key", row.Key)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("key = ?", row.Key).
		First(&existing).Error; err != nil {
		return r.logError("engagement_vote_repo_idempotency_load_existing_failed", err, "idempotency_key", row.Key)
	}
	if existing.RequestHash != row.RequestHash {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("engagement_vote_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("engagement_vote_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := r.db.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return r.logError("engagement_vote_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("engagement_vote_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("engagement_vote_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: strings.TrimSpace(payloadHash),
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return false, r.logError("engagement_vote_repo_reserve_event_failed", create.Error,
			"event_id", strings.TrimSpace(eventID),
		)
	}
	if create.RowsAffected > 0 {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Select("payload_hash").
		Where("event_id = ?", row.EventID).
		First(&existing).Error; err != nil {
		return false, r.logError("engagement_vote_repo_reserve_event_load_existing_failed", err,
			"event_id", strings.TrimSpace(eventID),
		)
	}
	if existing.PayloadHash != row.PayloadHash {
		return false, domainerrors.ErrConflict
	}
	return true, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "community-engagement/voting-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("voting repository operation failed", fields...)
	return err
}

type voteModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	EntityType string    `gorm:"column:entity_type;uniqueIndex:idx_votes_identity"`
	EntityID   string    `gorm:"column:entity_id;uniqueIndex:idx_votes_identity"`
	UserID     string    `gorm:"column:user_id;uniqueIndex:idx_votes_identity"`
	VoteType   string    `gorm:"column:vote_type"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (voteModel) TableName() string {
	return "votes"
}

func voteModelFromEntity(vote entities.Vote) voteModel {
	row := voteModel{
		ID:         strings.TrimSpace(vote.VoteID),
		EntityType: string(vote.EntityType),
		EntityID:   strings.TrimSpace(vote.EntityID),
		UserID:     strings.TrimSpace(vote.UserID),
		VoteType:   string(vote.VoteType),
		CreatedAt:  vote.CreatedAt.UTC(),
		UpdatedAt:  vote.UpdatedAt.UTC(),
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m voteModel) toEntity() entities.Vote {
	return entities.Vote{
		VoteID:     m.ID,
		EntityType: entities.EntityType(m.EntityType),
		EntityID:   m.EntityID,
		UserID:     m.UserID,
		VoteType:   entities.VoteType(m.VoteType),
		CreatedAt:  m.CreatedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
}

type voteSummaryModel struct {
	EntityType string    `gorm:"column:entity_type;primaryKey"`
	EntityID   string    `gorm:"column:entity_id;primaryKey"`
	Upvotes    int       `gorm:"column:upvotes"`
	Downvotes  int       `gorm:"column:downvotes"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (voteSummaryModel) TableName() string {
	return "vote_summaries"
}

func (m voteSummaryModel) toEntity() entities.VoteSummary {
	return entities.VoteSummary{
		EntityType: entities.EntityType(m.EntityType),
		EntityID:   m.EntityID,
		Upvotes:    m.Upvotes,
		Downvotes:  m.Downvotes,
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
}

type votableProjectionModel struct {
	EntityType string    `gorm:"column:entity_type;primaryKey"`
	EntityID   string    `gorm:"column:entity_id;primaryKey"`
	AuthorID   string    `gorm:"column:author_id"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (votableProjectionModel) TableName() string {
	return "votable_projections"
}

type idempotencyModel struct {
	Key         string    `gorm:"column:key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash"`
	EntityType  string    `gorm:"column:entity_type"`
	EntityID    string    `gorm:"column:entity_id"`
	VoteType    string    `gorm:"column:vote_type"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "voting_idempotency"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "voting_outbox"
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "voting_event_dedup"
}

func voteDeltas(previous entities.VoteType, next entities.VoteType) (int, int) {
	if previous == next {
		return 0, 0
	}
	up, down := 0, 0
	switch previous {
	case entities.VoteTypeUp:
		up--
	case entities.VoteTypeDown:
		down--
	}
	switch next {
	case entities.VoteTypeUp:
		up++
	case entities.VoteTypeDown:
		down++
	}
	return up, down
}

func clampNonNegative(value int) int {
	if value < 0 {
		return 0
	}
	return value
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.VoteRepository = (*Repository)(nil)
var _ ports.ProjectionRepository = (*Repository)(nil)
var _ ports.IdempotencyStore = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.EventDedupStore = (*Repository)(nil)
