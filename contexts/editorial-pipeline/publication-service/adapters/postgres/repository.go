package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"pressroom/contexts/editorial-pipeline/publication-service/domain/entities"
	domainerrors "pressroom/contexts/editorial-pipeline/publication-service/domain/errors"
	"pressroom/contexts/editorial-pipeline/publication-service/ports"

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
		&reviewModel{},
		&publicationAuditModel{},
		&idempotencyModel{},
		&outboxModel{},
	)
}

func (r *Repository) CreateReview(ctx context.Context, review entities.Review, envelope ports.EventEnvelope) error {
	row := reviewModelFromEntity(review)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return insertOutbox(tx, envelope)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("publication_repo_create_review_failed", err, "review_id", row.ID)
	}
	return nil
}

func (r *Repository) UpdateReviewContent(ctx context.Context, review entities.Review) error {
	result := r.db.WithContext(ctx).
		Model(&reviewModel{}).
		Where("id = ?", strings.TrimSpace(review.ReviewID)).
		Updates(map[string]any{
			"title":      review.Title,
			"body":       review.Body,
			"updated_at": review.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("publication_repo_update_review_failed", result.Error,
			"review_id", strings.TrimSpace(review.ReviewID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrReviewNotFound
	}
	return nil
}

func (r *Repository) GetReview(ctx context.Context, reviewID string) (entities.Review, error) {
	var row reviewModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(reviewID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Review{}, domainerrors.ErrReviewNotFound
		}
		return entities.Review{}, r.logError("publication_repo_get_review_failed", err,
			"review_id", strings.TrimSpace(reviewID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListReviews(ctx context.Context, filter ports.ReviewFilter) ([]entities.Review, int, error) {
	query := r.db.WithContext(ctx).Model(&reviewModel{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ReviewStatus != "" {
		query = query.Where("review_status = ?", filter.ReviewStatus)
	}
	if filter.AuthorID != "" {
		query = query.Where("author_id = ?", filter.AuthorID)
	}
	if filter.ReviewerID != "" {
		query = query.Where("reviewer_id = ?", filter.ReviewerID)
	}
	if filter.Search != "" {
		query = query.Where("title ILIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, r.logError("publication_repo_count_reviews_failed", err)
	}

	var rows []reviewModel
	if err := query.
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&rows).Error; err != nil {
		return nil, 0, r.logError("publication_repo_list_reviews_failed", err,
			"limit", filter.Limit,
			"offset", filter.Offset,
		)
	}
	items := make([]entities.Review, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, int(total), nil
}

func (r *Repository) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]entities.Review, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []reviewModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.StatusScheduled)).
		Where("scheduled_publish_at IS NOT NULL").
		Where("scheduled_publish_at <= ?", now.UTC()).
		Order("scheduled_publish_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("publication_repo_list_due_scheduled_failed", err, "limit", limit)
	}
	items := make([]entities.Review, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// ApplyTransition guards the update with the audit's old status fields so a
// concurrent transition loses cleanly instead of overwriting state.
func (r *Repository) ApplyTransition(
	ctx context.Context,
	review entities.Review,
	audit entities.PublicationAudit,
	envelope ports.EventEnvelope,
) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&reviewModel{}).
			Where("id = ?", strings.TrimSpace(review.ReviewID)).
			Where("status = ?", audit.OldStatus).
			Where("review_status = ?", audit.OldReviewStatus).
			Updates(map[string]any{
				"status":               string(review.Status),
				"review_status":        string(review.ReviewStatus),
				"reviewer_id":          review.ReviewerID,
				"scheduled_publish_at": nullableTime(review.ScheduledPublishAt),
				"published_at":         nullableTime(review.PublishedAt),
				"reviewed_at":          nullableTime(review.ReviewedAt),
				"publication_notes":    review.PublicationNotes,
				"updated_at":           review.UpdatedAt.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrConflict
		}
		auditRow := publicationAuditModelFromEntity(audit)
		if err := tx.Create(&auditRow).Error; err != nil {
			return err
		}
		return insertOutbox(tx, envelope)
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrConflict) {
			return domainerrors.ErrConflict
		}
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("publication_repo_apply_transition_failed", err,
			"review_id", strings.TrimSpace(review.ReviewID),
			"action", audit.Action,
		)
	}
	return nil
}

func (r *Repository) ListAudits(ctx context.Context, reviewID string) ([]entities.PublicationAudit, error) {
	var rows []publicationAuditModel
	if err := r.db.WithContext(ctx).
		Where("review_id = ?", strings.TrimSpace(reviewID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("publication_repo_list_audits_failed", err,
			"review_id", strings.TrimSpace(reviewID),
		)
	}
	items := make([]entities.PublicationAudit, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
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
		return ports.IdempotencyRecord{}, false, r.logError("publication_repo_idempotency_get_failed", err,
			"idempotency_key", strings.TrimSpace(key),
		)
	}
	if !row.ExpiresAt.IsZero() && now.UTC().After(row.ExpiresAt.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("key = ?", strings.TrimSpace(key)).
			Delete(&idempotencyModel{}).Error; err != nil {
			return ports.IdempotencyRecord{}, false, r.logError("publication_repo_idempotency_expire_delete_failed", err,
				"idempotency_key", strings.TrimSpace(key),
			)
		}
		return ports.IdempotencyRecord{}, false, nil
	}
	return ports.IdempotencyRecord{
		Key:         row.Key,
		RequestHash: row.RequestHash,
		ReviewID:    row.ReviewID,
		Action:      row.Action,
		ExpiresAt:   row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *Repository) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:         strings.TrimSpace(record.Key),
		RequestHash: strings.TrimSpace(record.RequestHash),
		ReviewID:    strings.TrimSpace(record.ReviewID),
		Action:      strings.TrimSpace(record.Action),
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("publication_repo_idempotency_put_failed", create.Error, "idempotency_key", row.Key)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("key = ?", row.Key).
		First(&existing).Error; err != nil {
		return r.logError("publication_repo_idempotency_load_existing_failed", err, "idempotency_key", row.Key)
	}
	if existing.RequestHash != row.RequestHash {
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
		return nil, r.logError("publication_repo_list_pending_outbox_failed", err, "limit", limit)
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
		return r.logError("publication_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "editorial-pipeline/publication-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("publication repository operation failed", fields...)
	return err
}

// insertOutbox writes the envelope inside the caller's transaction. Event
// ids are fresh per transition, so a duplicate means the same transition
// already committed.
func insertOutbox(tx *gorm.DB, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
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
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row).Error
}

type reviewModel struct {
	ID                 string     `gorm:"column:id;primaryKey"`
	Title              string     `gorm:"column:title"`
	Body               string     `gorm:"column:body"`
	AuthorID           string     `gorm:"column:author_id;index"`
	ReviewerID         string     `gorm:"column:reviewer_id;index"`
	Status             string     `gorm:"column:status;index"`
	ReviewStatus       string     `gorm:"column:review_status;index"`
	ScheduledPublishAt *time.Time `gorm:"column:scheduled_publish_at;index"`
	PublishedAt        *time.Time `gorm:"column:published_at"`
	ReviewedAt         *time.Time `gorm:"column:reviewed_at"`
	PublicationNotes   string     `gorm:"column:publication_notes"`
	CreatedAt          time.Time  `gorm:"column:created_at;index"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
}

func (reviewModel) TableName() string {
	return "reviews"
}

func reviewModelFromEntity(review entities.Review) reviewModel {
	return reviewModel{
		ID:                 strings.TrimSpace(review.ReviewID),
		Title:              review.Title,
		Body:               review.Body,
		AuthorID:           strings.TrimSpace(review.AuthorID),
		ReviewerID:         strings.TrimSpace(review.ReviewerID),
		Status:             string(review.Status),
		ReviewStatus:       string(review.ReviewStatus),
		ScheduledPublishAt: review.ScheduledPublishAt,
		PublishedAt:        review.PublishedAt,
		ReviewedAt:         review.ReviewedAt,
		PublicationNotes:   review.PublicationNotes,
		CreatedAt:          review.CreatedAt.UTC(),
		UpdatedAt:          review.UpdatedAt.UTC(),
	}
}

func (m reviewModel) toEntity() entities.Review {
	return entities.Review{
		ReviewID:           m.ID,
		Title:              m.Title,
		Body:               m.Body,
		AuthorID:           m.AuthorID,
		ReviewerID:         m.ReviewerID,
		Status:             entities.Status(m.Status),
		ReviewStatus:       entities.ReviewStatus(m.ReviewStatus),
		ScheduledPublishAt: m.ScheduledPublishAt,
		PublishedAt:        m.PublishedAt,
		ReviewedAt:         m.ReviewedAt,
		PublicationNotes:   m.PublicationNotes,
		CreatedAt:          m.CreatedAt.UTC(),
		UpdatedAt:          m.UpdatedAt.UTC(),
	}
}

type publicationAuditModel struct {
	AuditID         string    `gorm:"column:audit_id;primaryKey"`
	ReviewID        string    `gorm:"column:review_id;index"`
	Action          string    `gorm:"column:action"`
	ActorID         string    `gorm:"column:actor_id"`
	ActorRole       string    `gorm:"column:actor_role"`
	Notes           string    `gorm:"column:notes"`
	OldStatus       string    `gorm:"column:old_status"`
	NewStatus       string    `gorm:"column:new_status"`
	OldReviewStatus string    `gorm:"column:old_review_status"`
	NewReviewStatus string    `gorm:"column:new_review_status"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (publicationAuditModel) TableName() string {
	return "publication_audits"
}

func publicationAuditModelFromEntity(audit entities.PublicationAudit) publicationAuditModel {
	return publicationAuditModel{
		AuditID:         strings.TrimSpace(audit.AuditID),
		ReviewID:        strings.TrimSpace(audit.ReviewID),
		Action:          audit.Action,
		ActorID:         strings.TrimSpace(audit.ActorID),
		ActorRole:       strings.TrimSpace(audit.ActorRole),
		Notes:           audit.Notes,
		OldStatus:       audit.OldStatus,
		NewStatus:       audit.NewStatus,
		OldReviewStatus: audit.OldReviewStatus,
		NewReviewStatus: audit.NewReviewStatus,
		CreatedAt:       audit.CreatedAt.UTC(),
	}
}

func (m publicationAuditModel) toEntity() entities.PublicationAudit {
	return entities.PublicationAudit{
		AuditID:         m.AuditID,
		ReviewID:        m.ReviewID,
		Action:          m.Action,
		ActorID:         m.ActorID,
		ActorRole:       m.ActorRole,
		Notes:           m.Notes,
		OldStatus:       m.OldStatus,
		NewStatus:       m.NewStatus,
		OldReviewStatus: m.OldReviewStatus,
		NewReviewStatus: m.NewReviewStatus,
		CreatedAt:       m.CreatedAt.UTC(),
	}
}

type idempotencyModel struct {
	Key         string    `gorm:"column:key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash"`
	ReviewID    string    `gorm:"column:review_id"`
	Action      string    `gorm:"column:action"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "publication_idempotency"
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
	return "publication_outbox"
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.ReviewRepository = (*Repository)(nil)
var _ ports.IdempotencyStore = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
