package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"pressroom/contexts/community-engagement/board-service/domain/entities"
	domainerrors "pressroom/contexts/community-engagement/board-service/domain/errors"
	"pressroom/contexts/community-engagement/board-service/ports"

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

// AutoMigrate creates or updates the tables this adapter owns. The vote
// tables it reads belong to the voting service and are migrated there.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&suggestionModel{},
		&communityPostModel{},
		&pollModel{},
		&boardOutboxModel{},
	)
}

func (r *Repository) SaveSuggestion(ctx context.Context, suggestion entities.Suggestion) error {
	row := suggestionModelFromEntity(suggestion)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"title":      row.Title,
			"body":       row.Body,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrConflict
		}
		return r.logError("board_repo_save_suggestion_failed", create.Error, "suggestion_id", row.ID)
	}
	return nil
}

func (r *Repository) GetSuggestion(ctx context.Context, suggestionID string) (entities.Suggestion, error) {
	var row suggestionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(suggestionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Suggestion{}, domainerrors.ErrSuggestionNotFound
		}
		return entities.Suggestion{}, r.logError("board_repo_get_suggestion_failed", err,
			"suggestion_id", strings.TrimSpace(suggestionID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListSuggestions(ctx context.Context) ([]entities.Suggestion, error) {
	var rows []suggestionModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("board_repo_list_suggestions_failed", err)
	}
	items := make([]entities.Suggestion, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ListSuggestionsPage(ctx context.Context, limit int, offset int) ([]entities.Suggestion, int, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&suggestionModel{}).
		Count(&total).Error; err != nil {
		return nil, 0, r.logError("board_repo_count_suggestions_failed", err)
	}
	var rows []suggestionModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, 0, r.logError("board_repo_list_suggestions_page_failed", err, "limit", limit, "offset", offset)
	}
	items := make([]entities.Suggestion, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, int(total), nil
}

func (r *Repository) SavePost(ctx context.Context, post entities.CommunityPost) error {
	row := communityPostModelFromEntity(post)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"title":      row.Title,
			"body":       row.Body,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrConflict
		}
		return r.logError("board_repo_save_post_failed", create.Error, "post_id", row.ID)
	}
	return nil
}

func (r *Repository) GetPost(ctx context.Context, postID string) (entities.CommunityPost, error) {
	var row communityPostModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(postID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.CommunityPost{}, domainerrors.ErrPostNotFound
		}
		return entities.CommunityPost{}, r.logError("board_repo_get_post_failed", err,
			"post_id", strings.TrimSpace(postID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListPosts(ctx context.Context) ([]entities.CommunityPost, error) {
	var rows []communityPostModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("board_repo_list_posts_failed", err)
	}
	items := make([]entities.CommunityPost, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ListPostsPage(ctx context.Context, limit int, offset int) ([]entities.CommunityPost, int, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&communityPostModel{}).
		Count(&total).Error; err != nil {
		return nil, 0, r.logError("board_repo_count_posts_failed", err)
	}
	var rows []communityPostModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, 0, r.logError("board_repo_list_posts_page_failed", err, "limit", limit, "offset", offset)
	}
	items := make([]entities.CommunityPost, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, int(total), nil
}

func (r *Repository) SavePoll(ctx context.Context, poll entities.Poll) error {
	row, err := pollModelFromEntity(poll)
	if err != nil {
		return r.logError("board_repo_save_poll_encode_failed", err, "poll_id", strings.TrimSpace(poll.PollID))
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"question":   row.Question,
			"options":    row.Options,
			"closes_at":  row.ClosesAt,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrConflict
		}
		return r.logError("board_repo_save_poll_failed", create.Error, "poll_id", row.ID)
	}
	return nil
}

func (r *Repository) GetPoll(ctx context.Context, pollID string) (entities.Poll, error) {
	var row pollModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(pollID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Poll{}, domainerrors.ErrPollNotFound
		}
		return entities.Poll{}, r.logError("board_repo_get_poll_failed", err,
			"poll_id", strings.TrimSpace(pollID),
		)
	}
	poll, err := row.toEntity()
	if err != nil {
		return entities.Poll{}, r.logError("board_repo_decode_poll_failed", err, "poll_id", row.ID)
	}
	return poll, nil
}

func (r *Repository) ListPolls(ctx context.Context) ([]entities.Poll, error) {
	var rows []pollModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("board_repo_list_polls_failed", err)
	}
	items := make([]entities.Poll, 0, len(rows))
	for _, row := range rows {
		poll, err := row.toEntity()
		if err != nil {
			return nil, r.logError("board_repo_decode_poll_failed", err, "poll_id", row.ID)
		}
		items = append(items, poll)
	}
	return items, nil
}

func (r *Repository) ListPollsPage(ctx context.Context, limit int, offset int) ([]entities.Poll, int, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&pollModel{}).
		Count(&total).Error; err != nil {
		return nil, 0, r.logError("board_repo_count_polls_failed", err)
	}
	var rows []pollModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, 0, r.logError("board_repo_list_polls_page_failed", err, "limit", limit, "offset", offset)
	}
	items := make([]entities.Poll, 0, len(rows))
	for _, row := range rows {
		poll, err := row.toEntity()
		if err != nil {
			return nil, 0, r.logError("board_repo_decode_poll_failed", err, "poll_id", row.ID)
		}
		items = append(items, poll)
	}
	return items, int(total), nil
}

// GetVoteStates joins the voting service's summary and vote tables into the
// read models this module serves. Entities without rows map to zero states.
func (r *Repository) GetVoteStates(
	ctx context.Context,
	entityType string,
	entityIDs []string,
	userID string,
) (map[string]ports.VoteState, error) {
	states := make(map[string]ports.VoteState, len(entityIDs))
	if len(entityIDs) == 0 {
		return states, nil
	}

	var summaries []voteSummaryRow
	if err := r.db.WithContext(ctx).
		Where("entity_type = ?", entityType).
		Where("entity_id IN ?", entityIDs).
		Find(&summaries).Error; err != nil {
		return nil, r.logError("board_repo_get_vote_summaries_failed", err, "entity_type", entityType)
	}
	for _, row := range summaries {
		states[row.EntityID] = ports.VoteState{
			Upvotes:   row.Upvotes,
			Downvotes: row.Downvotes,
		}
	}

	if strings.TrimSpace(userID) != "" {
		var votes []voteRow
		if err := r.db.WithContext(ctx).
			Where("entity_type = ?", entityType).
			Where("entity_id IN ?", entityIDs).
			Where("user_id = ?", strings.TrimSpace(userID)).
			Find(&votes).Error; err != nil {
			return nil, r.logError("board_repo_get_user_votes_failed", err,
				"entity_type", entityType,
				"user_id", strings.TrimSpace(userID),
			)
		}
		for _, row := range votes {
			state := states[row.EntityID]
			state.UserVote = row.VoteType
			states[row.EntityID] = state
		}
	}
	return states, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("board_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := boardOutboxModel{
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
		return r.logError("board_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing boardOutboxModel
	if err := r.db.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return r.logError("board_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []boardOutboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("board_repo_list_pending_outbox_failed", err, "limit", limit)
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
		Model(&boardOutboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("board_repo_mark_outbox_published_failed", result.Error,
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
		"module", "community-engagement/board-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("board repository operation failed", fields...)
	return err
}

type suggestionModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Title     string    `gorm:"column:title"`
	Body      string    `gorm:"column:body"`
	AuthorID  string    `gorm:"column:author_id;index"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (suggestionModel) TableName() string {
	return "suggestions"
}

func suggestionModelFromEntity(suggestion entities.Suggestion) suggestionModel {
	return suggestionModel{
		ID:        strings.TrimSpace(suggestion.SuggestionID),
		Title:     suggestion.Title,
		Body:      suggestion.Body,
		AuthorID:  strings.TrimSpace(suggestion.AuthorID),
		CreatedAt: suggestion.CreatedAt.UTC(),
		UpdatedAt: suggestion.UpdatedAt.UTC(),
	}
}

func (m suggestionModel) toEntity() entities.Suggestion {
	return entities.Suggestion{
		SuggestionID: m.ID,
		Title:        m.Title,
		Body:         m.Body,
		AuthorID:     m.AuthorID,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

type communityPostModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Title     string    `gorm:"column:title"`
	Body      string    `gorm:"column:body"`
	AuthorID  string    `gorm:"column:author_id;index"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (communityPostModel) TableName() string {
	return "community_posts"
}

func communityPostModelFromEntity(post entities.CommunityPost) communityPostModel {
	return communityPostModel{
		ID:        strings.TrimSpace(post.PostID),
		Title:     post.Title,
		Body:      post.Body,
		AuthorID:  strings.TrimSpace(post.AuthorID),
		CreatedAt: post.CreatedAt.UTC(),
		UpdatedAt: post.UpdatedAt.UTC(),
	}
}

func (m communityPostModel) toEntity() entities.CommunityPost {
	return entities.CommunityPost{
		PostID:    m.ID,
		Title:     m.Title,
		Body:      m.Body,
		AuthorID:  m.AuthorID,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type pollModel struct {
	ID        string     `gorm:"column:id;primaryKey"`
	Question  string     `gorm:"column:question"`
	Options   []byte     `gorm:"column:options;type:jsonb"`
	AuthorID  string     `gorm:"column:author_id;index"`
	ClosesAt  *time.Time `gorm:"column:closes_at"`
	CreatedAt time.Time  `gorm:"column:created_at;index"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
}

func (pollModel) TableName() string {
	return "polls"
}

func pollModelFromEntity(poll entities.Poll) (pollModel, error) {
	options, err := json.Marshal(poll.Options)
	if err != nil {
		return pollModel{}, err
	}
	return pollModel{
		ID:        strings.TrimSpace(poll.PollID),
		Question:  poll.Question,
		Options:   options,
		AuthorID:  strings.TrimSpace(poll.AuthorID),
		ClosesAt:  poll.ClosesAt,
		CreatedAt: poll.CreatedAt.UTC(),
		UpdatedAt: poll.UpdatedAt.UTC(),
	}, nil
}

func (m pollModel) toEntity() (entities.Poll, error) {
	var options []string
	if len(m.Options) > 0 {
		if err := json.Unmarshal(m.Options, &options); err != nil {
			return entities.Poll{}, err
		}
	}
	return entities.Poll{
		PollID:    m.ID,
		Question:  m.Question,
		Options:   options,
		AuthorID:  m.AuthorID,
		ClosesAt:  m.ClosesAt,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}, nil
}

type boardOutboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (boardOutboxModel) TableName() string {
	return "board_outbox"
}

// voteSummaryRow and voteRow are read-only views over tables owned by the
// voting service.
type voteSummaryRow struct {
	EntityType string `gorm:"column:entity_type"`
	EntityID   string `gorm:"column:entity_id"`
	Upvotes    int    `gorm:"column:upvotes"`
	Downvotes  int    `gorm:"column:downvotes"`
}

func (voteSummaryRow) TableName() string {
	return "vote_summaries"
}

type voteRow struct {
	EntityType string `gorm:"column:entity_type"`
	EntityID   string `gorm:"column:entity_id"`
	UserID     string `gorm:"column:user_id"`
	VoteType   string `gorm:"column:vote_type"`
}

func (voteRow) TableName() string {
	return "votes"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.BoardRepository = (*Repository)(nil)
var _ ports.VoteStateReader = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
