package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"feedbackai/feedback-service/internal/app/feedback/entity"
	"feedbackai/pkg/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// feedbackRecord - строка таблицы feedbacks
// AI поля хранятся плоско, AIGenerated отмечает наличие результата генерации
type feedbackRecord struct {
	ID                   string    `gorm:"column:id;type:uuid;primaryKey"`
	Rating               int       `gorm:"column:rating;not null;index"`
	Review               string    `gorm:"column:review;type:text;not null"`
	AIGenerated          bool      `gorm:"column:ai_generated;not null"`
	AIResponse           string    `gorm:"column:ai_response;type:text"`
	AISummary            string    `gorm:"column:ai_summary;type:text"`
	AIRecommendedActions string    `gorm:"column:ai_recommended_actions;type:text"`
	CreatedAt            time.Time `gorm:"column:created_at;not null;index"`
	UpdatedAt            time.Time `gorm:"column:updated_at;not null"`
}

func (feedbackRecord) TableName() string {
	return feedbackTable
}

func toRecord(f *entity.Feedback) *feedbackRecord {
	rec := &feedbackRecord{
		ID:        f.ID,
		Rating:    f.Rating,
		Review:    f.Review,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
	if f.AI != nil {
		rec.AIGenerated = true
		rec.AIResponse = f.AI.Response
		rec.AISummary = f.AI.Summary
		rec.AIRecommendedActions = f.AI.RecommendedActions
	}
	return rec
}

func (rec *feedbackRecord) toEntity() entity.Feedback {
	f := entity.Feedback{
		ID:        rec.ID,
		Rating:    rec.Rating,
		Review:    rec.Review,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if rec.AIGenerated {
		f.AI = &entity.AIContent{
			Response:           rec.AIResponse,
			Summary:            rec.AISummary,
			RecommendedActions: rec.AIRecommendedActions,
		}
	}
	return f
}

var _ FeedbackRepository = (*PostgresFeedbackRepository)(nil)

type PostgresFeedbackRepository struct {
	db *gorm.DB
}

func NewPostgresFeedbackRepository(db *gorm.DB) *PostgresFeedbackRepository {
	return &PostgresFeedbackRepository{db: db}
}

// Migrate создаёт или дополняет таблицу feedbacks
func (r *PostgresFeedbackRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&feedbackRecord{}); err != nil {
		return fmt.Errorf("failed to migrate feedbacks table: %w", err)
	}
	return nil
}

func (r *PostgresFeedbackRepository) Create(ctx context.Context, feedback *entity.Feedback) (err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, feedbackTable)
	defer func() { timer.Done(err) }()

	// PostgreSQL хранит время с точностью до микросекунд
	now := time.Now().UTC().Truncate(time.Microsecond)
	feedback.ID = uuid.NewString()
	feedback.CreatedAt = now
	feedback.UpdatedAt = now

	if err = r.db.WithContext(ctx).Create(toRecord(feedback)).Error; err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}

func (r *PostgresFeedbackRepository) GetByID(ctx context.Context, id string) (_ *entity.Feedback, err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, feedbackTable)
	defer func() { timer.Done(err) }()

	if _, parseErr := uuid.Parse(id); parseErr != nil {
		return nil, ErrFeedbackNotFound
	}

	var rec feedbackRecord
	err = r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFeedbackNotFound
		}
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}

	feedback := rec.toEntity()
	return &feedback, nil
}

func (r *PostgresFeedbackRepository) List(ctx context.Context, filter entity.FeedbackFilter) (_ []entity.Feedback, err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, feedbackTable)
	defer func() { timer.Done(err) }()

	query := r.db.WithContext(ctx).Model(&feedbackRecord{})
	if filter.Rating != nil {
		query = query.Where("rating = ?", *filter.Rating)
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		query = query.Where("review ILIKE ? OR ai_summary ILIKE ?", pattern, pattern)
	}
	query = query.Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var records []feedbackRecord
	if err = query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to find feedbacks: %w", err)
	}

	feedbacks := make([]entity.Feedback, 0, len(records))
	for i := range records {
		feedbacks = append(feedbacks, records[i].toEntity())
	}
	return feedbacks, nil
}

func (r *PostgresFeedbackRepository) Update(ctx context.Context, feedback *entity.Feedback) (err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpUpdate, feedbackTable)
	defer func() { timer.Done(err) }()

	feedback.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

	result := r.db.WithContext(ctx).
		Model(&feedbackRecord{}).
		Where("id = ?", feedback.ID).
		Updates(map[string]interface{}{
			"rating":     feedback.Rating,
			"review":     feedback.Review,
			"updated_at": feedback.UpdatedAt,
		})
	if result.Error != nil {
		err = result.Error
		return fmt.Errorf("failed to update feedback: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrFeedbackNotFound
	}
	return nil
}

func (r *PostgresFeedbackRepository) Delete(ctx context.Context, id string) (err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpDelete, feedbackTable)
	defer func() { timer.Done(err) }()

	if _, parseErr := uuid.Parse(id); parseErr != nil {
		return ErrFeedbackNotFound
	}

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&feedbackRecord{})
	if result.Error != nil {
		err = result.Error
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrFeedbackNotFound
	}
	return nil
}

func (r *PostgresFeedbackRepository) Count(ctx context.Context) (int64, error) {
	return r.count(r.db.WithContext(ctx).Model(&feedbackRecord{}))
}

func (r *PostgresFeedbackRepository) CountByRating(ctx context.Context, rating int) (int64, error) {
	return r.count(r.db.WithContext(ctx).Model(&feedbackRecord{}).Where("rating = ?", rating))
}

func (r *PostgresFeedbackRepository) count(query *gorm.DB) (n int64, err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, feedbackTable)
	defer func() { timer.Done(err) }()

	if err = query.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count feedbacks: %w", err)
	}
	return n, nil
}

func (r *PostgresFeedbackRepository) AverageRating(ctx context.Context) (avg float64, err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpAggregate, feedbackTable)
	defer func() { timer.Done(err) }()

	err = r.db.WithContext(ctx).
		Model(&feedbackRecord{}).
		Select("COALESCE(AVG(rating), 0)").
		Scan(&avg).Error
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate average rating: %w", err)
	}
	return avg, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
