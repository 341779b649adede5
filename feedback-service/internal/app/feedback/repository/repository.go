package repository

import (
	"context"
	"errors"

	"feedbackai/feedback-service/internal/app/feedback/entity"
)

const (
	serviceName   = "feedback-service"
	feedbackTable = "feedbacks"
)

var (
	// Стандартные ошибки репозитория для обработки в service layer
	ErrFeedbackNotFound = errors.New("feedback not found")
)

// FeedbackRepository - хранилище отзывов
// Реализации: MongoDB (по умолчанию) и PostgreSQL через GORM
type FeedbackRepository interface {
	// Create присваивает ID, created_at и updated_at и сохраняет отзыв
	Create(ctx context.Context, feedback *entity.Feedback) error
	GetByID(ctx context.Context, id string) (*entity.Feedback, error)
	// List возвращает отзывы от новых к старым
	List(ctx context.Context, filter entity.FeedbackFilter) ([]entity.Feedback, error)
	// Update сохраняет rating и review и обновляет updated_at
	Update(ctx context.Context, feedback *entity.Feedback) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	CountByRating(ctx context.Context, rating int) (int64, error)
	// AverageRating возвращает 0 для пустого хранилища
	AverageRating(ctx context.Context) (float64, error)
}
