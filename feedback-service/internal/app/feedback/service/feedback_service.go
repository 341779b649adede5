package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"feedbackai/feedback-service/internal/app/feedback/entity"
	"feedbackai/feedback-service/internal/app/feedback/infrastructure"
	"feedbackai/feedback-service/internal/app/feedback/repository"
	"feedbackai/pkg/logger"
	"feedbackai/pkg/metrics"
)

// FeedbackService обрабатывает бизнес-логику отзывов
// Координирует работу модели, хранилища и Kafka
type FeedbackService struct {
	feedbackRepo  repository.FeedbackRepository
	completion    *CompletionClient
	kafkaProducer infrastructure.MessagePublisher
	strictParsing bool
}

// NewFeedbackService создает новый сервис отзывов с внедрением зависимостей
// strictParsing: ответ модели без любой из трех секций считается ошибкой
func NewFeedbackService(
	feedbackRepo repository.FeedbackRepository,
	completer infrastructure.TextCompleter,
	kafkaProducer infrastructure.MessagePublisher,
	strictParsing bool,
) *FeedbackService {
	return &FeedbackService{
		feedbackRepo:  feedbackRepo,
		completion:    NewCompletionClient(completer),
		kafkaProducer: kafkaProducer,
		strictParsing: strictParsing,
	}
}

// SubmitFeedback создает отзыв с AI контентом
// 1. Проверяет оценку и текст до обращения к модели
// 2. Получает ответ модели и разбирает его на секции
// 3. Сохраняет отзыв и отправляет событие FEEDBACK_CREATED в Kafka
func (s *FeedbackService) SubmitFeedback(ctx context.Context, rating int, review string) (*entity.Feedback, error) {
	if err := validateSubmission(rating, review); err != nil {
		metrics.RecordSubmission(metrics.SubmissionRejected)
		return nil, err
	}

	raw, err := s.completion.Generate(ctx, rating, review)
	if err != nil {
		metrics.RecordSubmission(metrics.SubmissionGenerationFailed)
		logger.Error().Err(err).Int("rating", rating).Msg("AI generation failed")
		return nil, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	parsed := ParseCompletion(raw)
	if missing := parsed.MissingSections(); len(missing) > 0 {
		for _, marker := range missing {
			metrics.RecordMalformedCompletion(marker)
		}
		if s.strictParsing {
			metrics.RecordSubmission(metrics.SubmissionGenerationFailed)
			logger.Error().Strs("missing", missing).Msg("completion rejected: empty sections")
			return nil, fmt.Errorf("%w: %w: %s", ErrSubmissionFailed, ErrMalformedCompletion, strings.Join(missing, ", "))
		}
		logger.Warn().Strs("missing", missing).Msg("completion has empty sections")
	}

	feedback := &entity.Feedback{
		Rating: rating,
		Review: review,
		AI: &entity.AIContent{
			Response:           parsed.UserResponse,
			Summary:            parsed.Summary,
			RecommendedActions: parsed.RecommendedActions,
		},
	}

	if err := s.feedbackRepo.Create(ctx, feedback); err != nil {
		metrics.RecordSubmission(metrics.SubmissionStorageFailed)
		logger.Error().Err(err).Msg("failed to store feedback")
		return nil, fmt.Errorf("%w: failed to create feedback: %w", ErrSubmissionFailed, err)
	}

	metrics.RecordSubmission(metrics.SubmissionCreated)
	metrics.RecordRating(rating)

	event := entity.FeedbackEvent{
		EventType:  entity.EventFeedbackCreated,
		FeedbackID: feedback.ID,
		Rating:     feedback.Rating,
		Summary:    feedback.AI.Summary,
		Timestamp:  time.Now(),
	}

	if err := s.publishFeedbackEvent(ctx, event); err != nil {
		// Отзыв уже сохранен, проблемы с Kafka не критичны
		logger.Warn().Err(err).Str("feedback_id", feedback.ID).Msg("failed to publish feedback created event")
	}

	logger.Info().Str("feedback_id", feedback.ID).Int("rating", rating).Msg("feedback created")
	return feedback, nil
}

// GetAnalytics собирает агрегаты по всем отзывам
// Только чтение, ошибки хранилища возвращаются как есть
func (s *FeedbackService) GetAnalytics(ctx context.Context) (*entity.AnalyticsResponse, error) {
	total, err := s.feedbackRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count feedbacks: %w", err)
	}

	var distribution entity.RatingDistribution
	for rating := entity.MinRating; rating <= entity.MaxRating; rating++ {
		count, err := s.feedbackRepo.CountByRating(ctx, rating)
		if err != nil {
			return nil, fmt.Errorf("failed to count feedbacks with rating %d: %w", rating, err)
		}
		distribution.Set(rating, count)
	}

	average := 0.0
	if total > 0 {
		average, err = s.feedbackRepo.AverageRating(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to compute average rating: %w", err)
		}
	}

	recent, err := s.feedbackRepo.List(ctx, entity.FeedbackFilter{Limit: entity.RecentFeedbackLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to get recent feedbacks: %w", err)
	}

	recentResponses := make([]entity.RecentFeedbackResponse, 0, len(recent))
	for i := range recent {
		recentResponses = append(recentResponses, entity.NewRecentFeedbackResponse(&recent[i]))
	}

	return &entity.AnalyticsResponse{
		TotalFeedbacks:     total,
		RatingDistribution: distribution,
		AverageRating:      roundRating(average),
		RecentFeedbacks:    recentResponses,
	}, nil
}

// GetFeedback получает отзыв по ID
func (s *FeedbackService) GetFeedback(ctx context.Context, id string) (*entity.Feedback, error) {
	feedback, err := s.feedbackRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrFeedbackNotFound) {
			return nil, ErrFeedbackNotFound
		}
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}

	return feedback, nil
}

// ListFeedbacks возвращает отзывы от новых к старым с фильтром по оценке и поиском
func (s *FeedbackService) ListFeedbacks(ctx context.Context, filter entity.FeedbackFilter) ([]entity.Feedback, error) {
	if filter.Rating != nil && !validRating(*filter.Rating) {
		verr := newValidationError()
		verr.add("rating", ratingMessage)
		return nil, verr
	}
	filter.Search = strings.TrimSpace(filter.Search)

	feedbacks, err := s.feedbackRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedbacks: %w", err)
	}

	return feedbacks, nil
}

// UpdateFeedback меняет оценку и/или текст отзыва
// AI контент и даты создания не редактируются
func (s *FeedbackService) UpdateFeedback(ctx context.Context, id string, req *entity.UpdateFeedbackRequest) (*entity.Feedback, error) {
	verr := newValidationError()
	if req.Rating != nil && !validRating(*req.Rating) {
		verr.add("rating", ratingMessage)
	}
	if req.Review != nil && strings.TrimSpace(*req.Review) == "" {
		verr.add("review", reviewMessage)
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	feedback, err := s.GetFeedback(ctx, id)
	if err != nil {
		return nil, err
	}

	// Обновляем только переданные поля
	if req.Rating != nil {
		feedback.Rating = *req.Rating
	}
	if req.Review != nil {
		feedback.Review = strings.TrimSpace(*req.Review)
	}

	if err := s.feedbackRepo.Update(ctx, feedback); err != nil {
		if errors.Is(err, repository.ErrFeedbackNotFound) {
			return nil, ErrFeedbackNotFound
		}
		return nil, fmt.Errorf("failed to update feedback: %w", err)
	}

	return feedback, nil
}

// DeleteFeedback удаляет отзыв
func (s *FeedbackService) DeleteFeedback(ctx context.Context, id string) error {
	if err := s.feedbackRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrFeedbackNotFound) {
			return ErrFeedbackNotFound
		}
		return fmt.Errorf("failed to delete feedback: %w", err)
	}

	logger.Info().Str("feedback_id", id).Msg("feedback deleted")
	return nil
}

// publishFeedbackEvent отправляет событие в Kafka, ключ сообщения - ID отзыва
// Ответ клиенту ждет не дольше publishTimeout
func (s *FeedbackService) publishFeedbackEvent(ctx context.Context, event entity.FeedbackEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return s.kafkaProducer.PublishMessage(ctx, event.FeedbackID, data)
}

const publishTimeout = 3 * time.Second

const (
	ratingMessage = "rating must be between 1 and 5"
	reviewMessage = "review must not be empty"
)

func validRating(rating int) bool {
	return rating >= entity.MinRating && rating <= entity.MaxRating
}

func validateSubmission(rating int, review string) error {
	verr := newValidationError()
	if !validRating(rating) {
		verr.add("rating", ratingMessage)
	}
	if strings.TrimSpace(review) == "" {
		verr.add("review", reviewMessage)
	}
	return verr.orNil()
}

// roundRating округляет до двух знаков по точному двоичному значению,
// точная половина округляется к четному (2.125 -> 2.12)
func roundRating(value float64) float64 {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(value, 'f', 2, 64), 64)
	if err != nil {
		return value
	}
	return rounded
}
