package entity

import (
	"time"
)

const (
	MinRating = 1
	MaxRating = 5

	// RecentFeedbackLimit - сколько последних отзывов отдаёт аналитика
	RecentFeedbackLimit = 10
)

// Feedback - отзыв пользователя с ответом модели
type Feedback struct {
	ID        string     `json:"id" bson:"_id"`
	Rating    int        `json:"rating" bson:"rating"` // Оценка от 1 до 5
	Review    string     `json:"review" bson:"review"`
	AI        *AIContent `json:"ai,omitempty" bson:"ai,omitempty"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

// AIContent - результат генерации целиком
// Отзыв либо без него (генерация не выполнялась), либо со всеми тремя полями
type AIContent struct {
	Response           string `json:"response" bson:"response"`
	Summary            string `json:"summary" bson:"summary"`
	RecommendedActions string `json:"recommended_actions" bson:"recommended_actions"`
}

// FeedbackFilter - параметры выборки списка отзывов
// Rating == nil означает все оценки, Search ищет по тексту отзыва и AI summary без учёта регистра
type FeedbackFilter struct {
	Rating *int
	Search string
	Limit  int
}

// FeedbackEvent публикуется в Kafka после сохранения отзыва
type FeedbackEvent struct {
	EventType  string    `json:"event_type"` // FEEDBACK_CREATED
	FeedbackID string    `json:"feedback_id"`
	Rating     int       `json:"rating"`
	Summary    string    `json:"summary"`
	Timestamp  time.Time `json:"timestamp"`
}

const EventFeedbackCreated = "FEEDBACK_CREATED"
