package entity

import "time"

// CreateFeedbackRequest - запрос на создание отзыва
// AI поля и даты отсутствуют: они заполняются сервисом
type CreateFeedbackRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Review string `json:"review" validate:"required"`
}

// UpdateFeedbackRequest - частичное обновление отзыва
// Указатели позволяют отличить "не передано" от нулевого значения
type UpdateFeedbackRequest struct {
	Rating *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Review *string `json:"review" validate:"omitempty,min=1"`
}

// FeedbackResponse - отзыв в формате API
type FeedbackResponse struct {
	ID                   string    `json:"id"`
	Rating               int       `json:"rating"`
	Review               string    `json:"review"`
	AIResponse           string    `json:"ai_response"`
	AISummary            string    `json:"ai_summary"`
	AIRecommendedActions string    `json:"ai_recommended_actions"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// RecentFeedbackResponse - отзыв в аналитике, без рекомендаций
type RecentFeedbackResponse struct {
	ID         string    `json:"id"`
	Rating     int       `json:"rating"`
	Review     string    `json:"review"`
	AIResponse string    `json:"ai_response"`
	AISummary  string    `json:"ai_summary"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type FeedbackListResponse struct {
	Feedbacks []FeedbackResponse `json:"feedbacks"`
	Total     int                `json:"total"`
}

type RatingDistribution struct {
	Star1 int64 `json:"star_1"`
	Star2 int64 `json:"star_2"`
	Star3 int64 `json:"star_3"`
	Star4 int64 `json:"star_4"`
	Star5 int64 `json:"star_5"`
}

// Set записывает количество для оценки; оценки вне 1..5 игнорируются
func (d *RatingDistribution) Set(rating int, count int64) {
	switch rating {
	case 1:
		d.Star1 = count
	case 2:
		d.Star2 = count
	case 3:
		d.Star3 = count
	case 4:
		d.Star4 = count
	case 5:
		d.Star5 = count
	}
}

type AnalyticsResponse struct {
	TotalFeedbacks     int64                    `json:"total_feedbacks"`
	RatingDistribution RatingDistribution       `json:"rating_distribution"`
	AverageRating      float64                  `json:"average_rating"`
	RecentFeedbacks    []RecentFeedbackResponse `json:"recent_feedbacks"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// NewFeedbackResponse разворачивает AIContent в плоские поля API
func NewFeedbackResponse(f *Feedback) FeedbackResponse {
	resp := FeedbackResponse{
		ID:        f.ID,
		Rating:    f.Rating,
		Review:    f.Review,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
	if f.AI != nil {
		resp.AIResponse = f.AI.Response
		resp.AISummary = f.AI.Summary
		resp.AIRecommendedActions = f.AI.RecommendedActions
	}
	return resp
}

func NewRecentFeedbackResponse(f *Feedback) RecentFeedbackResponse {
	resp := RecentFeedbackResponse{
		ID:        f.ID,
		Rating:    f.Rating,
		Review:    f.Review,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
	if f.AI != nil {
		resp.AIResponse = f.AI.Response
		resp.AISummary = f.AI.Summary
	}
	return resp
}

func NewFeedbackListResponse(feedbacks []Feedback) FeedbackListResponse {
	items := make([]FeedbackResponse, 0, len(feedbacks))
	for i := range feedbacks {
		items = append(items, NewFeedbackResponse(&feedbacks[i]))
	}
	return FeedbackListResponse{Feedbacks: items, Total: len(items)}
}
