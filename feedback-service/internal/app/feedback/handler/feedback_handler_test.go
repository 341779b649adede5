package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"feedbackai/feedback-service/internal/app/feedback/config"
	"feedbackai/feedback-service/internal/app/feedback/entity"
	"feedbackai/feedback-service/internal/app/feedback/repository"
	"feedbackai/feedback-service/internal/app/feedback/repository/mocks"
	"feedbackai/feedback-service/internal/app/feedback/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router    *gin.Engine
	repo      *mocks.MockFeedbackRepository
	completer *mocks.MockTextCompleter
	publisher *mocks.MockMessagePublisher
}

func setupTestEnv() *testEnv {
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		repo:      new(mocks.MockFeedbackRepository),
		completer: new(mocks.MockTextCompleter),
		publisher: &mocks.MockMessagePublisher{Messages: make([][]byte, 0)},
	}
	feedbackService := service.NewFeedbackService(env.repo, env.completer, env.publisher, false)
	env.router = SetupRoutes(NewFeedbackHandler(feedbackService), config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}})
	return env
}

func (env *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func storedFeedback(id string, rating int) *entity.Feedback {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return &entity.Feedback{
		ID:     id,
		Rating: rating,
		Review: "Nice",
		AI: &entity.AIContent{
			Response:           "Thanks!",
			Summary:            "Positive.",
			RecommendedActions: "- Keep going",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateFeedbackHandler_Success(t *testing.T) {
	env := setupTestEnv()

	env.completer.On("Complete", mock.Anything, service.BuildPrompt(5, "Great service!"), service.DefaultGenerationParams).
		Return("USER_RESPONSE:\nThanks so much!\n\nSUMMARY:\nHappy customer.\n\nRECOMMENDED_ACTIONS:\n- Keep it up", nil)
	env.repo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Feedback")).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*entity.Feedback).ID = "fb-1"
	})
	env.publisher.On("PublishMessage", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	w := env.do(http.MethodPost, "/feedbacks", map[string]any{"rating": 5, "review": "  Great service!  "})

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp entity.FeedbackResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "fb-1", resp.ID)
	assert.Equal(t, "Great service!", resp.Review)
	assert.Equal(t, "Thanks so much!", resp.AIResponse)
	assert.Equal(t, "Happy customer.", resp.AISummary)
	assert.Equal(t, "- Keep it up", resp.AIRecommendedActions)
}

func TestCreateFeedbackHandler_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		fields []string
	}{
		{name: "rating too high", body: map[string]any{"rating": 6, "review": "ok"}, fields: []string{"rating"}},
		{name: "rating missing", body: map[string]any{"review": "ok"}, fields: []string{"rating"}},
		{name: "blank review", body: map[string]any{"rating": 3, "review": "   "}, fields: []string{"review"}},
		{name: "both invalid", body: map[string]any{"rating": 0}, fields: []string{"rating", "review"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv()

			w := env.do(http.MethodPost, "/feedbacks", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp entity.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "validation failed", resp.Error)
			assert.Len(t, resp.Fields, len(tt.fields))
			for _, field := range tt.fields {
				assert.Contains(t, resp.Fields, field)
			}
			env.completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCreateFeedbackHandler_InvalidBody(t *testing.T) {
	env := setupTestEnv()

	w := env.do(http.MethodPost, "/feedbacks", `{"rating": "five"`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateFeedbackHandler_WrongFieldType(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "rating as string", body: `{"rating": "5", "review": "ok"}`, field: "rating"},
		{name: "fractional rating", body: `{"rating": 4.5, "review": "ok"}`, field: "rating"},
		{name: "review as number", body: `{"rating": 4, "review": 12}`, field: "review"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv()

			w := env.do(http.MethodPost, "/feedbacks", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp entity.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "validation failed", resp.Error)
			assert.Contains(t, resp.Fields, tt.field)
			env.completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateFeedbackHandler_WrongFieldType(t *testing.T) {
	env := setupTestEnv()

	w := env.do(http.MethodPatch, "/feedbacks/fb-1", `{"rating": "two"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"fields":{"rating"`)
	env.repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCreateFeedbackHandler_GenerationFailure(t *testing.T) {
	env := setupTestEnv()

	env.completer.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("quota exceeded"))

	w := env.do(http.MethodPost, "/feedbacks", map[string]any{"rating": 2, "review": "Slow"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "quota")
	env.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestListFeedbacksHandler(t *testing.T) {
	env := setupTestEnv()
	rating := 4

	env.repo.On("List", mock.Anything, entity.FeedbackFilter{Rating: &rating, Search: "nice"}).
		Return([]entity.Feedback{*storedFeedback("a", 4), *storedFeedback("b", 4)}, nil)

	w := env.do(http.MethodGet, "/feedbacks?rating=4&search=nice", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp entity.FeedbackListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "a", resp.Feedbacks[0].ID)
}

func TestListFeedbacksHandler_InvalidRating(t *testing.T) {
	env := setupTestEnv()

	w := env.do(http.MethodGet, "/feedbacks?rating=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/feedbacks?rating=7", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/feedbacks?rating=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestGetFeedbackHandler(t *testing.T) {
	env := setupTestEnv()

	env.repo.On("GetByID", mock.Anything, "fb-1").Return(storedFeedback("fb-1", 5), nil)
	env.repo.On("GetByID", mock.Anything, "missing").Return(nil, repository.ErrFeedbackNotFound)

	w := env.do(http.MethodGet, "/feedbacks/fb-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ai_recommended_actions":"- Keep going"`)

	w = env.do(http.MethodGet, "/feedbacks/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateFeedbackHandler_IgnoresAIFields(t *testing.T) {
	for _, method := range []string{http.MethodPatch, http.MethodPut} {
		t.Run(method, func(t *testing.T) {
			env := setupTestEnv()

			env.repo.On("GetByID", mock.Anything, "fb-1").Return(storedFeedback("fb-1", 5), nil)
			env.repo.On("Update", mock.Anything, mock.AnythingOfType("*entity.Feedback")).Return(nil)

			w := env.do(method, "/feedbacks/fb-1", map[string]any{
				"rating":     2,
				"ai_summary": "hacked",
			})

			assert.Equal(t, http.StatusOK, w.Code)
			var resp entity.FeedbackResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, 2, resp.Rating)
			assert.Equal(t, "Nice", resp.Review)
			assert.Equal(t, "Positive.", resp.AISummary)
		})
	}
}

func TestUpdateFeedbackHandler_Validation(t *testing.T) {
	env := setupTestEnv()

	w := env.do(http.MethodPatch, "/feedbacks/fb-1", map[string]any{"review": "  "})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"review"`)
	env.repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestUpdateFeedbackHandler_NotFound(t *testing.T) {
	env := setupTestEnv()

	env.repo.On("GetByID", mock.Anything, "missing").Return(nil, repository.ErrFeedbackNotFound)

	w := env.do(http.MethodPatch, "/feedbacks/missing", map[string]any{"rating": 3})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteFeedbackHandler(t *testing.T) {
	env := setupTestEnv()

	env.repo.On("Delete", mock.Anything, "fb-1").Return(nil)
	env.repo.On("Delete", mock.Anything, "missing").Return(repository.ErrFeedbackNotFound)

	w := env.do(http.MethodDelete, "/feedbacks/fb-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = env.do(http.MethodDelete, "/feedbacks/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetAnalyticsHandler(t *testing.T) {
	env := setupTestEnv()

	env.repo.On("Count", mock.Anything).Return(int64(6), nil)
	for rating, count := range map[int]int64{1: 1, 2: 1, 3: 1, 4: 1, 5: 2} {
		env.repo.On("CountByRating", mock.Anything, rating).Return(count, nil)
	}
	env.repo.On("AverageRating", mock.Anything).Return(20.0/6.0, nil)
	env.repo.On("List", mock.Anything, entity.FeedbackFilter{Limit: entity.RecentFeedbackLimit}).
		Return([]entity.Feedback{*storedFeedback("a", 5)}, nil)

	w := env.do(http.MethodGet, "/feedbacks/analytics", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 6.0, resp["total_feedbacks"])
	assert.Equal(t, 3.33, resp["average_rating"])
	distribution := resp["rating_distribution"].(map[string]any)
	assert.Equal(t, 2.0, distribution["star_5"])
	assert.Equal(t, 1.0, distribution["star_1"])
	recent := resp["recent_feedbacks"].([]any)
	require.Len(t, recent, 1)
	assert.NotContains(t, recent[0], "ai_recommended_actions")
	env.repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestGetAnalyticsHandler_StoreError(t *testing.T) {
	env := setupTestEnv()

	env.repo.On("Count", mock.Anything).Return(int64(0), errors.New("connection refused"))

	w := env.do(http.MethodGet, "/feedbacks/analytics", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestHealthAndCORS(t *testing.T) {
	env := setupTestEnv()

	w := env.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), serviceName)

	req, _ := http.NewRequest(http.MethodOptions, "/feedbacks", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCorsConfig_Wildcard(t *testing.T) {
	c := corsConfig(config.CORSConfig{AllowedOrigins: []string{"*"}})
	assert.True(t, c.AllowAllOrigins)
	assert.Empty(t, c.AllowOrigins)

	c = corsConfig(config.CORSConfig{})
	assert.True(t, c.AllowAllOrigins)

	c = corsConfig(config.CORSConfig{AllowedOrigins: []string{"https://a.example"}})
	assert.False(t, c.AllowAllOrigins)
	assert.Equal(t, []string{"https://a.example"}, c.AllowOrigins)
}
