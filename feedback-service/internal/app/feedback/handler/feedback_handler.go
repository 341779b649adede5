package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"feedbackai/feedback-service/internal/app/feedback/entity"
	"feedbackai/feedback-service/internal/app/feedback/service"
	"feedbackai/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type FeedbackServiceInterface interface {
	SubmitFeedback(ctx context.Context, rating int, review string) (*entity.Feedback, error)
	GetAnalytics(ctx context.Context) (*entity.AnalyticsResponse, error)
	GetFeedback(ctx context.Context, id string) (*entity.Feedback, error)
	ListFeedbacks(ctx context.Context, filter entity.FeedbackFilter) ([]entity.Feedback, error)
	UpdateFeedback(ctx context.Context, id string, req *entity.UpdateFeedbackRequest) (*entity.Feedback, error)
	DeleteFeedback(ctx context.Context, id string) error
}

type FeedbackHandler struct {
	feedbackService FeedbackServiceInterface
	validator       *validator.Validate
}

func NewFeedbackHandler(feedbackService FeedbackServiceInterface) *FeedbackHandler {
	v := validator.New()
	// В ошибках используем имена полей из JSON
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	return &FeedbackHandler{
		feedbackService: feedbackService,
		validator:       v,
	}
}

func (h *FeedbackHandler) CreateFeedback(c *gin.Context) {
	var req entity.CreateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}
	req.Review = strings.TrimSpace(req.Review)

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, validationResponse(fieldErrors(err)))
		return
	}

	feedback, err := h.feedbackService.SubmitFeedback(c.Request.Context(), req.Rating, req.Review)
	if err != nil {
		h.respondError(c, err, "Failed to submit feedback")
		return
	}

	c.JSON(http.StatusCreated, entity.NewFeedbackResponse(feedback))
}

func (h *FeedbackHandler) ListFeedbacks(c *gin.Context) {
	filter := entity.FeedbackFilter{Search: c.Query("search")}

	if raw := c.Query("rating"); raw != "" {
		rating, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, validationResponse(map[string]string{"rating": "rating must be an integer"}))
			return
		}
		filter.Rating = &rating
	}

	feedbacks, err := h.feedbackService.ListFeedbacks(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err, "Failed to list feedbacks")
		return
	}

	c.JSON(http.StatusOK, entity.NewFeedbackListResponse(feedbacks))
}

func (h *FeedbackHandler) GetFeedback(c *gin.Context) {
	feedback, err := h.feedbackService.GetFeedback(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to get feedback")
		return
	}

	c.JSON(http.StatusOK, entity.NewFeedbackResponse(feedback))
}

// UpdateFeedback обслуживает и PUT, и PATCH: меняются только переданные rating и review
func (h *FeedbackHandler) UpdateFeedback(c *gin.Context) {
	var req entity.UpdateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}
	if req.Review != nil {
		trimmed := strings.TrimSpace(*req.Review)
		req.Review = &trimmed
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, validationResponse(fieldErrors(err)))
		return
	}

	feedback, err := h.feedbackService.UpdateFeedback(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.respondError(c, err, "Failed to update feedback")
		return
	}

	c.JSON(http.StatusOK, entity.NewFeedbackResponse(feedback))
}

func (h *FeedbackHandler) DeleteFeedback(c *gin.Context) {
	if err := h.feedbackService.DeleteFeedback(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, "Failed to delete feedback")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *FeedbackHandler) GetAnalytics(c *gin.Context) {
	analytics, err := h.feedbackService.GetAnalytics(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to get analytics")
		return
	}

	c.JSON(http.StatusOK, analytics)
}

// respondError переводит ошибки сервиса в HTTP статусы
// Подробности 5xx пишутся в лог, клиент получает общее сообщение
func (h *FeedbackHandler) respondError(c *gin.Context, err error, message string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, validationResponse(verr.Fields))
	case errors.Is(err, service.ErrFeedbackNotFound):
		c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Feedback not found"})
	case errors.Is(err, service.ErrGenerationFailed), errors.Is(err, service.ErrMalformedCompletion):
		logger.Error().Err(err).Str("path", c.FullPath()).Msg(message)
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{
			Error:   message,
			Message: "AI service is unavailable, please try again later",
		})
	default:
		logger.Error().Err(err).Str("path", c.FullPath()).Msg(message)
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: message})
	}
}

// respondBindError: поле неверного типа отдается как ошибка валидации поля,
// остальные ошибки разбора - как неверное тело запроса
func (h *FeedbackHandler) respondBindError(c *gin.Context, err error) {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		c.JSON(http.StatusBadRequest, validationResponse(map[string]string{typeErr.Field: typeMessage(typeErr)}))
		return
	}
	c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
}

func typeMessage(typeErr *json.UnmarshalTypeError) string {
	if typeErr.Field == "rating" {
		return "rating must be an integer between 1 and 5"
	}
	return typeErr.Field + " must be a " + typeErr.Type.Kind().String()
}

func validationResponse(fields map[string]string) entity.ErrorResponse {
	return entity.ErrorResponse{Error: service.ErrValidation.Error(), Fields: fields}
}

func fieldErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return map[string]string{"body": "invalid request"}
	}

	fields := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch {
	case fe.Field() == "rating":
		return "rating must be between 1 and 5"
	case fe.Tag() == "required", fe.Tag() == "min":
		return fe.Field() + " must not be empty"
	default:
		return fe.Field() + " is " + fe.Tag()
	}
}
