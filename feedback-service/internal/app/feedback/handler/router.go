package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"feedbackai/feedback-service/internal/app/feedback/config"
	"feedbackai/pkg/logger"
	"feedbackai/pkg/metrics"
)

const serviceName = "feedback-service"

func SetupRoutes(feedbackHandler *FeedbackHandler, corsCfg config.CORSConfig) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())

	router.Use(logger.GinLoggerMiddleware())

	router.Use(metrics.GinPrometheusMiddleware(serviceName))

	router.Use(cors.New(corsConfig(corsCfg)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	feedbacks := router.Group("/feedbacks")
	{
		feedbacks.POST("", feedbackHandler.CreateFeedback)
		feedbacks.GET("", feedbackHandler.ListFeedbacks)
		feedbacks.GET("/analytics", feedbackHandler.GetAnalytics)
		feedbacks.GET("/:id", feedbackHandler.GetFeedback)
		feedbacks.PATCH("/:id", feedbackHandler.UpdateFeedback)
		feedbacks.PUT("/:id", feedbackHandler.UpdateFeedback)
		feedbacks.DELETE("/:id", feedbackHandler.DeleteFeedback)
	}

	return router
}

// corsConfig: пустой список или "*" разрешают любой origin
func corsConfig(cfg config.CORSConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", logger.RequestIDHeader},
		ExposeHeaders:    []string{logger.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			c.AllowAllOrigins = true
			c.AllowCredentials = false
			return c
		}
		origins = append(origins, origin)
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
		return c
	}

	c.AllowOrigins = origins
	return c
}
