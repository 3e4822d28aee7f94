package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sekolahlab/examgate-backend/internal/config"
	"github.com/sekolahlab/examgate-backend/internal/handler"
	"github.com/sekolahlab/examgate-backend/internal/middleware"
	"github.com/sekolahlab/examgate-backend/internal/response"
	"github.com/sekolahlab/examgate-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Attempt *handler.AttemptHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for mutation endpoints (30 requests per minute per IP):
	// flaky exam clients retry aggressively.
	mutationLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── Student Group (JWT) ───────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(authService))
	{
		studentAPI.POST("/exams/:exam_id/start", mutationLimiter.Middleware(), handlers.Attempt.StartExam)
		studentAPI.POST("/attempts/:attempt_id/submit", mutationLimiter.Middleware(), handlers.Attempt.SubmitAttempt)
		studentAPI.GET("/attempts/:attempt_id/state", handlers.Attempt.GetAttemptState)
		studentAPI.GET("/exams/:exam_id/result", handlers.Attempt.GetResult)
	}

	return router
}
