package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"constitution-gpt/internal/bootstrap"
	"constitution-gpt/internal/model"
	"constitution-gpt/internal/transport/http/handler"
	"constitution-gpt/internal/transport/http/middleware"
)

// Handlers groups the endpoint handlers mounted by RegisterRoutes. Health is
// optional.
type Handlers struct {
	Auth        *handler.AuthHandler
	Chat        *handler.ChatHandler
	Topic       *handler.TopicHandler
	Lawyer      *handler.LawyerHandler
	Message     *handler.MessageHandler
	Appointment *handler.AppointmentHandler
	Health      *handler.HealthHandler
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	cfg := app.Config
	gin.SetMode(cfg.App.GinMode)
	router := gin.New()
	router.Use(
		middleware.RequestLogger(app.Logger),
		middleware.Recovery(app.Logger),
		middleware.CORS(cfg.HTTP.AllowedOrigins),
		middleware.RateLimit(cfg.HTTP.RateLimitPerWindow, time.Duration(cfg.HTTP.RateLimitWindowSecond)*time.Second, app.Logger),
	)

	RegisterRoutes(router, Handlers{
		Auth:        handler.NewAuthHandler(app.Auth),
		Chat:        handler.NewChatHandler(app.Chat),
		Topic:       handler.NewTopicHandler(app.Topics, app.RAG, cfg.Storage.MaxUploadBytes),
		Lawyer:      handler.NewLawyerHandler(app.Lawyers, app.Reviews),
		Message:     handler.NewMessageHandler(app.Messages, cfg.Storage.MaxUploadBytes),
		Appointment: handler.NewAppointmentHandler(app.Appointments),
		Health:      handler.NewHealthHandler(app),
	}, app.Auth)
	return router
}

func RegisterRoutes(router *gin.Engine, h Handlers, verifier middleware.TokenVerifier) {
	if h.Health != nil {
		router.GET("/healthz", h.Health.Check)
	}

	requireAuth := middleware.AuthJWT(verifier)
	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.POST("/logout", h.Auth.Logout)
	authGroup.GET("/me", requireAuth, h.Auth.Me)
	authGroup.POST("/change-password", requireAuth, h.Auth.ChangePassword)

	chatGroup := v1.Group("/chat", requireAuth)
	chatGroup.POST("", h.Chat.Send)
	chatGroup.GET("/history", h.Chat.History)
	chatGroup.GET("/history/:id", h.Chat.Get)
	chatGroup.DELETE("/history/:id", h.Chat.Delete)

	topicGroup := v1.Group("/topics")
	topicGroup.GET("", h.Topic.List)
	topicGroup.GET("/search", h.Topic.Search)
	topicGroup.GET("/search/:query", h.Topic.Search)
	topicGroup.GET("/:id", h.Topic.Get)

	lawyerGroup := v1.Group("/lawyers")
	lawyerGroup.GET("", h.Lawyer.List)
	lawyerGroup.GET("/:id", h.Lawyer.Get)
	lawyerGroup.GET("/:id/reviews", h.Lawyer.Reviews)
	lawyerGroup.POST("/:id/reviews", requireAuth, h.Lawyer.CreateReview)

	v1.GET("/inbox", requireAuth, h.Message.Inbox)
	messageGroup := v1.Group("/messages", requireAuth)
	messageGroup.POST("", h.Message.Send)
	messageGroup.GET("/:id", h.Message.Conversation)
	messageGroup.GET("/:id/attachment", h.Message.Attachment)

	appointmentGroup := v1.Group("/appointments", requireAuth)
	appointmentGroup.POST("", h.Appointment.Book)
	appointmentGroup.GET("", h.Appointment.List)
	appointmentGroup.PATCH("/:id/status", h.Appointment.UpdateStatus)

	editors := v1.Group("/admin", requireAuth, middleware.RequireRoles(model.RoleAdmin, model.RoleModerator))
	editors.POST("/topics", h.Topic.Upsert)
	editors.POST("/topics/pdf", h.Topic.ImportPDF)

	admin := v1.Group("/admin", requireAuth, middleware.RequireRoles(model.RoleAdmin))
	admin.POST("/reindex", h.Topic.Reindex)
	admin.GET("/index", h.Topic.IndexStats)
	admin.GET("/lawyers", h.Lawyer.AdminList)
	admin.POST("/verify", h.Lawyer.Verify)
}
