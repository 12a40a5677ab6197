package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"constitution-gpt/internal/bootstrap"
	"constitution-gpt/internal/platform/database"
	"constitution-gpt/internal/platform/rabbitmq"
	"constitution-gpt/internal/platform/redis"
)

type HealthHandler struct {
	app *bootstrap.App
}

type dependencyStatus struct {
	OK       bool   `json:"ok"`
	Disabled bool   `json:"disabled,omitempty"`
	Message  string `json:"message,omitempty"`
}

func NewHealthHandler(app *bootstrap.App) *HealthHandler {
	return &HealthHandler{app: app}
}

// Check reports 503 when any enabled dependency is down. The semantic index
// is informational only since retrieval degrades to keyword matching.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbStatus := h.checkDatabase(ctx)
	redisStatus := h.checkRedis(ctx)
	rmqStatus := h.checkRabbitMQ()

	allOK := dbStatus.OK && redisStatus.OK && rmqStatus.OK
	statusCode := http.StatusOK
	if !allOK {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"app":        h.app.Config.App.Name,
		"env":        h.app.Config.App.Env,
		"uptime_sec": int(time.Since(h.app.StartedAt).Seconds()),
		"dependencies": gin.H{
			"database": dbStatus,
			"redis":    redisStatus,
			"rabbitmq": rmqStatus,
		},
		"index": h.app.RAG.Stats(),
	})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) dependencyStatus {
	if err := database.Ping(ctx, h.app.DB, time.Second); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkRedis(ctx context.Context) dependencyStatus {
	if h.app.Redis == nil {
		return dependencyStatus{OK: true, Disabled: true}
	}
	if err := redis.Ping(ctx, h.app.Redis, time.Second); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkRabbitMQ() dependencyStatus {
	if !h.app.Config.RabbitMQ.Enabled {
		return dependencyStatus{OK: true, Disabled: true}
	}
	if !rabbitmq.Healthy(h.app.MQConn) {
		return dependencyStatus{OK: false, Message: "connection closed"}
	}
	return dependencyStatus{OK: true}
}
