package handlers

import (
	"strconv"
	"strings"

	"github.com/craftbay/internal/logger"
	"github.com/craftbay/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 身份认证在网关侧完成，这里只消费网关注入的操作者头
const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

func actorFromContext(c *gin.Context) service.ActorContext {
	actor := service.ActorContext{
		Role: strings.ToLower(strings.TrimSpace(c.GetHeader(headerActorRole))),
	}
	raw := strings.TrimSpace(c.GetHeader(headerActorID))
	if raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			actor.ActorID = uint(parsed)
		}
	}
	return actor
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		return 0, false
	}
	return uint(parsed), true
}

func normalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
