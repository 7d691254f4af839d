package handlers

import (
	"strconv"
	"strings"

	"github.com/craftbay/internal/http/response"
	"github.com/craftbay/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListNotifications 查询通知列表
func (h *Handler) ListNotifications(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.NotificationListFilter{
		Page:       page,
		PageSize:   pageSize,
		Type:       strings.TrimSpace(c.Query("type")),
		OnlyUnread: c.Query("only_unread") == "true",
	}
	if raw := strings.TrimSpace(c.Query("user_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.UserID = uint(parsed)
		}
	}

	notifications, total, err := h.NotificationService.ListNotifications(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "通知查询失败", err)
		return
	}
	response.SuccessWithPage(c, notifications, response.NewPagination(page, pageSize, total))
}

// MarkNotificationRead 标记通知已读
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "通知ID非法")
		return
	}
	if err := h.NotificationService.MarkRead(id); err != nil {
		respondError(c, response.CodeInternal, "标记已读失败", err)
		return
	}
	response.Success(c, nil)
}
