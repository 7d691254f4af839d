package handlers

import (
	"strconv"
	"strings"

	"github.com/craftbay/internal/http/response"
	"github.com/craftbay/internal/models"
	"github.com/craftbay/internal/repository"
	"github.com/craftbay/internal/service"

	"github.com/gin-gonic/gin"
)

// WalletAdjustRequest 管理员余额调整请求
type WalletAdjustRequest struct {
	UserID uint         `json:"user_id" binding:"required"`
	Delta  models.Money `json:"delta" binding:"required"`
	Remark string       `json:"remark"`
}

// GetWalletAccount 查询钱包账户
func (h *Handler) GetWalletAccount(c *gin.Context) {
	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		response.BadRequest(c, "用户ID非法")
		return
	}
	account, err := h.WalletService.GetAccount(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, account)
}

// ListWalletTransactions 查询钱包流水
func (h *Handler) ListWalletTransactions(c *gin.Context) {
	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		response.BadRequest(c, "用户ID非法")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.WalletTransactionListFilter{
		Page:      page,
		PageSize:  pageSize,
		UserID:    userID,
		Type:      strings.TrimSpace(c.Query("type")),
		Direction: strings.TrimSpace(c.Query("direction")),
	}
	if raw := strings.TrimSpace(c.Query("order_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.OrderID = uint(parsed)
		}
	}

	txns, total, err := h.WalletService.ListTransactions(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "钱包流水查询失败", err)
		return
	}
	response.SuccessWithPage(c, txns, response.NewPagination(page, pageSize, total))
}

// AdminAdjustWallet 管理员调整余额
func (h *Handler) AdminAdjustWallet(c *gin.Context) {
	var req WalletAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	account, txn, err := h.WalletService.AdminAdjustBalance(service.WalletAdjustInput{
		UserID: req.UserID,
		Delta:  req.Delta,
		Remark: req.Remark,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"account":     account,
		"transaction": txn,
	})
}
