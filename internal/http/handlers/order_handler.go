package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/craftbay/internal/http/response"
	"github.com/craftbay/internal/models"
	"github.com/craftbay/internal/repository"
	"github.com/craftbay/internal/service"

	"github.com/gin-gonic/gin"
)

// SellerApproveRequest 卖家接单请求
type SellerApproveRequest struct {
	Address            string `json:"address" binding:"required"`
	CompletionDeadline string `json:"completion_deadline" binding:"required"` // RFC3339
}

// CancelRequest 取消订单请求
type CancelRequest struct {
	Reason string `json:"reason"`
}

// SuspendRequest 挂起订单请求
type SuspendRequest struct {
	Reason string `json:"reason"`
}

// GetOrder 订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "订单ID非法")
		return
	}
	order, err := h.OrderLifecycle.GetOrder(orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// ListOrders 订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
		OrderNo:  strings.TrimSpace(c.Query("order_no")),
		OnlyLate: c.Query("only_late") == "true",
	}
	if raw := strings.TrimSpace(c.Query("buyer_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.BuyerID = uint(parsed)
		}
	}
	if raw := strings.TrimSpace(c.Query("seller_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.SellerID = uint(parsed)
		}
	}
	if raw := strings.TrimSpace(c.Query("city_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.CityID = uint(parsed)
		}
	}

	orders, total, err := h.OrderLifecycle.ListOrders(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "订单查询失败", err)
		return
	}
	response.SuccessWithPage(c, orders, response.NewPagination(page, pageSize, total))
}

// ListOrderHistory 订单流水
func (h *Handler) ListOrderHistory(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "订单ID非法")
		return
	}
	entries, err := h.OrderLifecycle.ListHistory(orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, entries)
}

// ApproveByAdmin 管理员审核通过
func (h *Handler) ApproveByAdmin(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "订单ID非法")
		return
	}
	order, err := h.OrderLifecycle.ApproveByAdmin(orderID, actorFromContext(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// ApproveBySeller 卖家接单
func (h *Handler) ApproveBySeller(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "订单ID非法")
		return
	}
	var req SellerApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	deadline, err := time.Parse(time.RFC3339, strings.TrimSpace(req.CompletionDeadline))
	if err != nil {
		response.BadRequest(c, "完工期限格式错误")
		return
	}
	order, err := h.OrderLifecycle.ApproveBySeller(orderID, actorFromContext(c), service.SellerApproveInput{
		Address:            req.Address,
		CompletionDeadline: &deadline,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// transition 无额外参数的迁移端点骨架
func (h *Handler) transition(c *gin.Context, op func(uint, service.ActorContext) (*models.Order, error)) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "订单ID非法")
		return
	}
	order, err := op(orderID, actorFromContext(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// StartWork 卖家开工
func (h *Handler) StartWork(c *gin.Context) {
	h.transition(c, h.OrderLifecycle.StartWork)
}

// CompleteWork 卖家完工
func (h *Handler) CompleteWork(c *gin.Context) {
	h.transition(c, h.OrderLifecycle.CompleteWork)
}

// PickUpByDelivery 配送员取件
func (h *Handler) PickUpByDelivery(c *gin.Context) {
	h.transition(c, h.OrderLifecycle.PickUpByDelivery)
}

// MarkAsDelivered 配送员送达
func (h *Handler) MarkAsDelivered(c *gin.Context) {
	h.transition(c, h.OrderLifecycle.MarkAsDelivered)
}

// MarkAsCompleted 确认完成并结算
func (h *Handler) MarkAsCompleted(c *gin.Context) {
	h.transition(c, h.OrderLifecycle.MarkAsCompleted)
}

// ApproveProposedPrice 接受买家出价
func (h *Handler) ApproveProposedPrice(c *gin.Context) {
	h.transition(c, h.OrderLifecycle.ApproveProposedPrice)
}

// RejectProposedPrice 拒绝买家出价
func (h *Handler) RejectProposedPrice(c *gin.Context) {
	h.transition(c, h.OrderLifecycle.RejectProposedPrice)
}

// Cancel 取消订单
func (h *Handler) Cancel(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "订单ID非法")
		return
	}
	var req CancelRequest
	_ = c.ShouldBindJSON(&req)
	order, err := h.OrderLifecycle.Cancel(orderID, actorFromContext(c), req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// Suspend 配送员上报异常
func (h *Handler) Suspend(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "订单ID非法")
		return
	}
	var req SuspendRequest
	_ = c.ShouldBindJSON(&req)
	order, err := h.OrderLifecycle.Suspend(orderID, actorFromContext(c), req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}
