package handlers

import (
	"errors"

	"github.com/craftbay/internal/http/response"
	"github.com/craftbay/internal/service"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		requestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// respondServiceError 把领域错误翻译成统一响应码
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		respondError(c, response.CodeNotFound, "订单不存在", nil)
	case errors.Is(err, service.ErrInvalidTransition):
		respondError(c, response.CodeConflict, "当前状态不允许该操作", err)
	case errors.Is(err, service.ErrPriceApprovalState):
		respondError(c, response.CodeConflict, "议价不在待审批状态", err)
	case errors.Is(err, service.ErrCancelNotAllowed):
		respondError(c, response.CodeForbidden, "当前状态不允许取消", err)
	case errors.Is(err, service.ErrMissingRequired):
		respondError(c, response.CodeBadRequest, "缺少必填字段", err)
	case errors.Is(err, service.ErrWalletInsufficientBalance):
		respondError(c, response.CodeConflict, "钱包余额不足", err)
	case errors.Is(err, service.ErrSettlementInvalid):
		respondError(c, response.CodeConflict, "结算输入非法", err)
	case errors.Is(err, service.ErrWalletAccountNotFound):
		respondError(c, response.CodeNotFound, "钱包账户不存在", nil)
	case errors.Is(err, service.ErrWalletInvalidAmount):
		respondError(c, response.CodeBadRequest, "金额非法", err)
	default:
		respondError(c, response.CodeInternal, "操作失败", err)
	}
}
