package service

import (
	"github.com/craftbay/internal/models"

	"github.com/shopspring/decimal"
)

// SettlementInput 结算计算输入
type SettlementInput struct {
	TotalPrice        decimal.Decimal
	DeliveryFee       decimal.Decimal
	CommissionPercent decimal.Decimal
}

// SettlementResult 结算计算结果（完成时一次性落库）
type SettlementResult struct {
	CommissionPercent models.Money
	CommissionAmount  models.Money
	BuyerTotal        models.Money
	SellerNet         models.Money
}

var decimalHundred = decimal.NewFromInt(100)

// CalculateSettlement 结算计算。纯函数，不读不写数据库。
// 佣金按基础价计取，配送费归平台侧，不进卖家净额。
// 所有结果四舍五入到 2 位小数。
func CalculateSettlement(input SettlementInput) (SettlementResult, error) {
	if input.TotalPrice.IsNegative() || input.DeliveryFee.IsNegative() || input.CommissionPercent.IsNegative() {
		return SettlementResult{}, ErrSettlementInvalid
	}
	if input.CommissionPercent.GreaterThan(decimalHundred) {
		return SettlementResult{}, ErrSettlementInvalid
	}

	commission := input.CommissionPercent.Div(decimalHundred).Mul(input.TotalPrice).Round(2)
	buyerTotal := input.TotalPrice.Add(input.DeliveryFee).Round(2)
	sellerNet := input.TotalPrice.Sub(commission).Round(2)

	return SettlementResult{
		CommissionPercent: models.NewMoneyFromDecimal(input.CommissionPercent),
		CommissionAmount:  models.NewMoneyFromDecimal(commission),
		BuyerTotal:        models.NewMoneyFromDecimal(buyerTotal),
		SellerNet:         models.NewMoneyFromDecimal(sellerNet),
	}, nil
}

// resolveCommissionPercent 佣金比例取值顺序：订单单独约定 > 城市默认 > 0
func resolveCommissionPercent(order *models.Order, city *models.City) decimal.Decimal {
	if order != nil && order.CommissionPercentOverride != nil {
		return order.CommissionPercentOverride.Decimal
	}
	if city != nil {
		return city.DefaultCommissionPercent.Decimal
	}
	return decimal.Zero
}
