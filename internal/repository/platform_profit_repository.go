package repository

import (
	"errors"

	"github.com/craftbay/internal/models"

	"gorm.io/gorm"
)

// PlatformProfitRepository 平台抽成记录访问接口
type PlatformProfitRepository interface {
	Create(profit *models.PlatformProfit) error
	GetByOrderID(orderID uint) (*models.PlatformProfit, error)
	SumAmount() (models.Money, error)
	WithTx(tx *gorm.DB) *GormPlatformProfitRepository
}

// GormPlatformProfitRepository GORM 实现
type GormPlatformProfitRepository struct {
	db *gorm.DB
}

// NewPlatformProfitRepository 创建平台抽成仓库
func NewPlatformProfitRepository(db *gorm.DB) *GormPlatformProfitRepository {
	return &GormPlatformProfitRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPlatformProfitRepository) WithTx(tx *gorm.DB) *GormPlatformProfitRepository {
	if tx == nil {
		return r
	}
	return &GormPlatformProfitRepository{db: tx}
}

// Create 写入抽成记录
func (r *GormPlatformProfitRepository) Create(profit *models.PlatformProfit) error {
	return r.db.Create(profit).Error
}

// GetByOrderID 查订单对应的抽成记录
func (r *GormPlatformProfitRepository) GetByOrderID(orderID uint) (*models.PlatformProfit, error) {
	var profit models.PlatformProfit
	if err := r.db.Where("order_id = ?", orderID).First(&profit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profit, nil
}

// SumAmount 汇总平台累计抽成
func (r *GormPlatformProfitRepository) SumAmount() (models.Money, error) {
	var result struct {
		Total models.Money
	}
	if err := r.db.Model(&models.PlatformProfit{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Scan(&result).Error; err != nil {
		return models.ZeroMoney(), err
	}
	return result.Total, nil
}
