package repository

import (
	"github.com/craftbay/internal/models"

	"gorm.io/gorm"
)

// OrderHistoryRepository 订单历史流水访问接口。流水只追加不修改。
type OrderHistoryRepository interface {
	Append(entry *models.OrderHistory) error
	ListByOrder(orderID uint) ([]models.OrderHistory, error)
	WithTx(tx *gorm.DB) *GormOrderHistoryRepository
}

// GormOrderHistoryRepository GORM 实现
type GormOrderHistoryRepository struct {
	db *gorm.DB
}

// NewOrderHistoryRepository 创建订单历史仓库
func NewOrderHistoryRepository(db *gorm.DB) *GormOrderHistoryRepository {
	return &GormOrderHistoryRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderHistoryRepository) WithTx(tx *gorm.DB) *GormOrderHistoryRepository {
	if tx == nil {
		return r
	}
	return &GormOrderHistoryRepository{db: tx}
}

// Append 追加一条流水
func (r *GormOrderHistoryRepository) Append(entry *models.OrderHistory) error {
	return r.db.Create(entry).Error
}

// ListByOrder 按时间顺序列出订单的全部流水
func (r *GormOrderHistoryRepository) ListByOrder(orderID uint) ([]models.OrderHistory, error) {
	var entries []models.OrderHistory
	if err := r.db.Where("order_id = ?", orderID).
		Order("id asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
