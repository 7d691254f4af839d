package repository

import (
	"errors"

	"github.com/craftbay/internal/models"

	"gorm.io/gorm"
)

// CityRepository 城市数据访问接口
type CityRepository interface {
	Create(city *models.City) error
	GetByID(id uint) (*models.City, error)
	GetByName(name string) (*models.City, error)
	ListActive() ([]models.City, error)
	Updates(id uint, updates map[string]interface{}) error
}

// GormCityRepository GORM 实现
type GormCityRepository struct {
	db *gorm.DB
}

// NewCityRepository 创建城市仓库
func NewCityRepository(db *gorm.DB) *GormCityRepository {
	return &GormCityRepository{db: db}
}

// Create 创建城市
func (r *GormCityRepository) Create(city *models.City) error {
	return r.db.Create(city).Error
}

// GetByID 根据 ID 获取城市
func (r *GormCityRepository) GetByID(id uint) (*models.City, error) {
	var city models.City
	if err := r.db.First(&city, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &city, nil
}

// GetByName 根据名称获取城市
func (r *GormCityRepository) GetByName(name string) (*models.City, error) {
	var city models.City
	if err := r.db.Where("name = ?", name).First(&city).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &city, nil
}

// ListActive 列出启用中的城市
func (r *GormCityRepository) ListActive() ([]models.City, error) {
	var cities []models.City
	if err := r.db.Where("is_active = ?", true).Order("id asc").Find(&cities).Error; err != nil {
		return nil, err
	}
	return cities, nil
}

// Updates 更新城市字段
func (r *GormCityRepository) Updates(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.City{}).Where("id = ?", id).Updates(updates).Error
}
