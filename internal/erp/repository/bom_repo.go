package repository

import (
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"gorm.io/gorm"
)

type BOMRepository struct {
	db *gorm.DB
}

func NewBOMRepository(db *gorm.DB) *BOMRepository {
	return &BOMRepository{db: db}
}

func (r *BOMRepository) CreateHeader(h *entity.BOMHeader) error {
	return r.db.Create(h).Error
}

func (r *BOMRepository) GetHeaderByID(id string) (*entity.BOMHeader, error) {
	var h entity.BOMHeader
	err := r.db.Preload("Items").Where("id = ?", id).First(&h).Error
	return &h, err
}

// GetReleasedByProduct 获取产品最新已发布BOM（含行项）
func (r *BOMRepository) GetReleasedByProduct(productID string) (*entity.BOMHeader, error) {
	var h entity.BOMHeader
	err := r.db.Preload("Items").
		Where("product_id = ? AND status = ?", productID, entity.BOMStatusReleased).
		Order("created_at DESC").First(&h).Error
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// Release 发布BOM
func (r *BOMRepository) Release(id, userID string) error {
	now := time.Now()
	return r.db.Model(&entity.BOMHeader{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      entity.BOMStatusReleased,
			"released_by": userID,
			"released_at": now,
		}).Error
}

func (r *BOMRepository) ListByProduct(productID string) ([]entity.BOMHeader, error) {
	var headers []entity.BOMHeader
	err := r.db.Where("product_id = ?", productID).Order("created_at DESC").Find(&headers).Error
	return headers, err
}
