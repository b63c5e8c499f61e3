package repository

import (
	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"gorm.io/gorm"
)

type MaterialRepository struct {
	db *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

func (r *MaterialRepository) Create(m *entity.Material) error {
	return r.db.Create(m).Error
}

func (r *MaterialRepository) GetByID(id string) (*entity.Material, error) {
	var m entity.Material
	err := r.db.Where("id = ? AND deleted_at IS NULL", id).First(&m).Error
	return &m, err
}

func (r *MaterialRepository) GetByCode(code string) (*entity.Material, error) {
	var m entity.Material
	err := r.db.Where("code = ? AND deleted_at IS NULL", code).First(&m).Error
	return &m, err
}

func (r *MaterialRepository) Update(m *entity.Material) error {
	return r.db.Save(m).Error
}

type MaterialListParams struct {
	Status  string
	Keyword string
	Page    int
	Size    int
}

func (r *MaterialRepository) List(params MaterialListParams) ([]entity.Material, int64, error) {
	query := r.db.Model(&entity.Material{}).Where("deleted_at IS NULL")
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("code ILIKE ? OR name ILIKE ?", kw, kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var items []entity.Material
	err := query.Order("code").Offset((params.Page-1)*params.Size).Limit(params.Size).Find(&items).Error
	return items, total, err
}

// GetWarehouse 获取仓库
func (r *MaterialRepository) GetWarehouse(id string) (*entity.Warehouse, error) {
	var w entity.Warehouse
	err := r.db.Where("id = ? AND deleted_at IS NULL", id).First(&w).Error
	return &w, err
}

func (r *MaterialRepository) CreateWarehouse(w *entity.Warehouse) error {
	return r.db.Create(w).Error
}

func (r *MaterialRepository) ListWarehouses() ([]entity.Warehouse, error) {
	var items []entity.Warehouse
	err := r.db.Where("deleted_at IS NULL").Order("code").Find(&items).Error
	return items, err
}
