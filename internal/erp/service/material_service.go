package service

import (
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaterialService 物料与仓库基础数据
type MaterialService struct {
	repo *repository.MaterialRepository
}

func NewMaterialService(repo *repository.MaterialRepository) *MaterialService {
	return &MaterialService{repo: repo}
}

type CreateMaterialRequest struct {
	Code         string  `json:"code" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	Unit         string  `json:"unit"`
	Description  string  `json:"description"`
	LeadTimeDays int     `json:"lead_time_days"`
	SafetyStock  float64 `json:"safety_stock"`
	StandardCost float64 `json:"standard_cost"`
}

func (s *MaterialService) Create(req CreateMaterialRequest, userID string) (*entity.Material, error) {
	unit := req.Unit
	if unit == "" {
		unit = entity.MaterialUnitPCS
	}
	m := &entity.Material{
		ID:           uuid.New().String(),
		Code:         req.Code,
		Name:         req.Name,
		Status:       entity.MaterialStatusActive,
		Unit:         unit,
		Description:  req.Description,
		LeadTimeDays: req.LeadTimeDays,
		SafetyStock:  req.SafetyStock,
		StandardCost: req.StandardCost,
		CreatedBy:    normalizeActor(userID),
	}
	if err := s.repo.Create(m); err != nil {
		return nil, fmt.Errorf("创建物料失败: %w", err)
	}
	return m, nil
}

func (s *MaterialService) GetByID(id string) (*entity.Material, error) {
	m, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "物料", ID: id}
		}
		return nil, err
	}
	return m, nil
}

func (s *MaterialService) List(params repository.MaterialListParams) ([]entity.Material, int64, error) {
	return s.repo.List(params)
}

type CreateWarehouseRequest struct {
	Code    string `json:"code" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

func (s *MaterialService) CreateWarehouse(req CreateWarehouseRequest) (*entity.Warehouse, error) {
	w := &entity.Warehouse{
		ID:       uuid.New().String(),
		Code:     req.Code,
		Name:     req.Name,
		Address:  req.Address,
		IsActive: true,
	}
	if err := s.repo.CreateWarehouse(w); err != nil {
		return nil, fmt.Errorf("创建仓库失败: %w", err)
	}
	return w, nil
}

func (s *MaterialService) ListWarehouses() ([]entity.Warehouse, error) {
	return s.repo.ListWarehouses()
}
