package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkOrderService struct {
	woRepo       *repository.WorkOrderRepository
	materialRepo *repository.MaterialRepository
}

func NewWorkOrderService(woRepo *repository.WorkOrderRepository, materialRepo *repository.MaterialRepository) *WorkOrderService {
	return &WorkOrderService{woRepo: woRepo, materialRepo: materialRepo}
}

type CreateWorkOrderRequest struct {
	Priority     int    `json:"priority"`
	WarehouseID  string `json:"warehouse_id"`
	PlannedStart string `json:"planned_start"` // YYYY-MM-DD
	PlannedEnd   string `json:"planned_end"`
	Notes        string `json:"notes"`
	Items        []struct {
		ProductID string  `json:"product_id" binding:"required"`
		Quantity  float64 `json:"quantity" binding:"required,gt=0"`
	} `json:"items" binding:"required,min=1,dive"`
}

func (s *WorkOrderService) Create(ctx context.Context, req CreateWorkOrderRequest, userID string) (*entity.WorkOrder, error) {
	now := time.Now()
	wo := &entity.WorkOrder{
		ID:          uuid.New().String(),
		WOCode:      fmt.Sprintf("WO-%s%04d", now.Format("20060102"), now.UnixNano()%10000),
		Status:      entity.WOStatusCreated,
		Priority:    req.Priority,
		WarehouseID: req.WarehouseID,
		Notes:       req.Notes,
		CreatedBy:   normalizeActor(userID),
	}

	if req.PlannedStart != "" {
		if t, err := time.Parse("2006-01-02", req.PlannedStart); err == nil {
			wo.PlannedStart = &t
		}
	}
	if req.PlannedEnd != "" {
		if t, err := time.Parse("2006-01-02", req.PlannedEnd); err == nil {
			wo.PlannedEnd = &t
		}
	}

	for _, item := range req.Items {
		product, err := s.materialRepo.GetByID(item.ProductID)
		if err != nil {
			return nil, &NotFoundError{Entity: "产品", ID: item.ProductID}
		}
		wo.Items = append(wo.Items, entity.WorkOrderItem{
			ID:          uuid.New().String(),
			WorkOrderID: wo.ID,
			ProductID:   product.ID,
			Quantity:    item.Quantity,
			Unit:        product.Unit,
		})
	}

	if err := s.woRepo.Create(wo); err != nil {
		return nil, fmt.Errorf("创建工单失败: %w", err)
	}
	return wo, nil
}

func (s *WorkOrderService) GetByID(id string) (*entity.WorkOrder, error) {
	wo, err := s.woRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "工单", ID: id}
		}
		return nil, err
	}
	return wo, nil
}

func (s *WorkOrderService) List(params repository.WOListParams) ([]entity.WorkOrder, int64, error) {
	return s.woRepo.List(params)
}
