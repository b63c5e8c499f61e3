package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// defaultLockTimeout 行锁等待上限，超时映射为 ErrBusy
	defaultLockTimeout = 5 * time.Second

	// qtyEpsilon decimal(12,4)数量的浮点比较容差
	qtyEpsilon = 1e-9
)

type ReservationService struct {
	resRepo       *repository.ReservationRepository
	inventoryRepo *repository.InventoryRepository
	woRepo        *repository.WorkOrderRepository
	auditRepo     *repository.AuditRepository
	db            *gorm.DB
	logger        *zap.Logger
	lockTimeout   time.Duration
}

func NewReservationService(
	resRepo *repository.ReservationRepository,
	inventoryRepo *repository.InventoryRepository,
	woRepo *repository.WorkOrderRepository,
	auditRepo *repository.AuditRepository,
	db *gorm.DB,
	logger *zap.Logger,
) *ReservationService {
	return &ReservationService{
		resRepo:       resRepo,
		inventoryRepo: inventoryRepo,
		woRepo:        woRepo,
		auditRepo:     auditRepo,
		db:            db,
		logger:        logger,
		lockTimeout:   defaultLockTimeout,
	}
}

type ReserveLine struct {
	MaterialID string  `json:"material_id" binding:"required"`
	Quantity   float64 `json:"quantity" binding:"required,gt=0"`
	Priority   int     `json:"priority"`
}

type ReserveRequest struct {
	WarehouseID string        `json:"warehouse_id" binding:"required"`
	Lines       []ReserveLine `json:"lines" binding:"required,min=1,dive"`
}

// Reserve 为工单批量预留物料。整批原子：任何一行可用量不足，
// 整个请求回滚，不提交部分预留。可用量检查与预留写入在同一事务内、
// 持有库存行锁完成，并发预留由行锁线性化。
func (s *ReservationService) Reserve(ctx context.Context, workOrderID string, req ReserveRequest, actor string) ([]entity.MaterialReservation, error) {
	actor = normalizeActor(actor)

	wo, err := s.woRepo.GetByID(workOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "工单", ID: workOrderID}
		}
		return nil, fmt.Errorf("读取工单失败: %w", err)
	}

	for i, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, &ValidationError{Message: fmt.Sprintf("预留行 %d 数量必须大于0", i+1)}
		}
	}

	// 统一按物料ID升序加锁，避免并发批量预留互相死锁
	lines := make([]ReserveLine, len(req.Lines))
	copy(lines, req.Lines)
	sort.Slice(lines, func(i, j int) bool { return lines[i].MaterialID < lines[j].MaterialID })

	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	var created []entity.MaterialReservation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			inv, lockErr := s.inventoryRepo.LockByMaterialAndWarehouse(tx, line.MaterialID, req.WarehouseID)
			if lockErr != nil {
				if errors.Is(lockErr, gorm.ErrRecordNotFound) {
					return &InsufficientStockError{
						MaterialID: line.MaterialID,
						Required:   line.Quantity,
						Available:  0,
					}
				}
				return lockErr
			}

			// 持锁期间 reserved_qty 与预留表同步维护，此处即为最新值
			available := inv.Quantity - inv.ReservedQty
			if available+qtyEpsilon < line.Quantity {
				return &InsufficientStockError{
					MaterialID: line.MaterialID,
					Required:   line.Quantity,
					Available:  available,
				}
			}

			res := entity.MaterialReservation{
				ID:          uuid.New().String(),
				WorkOrderID: workOrderID,
				MaterialID:  line.MaterialID,
				WarehouseID: req.WarehouseID,
				Quantity:    line.Quantity,
				ReservedQty: line.Quantity,
				Status:      entity.ReservationStatusReserved,
				Priority:    line.Priority,
				CreatedBy:   actor,
			}
			if err := tx.Create(&res).Error; err != nil {
				return fmt.Errorf("创建预留失败: %w", err)
			}

			inv.ReservedQty += line.Quantity
			inv.AvailableQty = inv.Quantity - inv.ReservedQty
			if err := tx.Save(inv).Error; err != nil {
				return fmt.Errorf("更新库存预留量失败: %w", err)
			}

			created = append(created, res)
		}
		return nil
	})
	if err != nil {
		return nil, mapLockErr(err)
	}

	for _, res := range created {
		s.auditRepo.Log(actor, entity.ActionMaterialReserved, "material_reservation", res.ID, workOrderID,
			nil,
			entity.JSONB{"material_id": res.MaterialID, "quantity": res.Quantity, "status": res.Status})
	}
	s.logger.Info("物料预留成功",
		zap.String("work_order_id", workOrderID),
		zap.String("wo_code", wo.WOCode),
		zap.Int("lines", len(created)),
		zap.String("actor", actor))
	return created, nil
}

// Release 释放工单全部活跃预留。PARTIALLY_CONSUMED 只释放剩余
// 未消耗部分，已消耗部分保持入账，绝不重复释放。幂等：无活跃
// 预留时返回空切片而非错误。
func (s *ReservationService) Release(ctx context.Context, workOrderID, actor string) ([]entity.MaterialReservation, error) {
	actor = normalizeActor(actor)

	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	now := time.Now()
	var (
		released    []entity.MaterialReservation
		priorStates []string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		active, err := s.resRepo.ListActiveByWorkOrder(tx, workOrderID)
		if err != nil {
			return err
		}

		for i := range active {
			res := &active[i]
			priorStatus := res.Status
			inv, lockErr := s.inventoryRepo.LockByMaterialAndWarehouse(tx, res.MaterialID, res.WarehouseID)
			if lockErr != nil {
				return fmt.Errorf("锁定库存失败: %w", lockErr)
			}

			remaining := res.Quantity
			res.Status = entity.ReservationStatusReleased
			res.ReleasedAt = &now
			if err := tx.Save(res).Error; err != nil {
				return fmt.Errorf("释放预留失败: %w", err)
			}

			inv.ReservedQty -= remaining
			if inv.ReservedQty < 0 {
				inv.ReservedQty = 0
			}
			inv.AvailableQty = inv.Quantity - inv.ReservedQty
			if err := tx.Save(inv).Error; err != nil {
				return fmt.Errorf("更新库存预留量失败: %w", err)
			}

			released = append(released, *res)
			priorStates = append(priorStates, priorStatus)
		}
		return nil
	})
	if err != nil {
		return nil, mapLockErr(err)
	}

	for i, res := range released {
		s.auditRepo.Log(actor, entity.ActionReservationFreed, "material_reservation", res.ID, workOrderID,
			entity.JSONB{"status": priorStates[i], "quantity": res.Quantity},
			entity.JSONB{"status": res.Status, "released_qty": res.Quantity})
	}
	if len(released) > 0 {
		s.logger.Info("预留已释放",
			zap.String("work_order_id", workOrderID),
			zap.Int("count", len(released)),
			zap.String("actor", actor))
	}
	return released, nil
}

// MaterialStatus 工单物料状态读模型。TotalReserved 为工单历史上
// 全部预留的原始量（含已释放/已消耗），非当前活跃量。
type MaterialStatus struct {
	WorkOrderID       string                       `json:"work_order_id"`
	TotalReserved     float64                      `json:"total_reserved"`
	TotalConsumed     float64                      `json:"total_consumed"`
	RemainingReserved float64                      `json:"remaining_reserved"`
	Reservations      []entity.MaterialReservation `json:"reservations"`
	Consumptions      []entity.MaterialConsumption `json:"consumptions"`
}

// Status 聚合工单的预留与消耗历史，逐次重算，不缓存
func (s *ReservationService) Status(ctx context.Context, workOrderID string) (*MaterialStatus, error) {
	if _, err := s.woRepo.GetByID(workOrderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "工单", ID: workOrderID}
		}
		return nil, fmt.Errorf("读取工单失败: %w", err)
	}

	reservations, err := s.resRepo.ListByWorkOrder(workOrderID)
	if err != nil {
		return nil, fmt.Errorf("读取预留记录失败: %w", err)
	}
	consumptions, err := s.resRepo.ListConsumptionsByWorkOrder(workOrderID)
	if err != nil {
		return nil, fmt.Errorf("读取消耗记录失败: %w", err)
	}

	status := &MaterialStatus{
		WorkOrderID:  workOrderID,
		Reservations: reservations,
		Consumptions: consumptions,
	}
	for _, res := range reservations {
		status.TotalReserved += res.ReservedQty
	}
	for _, c := range consumptions {
		status.TotalConsumed += c.Quantity
	}
	status.RemainingReserved = status.TotalReserved - status.TotalConsumed
	return status, nil
}
