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

type ConsumptionService struct {
	resRepo       *repository.ReservationRepository
	inventoryRepo *repository.InventoryRepository
	woRepo        *repository.WorkOrderRepository
	auditRepo     *repository.AuditRepository
	db            *gorm.DB
	logger        *zap.Logger
	lockTimeout   time.Duration
}

func NewConsumptionService(
	resRepo *repository.ReservationRepository,
	inventoryRepo *repository.InventoryRepository,
	woRepo *repository.WorkOrderRepository,
	auditRepo *repository.AuditRepository,
	db *gorm.DB,
	logger *zap.Logger,
) *ConsumptionService {
	return &ConsumptionService{
		resRepo:       resRepo,
		inventoryRepo: inventoryRepo,
		woRepo:        woRepo,
		auditRepo:     auditRepo,
		db:            db,
		logger:        logger,
		lockTimeout:   defaultLockTimeout,
	}
}

type ConsumeLine struct {
	MaterialID string  `json:"material_id" binding:"required"`
	Quantity   float64 `json:"quantity" binding:"required,gt=0"`
}

type ConsumeRequest struct {
	Lines []ConsumeLine `json:"lines" binding:"required,min=1,dive"`
}

// auditedConsumption 审计所需的提交前后在库量
type auditedConsumption struct {
	consumption entity.MaterialConsumption
	oldOnHand   float64
	newOnHand   float64
}

// Consume 将预留量转为实际库存扣减。每行要求存在剩余量足够的
// 活跃预留，且在库量足够（预留后其他路径仍可能动过库存，按运行时
// 条件处理而非断言）。扣库存、写消耗记录、写库存流水、缩减预留
// 四个写入为一个原子事务，任一失败整体回滚。
func (s *ConsumptionService) Consume(ctx context.Context, workOrderID string, req ConsumeRequest, actor string) ([]entity.MaterialConsumption, error) {
	actor = normalizeActor(actor)

	if _, err := s.woRepo.GetByID(workOrderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "工单", ID: workOrderID}
		}
		return nil, fmt.Errorf("读取工单失败: %w", err)
	}

	for i, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, &ValidationError{Message: fmt.Sprintf("消耗行 %d 数量必须大于0", i+1)}
		}
	}

	lines := make([]ConsumeLine, len(req.Lines))
	copy(lines, req.Lines)
	sort.Slice(lines, func(i, j int) bool { return lines[i].MaterialID < lines[j].MaterialID })

	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	now := time.Now()
	var audited []auditedConsumption
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			res, lockErr := s.resRepo.LockActiveByWorkOrderAndMaterial(tx, workOrderID, line.MaterialID)
			if lockErr != nil {
				if errors.Is(lockErr, gorm.ErrRecordNotFound) {
					return &NotFoundError{Entity: "预留", ID: workOrderID + "/" + line.MaterialID}
				}
				return lockErr
			}
			if res.Quantity+qtyEpsilon < line.Quantity {
				return &InsufficientReservedError{
					WorkOrderID: workOrderID,
					MaterialID:  line.MaterialID,
					Requested:   line.Quantity,
					Reserved:    res.Quantity,
				}
			}

			inv, lockErr := s.inventoryRepo.LockByMaterialAndWarehouse(tx, res.MaterialID, res.WarehouseID)
			if lockErr != nil {
				if errors.Is(lockErr, gorm.ErrRecordNotFound) {
					return &InsufficientStockError{MaterialID: line.MaterialID, Required: line.Quantity, Available: 0}
				}
				return lockErr
			}
			if inv.Quantity+qtyEpsilon < line.Quantity {
				return &InsufficientStockError{
					MaterialID: line.MaterialID,
					Required:   line.Quantity,
					Available:  inv.Quantity,
				}
			}

			oldOnHand := inv.Quantity
			inv.Quantity -= line.Quantity
			inv.ReservedQty -= line.Quantity
			if inv.ReservedQty < 0 {
				inv.ReservedQty = 0
			}
			inv.AvailableQty = inv.Quantity - inv.ReservedQty
			inv.LastMovedAt = &now
			if err := tx.Save(inv).Error; err != nil {
				return fmt.Errorf("扣减库存失败: %w", err)
			}

			res.Quantity -= line.Quantity
			res.ConsumedQty += line.Quantity
			if res.Quantity <= qtyEpsilon {
				res.Quantity = 0
				res.Status = entity.ReservationStatusConsumed
			} else {
				res.Status = entity.ReservationStatusPartiallyConsumed
			}
			if err := tx.Save(res).Error; err != nil {
				return fmt.Errorf("缩减预留失败: %w", err)
			}

			consumption := entity.MaterialConsumption{
				ID:            uuid.New().String(),
				WorkOrderID:   workOrderID,
				MaterialID:    line.MaterialID,
				WarehouseID:   res.WarehouseID,
				ReservationID: res.ID,
				Quantity:      line.Quantity,
				ConsumedAt:    now,
				CreatedBy:     actor,
			}
			if err := tx.Create(&consumption).Error; err != nil {
				return fmt.Errorf("写入消耗记录失败: %w", err)
			}

			if err := tx.Create(&entity.InventoryTransaction{
				ID:              uuid.New().String(),
				MaterialID:      line.MaterialID,
				WarehouseID:     res.WarehouseID,
				TransactionType: entity.TxTypeProductionOut,
				Quantity:        -line.Quantity,
				ReferenceType:   "WO",
				ReferenceID:     workOrderID,
				CreatedBy:       actor,
			}).Error; err != nil {
				return fmt.Errorf("写入库存流水失败: %w", err)
			}

			audited = append(audited, auditedConsumption{
				consumption: consumption,
				oldOnHand:   oldOnHand,
				newOnHand:   inv.Quantity,
			})
		}
		return nil
	})
	if err != nil {
		return nil, mapLockErr(err)
	}

	consumptions := make([]entity.MaterialConsumption, 0, len(audited))
	for _, a := range audited {
		consumptions = append(consumptions, a.consumption)
		s.auditRepo.Log(actor, entity.ActionMaterialConsumed, "material_consumption", a.consumption.ID, workOrderID,
			entity.JSONB{"on_hand": a.oldOnHand},
			entity.JSONB{"on_hand": a.newOnHand, "material_id": a.consumption.MaterialID, "quantity": a.consumption.Quantity})
	}
	s.logger.Info("物料消耗完成",
		zap.String("work_order_id", workOrderID),
		zap.Int("lines", len(consumptions)),
		zap.String("actor", actor))
	return consumptions, nil
}
