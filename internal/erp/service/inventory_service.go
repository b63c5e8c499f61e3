package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type InventoryService struct {
	repo         *repository.InventoryRepository
	resRepo      *repository.ReservationRepository
	materialRepo *repository.MaterialRepository
	auditRepo    *repository.AuditRepository
	db           *gorm.DB
	logger       *zap.Logger
	lockTimeout  time.Duration
}

func NewInventoryService(
	repo *repository.InventoryRepository,
	resRepo *repository.ReservationRepository,
	materialRepo *repository.MaterialRepository,
	auditRepo *repository.AuditRepository,
	db *gorm.DB,
	logger *zap.Logger,
) *InventoryService {
	return &InventoryService{
		repo:         repo,
		resRepo:      resRepo,
		materialRepo: materialRepo,
		auditRepo:    auditRepo,
		db:           db,
		logger:       logger,
		lockTimeout:  defaultLockTimeout,
	}
}

func (s *InventoryService) List(params repository.InventoryListParams) ([]entity.Inventory, int64, error) {
	return s.repo.List(params)
}

func (s *InventoryService) ListTransactions(materialID, referenceID string, page, size int) ([]entity.InventoryTransaction, int64, error) {
	return s.repo.ListTransactions(materialID, referenceID, page, size)
}

// NetAvailable 物料净可用量 = 在库总量 - 活跃预留量之和。
// 每次调用全量重算，不做进程内缓存，避免并发预留下的脏读。
func (s *InventoryService) NetAvailable(ctx context.Context, materialID string) (float64, error) {
	if _, err := s.materialRepo.GetByID(materialID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, &NotFoundError{Entity: "物料", ID: materialID}
		}
		return 0, err
	}
	onHand, err := s.repo.GetTotalOnHand(materialID)
	if err != nil {
		return 0, fmt.Errorf("读取在库量失败: %w", err)
	}
	reserved, err := s.resRepo.SumActiveByMaterial(materialID)
	if err != nil {
		return 0, fmt.Errorf("读取预留量失败: %w", err)
	}
	return onHand - reserved, nil
}

type InboundRequest struct {
	MaterialID    string  `json:"material_id" binding:"required"`
	WarehouseID   string  `json:"warehouse_id" binding:"required"`
	Quantity      float64 `json:"quantity" binding:"required,gt=0"`
	UnitCost      float64 `json:"unit_cost"`
	ReferenceType string  `json:"reference_type" binding:"required"` // PO, RETURN
	ReferenceID   string  `json:"reference_id" binding:"required"`
	Notes         string  `json:"notes"`
}

// Inbound 入库：独立于预留引擎的加库存路径（采购收货、退货）
func (s *InventoryService) Inbound(ctx context.Context, req InboundRequest, actor string) error {
	actor = normalizeActor(actor)

	mat, err := s.materialRepo.GetByID(req.MaterialID)
	if err != nil {
		return &NotFoundError{Entity: "物料", ID: req.MaterialID}
	}
	if _, err := s.materialRepo.GetWarehouse(req.WarehouseID); err != nil {
		return &NotFoundError{Entity: "仓库", ID: req.WarehouseID}
	}

	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	now := time.Now()
	var oldQty, newQty float64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, lockErr := s.repo.LockByMaterialAndWarehouse(tx, req.MaterialID, req.WarehouseID)
		if lockErr != nil {
			if !errors.Is(lockErr, gorm.ErrRecordNotFound) {
				return lockErr
			}
			inv = &entity.Inventory{
				ID:          uuid.New().String(),
				MaterialID:  req.MaterialID,
				WarehouseID: req.WarehouseID,
				Unit:        mat.Unit,
			}
		}
		oldQty = inv.Quantity
		inv.Quantity += req.Quantity
		inv.AvailableQty = inv.Quantity - inv.ReservedQty
		if req.UnitCost > 0 {
			inv.UnitCost = req.UnitCost
		}
		inv.LastMovedAt = &now
		newQty = inv.Quantity

		if inv.CreatedAt.IsZero() {
			if err := tx.Create(inv).Error; err != nil {
				return fmt.Errorf("创建库存失败: %w", err)
			}
		} else if err := tx.Save(inv).Error; err != nil {
			return fmt.Errorf("更新库存失败: %w", err)
		}

		txType := entity.TxTypePurchaseIn
		if req.ReferenceType == "RETURN" {
			txType = entity.TxTypeReturnIn
		}
		return tx.Create(&entity.InventoryTransaction{
			ID:              uuid.New().String(),
			MaterialID:      req.MaterialID,
			WarehouseID:     req.WarehouseID,
			TransactionType: txType,
			Quantity:        req.Quantity,
			UnitCost:        req.UnitCost,
			ReferenceType:   req.ReferenceType,
			ReferenceID:     req.ReferenceID,
			Notes:           req.Notes,
			CreatedBy:       actor,
		}).Error
	})
	if err != nil {
		return mapLockErr(err)
	}

	s.auditRepo.Log(actor, entity.ActionStockInbound, "inventory", req.MaterialID, req.ReferenceID,
		entity.JSONB{"quantity": oldQty},
		entity.JSONB{"quantity": newQty})
	s.logger.Info("库存入库",
		zap.String("material_id", req.MaterialID),
		zap.Float64("quantity", req.Quantity),
		zap.String("reference_id", req.ReferenceID))
	return nil
}

type AdjustRequest struct {
	MaterialID  string  `json:"material_id" binding:"required"`
	WarehouseID string  `json:"warehouse_id" binding:"required"`
	AdjustQty   float64 `json:"adjust_qty" binding:"required"` // 正数增加，负数减少
	Reason      string  `json:"reason" binding:"required"`
}

// Adjust 库存调整（盘盈/盘亏）。调整后在库量不得为负，
// 也不得低于活跃预留量，否则已预留数量将失去保障。
func (s *InventoryService) Adjust(ctx context.Context, req AdjustRequest, actor string) error {
	actor = normalizeActor(actor)

	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	now := time.Now()
	var oldQty, newQty float64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, lockErr := s.repo.LockByMaterialAndWarehouse(tx, req.MaterialID, req.WarehouseID)
		if lockErr != nil {
			if errors.Is(lockErr, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "库存记录", ID: req.MaterialID}
			}
			return lockErr
		}

		adjusted := inv.Quantity + req.AdjustQty
		if adjusted < 0 {
			return &ValidationError{Message: "调整后在库量不能为负数"}
		}
		if adjusted < inv.ReservedQty {
			return &InsufficientStockError{
				MaterialID: req.MaterialID,
				Required:   inv.ReservedQty,
				Available:  adjusted,
			}
		}

		oldQty = inv.Quantity
		inv.Quantity = adjusted
		inv.AvailableQty = inv.Quantity - inv.ReservedQty
		inv.LastMovedAt = &now
		newQty = inv.Quantity
		if err := tx.Save(inv).Error; err != nil {
			return fmt.Errorf("更新库存失败: %w", err)
		}

		return tx.Create(&entity.InventoryTransaction{
			ID:              uuid.New().String(),
			MaterialID:      req.MaterialID,
			WarehouseID:     req.WarehouseID,
			TransactionType: entity.TxTypeAdjust,
			Quantity:        req.AdjustQty,
			ReferenceType:   "ADJUST",
			ReferenceID:     uuid.New().String(),
			Notes:           req.Reason,
			CreatedBy:       actor,
		}).Error
	})
	if err != nil {
		return mapLockErr(err)
	}

	s.auditRepo.Log(actor, entity.ActionStockAdjusted, "inventory", req.MaterialID, "",
		entity.JSONB{"quantity": oldQty},
		entity.JSONB{"quantity": newQty, "reason": req.Reason})
	return nil
}
