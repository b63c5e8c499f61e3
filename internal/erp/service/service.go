package service

import (
	"github.com/bitfantasy/nimo-erp/internal/config"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services ERP 服务集合
type Services struct {
	Material    *MaterialService
	WorkOrder   *WorkOrderService
	BOM         *BOMService
	Inventory   *InventoryService
	Reservation *ReservationService
	Consumption *ConsumptionService
	Match       *MatchService
}

func NewServices(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	inventory := NewInventoryService(repos.Inventory, repos.Reservation, repos.Material, repos.Audit, db, logger)
	reservation := NewReservationService(repos.Reservation, repos.Inventory, repos.WorkOrder, repos.Audit, db, logger)
	consumption := NewConsumptionService(repos.Reservation, repos.Inventory, repos.WorkOrder, repos.Audit, db, logger)

	if cfg != nil && cfg.Reserve.LockTimeout > 0 {
		reservation.lockTimeout = cfg.Reserve.LockTimeout
		consumption.lockTimeout = cfg.Reserve.LockTimeout
	}

	return &Services{
		Material:    NewMaterialService(repos.Material),
		WorkOrder:   NewWorkOrderService(repos.WorkOrder, repos.Material),
		BOM:         NewBOMService(repos.BOM, repos.Material, repos.WorkOrder, repos.Inventory, repos.Reservation, rdb),
		Inventory:   inventory,
		Reservation: reservation,
		Consumption: consumption,
		Match:       NewMatchService(repos.Purchase, inventory, repos.Audit, logger),
	}
}
