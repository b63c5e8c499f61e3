package repository

import "gorm.io/gorm"

// Repositories ERP 仓库集合
type Repositories struct {
	Material    *MaterialRepository
	BOM         *BOMRepository
	WorkOrder   *WorkOrderRepository
	Inventory   *InventoryRepository
	Reservation *ReservationRepository
	Purchase    *PurchaseRepository
	Audit       *AuditRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Material:    NewMaterialRepository(db),
		BOM:         NewBOMRepository(db),
		WorkOrder:   NewWorkOrderRepository(db),
		Inventory:   NewInventoryRepository(db),
		Reservation: NewReservationRepository(db),
		Purchase:    NewPurchaseRepository(db),
		Audit:       NewAuditRepository(db),
	}
}
