package repository

import (
	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// SumActiveByMaterial 逐行扫描物料的活跃预留量之和。
// 必须与库存行上维护的 reserved_qty 计数一致。
func (r *ReservationRepository) SumActiveByMaterial(materialID string) (float64, error) {
	var result struct{ Total float64 }
	err := r.db.Raw(`
		SELECT COALESCE(SUM(quantity), 0) as total
		FROM erp_material_reservations
		WHERE material_id = ? AND status IN (?, ?)
	`, materialID, entity.ReservationStatusReserved, entity.ReservationStatusPartiallyConsumed).
		Scan(&result).Error
	return result.Total, err
}

// ListActiveByWorkOrder 事务内按行锁读取工单的活跃预留
func (r *ReservationRepository) ListActiveByWorkOrder(tx *gorm.DB, workOrderID string) ([]entity.MaterialReservation, error) {
	var items []entity.MaterialReservation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("work_order_id = ? AND status IN (?, ?)",
			workOrderID, entity.ReservationStatusReserved, entity.ReservationStatusPartiallyConsumed).
		Order("created_at").Find(&items).Error
	return items, err
}

// LockActiveByWorkOrderAndMaterial 事务内按行锁读取某工单某物料的活跃预留
func (r *ReservationRepository) LockActiveByWorkOrderAndMaterial(tx *gorm.DB, workOrderID, materialID string) (*entity.MaterialReservation, error) {
	var res entity.MaterialReservation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("work_order_id = ? AND material_id = ? AND status IN (?, ?)",
			workOrderID, materialID, entity.ReservationStatusReserved, entity.ReservationStatusPartiallyConsumed).
		Order("created_at").First(&res).Error
	return &res, err
}

// ListByWorkOrder 工单全部预留（含终态），按创建时间排序
func (r *ReservationRepository) ListByWorkOrder(workOrderID string) ([]entity.MaterialReservation, error) {
	var items []entity.MaterialReservation
	err := r.db.Preload("Material").
		Where("work_order_id = ?", workOrderID).Order("created_at").Find(&items).Error
	return items, err
}

// ListConsumptionsByWorkOrder 工单全部消耗记录
func (r *ReservationRepository) ListConsumptionsByWorkOrder(workOrderID string) ([]entity.MaterialConsumption, error) {
	var items []entity.MaterialConsumption
	err := r.db.Preload("Material").
		Where("work_order_id = ?", workOrderID).Order("consumed_at").Find(&items).Error
	return items, err
}

// DB 返回底层db用于事务
func (r *ReservationRepository) DB() *gorm.DB {
	return r.db
}
