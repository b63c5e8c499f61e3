package repository

import (
	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// GetByMaterialAndWarehouse 获取指定物料在指定仓库的库存
func (r *InventoryRepository) GetByMaterialAndWarehouse(materialID, warehouseID string) (*entity.Inventory, error) {
	var inv entity.Inventory
	err := r.db.Where("material_id = ? AND warehouse_id = ?", materialID, warehouseID).
		First(&inv).Error
	return &inv, err
}

// LockByMaterialAndWarehouse 在事务内按行锁(FOR UPDATE)读取库存。
// 读-检-写序列必须全程持有该锁，且不得在持锁期间做外部调用。
func (r *InventoryRepository) LockByMaterialAndWarehouse(tx *gorm.DB, materialID, warehouseID string) (*entity.Inventory, error) {
	var inv entity.Inventory
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("material_id = ? AND warehouse_id = ?", materialID, warehouseID).
		First(&inv).Error
	return &inv, err
}

// GetTotalOnHand 获取物料所有仓库的在库总量
func (r *InventoryRepository) GetTotalOnHand(materialID string) (float64, error) {
	var result struct{ Total float64 }
	err := r.db.Raw(`
		SELECT COALESCE(SUM(quantity), 0) as total
		FROM erp_inventory
		WHERE material_id = ?
	`, materialID).Scan(&result).Error
	return result.Total, err
}

// UpsertInventory 更新或创建库存记录
func (r *InventoryRepository) UpsertInventory(inv *entity.Inventory) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "material_id"}, {Name: "warehouse_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "reserved_qty", "available_qty", "unit_cost", "last_moved_at", "updated_at"}),
	}).Create(inv).Error
}

func (r *InventoryRepository) Update(inv *entity.Inventory) error {
	return r.db.Save(inv).Error
}

func (r *InventoryRepository) CreateTransaction(tx *entity.InventoryTransaction) error {
	return r.db.Create(tx).Error
}

type InventoryListParams struct {
	MaterialID  string
	WarehouseID string
	LowStock    bool
	Page        int
	Size        int
}

func (r *InventoryRepository) List(params InventoryListParams) ([]entity.Inventory, int64, error) {
	query := r.db.Model(&entity.Inventory{})
	if params.MaterialID != "" {
		query = query.Where("material_id = ?", params.MaterialID)
	}
	if params.WarehouseID != "" {
		query = query.Where("warehouse_id = ?", params.WarehouseID)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var items []entity.Inventory
	err := query.Preload("Material").Preload("Warehouse").Order("updated_at DESC").
		Offset((params.Page-1)*params.Size).Limit(params.Size).Find(&items).Error
	return items, total, err
}

func (r *InventoryRepository) ListTransactions(materialID, referenceID string, page, size int) ([]entity.InventoryTransaction, int64, error) {
	query := r.db.Model(&entity.InventoryTransaction{})
	if materialID != "" {
		query = query.Where("material_id = ?", materialID)
	}
	if referenceID != "" {
		query = query.Where("reference_id = ?", referenceID)
	}
	var total int64
	query.Count(&total)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	var txs []entity.InventoryTransaction
	err := query.Order("created_at DESC").Offset((page-1)*size).Limit(size).Find(&txs).Error
	return txs, total, err
}

// DB 返回底层db用于事务
func (r *InventoryRepository) DB() *gorm.DB {
	return r.db
}
