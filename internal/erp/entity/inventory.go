package entity

import (
	"time"
)

// TransactionType 库存交易类型
const (
	TxTypePurchaseIn    = "PURCHASE_IN"    // 采购入库
	TxTypeProductionIn  = "PRODUCTION_IN"  // 生产入库
	TxTypeReturnIn      = "RETURN_IN"      // 退货入库
	TxTypeProductionOut = "PRODUCTION_OUT" // 生产领料
	TxTypeScrapOut      = "SCRAP_OUT"      // 报废出库
	TxTypeAdjust        = "ADJUST"         // 库存调整
)

// Inventory 库存记录，(material, warehouse) 唯一。
// Quantity 为在库量，任何提交后都不可为负。
// ReservedQty 为活跃预留(RESERVED/PARTIALLY_CONSUMED)之和，
// 与预留表同事务维护，必须与逐行扫描结果一致。
type Inventory struct {
	ID           string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	MaterialID   string     `json:"material_id" gorm:"type:uuid;not null;uniqueIndex:uniq_inv_material_warehouse"`
	WarehouseID  string     `json:"warehouse_id" gorm:"type:uuid;not null;uniqueIndex:uniq_inv_material_warehouse"`
	Quantity     float64    `json:"quantity" gorm:"type:decimal(12,4);not null;default:0"`
	ReservedQty  float64    `json:"reserved_qty" gorm:"type:decimal(12,4);not null;default:0"`
	AvailableQty float64    `json:"available_qty" gorm:"type:decimal(12,4);not null;default:0"`
	Unit         string     `json:"unit" gorm:"size:16;not null;default:pcs"`
	UnitCost     float64    `json:"unit_cost" gorm:"type:decimal(12,4);default:0"`
	LastMovedAt  *time.Time `json:"last_moved_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Material  *Material  `json:"material,omitempty" gorm:"foreignKey:MaterialID"`
	Warehouse *Warehouse `json:"warehouse,omitempty" gorm:"foreignKey:WarehouseID"`
}

func (Inventory) TableName() string {
	return "erp_inventory"
}

// InventoryTransaction 库存交易流水，只增不改
type InventoryTransaction struct {
	ID              string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	MaterialID      string    `json:"material_id" gorm:"type:uuid;not null;index"`
	WarehouseID     string    `json:"warehouse_id" gorm:"type:uuid;not null;index"`
	TransactionType string    `json:"transaction_type" gorm:"size:20;not null"`
	Quantity        float64   `json:"quantity" gorm:"type:decimal(12,4);not null"` // 正=入，负=出
	UnitCost        float64   `json:"unit_cost" gorm:"type:decimal(12,4);default:0"`
	ReferenceType   string    `json:"reference_type" gorm:"size:20;not null"` // WO, PO, ADJUST
	ReferenceID     string    `json:"reference_id" gorm:"size:64;not null;index"`
	Notes           string    `json:"notes" gorm:"type:text"`
	CreatedBy       string    `json:"created_by" gorm:"size:64;not null"`
	CreatedAt       time.Time `json:"created_at"`
}

func (InventoryTransaction) TableName() string {
	return "erp_inventory_transactions"
}
