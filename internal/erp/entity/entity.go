package entity

import "gorm.io/gorm"

// AutoMigrate 自动迁移所有ERP表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 基础数据
		&Warehouse{},
		&Material{},

		// BOM
		&BOMHeader{},
		&BOMItem{},

		// 生产
		&WorkOrder{},
		&WorkOrderItem{},

		// 库存
		&Inventory{},
		&InventoryTransaction{},

		// 预留与消耗
		&MaterialReservation{},
		&MaterialConsumption{},

		// 采购（三单匹配）
		&PurchaseOrder{},
		&POItem{},
		&GoodsReceipt{},
		&GRItem{},
		&SupplierInvoice{},
		&InvoiceItem{},

		// 审计
		&AuditLog{},
	)
}
