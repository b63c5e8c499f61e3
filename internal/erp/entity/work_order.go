package entity

import (
	"time"
)

// WorkOrderStatus 工单状态
const (
	WOStatusCreated    = "CREATED"
	WOStatusReserved   = "RESERVED"
	WOStatusInProgress = "IN_PROGRESS"
	WOStatusCompleted  = "COMPLETED"
	WOStatusClosed     = "CLOSED"
	WOStatusCancelled  = "CANCELLED"
)

// WorkOrder 生产工单。物料引擎只读取行项的(product_id, quantity)，
// 并以work_order_id为键写入预留/消耗记录。
type WorkOrder struct {
	ID           string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	WOCode       string     `json:"wo_code" gorm:"size:50;not null;uniqueIndex"`
	Status       string     `json:"status" gorm:"size:20;not null;default:CREATED"`
	Priority     int        `json:"priority" gorm:"default:0"` // 0=普通, 1=紧急, 2=特急
	WarehouseID  string     `json:"warehouse_id" gorm:"type:uuid"`
	PlannedStart *time.Time `json:"planned_start"`
	PlannedEnd   *time.Time `json:"planned_end"`
	Notes        string     `json:"notes" gorm:"type:text"`
	CreatedBy    string     `json:"created_by" gorm:"size:64;not null"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at" gorm:"index"`

	Items []WorkOrderItem `json:"items,omitempty" gorm:"foreignKey:WorkOrderID"`
}

func (WorkOrder) TableName() string {
	return "erp_work_orders"
}

// WorkOrderItem 工单行项：生产某产品多少件
type WorkOrderItem struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	WorkOrderID string    `json:"work_order_id" gorm:"type:uuid;not null;index"`
	ProductID   string    `json:"product_id" gorm:"type:uuid;not null;index"`
	Quantity    float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	Unit        string    `json:"unit" gorm:"size:16;not null;default:pcs"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Product *Material `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (WorkOrderItem) TableName() string {
	return "erp_work_order_items"
}
