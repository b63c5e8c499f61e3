package entity

import (
	"time"
)

// ReservationStatus 预留状态机：
// RESERVED -> PARTIALLY_CONSUMED -> CONSUMED
// RESERVED/PARTIALLY_CONSUMED -> RELEASED
// CONSUMED 与 RELEASED 为终态。
const (
	ReservationStatusReserved          = "RESERVED"
	ReservationStatusPartiallyConsumed = "PARTIALLY_CONSUMED"
	ReservationStatusConsumed          = "CONSUMED"
	ReservationStatusReleased          = "RELEASED"
)

// MaterialReservation 物料预留：对库存的软占用，
// 降低可用量但不减在库量。Quantity 为剩余未消耗数量，
// ReservedQty 为创建时的原始预留量，ConsumedQty 为累计消耗量。
type MaterialReservation struct {
	ID          string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	WorkOrderID string     `json:"work_order_id" gorm:"type:uuid;not null;index:idx_reservation_wo"`
	MaterialID  string     `json:"material_id" gorm:"type:uuid;not null;index"`
	WarehouseID string     `json:"warehouse_id" gorm:"type:uuid;not null"`
	Quantity    float64    `json:"quantity" gorm:"type:decimal(12,4);not null"`
	ReservedQty float64    `json:"reserved_qty" gorm:"type:decimal(12,4);not null"`
	ConsumedQty float64    `json:"consumed_qty" gorm:"type:decimal(12,4);not null;default:0"`
	Status      string     `json:"status" gorm:"size:20;not null;default:RESERVED;index"`
	Priority    int        `json:"priority" gorm:"default:0"`
	CreatedBy   string     `json:"created_by" gorm:"size:64;not null"`
	ReleasedAt  *time.Time `json:"released_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Material *Material `json:"material,omitempty" gorm:"foreignKey:MaterialID"`
}

func (MaterialReservation) TableName() string {
	return "erp_material_reservations"
}

// IsActive 是否仍占用可用量
func (r *MaterialReservation) IsActive() bool {
	return r.Status == ReservationStatusReserved || r.Status == ReservationStatusPartiallyConsumed
}

// MaterialConsumption 消耗记录：一次实际扣减在库量的事件，
// 总是对应一条被其扣减的预留。只增不改。
type MaterialConsumption struct {
	ID            string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	WorkOrderID   string    `json:"work_order_id" gorm:"type:uuid;not null;index:idx_consumption_wo"`
	MaterialID    string    `json:"material_id" gorm:"type:uuid;not null;index"`
	WarehouseID   string    `json:"warehouse_id" gorm:"type:uuid;not null"`
	ReservationID string    `json:"reservation_id" gorm:"type:uuid;not null;index"`
	Quantity      float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	ConsumedAt    time.Time `json:"consumed_at"`
	CreatedBy     string    `json:"created_by" gorm:"size:64;not null"`
	CreatedAt     time.Time `json:"created_at"`

	Material *Material `json:"material,omitempty" gorm:"foreignKey:MaterialID"`
}

func (MaterialConsumption) TableName() string {
	return "erp_material_consumptions"
}
