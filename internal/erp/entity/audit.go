package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONB 用于PostgreSQL JSONB类型
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("无法将值转换为JSONB")
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, j)
}

// AuditAction 审计动作
const (
	ActionMaterialReserved = "MATERIAL_RESERVED"
	ActionReservationFreed = "MATERIAL_RESERVATION_RELEASED"
	ActionMaterialConsumed = "MATERIAL_CONSUMED"
	ActionStockInbound     = "STOCK_INBOUND"
	ActionStockAdjusted    = "STOCK_ADJUSTED"
	ActionThreeWayMatched  = "THREE_WAY_MATCHED"
)

// AuditLog 审计日志，随每次库存相关变更追加，只增不改不删。
// 任何组件都不得依赖其内容做业务决策。
type AuditLog struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Actor       string    `json:"actor" gorm:"size:64;not null"`
	Action      string    `json:"action" gorm:"size:50;not null;index"`
	EntityType  string    `json:"entity_type" gorm:"size:50;not null;index:idx_audit_entity"`
	EntityID    string    `json:"entity_id" gorm:"size:64;not null;index:idx_audit_entity"`
	OldValue    JSONB     `json:"old_value" gorm:"type:jsonb"`
	NewValue    JSONB     `json:"new_value" gorm:"type:jsonb"`
	ReferenceID string    `json:"reference_id" gorm:"size:64;index"`
	CreatedAt   time.Time `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "erp_audit_logs"
}
