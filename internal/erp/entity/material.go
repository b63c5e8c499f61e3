package entity

import (
	"time"
)

// MaterialStatus 物料状态
const (
	MaterialStatusActive   = "active"
	MaterialStatusInactive = "inactive"
	MaterialStatusObsolete = "obsolete"
)

// MaterialUnit 物料单位
const (
	MaterialUnitPCS = "pcs"
	MaterialUnitKG  = "kg"
	MaterialUnitM   = "m"
	MaterialUnitSet = "set"
)

// Material 物料实体，单位不可变的基础数据
type Material struct {
	ID           string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Code         string     `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name         string     `json:"name" gorm:"size:128;not null"`
	Status       string     `json:"status" gorm:"size:16;not null;default:active"`
	Unit         string     `json:"unit" gorm:"size:16;not null;default:pcs"`
	Description  string     `json:"description" gorm:"type:text"`
	LeadTimeDays int        `json:"lead_time_days" gorm:"default:0"`
	SafetyStock  float64    `json:"safety_stock" gorm:"type:decimal(12,4);default:0"`
	StandardCost float64    `json:"standard_cost" gorm:"type:decimal(12,4);default:0"`
	CreatedBy    string     `json:"created_by" gorm:"size:64"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at" gorm:"index"`
}

func (Material) TableName() string {
	return "erp_materials"
}
