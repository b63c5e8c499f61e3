package entity

import (
	"time"
)

// BOMStatus BOM状态
const (
	BOMStatusDraft    = "draft"
	BOMStatusReleased = "released"
	BOMStatusObsolete = "obsolete"
)

// BOMHeader BOM头表
type BOMHeader struct {
	ID          string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ProductID   string     `json:"product_id" gorm:"type:uuid;not null;index"`
	Version     string     `json:"version" gorm:"size:16;not null"`
	Status      string     `json:"status" gorm:"size:16;not null;default:draft"`
	Description string     `json:"description" gorm:"type:text"`
	ReleasedBy  string     `json:"released_by" gorm:"size:64"`
	ReleasedAt  *time.Time `json:"released_at"`
	CreatedBy   string     `json:"created_by" gorm:"size:64;not null"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Product *Material `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Items   []BOMItem `json:"items,omitempty" gorm:"foreignKey:BOMHeaderID"`
}

func (BOMHeader) TableName() string {
	return "erp_bom_headers"
}

// BOMItem BOM行项。MaterialID 指向子物料；若该子物料自身
// 存在已发布BOM，展开时会继续向下递归（多级BOM）。
type BOMItem struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	BOMHeaderID string    `json:"bom_header_id" gorm:"type:uuid;not null;index"`
	MaterialID  string    `json:"material_id" gorm:"type:uuid;not null;index"`
	Sequence    int       `json:"sequence" gorm:"not null;default:0"`
	Quantity    float64   `json:"quantity" gorm:"type:decimal(12,4);not null"` // 单位用量，必须>0
	Unit        string    `json:"unit" gorm:"size:16;not null;default:pcs"`
	Position    string    `json:"position" gorm:"size:32"`
	Notes       string    `json:"notes" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Material *Material `json:"material,omitempty" gorm:"foreignKey:MaterialID"`
}

func (BOMItem) TableName() string {
	return "erp_bom_items"
}
