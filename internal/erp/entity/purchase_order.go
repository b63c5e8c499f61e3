package entity

import (
	"time"
)

// PurchaseOrderStatus 采购订单状态
const (
	POStatusDraft     = "DRAFT"
	POStatusApproved  = "APPROVED"
	POStatusSent      = "SENT"
	POStatusPartial   = "PARTIAL"
	POStatusReceived  = "RECEIVED"
	POStatusMatched   = "MATCHED"
	POStatusClosed    = "CLOSED"
	POStatusCancelled = "CANCELLED"
)

// PurchaseOrder 采购订单（PO），三单匹配的基准单据
type PurchaseOrder struct {
	ID           string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	POCode       string     `json:"po_code" gorm:"size:50;not null;uniqueIndex"`
	SupplierID   string     `json:"supplier_id" gorm:"size:64;not null;index"`
	SupplierName string     `json:"supplier_name" gorm:"size:128"`
	Status       string     `json:"status" gorm:"size:20;not null;default:DRAFT"`
	TotalAmount  float64    `json:"total_amount" gorm:"type:decimal(12,2);default:0"`
	Currency     string     `json:"currency" gorm:"size:10;not null;default:CNY"`
	OrderDate    *time.Time `json:"order_date"`
	ExpectedDate *time.Time `json:"expected_date"`
	Notes        string     `json:"notes" gorm:"type:text"`
	CreatedBy    string     `json:"created_by" gorm:"size:64;not null"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at" gorm:"index"`

	Items []POItem `json:"items,omitempty" gorm:"foreignKey:POID"`
}

func (PurchaseOrder) TableName() string {
	return "erp_purchase_orders"
}

// POItem 采购订单明细
type POItem struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	POID        string    `json:"po_id" gorm:"type:uuid;not null;index"`
	MaterialID  string    `json:"material_id" gorm:"type:uuid;not null;index"`
	Quantity    float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	Unit        string    `json:"unit" gorm:"size:16;not null;default:pcs"`
	UnitPrice   float64   `json:"unit_price" gorm:"type:decimal(12,4);not null"`
	Amount      float64   `json:"amount" gorm:"type:decimal(12,2);not null"`
	ReceivedQty float64   `json:"received_qty" gorm:"type:decimal(12,4);default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Material *Material `json:"material,omitempty" gorm:"foreignKey:MaterialID"`
}

func (POItem) TableName() string {
	return "erp_po_items"
}

// GoodsReceipt 收货单（GRN）
type GoodsReceipt struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	GRCode      string    `json:"gr_code" gorm:"size:50;not null;uniqueIndex"`
	POID        string    `json:"po_id" gorm:"type:uuid;not null;index"`
	WarehouseID string    `json:"warehouse_id" gorm:"type:uuid;not null"`
	ReceivedAt  time.Time `json:"received_at"`
	Notes       string    `json:"notes" gorm:"type:text"`
	CreatedBy   string    `json:"created_by" gorm:"size:64;not null"`
	CreatedAt   time.Time `json:"created_at"`

	Items []GRItem `json:"items,omitempty" gorm:"foreignKey:GoodsReceiptID"`
}

func (GoodsReceipt) TableName() string {
	return "erp_goods_receipts"
}

// GRItem 收货单明细
type GRItem struct {
	ID             string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	GoodsReceiptID string    `json:"goods_receipt_id" gorm:"type:uuid;not null;index"`
	POItemID       string    `json:"po_item_id" gorm:"type:uuid;not null;index"`
	MaterialID     string    `json:"material_id" gorm:"type:uuid;not null"`
	Quantity       float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	CreatedAt      time.Time `json:"created_at"`
}

func (GRItem) TableName() string {
	return "erp_gr_items"
}

// SupplierInvoice 供应商发票
type SupplierInvoice struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	InvoiceCode string    `json:"invoice_code" gorm:"size:50;not null;uniqueIndex"`
	POID        string    `json:"po_id" gorm:"type:uuid;not null;index"`
	SupplierID  string    `json:"supplier_id" gorm:"size:64;not null"`
	TotalAmount float64   `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	Currency    string    `json:"currency" gorm:"size:10;not null;default:CNY"`
	InvoicedAt  time.Time `json:"invoiced_at"`
	CreatedBy   string    `json:"created_by" gorm:"size:64;not null"`
	CreatedAt   time.Time `json:"created_at"`

	Items []InvoiceItem `json:"items,omitempty" gorm:"foreignKey:InvoiceID"`
}

func (SupplierInvoice) TableName() string {
	return "erp_supplier_invoices"
}

// InvoiceItem 发票明细
type InvoiceItem struct {
	ID         string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	InvoiceID  string    `json:"invoice_id" gorm:"type:uuid;not null;index"`
	POItemID   string    `json:"po_item_id" gorm:"type:uuid;not null;index"`
	MaterialID string    `json:"material_id" gorm:"type:uuid;not null"`
	Quantity   float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	UnitPrice  float64   `json:"unit_price" gorm:"type:decimal(12,4);not null"`
	Amount     float64   `json:"amount" gorm:"type:decimal(12,2);not null"`
	CreatedAt  time.Time `json:"created_at"`
}

func (InvoiceItem) TableName() string {
	return "erp_invoice_items"
}
