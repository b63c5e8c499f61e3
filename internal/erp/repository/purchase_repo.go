package repository

import (
	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"gorm.io/gorm"
)

type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

func (r *PurchaseRepository) CreatePO(po *entity.PurchaseOrder) error {
	return r.db.Create(po).Error
}

func (r *PurchaseRepository) GetPOByID(id string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.Preload("Items").
		Where("id = ? AND deleted_at IS NULL", id).First(&po).Error
	return &po, err
}

// UpdatePO 连同行项一起保存，行项上的已收量要随收货持久化
func (r *PurchaseRepository) UpdatePO(po *entity.PurchaseOrder) error {
	return r.db.Session(&gorm.Session{FullSaveAssociations: true}).Save(po).Error
}

type POListParams struct {
	Status  string
	Keyword string
	Page    int
	Size    int
}

func (r *PurchaseRepository) ListPOs(params POListParams) ([]entity.PurchaseOrder, int64, error) {
	query := r.db.Model(&entity.PurchaseOrder{}).Where("deleted_at IS NULL")
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("po_code ILIKE ? OR supplier_name ILIKE ?", kw, kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var pos []entity.PurchaseOrder
	err := query.Order("created_at DESC").
		Offset((params.Page-1)*params.Size).Limit(params.Size).Find(&pos).Error
	return pos, total, err
}

func (r *PurchaseRepository) CreateGoodsReceipt(gr *entity.GoodsReceipt) error {
	return r.db.Create(gr).Error
}

// ListGoodsReceiptsByPO 获取PO下全部收货单（含明细）
func (r *PurchaseRepository) ListGoodsReceiptsByPO(poID string) ([]entity.GoodsReceipt, error) {
	var grs []entity.GoodsReceipt
	err := r.db.Preload("Items").Where("po_id = ?", poID).Order("received_at").Find(&grs).Error
	return grs, err
}

func (r *PurchaseRepository) CreateInvoice(inv *entity.SupplierInvoice) error {
	return r.db.Create(inv).Error
}

// ListInvoicesByPO 获取PO下全部发票（含明细）
func (r *PurchaseRepository) ListInvoicesByPO(poID string) ([]entity.SupplierInvoice, error) {
	var invs []entity.SupplierInvoice
	err := r.db.Preload("Items").Where("po_id = ?", poID).Order("invoiced_at").Find(&invs).Error
	return invs, err
}

// DB 返回底层db用于事务
func (r *PurchaseRepository) DB() *gorm.DB {
	return r.db
}
