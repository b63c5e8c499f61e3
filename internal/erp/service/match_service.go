package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultTolerancePct 三单匹配默认容差百分比
const DefaultTolerancePct = 5.0

// MatchService 三单匹配引擎：比对PO行、收货行、发票行的数量/单价/金额。
// 与预留引擎逻辑独立，收货后调用即可。
type MatchService struct {
	purchaseRepo *repository.PurchaseRepository
	inventory    *InventoryService
	auditRepo    *repository.AuditRepository
	logger       *zap.Logger
}

func NewMatchService(
	purchaseRepo *repository.PurchaseRepository,
	inventory *InventoryService,
	auditRepo *repository.AuditRepository,
	logger *zap.Logger,
) *MatchService {
	return &MatchService{
		purchaseRepo: purchaseRepo,
		inventory:    inventory,
		auditRepo:    auditRepo,
		logger:       logger,
	}
}

type CreatePORequest struct {
	SupplierID   string `json:"supplier_id" binding:"required"`
	SupplierName string `json:"supplier_name"`
	Currency     string `json:"currency"`
	Notes        string `json:"notes"`
	Items        []struct {
		MaterialID string  `json:"material_id" binding:"required"`
		Quantity   float64 `json:"quantity" binding:"required,gt=0"`
		UnitPrice  float64 `json:"unit_price" binding:"required,gt=0"`
		Unit       string  `json:"unit"`
	} `json:"items" binding:"required,min=1,dive"`
}

func (s *MatchService) CreatePO(ctx context.Context, req CreatePORequest, userID string) (*entity.PurchaseOrder, error) {
	now := time.Now()
	currency := req.Currency
	if currency == "" {
		currency = "CNY"
	}

	po := &entity.PurchaseOrder{
		ID:           uuid.New().String(),
		POCode:       fmt.Sprintf("PO-%s%04d", now.Format("20060102"), now.UnixNano()%10000),
		SupplierID:   req.SupplierID,
		SupplierName: req.SupplierName,
		Status:       entity.POStatusApproved,
		Currency:     currency,
		OrderDate:    &now,
		Notes:        req.Notes,
		CreatedBy:    normalizeActor(userID),
	}
	for _, item := range req.Items {
		unit := item.Unit
		if unit == "" {
			unit = entity.MaterialUnitPCS
		}
		amount := item.Quantity * item.UnitPrice
		po.Items = append(po.Items, entity.POItem{
			ID:         uuid.New().String(),
			POID:       po.ID,
			MaterialID: item.MaterialID,
			Quantity:   item.Quantity,
			Unit:       unit,
			UnitPrice:  item.UnitPrice,
			Amount:     amount,
		})
		po.TotalAmount += amount
	}

	if err := s.purchaseRepo.CreatePO(po); err != nil {
		return nil, fmt.Errorf("创建采购订单失败: %w", err)
	}
	return po, nil
}

func (s *MatchService) GetPO(id string) (*entity.PurchaseOrder, error) {
	po, err := s.purchaseRepo.GetPOByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "采购订单", ID: id}
		}
		return nil, err
	}
	return po, nil
}

func (s *MatchService) ListPOs(params repository.POListParams) ([]entity.PurchaseOrder, int64, error) {
	return s.purchaseRepo.ListPOs(params)
}

type ReceiveGoodsRequest struct {
	WarehouseID string `json:"warehouse_id" binding:"required"`
	Notes       string `json:"notes"`
	Items       []struct {
		POItemID string  `json:"po_item_id" binding:"required"`
		Quantity float64 `json:"quantity" binding:"required,gt=0"`
	} `json:"items" binding:"required,min=1,dive"`
}

// ReceiveGoods 收货：生成GRN并按行入库（独立加库存路径，引用PO）
func (s *MatchService) ReceiveGoods(ctx context.Context, poID string, req ReceiveGoodsRequest, actor string) (*entity.GoodsReceipt, error) {
	actor = normalizeActor(actor)

	po, err := s.GetPO(poID)
	if err != nil {
		return nil, err
	}

	poItems := make(map[string]*entity.POItem, len(po.Items))
	for i := range po.Items {
		poItems[po.Items[i].ID] = &po.Items[i]
	}

	now := time.Now()
	gr := &entity.GoodsReceipt{
		ID:          uuid.New().String(),
		GRCode:      fmt.Sprintf("GR-%s%04d", now.Format("20060102"), now.UnixNano()%10000),
		POID:        po.ID,
		WarehouseID: req.WarehouseID,
		ReceivedAt:  now,
		Notes:       req.Notes,
		CreatedBy:   actor,
	}
	for _, item := range req.Items {
		poItem, ok := poItems[item.POItemID]
		if !ok {
			return nil, &NotFoundError{Entity: "采购订单行", ID: item.POItemID}
		}
		gr.Items = append(gr.Items, entity.GRItem{
			ID:             uuid.New().String(),
			GoodsReceiptID: gr.ID,
			POItemID:       poItem.ID,
			MaterialID:     poItem.MaterialID,
			Quantity:       item.Quantity,
		})
	}

	if err := s.purchaseRepo.CreateGoodsReceipt(gr); err != nil {
		return nil, fmt.Errorf("创建收货单失败: %w", err)
	}

	// 逐行入库并累计PO行已收量
	for _, grItem := range gr.Items {
		if err := s.inventory.Inbound(ctx, InboundRequest{
			MaterialID:    grItem.MaterialID,
			WarehouseID:   req.WarehouseID,
			Quantity:      grItem.Quantity,
			UnitCost:      poItems[grItem.POItemID].UnitPrice,
			ReferenceType: "PO",
			ReferenceID:   po.ID,
			Notes:         gr.GRCode,
		}, actor); err != nil {
			return nil, fmt.Errorf("收货入库失败: %w", err)
		}
		poItems[grItem.POItemID].ReceivedQty += grItem.Quantity
	}

	received := true
	for i := range po.Items {
		if po.Items[i].ReceivedQty+qtyEpsilon < po.Items[i].Quantity {
			received = false
			break
		}
	}
	if received {
		po.Status = entity.POStatusReceived
	} else {
		po.Status = entity.POStatusPartial
	}
	if err := s.purchaseRepo.UpdatePO(po); err != nil {
		return nil, fmt.Errorf("更新采购订单失败: %w", err)
	}
	return gr, nil
}

type CreateInvoiceRequest struct {
	InvoiceCode string `json:"invoice_code" binding:"required"`
	Items       []struct {
		POItemID  string  `json:"po_item_id" binding:"required"`
		Quantity  float64 `json:"quantity" binding:"required,gt=0"`
		UnitPrice float64 `json:"unit_price" binding:"required,gt=0"`
	} `json:"items" binding:"required,min=1,dive"`
}

func (s *MatchService) CreateInvoice(ctx context.Context, poID string, req CreateInvoiceRequest, actor string) (*entity.SupplierInvoice, error) {
	po, err := s.GetPO(poID)
	if err != nil {
		return nil, err
	}

	poItems := make(map[string]*entity.POItem, len(po.Items))
	for i := range po.Items {
		poItems[po.Items[i].ID] = &po.Items[i]
	}

	inv := &entity.SupplierInvoice{
		ID:          uuid.New().String(),
		InvoiceCode: req.InvoiceCode,
		POID:        po.ID,
		SupplierID:  po.SupplierID,
		Currency:    po.Currency,
		InvoicedAt:  time.Now(),
		CreatedBy:   normalizeActor(actor),
	}
	for _, item := range req.Items {
		poItem, ok := poItems[item.POItemID]
		if !ok {
			return nil, &NotFoundError{Entity: "采购订单行", ID: item.POItemID}
		}
		amount := item.Quantity * item.UnitPrice
		inv.Items = append(inv.Items, entity.InvoiceItem{
			ID:         uuid.New().String(),
			InvoiceID:  inv.ID,
			POItemID:   poItem.ID,
			MaterialID: poItem.MaterialID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Amount:     amount,
		})
		inv.TotalAmount += amount
	}

	if err := s.purchaseRepo.CreateInvoice(inv); err != nil {
		return nil, fmt.Errorf("创建发票失败: %w", err)
	}
	return inv, nil
}

// MatchLine 单个PO行的匹配明细
type MatchLine struct {
	POItemID         string   `json:"po_item_id"`
	MaterialID       string   `json:"material_id"`
	POQty            float64  `json:"po_qty"`
	ReceivedQty      float64  `json:"received_qty"`
	InvoicedQty      float64  `json:"invoiced_qty"`
	POPrice          float64  `json:"po_price"`
	InvoicePrice     float64  `json:"invoice_price"`
	QtyVariancePct   float64  `json:"qty_variance_pct"`
	PriceVariancePct float64  `json:"price_variance_pct"`
	Matched          bool     `json:"matched"`
	Issues           []string `json:"issues,omitempty"`
}

// MatchResult 三单匹配结果
type MatchResult struct {
	POID         string      `json:"po_id"`
	POCode       string      `json:"po_code"`
	TolerancePct float64     `json:"tolerance_pct"`
	Matched      bool        `json:"matched"`
	Lines        []MatchLine `json:"lines"`
}

// Match 按容差百分比比对PO行、收货累计量、发票行。容差<=0时取默认5%。
func (s *MatchService) Match(ctx context.Context, poID string, tolerancePct float64, actor string) (*MatchResult, error) {
	if tolerancePct <= 0 {
		tolerancePct = DefaultTolerancePct
	}

	po, err := s.GetPO(poID)
	if err != nil {
		return nil, err
	}
	receipts, err := s.purchaseRepo.ListGoodsReceiptsByPO(poID)
	if err != nil {
		return nil, fmt.Errorf("读取收货单失败: %w", err)
	}
	invoices, err := s.purchaseRepo.ListInvoicesByPO(poID)
	if err != nil {
		return nil, fmt.Errorf("读取发票失败: %w", err)
	}

	receivedByItem := make(map[string]float64)
	for _, gr := range receipts {
		for _, item := range gr.Items {
			receivedByItem[item.POItemID] += item.Quantity
		}
	}
	invoicedQtyByItem := make(map[string]float64)
	invoicedAmtByItem := make(map[string]float64)
	for _, inv := range invoices {
		for _, item := range inv.Items {
			invoicedQtyByItem[item.POItemID] += item.Quantity
			invoicedAmtByItem[item.POItemID] += item.Amount
		}
	}

	result := &MatchResult{
		POID:         po.ID,
		POCode:       po.POCode,
		TolerancePct: tolerancePct,
		Matched:      true,
	}
	for _, poItem := range po.Items {
		line := MatchLine{
			POItemID:    poItem.ID,
			MaterialID:  poItem.MaterialID,
			POQty:       poItem.Quantity,
			ReceivedQty: receivedByItem[poItem.ID],
			InvoicedQty: invoicedQtyByItem[poItem.ID],
			POPrice:     poItem.UnitPrice,
			Matched:     true,
		}
		if line.InvoicedQty > 0 {
			line.InvoicePrice = invoicedAmtByItem[poItem.ID] / line.InvoicedQty
		}

		line.QtyVariancePct = variancePct(line.POQty, line.ReceivedQty)
		if line.QtyVariancePct > tolerancePct {
			line.Matched = false
			line.Issues = append(line.Issues, fmt.Sprintf("收货数量偏差 %.2f%% 超出容差", line.QtyVariancePct))
		}
		if v := variancePct(line.POQty, line.InvoicedQty); v > tolerancePct {
			line.Matched = false
			line.Issues = append(line.Issues, fmt.Sprintf("发票数量偏差 %.2f%% 超出容差", v))
		}
		line.PriceVariancePct = variancePct(line.POPrice, line.InvoicePrice)
		if line.PriceVariancePct > tolerancePct {
			line.Matched = false
			line.Issues = append(line.Issues, fmt.Sprintf("发票单价偏差 %.2f%% 超出容差", line.PriceVariancePct))
		}

		if !line.Matched {
			result.Matched = false
		}
		result.Lines = append(result.Lines, line)
	}

	if result.Matched {
		po.Status = entity.POStatusMatched
		if err := s.purchaseRepo.UpdatePO(po); err != nil {
			return nil, fmt.Errorf("更新采购订单状态失败: %w", err)
		}
	}

	s.auditRepo.Log(normalizeActor(actor), entity.ActionThreeWayMatched, "purchase_order", po.ID, po.ID,
		nil,
		entity.JSONB{"matched": result.Matched, "tolerance_pct": tolerancePct})
	s.logger.Info("三单匹配完成",
		zap.String("po_id", po.ID),
		zap.Bool("matched", result.Matched))
	return result, nil
}

// variancePct 相对基准值的偏差百分比；基准为0且对比值为0时偏差为0
func variancePct(base, actual float64) float64 {
	if base == 0 {
		if actual == 0 {
			return 0
		}
		return 100
	}
	return math.Abs(actual-base) / base * 100
}
