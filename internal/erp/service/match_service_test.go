package service

import (
	"context"
	"testing"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupMatchTest(t *testing.T) (*gorm.DB, *MatchService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	logger := zap.NewNop()
	inventory := NewInventoryService(repos.Inventory, repos.Reservation, repos.Material, repos.Audit, db, logger)
	svc := NewMatchService(repos.Purchase, inventory, repos.Audit, logger)
	return db, svc
}

func createTestPO(t *testing.T, svc *MatchService, materialID string) *entity.PurchaseOrder {
	t.Helper()
	req := CreatePORequest{
		SupplierID:   "sup-001",
		SupplierName: "深圳精密五金",
	}
	req.Items = append(req.Items, struct {
		MaterialID string  `json:"material_id" binding:"required"`
		Quantity   float64 `json:"quantity" binding:"required,gt=0"`
		UnitPrice  float64 `json:"unit_price" binding:"required,gt=0"`
		Unit       string  `json:"unit"`
	}{MaterialID: materialID, Quantity: 100, UnitPrice: 10})

	po, err := svc.CreatePO(context.Background(), req, "tester")
	if err != nil {
		t.Fatalf("create PO failed: %v", err)
	}
	return po
}

func TestThreeWayMatchWithinTolerance(t *testing.T) {
	db, svc := setupMatchTest(t)
	mat := testutil.SeedMaterial(t, db, "MAT-001", "外壳")
	wh := testutil.SeedWarehouse(t, db, "WH-01", "主仓")
	po := createTestPO(t, svc, mat.ID)

	ctx := context.Background()

	// 收货98件：2%偏差，容差内
	if _, err := svc.ReceiveGoods(ctx, po.ID, ReceiveGoodsRequest{
		WarehouseID: wh.ID,
		Items: []struct {
			POItemID string  `json:"po_item_id" binding:"required"`
			Quantity float64 `json:"quantity" binding:"required,gt=0"`
		}{{POItemID: po.Items[0].ID, Quantity: 98}},
	}, "tester"); err != nil {
		t.Fatalf("receive failed: %v", err)
	}

	// 收货同时入库
	var inv entity.Inventory
	if err := db.Where("material_id = ?", mat.ID).First(&inv).Error; err != nil {
		t.Fatalf("receiving must create inventory: %v", err)
	}
	if inv.Quantity != 98 {
		t.Fatalf("expected on-hand 98 after receiving, got %v", inv.Quantity)
	}

	// 发票98件，单价10.2：2%价差，容差内
	if _, err := svc.CreateInvoice(ctx, po.ID, CreateInvoiceRequest{
		InvoiceCode: "INV-001",
		Items: []struct {
			POItemID  string  `json:"po_item_id" binding:"required"`
			Quantity  float64 `json:"quantity" binding:"required,gt=0"`
			UnitPrice float64 `json:"unit_price" binding:"required,gt=0"`
		}{{POItemID: po.Items[0].ID, Quantity: 98, UnitPrice: 10.2}},
	}, "tester"); err != nil {
		t.Fatalf("create invoice failed: %v", err)
	}

	result, err := svc.Match(ctx, po.ID, DefaultTolerancePct, "tester")
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if !result.Matched {
		t.Fatalf("expected match within tolerance, issues: %+v", result.Lines)
	}

	updated, err := svc.GetPO(po.ID)
	if err != nil {
		t.Fatalf("reload PO failed: %v", err)
	}
	if updated.Status != entity.POStatusMatched {
		t.Fatalf("expected PO status MATCHED, got %s", updated.Status)
	}
}

func TestThreeWayMatchOverTolerance(t *testing.T) {
	db, svc := setupMatchTest(t)
	mat := testutil.SeedMaterial(t, db, "MAT-001", "外壳")
	wh := testutil.SeedWarehouse(t, db, "WH-01", "主仓")
	po := createTestPO(t, svc, mat.ID)

	ctx := context.Background()

	// 只收到一半
	if _, err := svc.ReceiveGoods(ctx, po.ID, ReceiveGoodsRequest{
		WarehouseID: wh.ID,
		Items: []struct {
			POItemID string  `json:"po_item_id" binding:"required"`
			Quantity float64 `json:"quantity" binding:"required,gt=0"`
		}{{POItemID: po.Items[0].ID, Quantity: 50}},
	}, "tester"); err != nil {
		t.Fatalf("receive failed: %v", err)
	}

	if _, err := svc.CreateInvoice(ctx, po.ID, CreateInvoiceRequest{
		InvoiceCode: "INV-001",
		Items: []struct {
			POItemID  string  `json:"po_item_id" binding:"required"`
			Quantity  float64 `json:"quantity" binding:"required,gt=0"`
			UnitPrice float64 `json:"unit_price" binding:"required,gt=0"`
		}{{POItemID: po.Items[0].ID, Quantity: 100, UnitPrice: 10}},
	}, "tester"); err != nil {
		t.Fatalf("create invoice failed: %v", err)
	}

	result, err := svc.Match(ctx, po.ID, DefaultTolerancePct, "tester")
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if result.Matched {
		t.Fatal("50% quantity variance must not match")
	}
	if len(result.Lines) != 1 || len(result.Lines[0].Issues) == 0 {
		t.Fatalf("expected issues on the mismatched line, got %+v", result.Lines)
	}

	updated, err := svc.GetPO(po.ID)
	if err != nil {
		t.Fatalf("reload PO failed: %v", err)
	}
	if updated.Status == entity.POStatusMatched {
		t.Fatal("mismatched PO must not be flagged MATCHED")
	}
}

func TestReceiveUpdatesPOStatus(t *testing.T) {
	db, svc := setupMatchTest(t)
	mat := testutil.SeedMaterial(t, db, "MAT-001", "外壳")
	wh := testutil.SeedWarehouse(t, db, "WH-01", "主仓")
	po := createTestPO(t, svc, mat.ID)

	ctx := context.Background()
	if _, err := svc.ReceiveGoods(ctx, po.ID, ReceiveGoodsRequest{
		WarehouseID: wh.ID,
		Items: []struct {
			POItemID string  `json:"po_item_id" binding:"required"`
			Quantity float64 `json:"quantity" binding:"required,gt=0"`
		}{{POItemID: po.Items[0].ID, Quantity: 40}},
	}, "tester"); err != nil {
		t.Fatalf("receive failed: %v", err)
	}

	partial, _ := svc.GetPO(po.ID)
	if partial.Status != entity.POStatusPartial {
		t.Fatalf("expected PARTIAL after under-receipt, got %s", partial.Status)
	}

	if _, err := svc.ReceiveGoods(ctx, po.ID, ReceiveGoodsRequest{
		WarehouseID: wh.ID,
		Items: []struct {
			POItemID string  `json:"po_item_id" binding:"required"`
			Quantity float64 `json:"quantity" binding:"required,gt=0"`
		}{{POItemID: po.Items[0].ID, Quantity: 60}},
	}, "tester"); err != nil {
		t.Fatalf("second receive failed: %v", err)
	}

	received, _ := svc.GetPO(po.ID)
	if received.Status != entity.POStatusReceived {
		t.Fatalf("expected RECEIVED after full receipt, got %s", received.Status)
	}
}

func TestVariancePct(t *testing.T) {
	cases := []struct {
		base, actual, want float64
	}{
		{100, 100, 0},
		{100, 95, 5},
		{100, 105, 5},
		{0, 0, 0},
		{0, 10, 100},
		{10, 5, 50},
	}
	for _, tc := range cases {
		if got := variancePct(tc.base, tc.actual); got != tc.want {
			t.Errorf("variancePct(%v, %v) = %v, want %v", tc.base, tc.actual, got, tc.want)
		}
	}
}
