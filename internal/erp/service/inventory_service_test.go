package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupInventoryTest(t *testing.T) (*gorm.DB, *InventoryService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewInventoryService(repos.Inventory, repos.Reservation, repos.Material, repos.Audit, db, zap.NewNop())
	return db, svc
}

func TestInboundCreatesInventoryAndTransaction(t *testing.T) {
	db, svc := setupInventoryTest(t)
	mat := testutil.SeedMaterial(t, db, "MAT-001", "铝型材")
	wh := testutil.SeedWarehouse(t, db, "WH-01", "主仓")

	err := svc.Inbound(context.Background(), InboundRequest{
		MaterialID:    mat.ID,
		WarehouseID:   wh.ID,
		Quantity:      50,
		UnitCost:      12.5,
		ReferenceType: "PO",
		ReferenceID:   "po-test-001",
	}, "tester")
	if err != nil {
		t.Fatalf("inbound failed: %v", err)
	}

	var inv entity.Inventory
	if err := db.Where("material_id = ? AND warehouse_id = ?", mat.ID, wh.ID).First(&inv).Error; err != nil {
		t.Fatalf("inventory row not created: %v", err)
	}
	if inv.Quantity != 50 || inv.AvailableQty != 50 || inv.UnitCost != 12.5 {
		t.Fatalf("unexpected inventory: %+v", inv)
	}

	var txn entity.InventoryTransaction
	if err := db.Where("reference_id = ?", "po-test-001").First(&txn).Error; err != nil {
		t.Fatalf("transaction not written: %v", err)
	}
	if txn.TransactionType != entity.TxTypePurchaseIn || txn.Quantity != 50 {
		t.Fatalf("unexpected transaction: %+v", txn)
	}

	// 再次入库累加到同一行
	if err := svc.Inbound(context.Background(), InboundRequest{
		MaterialID:    mat.ID,
		WarehouseID:   wh.ID,
		Quantity:      25,
		ReferenceType: "PO",
		ReferenceID:   "po-test-002",
	}, "tester"); err != nil {
		t.Fatalf("second inbound failed: %v", err)
	}
	if err := db.Where("material_id = ? AND warehouse_id = ?", mat.ID, wh.ID).First(&inv).Error; err != nil {
		t.Fatalf("failed to reload inventory: %v", err)
	}
	if inv.Quantity != 75 {
		t.Fatalf("expected accumulated qty 75, got %v", inv.Quantity)
	}
}

func TestAdjustRejectsNegativeResult(t *testing.T) {
	db, svc := setupInventoryTest(t)
	mat := testutil.SeedMaterial(t, db, "MAT-001", "铝型材")
	wh := testutil.SeedWarehouse(t, db, "WH-01", "主仓")
	testutil.SeedInventory(t, db, mat.ID, wh.ID, 10)

	err := svc.Adjust(context.Background(), AdjustRequest{
		MaterialID:  mat.ID,
		WarehouseID: wh.ID,
		AdjustQty:   -15,
		Reason:      "盘亏",
	}, "tester")

	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	var inv entity.Inventory
	db.Where("material_id = ?", mat.ID).First(&inv)
	if inv.Quantity != 10 {
		t.Fatalf("failed adjust must not change stock, got %v", inv.Quantity)
	}
}

// 盘亏不得把在库量调到活跃预留量之下，否则已预留数量失去保障
func TestAdjustCannotUndercutReservations(t *testing.T) {
	db, svc := setupInventoryTest(t)
	repos := repository.NewRepositories(db)
	reservation := NewReservationService(repos.Reservation, repos.Inventory, repos.WorkOrder, repos.Audit, db, zap.NewNop())

	mat := testutil.SeedMaterial(t, db, "MAT-001", "铝型材")
	wh := testutil.SeedWarehouse(t, db, "WH-01", "主仓")
	testutil.SeedInventory(t, db, mat.ID, wh.ID, 100)
	wo := testutil.SeedWorkOrder(t, db, mat.ID, wh.ID, 1)

	if _, err := reservation.Reserve(context.Background(), wo.ID, ReserveRequest{
		WarehouseID: wh.ID,
		Lines:       []ReserveLine{{MaterialID: mat.ID, Quantity: 60}},
	}, "tester"); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	err := svc.Adjust(context.Background(), AdjustRequest{
		MaterialID:  mat.ID,
		WarehouseID: wh.ID,
		AdjustQty:   -50,
		Reason:      "盘亏",
	}, "tester")

	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}

	// 调到预留线以上可以
	if err := svc.Adjust(context.Background(), AdjustRequest{
		MaterialID:  mat.ID,
		WarehouseID: wh.ID,
		AdjustQty:   -30,
		Reason:      "盘亏",
	}, "tester"); err != nil {
		t.Fatalf("adjust above reservation line must succeed: %v", err)
	}
}

// 净可用量跨仓库汇总在库，再扣除活跃预留
func TestNetAvailableAcrossWarehouses(t *testing.T) {
	db, svc := setupInventoryTest(t)
	mat := testutil.SeedMaterial(t, db, "MAT-001", "铝型材")
	wh1 := testutil.SeedWarehouse(t, db, "WH-01", "主仓")
	wh2 := testutil.SeedWarehouse(t, db, "WH-02", "备仓")
	testutil.SeedInventory(t, db, mat.ID, wh1.ID, 40)
	testutil.SeedInventory(t, db, mat.ID, wh2.ID, 60)

	available, err := svc.NetAvailable(context.Background(), mat.ID)
	if err != nil {
		t.Fatalf("net available failed: %v", err)
	}
	if available != 100 {
		t.Fatalf("expected 100 across warehouses, got %v", available)
	}
}

func TestNetAvailableUnknownMaterial(t *testing.T) {
	_, svc := setupInventoryTest(t)

	_, err := svc.NetAvailable(context.Background(), "00000000-0000-0000-0000-000000000000")

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
