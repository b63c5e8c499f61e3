package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/testutil"
)

func TestConsumeDeductsStockAndReservation(t *testing.T) {
	env := setupReservationTest(t)
	mat := testutil.SeedMaterial(t, env.db, "MAT-001", "电容10uF")
	wh := testutil.SeedWarehouse(t, env.db, "WH-01", "主仓")
	testutil.SeedInventory(t, env.db, mat.ID, wh.ID, 100)
	wo := testutil.SeedWorkOrder(t, env.db, mat.ID, wh.ID, 1)

	ctx := context.Background()
	if _, err := env.reservation.Reserve(ctx, wo.ID, ReserveRequest{
		WarehouseID: wh.ID,
		Lines:       []ReserveLine{{MaterialID: mat.ID, Quantity: 60}},
	}, "tester"); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	consumptions, err := env.consumption.Consume(ctx, wo.ID, ConsumeRequest{
		Lines: []ConsumeLine{{MaterialID: mat.ID, Quantity: 60}},
	}, "tester")
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if len(consumptions) != 1 || consumptions[0].Quantity != 60 {
		t.Fatalf("unexpected consumptions: %+v", consumptions)
	}

	inv := env.inventoryOf(t, mat.ID, wh.ID)
	if inv.Quantity != 40 || inv.ReservedQty != 0 || inv.AvailableQty != 40 {
		t.Fatalf("expected qty=40 reserved=0 available=40, got qty=%v reserved=%v available=%v",
			inv.Quantity, inv.ReservedQty, inv.AvailableQty)
	}

	var res entity.MaterialReservation
	if err := env.db.Where("work_order_id = ?", wo.ID).First(&res).Error; err != nil {
		t.Fatalf("failed to load reservation: %v", err)
	}
	if res.Status != entity.ReservationStatusConsumed || res.Quantity != 0 || res.ConsumedQty != 60 {
		t.Fatalf("unexpected reservation state: %+v", res)
	}

	// 消耗必须落一条生产领料流水
	var txn entity.InventoryTransaction
	if err := env.db.Where("reference_id = ? AND transaction_type = ?", wo.ID, entity.TxTypeProductionOut).
		First(&txn).Error; err != nil {
		t.Fatalf("expected PRODUCTION_OUT transaction: %v", err)
	}
	if txn.Quantity != -60 {
		t.Fatalf("expected transaction quantity -60, got %v", txn.Quantity)
	}
}

func TestConsumePartialKeepsReservationActive(t *testing.T) {
	env := setupReservationTest(t)
	mat := testutil.SeedMaterial(t, env.db, "MAT-001", "电容10uF")
	wh := testutil.SeedWarehouse(t, env.db, "WH-01", "主仓")
	testutil.SeedInventory(t, env.db, mat.ID, wh.ID, 100)
	wo := testutil.SeedWorkOrder(t, env.db, mat.ID, wh.ID, 1)

	ctx := context.Background()
	if _, err := env.reservation.Reserve(ctx, wo.ID, ReserveRequest{
		WarehouseID: wh.ID,
		Lines:       []ReserveLine{{MaterialID: mat.ID, Quantity: 50}},
	}, "tester"); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if _, err := env.consumption.Consume(ctx, wo.ID, ConsumeRequest{
		Lines: []ConsumeLine{{MaterialID: mat.ID, Quantity: 20}},
	}, "tester"); err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	var res entity.MaterialReservation
	if err := env.db.Where("work_order_id = ?", wo.ID).First(&res).Error; err != nil {
		t.Fatalf("failed to load reservation: %v", err)
	}
	if res.Status != entity.ReservationStatusPartiallyConsumed || res.Quantity != 30 || res.ConsumedQty != 20 {
		t.Fatalf("unexpected reservation state: %+v", res)
	}

	inv := env.inventoryOf(t, mat.ID, wh.ID)
	if inv.Quantity != 80 || inv.ReservedQty != 30 {
		t.Fatalf("expected qty=80 reserved=30, got qty=%v reserved=%v", inv.Quantity, inv.ReservedQty)
	}
	env.assertCounterMatchesScan(t, mat.ID, wh.ID)
}

func TestConsumeMoreThanReserved(t *testing.T) {
	env := setupReservationTest(t)
	mat := testutil.SeedMaterial(t, env.db, "MAT-001", "电容10uF")
	wh := testutil.SeedWarehouse(t, env.db, "WH-01", "主仓")
	testutil.SeedInventory(t, env.db, mat.ID, wh.ID, 100)
	wo := testutil.SeedWorkOrder(t, env.db, mat.ID, wh.ID, 1)

	ctx := context.Background()
	if _, err := env.reservation.Reserve(ctx, wo.ID, ReserveRequest{
		WarehouseID: wh.ID,
		Lines:       []ReserveLine{{MaterialID: mat.ID, Quantity: 30}},
	}, "tester"); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	_, err := env.consumption.Consume(ctx, wo.ID, ConsumeRequest{
		Lines: []ConsumeLine{{MaterialID: mat.ID, Quantity: 40}},
	}, "tester")

	var insufficient *InsufficientReservedError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientReservedError, got %v", err)
	}
	if insufficient.Requested != 40 || insufficient.Reserved != 30 {
		t.Fatalf("expected requested=40 reserved=30, got %+v", insufficient)
	}

	// 失败后库存与预留均不变
	inv := env.inventoryOf(t, mat.ID, wh.ID)
	if inv.Quantity != 100 || inv.ReservedQty != 30 {
		t.Fatalf("failed consume must not change inventory, got qty=%v reserved=%v", inv.Quantity, inv.ReservedQty)
	}
}

// 释放后再消耗：预留已不活跃，按不存在处理
func TestConsumeAfterRelease(t *testing.T) {
	env := setupReservationTest(t)
	mat := testutil.SeedMaterial(t, env.db, "MAT-001", "电容10uF")
	wh := testutil.SeedWarehouse(t, env.db, "WH-01", "主仓")
	testutil.SeedInventory(t, env.db, mat.ID, wh.ID, 100)
	wo := testutil.SeedWorkOrder(t, env.db, mat.ID, wh.ID, 1)

	ctx := context.Background()
	if _, err := env.reservation.Reserve(ctx, wo.ID, ReserveRequest{
		WarehouseID: wh.ID,
		Lines:       []ReserveLine{{MaterialID: mat.ID, Quantity: 30}},
	}, "tester"); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if _, err := env.reservation.Release(ctx, wo.ID, "tester"); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	_, err := env.consumption.Consume(ctx, wo.ID, ConsumeRequest{
		Lines: []ConsumeLine{{MaterialID: mat.ID, Quantity: 10}},
	}, "tester")

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

// 守恒：期初在库 = 期末在库 + 累计消耗，预留/释放不改变总量
func TestStockConservation(t *testing.T) {
	env := setupReservationTest(t)
	mat := testutil.SeedMaterial(t, env.db, "MAT-001", "电容10uF")
	wh := testutil.SeedWarehouse(t, env.db, "WH-01", "主仓")
	testutil.SeedInventory(t, env.db, mat.ID, wh.ID, 100)
	wo := testutil.SeedWorkOrder(t, env.db, mat.ID, wh.ID, 1)

	ctx := context.Background()
	if _, err := env.reservation.Reserve(ctx, wo.ID, ReserveRequest{
		WarehouseID: wh.ID,
		Lines:       []ReserveLine{{MaterialID: mat.ID, Quantity: 70}},
	}, "tester"); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if _, err := env.consumption.Consume(ctx, wo.ID, ConsumeRequest{
		Lines: []ConsumeLine{{MaterialID: mat.ID, Quantity: 40}},
	}, "tester"); err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if _, err := env.reservation.Release(ctx, wo.ID, "tester"); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	inv := env.inventoryOf(t, mat.ID, wh.ID)
	status, err := env.reservation.Status(ctx, wo.ID)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if inv.Quantity+status.TotalConsumed != 100 {
		t.Fatalf("conservation violated: on-hand %v + consumed %v != 100", inv.Quantity, status.TotalConsumed)
	}
	if inv.ReservedQty != 0 {
		t.Fatalf("expected no active reservations, counter=%v", inv.ReservedQty)
	}
}
