package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/service"
	"github.com/bitfantasy/nimo-erp/internal/erp/testutil"
	"go.uber.org/zap"
)

func setupInventoryHandlerTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, nil, nil, zap.NewNop())
	handlers := NewHandlers(services)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1/erp")
	api.GET("/inventory", handlers.Inventory.List)
	api.GET("/inventory/available/:material_id", handlers.Inventory.NetAvailable)
	api.POST("/inventory/inbound", handlers.Inventory.Inbound)
	api.POST("/inventory/adjust", handlers.Inventory.Adjust)
	api.GET("/inventory/transactions", handlers.Inventory.Transactions)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestInventoryInboundAndAvailable(t *testing.T) {
	env := setupInventoryHandlerTest(t)
	token := testutil.DefaultTestToken()

	mat := testutil.SeedMaterial(t, env.DB, "MAT-001", "铝型材")
	wh := testutil.SeedWarehouse(t, env.DB, "WH-01", "主仓")

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/erp/inventory/inbound", map[string]interface{}{
		"material_id":    mat.ID,
		"warehouse_id":   wh.ID,
		"quantity":       80,
		"reference_type": "PO",
		"reference_id":   "po-http-001",
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("inbound: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/erp/inventory/available/"+mat.ID, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("available: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["net_available"].(float64) != 80 {
		t.Fatalf("expected net_available 80, got %v", data["net_available"])
	}

	// 入库流水可按引用单据查询
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/erp/inventory/transactions?reference_id=po-http-001", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("transactions: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	items := resp["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(items))
	}
}

func TestInventoryAdjustValidation(t *testing.T) {
	env := setupInventoryHandlerTest(t)
	token := testutil.DefaultTestToken()

	mat := testutil.SeedMaterial(t, env.DB, "MAT-001", "铝型材")
	wh := testutil.SeedWarehouse(t, env.DB, "WH-01", "主仓")
	testutil.SeedInventory(t, env.DB, mat.ID, wh.ID, 10)

	// 调到负数：400
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/erp/inventory/adjust", map[string]interface{}{
		"material_id":  mat.ID,
		"warehouse_id": wh.ID,
		"adjust_qty":   -15,
		"reason":       "盘亏",
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative result, got %d: %s", w.Code, w.Body.String())
	}

	// 正常盘亏：200
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/erp/inventory/adjust", map[string]interface{}{
		"material_id":  mat.ID,
		"warehouse_id": wh.ID,
		"adjust_qty":   -5,
		"reason":       "盘亏",
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}
