package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/service"
	"github.com/bitfantasy/nimo-erp/internal/erp/testutil"
	"go.uber.org/zap"
)

func setupWorkOrderTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, nil, nil, zap.NewNop())
	handlers := NewHandlers(services)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1/erp")
	api.POST("/work-orders", handlers.WorkOrder.Create)
	api.GET("/work-orders/:id", handlers.WorkOrder.Get)
	api.GET("/work-orders/:id/requirements", handlers.WorkOrder.Explode)
	api.POST("/work-orders/:id/reserve", handlers.WorkOrder.Reserve)
	api.POST("/work-orders/:id/release", handlers.WorkOrder.Release)
	api.POST("/work-orders/:id/consume", handlers.WorkOrder.Consume)
	api.GET("/work-orders/:id/material-status", handlers.WorkOrder.MaterialStatus)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestWorkOrderReserveFlow(t *testing.T) {
	env := setupWorkOrderTest(t)
	token := testutil.DefaultTestToken()

	mat := testutil.SeedMaterial(t, env.DB, "MAT-001", "外壳")
	wh := testutil.SeedWarehouse(t, env.DB, "WH-01", "主仓")
	testutil.SeedInventory(t, env.DB, mat.ID, wh.ID, 100)

	// 创建工单
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/erp/work-orders", map[string]interface{}{
		"warehouse_id": wh.ID,
		"items": []map[string]interface{}{
			{"product_id": mat.ID, "quantity": 10},
		},
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	woID := resp["data"].(map[string]interface{})["id"].(string)

	// 预留
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/erp/work-orders/"+woID+"/reserve", map[string]interface{}{
		"warehouse_id": wh.ID,
		"lines": []map[string]interface{}{
			{"material_id": mat.ID, "quantity": 60},
		},
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("reserve: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// 物料状态
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/erp/work-orders/"+woID+"/material-status", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("material-status: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["total_reserved"].(float64) != 60 {
		t.Fatalf("expected total_reserved 60, got %v", data["total_reserved"])
	}
	if data["remaining_reserved"].(float64) != 60 {
		t.Fatalf("expected remaining_reserved 60, got %v", data["remaining_reserved"])
	}
}

// 可用量不足返回409并携带具体缺口信息
func TestWorkOrderReserveConflict(t *testing.T) {
	env := setupWorkOrderTest(t)
	token := testutil.DefaultTestToken()

	mat := testutil.SeedMaterial(t, env.DB, "MAT-001", "外壳")
	wh := testutil.SeedWarehouse(t, env.DB, "WH-01", "主仓")
	testutil.SeedInventory(t, env.DB, mat.ID, wh.ID, 20)
	wo := testutil.SeedWorkOrder(t, env.DB, mat.ID, wh.ID, 1)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/erp/work-orders/"+wo.ID+"/reserve", map[string]interface{}{
		"warehouse_id": wh.ID,
		"lines": []map[string]interface{}{
			{"material_id": mat.ID, "quantity": 50},
		},
	}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 20001 {
		t.Fatalf("expected business code 20001, got %v", resp["code"])
	}
	details := resp["details"].(map[string]interface{})
	if details["required"].(float64) != 50 || details["available"].(float64) != 20 {
		t.Fatalf("expected required=50 available=20, got %+v", details)
	}
}

func TestWorkOrderExplodeEndpoint(t *testing.T) {
	env := setupWorkOrderTest(t)
	token := testutil.DefaultTestToken()

	product := testutil.SeedMaterial(t, env.DB, "PROD-001", "整机")
	comp := testutil.SeedMaterial(t, env.DB, "COMP-001", "外壳")
	wh := testutil.SeedWarehouse(t, env.DB, "WH-01", "主仓")
	testutil.SeedReleasedBOM(t, env.DB, product.ID, map[string]float64{comp.ID: 2})
	testutil.SeedInventory(t, env.DB, comp.ID, wh.ID, 30)
	wo := testutil.SeedWorkOrder(t, env.DB, product.ID, wh.ID, 10)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/erp/work-orders/"+wo.ID+"/requirements", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	summary := data["summary"].(map[string]interface{})
	if summary["material_count"].(float64) != 1 {
		t.Fatalf("expected 1 material, got %v", summary["material_count"])
	}
	if !summary["can_start_production"].(bool) {
		t.Fatalf("expected startable with 20 required vs 30 available, summary: %+v", summary)
	}
}

func TestWorkOrderRequiresAuth(t *testing.T) {
	env := setupWorkOrderTest(t)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/erp/work-orders/some-id", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

func TestWorkOrderNotFound(t *testing.T) {
	env := setupWorkOrderTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/erp/work-orders/00000000-0000-0000-0000-000000000000", nil, token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 10002 {
		t.Fatalf("expected business code 10002, got %v", resp["code"])
	}
}
