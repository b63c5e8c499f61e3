package handler

import (
	"errors"
	"net/http"

	"github.com/bitfantasy/nimo-erp/internal/erp/service"
	"github.com/gin-gonic/gin"
)

// Handlers ERP HTTP处理器集合
type Handlers struct {
	Material  *MaterialHandler
	BOM       *BOMHandler
	WorkOrder *WorkOrderHandler
	Inventory *InventoryHandler
	Purchase  *PurchaseHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Material:  NewMaterialHandler(services.Material),
		BOM:       NewBOMHandler(services.BOM),
		WorkOrder: NewWorkOrderHandler(services.WorkOrder, services.BOM, services.Reservation, services.Consumption),
		Inventory: NewInventoryHandler(services.Inventory),
		Purchase:  NewPurchaseHandler(services.Match),
	}
}

// respondErr 按错误类别映射HTTP状态码，并携带具体实体与数量，
// 便于前端渲染可操作的提示而非笼统失败
func respondErr(c *gin.Context, err error) {
	var (
		notFound     *service.NotFoundError
		insufficient *service.InsufficientStockError
		reserved     *service.InsufficientReservedError
		cycle        *service.BOMCycleError
		validation   *service.ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{
			"code":    20001,
			"message": err.Error(),
			"details": gin.H{
				"material_id": insufficient.MaterialID,
				"required":    insufficient.Required,
				"available":   insufficient.Available,
			},
		})
	case errors.As(err, &reserved):
		c.JSON(http.StatusConflict, gin.H{
			"code":    20002,
			"message": err.Error(),
			"details": gin.H{
				"work_order_id": reserved.WorkOrderID,
				"material_id":   reserved.MaterialID,
				"requested":     reserved.Requested,
				"reserved":      reserved.Reserved,
			},
		})
	case errors.As(err, &cycle):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": 20003, "message": err.Error()})
	case errors.Is(err, service.ErrBusy):
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": 30001, "message": err.Error(), "retryable": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
	}
}

func actorFrom(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		if s, ok := userID.(string); ok {
			return s
		}
	}
	return ""
}
