package handler

import (
	"net/http"
	"strconv"

	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/service"
	"github.com/gin-gonic/gin"
)

type WorkOrderHandler struct {
	woSvc          *service.WorkOrderService
	bomSvc         *service.BOMService
	reservationSvc *service.ReservationService
	consumptionSvc *service.ConsumptionService
}

func NewWorkOrderHandler(
	woSvc *service.WorkOrderService,
	bomSvc *service.BOMService,
	reservationSvc *service.ReservationService,
	consumptionSvc *service.ConsumptionService,
) *WorkOrderHandler {
	return &WorkOrderHandler{
		woSvc:          woSvc,
		bomSvc:         bomSvc,
		reservationSvc: reservationSvc,
		consumptionSvc: consumptionSvc,
	}
}

func (h *WorkOrderHandler) Create(c *gin.Context) {
	var req service.CreateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	wo, err := h.woSvc.Create(c.Request.Context(), req, actorFrom(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": wo})
}

func (h *WorkOrderHandler) Get(c *gin.Context) {
	wo, err := h.woSvc.GetByID(c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": wo})
}

func (h *WorkOrderHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	params := repository.WOListParams{
		Status:  c.Query("status"),
		Keyword: c.Query("keyword"),
		Page:    page,
		Size:    size,
	}
	wos, total, err := h.woSvc.List(params)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": gin.H{"items": wos, "total": total, "page": page, "size": size}})
}

// Explode 展开工单BOM，返回聚合物料需求与可开工判断
func (h *WorkOrderHandler) Explode(c *gin.Context) {
	requirements, summary, err := h.bomSvc.Explode(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": gin.H{
		"requirements": requirements,
		"summary":      summary,
	}})
}

func (h *WorkOrderHandler) Reserve(c *gin.Context) {
	var req service.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	reservations, err := h.reservationSvc.Reserve(c.Request.Context(), c.Param("id"), req, actorFrom(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": reservations})
}

func (h *WorkOrderHandler) Release(c *gin.Context) {
	released, err := h.reservationSvc.Release(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": released})
}

func (h *WorkOrderHandler) Consume(c *gin.Context) {
	var req service.ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	consumptions, err := h.consumptionSvc.Consume(c.Request.Context(), c.Param("id"), req, actorFrom(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": consumptions})
}

// MaterialStatus 工单物料状态读模型
func (h *WorkOrderHandler) MaterialStatus(c *gin.Context) {
	status, err := h.reservationSvc.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": status})
}
