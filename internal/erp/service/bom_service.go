package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const bomCacheTTL = 10 * time.Minute

type BOMService struct {
	bomRepo       *repository.BOMRepository
	materialRepo  *repository.MaterialRepository
	woRepo        *repository.WorkOrderRepository
	inventoryRepo *repository.InventoryRepository
	resRepo       *repository.ReservationRepository
	rdb           *redis.Client
}

func NewBOMService(
	bomRepo *repository.BOMRepository,
	materialRepo *repository.MaterialRepository,
	woRepo *repository.WorkOrderRepository,
	inventoryRepo *repository.InventoryRepository,
	resRepo *repository.ReservationRepository,
	rdb *redis.Client,
) *BOMService {
	return &BOMService{
		bomRepo:       bomRepo,
		materialRepo:  materialRepo,
		woRepo:        woRepo,
		inventoryRepo: inventoryRepo,
		resRepo:       resRepo,
		rdb:           rdb,
	}
}

type CreateBOMRequest struct {
	ProductID   string `json:"product_id" binding:"required"`
	Version     string `json:"version" binding:"required"`
	Description string `json:"description"`
	Items       []struct {
		MaterialID string  `json:"material_id" binding:"required"`
		Quantity   float64 `json:"quantity" binding:"required,gt=0"`
		Unit       string  `json:"unit"`
		Position   string  `json:"position"`
	} `json:"items" binding:"required,min=1,dive"`
}

func (s *BOMService) Create(ctx context.Context, req CreateBOMRequest, userID string) (*entity.BOMHeader, error) {
	if _, err := s.materialRepo.GetByID(req.ProductID); err != nil {
		return nil, &NotFoundError{Entity: "产品", ID: req.ProductID}
	}

	header := &entity.BOMHeader{
		ID:          uuid.New().String(),
		ProductID:   req.ProductID,
		Version:     req.Version,
		Status:      entity.BOMStatusDraft,
		Description: req.Description,
		CreatedBy:   normalizeActor(userID),
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &ValidationError{Message: fmt.Sprintf("BOM行 %d 单位用量必须大于0", i+1)}
		}
		unit := item.Unit
		if unit == "" {
			unit = entity.MaterialUnitPCS
		}
		header.Items = append(header.Items, entity.BOMItem{
			ID:          uuid.New().String(),
			BOMHeaderID: header.ID,
			MaterialID:  item.MaterialID,
			Sequence:    i + 1,
			Quantity:    item.Quantity,
			Unit:        unit,
			Position:    item.Position,
		})
	}

	if err := s.bomRepo.CreateHeader(header); err != nil {
		return nil, fmt.Errorf("创建BOM失败: %w", err)
	}
	s.invalidateCache(ctx, req.ProductID)
	return header, nil
}

// Release 发布BOM，发布后才参与展开
func (s *BOMService) Release(ctx context.Context, id, userID string) error {
	header, err := s.bomRepo.GetHeaderByID(id)
	if err != nil {
		return &NotFoundError{Entity: "BOM", ID: id}
	}
	if header.Status == entity.BOMStatusReleased {
		return &ValidationError{Message: "BOM已发布"}
	}
	if err := s.bomRepo.Release(id, normalizeActor(userID)); err != nil {
		return fmt.Errorf("发布BOM失败: %w", err)
	}
	s.invalidateCache(ctx, header.ProductID)
	return nil
}

func (s *BOMService) GetByID(id string) (*entity.BOMHeader, error) {
	header, err := s.bomRepo.GetHeaderByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "BOM", ID: id}
		}
		return nil, err
	}
	return header, nil
}

func (s *BOMService) ListByProduct(productID string) ([]entity.BOMHeader, error) {
	return s.bomRepo.ListByProduct(productID)
}

// MaterialRequirement BOM展开后的物料需求，同一物料跨行项、跨路径聚合为一行
type MaterialRequirement struct {
	MaterialID     string  `json:"material_id"`
	MaterialCode   string  `json:"material_code"`
	MaterialName   string  `json:"material_name"`
	Unit           string  `json:"unit"`
	RequiredQty    float64 `json:"required_qty"`
	NetAvailable   float64 `json:"net_available"`
	Shortage       float64 `json:"shortage"`
	FulfillmentPct float64 `json:"fulfillment_pct"`
}

// ExplodeSummary 展开汇总。FulfillmentPct 为各物料满足率的
// 未加权平均（沿用简单平均口径，非按需求量加权）。
type ExplodeSummary struct {
	MaterialCount      int     `json:"material_count"`
	TotalShortage      float64 `json:"total_shortage"`
	FulfillmentPct     float64 `json:"fulfillment_pct"`
	CanStartProduction bool    `json:"can_start_production"`
}

// Explode 展开工单的多级BOM，计算聚合物料需求与缺口。纯读，无副作用。
func (s *BOMService) Explode(ctx context.Context, workOrderID string) ([]MaterialRequirement, *ExplodeSummary, error) {
	wo, err := s.woRepo.GetByID(workOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, &NotFoundError{Entity: "工单", ID: workOrderID}
		}
		return nil, nil, fmt.Errorf("读取工单失败: %w", err)
	}
	if len(wo.Items) == 0 {
		return nil, nil, &ValidationError{Message: "工单没有行项"}
	}

	required := make(map[string]float64)
	for _, item := range wo.Items {
		onPath := map[string]bool{}
		if err := s.expand(ctx, item.ProductID, item.Quantity, onPath, required); err != nil {
			return nil, nil, err
		}
	}

	materialIDs := make([]string, 0, len(required))
	for id := range required {
		materialIDs = append(materialIDs, id)
	}
	sort.Strings(materialIDs)

	var (
		requirements []MaterialRequirement
		totalPct     float64
		totalShort   float64
	)
	for _, matID := range materialIDs {
		mat, err := s.materialRepo.GetByID(matID)
		if err != nil {
			return nil, nil, &NotFoundError{Entity: "物料", ID: matID}
		}

		reqQty := required[matID]
		available, err := s.netAvailable(matID)
		if err != nil {
			return nil, nil, fmt.Errorf("计算可用量失败: %w", err)
		}

		shortage := reqQty - available
		if shortage < 0 {
			shortage = 0
		}
		pct := fulfillmentPct(reqQty, available)

		requirements = append(requirements, MaterialRequirement{
			MaterialID:     matID,
			MaterialCode:   mat.Code,
			MaterialName:   mat.Name,
			Unit:           mat.Unit,
			RequiredQty:    reqQty,
			NetAvailable:   available,
			Shortage:       shortage,
			FulfillmentPct: pct,
		})
		totalPct += pct
		totalShort += shortage
	}

	summary := &ExplodeSummary{
		MaterialCount:      len(requirements),
		TotalShortage:      totalShort,
		CanStartProduction: totalShort == 0,
	}
	if len(requirements) > 0 {
		summary.FulfillmentPct = totalPct / float64(len(requirements))
	} else {
		summary.FulfillmentPct = 100
	}
	return requirements, summary, nil
}

// expand 递归展开。有已发布BOM的子物料继续向下展开（需求落在其组件上），
// 无BOM的物料作为叶子累加需求。onPath 检测循环引用。
func (s *BOMService) expand(ctx context.Context, productID string, qty float64, onPath map[string]bool, required map[string]float64) error {
	if onPath[productID] {
		path := make([]string, 0, len(onPath)+1)
		for id := range onPath {
			path = append(path, id)
		}
		sort.Strings(path)
		return &BOMCycleError{ProductID: productID, Path: append(path, productID)}
	}

	header, err := s.releasedBOM(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 叶子物料：无已发布BOM，直接累加需求
			required[productID] += qty
			return nil
		}
		return fmt.Errorf("读取BOM失败: %w", err)
	}

	onPath[productID] = true
	defer delete(onPath, productID)

	for _, item := range header.Items {
		if err := s.expand(ctx, item.MaterialID, item.Quantity*qty, onPath, required); err != nil {
			return err
		}
	}
	return nil
}

// netAvailable 在库总量减去活跃预留量，逐次全量扫描，不走缓存
func (s *BOMService) netAvailable(materialID string) (float64, error) {
	onHand, err := s.inventoryRepo.GetTotalOnHand(materialID)
	if err != nil {
		return 0, err
	}
	reserved, err := s.resRepo.SumActiveByMaterial(materialID)
	if err != nil {
		return 0, err
	}
	return onHand - reserved, nil
}

// fulfillmentPct 需求为0时定义为100%，避免除零
func fulfillmentPct(required, available float64) float64 {
	if required <= 0 {
		return 100
	}
	if available <= 0 {
		return 0
	}
	pct := available / required * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// releasedBOM 读取产品最新已发布BOM，经Redis缓存。
// BOM属读多写少的基础数据，可用量永远不缓存。
func (s *BOMService) releasedBOM(ctx context.Context, productID string) (*entity.BOMHeader, error) {
	key := bomCacheKey(productID)
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, key).Result()
		if err == nil {
			var header entity.BOMHeader
			if jsonErr := json.Unmarshal([]byte(cached), &header); jsonErr == nil {
				return &header, nil
			}
		}
	}

	header, err := s.bomRepo.GetReleasedByProduct(productID)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if data, jsonErr := json.Marshal(header); jsonErr == nil {
			s.rdb.Set(ctx, key, data, bomCacheTTL)
		}
	}
	return header, nil
}

func (s *BOMService) invalidateCache(ctx context.Context, productID string) {
	if s.rdb != nil {
		s.rdb.Del(ctx, bomCacheKey(productID))
	}
}

func bomCacheKey(productID string) string {
	return "bom:released:" + productID
}
