package repository

import (
	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuditRepository 审计日志仓库
type AuditRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db, logger: zap.L()}
}

func (r *AuditRepository) Create(log *entity.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	return r.db.Create(log).Error
}

// Log 便捷记录审计日志。审计是尽力而为的可观测性手段，
// 写入失败只记日志，绝不回滚主事务。
func (r *AuditRepository) Log(actor, action, entityType, entityID, referenceID string, oldValue, newValue entity.JSONB) {
	log := &entity.AuditLog{
		ID:          uuid.New().String(),
		Actor:       actor,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		OldValue:    oldValue,
		NewValue:    newValue,
		ReferenceID: referenceID,
	}
	if err := r.db.Create(log).Error; err != nil {
		r.logger.Warn("审计日志写入失败",
			zap.String("action", action),
			zap.String("entity_id", entityID),
			zap.Error(err))
	}
}

// FindByEntity 查询某实体的审计日志
func (r *AuditRepository) FindByEntity(entityType, entityID string, page, size int) ([]entity.AuditLog, int64, error) {
	var items []entity.AuditLog
	var total int64

	query := r.db.Model(&entity.AuditLog{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	err := query.Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).Find(&items).Error
	return items, total, err
}

// FindByReference 按引用单据（如工单）查询审计日志
func (r *AuditRepository) FindByReference(referenceID string) ([]entity.AuditLog, error) {
	var items []entity.AuditLog
	err := r.db.Where("reference_id = ?", referenceID).Order("created_at").Find(&items).Error
	return items, err
}
