package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultActor 未提供用户上下文时的默认操作者
const DefaultActor = "system"

// ErrBusy 行锁等待超时，属瞬时竞争，调用方可退避后重试
var ErrBusy = errors.New("资源竞争繁忙，请稍后重试")

// NotFoundError 实体不存在。不修正输入不可重试。
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s不存在: %s", e.Entity, e.ID)
}

// InsufficientStockError 可用库存不足，业务规则失败。
// 携带物料与具体数量，便于前端给出可操作的提示。
type InsufficientStockError struct {
	MaterialID string
	Required   float64
	Available  float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("物料 %s 可用库存不足: 需要%.4f, 可用%.4f", e.MaterialID, e.Required, e.Available)
}

// InsufficientReservedError 消耗量超过该工单对该物料的剩余预留量
type InsufficientReservedError struct {
	WorkOrderID string
	MaterialID  string
	Requested   float64
	Reserved    float64
}

func (e *InsufficientReservedError) Error() string {
	return fmt.Sprintf("工单 %s 物料 %s 预留量不足: 请求%.4f, 剩余预留%.4f",
		e.WorkOrderID, e.MaterialID, e.Requested, e.Reserved)
}

// BOMCycleError BOM配置成环，属致命配置错误，需人工修正，不自动重试
type BOMCycleError struct {
	ProductID string
	Path      []string
}

func (e *BOMCycleError) Error() string {
	return fmt.Sprintf("BOM存在循环引用: 产品 %s, 路径 %s",
		e.ProductID, strings.Join(e.Path, " -> "))
}

// ValidationError 请求参数不合法
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// normalizeActor 操作者缺省时回落到显式的系统默认值
func normalizeActor(actor string) string {
	if actor == "" {
		return DefaultActor
	}
	return actor
}

// mapLockErr 将锁等待超时映射为可重试的 ErrBusy
func mapLockErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrBusy
	}
	return err
}
