package audit

import (
	"context"
	"time"

	"github.com/authcore/internal/model"
	"github.com/authcore/pkg/dal"
	"github.com/authcore/pkg/errors"
	"github.com/authcore/pkg/logger"
	"go.uber.org/zap"
)

// maxLogs 无限定查询时返回的最大条数
const maxLogs = 1000

// Repository 审计日志仓储接口。日志只允许追加，Update/Delete 永远被拒绝。
type Repository interface {
	Create(ctx context.Context, log *model.AuditLog) error
	Update(ctx context.Context, log *model.AuditLog) error
	Delete(ctx context.Context, id int64) error
	FindAll(ctx context.Context) ([]model.AuditLog, error)
	FindByUserID(ctx context.Context, userID int64, limit int) ([]model.AuditLog, error)
	FindByOperation(ctx context.Context, operation string, limit int) ([]model.AuditLog, error)
	FindByTimeRange(ctx context.Context, start, end time.Time) ([]model.AuditLog, error)
	FindByResult(ctx context.Context, result model.OperationResult, limit int) ([]model.AuditLog, error)
	Count(ctx context.Context) (int64, error)
}

// repository 审计日志仓储实现
type repository struct {
	*dal.BaseRepository[model.AuditLog]
}

// NewRepository 创建审计日志仓储
func NewRepository() Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.AuditLog](),
	}
}

// orderRecent 统一的时间倒序
const orderRecent = "operation_time DESC, id DESC"

// Create 追加一条审计日志
func (r *repository) Create(ctx context.Context, log *model.AuditLog) error {
	return r.BaseRepository.Create(ctx, log)
}

// Update 审计日志不可修改，调用即拒绝
func (r *repository) Update(ctx context.Context, log *model.AuditLog) error {
	logger.Warn("拒绝修改审计日志", zap.Int64("id", log.ID))
	return errors.ErrAuditImmutable
}

// Delete 审计日志不可删除，调用即拒绝
func (r *repository) Delete(ctx context.Context, id int64) error {
	logger.Warn("拒绝删除审计日志", zap.Int64("id", id))
	return errors.ErrAuditImmutable
}

// FindAll 查询全部日志，按时间倒序，最多返回1000条
func (r *repository) FindAll(ctx context.Context) ([]model.AuditLog, error) {
	return r.BaseRepository.FindAll(ctx, nil,
		dal.WithOrder(orderRecent), dal.WithLimit(maxLogs))
}

// FindByUserID 按用户查询
func (r *repository) FindByUserID(ctx context.Context, userID int64, limit int) ([]model.AuditLog, error) {
	return r.BaseRepository.FindAll(ctx, map[string]interface{}{"user_id": userID},
		dal.WithOrder(orderRecent), dal.WithLimit(limit))
}

// FindByOperation 按操作类型查询
func (r *repository) FindByOperation(ctx context.Context, operation string, limit int) ([]model.AuditLog, error) {
	return r.BaseRepository.FindAll(ctx, map[string]interface{}{"operation": operation},
		dal.WithOrder(orderRecent), dal.WithLimit(limit))
}

// FindByTimeRange 按时间范围查询（闭区间）
func (r *repository) FindByTimeRange(ctx context.Context, start, end time.Time) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	err := r.DB().WithContext(ctx).
		Where("operation_time BETWEEN ? AND ?", start, end).
		Order(orderRecent).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// FindByResult 按操作结果查询
func (r *repository) FindByResult(ctx context.Context, result model.OperationResult, limit int) ([]model.AuditLog, error) {
	return r.BaseRepository.FindAll(ctx, map[string]interface{}{"result": result},
		dal.WithOrder(orderRecent), dal.WithLimit(limit))
}

// Count 统计日志总数
func (r *repository) Count(ctx context.Context) (int64, error) {
	return r.BaseRepository.Count(ctx, nil)
}
