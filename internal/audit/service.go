package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/authcore/internal/model"
	"github.com/authcore/internal/session"
	"github.com/authcore/pkg/errors"
	"github.com/authcore/pkg/logger"
	"go.uber.org/zap"
)

type ctxKey int

const ctxKeyClientIP ctxKey = iota

// WithClientIP 把调用方IP写入上下文，记录日志时取用
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyClientIP, ip)
}

// clientIP 从上下文取调用方IP
func clientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ctxKeyClientIP).(string); ok && ip != "" {
		return ip
	}
	return "127.0.0.1"
}

// Service 审计服务。负责追加日志与各类检索，自身的检索操作同样受门禁保护。
type Service struct {
	repo Repository
	gate *Gate
}

// NewService 创建审计服务
func NewService(repo Repository) *Service {
	s := &Service{repo: repo}
	s.gate = NewGate(s)
	return s
}

// Gate 返回审计门禁，供其他服务包装受保护操作
func (s *Service) Gate() *Gate {
	return s.gate
}

// Record 追加一条审计日志。主体为空时记为匿名操作。
func (s *Service) Record(ctx context.Context, p *session.Principal, operation, target, detail string, result model.OperationResult) {
	entry := &model.AuditLog{
		UserID:    0,
		Username:  "Anonymous",
		Operation: operation,
		Target:    target,
		Detail:    detail,
		Result:    result,
		IPAddress: clientIP(ctx),
	}
	if p != nil {
		entry.UserID = p.UserID
		entry.Username = p.Username
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		// 审计写入失败不阻断业务，但必须留下痕迹
		logger.Error("审计日志写入失败",
			zap.String("operation", operation),
			zap.String("target", target),
			zap.Error(err),
		)
	}
}

// GetAllLogs 查询全部审计日志（时间倒序，最多1000条）。
// 未授权时返回空列表。
func (s *Service) GetAllLogs(ctx context.Context, p *session.Principal) []model.AuditLog {
	var logs []model.AuditLog
	err := s.gate.Protect(ctx, p, model.PermAuditView, "VIEW_AUDIT", "all", func(ctx context.Context) (string, error) {
		found, ferr := s.repo.FindAll(ctx)
		if ferr != nil {
			logger.Error("查询审计日志失败", zap.Error(ferr))
			return "", errors.WrapPersistence(ferr)
		}
		logs = found
		return fmt.Sprintf("查询%d条审计日志", len(found)), nil
	})
	if err != nil {
		return []model.AuditLog{}
	}
	return logs
}

// GetLogsByUserID 按用户查询审计日志
func (s *Service) GetLogsByUserID(ctx context.Context, p *session.Principal, userID int64, limit int) []model.AuditLog {
	var logs []model.AuditLog
	target := fmt.Sprintf("userId=%d", userID)
	err := s.gate.Protect(ctx, p, model.PermAuditView, "VIEW_AUDIT", target, func(ctx context.Context) (string, error) {
		found, ferr := s.repo.FindByUserID(ctx, userID, limit)
		if ferr != nil {
			logger.Error("查询审计日志失败", zap.Error(ferr))
			return "", errors.WrapPersistence(ferr)
		}
		logs = found
		return fmt.Sprintf("查询%d条审计日志", len(found)), nil
	})
	if err != nil {
		return []model.AuditLog{}
	}
	return logs
}

// GetLogsByOperation 按操作类型查询审计日志
func (s *Service) GetLogsByOperation(ctx context.Context, p *session.Principal, operation string, limit int) []model.AuditLog {
	var logs []model.AuditLog
	target := "operation=" + operation
	err := s.gate.Protect(ctx, p, model.PermAuditView, "VIEW_AUDIT", target, func(ctx context.Context) (string, error) {
		found, ferr := s.repo.FindByOperation(ctx, operation, limit)
		if ferr != nil {
			logger.Error("查询审计日志失败", zap.Error(ferr))
			return "", errors.WrapPersistence(ferr)
		}
		logs = found
		return fmt.Sprintf("查询%d条审计日志", len(found)), nil
	})
	if err != nil {
		return []model.AuditLog{}
	}
	return logs
}

// GetLogsByTimeRange 按时间范围查询审计日志
func (s *Service) GetLogsByTimeRange(ctx context.Context, p *session.Principal, start, end time.Time) []model.AuditLog {
	var logs []model.AuditLog
	err := s.gate.Protect(ctx, p, model.PermAuditView, "VIEW_AUDIT", "timeRange", func(ctx context.Context) (string, error) {
		found, ferr := s.repo.FindByTimeRange(ctx, start, end)
		if ferr != nil {
			logger.Error("查询审计日志失败", zap.Error(ferr))
			return "", errors.WrapPersistence(ferr)
		}
		logs = found
		return fmt.Sprintf("查询%d条审计日志", len(found)), nil
	})
	if err != nil {
		return []model.AuditLog{}
	}
	return logs
}

// GetLogsByResult 按操作结果查询审计日志
func (s *Service) GetLogsByResult(ctx context.Context, p *session.Principal, result model.OperationResult, limit int) []model.AuditLog {
	var logs []model.AuditLog
	target := "result=" + string(result)
	err := s.gate.Protect(ctx, p, model.PermAuditView, "VIEW_AUDIT", target, func(ctx context.Context) (string, error) {
		found, ferr := s.repo.FindByResult(ctx, result, limit)
		if ferr != nil {
			logger.Error("查询审计日志失败", zap.Error(ferr))
			return "", errors.WrapPersistence(ferr)
		}
		logs = found
		return fmt.Sprintf("查询%d条审计日志", len(found)), nil
	})
	if err != nil {
		return []model.AuditLog{}
	}
	return logs
}

// ExportLogs 导出审计日志为文本报表，未授权时返回空串
func (s *Service) ExportLogs(ctx context.Context, p *session.Principal, logs []model.AuditLog) string {
	var report string
	err := s.gate.Protect(ctx, p, model.PermAuditExport, "EXPORT_AUDIT", "logs", func(ctx context.Context) (string, error) {
		report = formatReport(logs)
		return fmt.Sprintf("导出%d条记录", len(logs)), nil
	})
	if err != nil {
		return ""
	}
	return report
}

// formatReport 生成文本报表
func formatReport(logs []model.AuditLog) string {
	var sb strings.Builder
	sb.WriteString("审计日志导出\n")
	sb.WriteString("导出时间: " + time.Now().Format("2006-01-02 15:04:05") + "\n")
	sb.WriteString(fmt.Sprintf("记录数量: %d\n", len(logs)))
	sb.WriteString(strings.Repeat("=", 80) + "\n\n")

	sb.WriteString(fmt.Sprintf("%-5s %-15s %-20s %-20s %-30s %-10s %-20s\n",
		"ID", "用户名", "操作", "目标", "详情", "结果", "时间"))
	sb.WriteString(strings.Repeat("-", 130) + "\n")

	for _, log := range logs {
		sb.WriteString(fmt.Sprintf("%-5d %-15s %-20s %-20s %-30s %-10s %-20s\n",
			log.ID,
			log.Username,
			log.Operation,
			log.Target,
			log.Detail,
			log.Result,
			log.OperationTime.Format("2006-01-02 15:04:05"),
		))
	}
	return sb.String()
}

// GetLogCount 统计审计日志总数
func (s *Service) GetLogCount(ctx context.Context) int64 {
	count, err := s.repo.Count(ctx)
	if err != nil {
		logger.Error("统计审计日志失败", zap.Error(err))
		return 0
	}
	return count
}
