package audit

import (
	"context"

	"github.com/authcore/internal/model"
	"github.com/authcore/internal/session"
	"github.com/authcore/pkg/errors"
)

// Gate 审计门禁。所有受权限保护的操作统一经由 Protect 执行，
// 由此保证"每次受保护调用恰好产生一条审计日志"是结构性约束：
//   - 未通过权限检查时记 DENIED，业务函数不会执行；
//   - 业务函数返回错误时记 FAILURE；
//   - 正常完成记 SUCCESS。
type Gate struct {
	rec *Service
}

// NewGate 创建审计门禁
func NewGate(rec *Service) *Gate {
	return &Gate{rec: rec}
}

// Recorder 返回背后的审计服务
func (g *Gate) Recorder() *Service {
	return g.rec
}

// Protect 执行一次受保护操作。fn 返回写入日志的详情文本。
func (g *Gate) Protect(ctx context.Context, p *session.Principal, permCode, operation, target string, fn func(ctx context.Context) (string, error)) error {
	if !p.HasPermission(permCode) {
		g.rec.Record(ctx, p, operation, target, "权限不足", model.ResultDenied)
		if p == nil {
			return errors.ErrSessionRequired
		}
		return errors.ErrPermissionDenied
	}

	detail, err := fn(ctx)
	if err != nil {
		if detail == "" {
			detail = errors.GetMessage(err)
		}
		g.rec.Record(ctx, p, operation, target, detail, model.ResultFailure)
		return err
	}

	g.rec.Record(ctx, p, operation, target, detail, model.ResultSuccess)
	return nil
}
