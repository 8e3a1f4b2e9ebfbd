package audit

import (
	"strconv"
	"time"

	"github.com/authcore/internal/model"
	"github.com/authcore/internal/session"
	"github.com/authcore/pkg/errors"
	"github.com/authcore/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// timeLayout 查询参数的时间格式
const timeLayout = "2006-01-02 15:04:05"

// Controller 审计日志控制器。只提供查询与导出，没有写入口。
type Controller struct {
	svc *Service
}

// NewController 创建审计日志控制器
func NewController(svc *Service) *Controller {
	return &Controller{svc: svc}
}

// RegisterRoutes 注册路由
func (c *Controller) RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler) {
	g := r.Group("/audit-logs", authMiddleware)
	g.Get("", c.list)
	g.Get("/count", c.count)
	g.Get("/export", c.export)
}

// list 按查询参数检索审计日志，不带参数时返回最近的全部日志
func (c *Controller) list(ctx *fiber.Ctx) error {
	p := session.FromCtx(ctx)
	uctx := WithClientIP(ctx.UserContext(), ctx.IP())
	limit := ctx.QueryInt("limit", 100)

	if v := ctx.Query("userId"); v != "" {
		userID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return response.BadRequest(ctx, "无效的用户ID")
		}
		return response.Success(ctx, c.svc.GetLogsByUserID(uctx, p, userID, limit))
	}
	if v := ctx.Query("operation"); v != "" {
		return response.Success(ctx, c.svc.GetLogsByOperation(uctx, p, v, limit))
	}
	if v := ctx.Query("result"); v != "" {
		result := model.OperationResult(v)
		if !result.Valid() {
			return response.BadRequest(ctx, "无效的操作结果: "+v)
		}
		return response.Success(ctx, c.svc.GetLogsByResult(uctx, p, result, limit))
	}
	if from, to := ctx.Query("from"), ctx.Query("to"); from != "" && to != "" {
		start, err := time.ParseInLocation(timeLayout, from, time.Local)
		if err != nil {
			return response.BadRequest(ctx, "无效的起始时间")
		}
		end, err := time.ParseInLocation(timeLayout, to, time.Local)
		if err != nil {
			return response.BadRequest(ctx, "无效的结束时间")
		}
		return response.Success(ctx, c.svc.GetLogsByTimeRange(uctx, p, start, end))
	}

	return response.Success(ctx, c.svc.GetAllLogs(uctx, p))
}

// count 审计日志总数
func (c *Controller) count(ctx *fiber.Ctx) error {
	return response.Success(ctx, fiber.Map{"count": c.svc.GetLogCount(ctx.UserContext())})
}

// export 导出文本报表
func (c *Controller) export(ctx *fiber.Ctx) error {
	p := session.FromCtx(ctx)
	uctx := WithClientIP(ctx.UserContext(), ctx.IP())

	logs := c.svc.GetAllLogs(uctx, p)
	report := c.svc.ExportLogs(uctx, p, logs)
	if report == "" {
		return response.FromError(ctx, errors.ErrPermissionDenied)
	}

	ctx.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return ctx.SendString(report)
}
