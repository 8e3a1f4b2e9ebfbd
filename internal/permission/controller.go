package permission

import (
	"strconv"

	"github.com/authcore/internal/audit"
	"github.com/authcore/internal/model"
	"github.com/authcore/internal/session"
	"github.com/authcore/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// Controller 权限控制器
type Controller struct {
	svc *Service
}

// NewController 创建权限控制器
func NewController(svc *Service) *Controller {
	return &Controller{svc: svc}
}

// RegisterRoutes 注册路由
func (c *Controller) RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler) {
	g := r.Group("/permissions", authMiddleware)
	g.Post("", c.create)
	g.Put("/:id", c.update)
	g.Delete("/:id", c.delete)
	g.Get("", c.getAll)
	g.Get("/check/:code", c.check)
	g.Get("/code/:code", c.getByCode)
	g.Get("/type/:type", c.getByType)
	g.Get("/:id", c.get)
}

func (c *Controller) create(ctx *fiber.Ctx) error {
	var req CreateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.BadRequest(ctx, err.Error())
	}
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	perm, err := c.svc.Create(uctx, session.FromCtx(ctx), &req)
	if err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, perm)
}

func (c *Controller) update(ctx *fiber.Ctx) error {
	id, err := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if err != nil {
		return response.BadRequest(ctx, "无效的权限ID")
	}
	var req UpdateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.BadRequest(ctx, err.Error())
	}
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	perm, err := c.svc.Update(uctx, session.FromCtx(ctx), id, &req)
	if err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, perm)
}

func (c *Controller) delete(ctx *fiber.Ctx) error {
	id, err := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if err != nil {
		return response.BadRequest(ctx, "无效的权限ID")
	}
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	if err := c.svc.Delete(uctx, session.FromCtx(ctx), id); err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, nil)
}

func (c *Controller) getAll(ctx *fiber.Ctx) error {
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	perms := c.svc.GetAll(uctx, session.FromCtx(ctx))
	return response.Success(ctx, perms)
}

func (c *Controller) get(ctx *fiber.Ctx) error {
	id, err := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if err != nil {
		return response.BadRequest(ctx, "无效的权限ID")
	}
	perm, err := c.svc.GetByID(ctx.UserContext(), id)
	if err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, perm)
}

func (c *Controller) getByCode(ctx *fiber.Ctx) error {
	perm, err := c.svc.GetByCode(ctx.UserContext(), ctx.Params("code"))
	if err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, perm)
}

func (c *Controller) getByType(ctx *fiber.Ctx) error {
	typ := model.PermissionType(ctx.Params("type"))
	perms, err := c.svc.GetByType(ctx.UserContext(), typ)
	if err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, perms)
}

func (c *Controller) check(ctx *fiber.Ctx) error {
	code := ctx.Params("code")
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	allowed := c.svc.CheckPermission(uctx, session.FromCtx(ctx), code)
	return response.Success(ctx, CheckResponse{Code: code, Allowed: allowed})
}
