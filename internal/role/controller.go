package role

import (
	"strconv"

	"github.com/authcore/internal/audit"
	"github.com/authcore/internal/session"
	"github.com/authcore/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// Controller 角色控制器
type Controller struct {
	svc *Service
}

// NewController 创建角色控制器
func NewController(svc *Service) *Controller {
	return &Controller{svc: svc}
}

// RegisterRoutes 注册路由
func (c *Controller) RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler) {
	g := r.Group("/roles", authMiddleware)
	g.Post("", c.create)
	g.Put("/:id", c.update)
	g.Delete("/:id", c.delete)
	g.Get("", c.getAll)
	g.Get("/name/:name", c.getByName)
	g.Get("/:id", c.get)
	g.Get("/:id/permissions", c.getPermissions)
	g.Get("/:id/users/count", c.getUserCount)
	g.Post("/:id/permissions/:permissionId", c.assignPermission)
	g.Delete("/:id/permissions/:permissionId", c.removePermission)
	g.Post("/:id/permissions", c.batchAssignPermissions)
}

func parseID(ctx *fiber.Ctx, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Params(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (c *Controller) create(ctx *fiber.Ctx) error {
	var req CreateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.BadRequest(ctx, err.Error())
	}
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	role, err := c.svc.Create(uctx, session.FromCtx(ctx), &req)
	if err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, role)
}

func (c *Controller) update(ctx *fiber.Ctx) error {
	id, ok := parseID(ctx, "id")
	if !ok {
		return response.BadRequest(ctx, "无效的角色ID")
	}
	var req UpdateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.BadRequest(ctx, err.Error())
	}
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	role, err := c.svc.Update(uctx, session.FromCtx(ctx), id, &req)
	if err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, role)
}

func (c *Controller) delete(ctx *fiber.Ctx) error {
	id, ok := parseID(ctx, "id")
	if !ok {
		return response.BadRequest(ctx, "无效的角色ID")
	}
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	if err := c.svc.Delete(uctx, session.FromCtx(ctx), id); err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, nil)
}

func (c *Controller) getAll(ctx *fiber.Ctx) error {
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	roles := c.svc.GetAll(uctx, session.FromCtx(ctx))
	return response.Success(ctx, roles)
}

func (c *Controller) get(ctx *fiber.Ctx) error {
	id, ok := parseID(ctx, "id")
	if !ok {
		return response.BadRequest(ctx, "无效的角色ID")
	}
	role, err := c.svc.GetByID(ctx.UserContext(), id)
	if err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, role)
}

func (c *Controller) getByName(ctx *fiber.Ctx) error {
	role, err := c.svc.GetByName(ctx.UserContext(), ctx.Params("name"))
	if err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, role)
}

func (c *Controller) getPermissions(ctx *fiber.Ctx) error {
	id, ok := parseID(ctx, "id")
	if !ok {
		return response.BadRequest(ctx, "无效的角色ID")
	}
	perms, err := c.svc.GetRolePermissions(ctx.UserContext(), id)
	if err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, perms)
}

func (c *Controller) getUserCount(ctx *fiber.Ctx) error {
	id, ok := parseID(ctx, "id")
	if !ok {
		return response.BadRequest(ctx, "无效的角色ID")
	}
	count, err := c.svc.GetUserCountByRole(ctx.UserContext(), id)
	if err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, UserCountResponse{RoleID: id, Count: count})
}

func (c *Controller) assignPermission(ctx *fiber.Ctx) error {
	roleID, ok := parseID(ctx, "id")
	if !ok {
		return response.BadRequest(ctx, "无效的角色ID")
	}
	permID, ok := parseID(ctx, "permissionId")
	if !ok {
		return response.BadRequest(ctx, "无效的权限ID")
	}
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	if err := c.svc.AssignPermission(uctx, session.FromCtx(ctx), roleID, permID); err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, nil)
}

func (c *Controller) removePermission(ctx *fiber.Ctx) error {
	roleID, ok := parseID(ctx, "id")
	if !ok {
		return response.BadRequest(ctx, "无效的角色ID")
	}
	permID, ok := parseID(ctx, "permissionId")
	if !ok {
		return response.BadRequest(ctx, "无效的权限ID")
	}
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	if err := c.svc.RemovePermission(uctx, session.FromCtx(ctx), roleID, permID); err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, nil)
}

func (c *Controller) batchAssignPermissions(ctx *fiber.Ctx) error {
	roleID, ok := parseID(ctx, "id")
	if !ok {
		return response.BadRequest(ctx, "无效的角色ID")
	}
	var req BatchAssignRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.BadRequest(ctx, err.Error())
	}
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	if err := c.svc.BatchAssignPermissions(uctx, session.FromCtx(ctx), roleID, req.PermissionIDs); err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, nil)
}
