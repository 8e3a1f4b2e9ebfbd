package user

import (
	"strconv"

	"github.com/authcore/internal/audit"
	"github.com/authcore/internal/session"
	"github.com/authcore/pkg/password"
	"github.com/authcore/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// Controller 用户控制器
type Controller struct {
	svc *Service
}

// NewController 创建用户控制器
func NewController(svc *Service) *Controller {
	return &Controller{svc: svc}
}

// RegisterRoutes 注册路由。登录与密码强度检测不要求会话。
func (c *Controller) RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler) {
	auth := r.Group("/auth")
	auth.Post("/login", c.login)
	auth.Post("/logout", authMiddleware, c.logout)
	auth.Post("/password/strength", c.passwordStrength)
	auth.Get("/profile", authMiddleware, c.profile)
	auth.Put("/password", authMiddleware, c.changePassword)

	g := r.Group("/users", authMiddleware)
	g.Post("", c.create)
	g.Put("/:id", c.update)
	g.Delete("/:id", c.delete)
	g.Get("", c.getAll)
	g.Get("/username/:username", c.getByUsername)
	g.Get("/:id", c.get)
	g.Get("/:id/roles", c.getRoles)
	g.Post("/:id/lock", c.lock)
	g.Post("/:id/unlock", c.unlock)
	g.Put("/:id/password", c.resetPassword)
	g.Post("/:id/roles/:roleId", c.assignRole)
	g.Delete("/:id/roles/:roleId", c.removeRole)
}

func parseID(ctx *fiber.Ctx, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Params(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (c *Controller) login(ctx *fiber.Ctx) error {
	var req LoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.BadRequest(ctx, err.Error())
	}
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	sess, err := c.svc.Login(uctx, req.Username, req.Password)
	if err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, LoginResponse{
		Token:     sess.Token,
		Principal: sess.Principal,
		LoginAt:   sess.LoginAt,
	})
}

func (c *Controller) logout(ctx *fiber.Ctx) error {
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	if err := c.svc.Logout(uctx, session.TokenFromCtx(ctx)); err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, nil)
}

func (c *Controller) profile(ctx *fiber.Ctx) error {
	return response.Success(ctx, session.FromCtx(ctx))
}

func (c *Controller) passwordStrength(ctx *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}
	if err := ctx.BodyParser(&req); err != nil {
		return response.BadRequest(ctx, err.Error())
	}
	return response.Success(ctx, fiber.Map{
		"strength": password.Strength(req.Password),
		"valid":    password.ValidatePolicy(req.Password),
	})
}

func (c *Controller) changePassword(ctx *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.BadRequest(ctx, err.Error())
	}
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	if err := c.svc.ChangePassword(uctx, session.FromCtx(ctx), &req); err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, nil)
}

func (c *Controller) create(ctx *fiber.Ctx) error {
	var req CreateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.BadRequest(ctx, err.Error())
	}
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	u, err := c.svc.Create(uctx, session.FromCtx(ctx), &req)
	if err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, u)
}

func (c *Controller) update(ctx *fiber.Ctx) error {
	id, ok := parseID(ctx, "id")
	if !ok {
		return response.BadRequest(ctx, "无效的用户ID")
	}
	var req UpdateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.BadRequest(ctx, err.Error())
	}
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	u, err := c.svc.Update(uctx, session.FromCtx(ctx), id, &req)
	if err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, u)
}

func (c *Controller) delete(ctx *fiber.Ctx) error {
	id, ok := parseID(ctx, "id")
	if !ok {
		return response.BadRequest(ctx, "无效的用户ID")
	}
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	if err := c.svc.Delete(uctx, session.FromCtx(ctx), id); err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, nil)
}

func (c *Controller) getAll(ctx *fiber.Ctx) error {
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	users := c.svc.GetAll(uctx, session.FromCtx(ctx))
	return response.Success(ctx, users)
}

func (c *Controller) get(ctx *fiber.Ctx) error {
	id, ok := parseID(ctx, "id")
	if !ok {
		return response.BadRequest(ctx, "无效的用户ID")
	}
	u, err := c.svc.GetByID(ctx.UserContext(), id)
	if err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, u)
}

func (c *Controller) getByUsername(ctx *fiber.Ctx) error {
	u, err := c.svc.GetByUsername(ctx.UserContext(), ctx.Params("username"))
	if err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, u)
}

func (c *Controller) getRoles(ctx *fiber.Ctx) error {
	id, ok := parseID(ctx, "id")
	if !ok {
		return response.BadRequest(ctx, "无效的用户ID")
	}
	roles, err := c.svc.GetUserRoles(ctx.UserContext(), id)
	if err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, roles)
}

func (c *Controller) lock(ctx *fiber.Ctx) error {
	id, ok := parseID(ctx, "id")
	if !ok {
		return response.BadRequest(ctx, "无效的用户ID")
	}
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	if err := c.svc.Lock(uctx, session.FromCtx(ctx), id); err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, nil)
}

func (c *Controller) unlock(ctx *fiber.Ctx) error {
	id, ok := parseID(ctx, "id")
	if !ok {
		return response.BadRequest(ctx, "无效的用户ID")
	}
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	if err := c.svc.Unlock(uctx, session.FromCtx(ctx), id); err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, nil)
}

func (c *Controller) resetPassword(ctx *fiber.Ctx) error {
	id, ok := parseID(ctx, "id")
	if !ok {
		return response.BadRequest(ctx, "无效的用户ID")
	}
	var req ResetPasswordRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.BadRequest(ctx, err.Error())
	}
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	if err := c.svc.ResetPassword(uctx, session.FromCtx(ctx), id, req.NewPassword); err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, nil)
}

func (c *Controller) assignRole(ctx *fiber.Ctx) error {
	userID, ok := parseID(ctx, "id")
	if !ok {
		return response.BadRequest(ctx, "无效的用户ID")
	}
	roleID, ok := parseID(ctx, "roleId")
	if !ok {
		return response.BadRequest(ctx, "无效的角色ID")
	}
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	if err := c.svc.AssignRole(uctx, session.FromCtx(ctx), userID, roleID); err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, nil)
}

func (c *Controller) removeRole(ctx *fiber.Ctx) error {
	userID, ok := parseID(ctx, "id")
	if !ok {
		return response.BadRequest(ctx, "无效的用户ID")
	}
	roleID, ok := parseID(ctx, "roleId")
	if !ok {
		return response.BadRequest(ctx, "无效的角色ID")
	}
	uctx := audit.WithClientIP(ctx.UserContext(), ctx.IP())
	if err := c.svc.RemoveRole(uctx, session.FromCtx(ctx), userID, roleID); err != nil {
		return response.FromError(ctx, err)
	}
	return response.Success(ctx, nil)
}
