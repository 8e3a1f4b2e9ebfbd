package session

import (
	"github.com/authcore/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// HeaderToken 携带会话令牌的请求头
const HeaderToken = "X-Session-Token"

const localsPrincipal = "principal"
const localsToken = "sessionToken"

// Auth 会话认证中间件。从请求头解析令牌并把主体放入请求上下文，
// 无有效会话的请求直接拒绝。
func Auth(registry *Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get(HeaderToken)
		if token == "" {
			return response.Unauthorized(c, "未提供会话令牌")
		}

		p := registry.Principal(c.UserContext(), token)
		if p == nil {
			return response.Unauthorized(c, "会话不存在或已过期")
		}

		c.Locals(localsPrincipal, p)
		c.Locals(localsToken, token)
		return c.Next()
	}
}

// FromCtx 从请求上下文取出当前主体，未认证时返回 nil
func FromCtx(c *fiber.Ctx) *Principal {
	if p, ok := c.Locals(localsPrincipal).(*Principal); ok {
		return p
	}
	return nil
}

// TokenFromCtx 从请求上下文取出会话令牌
func TokenFromCtx(c *fiber.Ctx) string {
	if t, ok := c.Locals(localsToken).(string); ok {
		return t
	}
	return ""
}
