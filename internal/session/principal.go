package session

import (
	"time"

	"github.com/authcore/internal/model"
)

// RoleRef 主体持有的角色引用
type RoleRef struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Level model.RoleLevel `json:"level"`
}

// Principal 已认证主体。登录时一次性解析出全部角色与权限码，
// 会话存续期间的权限判断不再访问存储层。
type Principal struct {
	UserID          int64     `json:"userId"`
	Username        string    `json:"username"`
	Roles           []RoleRef `json:"roles"`
	PermissionCodes []string  `json:"permissionCodes"`
	Unrestricted    bool      `json:"unrestricted"`
}

// HasPermission 判断主体是否持有权限码。不受限主体直接放行。
func (p *Principal) HasPermission(code string) bool {
	if p == nil {
		return false
	}
	if p.Unrestricted {
		return true
	}
	for _, c := range p.PermissionCodes {
		if c == code {
			return true
		}
	}
	return false
}

// HasRole 判断主体是否持有指定名称的角色
func (p *Principal) HasRole(name string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// Session 一次登录会话
type Session struct {
	Token     string    `json:"token"`
	Principal Principal `json:"principal"`
	LoginAt   time.Time `json:"loginAt"`
}

// Duration 返回会话已持续时长
func (s *Session) Duration() time.Duration {
	return time.Since(s.LoginAt)
}
