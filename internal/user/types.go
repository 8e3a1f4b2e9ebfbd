package user

import (
	"time"

	"github.com/authcore/internal/model"
	"github.com/authcore/internal/session"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string            `json:"token"`
	Principal session.Principal `json:"principal"`
	LoginAt   time.Time         `json:"loginAt"`
}

// CreateRequest 创建用户请求
type CreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	RealName string `json:"realName"`
}

// UpdateRequest 更新用户请求，空字段不变更
type UpdateRequest struct {
	Email    string           `json:"email"`
	RealName string           `json:"realName"`
	Status   model.UserStatus `json:"status"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ResetPasswordRequest 重置密码请求
type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}
