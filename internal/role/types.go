package role

import "github.com/authcore/internal/model"

// CreateRequest 创建角色请求
type CreateRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Level       model.RoleLevel `json:"level"`
}

// UpdateRequest 更新角色请求，空字段不变更
type UpdateRequest struct {
	Description string          `json:"description"`
	Level       model.RoleLevel `json:"level"`
}

// BatchAssignRequest 批量授权请求
type BatchAssignRequest struct {
	PermissionIDs []int64 `json:"permissionIds"`
}

// UserCountResponse 角色用户数
type UserCountResponse struct {
	RoleID int64 `json:"roleId"`
	Count  int64 `json:"count"`
}
