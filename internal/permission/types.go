package permission

import "github.com/authcore/internal/model"

// CreateRequest 创建权限请求
type CreateRequest struct {
	Code         string               `json:"code"`
	Name         string               `json:"name"`
	Type         model.PermissionType `json:"type"`
	ResourcePath string               `json:"resourcePath"`
	Description  string               `json:"description"`
}

// UpdateRequest 更新权限请求，空字段不变更
type UpdateRequest struct {
	Name         string               `json:"name"`
	Type         model.PermissionType `json:"type"`
	ResourcePath string               `json:"resourcePath"`
	Description  string               `json:"description"`
}

// CheckResponse 权限判定结果
type CheckResponse struct {
	Code    string `json:"code"`
	Allowed bool   `json:"allowed"`
}
