package model

import (
	"github.com/authcore/pkg/dal"
)

// PermissionType 权限类型
type PermissionType string

// 权限类型取值
const (
	TypeMenu      PermissionType = "MENU"
	TypeOperation PermissionType = "OPERATION"
	TypeResource  PermissionType = "RESOURCE"
	TypeData      PermissionType = "DATA"
)

// Valid 是否为合法类型
func (t PermissionType) Valid() bool {
	switch t {
	case TypeMenu, TypeOperation, TypeResource, TypeData:
		return true
	}
	return false
}

// Permission 权限模型
type Permission struct {
	dal.Model
	Code         string         `gorm:"size:100;uniqueIndex;not null" json:"code"`
	Name         string         `gorm:"size:100;not null" json:"name"`
	Type         PermissionType `gorm:"size:20;not null" json:"type"`
	ResourcePath string         `gorm:"size:255" json:"resourcePath,omitempty"`
	Description  string         `gorm:"size:255" json:"description"`
}

// TableName 表名
func (Permission) TableName() string {
	return "permissions"
}
