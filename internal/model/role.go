package model

import (
	"github.com/authcore/pkg/dal"
)

// RoleLevel 角色级别
type RoleLevel string

// 角色级别取值，级别之间存在全序关系
const (
	LevelSuperAdmin RoleLevel = "SUPER_ADMIN"
	LevelAdmin      RoleLevel = "ADMIN"
	LevelManager    RoleLevel = "MANAGER"
	LevelUser       RoleLevel = "USER"
	LevelGuest      RoleLevel = "GUEST"
)

// Rank 返回级别序号，数值越小级别越高
func (l RoleLevel) Rank() int {
	switch l {
	case LevelSuperAdmin:
		return 1
	case LevelAdmin:
		return 2
	case LevelManager:
		return 3
	case LevelUser:
		return 4
	case LevelGuest:
		return 5
	}
	return 0
}

// Valid 是否为合法级别
func (l RoleLevel) Valid() bool {
	return l.Rank() != 0
}

// SeniorTo 判断是否比另一级别更高
func (l RoleLevel) SeniorTo(other RoleLevel) bool {
	return l.Rank() < other.Rank()
}

// SuperAdminRoleName 保留角色名，创建同名角色时自动置为不受限角色。
// 授权判断只看 Unrestricted 标志，不再比较角色名。
const SuperAdminRoleName = "SUPER_ADMIN"

// Role 角色模型
type Role struct {
	dal.Model
	Name         string       `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description  string       `gorm:"size:255" json:"description"`
	Level        RoleLevel    `gorm:"size:20;not null;default:USER" json:"level"`
	Unrestricted bool         `gorm:"default:false" json:"unrestricted"`
	Permissions  []Permission `gorm:"-" json:"permissions,omitempty"` // 登录时加载，不由gorm管理
}

// TableName 表名
func (Role) TableName() string {
	return "roles"
}

// RolePermission 角色权限关联，同一对角色/权限只允许一条记录
type RolePermission struct {
	ID           int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	RoleID       int64 `gorm:"uniqueIndex:idx_role_perm;not null" json:"roleId"`
	PermissionID int64 `gorm:"uniqueIndex:idx_role_perm;not null" json:"permissionId"`
}

// TableName 表名
func (RolePermission) TableName() string {
	return "role_permissions"
}
