package model

import (
	"time"

	"github.com/authcore/pkg/dal"
)

// UserStatus 用户状态
type UserStatus string

// 用户状态取值
const (
	StatusActive   UserStatus = "ACTIVE"
	StatusLocked   UserStatus = "LOCKED"
	StatusDisabled UserStatus = "DISABLED"
)

// Valid 是否为合法状态
func (s UserStatus) Valid() bool {
	switch s {
	case StatusActive, StatusLocked, StatusDisabled:
		return true
	}
	return false
}

// User 用户模型，密码以 salt$hash 形式存储
type User struct {
	dal.Model
	Username    string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Password    string     `gorm:"size:255;not null" json:"-"`
	Email       string     `gorm:"size:100" json:"email"`
	RealName    string     `gorm:"size:100" json:"realName"`
	Status      UserStatus `gorm:"size:20;not null;default:ACTIVE" json:"status"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	Roles       []Role     `gorm:"-" json:"roles,omitempty"` // 登录时加载，不由gorm管理
}

// TableName 表名
func (User) TableName() string {
	return "users"
}

// UserRole 用户角色关联，同一对用户/角色只允许一条记录
type UserRole struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"uniqueIndex:idx_user_role;not null" json:"userId"`
	RoleID int64 `gorm:"uniqueIndex:idx_user_role;not null" json:"roleId"`
}

// TableName 表名
func (UserRole) TableName() string {
	return "user_roles"
}
