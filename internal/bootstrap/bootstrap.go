package bootstrap

import (
	"context"

	"github.com/authcore/internal/model"
	"github.com/authcore/pkg/config"
	"github.com/authcore/pkg/database"
	"github.com/authcore/pkg/errors"
	"github.com/authcore/pkg/logger"
	"github.com/authcore/pkg/password"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// seedPermission 初始权限目录条目
type seedPermission struct {
	code string
	name string
	typ  model.PermissionType
	path string
	desc string
}

// defaultPermissions 初始权限目录
var defaultPermissions = []seedPermission{
	{model.PermUserView, "查看用户", model.TypeMenu, "/users", "查看用户列表与详情"},
	{model.PermUserCreate, "创建用户", model.TypeOperation, "/users", "创建新用户"},
	{model.PermUserUpdate, "更新用户", model.TypeOperation, "/users", "更新用户信息"},
	{model.PermUserDelete, "删除用户", model.TypeOperation, "/users", "删除用户"},
	{model.PermUserLock, "锁定用户", model.TypeOperation, "/users", "锁定或解锁用户账户"},
	{model.PermUserResetPassword, "重置密码", model.TypeOperation, "/users", "重置用户密码"},
	{model.PermUserAssignRole, "分配角色", model.TypeOperation, "/users", "为用户分配角色"},
	{model.PermUserRemoveRole, "移除角色", model.TypeOperation, "/users", "移除用户的角色"},
	{model.PermRoleView, "查看角色", model.TypeMenu, "/roles", "查看角色列表与详情"},
	{model.PermRoleCreate, "创建角色", model.TypeOperation, "/roles", "创建新角色"},
	{model.PermRoleUpdate, "更新角色", model.TypeOperation, "/roles", "更新角色信息"},
	{model.PermRoleDelete, "删除角色", model.TypeOperation, "/roles", "删除角色"},
	{model.PermRoleAssignPermission, "分配权限", model.TypeOperation, "/roles", "为角色分配权限"},
	{model.PermRoleRemovePermission, "移除权限", model.TypeOperation, "/roles", "移除角色的权限"},
	{model.PermPermissionView, "查看权限", model.TypeMenu, "/permissions", "查看权限列表与详情"},
	{model.PermPermissionCreate, "创建权限", model.TypeOperation, "/permissions", "创建新权限"},
	{model.PermPermissionUpdate, "更新权限", model.TypeOperation, "/permissions", "更新权限信息"},
	{model.PermPermissionDelete, "删除权限", model.TypeOperation, "/permissions", "删除权限"},
	{model.PermAuditView, "查看审计日志", model.TypeMenu, "/audit-logs", "查看审计日志"},
	{model.PermAuditExport, "导出审计日志", model.TypeOperation, "/audit-logs", "导出审计日志"},
}

// adminPermissionCodes 管理员角色的权限集
var adminPermissionCodes = []string{
	model.PermUserView,
	model.PermUserCreate,
	model.PermUserUpdate,
	model.PermUserLock,
	model.PermRoleView,
	model.PermRoleCreate,
	model.PermRoleUpdate,
	model.PermPermissionView,
	model.PermAuditView,
}

// userPermissionCodes 普通用户角色的权限集
var userPermissionCodes = []string{
	model.PermUserView,
	model.PermRoleView,
	model.PermPermissionView,
}

// Run 迁移数据表并在空库上写入初始数据：
// 权限目录、三个内置角色与绑定超级管理员角色的初始账户。
// 已初始化过的库不再重复写入。
func Run(ctx context.Context) error {
	db := database.Get()

	if err := db.WithContext(ctx).AutoMigrate(
		&model.User{},
		&model.Role{},
		&model.Permission{},
		&model.UserRole{},
		&model.RolePermission{},
		&model.AuditLog{},
	); err != nil {
		return errors.Wrap(err, 500, "数据表迁移失败")
	}

	var count int64
	if err := db.WithContext(ctx).Model(&model.Permission{}).Count(&count).Error; err != nil {
		return errors.WrapPersistence(err)
	}
	if count > 0 {
		logger.Info("初始数据已存在，跳过初始化")
		return nil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		perms, err := seedPermissions(tx)
		if err != nil {
			return err
		}
		if err := seedRolesAndAdmin(tx, perms); err != nil {
			return err
		}
		logger.Info("初始数据写入完成", zap.Int("permissions", len(perms)))
		return nil
	})
}

// seedPermissions 写入权限目录，返回权限码到记录的映射
func seedPermissions(tx *gorm.DB) (map[string]*model.Permission, error) {
	perms := make(map[string]*model.Permission, len(defaultPermissions))
	for _, sp := range defaultPermissions {
		perm := &model.Permission{
			Code:         sp.code,
			Name:         sp.name,
			Type:         sp.typ,
			ResourcePath: sp.path,
			Description:  sp.desc,
		}
		if err := tx.Create(perm).Error; err != nil {
			return nil, err
		}
		perms[sp.code] = perm
	}
	return perms, nil
}

// seedRolesAndAdmin 写入内置角色与初始管理员账户
func seedRolesAndAdmin(tx *gorm.DB, perms map[string]*model.Permission) error {
	superAdmin := &model.Role{
		Name:         model.SuperAdminRoleName,
		Description:  "超级管理员，不受权限限制",
		Level:        model.LevelSuperAdmin,
		Unrestricted: true,
	}
	admin := &model.Role{
		Name:        "ADMIN",
		Description: "管理员，负责日常用户与角色管理",
		Level:       model.LevelAdmin,
	}
	normal := &model.Role{
		Name:        "USER",
		Description: "普通用户，只读访问",
		Level:       model.LevelUser,
	}
	for _, r := range []*model.Role{superAdmin, admin, normal} {
		if err := tx.Create(r).Error; err != nil {
			return err
		}
	}

	allCodes := make([]string, 0, len(defaultPermissions))
	for _, sp := range defaultPermissions {
		allCodes = append(allCodes, sp.code)
	}
	grants := []struct {
		role  *model.Role
		codes []string
	}{
		{superAdmin, allCodes},
		{admin, adminPermissionCodes},
		{normal, userPermissionCodes},
	}
	for _, g := range grants {
		for _, code := range g.codes {
			if err := tx.Create(&model.RolePermission{
				RoleID:       g.role.ID,
				PermissionID: perms[code].ID,
			}).Error; err != nil {
				return err
			}
		}
	}

	bc := config.GetBootstrap()
	encrypted, err := password.Encrypt(bc.AdminPassword)
	if err != nil {
		return err
	}
	adminUser := &model.User{
		Username: bc.AdminUsername,
		Password: encrypted,
		Email:    bc.AdminEmail,
		RealName: "系统管理员",
		Status:   model.StatusActive,
	}
	if err := tx.Create(adminUser).Error; err != nil {
		return err
	}
	return tx.Create(&model.UserRole{
		UserID: adminUser.ID,
		RoleID: superAdmin.ID,
	}).Error
}
