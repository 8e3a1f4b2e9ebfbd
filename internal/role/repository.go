package role

import (
	"context"

	"github.com/authcore/internal/model"
	"github.com/authcore/pkg/dal"
)

// Repository 角色仓储接口
type Repository interface {
	dal.Repository[model.Role]
	FindByName(ctx context.Context, name string) (*model.Role, error)
	FindByUserID(ctx context.Context, userID int64) ([]model.Role, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	HasPermission(ctx context.Context, roleID, permissionID int64) (bool, error)
	AddPermission(ctx context.Context, roleID, permissionID int64) error
	RemovePermission(ctx context.Context, roleID, permissionID int64) error
	CountUsers(ctx context.Context, roleID int64) (int64, error)
}

// repository 角色仓储实现
type repository struct {
	*dal.BaseRepository[model.Role]
}

// NewRepository 创建角色仓储
func NewRepository() Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Role](),
	}
}

// FindByName 根据角色名查找
func (r *repository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	return r.FindOne(ctx, map[string]interface{}{"name": name})
}

// FindByUserID 查找用户持有的全部角色
func (r *repository) FindByUserID(ctx context.Context, userID int64) ([]model.Role, error) {
	var roles []model.Role
	err := r.DB().WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Find(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// ExistsByName 角色名是否已存在
func (r *repository) ExistsByName(ctx context.Context, name string) (bool, error) {
	return r.Exists(ctx, map[string]interface{}{"name": name})
}

// HasPermission 角色是否已持有权限
func (r *repository) HasPermission(ctx context.Context, roleID, permissionID int64) (bool, error) {
	var count int64
	err := r.DB().WithContext(ctx).Model(&model.RolePermission{}).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Count(&count).Error
	return count > 0, err
}

// AddPermission 建立角色与权限的关联
func (r *repository) AddPermission(ctx context.Context, roleID, permissionID int64) error {
	return r.DB().WithContext(ctx).Create(&model.RolePermission{
		RoleID:       roleID,
		PermissionID: permissionID,
	}).Error
}

// RemovePermission 解除角色与权限的关联
func (r *repository) RemovePermission(ctx context.Context, roleID, permissionID int64) error {
	return r.DB().WithContext(ctx).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Delete(&model.RolePermission{}).Error
}

// CountUsers 统计持有该角色的用户数
func (r *repository) CountUsers(ctx context.Context, roleID int64) (int64, error) {
	var count int64
	err := r.DB().WithContext(ctx).Model(&model.UserRole{}).
		Where("role_id = ?", roleID).
		Count(&count).Error
	return count, err
}
