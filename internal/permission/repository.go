package permission

import (
	"context"

	"github.com/authcore/internal/model"
	"github.com/authcore/pkg/dal"
)

// Repository 权限仓储接口
type Repository interface {
	dal.Repository[model.Permission]
	FindByCode(ctx context.Context, code string) (*model.Permission, error)
	FindByType(ctx context.Context, typ model.PermissionType) ([]model.Permission, error)
	FindByRoleID(ctx context.Context, roleID int64) ([]model.Permission, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
}

// repository 权限仓储实现
type repository struct {
	*dal.BaseRepository[model.Permission]
}

// NewRepository 创建权限仓储
func NewRepository() Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Permission](),
	}
}

// FindByCode 根据权限码查找
func (r *repository) FindByCode(ctx context.Context, code string) (*model.Permission, error) {
	return r.FindOne(ctx, map[string]interface{}{"code": code})
}

// FindByType 根据类型查找
func (r *repository) FindByType(ctx context.Context, typ model.PermissionType) ([]model.Permission, error) {
	return r.FindAll(ctx, map[string]interface{}{"type": typ}, dal.WithOrder("code"))
}

// FindByRoleID 查找角色持有的全部权限
func (r *repository) FindByRoleID(ctx context.Context, roleID int64) ([]model.Permission, error) {
	var perms []model.Permission
	err := r.DB().WithContext(ctx).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Find(&perms).Error
	if err != nil {
		return nil, err
	}
	return perms, nil
}

// ExistsByCode 权限码是否已存在
func (r *repository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return r.Exists(ctx, map[string]interface{}{"code": code})
}
