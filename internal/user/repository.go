package user

import (
	"context"

	"github.com/authcore/internal/model"
	"github.com/authcore/pkg/dal"
)

// Repository 用户仓储接口
type Repository interface {
	dal.Repository[model.User]
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	HasRole(ctx context.Context, userID, roleID int64) (bool, error)
	AddRole(ctx context.Context, userID, roleID int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
}

// repository 用户仓储实现
type repository struct {
	*dal.BaseRepository[model.User]
}

// NewRepository 创建用户仓储
func NewRepository() Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.User](),
	}
}

// FindByUsername 根据用户名查找
func (r *repository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.FindOne(ctx, map[string]interface{}{"username": username})
}

// ExistsByUsername 用户名是否已存在
func (r *repository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.Exists(ctx, map[string]interface{}{"username": username})
}

// HasRole 用户是否已持有角色
func (r *repository) HasRole(ctx context.Context, userID, roleID int64) (bool, error) {
	var count int64
	err := r.DB().WithContext(ctx).Model(&model.UserRole{}).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Count(&count).Error
	return count > 0, err
}

// AddRole 建立用户与角色的关联
func (r *repository) AddRole(ctx context.Context, userID, roleID int64) error {
	return r.DB().WithContext(ctx).Create(&model.UserRole{
		UserID: userID,
		RoleID: roleID,
	}).Error
}

// RemoveRole 解除用户与角色的关联
func (r *repository) RemoveRole(ctx context.Context, userID, roleID int64) error {
	return r.DB().WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&model.UserRole{}).Error
}
