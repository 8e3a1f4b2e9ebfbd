package role

import (
	"context"
	"fmt"

	"github.com/authcore/internal/audit"
	"github.com/authcore/internal/model"
	"github.com/authcore/internal/permission"
	"github.com/authcore/internal/session"
	"github.com/authcore/pkg/errors"
	"github.com/authcore/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service 角色服务。管理角色生命周期及角色与权限的关联，
// 写操作与全量查询经审计门禁保护。
type Service struct {
	repo     Repository
	permRepo permission.Repository
	gate     *audit.Gate
}

// NewService 创建角色服务
func NewService(repo Repository, permRepo permission.Repository, gate *audit.Gate) *Service {
	return &Service{repo: repo, permRepo: permRepo, gate: gate}
}

// Create 创建角色，角色名重复时拒绝。
// 名称为保留的超级管理员名时自动赋予不受限标记。
func (s *Service) Create(ctx context.Context, p *session.Principal, req *CreateRequest) (*model.Role, error) {
	var created *model.Role
	err := s.gate.Protect(ctx, p, model.PermRoleCreate, "CREATE_ROLE", req.Name, func(ctx context.Context) (string, error) {
		level := req.Level
		if level == "" {
			level = model.LevelUser
		}
		if !level.Valid() {
			return "", errors.New(400, "无效的角色级别: "+string(level))
		}
		exists, ferr := s.repo.ExistsByName(ctx, req.Name)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		if exists {
			return "", errors.Duplicate("角色名")
		}
		role := &model.Role{
			Name:         req.Name,
			Description:  req.Description,
			Level:        level,
			Unrestricted: req.Name == model.SuperAdminRoleName,
		}
		if ferr := s.repo.Create(ctx, role); ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		created = role
		logger.Info("角色已创建",
			zap.String("name", role.Name),
			zap.Int64("id", role.ID),
			zap.Bool("unrestricted", role.Unrestricted),
		)
		return "创建角色: " + role.Name, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update 更新角色描述与级别。角色名与不受限标记不可变更。
func (s *Service) Update(ctx context.Context, p *session.Principal, id int64, req *UpdateRequest) (*model.Role, error) {
	var updated *model.Role
	target := fmt.Sprintf("roleId=%d", id)
	err := s.gate.Protect(ctx, p, model.PermRoleUpdate, "UPDATE_ROLE", target, func(ctx context.Context) (string, error) {
		role, ferr := s.repo.FindByID(ctx, id)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		if role == nil {
			return "", errors.NotFound("角色")
		}
		if req.Description != "" {
			role.Description = req.Description
		}
		if req.Level != "" {
			if !req.Level.Valid() {
				return "", errors.New(400, "无效的角色级别: "+string(req.Level))
			}
			role.Level = req.Level
		}
		if ferr := s.repo.Update(ctx, role); ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		updated = role
		return "更新角色: " + role.Name, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete 删除角色，并在同一事务中解除其全部权限关联与用户关联
func (s *Service) Delete(ctx context.Context, p *session.Principal, id int64) error {
	target := fmt.Sprintf("roleId=%d", id)
	return s.gate.Protect(ctx, p, model.PermRoleDelete, "DELETE_ROLE", target, func(ctx context.Context) (string, error) {
		role, ferr := s.repo.FindByID(ctx, id)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		if role == nil {
			return "", errors.NotFound("角色")
		}
		ferr = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
			if terr := tx.Where("role_id = ?", id).Delete(&model.RolePermission{}).Error; terr != nil {
				return terr
			}
			if terr := tx.Where("role_id = ?", id).Delete(&model.UserRole{}).Error; terr != nil {
				return terr
			}
			return tx.Delete(&model.Role{}, id).Error
		})
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		logger.Info("角色已删除", zap.String("name", role.Name), zap.Int64("id", id))
		return "删除角色: " + role.Name, nil
	})
}

// AssignPermission 为角色授予权限。重复授予视为成功，不产生新关联。
func (s *Service) AssignPermission(ctx context.Context, p *session.Principal, roleID, permissionID int64) error {
	target := fmt.Sprintf("roleId=%d,permissionId=%d", roleID, permissionID)
	return s.gate.Protect(ctx, p, model.PermRoleAssignPermission, "ASSIGN_PERMISSION", target, func(ctx context.Context) (string, error) {
		role, ferr := s.repo.FindByID(ctx, roleID)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		if role == nil {
			return "", errors.NotFound("角色")
		}
		perm, ferr := s.permRepo.FindByID(ctx, permissionID)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		if perm == nil {
			return "", errors.NotFound("权限")
		}
		has, ferr := s.repo.HasPermission(ctx, roleID, permissionID)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		if has {
			return fmt.Sprintf("角色%s已持有权限%s", role.Name, perm.Code), nil
		}
		if ferr := s.repo.AddPermission(ctx, roleID, permissionID); ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		return fmt.Sprintf("为角色%s授予权限%s", role.Name, perm.Code), nil
	})
}

// RemovePermission 解除角色的权限。未持有时视为成功。
func (s *Service) RemovePermission(ctx context.Context, p *session.Principal, roleID, permissionID int64) error {
	target := fmt.Sprintf("roleId=%d,permissionId=%d", roleID, permissionID)
	return s.gate.Protect(ctx, p, model.PermRoleRemovePermission, "REMOVE_PERMISSION", target, func(ctx context.Context) (string, error) {
		role, ferr := s.repo.FindByID(ctx, roleID)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		if role == nil {
			return "", errors.NotFound("角色")
		}
		if ferr := s.repo.RemovePermission(ctx, roleID, permissionID); ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		return fmt.Sprintf("解除角色%s的权限%d", role.Name, permissionID), nil
	})
}

// BatchAssignPermissions 批量为角色授予权限，在同一事务中完成，已持有的跳过
func (s *Service) BatchAssignPermissions(ctx context.Context, p *session.Principal, roleID int64, permissionIDs []int64) error {
	target := fmt.Sprintf("roleId=%d", roleID)
	return s.gate.Protect(ctx, p, model.PermRoleAssignPermission, "BATCH_ASSIGN_PERMISSION", target, func(ctx context.Context) (string, error) {
		role, ferr := s.repo.FindByID(ctx, roleID)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		if role == nil {
			return "", errors.NotFound("角色")
		}
		// 先校验权限存在，事务里只做写入
		missing := make([]int64, 0, len(permissionIDs))
		for _, pid := range permissionIDs {
			perm, ferr := s.permRepo.FindByID(ctx, pid)
			if ferr != nil {
				return "", errors.WrapPersistence(ferr)
			}
			if perm == nil {
				return "", errors.NotFound("权限")
			}
			has, ferr := s.repo.HasPermission(ctx, roleID, pid)
			if ferr != nil {
				return "", errors.WrapPersistence(ferr)
			}
			if !has {
				missing = append(missing, pid)
			}
		}

		ferr = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
			for _, pid := range missing {
				if terr := tx.Create(&model.RolePermission{
					RoleID:       roleID,
					PermissionID: pid,
				}).Error; terr != nil {
					return terr
				}
			}
			return nil
		})
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		assigned := len(missing)
		return fmt.Sprintf("为角色%s批量授予%d个权限", role.Name, assigned), nil
	})
}

// GetAll 查询全部角色，未授权时返回空列表
func (s *Service) GetAll(ctx context.Context, p *session.Principal) []model.Role {
	var roles []model.Role
	err := s.gate.Protect(ctx, p, model.PermRoleView, "VIEW_ROLES", "all", func(ctx context.Context) (string, error) {
		found, ferr := s.repo.FindAll(ctx, nil)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		roles = found
		return fmt.Sprintf("查询%d个角色", len(found)), nil
	})
	if err != nil {
		return []model.Role{}
	}
	return roles
}

// GetByID 根据ID查询角色
func (s *Service) GetByID(ctx context.Context, id int64) (*model.Role, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.WrapPersistence(err)
	}
	if role == nil {
		return nil, errors.NotFound("角色")
	}
	return role, nil
}

// GetByName 根据角色名查询角色
func (s *Service) GetByName(ctx context.Context, name string) (*model.Role, error) {
	role, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, errors.WrapPersistence(err)
	}
	if role == nil {
		return nil, errors.NotFound("角色")
	}
	return role, nil
}

// GetRolePermissions 查询角色持有的全部权限
func (s *Service) GetRolePermissions(ctx context.Context, roleID int64) ([]model.Permission, error) {
	role, err := s.repo.FindByID(ctx, roleID)
	if err != nil {
		return nil, errors.WrapPersistence(err)
	}
	if role == nil {
		return nil, errors.NotFound("角色")
	}
	perms, err := s.permRepo.FindByRoleID(ctx, roleID)
	if err != nil {
		return nil, errors.WrapPersistence(err)
	}
	return perms, nil
}

// GetUserCountByRole 统计持有该角色的用户数
func (s *Service) GetUserCountByRole(ctx context.Context, roleID int64) (int64, error) {
	count, err := s.repo.CountUsers(ctx, roleID)
	if err != nil {
		return 0, errors.WrapPersistence(err)
	}
	return count, nil
}
