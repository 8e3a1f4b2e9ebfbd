package permission

import (
	"context"
	"fmt"

	"github.com/authcore/internal/audit"
	"github.com/authcore/internal/model"
	"github.com/authcore/internal/session"
	"github.com/authcore/pkg/errors"
	"github.com/authcore/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service 权限服务。写操作与全量查询经审计门禁保护，
// 单条查询与权限判定不设门禁。
type Service struct {
	repo Repository
	gate *audit.Gate
}

// NewService 创建权限服务
func NewService(repo Repository, gate *audit.Gate) *Service {
	return &Service{repo: repo, gate: gate}
}

// Create 创建权限，权限码重复时拒绝
func (s *Service) Create(ctx context.Context, p *session.Principal, req *CreateRequest) (*model.Permission, error) {
	var created *model.Permission
	err := s.gate.Protect(ctx, p, model.PermPermissionCreate, "CREATE_PERMISSION", req.Code, func(ctx context.Context) (string, error) {
		if !req.Type.Valid() {
			return "", errors.New(400, "无效的权限类型: "+string(req.Type))
		}
		exists, ferr := s.repo.ExistsByCode(ctx, req.Code)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		if exists {
			return "", errors.Duplicate("权限码")
		}
		perm := &model.Permission{
			Code:         req.Code,
			Name:         req.Name,
			Type:         req.Type,
			ResourcePath: req.ResourcePath,
			Description:  req.Description,
		}
		if ferr := s.repo.Create(ctx, perm); ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		created = perm
		logger.Info("权限已创建", zap.String("code", perm.Code), zap.Int64("id", perm.ID))
		return "创建权限: " + perm.Code, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update 更新权限的名称、类型、资源路径与描述。权限码不可变更。
func (s *Service) Update(ctx context.Context, p *session.Principal, id int64, req *UpdateRequest) (*model.Permission, error) {
	var updated *model.Permission
	target := fmt.Sprintf("permissionId=%d", id)
	err := s.gate.Protect(ctx, p, model.PermPermissionUpdate, "UPDATE_PERMISSION", target, func(ctx context.Context) (string, error) {
		perm, ferr := s.repo.FindByID(ctx, id)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		if perm == nil {
			return "", errors.NotFound("权限")
		}
		if req.Name != "" {
			perm.Name = req.Name
		}
		if req.Type != "" {
			if !req.Type.Valid() {
				return "", errors.New(400, "无效的权限类型: "+string(req.Type))
			}
			perm.Type = req.Type
		}
		if req.ResourcePath != "" {
			perm.ResourcePath = req.ResourcePath
		}
		if req.Description != "" {
			perm.Description = req.Description
		}
		if ferr := s.repo.Update(ctx, perm); ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		updated = perm
		return "更新权限: " + perm.Code, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete 删除权限，并在同一事务中解除其与所有角色的关联
func (s *Service) Delete(ctx context.Context, p *session.Principal, id int64) error {
	target := fmt.Sprintf("permissionId=%d", id)
	return s.gate.Protect(ctx, p, model.PermPermissionDelete, "DELETE_PERMISSION", target, func(ctx context.Context) (string, error) {
		perm, ferr := s.repo.FindByID(ctx, id)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		if perm == nil {
			return "", errors.NotFound("权限")
		}
		ferr = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
			if terr := tx.Where("permission_id = ?", id).Delete(&model.RolePermission{}).Error; terr != nil {
				return terr
			}
			return tx.Delete(&model.Permission{}, id).Error
		})
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		logger.Info("权限已删除", zap.String("code", perm.Code), zap.Int64("id", id))
		return "删除权限: " + perm.Code, nil
	})
}

// GetAll 查询全部权限，未授权时返回空列表
func (s *Service) GetAll(ctx context.Context, p *session.Principal) []model.Permission {
	var perms []model.Permission
	err := s.gate.Protect(ctx, p, model.PermPermissionView, "VIEW_PERMISSIONS", "all", func(ctx context.Context) (string, error) {
		found, ferr := s.repo.FindAll(ctx, nil)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		perms = found
		return fmt.Sprintf("查询%d个权限", len(found)), nil
	})
	if err != nil {
		return []model.Permission{}
	}
	return perms
}

// GetByID 根据ID查询权限
func (s *Service) GetByID(ctx context.Context, id int64) (*model.Permission, error) {
	perm, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.WrapPersistence(err)
	}
	if perm == nil {
		return nil, errors.NotFound("权限")
	}
	return perm, nil
}

// GetByCode 根据权限码查询权限
func (s *Service) GetByCode(ctx context.Context, code string) (*model.Permission, error) {
	perm, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, errors.WrapPersistence(err)
	}
	if perm == nil {
		return nil, errors.NotFound("权限")
	}
	return perm, nil
}

// GetByType 根据类型查询权限列表
func (s *Service) GetByType(ctx context.Context, typ model.PermissionType) ([]model.Permission, error) {
	if !typ.Valid() {
		return nil, errors.New(400, "无效的权限类型: "+string(typ))
	}
	perms, err := s.repo.FindByType(ctx, typ)
	if err != nil {
		return nil, errors.WrapPersistence(err)
	}
	return perms, nil
}

// CheckPermission 判定主体是否持有指定权限并留痕。
// 主体为空时直接返回 false，不产生审计日志。
func (s *Service) CheckPermission(ctx context.Context, p *session.Principal, code string) bool {
	if p == nil {
		return false
	}
	allowed := p.HasPermission(code)
	result := model.ResultDenied
	detail := "无权限: " + code
	if allowed {
		result = model.ResultSuccess
		detail = "持有权限: " + code
	}
	s.gate.Recorder().Record(ctx, p, "CHECK_PERMISSION", code, detail, result)
	return allowed
}
