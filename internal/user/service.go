package user

import (
	"context"
	"fmt"
	"time"

	"github.com/authcore/internal/audit"
	"github.com/authcore/internal/model"
	"github.com/authcore/internal/permission"
	"github.com/authcore/internal/role"
	"github.com/authcore/internal/session"
	"github.com/authcore/pkg/errors"
	"github.com/authcore/pkg/logger"
	"github.com/authcore/pkg/password"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service 用户服务。覆盖认证、账户管理与用户角色关联，
// 除登录、登出和自助改密外的写操作均经审计门禁保护。
type Service struct {
	repo     Repository
	roleRepo role.Repository
	permRepo permission.Repository
	registry *session.Registry
	recorder *audit.Service
	gate     *audit.Gate
}

// NewService 创建用户服务
func NewService(repo Repository, roleRepo role.Repository, permRepo permission.Repository, registry *session.Registry, auditSvc *audit.Service) *Service {
	return &Service{
		repo:     repo,
		roleRepo: roleRepo,
		permRepo: permRepo,
		registry: registry,
		recorder: auditSvc,
		gate:     auditSvc.Gate(),
	}
}

// Login 认证用户并创建会话。登录时一次性解析全部角色与权限码，
// 后续权限判断只读会话内的主体快照。
func (s *Service) Login(ctx context.Context, username, plaintext string) (*session.Session, error) {
	attempt := &session.Principal{Username: username}

	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, errors.WrapPersistence(err)
	}
	if u == nil {
		s.recorder.Record(ctx, attempt, "LOGIN", username, "用户不存在", model.ResultFailure)
		return nil, errors.ErrInvalidCredentials
	}
	attempt.UserID = u.ID

	if u.Status != model.StatusActive {
		s.recorder.Record(ctx, attempt, "LOGIN", username, "账户状态: "+string(u.Status), model.ResultDenied)
		return nil, errors.New(403, "账户不可用")
	}

	if !password.Verify(plaintext, u.Password) {
		s.recorder.Record(ctx, attempt, "LOGIN", username, "密码错误", model.ResultFailure)
		return nil, errors.ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.repo.UpdateFields(ctx, u.ID, map[string]interface{}{"last_login_at": now}); err != nil {
		return nil, errors.WrapPersistence(err)
	}
	u.LastLoginAt = &now

	p, err := s.ResolvePrincipal(ctx, u)
	if err != nil {
		return nil, err
	}

	sess, err := s.registry.Create(ctx, p)
	if err != nil {
		return nil, errors.Wrap(err, 500, "创建会话失败")
	}

	s.recorder.Record(ctx, p, "LOGIN", username, "登录成功", model.ResultSuccess)
	logger.Info("用户登录",
		zap.String("username", username),
		zap.Int("roles", len(p.Roles)),
		zap.Int("permissions", len(p.PermissionCodes)),
		zap.Bool("unrestricted", p.Unrestricted),
	)
	return sess, nil
}

// ResolvePrincipal 解析用户的主体快照：全部角色、权限码并集与不受限标记
func (s *Service) ResolvePrincipal(ctx context.Context, u *model.User) (*session.Principal, error) {
	roles, err := s.roleRepo.FindByUserID(ctx, u.ID)
	if err != nil {
		return nil, errors.WrapPersistence(err)
	}

	p := &session.Principal{
		UserID:          u.ID,
		Username:        u.Username,
		Roles:           make([]session.RoleRef, 0, len(roles)),
		PermissionCodes: []string{},
	}

	seen := make(map[string]struct{})
	for _, r := range roles {
		p.Roles = append(p.Roles, session.RoleRef{ID: r.ID, Name: r.Name, Level: r.Level})
		if r.Unrestricted {
			p.Unrestricted = true
		}
		perms, err := s.permRepo.FindByRoleID(ctx, r.ID)
		if err != nil {
			return nil, errors.WrapPersistence(err)
		}
		for _, perm := range perms {
			if _, ok := seen[perm.Code]; ok {
				continue
			}
			seen[perm.Code] = struct{}{}
			p.PermissionCodes = append(p.PermissionCodes, perm.Code)
		}
	}
	return p, nil
}

// Logout 登出并销毁会话
func (s *Service) Logout(ctx context.Context, token string) error {
	p := s.registry.Principal(ctx, token)
	if p == nil {
		return errors.ErrSessionRequired
	}
	if err := s.registry.Destroy(ctx, token); err != nil {
		return errors.Wrap(err, 500, "销毁会话失败")
	}
	s.recorder.Record(ctx, p, "LOGOUT", p.Username, "登出成功", model.ResultSuccess)
	return nil
}

// Create 创建用户。用户名不可重复，密码须满足安全策略。
func (s *Service) Create(ctx context.Context, p *session.Principal, req *CreateRequest) (*model.User, error) {
	var created *model.User
	err := s.gate.Protect(ctx, p, model.PermUserCreate, "CREATE_USER", req.Username, func(ctx context.Context) (string, error) {
		exists, ferr := s.repo.ExistsByUsername(ctx, req.Username)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		if exists {
			return "", errors.Duplicate("用户名")
		}
		if !password.ValidatePolicy(req.Password) {
			return "", errors.ErrPolicyViolation
		}
		encrypted, ferr := password.Encrypt(req.Password)
		if ferr != nil {
			return "", errors.Wrap(ferr, 500, "密码加密失败")
		}
		u := &model.User{
			Username: req.Username,
			Password: encrypted,
			Email:    req.Email,
			RealName: req.RealName,
			Status:   model.StatusActive,
		}
		if ferr := s.repo.Create(ctx, u); ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		created = u
		logger.Info("用户已创建", zap.String("username", u.Username), zap.Int64("id", u.ID))
		return "创建用户: " + u.Username, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update 更新用户的邮箱、姓名与状态。用户名与密码走专用操作。
func (s *Service) Update(ctx context.Context, p *session.Principal, id int64, req *UpdateRequest) (*model.User, error) {
	var updated *model.User
	target := fmt.Sprintf("userId=%d", id)
	err := s.gate.Protect(ctx, p, model.PermUserUpdate, "UPDATE_USER", target, func(ctx context.Context) (string, error) {
		u, ferr := s.repo.FindByID(ctx, id)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		if u == nil {
			return "", errors.NotFound("用户")
		}
		if req.Email != "" {
			u.Email = req.Email
		}
		if req.RealName != "" {
			u.RealName = req.RealName
		}
		if req.Status != "" {
			if !req.Status.Valid() {
				return "", errors.New(400, "无效的用户状态: "+string(req.Status))
			}
			u.Status = req.Status
		}
		if ferr := s.repo.Update(ctx, u); ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		updated = u
		return "更新用户: " + u.Username, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete 删除用户，并在同一事务中解除其全部角色关联
func (s *Service) Delete(ctx context.Context, p *session.Principal, id int64) error {
	target := fmt.Sprintf("userId=%d", id)
	return s.gate.Protect(ctx, p, model.PermUserDelete, "DELETE_USER", target, func(ctx context.Context) (string, error) {
		u, ferr := s.repo.FindByID(ctx, id)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		if u == nil {
			return "", errors.NotFound("用户")
		}
		ferr = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
			if terr := tx.Where("user_id = ?", id).Delete(&model.UserRole{}).Error; terr != nil {
				return terr
			}
			return tx.Delete(&model.User{}, id).Error
		})
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		logger.Info("用户已删除", zap.String("username", u.Username), zap.Int64("id", id))
		return "删除用户: " + u.Username, nil
	})
}

// Lock 锁定用户账户
func (s *Service) Lock(ctx context.Context, p *session.Principal, id int64) error {
	return s.setStatus(ctx, p, id, model.StatusLocked, "LOCK_USER", "锁定用户")
}

// Unlock 解锁用户账户
func (s *Service) Unlock(ctx context.Context, p *session.Principal, id int64) error {
	return s.setStatus(ctx, p, id, model.StatusActive, "UNLOCK_USER", "解锁用户")
}

// setStatus 受锁定权限保护的状态切换
func (s *Service) setStatus(ctx context.Context, p *session.Principal, id int64, status model.UserStatus, operation, verb string) error {
	target := fmt.Sprintf("userId=%d", id)
	return s.gate.Protect(ctx, p, model.PermUserLock, operation, target, func(ctx context.Context) (string, error) {
		u, ferr := s.repo.FindByID(ctx, id)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		if u == nil {
			return "", errors.NotFound("用户")
		}
		if ferr := s.repo.UpdateFields(ctx, id, map[string]interface{}{"status": status}); ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		return verb + ": " + u.Username, nil
	})
}

// ResetPassword 管理员重置用户密码
func (s *Service) ResetPassword(ctx context.Context, p *session.Principal, id int64, newPassword string) error {
	target := fmt.Sprintf("userId=%d", id)
	return s.gate.Protect(ctx, p, model.PermUserResetPassword, "RESET_PASSWORD", target, func(ctx context.Context) (string, error) {
		u, ferr := s.repo.FindByID(ctx, id)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		if u == nil {
			return "", errors.NotFound("用户")
		}
		if !password.ValidatePolicy(newPassword) {
			return "", errors.ErrPolicyViolation
		}
		encrypted, ferr := password.Encrypt(newPassword)
		if ferr != nil {
			return "", errors.Wrap(ferr, 500, "密码加密失败")
		}
		if ferr := s.repo.UpdateFields(ctx, id, map[string]interface{}{"password": encrypted}); ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		return "重置密码: " + u.Username, nil
	})
}

// ChangePassword 自助修改密码。须验证旧密码，不设权限门禁但留痕。
func (s *Service) ChangePassword(ctx context.Context, p *session.Principal, req *ChangePasswordRequest) error {
	if p == nil {
		return errors.ErrSessionRequired
	}

	u, err := s.repo.FindByID(ctx, p.UserID)
	if err != nil {
		return errors.WrapPersistence(err)
	}
	if u == nil {
		return errors.NotFound("用户")
	}

	if !password.Verify(req.OldPassword, u.Password) {
		s.recorder.Record(ctx, p, "CHANGE_PASSWORD", u.Username, "旧密码错误", model.ResultFailure)
		return errors.ErrInvalidCredentials
	}
	if !password.ValidatePolicy(req.NewPassword) {
		s.recorder.Record(ctx, p, "CHANGE_PASSWORD", u.Username, errors.ErrPolicyViolation.Message, model.ResultFailure)
		return errors.ErrPolicyViolation
	}

	encrypted, err := password.Encrypt(req.NewPassword)
	if err != nil {
		return errors.Wrap(err, 500, "密码加密失败")
	}
	if err := s.repo.UpdateFields(ctx, u.ID, map[string]interface{}{"password": encrypted}); err != nil {
		return errors.WrapPersistence(err)
	}

	s.recorder.Record(ctx, p, "CHANGE_PASSWORD", u.Username, "修改密码成功", model.ResultSuccess)
	return nil
}

// AssignRole 为用户授予角色。重复授予视为成功，不产生新关联。
func (s *Service) AssignRole(ctx context.Context, p *session.Principal, userID, roleID int64) error {
	target := fmt.Sprintf("userId=%d,roleId=%d", userID, roleID)
	return s.gate.Protect(ctx, p, model.PermUserAssignRole, "ASSIGN_ROLE", target, func(ctx context.Context) (string, error) {
		u, ferr := s.repo.FindByID(ctx, userID)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		if u == nil {
			return "", errors.NotFound("用户")
		}
		r, ferr := s.roleRepo.FindByID(ctx, roleID)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		if r == nil {
			return "", errors.NotFound("角色")
		}
		has, ferr := s.repo.HasRole(ctx, userID, roleID)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		if has {
			return fmt.Sprintf("用户%s已持有角色%s", u.Username, r.Name), nil
		}
		if ferr := s.repo.AddRole(ctx, userID, roleID); ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		return fmt.Sprintf("为用户%s授予角色%s", u.Username, r.Name), nil
	})
}

// RemoveRole 解除用户的角色。未持有时视为成功。
func (s *Service) RemoveRole(ctx context.Context, p *session.Principal, userID, roleID int64) error {
	target := fmt.Sprintf("userId=%d,roleId=%d", userID, roleID)
	return s.gate.Protect(ctx, p, model.PermUserRemoveRole, "REMOVE_ROLE", target, func(ctx context.Context) (string, error) {
		u, ferr := s.repo.FindByID(ctx, userID)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		if u == nil {
			return "", errors.NotFound("用户")
		}
		if ferr := s.repo.RemoveRole(ctx, userID, roleID); ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		return fmt.Sprintf("解除用户%s的角色%d", u.Username, roleID), nil
	})
}

// GetAll 查询全部用户，未授权时返回空列表
func (s *Service) GetAll(ctx context.Context, p *session.Principal) []model.User {
	var users []model.User
	err := s.gate.Protect(ctx, p, model.PermUserView, "VIEW_USERS", "all", func(ctx context.Context) (string, error) {
		found, ferr := s.repo.FindAll(ctx, nil)
		if ferr != nil {
			return "", errors.WrapPersistence(ferr)
		}
		users = found
		return fmt.Sprintf("查询%d个用户", len(found)), nil
	})
	if err != nil {
		return []model.User{}
	}
	return users
}

// GetByID 根据ID查询用户
func (s *Service) GetByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.WrapPersistence(err)
	}
	if u == nil {
		return nil, errors.NotFound("用户")
	}
	return u, nil
}

// GetByUsername 根据用户名查询用户
func (s *Service) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, errors.WrapPersistence(err)
	}
	if u == nil {
		return nil, errors.NotFound("用户")
	}
	return u, nil
}

// GetUserRoles 查询用户持有的全部角色
func (s *Service) GetUserRoles(ctx context.Context, userID int64) ([]model.Role, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, errors.WrapPersistence(err)
	}
	if u == nil {
		return nil, errors.NotFound("用户")
	}
	roles, err := s.roleRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, errors.WrapPersistence(err)
	}
	return roles, nil
}
