package user

import (
	"context"
	"testing"
	"time"

	"github.com/authcore/internal/audit"
	"github.com/authcore/internal/model"
	"github.com/authcore/internal/permission"
	"github.com/authcore/internal/role"
	"github.com/authcore/internal/session"
	"github.com/authcore/internal/testutil"
	"github.com/authcore/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	svc      *Service
	roleSvc  *role.Service
	registry *session.Registry
	audit    *audit.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	testutil.Setup(t)

	auditSvc := audit.NewService(audit.NewRepository())
	permRepo := permission.NewRepository()
	roleRepo := role.NewRepository()
	registry := session.NewRegistry(time.Minute)

	return &testEnv{
		svc:      NewService(NewRepository(), roleRepo, permRepo, registry, auditSvc),
		roleSvc:  role.NewService(roleRepo, permRepo, auditSvc.Gate()),
		registry: registry,
		audit:    auditSvc,
	}
}

func adminPrincipal() *session.Principal {
	return &session.Principal{
		UserID:   400,
		Username: "user-manager",
		PermissionCodes: []string{
			model.PermUserView,
			model.PermUserCreate,
			model.PermUserUpdate,
			model.PermUserDelete,
			model.PermUserLock,
			model.PermUserResetPassword,
			model.PermUserAssignRole,
			model.PermUserRemoveRole,
			model.PermRoleCreate,
			model.PermRoleAssignPermission,
		},
	}
}

// createUser 通过服务入口创建测试用户
func (e *testEnv) createUser(t *testing.T, username, pass string) *model.User {
	t.Helper()
	u, err := e.svc.Create(context.Background(), adminPrincipal(), &CreateRequest{
		Username: username,
		Password: pass,
		Email:    username + "@test.com",
	})
	require.NoError(t, err)
	return u
}

// createRoleWithPerms 创建角色并授予权限码，权限不存在时一并建出
func (e *testEnv) createRoleWithPerms(t *testing.T, name string, codes ...string) *model.Role {
	t.Helper()
	ctx := context.Background()
	p := adminPrincipal()

	r, err := e.roleSvc.Create(ctx, p, &role.CreateRequest{Name: name})
	require.NoError(t, err)
	for _, code := range codes {
		perm := &model.Permission{Code: code, Name: code, Type: model.TypeOperation}
		require.NoError(t, e.svc.permRepo.Create(ctx, perm))
		require.NoError(t, e.roleSvc.AssignPermission(ctx, p, r.ID, perm.ID))
	}
	return r
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)

	u := env.createUser(t, "create_ok", "Passw0rd1")
	assert.NotZero(t, u.ID)
	assert.Equal(t, model.StatusActive, u.Status)
	assert.NotEqual(t, "Passw0rd1", u.Password)
	assert.Contains(t, u.Password, "$")
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := adminPrincipal()

	env.createUser(t, "create_dup", "Passw0rd1")
	_, err := env.svc.Create(ctx, p, &CreateRequest{Username: "create_dup", Password: "Passw0rd1"})
	assert.True(t, errors.Is(err, errors.ErrAlreadyExists))
}

func TestCreateUserWeakPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := adminPrincipal()

	for _, weak := range []string{"short", "alllowercase1", "NOUPPER???"} {
		_, err := env.svc.Create(ctx, p, &CreateRequest{Username: "weak_" + weak, Password: weak})
		assert.True(t, errors.Is(err, errors.ErrPolicyViolation), "password: %s", weak)
	}
}

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := env.createUser(t, "login_ok", "Passw0rd1")
	r := env.createRoleWithPerms(t, "TEST_LOGIN_ROLE", "TEST_LOGIN_PERM")
	require.NoError(t, env.svc.AssignRole(ctx, adminPrincipal(), u.ID, r.ID))

	sess, err := env.svc.Login(ctx, "login_ok", "Passw0rd1")
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)

	p := &sess.Principal
	assert.Equal(t, u.ID, p.UserID)
	assert.True(t, p.HasRole("TEST_LOGIN_ROLE"))
	assert.True(t, p.HasPermission("TEST_LOGIN_PERM"))
	assert.False(t, p.Unrestricted)

	// 会话可按令牌取回
	assert.Equal(t, "login_ok", env.registry.Principal(ctx, sess.Token).Username)

	// 更新最后登录时间
	reloaded, err := env.svc.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, reloaded.LastLoginAt)
}

func TestLoginUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	before := env.audit.GetLogCount(ctx)
	_, err := env.svc.Login(ctx, "login_ghost", "Passw0rd1")
	assert.True(t, errors.Is(err, errors.ErrInvalidCredentials))
	assert.Equal(t, before+1, env.audit.GetLogCount(ctx))
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createUser(t, "login_badpass", "Passw0rd1")
	_, err := env.svc.Login(ctx, "login_badpass", "WrongPass1")
	assert.True(t, errors.Is(err, errors.ErrInvalidCredentials))
}

func TestLoginLockedUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := adminPrincipal()

	u := env.createUser(t, "login_locked", "Passw0rd1")
	require.NoError(t, env.svc.Lock(ctx, p, u.ID))

	_, err := env.svc.Login(ctx, "login_locked", "Passw0rd1")
	require.Error(t, err)
	assert.Equal(t, 403, errors.GetCode(err))

	// 解锁后可再次登录
	require.NoError(t, env.svc.Unlock(ctx, p, u.ID))
	_, err = env.svc.Login(ctx, "login_locked", "Passw0rd1")
	assert.NoError(t, err)
}

func TestPrincipalUnionOfRolePermissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := adminPrincipal()

	u := env.createUser(t, "union_user", "Passw0rd1")
	first := env.createRoleWithPerms(t, "TEST_UNION_A", "TEST_UNION_PERM_A", "TEST_UNION_SHARED")
	second := env.createRoleWithPerms(t, "TEST_UNION_B", "TEST_UNION_PERM_B")
	// 共享权限也挂到第二个角色
	sharedPerm, err := env.svc.permRepo.FindByCode(ctx, "TEST_UNION_SHARED")
	require.NoError(t, err)
	require.NoError(t, env.roleSvc.AssignPermission(ctx, p, second.ID, sharedPerm.ID))

	require.NoError(t, env.svc.AssignRole(ctx, p, u.ID, first.ID))
	require.NoError(t, env.svc.AssignRole(ctx, p, u.ID, second.ID))

	sess, err := env.svc.Login(ctx, "union_user", "Passw0rd1")
	require.NoError(t, err)

	codes := sess.Principal.PermissionCodes
	assert.Contains(t, codes, "TEST_UNION_PERM_A")
	assert.Contains(t, codes, "TEST_UNION_PERM_B")
	// 权限码并集去重
	shared := 0
	for _, c := range codes {
		if c == "TEST_UNION_SHARED" {
			shared++
		}
	}
	assert.Equal(t, 1, shared)
}

func TestLoginUnrestrictedRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := adminPrincipal()

	u := env.createUser(t, "root_user", "Passw0rd1")
	r, err := env.roleSvc.Create(ctx, p, &role.CreateRequest{
		Name: model.SuperAdminRoleName, Level: model.LevelSuperAdmin,
	})
	require.NoError(t, err)
	require.NoError(t, env.svc.AssignRole(ctx, p, u.ID, r.ID))

	sess, err := env.svc.Login(ctx, "root_user", "Passw0rd1")
	require.NoError(t, err)
	assert.True(t, sess.Principal.Unrestricted)
	// 目录中不存在的权限码也放行
	assert.True(t, sess.Principal.HasPermission("SOME_CODE_NOBODY_DEFINED"))
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createUser(t, "logout_user", "Passw0rd1")
	sess, err := env.svc.Login(ctx, "logout_user", "Passw0rd1")
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, sess.Token))
	assert.Nil(t, env.registry.Principal(ctx, sess.Token))

	err = env.svc.Logout(ctx, sess.Token)
	assert.True(t, errors.Is(err, errors.ErrSessionRequired))
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := env.createUser(t, "chpass_user", "Passw0rd1")
	self := &session.Principal{UserID: u.ID, Username: u.Username}

	// 旧密码错误
	err := env.svc.ChangePassword(ctx, self, &ChangePasswordRequest{
		OldPassword: "WrongOld1", NewPassword: "NewPassw0rd",
	})
	assert.True(t, errors.Is(err, errors.ErrInvalidCredentials))

	// 新密码不符合策略
	err = env.svc.ChangePassword(ctx, self, &ChangePasswordRequest{
		OldPassword: "Passw0rd1", NewPassword: "weak",
	})
	assert.True(t, errors.Is(err, errors.ErrPolicyViolation))

	// 修改成功后旧密码失效
	require.NoError(t, env.svc.ChangePassword(ctx, self, &ChangePasswordRequest{
		OldPassword: "Passw0rd1", NewPassword: "NewPassw0rd1",
	}))
	_, err = env.svc.Login(ctx, "chpass_user", "Passw0rd1")
	assert.Error(t, err)
	_, err = env.svc.Login(ctx, "chpass_user", "NewPassw0rd1")
	assert.NoError(t, err)
}

func TestResetPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := adminPrincipal()

	u := env.createUser(t, "reset_user", "Passw0rd1")
	require.NoError(t, env.svc.ResetPassword(ctx, p, u.ID, "ResetPass1"))

	_, err := env.svc.Login(ctx, "reset_user", "ResetPass1")
	assert.NoError(t, err)

	err = env.svc.ResetPassword(ctx, p, u.ID, "weak")
	assert.True(t, errors.Is(err, errors.ErrPolicyViolation))
}

func TestAssignRoleIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := adminPrincipal()

	u := env.createUser(t, "assign_user", "Passw0rd1")
	r := env.createRoleWithPerms(t, "TEST_ASSIGN_ROLE")

	require.NoError(t, env.svc.AssignRole(ctx, p, u.ID, r.ID))
	require.NoError(t, env.svc.AssignRole(ctx, p, u.ID, r.ID))

	roles, err := env.svc.GetUserRoles(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, roles, 1)
}

func TestRemoveRoleIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := adminPrincipal()

	u := env.createUser(t, "remove_user", "Passw0rd1")
	r := env.createRoleWithPerms(t, "TEST_REMOVE_ROLE")
	require.NoError(t, env.svc.AssignRole(ctx, p, u.ID, r.ID))

	require.NoError(t, env.svc.RemoveRole(ctx, p, u.ID, r.ID))
	require.NoError(t, env.svc.RemoveRole(ctx, p, u.ID, r.ID))

	roles, err := env.svc.GetUserRoles(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestDeleteUserCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := adminPrincipal()

	u := env.createUser(t, "delete_user", "Passw0rd1")
	r := env.createRoleWithPerms(t, "TEST_DELETE_ROLE")
	require.NoError(t, env.svc.AssignRole(ctx, p, u.ID, r.ID))

	require.NoError(t, env.svc.Delete(ctx, p, u.ID))

	_, err := env.svc.GetByID(ctx, u.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	var count int64
	db := env.svc.repo.DB()
	require.NoError(t, db.Model(&model.UserRole{}).Where("user_id = ?", u.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := adminPrincipal()

	u := env.createUser(t, "update_user", "Passw0rd1")
	updated, err := env.svc.Update(ctx, p, u.ID, &UpdateRequest{
		Email: "new@test.com", RealName: "新名字",
	})
	require.NoError(t, err)
	assert.Equal(t, "new@test.com", updated.Email)
	assert.Equal(t, "新名字", updated.RealName)

	_, err = env.svc.Update(ctx, p, u.ID, &UpdateRequest{Status: "BOGUS"})
	assert.Equal(t, 400, errors.GetCode(err))
}

func TestUserOperationsDenied(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	nobody := &session.Principal{UserID: 401, Username: "user-nobody"}

	before := env.audit.GetLogCount(ctx)
	_, err := env.svc.Create(ctx, nobody, &CreateRequest{Username: "denied_user", Password: "Passw0rd1"})
	assert.True(t, errors.Is(err, errors.ErrPermissionDenied))
	assert.Equal(t, before+1, env.audit.GetLogCount(ctx))

	assert.Empty(t, env.svc.GetAll(ctx, nobody))
	assert.NotEmpty(t, env.svc.GetAll(ctx, adminPrincipal()))
}

func TestGrantRevokeScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := adminPrincipal()

	grader, err := env.roleSvc.Create(ctx, p, &role.CreateRequest{Name: "GRADER", Level: model.LevelUser})
	require.NoError(t, err)
	scoreEnter := &model.Permission{Code: "SCORE_ENTER", Name: "录入成绩", Type: model.TypeOperation}
	require.NoError(t, env.svc.permRepo.Create(ctx, scoreEnter))
	require.NoError(t, env.roleSvc.AssignPermission(ctx, p, grader.ID, scoreEnter.ID))

	ta := env.createUser(t, "ta1", "Passw0rd1")

	// 无角色时不持有权限
	sess, err := env.svc.Login(ctx, "ta1", "Passw0rd1")
	require.NoError(t, err)
	assert.False(t, sess.Principal.HasPermission("SCORE_ENTER"))

	// 授予角色后重新登录，权限生效
	require.NoError(t, env.svc.AssignRole(ctx, p, ta.ID, grader.ID))
	sess, err = env.svc.Login(ctx, "ta1", "Passw0rd1")
	require.NoError(t, err)
	assert.True(t, sess.Principal.HasPermission("SCORE_ENTER"))

	// 解除角色后权限随之消失
	require.NoError(t, env.svc.RemoveRole(ctx, p, ta.ID, grader.ID))
	sess, err = env.svc.Login(ctx, "ta1", "Passw0rd1")
	require.NoError(t, err)
	assert.False(t, sess.Principal.HasPermission("SCORE_ENTER"))
}

func TestGatedCallsLeaveOneAuditEntryEach(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := adminPrincipal()

	before := env.audit.GetLogCount(ctx)
	env.createUser(t, "audit_once_user", "Passw0rd1") // SUCCESS
	_, err := env.svc.Create(ctx, p, &CreateRequest{Username: "audit_once_user", Password: "Passw0rd1"})
	require.Error(t, err) // FAILURE
	_, err = env.svc.Create(ctx, &session.Principal{UserID: 402, Username: "x"}, &CreateRequest{Username: "audit_once_2", Password: "Passw0rd1"})
	require.Error(t, err) // DENIED

	assert.Equal(t, before+3, env.audit.GetLogCount(ctx))
}
