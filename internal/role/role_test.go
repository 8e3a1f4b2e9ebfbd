package role

import (
	"context"
	"fmt"
	"testing"

	"github.com/authcore/internal/audit"
	"github.com/authcore/internal/model"
	"github.com/authcore/internal/permission"
	"github.com/authcore/internal/session"
	"github.com/authcore/internal/testutil"
	"github.com/authcore/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	svc      *Service
	permRepo permission.Repository
	audit    *audit.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	testutil.Setup(t)
	auditSvc := audit.NewService(audit.NewRepository())
	permRepo := permission.NewRepository()
	return &testEnv{
		svc:      NewService(NewRepository(), permRepo, auditSvc.Gate()),
		permRepo: permRepo,
		audit:    auditSvc,
	}
}

func managerPrincipal() *session.Principal {
	return &session.Principal{
		UserID:   300,
		Username: "role-manager",
		PermissionCodes: []string{
			model.PermRoleView,
			model.PermRoleCreate,
			model.PermRoleUpdate,
			model.PermRoleDelete,
			model.PermRoleAssignPermission,
			model.PermRoleRemovePermission,
		},
	}
}

func (e *testEnv) createPermission(t *testing.T, code string) *model.Permission {
	t.Helper()
	perm := &model.Permission{Code: code, Name: code, Type: model.TypeOperation}
	require.NoError(t, e.permRepo.Create(context.Background(), perm))
	return perm
}

func TestCreateRole(t *testing.T) {
	env := newTestEnv(t)

	role, err := env.svc.Create(context.Background(), managerPrincipal(), &CreateRequest{
		Name: "TEST_ROLE_CREATE", Description: "测试角色", Level: model.LevelManager,
	})
	require.NoError(t, err)
	assert.NotZero(t, role.ID)
	assert.Equal(t, model.LevelManager, role.Level)
	assert.False(t, role.Unrestricted)
}

func TestCreateRoleDefaultLevel(t *testing.T) {
	env := newTestEnv(t)

	role, err := env.svc.Create(context.Background(), managerPrincipal(), &CreateRequest{
		Name: "TEST_ROLE_DEFAULT_LEVEL",
	})
	require.NoError(t, err)
	assert.Equal(t, model.LevelUser, role.Level)
}

func TestCreateRoleDuplicateName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := managerPrincipal()

	_, err := env.svc.Create(ctx, p, &CreateRequest{Name: "TEST_ROLE_DUP"})
	require.NoError(t, err)

	_, err = env.svc.Create(ctx, p, &CreateRequest{Name: "TEST_ROLE_DUP"})
	assert.True(t, errors.Is(err, errors.ErrAlreadyExists))
}

func TestCreateSuperAdminRoleIsUnrestricted(t *testing.T) {
	env := newTestEnv(t)

	role, err := env.svc.Create(context.Background(), managerPrincipal(), &CreateRequest{
		Name: model.SuperAdminRoleName, Level: model.LevelSuperAdmin,
	})
	require.NoError(t, err)
	assert.True(t, role.Unrestricted)
}

func TestUpdateRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := managerPrincipal()

	role, err := env.svc.Create(ctx, p, &CreateRequest{Name: "TEST_ROLE_UPDATE"})
	require.NoError(t, err)

	updated, err := env.svc.Update(ctx, p, role.ID, &UpdateRequest{
		Description: "已更新", Level: model.LevelAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, "已更新", updated.Description)
	assert.Equal(t, model.LevelAdmin, updated.Level)
	assert.Equal(t, "TEST_ROLE_UPDATE", updated.Name)
}

func TestDeleteRoleCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := managerPrincipal()

	role, err := env.svc.Create(ctx, p, &CreateRequest{Name: "TEST_ROLE_CASCADE"})
	require.NoError(t, err)
	perm := env.createPermission(t, "TEST_RC_PERM")
	require.NoError(t, env.svc.AssignPermission(ctx, p, role.ID, perm.ID))

	db := env.permRepo.DB()
	require.NoError(t, db.Create(&model.UserRole{UserID: 9901, RoleID: role.ID}).Error)

	require.NoError(t, env.svc.Delete(ctx, p, role.ID))

	_, err = env.svc.GetByID(ctx, role.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	var rpCount, urCount int64
	require.NoError(t, db.Model(&model.RolePermission{}).Where("role_id = ?", role.ID).Count(&rpCount).Error)
	require.NoError(t, db.Model(&model.UserRole{}).Where("role_id = ?", role.ID).Count(&urCount).Error)
	assert.Zero(t, rpCount)
	assert.Zero(t, urCount)
}

func TestAssignPermissionIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := managerPrincipal()

	role, err := env.svc.Create(ctx, p, &CreateRequest{Name: "TEST_ROLE_ASSIGN"})
	require.NoError(t, err)
	perm := env.createPermission(t, "TEST_ASSIGN_PERM")

	require.NoError(t, env.svc.AssignPermission(ctx, p, role.ID, perm.ID))
	require.NoError(t, env.svc.AssignPermission(ctx, p, role.ID, perm.ID))

	perms, err := env.svc.GetRolePermissions(ctx, role.ID)
	require.NoError(t, err)
	assert.Len(t, perms, 1)
}

func TestAssignPermissionMissingTargets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := managerPrincipal()

	err := env.svc.AssignPermission(ctx, p, 999999, 1)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	role, err := env.svc.Create(ctx, p, &CreateRequest{Name: "TEST_ROLE_ASSIGN_MISSING"})
	require.NoError(t, err)
	err = env.svc.AssignPermission(ctx, p, role.ID, 999999)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRemovePermissionIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := managerPrincipal()

	role, err := env.svc.Create(ctx, p, &CreateRequest{Name: "TEST_ROLE_REMOVE"})
	require.NoError(t, err)
	perm := env.createPermission(t, "TEST_REMOVE_PERM")
	require.NoError(t, env.svc.AssignPermission(ctx, p, role.ID, perm.ID))

	require.NoError(t, env.svc.RemovePermission(ctx, p, role.ID, perm.ID))
	require.NoError(t, env.svc.RemovePermission(ctx, p, role.ID, perm.ID))

	perms, err := env.svc.GetRolePermissions(ctx, role.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestBatchAssignPermissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := managerPrincipal()

	role, err := env.svc.Create(ctx, p, &CreateRequest{Name: "TEST_ROLE_BATCH"})
	require.NoError(t, err)

	ids := make([]int64, 0, 3)
	for i := 0; i < 3; i++ {
		perm := env.createPermission(t, fmt.Sprintf("TEST_BATCH_PERM_%d", i))
		ids = append(ids, perm.ID)
	}
	// 其中一个先行单独授予，批量时应跳过
	require.NoError(t, env.svc.AssignPermission(ctx, p, role.ID, ids[0]))

	require.NoError(t, env.svc.BatchAssignPermissions(ctx, p, role.ID, ids))

	perms, err := env.svc.GetRolePermissions(ctx, role.ID)
	require.NoError(t, err)
	assert.Len(t, perms, 3)
}

func TestBatchAssignPermissionsMissingPermission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := managerPrincipal()

	role, err := env.svc.Create(ctx, p, &CreateRequest{Name: "TEST_ROLE_BATCH_MISSING"})
	require.NoError(t, err)
	perm := env.createPermission(t, "TEST_BATCH_MISSING_PERM")

	err = env.svc.BatchAssignPermissions(ctx, p, role.ID, []int64{perm.ID, 999999})
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	perms, err := env.svc.GetRolePermissions(ctx, role.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestRoleOperationsDenied(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	nobody := &session.Principal{UserID: 301, Username: "role-nobody"}

	before := env.audit.GetLogCount(ctx)
	_, err := env.svc.Create(ctx, nobody, &CreateRequest{Name: "TEST_ROLE_DENIED"})
	assert.True(t, errors.Is(err, errors.ErrPermissionDenied))
	assert.Equal(t, before+1, env.audit.GetLogCount(ctx))

	assert.Empty(t, env.svc.GetAll(ctx, nobody))
}

func TestGetUserCountByRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := managerPrincipal()

	role, err := env.svc.Create(ctx, p, &CreateRequest{Name: "TEST_ROLE_USERCOUNT"})
	require.NoError(t, err)

	db := env.permRepo.DB()
	require.NoError(t, db.Create(&model.UserRole{UserID: 9902, RoleID: role.ID}).Error)
	require.NoError(t, db.Create(&model.UserRole{UserID: 9903, RoleID: role.ID}).Error)

	count, err := env.svc.GetUserCountByRole(ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRoleLevelOrdering(t *testing.T) {
	assert.True(t, model.LevelSuperAdmin.SeniorTo(model.LevelAdmin))
	assert.True(t, model.LevelAdmin.SeniorTo(model.LevelUser))
	assert.True(t, model.LevelUser.SeniorTo(model.LevelGuest))
	assert.False(t, model.LevelGuest.SeniorTo(model.LevelSuperAdmin))
	assert.False(t, model.LevelAdmin.SeniorTo(model.LevelAdmin))
	assert.False(t, model.RoleLevel("BOGUS").Valid())
}
