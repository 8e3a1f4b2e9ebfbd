package permission

import (
	"context"
	"fmt"
	"testing"

	"github.com/authcore/internal/audit"
	"github.com/authcore/internal/model"
	"github.com/authcore/internal/session"
	"github.com/authcore/internal/testutil"
	"github.com/authcore/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	svc   *Service
	audit *audit.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	testutil.Setup(t)
	auditSvc := audit.NewService(audit.NewRepository())
	return &testEnv{
		svc:   NewService(NewRepository(), auditSvc.Gate()),
		audit: auditSvc,
	}
}

func managerPrincipal() *session.Principal {
	return &session.Principal{
		UserID:   200,
		Username: "perm-manager",
		PermissionCodes: []string{
			model.PermPermissionView,
			model.PermPermissionCreate,
			model.PermPermissionUpdate,
			model.PermPermissionDelete,
		},
	}
}

func TestCreatePermission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	perm, err := env.svc.Create(ctx, managerPrincipal(), &CreateRequest{
		Code: "TEST_PERM_CREATE",
		Name: "测试权限",
		Type: model.TypeOperation,
	})
	require.NoError(t, err)
	assert.NotZero(t, perm.ID)
	assert.Equal(t, "TEST_PERM_CREATE", perm.Code)
}

func TestCreatePermissionDuplicateCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := managerPrincipal()

	_, err := env.svc.Create(ctx, p, &CreateRequest{
		Code: "TEST_PERM_DUP", Name: "n", Type: model.TypeMenu,
	})
	require.NoError(t, err)

	_, err = env.svc.Create(ctx, p, &CreateRequest{
		Code: "TEST_PERM_DUP", Name: "n2", Type: model.TypeMenu,
	})
	assert.True(t, errors.Is(err, errors.ErrAlreadyExists))
}

func TestCreatePermissionInvalidType(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(context.Background(), managerPrincipal(), &CreateRequest{
		Code: "TEST_PERM_BADTYPE", Name: "n", Type: "WHATEVER",
	})
	require.Error(t, err)
	assert.Equal(t, 400, errors.GetCode(err))
}

func TestCreatePermissionDenied(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	nobody := &session.Principal{UserID: 201, Username: "perm-nobody"}

	before := env.audit.GetLogCount(ctx)
	_, err := env.svc.Create(ctx, nobody, &CreateRequest{
		Code: "TEST_PERM_DENIED", Name: "n", Type: model.TypeMenu,
	})
	assert.True(t, errors.Is(err, errors.ErrPermissionDenied))
	assert.Equal(t, before+1, env.audit.GetLogCount(ctx))

	_, err = env.svc.GetByCode(ctx, "TEST_PERM_DENIED")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestUpdatePermission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := managerPrincipal()

	perm, err := env.svc.Create(ctx, p, &CreateRequest{
		Code: "TEST_PERM_UPDATE", Name: "旧名称", Type: model.TypeMenu,
	})
	require.NoError(t, err)

	updated, err := env.svc.Update(ctx, p, perm.ID, &UpdateRequest{
		Name: "新名称", Description: "已更新",
	})
	require.NoError(t, err)
	assert.Equal(t, "新名称", updated.Name)
	assert.Equal(t, "已更新", updated.Description)
	assert.Equal(t, "TEST_PERM_UPDATE", updated.Code)
}

func TestUpdatePermissionNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Update(context.Background(), managerPrincipal(), 999999, &UpdateRequest{Name: "x"})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDeletePermissionCascadesRoleLinks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := managerPrincipal()

	perm, err := env.svc.Create(ctx, p, &CreateRequest{
		Code: "TEST_PERM_DELETE", Name: "n", Type: model.TypeOperation,
	})
	require.NoError(t, err)

	db := env.svc.repo.DB()
	role := &model.Role{Name: "TEST_ROLE_PERMDEL", Level: model.LevelUser}
	require.NoError(t, db.Create(role).Error)
	require.NoError(t, db.Create(&model.RolePermission{RoleID: role.ID, PermissionID: perm.ID}).Error)

	require.NoError(t, env.svc.Delete(ctx, p, perm.ID))

	_, err = env.svc.GetByID(ctx, perm.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	var count int64
	require.NoError(t, db.Model(&model.RolePermission{}).Where("permission_id = ?", perm.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetAllDeniedReturnsEmpty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, managerPrincipal(), &CreateRequest{
		Code: "TEST_PERM_GETALL", Name: "n", Type: model.TypeMenu,
	})
	require.NoError(t, err)

	nobody := &session.Principal{UserID: 202, Username: "perm-nobody2"}
	assert.Empty(t, env.svc.GetAll(ctx, nobody))
	assert.NotEmpty(t, env.svc.GetAll(ctx, managerPrincipal()))
}

func TestGetByType(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := managerPrincipal()

	for i := 0; i < 2; i++ {
		_, err := env.svc.Create(ctx, p, &CreateRequest{
			Code: fmt.Sprintf("TEST_PERM_DATA_%d", i), Name: "n", Type: model.TypeData,
		})
		require.NoError(t, err)
	}

	perms, err := env.svc.GetByType(ctx, model.TypeData)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(perms), 2)

	_, err = env.svc.GetByType(ctx, "BOGUS")
	assert.Error(t, err)
}

func TestCheckPermission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	holder := &session.Principal{
		UserID:          203,
		Username:        "check-holder",
		PermissionCodes: []string{"TEST_CHECK_HELD"},
	}

	before := env.audit.GetLogCount(ctx)
	assert.True(t, env.svc.CheckPermission(ctx, holder, "TEST_CHECK_HELD"))
	assert.False(t, env.svc.CheckPermission(ctx, holder, "TEST_CHECK_MISSING"))
	assert.Equal(t, before+2, env.audit.GetLogCount(ctx))
}

func TestCheckPermissionNilPrincipal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	before := env.audit.GetLogCount(ctx)
	assert.False(t, env.svc.CheckPermission(ctx, nil, "TEST_CHECK_NIL"))
	assert.Equal(t, before, env.audit.GetLogCount(ctx))
}

func TestCheckPermissionUnrestricted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := &session.Principal{UserID: 204, Username: "check-root", Unrestricted: true}
	assert.True(t, env.svc.CheckPermission(ctx, root, "TEST_CHECK_UNKNOWN_CODE"))
}
