package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vendnet/vendops/internal/app/domain/user"
	"github.com/vendnet/vendops/internal/app/storage"
	"github.com/vendnet/vendops/internal/app/storage/memory"
	"github.com/vendnet/vendops/pkg/logger"
)

func newTestService(t *testing.T) (*Service, context.Context) {
	t.Helper()
	svc := New(memory.New(), logger.NewNop())
	ctx := context.Background()
	require.NoError(t, svc.EnsureSystemRoles(ctx))
	return svc, ctx
}

func TestCreateAssignsOperatorByDefault(t *testing.T) {
	svc, ctx := newTestService(t)

	created, err := svc.Create(ctx, CreateInput{
		Username: "aziz",
		FullName: "  Aziz Karimov ",
		Email:    "Aziz@Example.COM",
		Password: "hunter2-hunter2",
	})
	require.NoError(t, err)

	assert.True(t, created.Active)
	assert.Equal(t, "Aziz Karimov", created.FullName)
	assert.Equal(t, "aziz@example.com", created.Email)
	assert.Equal(t, []string{user.RoleOperator}, created.RoleNames())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("hunter2-hunter2")))
}

func TestCreateValidatesIdentity(t *testing.T) {
	svc, ctx := newTestService(t)

	_, err := svc.Create(ctx, CreateInput{Username: "aziz"})
	assert.Error(t, err, "full name is required")

	_, err = svc.Create(ctx, CreateInput{FullName: "No Handle"})
	assert.Error(t, err, "username or telegram id is required")

	_, err = svc.Create(ctx, CreateInput{TelegramID: 777, FullName: "Telegram Only"})
	assert.NoError(t, err, "telegram id alone identifies a user")
}

func TestCreateRejectsDuplicateUsername(t *testing.T) {
	svc, ctx := newTestService(t)

	_, err := svc.Create(ctx, CreateInput{Username: "aziz", FullName: "Aziz"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{Username: "aziz", FullName: "Other Aziz"})
	assert.True(t, errors.Is(err, storage.ErrConflict), "err = %v", err)
}

func TestAssignRolesReplacesSet(t *testing.T) {
	svc, ctx := newTestService(t)
	created, err := svc.Create(ctx, CreateInput{Username: "aziz", FullName: "Aziz"})
	require.NoError(t, err)

	updated, err := svc.AssignRoles(ctx, created.ID, []string{user.RoleManager, user.RoleInvestor})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{user.RoleManager, user.RoleInvestor}, updated.RoleNames())

	_, err = svc.AssignRoles(ctx, created.ID, nil)
	assert.Error(t, err, "empty role set must be rejected")

	_, err = svc.AssignRoles(ctx, created.ID, []string{"superuser"})
	assert.True(t, errors.Is(err, storage.ErrNotFound), "unknown role err = %v", err)
}

func TestSeedPermissionMatrix(t *testing.T) {
	svc, ctx := newTestService(t)

	grant := func(roles ...string) user.User {
		created, err := svc.Create(ctx, CreateInput{
			Username: roles[0] + "-check",
			FullName: "Matrix Check",
			Roles:    roles,
		})
		require.NoError(t, err)
		return created
	}

	admin := grant(user.RoleAdmin)
	assert.True(t, admin.HasPermission("finance", "export"), "admin wildcard covers everything")
	assert.True(t, admin.HasPermission("anything", "at-all"))

	operator := grant(user.RoleOperator)
	assert.True(t, operator.HasPermission("tasks", "complete"))
	assert.True(t, operator.HasPermission("collections", "create"))
	assert.False(t, operator.HasPermission("collections", "verify"))
	assert.False(t, operator.HasPermission("machines", "create"))
	assert.False(t, operator.HasPermission("finance", "view"))

	investor := grant(user.RoleInvestor)
	assert.True(t, investor.HasPermission("investments", "view"))
	assert.False(t, investor.HasPermission("investments", "create"))

	warehouse := grant(user.RoleWarehouse)
	assert.True(t, warehouse.HasPermission("inventory", "transfer"))
	assert.False(t, warehouse.HasPermission("tasks", "create"))
}

func TestUpdateTouchesOnlyProvidedFields(t *testing.T) {
	svc, ctx := newTestService(t)
	created, err := svc.Create(ctx, CreateInput{Username: "aziz", FullName: "Aziz", Phone: "+998901234567"})
	require.NoError(t, err)

	email := "new@example.com"
	updated, err := svc.Update(ctx, created.ID, UpdateInput{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Equal(t, "+998901234567", updated.Phone, "unset fields stay unchanged")
	assert.Equal(t, "Aziz", updated.FullName)
}

func TestSetPassword(t *testing.T) {
	svc, ctx := newTestService(t)
	created, err := svc.Create(ctx, CreateInput{Username: "aziz", FullName: "Aziz"})
	require.NoError(t, err)

	assert.Error(t, svc.SetPassword(ctx, created.ID, "short"), "passwords under 8 chars are rejected")

	require.NoError(t, svc.SetPassword(ctx, created.ID, "long-enough-secret"))
	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(got.PasswordHash), []byte("long-enough-secret")))
}

func TestDeactivateHidesUser(t *testing.T) {
	svc, ctx := newTestService(t)
	created, err := svc.Create(ctx, CreateInput{Username: "aziz", FullName: "Aziz"})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.True(t, errors.Is(err, storage.ErrNotFound), "err = %v", err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
