package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gracefellowship/church-admin-backend/internal/auth"
	"github.com/gracefellowship/church-admin-backend/internal/user"
	"github.com/gracefellowship/church-admin-backend/internal/user/usertest"
)

func newService() user.Service {
	return user.NewService(usertest.NewRepository(), auth.NewBcryptPasswordHasherWithCost(4))
}

func TestCreateAndLogin(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	u, err := svc.Create(ctx, user.CreateRequest{
		Email:       "  Pastor@Grace.org ",
		Password:    "correct horse",
		DisplayName: "Pastor Kim",
		Role:        auth.RolePastor,
	})
	require.NoError(t, err)
	assert.Equal(t, "pastor@grace.org", u.Email)
	assert.Equal(t, auth.RolePastor, u.Role)
	assert.NotEqual(t, "correct horse", u.PasswordHash)

	logged, err := svc.Login(ctx, "PASTOR@grace.org", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)
	assert.NotNil(t, logged.LastLoginAt)

	_, err = svc.Login(ctx, "pastor@grace.org", "wrong password")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@grace.org", "correct horse")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
}

func TestCreate_Validation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, user.CreateRequest{Email: " ", Password: "long enough", Role: auth.RoleStaff})
	assert.ErrorIs(t, err, user.ErrEmailRequired)

	_, err = svc.Create(ctx, user.CreateRequest{Email: "a@grace.org", Password: "short", Role: auth.RoleStaff})
	assert.ErrorIs(t, err, user.ErrPasswordTooShort)

	_, err = svc.Create(ctx, user.CreateRequest{Email: "a@grace.org", Password: "long enough", Role: "deacon"})
	assert.ErrorIs(t, err, user.ErrInvalidRole)

	_, err = svc.Create(ctx, user.CreateRequest{Email: "a@grace.org", Password: "long enough", Role: auth.RoleStaff})
	require.NoError(t, err)
	_, err = svc.Create(ctx, user.CreateRequest{Email: "A@grace.org", Password: "long enough", Role: auth.RoleStaff})
	assert.ErrorIs(t, err, user.ErrEmailAlreadyUsed)
}

func TestLogin_InactiveUser(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	u, err := svc.Create(ctx, user.CreateRequest{Email: "s@grace.org", Password: "long enough", Role: auth.RoleStaff})
	require.NoError(t, err)

	inactive := false
	_, err = svc.Update(ctx, u.ID, user.UpdateRequest{IsActive: &inactive})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "s@grace.org", "long enough")
	assert.ErrorIs(t, err, user.ErrInactiveUser)
}

func TestUpdate(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	u, err := svc.Create(ctx, user.CreateRequest{Email: "s@grace.org", Password: "long enough", DisplayName: "S", Role: auth.RoleStaff})
	require.NoError(t, err)

	role := auth.RolePastor
	blank := "  "
	got, err := svc.Update(ctx, u.ID, user.UpdateRequest{Role: &role, DisplayName: &blank})
	require.NoError(t, err)
	assert.Equal(t, auth.RolePastor, got.Role)
	assert.Nil(t, got.DisplayName)

	bad := auth.Role("bishop")
	_, err = svc.Update(ctx, u.ID, user.UpdateRequest{Role: &bad})
	assert.ErrorIs(t, err, user.ErrInvalidRole)

	_, err = svc.Update(ctx, "missing", user.UpdateRequest{Role: &role})
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@grace.org", "bootstrap-pass"))
	require.NoError(t, svc.EnsureAdmin(ctx, "admin@grace.org", "another-pass"))

	users, total, err := svc.List(ctx, user.UserFilter{Role: auth.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "admin@grace.org", users[0].Email)

	_, err = svc.Login(ctx, "admin@grace.org", "bootstrap-pass")
	assert.NoError(t, err)
}
