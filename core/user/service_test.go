package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/user"
	logsvc "github.com/trezcool/masomo/services/logger"
	inmemdb "github.com/trezcool/masomo/storage/database/inmem"
)

type invalidatorMock struct {
	calls []string
	err   error
}

func (inv *invalidatorMock) Invalidate(_ context.Context, dataset string) error {
	inv.calls = append(inv.calls, dataset)
	return inv.err
}

func setup(t *testing.T) (*user.Service, *invalidatorMock, *observer.ObservedLogs) {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	obs, logs := observer.New(zapcore.DebugLevel)
	inv := &invalidatorMock{}
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	return user.NewService(repo, inv, validate, logsvc.NewZapLogger(zap.New(obs))), inv, logs
}

func validNewUser() user.NewUser {
	return user.NewUser{
		Name:            " Juma Mwalimu ",
		Username:        "Juma",
		Email:           "JUMA@masomo.test",
		Password:        "secret123",
		PasswordConfirm: "secret123",
		Roles:           []string{user.RoleTeacher},
	}
}

func TestService_Create(t *testing.T) {
	svc, inv, _ := setup(t)
	ctx := context.Background()

	usr, err := svc.Create(ctx, validNewUser())
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, "Juma Mwalimu", usr.Name)
	assert.Equal(t, "juma", usr.Username)
	assert.Equal(t, "juma@masomo.test", usr.Email)
	assert.True(t, usr.IsActive)
	assert.True(t, usr.IsTeacher())
	assert.NoError(t, usr.CheckPassword("secret123"))
	assert.Equal(t, []string{user.TableName}, inv.calls)

	got, err := svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, usr.Username, got.Username)
}

func TestService_Create_invalid(t *testing.T) {
	svc, inv, _ := setup(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, validNewUser())
	require.NoError(t, err)
	inv.calls = nil

	tests := []struct {
		name      string
		mutate    func(nu *user.NewUser)
		wantField string
	}{
		{name: "short username", mutate: func(nu *user.NewUser) { nu.Username = "ab" }, wantField: "username"},
		{name: "bad username chars", mutate: func(nu *user.NewUser) { nu.Username = "ju ma!" }, wantField: "username"},
		{name: "bad email", mutate: func(nu *user.NewUser) { nu.Email = "juma" }, wantField: "email"},
		{name: "password mismatch", mutate: func(nu *user.NewUser) { nu.PasswordConfirm = "other" }, wantField: "password_confirm"},
		{name: "unknown role", mutate: func(nu *user.NewUser) { nu.Roles = []string{"janitor"} }, wantField: "roles"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := validNewUser()
			nu.Username = "other"
			nu.Email = "other@masomo.test"
			tt.mutate(&nu)

			_, err := svc.Create(ctx, nu)
			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs), "%v", err)
			assert.Equal(t, tt.wantField, verrs[0].Field())
		})
	}

	taken := []struct {
		name   string
		mutate func(nu *user.NewUser)
		field  string
	}{
		{name: "username", mutate: func(nu *user.NewUser) { nu.Email = "other@masomo.test" }, field: "username"},
		{name: "email", mutate: func(nu *user.NewUser) { nu.Username = "other" }, field: "email"},
	}
	for _, tt := range taken {
		t.Run(tt.name+" taken", func(t *testing.T) {
			nu := validNewUser()
			tt.mutate(&nu)

			_, err := svc.Create(ctx, nu)
			require.True(t, core.IsValidationError(err), "%v", err)
			verr := errors.Cause(err).(*core.ValidationError)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}

	assert.Empty(t, inv.calls, "failed writes do not invalidate")
}

func TestService_Delete(t *testing.T) {
	svc, inv, logs := setup(t)
	ctx := context.Background()
	usr, err := svc.Create(ctx, validNewUser())
	require.NoError(t, err)

	inv.err = errors.New("cache down")
	n, err := svc.Delete(ctx, usr.ID)
	require.NoError(t, err, "invalidation failures are not returned")
	assert.Equal(t, 1, n)
	assert.Len(t, logs.FilterLevelExact(zapcore.WarnLevel).All(), 1)

	_, err = svc.GetByID(ctx, usr.ID)
	assert.Equal(t, user.ErrNotFound, err)

	inv.calls = nil
	n, err = svc.Delete(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, inv.calls, "nothing deleted, nothing invalidated")
}

func TestService_Update(t *testing.T) {
	svc, inv, _ := setup(t)
	ctx := context.Background()
	usr, err := svc.Create(ctx, validNewUser())
	require.NoError(t, err)
	other := validNewUser()
	other.Username, other.Email = "other", "other@masomo.test"
	_, err = svc.Create(ctx, other)
	require.NoError(t, err)

	inactive := false
	tests := []struct {
		name      string
		uu        user.UpdateUser
		wantField string
		check     func(t *testing.T, got user.User)
	}{
		{name: "username taken", uu: user.UpdateUser{Username: "Other"}, wantField: "username"},
		{name: "email taken", uu: user.UpdateUser{Email: "other@masomo.test"}, wantField: "email"},
		{name: "short password", uu: user.UpdateUser{Password: "short", PasswordConfirm: "short"}, wantField: "password"},
		{name: "password mismatch", uu: user.UpdateUser{Password: "secret456", PasswordConfirm: "other456"}, wantField: "password_confirm"},
		{name: "unknown role", uu: user.UpdateUser{Roles: []string{"janitor"}}, wantField: "roles"},
		{
			name: "keeps the empty fields",
			uu:   user.UpdateUser{Name: " Juma Mkuu "},
			check: func(t *testing.T, got user.User) {
				assert.Equal(t, "Juma Mkuu", got.Name)
				assert.Equal(t, "juma", got.Username)
				assert.Equal(t, "juma@masomo.test", got.Email)
				assert.True(t, got.IsActive)
				assert.NoError(t, got.CheckPassword("secret123"))
			},
		},
		{
			name: "same username",
			uu:   user.UpdateUser{Username: "JUMA"},
			check: func(t *testing.T, got user.User) {
				assert.Equal(t, "juma", got.Username)
			},
		},
		{
			name: "admin fields",
			uu:   user.UpdateUser{IsActive: &inactive, Roles: []string{user.RoleAdmin}, Password: "secret456", PasswordConfirm: "secret456"},
			check: func(t *testing.T, got user.User) {
				assert.False(t, got.IsActive)
				assert.True(t, got.IsAdmin())
				assert.NoError(t, got.CheckPassword("secret456"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv.calls = nil
			got, err := svc.Update(ctx, usr.ID, tt.uu)
			if tt.wantField != "" {
				assert.Empty(t, inv.calls, "failed writes do not invalidate")
				var verrs validator.ValidationErrors
				if errors.As(err, &verrs) {
					assert.Equal(t, tt.wantField, verrs[0].Field())
					return
				}
				require.True(t, core.IsValidationError(err), "%v", err)
				assert.Equal(t, tt.wantField, errors.Cause(err).(*core.ValidationError).Fields[0].Field)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, []string{user.TableName}, inv.calls)
			stored, err := svc.GetByID(ctx, usr.ID)
			require.NoError(t, err)
			assert.Equal(t, got, stored)
			tt.check(t, stored)
		})
	}

	_, err = svc.Update(ctx, "nope", user.UpdateUser{Name: "Nobody"})
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}

func TestService_Authenticate(t *testing.T) {
	svc, inv, _ := setup(t)
	ctx := context.Background()
	usr, err := svc.Create(ctx, validNewUser())
	require.NoError(t, err)
	inv.calls = nil

	tests := []struct {
		name    string
		uname   string
		pwd     string
		wantErr error
	}{
		{name: "unknown user", uname: "nobody", pwd: "secret123", wantErr: user.ErrInvalidCredentials},
		{name: "wrong password", uname: "juma", pwd: "secret456", wantErr: user.ErrInvalidCredentials},
		{name: "username", uname: " Juma ", pwd: "secret123"},
		{name: "email", uname: "juma@masomo.test", pwd: "secret123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Authenticate(ctx, tt.uname, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, usr.ID, got.ID)
			assert.False(t, got.LastLogin.IsZero())
		})
	}
	assert.Equal(t, []string{user.TableName, user.TableName}, inv.calls, "logins are listed in the users table")

	inactive := false
	_, err = svc.Update(ctx, usr.ID, user.UpdateUser{IsActive: &inactive})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "juma", "secret123")
	assert.Equal(t, user.ErrDeactivated, err)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		roles []string
		want  string
	}{
		{roles: nil, want: user.KindStudent},
		{roles: []string{user.RoleStudent}, want: user.KindStudent},
		{roles: []string{user.RoleTeacher}, want: user.KindTeacher},
		{roles: []string{user.RoleTeacher, user.RoleAdminPrincipal}, want: user.KindAdmin},
		{roles: []string{user.RoleAdminOwner}, want: user.KindAdmin},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, user.KindOf(tt.roles), "%v", tt.roles)
	}
}
