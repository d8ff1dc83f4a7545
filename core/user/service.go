package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDeactivated        = errors.New("account deactivated")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrUsernameExists     = errors.New("a user with this username already exists")
)

// TableName is the dataset listing the users; it is invalidated on every write.
const TableName = "users"

var nowFunc = time.Now // mockable

type (
	Repository interface {
		// CheckUsernameUniqueness returns ErrUsernameExists or ErrEmailExists when taken.
		CheckUsernameUniqueness(ctx context.Context, username, email string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		// UpdateUser saves every field of usr but its ID and CreatedAt; it returns ErrNotFound when no user has its ID.
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) (int, error)
	}

	// Invalidator drops the cached table responses of a dataset.
	Invalidator interface {
		Invalidate(ctx context.Context, dataset string) error
	}

	Service struct {
		repo        Repository
		invalidator Invalidator
		validate    *validator.Validate
		logger      core.Logger
	}
)

func NewService(repo Repository, invalidator Invalidator, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{
		repo:        repo,
		invalidator: invalidator,
		validate:    validate,
		logger:      logger,
	}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email string) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return errors.Wrap(err, "checking username uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(svc.validate); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Username, nu.Email); err != nil {
		return User{}, err
	}

	now := nowFunc().UTC()
	usr := User{
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}
	svc.invalidateTable(ctx)
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

// Update applies uu to the user identified by id.
func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err = uu.Validate(usr, svc.validate); err != nil {
		return User{}, err
	}

	// only check what changes
	var uname, email string
	if uu.Username != usr.Username {
		uname = uu.Username
	}
	if uu.Email != usr.Email {
		email = uu.Email
	}
	if err = svc.checkUniqueness(ctx, uname, email); err != nil {
		return User{}, err
	}

	usr.Name = uu.Name
	usr.Username = uu.Username
	usr.Email = uu.Email
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Roles != nil {
		usr.Roles = uu.Roles
	}
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	usr.UpdatedAt = nowFunc().UTC()

	usr, err = svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "updating user")
	}
	svc.invalidateTable(ctx)
	return usr, nil
}

// Authenticate returns the active user matching the credentials and records the login.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrDeactivated
	}

	usr.LastLogin = nowFunc().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "setting lastLogin")
	}
	svc.invalidateTable(ctx) // last_login is listed
	return usr, nil
}

func (svc *Service) Delete(ctx context.Context, ids ...string) (int, error) {
	n, err := svc.repo.DeleteUsersByID(ctx, ids...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	if n > 0 {
		svc.invalidateTable(ctx)
	}
	return n, nil
}

// invalidateTable is best effort: the cached responses expire with their TTL anyway.
func (svc *Service) invalidateTable(ctx context.Context) {
	if svc.invalidator == nil {
		return
	}
	if err := svc.invalidator.Invalidate(ctx, TableName); err != nil {
		svc.logger.Warn("users table cache not invalidated; stale until expiry", "error", err)
	}
}
