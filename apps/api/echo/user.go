package echoapi

import (
	"context"
	"net/http"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/user"
)

var (
	errUsrNotFoundInCtx  = errors.New("user object not found in echo.Context")
	errNoPermsToSetRoles = "not enough rights to set these roles"
)

const contextObjectKey = "object"

// UserService is the write path of the users table.
type UserService interface {
	Create(ctx context.Context, nu user.NewUser) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Update(ctx context.Context, id string, uu user.UpdateUser) (user.User, error)
	Authenticate(ctx context.Context, uname, pwd string) (user.User, error)
	Delete(ctx context.Context, ids ...string) (int, error)
}

var _ UserService = (*user.Service)(nil)

type userApi struct {
	svc      UserService
	tokens   TokenIssuer
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc UserService, tokens TokenIssuer, validate *validator.Validate) {
	api := userApi{svc: svc, tokens: tokens, validate: validate}

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/login", api.login)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.POST("", api.create, adminMiddleware())
	ag.DELETE("", api.destroyMultiple, adminMiddleware())
	ag.GET("/roles", api.queryRoles, adminMiddleware())

	// detail endpoints
	dg := ag.Group("/:id", ctxUserOrAdminMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
}

// Handlers

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}

	// ctxUser cannot set a role > their own max role
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if user.MaxRolePriority(data.Roles) > user.MaxRolePriority(claims.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		if core.IsValidationError(err) {
			return err
		}
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrInvalidCredentials:
			return errAuthenticationFailed
		case user.ErrDeactivated:
			return errAccountDeactivated
		}
		return errors.Wrap(err, "authenticating")
	}
	token, err := api.tokens.GenerateToken(usr)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.tokens.refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.AllRoles)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, ok := ctx.Get(contextObjectKey).(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	usr, ok := ctx.Get(contextObjectKey).(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.Kind != user.KindAdmin {
		// `IsActive` and `Roles` can only be changed by admin
		// `Username` and `Email` can only be changed by admin for now
		if data.IsActive != nil || data.Roles != nil || data.Username != "" || data.Email != "" {
			return errHttpForbidden
		}
	}

	// ctxUser cannot set a role > their own max role
	if user.MaxRolePriority(data.Roles) > user.MaxRolePriority(claims.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	usr, err = api.svc.Update(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		if core.IsValidationError(err) {
			return err
		}
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	usr, ok := ctx.Get(contextObjectKey).(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	if usr.ID == p.ID {
		return errHttpForbidden
	}

	n, err := api.svc.Delete(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	if n == 0 {
		return errHttpNotFound
	}
	return ctx.NoContent(http.StatusNoContent)
}

// destroyMultiple deletes the users listed by the `id` query parameters, eg. `DELETE /users?id=1&id=2`.
func (api *userApi) destroyMultiple(ctx echo.Context) error {
	ids := ctx.QueryParams()["id"]
	if len(ids) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	sort.Strings(ids)
	if i := sort.SearchStrings(ids, p.ID); i < len(ids) && ids[i] == p.ID {
		return errHttpForbidden
	}

	if _, err := api.svc.Delete(ctx.Request().Context(), ids...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ctxUserOrAdminMiddleware loads the user of the `:id` path param into the context when it is the
// context user or when the context user is an admin; everybody else gets a 404.
func ctxUserOrAdminMiddleware(svc UserService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := getContextPrincipal(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context principal")
			}

			if id := ctx.Param("id"); id == p.ID || p.Kind == user.KindAdmin {
				if usr, err := svc.GetByID(ctx.Request().Context(), id); err == nil {
					ctx.Set(contextObjectKey, usr)
					return next(ctx)
				} else if errors.Cause(err) != user.ErrNotFound {
					return errors.Wrap(err, "finding user by ID")
				}
			}
			return errHttpNotFound
		}
	}
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}
