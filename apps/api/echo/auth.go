package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core/datatable"
	"github.com/trezcool/masomo/core/user"
)

const (
	contextTokenKey = "userToken"
	tokenAudience   = "Academia"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Kind         string   `json:"kind,omitempty"` // -> ADMIN | TEACHER | STUDENT PORTAL
	Roles        []string `json:"roles,omitempty"`
}

// Principal returns the actor the claims were issued to.
func (c Claims) Principal() datatable.Principal {
	return datatable.Principal{ID: c.Subject, Kind: c.Kind}
}

// TokenIssuer signs and verifies the app tokens.
type TokenIssuer struct {
	Issuer     string
	SecretKey  []byte
	Expiration time.Duration

	// RefreshExpiration is how long after the first login a token may be refreshed.
	RefreshExpiration time.Duration
}

// Claims returns the claims of a token issued to usr now. origIat is the issue time of
// the first token of the session; it defaults to now.
func (ti TokenIssuer) Claims(usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ti.Issuer,
			Subject:   usr.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(ti.Expiration).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Kind:         usr.Kind(),
		Roles:        usr.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user claims.
func (ti TokenIssuer) GenerateToken(usr user.User, origIat ...int64) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, ti.Claims(usr, origIat...))

	ss, err := token.SignedString(ti.SecretKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (ti TokenIssuer) jwtMiddleware() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    ti.SecretKey,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	})
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextPrincipal(ctx echo.Context) (datatable.Principal, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return datatable.Principal{}, err
	}
	if claims.Subject == "" || claims.Kind == "" {
		return datatable.Principal{}, errUnauthorized
	}
	return claims.Principal(), nil
}

// refreshToken issues a new token to the context user, as long as they are still active
// and the session started less than RefreshExpiration ago.
func (ti TokenIssuer) refreshToken(ctx echo.Context, svc UserService) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return "", errUnauthorized
		}
		return "", errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return "", errAccountDeactivated
	}

	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(ti.RefreshExpiration)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}
	return ti.GenerateToken(usr, claims.OrigIssuedAt)
}
