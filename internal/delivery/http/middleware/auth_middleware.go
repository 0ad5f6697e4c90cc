package middleware

import (
	"log/slog"
	"strings"

	"bookwise/config"
	deliverycontext "bookwise/internal/delivery/context"
	"bookwise/internal/domain/entity"
	domainerrors "bookwise/internal/domain/errors"
	"bookwise/internal/domain/repository"
	"bookwise/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// publicPaths lists the routes that never require a credential.
var publicPaths = map[string]struct{}{
	"/health":         {},
	"/auth/login":     {},
	"/auth/refresh":   {},
	"/users/register": {},
}

// AuthMiddleware authenticates every request outside the public allow-list.
// It runs statelessly per request: validate the bearer token, load the owning
// user fresh from storage and attach a Principal to the request context.
type AuthMiddleware struct {
	tokenSvc    service.TokenService
	userRepo    repository.UserRepository
	tokenHeader string
	tokenPrefix string
	logger      *slog.Logger
}

// AuthMiddlewareParams holds dependencies for AuthMiddleware, injected by Fx.
type AuthMiddlewareParams struct {
	fx.In

	TokenSvc service.TokenService
	UserRepo repository.UserRepository
	Config   *config.Config
	Logger   *slog.Logger
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(params AuthMiddlewareParams) *AuthMiddleware {
	return &AuthMiddleware{
		tokenSvc:    params.TokenSvc,
		userRepo:    params.UserRepo,
		tokenHeader: params.Config.JWT.TokenHeader,
		tokenPrefix: params.Config.JWT.TokenPrefix,
		logger:      params.Logger,
	}
}

// Authenticate is the core middleware function guarding protected routes.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := publicPaths[c.Path()]; ok {
			return next(c)
		}

		tokenString, err := m.extractToken(c)
		if err != nil {
			return err
		}

		if !m.tokenSvc.Validate(tokenString) {
			return m.classifyRejection(c, tokenString)
		}

		// The user is loaded fresh on every request so a disabled or deleted
		// account loses access immediately, not at token expiry.
		subject, err := m.tokenSvc.Subject(tokenString)
		if err != nil {
			return errors.Wrap(domainerrors.ErrAuthenticationInternal, "token subject unreadable")
		}

		user, err := m.userRepo.FindByEmail(c.Request().Context(), subject)
		if err != nil {
			m.logger.Warn("Authenticated token for unknown user",
				slog.String("subject", subject),
				slog.Any("error", err),
			)

			return errors.Wrap(domainerrors.ErrAuthenticationInternal, "token subject could not be resolved")
		}

		principal := entity.NewPrincipal(user)
		ctx := deliverycontext.WithPrincipal(c.Request().Context(), principal)
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}

// extractToken pulls the bearer token out of the configured header.
func (m *AuthMiddleware) extractToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(m.tokenHeader)
	if header == "" {
		return "", errors.Wrap(domainerrors.ErrMissingCredential, "credential header absent")
	}

	tokenString := strings.TrimPrefix(header, m.tokenPrefix)
	if tokenString == header || tokenString == "" {
		return "", errors.Wrap(domainerrors.ErrMissingCredential, "credential prefix malformed")
	}

	return tokenString, nil
}

// classifyRejection turns a failed validation into the precise 401 the client
// should see: expired sessions, malformed tokens and internal failures each
// get their own message.
func (m *AuthMiddleware) classifyRejection(c echo.Context, tokenString string) error {
	_, err := m.tokenSvc.Claims(tokenString)

	switch {
	case err == nil:
		// Claims decoded under a valid signature, yet Validate said no:
		// the token is past its expiry.
		m.logger.Debug("Rejected expired token", slog.String("path", c.Path()))

		return errors.Wrap(domainerrors.ErrSessionExpired, "token expired")
	case errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, jwt.ErrTokenSignatureInvalid):
		m.logger.Debug("Rejected malformed token", slog.String("path", c.Path()))

		return errors.Wrap(domainerrors.ErrInvalidToken, "token malformed or signature invalid")
	default:
		m.logger.Warn("Token rejection could not be classified",
			slog.String("path", c.Path()),
			slog.Any("error", err),
		)

		return errors.Wrap(domainerrors.ErrAuthenticationInternal, "token validation failed")
	}
}
