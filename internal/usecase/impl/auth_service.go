// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"

	deliverycontext "bookwise/internal/delivery/context"
	"bookwise/internal/domain/entity"
	domainerrors "bookwise/internal/domain/errors"
	"bookwise/internal/domain/repository"
	"bookwise/internal/domain/service"
	"bookwise/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// authService implements the AuthUsecase interface.
type authService struct {
	userRepo     repository.UserRepository
	hasher       service.PasswordHasher
	tokenService service.TokenService
	logger       *slog.Logger
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	UserRepo     repository.UserRepository
	Hasher       service.PasswordHasher
	TokenService service.TokenService
	Logger       *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	return &authService{
		userRepo:     params.UserRepo,
		hasher:       params.Hasher,
		tokenService: params.TokenService,
		logger:       params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Login verifies the credentials and mints a fresh token pair. Every failure
// on this path surfaces as InvalidCredentials so the response never reveals
// whether the email exists or which step rejected the attempt.
func (srv *authService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	srv.log(ctx).Debug("Starting user login", slog.String("email", input.Email))

	if input.Email == "" || input.Password == "" {
		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "email and password are required")
	}

	user, err := srv.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		srv.log(ctx).Warn("Login failed", slog.String("email", input.Email), slog.Any("error", err))

		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
		}

		return nil, errors.Wrap(err, "failed to load user for login")
	}

	// Check password outside any transaction (bcrypt is CPU-bound).
	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		srv.log(ctx).Warn("Login failed", slog.String("email", input.Email), slog.Any("error", domainerrors.ErrInvalidCredentials))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	accessToken, refreshToken, err := srv.mintTokenPair(ctx, user)
	if err != nil {
		srv.log(ctx).Error("Token minting failed during login", slog.String("email", input.Email), slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	// Record the successful login. Losing this update must not undo a login
	// that already minted valid tokens.
	user.MarkLoginSuccess()
	if err := srv.userRepo.Update(ctx, user); err != nil {
		srv.log(ctx).Warn("Failed to record last login", slog.Any("userID", user.ID), slog.Any("error", err))
	}

	srv.log(ctx).Debug("User logged in successfully", slog.Any("userID", user.ID))

	return &usecase.LoginOutput{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// Refresh exchanges a valid refresh token for a fresh token pair. The
// presented token is deliberately left valid; clients may hold several
// working refresh tokens at once until each expires.
func (srv *authService) Refresh(ctx context.Context, refreshToken string) (*usecase.RefreshOutput, error) {
	srv.log(ctx).Info("Attempting to refresh token pair")

	if refreshToken == "" || !srv.tokenService.Validate(refreshToken) {
		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "refresh token rejected")
	}

	userID, err := srv.tokenService.UserID(refreshToken)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "refresh token carries no usable identity")
	}

	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(domainerrors.ErrUserNotFound, "token owner no longer exists")
		}

		return nil, errors.Wrap(err, "failed to load user for refresh")
	}

	accessToken, newRefreshToken, err := srv.mintTokenPair(ctx, user)
	if err != nil {
		srv.log(ctx).Error("Token minting failed during refresh", slog.Any("userID", user.ID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to mint fresh token pair")
	}

	srv.log(ctx).Debug("Token pair refreshed", slog.Any("userID", user.ID))

	return &usecase.RefreshOutput{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}

// ChangePassword verifies the current password and replaces the stored digest.
func (srv *authService) ChangePassword(ctx context.Context, input *usecase.ChangePasswordInput) error {
	srv.log(ctx).Info("Attempting password change", slog.String("email", input.Email))

	user, err := srv.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errors.Wrap(domainerrors.ErrInvalidCredentials, "password change rejected")
		}

		return errors.Wrap(err, "failed to load user for password change")
	}

	if !srv.hasher.Check(input.CurrentPassword, user.PasswordHash) {
		srv.log(ctx).Warn("Password change rejected: current password mismatch", slog.Any("userID", user.ID))

		return errors.Wrap(domainerrors.ErrInvalidCredentials, "current password mismatch")
	}

	// The new password must differ from the old one. Compared through the
	// hasher so the check covers digest equivalence, not just string equality.
	if srv.hasher.Check(input.NewPassword, user.PasswordHash) {
		return errors.Wrap(domainerrors.ErrPasswordUnchanged, "new password matches current password")
	}

	newHash, err := srv.hasher.Hash(input.NewPassword)
	if err != nil {
		return errors.Wrap(err, "failed to hash new password")
	}

	user.ChangePassword(newHash)
	if err := srv.userRepo.Update(ctx, user); err != nil {
		return errors.Wrap(err, "failed to persist new password")
	}

	srv.log(ctx).Info("Password changed", slog.Any("userID", user.ID))

	return nil
}

// Logout records the logout for audit purposes. Minted tokens stay valid
// until expiry; their persisted records are the only revocation surface.
func (srv *authService) Logout(ctx context.Context, principal *entity.Principal) error {
	if principal == nil {
		srv.log(ctx).Info("Logout requested without principal")

		return nil
	}

	srv.log(ctx).Info("User logged out",
		slog.Any("userID", principal.ID),
		slog.String("email", principal.Email),
	)

	return nil
}

// mintTokenPair mints an access and a refresh token for the user.
func (srv *authService) mintTokenPair(ctx context.Context, user *entity.User) (string, string, error) {
	accessToken, err := srv.tokenService.GenerateAccessToken(ctx, user)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to generate access token")
	}

	refreshToken, err := srv.tokenService.GenerateRefreshToken(ctx, user)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to generate refresh token")
	}

	return accessToken, refreshToken, nil
}
