package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	deliverycontext "bookwise/internal/delivery/context"
	"bookwise/internal/delivery/http/validator"
	"bookwise/internal/domain/entity"
	"bookwise/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthUsecase struct {
	mock.Mock
}

func (m *mockAuthUsecase) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	args := m.Called(ctx, input)
	if output, ok := args.Get(0).(*usecase.LoginOutput); ok {
		return output, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockAuthUsecase) Refresh(ctx context.Context, refreshToken string) (*usecase.RefreshOutput, error) {
	args := m.Called(ctx, refreshToken)
	if output, ok := args.Get(0).(*usecase.RefreshOutput); ok {
		return output, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockAuthUsecase) ChangePassword(ctx context.Context, input *usecase.ChangePasswordInput) error {
	return m.Called(ctx, input).Error(0)
}

func (m *mockAuthUsecase) Logout(ctx context.Context, principal *entity.Principal) error {
	return m.Called(ctx, principal).Error(0)
}

func newAuthContext(t *testing.T, body string, principal *entity.Principal) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	e.Validator = validator.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if principal != nil {
		ctx := deliverycontext.WithPrincipal(req.Context(), principal)
		c.SetRequest(req.WithContext(ctx))
	}

	return c, rec
}

func TestAuthHandler_ChangePasswordReturnsNoContent(t *testing.T) {
	uc := new(mockAuthUsecase)
	h := NewAuthHandler(uc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	principal := &entity.Principal{ID: uuid.New(), Email: "a@b.com"}
	uc.On("ChangePassword", mock.Anything, &usecase.ChangePasswordInput{
		Email:           "a@b.com",
		CurrentPassword: "current-pw",
		NewPassword:     "brand-new-pw",
	}).Return(nil)

	c, rec := newAuthContext(t, `{"currentPassword":"current-pw","newPassword":"brand-new-pw"}`, principal)

	require.NoError(t, h.ChangePassword(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	uc.AssertExpectations(t)
}

func TestAuthHandler_ChangePasswordWithoutPrincipal(t *testing.T) {
	uc := new(mockAuthUsecase)
	h := NewAuthHandler(uc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	c, rec := newAuthContext(t, `{"currentPassword":"current-pw","newPassword":"brand-new-pw"}`, nil)

	require.NoError(t, h.ChangePassword(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	uc.AssertNotCalled(t, "ChangePassword", mock.Anything, mock.Anything)
}

func TestAuthHandler_LogoutReturnsNoContent(t *testing.T) {
	uc := new(mockAuthUsecase)
	h := NewAuthHandler(uc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	principal := &entity.Principal{ID: uuid.New(), Email: "a@b.com"}
	uc.On("Logout", mock.Anything, principal).Return(nil)

	c, rec := newAuthContext(t, "", principal)

	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	uc.AssertExpectations(t)
}

func TestAuthHandler_LogoutWithoutPrincipal(t *testing.T) {
	uc := new(mockAuthUsecase)
	h := NewAuthHandler(uc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	uc.On("Logout", mock.Anything, (*entity.Principal)(nil)).Return(nil)

	c, rec := newAuthContext(t, "", nil)

	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
