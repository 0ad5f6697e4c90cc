package impl

import (
	"context"
	"time"

	"bookwise/internal/domain/entity"
	"bookwise/internal/domain/repository"
	"bookwise/internal/domain/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// mockUserRepository is a testify mock for repository.UserRepository.
type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*entity.User); ok {
		return user, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if user, ok := args.Get(0).(*entity.User); ok {
		return user, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockUserRepository) Create(ctx context.Context, user *entity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepository) Update(ctx context.Context, user *entity.User) error {
	return m.Called(ctx, user).Error(0)
}

// mockTokenService is a testify mock for service.TokenService.
type mockTokenService struct {
	mock.Mock
}

func (m *mockTokenService) GenerateAccessToken(ctx context.Context, user *entity.User) (string, error) {
	args := m.Called(ctx, user)

	return args.String(0), args.Error(1)
}

func (m *mockTokenService) GenerateRefreshToken(ctx context.Context, user *entity.User) (string, error) {
	args := m.Called(ctx, user)

	return args.String(0), args.Error(1)
}

func (m *mockTokenService) Validate(tokenString string) bool {
	return m.Called(tokenString).Bool(0)
}

func (m *mockTokenService) Claims(tokenString string) (*service.Claims, error) {
	args := m.Called(tokenString)
	if claims, ok := args.Get(0).(*service.Claims); ok {
		return claims, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockTokenService) Subject(tokenString string) (string, error) {
	args := m.Called(tokenString)

	return args.String(0), args.Error(1)
}

func (m *mockTokenService) UserID(tokenString string) (uuid.UUID, error) {
	args := m.Called(tokenString)
	if id, ok := args.Get(0).(uuid.UUID); ok {
		return id, args.Error(1)
	}

	return uuid.Nil, args.Error(1)
}

func (m *mockTokenService) ExpiresAt(tokenString string) (time.Time, error) {
	args := m.Called(tokenString)
	if ts, ok := args.Get(0).(time.Time); ok {
		return ts, args.Error(1)
	}

	return time.Time{}, args.Error(1)
}

// mockPasswordHasher is a testify mock for service.PasswordHasher.
type mockPasswordHasher struct {
	mock.Mock
}

func (m *mockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)

	return args.String(0), args.Error(1)
}

func (m *mockPasswordHasher) Check(password, hash string) bool {
	return m.Called(password, hash).Bool(0)
}

// mockEventPublisher is a testify mock for service.EventPublisher.
type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) Publish(ctx context.Context, event *service.UserEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEventPublisher) Close() error {
	return m.Called().Error(0)
}

// fakeTxManager runs the callback against a factory backed by the given
// repositories, without a real database transaction.
type fakeTxManager struct {
	userRepo  repository.UserRepository
	tokenRepo repository.TokenRepository
}

func (f *fakeTxManager) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	return fn(&fakeRepoFactory{userRepo: f.userRepo, tokenRepo: f.tokenRepo})
}

type fakeRepoFactory struct {
	userRepo  repository.UserRepository
	tokenRepo repository.TokenRepository
}

func (f *fakeRepoFactory) UserRepo() repository.UserRepository {
	return f.userRepo
}

func (f *fakeRepoFactory) TokenRepo() repository.TokenRepository {
	return f.tokenRepo
}
