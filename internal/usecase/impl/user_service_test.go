package impl

import (
	"context"
	"testing"

	"bookwise/internal/domain/entity"
	domainerrors "bookwise/internal/domain/errors"
	"bookwise/internal/domain/repository"
	"bookwise/internal/domain/service"
	"bookwise/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newUserServiceForTest(userRepo *mockUserRepository, hasher *mockPasswordHasher, publisher *mockEventPublisher) usecase.UserUsecase {
	return NewUserService(UserServiceParams{
		TxManager: &fakeTxManager{userRepo: userRepo},
		UserRepo:  userRepo,
		Hasher:    hasher,
		Publisher: publisher,
		Logger:    discardLogger(),
	})
}

func TestUserService_Register_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	hasher := new(mockPasswordHasher)
	publisher := new(mockEventPublisher)
	svc := newUserServiceForTest(userRepo, hasher, publisher)

	ctx := context.Background()
	hasher.On("Hash", "secret").Return("$2a$10$digest", nil)
	userRepo.On("FindByEmail", ctx, "new@b.com").Return(nil, repository.ErrUserNotFound)
	userRepo.On("Create", ctx, mock.MatchedBy(func(u *entity.User) bool {
		return u.Email == "new@b.com" &&
			u.PasswordHash == "$2a$10$digest" &&
			u.IsActive && !u.EmailVerified
	})).Return(nil)
	publisher.On("Publish", ctx, mock.MatchedBy(func(e *service.UserEvent) bool {
		return e.EventType == service.EventTypeUserCreated && e.UserEmail == "new@b.com"
	})).Return(nil)

	output, err := svc.Register(ctx, &usecase.RegisterUserInput{
		Name:     "Reader",
		Email:    "new@b.com",
		Password: "secret",
	})

	require.NoError(t, err)
	assert.Equal(t, "new@b.com", output.User.Email)
	publisher.AssertExpectations(t)
}

func TestUserService_Register_DuplicateEmail(t *testing.T) {
	userRepo := new(mockUserRepository)
	hasher := new(mockPasswordHasher)
	publisher := new(mockEventPublisher)
	svc := newUserServiceForTest(userRepo, hasher, publisher)

	ctx := context.Background()
	hasher.On("Hash", "secret").Return("$2a$10$digest", nil)
	userRepo.On("FindByEmail", ctx, "taken@b.com").Return(&entity.User{ID: uuid.New(), Email: "taken@b.com"}, nil)

	output, err := svc.Register(ctx, &usecase.RegisterUserInput{
		Name:     "Reader",
		Email:    "taken@b.com",
		Password: "secret",
	})

	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrUserAlreadyExists))
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestUserService_Register_PublishFailureFailsRequest(t *testing.T) {
	userRepo := new(mockUserRepository)
	hasher := new(mockPasswordHasher)
	publisher := new(mockEventPublisher)
	svc := newUserServiceForTest(userRepo, hasher, publisher)

	ctx := context.Background()
	hasher.On("Hash", "secret").Return("$2a$10$digest", nil)
	userRepo.On("FindByEmail", ctx, "new@b.com").Return(nil, repository.ErrUserNotFound)
	userRepo.On("Create", ctx, mock.Anything).Return(nil)
	publisher.On("Publish", ctx, mock.Anything).Return(errors.Wrap(domainerrors.ErrEventPublish, "broker unreachable"))

	output, err := svc.Register(ctx, &usecase.RegisterUserInput{
		Name:     "Reader",
		Email:    "new@b.com",
		Password: "secret",
	})

	// The request fails even though the row is committed; the account stays.
	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrEventPublish))
	userRepo.AssertCalled(t, "Create", ctx, mock.Anything)
}

func TestUserService_Update_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	hasher := new(mockPasswordHasher)
	publisher := new(mockEventPublisher)
	svc := newUserServiceForTest(userRepo, hasher, publisher)

	ctx := context.Background()
	user := &entity.User{ID: uuid.New(), Email: "a@b.com", Name: "Old Name", Bio: "old bio"}

	userRepo.On("FindByID", ctx, user.ID).Return(user, nil)
	userRepo.On("Update", ctx, mock.MatchedBy(func(u *entity.User) bool {
		return u.Name == "New Name" && u.Bio == "old bio"
	})).Return(nil)
	publisher.On("Publish", ctx, mock.MatchedBy(func(e *service.UserEvent) bool {
		return e.EventType == service.EventTypeUserUpdated && e.UserID == user.ID
	})).Return(nil)

	newName := "New Name"
	updated, err := svc.Update(ctx, user.ID, &usecase.UpdateUserInput{Name: &newName})

	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	publisher.AssertExpectations(t)
}

func TestUserService_Update_PasswordRehash(t *testing.T) {
	userRepo := new(mockUserRepository)
	hasher := new(mockPasswordHasher)
	publisher := new(mockEventPublisher)
	svc := newUserServiceForTest(userRepo, hasher, publisher)

	ctx := context.Background()
	user := &entity.User{ID: uuid.New(), Email: "a@b.com", PasswordHash: "$2a$10$old"}

	userRepo.On("FindByID", ctx, user.ID).Return(user, nil)
	hasher.On("Hash", "fresh-secret").Return("$2a$10$fresh", nil)
	userRepo.On("Update", ctx, mock.MatchedBy(func(u *entity.User) bool {
		return u.PasswordHash == "$2a$10$fresh"
	})).Return(nil)
	publisher.On("Publish", ctx, mock.Anything).Return(nil)

	newPassword := "fresh-secret"
	_, err := svc.Update(ctx, user.ID, &usecase.UpdateUserInput{Password: &newPassword})

	require.NoError(t, err)
	hasher.AssertExpectations(t)
}

func TestUserService_Update_NotFound(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newUserServiceForTest(userRepo, new(mockPasswordHasher), new(mockEventPublisher))

	ctx := context.Background()
	userID := uuid.New()
	userRepo.On("FindByID", ctx, userID).Return(nil, repository.ErrUserNotFound)

	updated, err := svc.Update(ctx, userID, &usecase.UpdateUserInput{})

	assert.Nil(t, updated)
	assert.True(t, errors.Is(err, domainerrors.ErrUserNotFound))
}

func TestUserService_GetByID(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newUserServiceForTest(userRepo, new(mockPasswordHasher), new(mockEventPublisher))

	ctx := context.Background()
	user := &entity.User{ID: uuid.New(), Email: "a@b.com"}
	userRepo.On("FindByID", ctx, user.ID).Return(user, nil)

	found, err := svc.GetByID(ctx, user.ID)

	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}

func TestUserService_GetByID_NotFound(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newUserServiceForTest(userRepo, new(mockPasswordHasher), new(mockEventPublisher))

	ctx := context.Background()
	userID := uuid.New()
	userRepo.On("FindByID", ctx, userID).Return(nil, repository.ErrUserNotFound)

	found, err := svc.GetByID(ctx, userID)

	assert.Nil(t, found)
	assert.True(t, errors.Is(err, domainerrors.ErrUserNotFound))
}
