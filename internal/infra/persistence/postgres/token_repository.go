package postgres

import (
	"context"
	"time"

	"bookwise/internal/domain/entity"
	domainerrors "bookwise/internal/domain/errors"
	"bookwise/internal/domain/repository"
	"bookwise/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// tokenRepository implements the domain.TokenRepository interface using GORM.
type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository is the constructor for tokenRepository.
func NewTokenRepository(db *gorm.DB) repository.TokenRepository {
	return &tokenRepository{db: db}
}

// Save persists the record of a freshly minted token.
func (repo *tokenRepository) Save(ctx context.Context, token *entity.UserToken) error {
	tokenM := fromUserTokenDomain(token)

	if err := repo.db.WithContext(ctx).Create(tokenM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrTokenPersistence.WrapMessage("token already recorded")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to save token record")
	}

	token.ID = tokenM.ID
	token.CreatedAt = tokenM.CreatedAt

	return nil
}

// FindByToken retrieves a token record by its bearer string.
func (repo *tokenRepository) FindByToken(ctx context.Context, token string) (*entity.UserToken, error) {
	var tokenM model.UserTokenModel
	if err := repo.db.WithContext(ctx).
		Where("token = ?", token).
		First(&tokenM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrTokenNotFound
		}

		return nil, errors.Wrap(err, "failed to find token record")
	}

	return toUserTokenDomain(&tokenM), nil
}

// FindByUserID retrieves all token records minted for a user, newest first.
func (repo *tokenRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.UserToken, error) {
	var tokenModels []*model.UserTokenModel
	if err := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tokenModels).Error; err != nil {
		return nil, errors.WithStack(err)
	}

	tokens := make([]*entity.UserToken, 0, len(tokenModels))
	for _, tokenM := range tokenModels {
		tokens = append(tokens, toUserTokenDomain(tokenM))
	}

	return tokens, nil
}

// DeleteExpired removes records whose expiry has passed.
func (repo *tokenRepository) DeleteExpired(ctx context.Context) error {
	if err := repo.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&model.UserTokenModel{}).Error; err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// --- Mapper Functions ---

// toUserTokenDomain converts a GORM UserTokenModel to a domain UserToken entity.
func toUserTokenDomain(data *model.UserTokenModel) *entity.UserToken {
	if data == nil {
		return nil
	}

	return &entity.UserToken{
		ID:        data.ID,
		UserID:    data.UserID,
		Token:     data.Token,
		Type:      entity.TokenType(data.Type),
		ExpiresAt: data.ExpiresAt,
		CreatedAt: data.CreatedAt,
	}
}

// fromUserTokenDomain converts a domain UserToken entity to a GORM UserTokenModel.
func fromUserTokenDomain(data *entity.UserToken) *model.UserTokenModel {
	if data == nil {
		return nil
	}

	return &model.UserTokenModel{
		ID:        data.ID,
		UserID:    data.UserID,
		Token:     data.Token,
		Type:      string(data.Type),
		ExpiresAt: data.ExpiresAt,
		CreatedAt: data.CreatedAt,
	}
}
