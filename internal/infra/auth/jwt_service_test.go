package auth

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookwise/config"
	"bookwise/internal/domain/entity"
	domainerrors "bookwise/internal/domain/errors"
	"bookwise/internal/domain/repository"
)

// memoryTokenRepo records saved tokens in memory; failErr makes Save fail.
// Guarded by a mutex so concurrent mints can share one repo.
type memoryTokenRepo struct {
	mu      sync.Mutex
	saved   []*entity.UserToken
	failErr error
}

func (r *memoryTokenRepo) Save(_ context.Context, token *entity.UserToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failErr != nil {
		return r.failErr
	}
	r.saved = append(r.saved, token)

	return nil
}

func (r *memoryTokenRepo) FindByToken(_ context.Context, token string) (*entity.UserToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.saved {
		if t.Token == token {
			return t, nil
		}
	}

	return nil, repository.ErrTokenNotFound
}

func (r *memoryTokenRepo) FindByUserID(_ context.Context, userID uuid.UUID) ([]*entity.UserToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.UserToken
	for _, t := range r.saved {
		if t.UserID == userID {
			out = append(out, t)
		}
	}

	return out, nil
}

func (r *memoryTokenRepo) DeleteExpired(_ context.Context) error { return nil }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT = config.JWTConfig{
		SecretKey:       strings.Repeat("k", 64),
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}

	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testUser() *entity.User {
	return &entity.User{
		ID:    uuid.New(),
		Email: "a@b.com",
		Name:  "Test User",
	}
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	repo := &memoryTokenRepo{}
	svc, err := NewJWTService(testConfig(), repo, testLogger())
	require.NoError(t, err)

	user := testUser()
	token, err := svc.GenerateAccessToken(context.Background(), user)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	// Compact serialization: three dot-separated segments.
	assert.Len(t, strings.Split(token, "."), 3)

	// A freshly minted token validates.
	assert.True(t, svc.Validate(token))

	claims, err := svc.Claims(token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", claims.Subject)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, entity.TokenTypeAccess, claims.TokenType)
	assert.NotEqual(t, uuid.Nil, claims.TokenID)

	subject, err := svc.Subject(token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", subject)

	userID, err := svc.UserID(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	// One record is persisted per mint.
	require.Len(t, repo.saved, 1)
	assert.Equal(t, token, repo.saved[0].Token)
	assert.Equal(t, entity.TokenTypeAccess, repo.saved[0].Type)
	assert.Equal(t, user.ID, repo.saved[0].UserID)
}

func TestJWTService_RefreshTokenType(t *testing.T) {
	repo := &memoryTokenRepo{}
	svc, err := NewJWTService(testConfig(), repo, testLogger())
	require.NoError(t, err)

	token, err := svc.GenerateRefreshToken(context.Background(), testUser())
	require.NoError(t, err)

	claims, err := svc.Claims(token)
	require.NoError(t, err)
	assert.Equal(t, entity.TokenTypeRefresh, claims.TokenType)

	require.Len(t, repo.saved, 1)
	assert.Equal(t, entity.TokenTypeRefresh, repo.saved[0].Type)
}

func TestJWTService_ExpiredTokenStillYieldsClaims(t *testing.T) {
	repo := &memoryTokenRepo{}
	// Bypass the constructor so an already-expired token can be minted.
	svc := &jwtService{
		secret:     []byte(strings.Repeat("k", 64)),
		accessTTL:  -time.Minute,
		refreshTTL: time.Hour,
		tokenRepo:  repo,
		logger:     testLogger(),
	}

	user := testUser()
	token, err := svc.GenerateAccessToken(context.Background(), user)
	require.NoError(t, err)

	// Expired tokens never validate...
	assert.False(t, svc.Validate(token))

	// ...but their claims stay readable for refresh and logging flows.
	claims, err := svc.Claims(token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", claims.Subject)
	assert.Equal(t, user.ID, claims.UserID)
	assert.True(t, claims.ExpiresAt.Before(time.Now()))
}

func TestJWTService_ValidateRejectsBadInput(t *testing.T) {
	svc, err := NewJWTService(testConfig(), &memoryTokenRepo{}, testLogger())
	require.NoError(t, err)

	assert.False(t, svc.Validate(""))
	assert.False(t, svc.Validate("   "))
	assert.False(t, svc.Validate("not-a-token"))
	assert.False(t, svc.Validate("too.few"))
	assert.False(t, svc.Validate("a.b.c"))
}

func TestJWTService_ValidateRejectsForeignSignature(t *testing.T) {
	repo := &memoryTokenRepo{}
	svc, err := NewJWTService(testConfig(), repo, testLogger())
	require.NoError(t, err)

	otherCfg := testConfig()
	otherCfg.JWT.SecretKey = strings.Repeat("x", 64)
	other, err := NewJWTService(otherCfg, repo, testLogger())
	require.NoError(t, err)

	token, err := other.GenerateAccessToken(context.Background(), testUser())
	require.NoError(t, err)

	assert.False(t, svc.Validate(token))

	_, err = svc.Claims(token)
	assert.Error(t, err)
}

func TestJWTService_ConcurrentMintsYieldDistinctTokenIDs(t *testing.T) {
	repo := &memoryTokenRepo{}
	svc, err := NewJWTService(testConfig(), repo, testLogger())
	require.NoError(t, err)

	user := testUser()

	const mints = 2
	tokens := make([]string, mints)
	errs := make([]error, mints)

	var wg sync.WaitGroup
	for i := range mints {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens[i], errs[i] = svc.GenerateAccessToken(context.Background(), user)
		}()
	}
	wg.Wait()

	seen := make(map[uuid.UUID]bool)
	for i := range mints {
		require.NoError(t, errs[i])

		claims, err := svc.Claims(tokens[i])
		require.NoError(t, err)
		assert.False(t, seen[claims.TokenID], "token id reused across concurrent mints")
		seen[claims.TokenID] = true
	}

	// Every mint persisted its own record.
	records, err := repo.FindByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, records, mints)
}

func TestJWTService_PersistenceFailureFailsMint(t *testing.T) {
	repo := &memoryTokenRepo{failErr: errors.New("connection refused")}
	svc, err := NewJWTService(testConfig(), repo, testLogger())
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(context.Background(), testUser())
	assert.Empty(t, token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrTokenPersistence))
}

func TestJWTService_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.SecretKey = ""

	svc, err := NewJWTService(cfg, &memoryTokenRepo{}, testLogger())
	assert.Nil(t, svc)
	assert.Error(t, err)
}
