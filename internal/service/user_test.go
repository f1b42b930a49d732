package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/axonake/RANGERSTORE/internal/config"
	"github.com/axonake/RANGERSTORE/internal/domain"
	"github.com/axonake/RANGERSTORE/pkg/dto"
	"github.com/dgrijalva/jwt-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	passwordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{PrivateKey: "secret", TokenTTL: time.Hour}
}

func parseToken(t *testing.T, token string) dto.Claims {
	t.Helper()

	var claims dto.Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	return claims
}

func TestRegister(t *testing.T) {
	repo := &userRepoMock{}
	repo.On("CreateUser", mock.Anything, "ranger", mock.AnythingOfType("string"), domain.RoleUser).Return(int64(42), nil)

	s := NewUserService(repo, testConfig())
	token, err := s.Register(context.Background(), "ranger", "pw")
	require.NoError(t, err)

	claims := parseToken(t, token)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, domain.RoleUser, claims.Role)
	assert.Greater(t, claims.ExpiresAt, time.Now().Unix())

	hash := repo.Calls[0].Arguments.String(2)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))
}

func TestRegisterDuplicate(t *testing.T) {
	repo := &userRepoMock{}
	repo.On("CreateUser", mock.Anything, "ranger", mock.Anything, domain.RoleUser).Return(int64(0), domain.ErrUserExists)

	_, err := NewUserService(repo, testConfig()).Register(context.Background(), "ranger", "pw")
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &userRepoMock{}
	repo.On("User", mock.Anything, "boss").Return(&domain.User{ID: 1, Login: "boss", Password: string(hash), Role: domain.RoleAdmin}, nil)

	s := NewUserService(repo, testConfig())

	token, err := s.Login(context.Background(), "boss", "pw")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, parseToken(t, token).Role)

	_, err = s.Login(context.Background(), "boss", "wrong")
	assert.ErrorIs(t, err, domain.ErrIncorrectCredentials)
}

func TestEnsureAdmin(t *testing.T) {
	cfg := testConfig()
	cfg.Admin = config.Admin{Login: "admin", Password: "pw", InitialBalance: 1000}

	repo := &userRepoMock{}
	repo.On("EnsureUser", mock.Anything, "admin", mock.Anything, domain.RoleAdmin,
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(1000)) }),
	).Return(true, nil)

	require.NoError(t, NewUserService(repo, cfg).EnsureAdmin(context.Background()))
	repo.AssertExpectations(t)
}

func TestEnsureAdminWithoutPassword(t *testing.T) {
	repo := &userRepoMock{}

	require.NoError(t, NewUserService(repo, testConfig()).EnsureAdmin(context.Background()))
	repo.AssertNotCalled(t, "EnsureUser")
}
