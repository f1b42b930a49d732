package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/axonake/RANGERSTORE/internal/config"
	"github.com/axonake/RANGERSTORE/internal/domain"
	"github.com/axonake/RANGERSTORE/pkg/dto"
	"github.com/axonake/RANGERSTORE/pkg/logger"
	"github.com/dgrijalva/jwt-go"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

var passwordCost = 14

type UserRepository interface {
	CreateUser(ctx context.Context, login, hashedPassword, role string) (int64, error)
	EnsureUser(ctx context.Context, login, hashedPassword, role string, balance decimal.Decimal) (bool, error)
	User(ctx context.Context, login string) (*domain.User, error)
}

type UserService struct {
	config *config.Config
	repo   UserRepository
	now    func() time.Time
}

func NewUserService(repo UserRepository, config *config.Config) *UserService {
	return &UserService{
		repo:   repo,
		config: config,
		now:    time.Now,
	}
}

func (s *UserService) Register(ctx context.Context, login, password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		logger.Log.Warn("error while hashing password")
		return "", fmt.Errorf("error while hashing password: %w", err)
	}

	userID, err := s.repo.CreateUser(ctx, login, string(hashedPassword), domain.RoleUser)
	if err != nil {
		return "", err
	}

	logger.Log.Info("user registered", logger.String("login", login), logger.Int64("user_id", userID))

	return s.token(userID, domain.RoleUser)
}

func (s *UserService) Login(ctx context.Context, login, password string) (string, error) {
	user, err := s.repo.User(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrIncorrectCredentials) {
			logger.Log.Warn("incorrect login", logger.String("login", login))
		}
		return "", err
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password))
	if err != nil {
		logger.Log.Warn("incorrect password", logger.String("login", login))
		return "", domain.ErrIncorrectCredentials
	}

	return s.token(user.ID, user.Role)
}

// EnsureAdmin creates the configured admin account on first start.
func (s *UserService) EnsureAdmin(ctx context.Context) error {
	admin := s.config.Admin
	if admin.Password == "" {
		logger.Log.Warn("admin password is not configured, skipping admin account")
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(admin.Password), passwordCost)
	if err != nil {
		return fmt.Errorf("error while hashing password: %w", err)
	}

	created, err := s.repo.EnsureUser(ctx, admin.Login, string(hashedPassword), domain.RoleAdmin, decimal.NewFromFloat(admin.InitialBalance))
	if err != nil {
		return err
	}

	if created {
		logger.Log.Info("admin account created", logger.String("login", admin.Login))
	}

	return nil
}

func (s *UserService) token(userID int64, role string) (string, error) {
	claims := dto.Claims{
		Role: role,
		StandardClaims: jwt.StandardClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  s.now().Unix(),
			ExpiresAt: s.now().Add(s.config.TokenTTL).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(s.config.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("error while signing token: %w", err)
	}

	return signedToken, nil
}
