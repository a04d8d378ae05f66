package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/Misikirayu/mate-finder/internal/models"
	"github.com/Misikirayu/mate-finder/pkg/utils"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type credentialStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type tokenIssuer interface {
	Issue(userID int64, email string, ttl time.Duration) (string, time.Time, error)
}

type AuthService struct {
	users      credentialStore
	tokens     tokenIssuer
	tokenTTL   time.Duration
	bcryptCost int
	logger     *zap.Logger
}

type SignupInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

func NewAuthService(users credentialStore, tokens tokenIssuer, tokenTTL time.Duration, bcryptCost int, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      users,
		tokens:     tokens,
		tokenTTL:   tokenTTL,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func validateSignup(in SignupInput) error {
	if strings.TrimSpace(in.FirstName) == "" ||
		strings.TrimSpace(in.LastName) == "" ||
		strings.TrimSpace(in.Email) == "" ||
		in.Password == "" {
		return validationError("All fields are required")
	}
	if !emailPattern.MatchString(in.Email) {
		return validationError("Invalid email format")
	}
	if len(in.Password) < minPasswordLength {
		return validationError("Password must be at least 6 characters long")
	}
	return nil
}

// Signup validates and stores a new account. The existence check is only a
// fast path; the unique index on email decides races.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateSignup(in); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err == nil && existing != nil {
		return nil, newError(ErrConflict, "Email already registered", nil)
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, storeError(s.logger, "signup.lookup", err, "")
	}

	hashed, err := utils.HashPasswordWithCost(in.Password, s.bcryptCost)
	if err != nil {
		s.logger.Error("hash password", zap.Error(err))
		return nil, newError(ErrStore, "Failed to create account", err)
	}

	user := &models.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hashed,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, newError(ErrConflict, "Email already registered", err)
		}
		return nil, storeError(s.logger, "signup.insert", err, "")
	}

	s.logger.Info("account created", zap.Int64("user_id", user.ID))
	return user, nil
}

// Login never reveals whether the email or the password was wrong.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, validationError("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, newError(ErrUnauthorized, "Invalid email or password", nil)
		}
		return nil, storeError(s.logger, "login.lookup", err, "")
	}

	if !utils.CheckPassword(password, user.PasswordHash) {
		return nil, newError(ErrUnauthorized, "Invalid email or password", nil)
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email, s.tokenTTL)
	if err != nil {
		s.logger.Error("issue token", zap.Int64("user_id", user.ID), zap.Error(err))
		return nil, newError(ErrStore, "Failed to generate token", err)
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
