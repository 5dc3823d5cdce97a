package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/murmurapp/murmur/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxUsernameLength = 64
	maxEmailLength    = 120
	maxAboutMeLength  = 140

	sessionTokenTTL = 24 * time.Hour
	resetTokenTTL   = 10 * time.Minute

	purposeReset = "password_reset"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// AuthService handles user registration, login, profile updates, and JWT
// token operations.
type AuthService struct {
	users      domain.UserRepository
	jwtSecret  []byte
	bcryptCost int
}

// NewAuthService creates a new AuthService.
func NewAuthService(users domain.UserRepository, jwtSecret string, bcryptCost int) *AuthService {
	return &AuthService{
		users:      users,
		jwtSecret:  []byte(jwtSecret),
		bcryptCost: bcryptCost,
	}
}

// Register creates a new user account after validating inputs.
func (s *AuthService) Register(ctx context.Context, username, email, password, confirmPassword string) (*domain.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email, and password are required", domain.ErrInvalidInput)
	}

	if len(username) > maxUsernameLength {
		return nil, fmt.Errorf("%w: username must be at most %d characters", domain.ErrInvalidInput, maxUsernameLength)
	}

	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("%w: username may only contain letters, digits, and underscores", domain.ErrInvalidInput)
	}

	if len(email) > maxEmailLength || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email address is not valid", domain.ErrInvalidInput)
	}

	if password != confirmPassword {
		return nil, fmt.Errorf("%w: passwords do not match", domain.ErrInvalidInput)
	}

	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) || errors.Is(err, domain.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Login verifies credentials against the stored hash and returns a signed
// JWT token string.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrUnauthorized
		}
		return "", fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", domain.ErrUnauthorized
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return "", fmt.Errorf("generate jwt: %w", err)
	}

	return token, nil
}

// ValidateToken parses and validates a session JWT and returns the user ID
// from the sub claim. Reset tokens are rejected here; they only work
// against ResetPassword.
func (s *AuthService) ValidateToken(tokenString string) (int64, error) {
	claims, err := s.parseClaims(tokenString)
	if err != nil {
		return 0, domain.ErrUnauthorized
	}

	if purpose, _ := claims["purpose"].(string); purpose != "" {
		return 0, domain.ErrUnauthorized
	}

	return subjectID(claims)
}

// IssueResetToken returns a short-lived token that authorizes a password
// reset for the account behind email.
func (s *AuthService) IssueResetToken(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("get user: %w", err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":     strconv.FormatInt(user.ID, 10),
		"purpose": purposeReset,
		"jti":     uuid.NewString(),
		"iat":     now.Unix(),
		"exp":     now.Add(resetTokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}
	return signed, nil
}

// ResetPassword validates a reset token and replaces the account password.
func (s *AuthService) ResetPassword(ctx context.Context, tokenString, newPassword string) error {
	claims, err := s.parseClaims(tokenString)
	if err != nil {
		return domain.ErrUnauthorized
	}

	if purpose, _ := claims["purpose"].(string); purpose != purposeReset {
		return domain.ErrUnauthorized
	}

	userID, err := subjectID(claims)
	if err != nil {
		return domain.ErrUnauthorized
	}

	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// UpdateProfile replaces the user's about text.
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, aboutMe string) error {
	if len(aboutMe) > maxAboutMeLength {
		return fmt.Errorf("%w: about me must be at most %d characters", domain.ErrInvalidInput, maxAboutMeLength)
	}
	if err := s.users.UpdateProfile(ctx, userID, aboutMe); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// MarkSeen stamps the user's last_seen time. Called once per authenticated
// request.
func (s *AuthService) MarkSeen(ctx context.Context, userID int64) error {
	return s.users.TouchLastSeen(ctx, userID)
}

// GetUserByID retrieves a user by their ID.
func (s *AuthService) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// GetUserByUsername retrieves a user by their username.
func (s *AuthService) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.users.GetByUsername(ctx, username)
}

func (s *AuthService) generateJWT(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatInt(user.ID, 10),
		"username": user.Username,
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      now.Add(sessionTokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) parseClaims(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}

func subjectID(claims jwt.MapClaims) (int64, error) {
	sub, err := claims.GetSubject()
	if err != nil {
		return 0, domain.ErrUnauthorized
	}

	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, domain.ErrUnauthorized
	}

	return userID, nil
}
