package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"bloom-backend/internal/middleware"
	"bloom-backend/internal/models"
)

const refreshTokenTTL = 7 * 24 * time.Hour

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID uuid.UUID) error
	SetRole(ctx context.Context, userID uuid.UUID, role string) error
}

type AuthService struct {
	userRepo    userStore
	redis       *redis.Client
	jwt         *middleware.JWTAuth
	identity    *IdentityService
	adminEmails map[string]bool
}

// NewAuthService builds the account service. Addresses in adminEmails get
// the admin role when they register or when PromoteAdmins runs.
func NewAuthService(userRepo userStore, redisClient *redis.Client, jwt *middleware.JWTAuth, identity *IdentityService, adminEmails []string) *AuthService {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(e))] = true
	}
	return &AuthService{
		userRepo:    userRepo,
		redis:       redisClient,
		jwt:         jwt,
		identity:    identity,
		adminEmails: admins,
	}
}

func (s *AuthService) isAdminEmail(email string) bool {
	return s.adminEmails[strings.ToLower(email)]
}

// PromoteAdmins grants the admin role to already registered accounts listed
// in ADMIN_EMAILS. Unknown addresses are skipped. Returns how many changed.
func (s *AuthService) PromoteAdmins(ctx context.Context) (int, error) {
	promoted := 0
	for email := range s.adminEmails {
		user, err := s.userRepo.GetByEmail(ctx, email)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return promoted, err
		}
		if user.Role == models.RoleAdmin {
			continue
		}
		if err := s.SetRole(ctx, user.ID, models.RoleAdmin); err != nil {
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthTokens, error) {
	req.Email = strings.TrimSpace(req.Email)

	fieldErrors := make(map[string]string)
	if !emailRegex.MatchString(req.Email) {
		fieldErrors["email"] = "Invalid email format"
	}
	if err := validatePassword(req.Password); err != nil {
		fieldErrors["password"] = err.Error()
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	_, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err == nil {
		return nil, &ConflictError{Message: "Email already in use"}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         models.RoleCustomer,
	}
	if s.isAdminEmail(req.Email) {
		user.Role = models.RoleAdmin
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &UnauthorizedError{Message: "Invalid email or password"}
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, &UnauthorizedError{Message: "Invalid email or password"}
	}

	s.userRepo.UpdateLastLogin(ctx, user.ID)

	return s.issueTokens(ctx, user)
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	userIDStr, err := s.redis.Get(ctx, "refresh:"+refreshToken).Result()
	if err != nil {
		return nil, &UnauthorizedError{Message: "Invalid or expired refresh token. Please log in again."}
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	// Rotation: a refresh token is single use.
	s.redis.Del(ctx, "refresh:"+refreshToken)

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &UnauthorizedError{Message: "Account no longer exists"}
		}
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	userIDStr, _ := s.redis.Get(ctx, "refresh:"+refreshToken).Result()
	if err := s.redis.Del(ctx, "refresh:"+refreshToken).Err(); err != nil {
		return err
	}
	if userID, err := uuid.Parse(userIDStr); err == nil {
		return s.identity.Invalidate(ctx, userID)
	}
	return nil
}

// SetRole changes a user's role and drops the cached identity so the change
// is visible on the next request.
func (s *AuthService) SetRole(ctx context.Context, userID uuid.UUID, role string) error {
	if role != models.RoleAdmin && role != models.RoleCustomer {
		return &ValidationError{Fields: map[string]string{"role": "Role must be admin or customer"}}
	}
	if err := s.userRepo.SetRole(ctx, userID, role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Message: "User not found"}
		}
		return err
	}
	return s.identity.Invalidate(ctx, userID)
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*models.AuthTokens, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := generateToken(64)
	if err != nil {
		return nil, err
	}

	err = s.redis.Set(ctx, "refresh:"+refreshToken, user.ID.String(), refreshTokenTTL).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(middleware.AccessTokenTTL.Seconds()),
	}, nil
}

func generateToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func validatePassword(pw string) error {
	if len(pw) < 8 {
		return fmt.Errorf("Password must be at least 8 characters")
	}
	hasNumber := false
	for _, ch := range pw {
		if unicode.IsDigit(ch) {
			hasNumber = true
			break
		}
	}
	if !hasNumber {
		return fmt.Errorf("Password must contain at least one number")
	}
	return nil
}
