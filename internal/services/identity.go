package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"bloom-backend/internal/logger"
	"bloom-backend/internal/middleware"
	"bloom-backend/internal/models"
)

// IdentityChannel carries the id of every user whose identity cell was dropped.
const IdentityChannel = "identity_changed"

const identityCellTTL = time.Hour

type userLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// IdentityService is the only writer of the identity cells. Readers get a
// copy and never mutate the cell; it changes only through Invalidate.
type IdentityService struct {
	users userLookup
	redis *redis.Client
	log   *logger.Logger
}

func NewIdentityService(users userLookup, redisClient *redis.Client, log *logger.Logger) *IdentityService {
	return &IdentityService{
		users: users,
		redis: redisClient,
		log:   log.With("service", "IdentityService"),
	}
}

func identityKey(userID uuid.UUID) string {
	return "identity:" + userID.String()
}

// Current resolves the authenticated caller of ctx.
func (s *IdentityService) Current(ctx context.Context) (*models.Identity, error) {
	userID := middleware.GetUserID(ctx)
	if userID == uuid.Nil {
		return nil, &UnauthorizedError{Message: "Not signed in"}
	}
	return s.Lookup(ctx, userID)
}

func (s *IdentityService) Lookup(ctx context.Context, userID uuid.UUID) (*models.Identity, error) {
	raw, err := s.redis.Get(ctx, identityKey(userID)).Bytes()
	if err == nil {
		var identity models.Identity
		if jsonErr := json.Unmarshal(raw, &identity); jsonErr == nil {
			return &identity, nil
		}
		s.log.Warn("discarding malformed identity cell", "user_id", userID)
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn("identity cell read failed", "user_id", userID, "error", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &UnauthorizedError{Message: "Account no longer exists"}
		}
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	identity := &models.Identity{ID: user.ID, Email: user.Email, Role: user.Role}
	if data, err := json.Marshal(identity); err == nil {
		if err := s.redis.Set(ctx, identityKey(userID), data, identityCellTTL).Err(); err != nil {
			s.log.Warn("identity cell write failed", "user_id", userID, "error", err)
		}
	}
	return identity, nil
}

// Invalidate drops the cell so the next read reloads it, and announces the change.
func (s *IdentityService) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if err := s.redis.Del(ctx, identityKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to drop identity cell: %w", err)
	}
	if err := s.redis.Publish(ctx, IdentityChannel, userID.String()).Err(); err != nil {
		s.log.Warn("failed to publish identity change", "user_id", userID, "error", err)
	}
	return nil
}
