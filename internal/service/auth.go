package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"clipfeed/internal/config"
	"clipfeed/internal/logger"
	"clipfeed/internal/model"
	"clipfeed/internal/repository"
)

// AuthService issues JWT access tokens backed by rotating refresh-token
// sessions. Presenting a refresh token that was already rotated out ends
// every session of its user.
type AuthService struct {
	sessions repository.SessionRepository
	userRepo repository.UserRepository
	config   *config.Config
	log      *zap.Logger
	now      func() time.Time
}

func NewAuthService(sessions repository.SessionRepository, userRepo repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		sessions: sessions,
		userRepo: userRepo,
		config:   cfg,
		log:      logger.Named("auth"),
		now:      time.Now,
	}
}

// Issue starts a new session for user.
func (s *AuthService) Issue(ctx context.Context, user *model.User, device, ip string) (*model.TokenPair, error) {
	raw, session := s.newSession(user.ID, device, ip)
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return s.pair(user, raw)
}

// Refresh exchanges a refresh token for a new pair and retires the old
// session.
func (s *AuthService) Refresh(ctx context.Context, raw, device, ip string) (*model.TokenPair, error) {
	session, err := s.sessions.ByTokenHash(ctx, hashToken(raw))
	if err != nil {
		return nil, err
	}

	switch session.State(s.now()) {
	case model.SessionRevoked:
		s.endAll(ctx, session.UserID)
		return nil, model.ErrSessionReused
	case model.SessionExpired:
		return nil, model.ErrSessionExpired
	}

	userID, err := session.Owner()
	if err != nil {
		return nil, model.ErrSessionNotFound
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	next, successor := s.newSession(user.ID, device, ip)
	if err := s.sessions.Rotate(ctx, session.ID, successor); err != nil {
		if errors.Is(err, model.ErrSessionReused) {
			// Lost a race with another refresh of the same token.
			s.endAll(ctx, session.UserID)
		}
		return nil, err
	}
	return s.pair(user, next)
}

// Revoke ends the session holding raw.
func (s *AuthService) Revoke(ctx context.Context, raw string) error {
	session, err := s.sessions.ByTokenHash(ctx, hashToken(raw))
	if err != nil {
		return err
	}
	return s.sessions.Revoke(ctx, session.ID)
}

func (s *AuthService) RevokeAll(ctx context.Context, userID primitive.ObjectID) error {
	n, err := s.sessions.RevokeAll(ctx, userID.Hex())
	if err != nil {
		return err
	}
	s.log.Debug("sessions revoked", logger.WithUserID(userID.Hex()), zap.Int64("count", n))
	return nil
}

// PurgeExpiredSessions deletes sessions that expired more than retention
// ago.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.sessions.Purge(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("expired sessions purged", zap.Int64("count", n))
	}
	return n, nil
}

func (s *AuthService) endAll(ctx context.Context, userID string) {
	n, err := s.sessions.RevokeAll(ctx, userID)
	if err != nil {
		s.log.Error("revoke sessions after reuse failed", logger.WithUserID(userID), zap.Error(err))
		return
	}
	s.log.Warn("refresh token reuse, sessions revoked", logger.WithUserID(userID), zap.Int64("count", n))
}

func (s *AuthService) newSession(userID primitive.ObjectID, device, ip string) (string, *model.Session) {
	raw := uuid.NewString()
	return raw, &model.Session{
		UserID:    userID.Hex(),
		TokenHash: hashToken(raw),
		Device:    device,
		IP:        ip,
		ExpiresAt: s.now().Add(time.Duration(s.config.RefreshTokenMaxAge) * time.Second),
	}
}

func (s *AuthService) pair(user *model.User, refresh string) (*model.TokenPair, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":      user.ID.Hex(),
		"username": user.Username,
		"exp":      now.Add(time.Duration(s.config.AccessTokenMaxAge) * time.Second).Unix(),
		"iat":      now.Unix(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	return &model.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.config.AccessTokenMaxAge,
	}, nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
