// Package auth issues and validates access tokens for the API and the
// Telegram bot.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/vendnet/vendops/internal/app/domain/user"
	"github.com/vendnet/vendops/internal/app/storage"
	"github.com/vendnet/vendops/internal/session"
	"github.com/vendnet/vendops/pkg/logger"
)

// ErrInvalidCredentials is returned for any login failure so callers
// cannot distinguish unknown users from wrong passwords.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrSessionRevoked is returned when a refresh token no longer has a
// live session behind it.
var ErrSessionRevoked = errors.New("session revoked")

// Config tunes token lifetimes and signing.
type Config struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BotToken        string
	TelegramAuthTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = 15 * time.Minute
	}
	if c.RefreshTokenTTL <= 0 {
		c.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.TelegramAuthTTL <= 0 {
		c.TelegramAuthTTL = 24 * time.Hour
	}
	return c
}

// TokenPair is an access token plus the refresh token that renews it.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Claims is the JWT payload carried by access and refresh tokens.
type Claims struct {
	Roles     []string `json:"roles,omitempty"`
	TokenType string   `json:"token_type"`
	jwt.RegisteredClaims
}

// Service authenticates users and manages sessions.
type Service struct {
	cfg      Config
	users    storage.UserStore
	sessions session.Store
	log      *logger.Logger
	now      func() time.Time
}

// New constructs an auth service.
func New(cfg Config, users storage.UserStore, sessions session.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	if sessions == nil {
		sessions = session.NewMemory()
	}
	return &Service{cfg: cfg.withDefaults(), users: users, sessions: sessions, log: log, now: time.Now}
}

// LoginPassword authenticates by username (or email) and password.
func (s *Service) LoginPassword(ctx context.Context, login, password string) (user.User, TokenPair, error) {
	login = strings.TrimSpace(login)
	u, err := s.users.GetUserByUsername(ctx, login)
	if errors.Is(err, storage.ErrNotFound) {
		u, err = s.users.GetUserByEmail(ctx, strings.ToLower(login))
	}
	if err != nil {
		return user.User{}, TokenPair{}, ErrInvalidCredentials
	}
	if !u.Active || u.PasswordHash == "" {
		return user.User{}, TokenPair{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.log.WithField("username", login).Warn("password login rejected")
		return user.User{}, TokenPair{}, ErrInvalidCredentials
	}
	return s.finishLogin(ctx, u, "password")
}

// LoginTelegram authenticates a Telegram login widget payload. The
// payload's hash field must be the HMAC-SHA256 of the remaining fields
// (sorted key=value lines) keyed by SHA256(bot token).
func (s *Service) LoginTelegram(ctx context.Context, fields map[string]string) (user.User, TokenPair, error) {
	telegramID, err := VerifyTelegramAuth(fields, s.cfg.BotToken, s.cfg.TelegramAuthTTL, s.now())
	if err != nil {
		s.log.WithError(err).Warn("telegram login rejected")
		return user.User{}, TokenPair{}, ErrInvalidCredentials
	}
	u, err := s.users.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return user.User{}, TokenPair{}, ErrInvalidCredentials
	}
	if !u.Active {
		return user.User{}, TokenPair{}, ErrInvalidCredentials
	}
	return s.finishLogin(ctx, u, "telegram")
}

func (s *Service) finishLogin(ctx context.Context, u user.User, method string) (user.User, TokenPair, error) {
	pair, err := s.issuePair(ctx, u)
	if err != nil {
		return user.User{}, TokenPair{}, err
	}

	u.LastLogin = s.now().UTC()
	if updated, err := s.users.UpdateUser(ctx, u); err == nil {
		u = updated
	}

	s.log.WithField("user_id", u.ID).
		WithField("method", method).
		Info("login succeeded")
	return u, pair, nil
}

// Refresh exchanges a live refresh token for a new pair. The old
// session is revoked so each refresh token works once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.parseToken(refreshToken, "refresh")
	if err != nil {
		return TokenPair{}, err
	}

	hash := hashToken(refreshToken)
	sess, ok, err := s.sessions.Get(ctx, hash)
	if err != nil {
		return TokenPair{}, err
	}
	if !ok {
		return TokenPair{}, ErrSessionRevoked
	}
	if err := s.sessions.Delete(ctx, hash); err != nil {
		return TokenPair{}, err
	}
	// Rotation retires the paired access token with the session.
	if sess.AccessHash != "" {
		_ = s.sessions.Delete(ctx, sess.AccessHash)
	}

	u, err := s.users.GetUser(ctx, claims.Subject)
	if err != nil || !u.Active {
		return TokenPair{}, ErrInvalidCredentials
	}
	return s.issuePair(ctx, u)
}

// Logout revokes the session behind a refresh token together with its
// paired access token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	hash := hashToken(refreshToken)
	sess, ok, err := s.sessions.Get(ctx, hash)
	if err != nil {
		return err
	}
	if ok && sess.AccessHash != "" {
		_ = s.sessions.Delete(ctx, sess.AccessHash)
	}
	return s.sessions.Delete(ctx, hash)
}

// Authenticate validates an access token and loads its user. Both the
// signature and the live session are checked, so logout and refresh
// rotation take effect before the token expires.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (user.User, error) {
	claims, err := s.parseToken(accessToken, "access")
	if err != nil {
		return user.User{}, err
	}
	_, ok, err := s.sessions.Get(ctx, hashToken(accessToken))
	if err != nil {
		return user.User{}, err
	}
	if !ok {
		return user.User{}, ErrSessionRevoked
	}
	u, err := s.users.GetUser(ctx, claims.Subject)
	if err != nil {
		return user.User{}, ErrInvalidCredentials
	}
	if !u.Active {
		return user.User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) issuePair(ctx context.Context, u user.User) (TokenPair, error) {
	now := s.now().UTC()
	accessExpiry := now.Add(s.cfg.AccessTokenTTL)

	access, err := s.signToken(u, "access", now, accessExpiry)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.signToken(u, "refresh", now, now.Add(s.cfg.RefreshTokenTTL))
	if err != nil {
		return TokenPair{}, err
	}

	accessHash := hashToken(access)
	err = s.sessions.Put(ctx, accessHash, session.Session{
		UserID:   u.ID,
		IssuedAt: now,
	}, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	err = s.sessions.Put(ctx, hashToken(refresh), session.Session{
		UserID:     u.ID,
		IssuedAt:   now,
		AccessHash: accessHash,
	}, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: accessExpiry}, nil
}

func (s *Service) signToken(u user.User, tokenType string, now, expiry time.Time) (string, error) {
	claims := Claims{
		Roles:     u.RoleNames(),
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *Service) parseToken(raw, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.TokenType != wantType {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
