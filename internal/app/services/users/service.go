// Package users manages accounts, roles and role assignment.
package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/vendnet/vendops/internal/app/domain/user"
	"github.com/vendnet/vendops/internal/app/storage"
	"github.com/vendnet/vendops/pkg/logger"
)

// Service manages user records.
type Service struct {
	store storage.UserStore
	log   *logger.Logger
}

// New constructs a user service.
func New(store storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{store: store, log: log}
}

// CreateInput carries the fields accepted when registering a user.
type CreateInput struct {
	TelegramID int64
	Phone      string
	Email      string
	Username   string
	FullName   string
	Password   string
	Roles      []string
}

// Create registers a user and assigns the requested roles.
func (s *Service) Create(ctx context.Context, in CreateInput) (user.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
	if in.FullName == "" {
		return user.User{}, fmt.Errorf("full_name is required")
	}
	if in.Username == "" && in.TelegramID == 0 {
		return user.User{}, fmt.Errorf("username or telegram_id is required")
	}

	u := user.User{
		TelegramID: in.TelegramID,
		Phone:      strings.TrimSpace(in.Phone),
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		Username:   in.Username,
		FullName:   in.FullName,
		Active:     true,
	}
	if in.Password != "" {
		hash, err := hashPassword(in.Password)
		if err != nil {
			return user.User{}, err
		}
		u.PasswordHash = hash
	}

	created, err := s.store.CreateUser(ctx, u)
	if err != nil {
		return user.User{}, err
	}

	roles := in.Roles
	if len(roles) == 0 {
		roles = []string{user.RoleOperator}
	}
	if err := s.store.SetUserRoles(ctx, created.ID, roles); err != nil {
		return user.User{}, err
	}

	s.log.WithField("user_id", created.ID).
		WithField("username", created.Username).
		WithField("roles", strings.Join(roles, ",")).
		Info("user created")
	return s.store.GetUser(ctx, created.ID)
}

// UpdateInput carries updatable profile fields. Nil pointers leave the
// current value unchanged.
type UpdateInput struct {
	Phone    *string
	Email    *string
	FullName *string
	Active   *bool
	Verified *bool
	Settings map[string]string
}

// Update applies profile changes.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if in.Phone != nil {
		u.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.FullName != nil {
		u.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Active != nil {
		u.Active = *in.Active
	}
	if in.Verified != nil {
		u.Verified = *in.Verified
	}
	if in.Settings != nil {
		u.Settings = in.Settings
	}
	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", id).Info("user updated")
	return updated, nil
}

// SetPassword replaces the user's password hash.
func (s *Service) SetPassword(ctx context.Context, id, password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	if _, err := s.store.UpdateUser(ctx, u); err != nil {
		return err
	}
	s.log.WithField("user_id", id).Info("password changed")
	return nil
}

// AssignRoles replaces the user's role set.
func (s *Service) AssignRoles(ctx context.Context, id string, roles []string) (user.User, error) {
	if len(roles) == 0 {
		return user.User{}, fmt.Errorf("at least one role is required")
	}
	if err := s.store.SetUserRoles(ctx, id, roles); err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", id).
		WithField("roles", strings.Join(roles, ",")).
		Info("roles assigned")
	return s.store.GetUser(ctx, id)
}

// Get fetches one user.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	return s.store.GetUser(ctx, id)
}

// List lists all users.
func (s *Service) List(ctx context.Context) ([]user.User, error) {
	return s.store.ListUsers(ctx)
}

// Deactivate soft-deletes a user.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.log.WithField("user_id", id).Info("user deactivated")
	return nil
}

// ListRoles lists the role catalog.
func (s *Service) ListRoles(ctx context.Context) ([]user.Role, error) {
	return s.store.ListRoles(ctx)
}

// EnsureSystemRoles upserts the built-in role set. Run at startup.
func (s *Service) EnsureSystemRoles(ctx context.Context) error {
	for _, r := range user.SeedRoles() {
		if _, err := s.store.UpsertRole(ctx, r); err != nil {
			return fmt.Errorf("seed role %s: %w", r.Name, err)
		}
	}
	s.log.Info("system roles ensured")
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
