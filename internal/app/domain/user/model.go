package user

import "time"

// Permission names an allowed action within a module, e.g. machines:edit.
type Permission struct {
	Module string `json:"module"`
	Action string `json:"action"`
}

func (p Permission) String() string { return p.Module + ":" + p.Action }

// Role groups permissions under a stable name. System roles are seeded
// at migration time and cannot be deleted through the API.
type Role struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	DisplayName string       `json:"display_name,omitempty"`
	Description string       `json:"description,omitempty"`
	System      bool         `json:"system"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// User is an operator, manager, warehouse worker, investor or admin of
// the vending network. Users authenticate by password or by Telegram.
type User struct {
	ID           string            `json:"id"`
	TelegramID   int64             `json:"telegram_id,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	Email        string            `json:"email,omitempty"`
	Username     string            `json:"username,omitempty"`
	FullName     string            `json:"full_name"`
	PasswordHash string            `json:"-"`
	Active       bool              `json:"active"`
	Verified     bool              `json:"verified"`
	LastLogin    time.Time         `json:"last_login,omitempty"`
	Settings     map[string]string `json:"settings,omitempty"`
	Roles        []Role            `json:"roles,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	DeletedAt    time.Time         `json:"deleted_at,omitempty"`
}

// DisplayName returns the best human-readable name available.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	if u.Username != "" {
		return u.Username
	}
	return "user " + u.ID
}

// HasRole reports whether the user carries the named role.
func (u User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the user carries at least one of the names.
func (u User) HasAnyRole(names ...string) bool {
	for _, n := range names {
		if u.HasRole(n) {
			return true
		}
	}
	return false
}

// HasPermission checks module:action across the user's roles. The
// wildcard permission *:* grants everything.
func (u User) HasPermission(module, action string) bool {
	for _, r := range u.Roles {
		for _, p := range r.Permissions {
			if p.Module == "*" && p.Action == "*" {
				return true
			}
			if p.Module == module && p.Action == action {
				return true
			}
		}
	}
	return false
}

// RoleNames returns the names of all assigned roles.
func (u User) RoleNames() []string {
	out := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		out = append(out, r.Name)
	}
	return out
}
