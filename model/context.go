package model

import (
	"context"
	"errors"
	"fmt"
)

// Security level tiers. The numeric value gates navigation and data access.
const (
	SecurityViewer = 0
	SecurityEditor = 1
	SecurityAdmin  = 2
)

// User carries the identity and role tier of the authenticated staff member
// for the lifetime of a request. It is immutable after construction and safe
// for concurrent reads.
type User struct {
	UserCode string `json:"userCode"`
	Security int    `json:"security"`
	BranchID int    `json:"branchID"`
	Country  string `json:"country,omitempty"`
}

// Validate checks that all mandatory fields are present.
func (u *User) Validate() error {
	var errs []error
	if u.UserCode == "" {
		errs = append(errs, fmt.Errorf("UserCode is required"))
	}
	if u.Security < SecurityViewer {
		errs = append(errs, fmt.Errorf("Security must be non-negative"))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// IsAdmin returns true if the user's security level permits admin-only
// operations (user management, user data analysis).
func (u *User) IsAdmin() bool {
	return u != nil && u.Security >= SecurityAdmin
}

// SecurityLabel returns the display name of the user's security tier.
func (u *User) SecurityLabel() string {
	switch {
	case u == nil:
		return "Unknown"
	case u.Security >= SecurityAdmin:
		return "Admin"
	case u.Security == SecurityEditor:
		return "Editor"
	default:
		return "Viewer"
	}
}

// BranchName returns the display name for a branch id.
func BranchName(branchID int) string {
	switch branchID {
	case 1:
		return "Sydney"
	case 2:
		return "Melbourne"
	default:
		return "Not Set"
	}
}

type userKey struct{}
type tokenKey struct{}

// WithUser attaches a User to the given context.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFrom extracts the User from the context, or returns nil if not present.
func UserFrom(ctx context.Context) *User {
	u, _ := ctx.Value(userKey{}).(*User)
	return u
}

// WithAuthToken attaches the caller's raw bearer token to the context so the
// backend client can forward it to the WinBeat API.
func WithAuthToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// AuthTokenFrom extracts the bearer token from the context, or returns an
// empty string if not present.
func AuthTokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey{}).(string)
	return t
}
