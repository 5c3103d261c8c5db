package model

import (
	"context"
	"testing"
)

func TestUser_Validate(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr bool
	}{
		{"valid viewer", User{UserCode: "JDOE", Security: SecurityViewer}, false},
		{"valid admin", User{UserCode: "ADMIN", Security: SecurityAdmin}, false},
		{"missing user code", User{Security: SecurityEditor}, true},
		{"negative security", User{UserCode: "JDOE", Security: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUser_IsAdmin(t *testing.T) {
	if (&User{UserCode: "A", Security: 1}).IsAdmin() {
		t.Error("security 1 should not be admin")
	}
	if !(&User{UserCode: "A", Security: 2}).IsAdmin() {
		t.Error("security 2 should be admin")
	}
	if !(&User{UserCode: "A", Security: 3}).IsAdmin() {
		t.Error("security 3 should be admin")
	}
	var nilUser *User
	if nilUser.IsAdmin() {
		t.Error("nil user should not be admin")
	}
}

func TestUser_SecurityLabel(t *testing.T) {
	tests := []struct {
		security int
		want     string
	}{
		{0, "Viewer"},
		{1, "Editor"},
		{2, "Admin"},
		{5, "Admin"},
	}
	for _, tt := range tests {
		u := &User{UserCode: "X", Security: tt.security}
		if got := u.SecurityLabel(); got != tt.want {
			t.Errorf("SecurityLabel(%d) = %q, want %q", tt.security, got, tt.want)
		}
	}
}

func TestUserContext_RoundTrip(t *testing.T) {
	ctx := context.Background()
	if UserFrom(ctx) != nil {
		t.Error("UserFrom on empty context should be nil")
	}

	u := &User{UserCode: "JDOE", Security: SecurityEditor}
	ctx = WithUser(ctx, u)
	got := UserFrom(ctx)
	if got == nil || got.UserCode != "JDOE" {
		t.Errorf("UserFrom = %+v, want %+v", got, u)
	}
}

func TestAuthTokenContext_RoundTrip(t *testing.T) {
	ctx := context.Background()
	if AuthTokenFrom(ctx) != "" {
		t.Error("AuthTokenFrom on empty context should be empty")
	}
	ctx = WithAuthToken(ctx, "token-123")
	if AuthTokenFrom(ctx) != "token-123" {
		t.Errorf("AuthTokenFrom = %q, want token-123", AuthTokenFrom(ctx))
	}
}
