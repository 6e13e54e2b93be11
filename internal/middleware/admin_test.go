package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
)

func newAdminApp(token string) *fiber.App {
	Logger = zerolog.Nop()
	app := fiber.New()
	app.Put("/api/admin/rules", NewAdminAuth(token), func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestAdminAuth(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		header     string
		wantStatus int
	}{
		{"valid token", "s3cret", "s3cret", fiber.StatusNoContent},
		{"wrong token", "s3cret", "guess", fiber.StatusUnauthorized},
		{"missing header", "s3cret", "", fiber.StatusUnauthorized},
		{"admin disabled", "", "anything", fiber.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newAdminApp(tt.configured)
			req := httptest.NewRequest("PUT", "/api/admin/rules", nil)
			if tt.header != "" {
				req.Header.Set(AdminTokenHeader, tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/api/clients/12/messages", "/api/clients/:slot/messages"},
		{"/api/admin/players/3/team", "/api/admin/players/:slot/team"},
		{"/api/admin/players", "/api/admin/players"},
		{"/api/votes/cast", "/api/votes/cast"},
		{"/health/live", "/health/live"},
	}
	for _, tt := range tests {
		if got := sanitizePath(tt.in); got != tt.want {
			t.Errorf("sanitizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHashIPForLog(t *testing.T) {
	a := hashIPForLog("10.0.0.1")
	if len(a) != 12 {
		t.Fatalf("len = %d, want 12", len(a))
	}
	if a == hashIPForLog("10.0.0.2") {
		t.Fatal("different IPs should hash differently")
	}
	if a != hashIPForLog("10.0.0.1") {
		t.Fatal("hash should be stable")
	}
}
