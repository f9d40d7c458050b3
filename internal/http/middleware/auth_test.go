package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"tablechat/internal/auth"
	"tablechat/internal/repo"
	"tablechat/pkg/models"

	"github.com/labstack/echo/v4"
	"google.golang.org/api/idtoken"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newAuthMiddleware(t *testing.T) echo.MiddlewareFunc {
	t.Helper()

	dsn := fmt.Sprintf("file:middleware_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(models.GetAllModels()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	if err := db.Create(&models.User{ID: "known-sub", Email: "known@example.com"}).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	validate := func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
		subject := ""
		switch token {
		case "known-token":
			subject = "known-sub"
		case "stranger-token":
			subject = "stranger-sub"
		default:
			return nil, errors.New("signature mismatch")
		}
		return &idtoken.Payload{
			Issuer:  "accounts.google.com",
			Subject: subject,
			Claims:  map[string]interface{}{"email": subject + "@example.com"},
		}, nil
	}

	return GoogleAuth(auth.NewServiceWithValidator("client-id", validate), repo.NewUserRepository(db))
}

func TestGoogleAuthMiddleware(t *testing.T) {
	middleware := newAuthMiddleware(t)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not a bearer token", "Basic abc123", http.StatusUnauthorized},
		{"empty bearer token", "Bearer ", http.StatusUnauthorized},
		{"invalid token", "Bearer garbage", http.StatusUnauthorized},
		{"verified but unknown user", "Bearer stranger-token", http.StatusUnauthorized},
		{"known user", "Bearer known-token", http.StatusOK},
	}

	e := echo.New()
	next := func(c echo.Context) error {
		user, ok := c.Get("user").(*models.User)
		if !ok || user.ID != "known-sub" {
			t.Errorf("user not set on context: %v", c.Get("user"))
		}
		return c.NoContent(http.StatusOK)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/messages/conversations", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := middleware(next)(c)
			if tt.wantStatus == http.StatusOK {
				if err != nil {
					t.Fatalf("middleware rejected valid request: %v", err)
				}
				return
			}

			var httpErr *echo.HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("expected echo.HTTPError, got %v", err)
			}
			if httpErr.Code != tt.wantStatus {
				t.Errorf("code = %d, want %d", httpErr.Code, tt.wantStatus)
			}
		})
	}
}
