package middleware

import (
	"net/http"
	"strings"

	"tablechat/internal/auth"
	"tablechat/internal/repo"

	"github.com/labstack/echo/v4"
)

// GoogleAuth middleware verifies the bearer ID token on every request and
// resolves the verified subject to a stored user. Verified identities without
// a user row are rejected; /auth/google-login is the only way to create one.
func GoogleAuth(authService *auth.Service, userRepo *repo.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
			}

			tokenString := authHeader[7:]
			if tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
			}

			identity, err := authService.Verify(c.Request().Context(), tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			user, err := userRepo.GetByID(identity.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "User not found")
			}

			c.Set("user", user)
			c.Set("user_id", user.ID)

			return next(c)
		}
	}
}
