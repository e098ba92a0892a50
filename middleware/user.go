package middleware

import (
	"errors"
	"log"
	"net/http"

	"crm_dashboard_go/models"
	"crm_dashboard_go/services"

	"github.com/labstack/echo/v4"
)

const (
	// UserHeader carries the id of the user authenticated by the gateway
	UserHeader = "X-User-ID"
	// ContextKeyUser is the context key for the acting user's profile
	ContextKeyUser = "user"
)

// RequireUser resolves the acting user from the gateway header and stores
// their profile in the context. Authentication happens upstream; requests
// without a known user are rejected.
func RequireUser(profiles *services.ProfileService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := c.Request().Header.Get(UserHeader)
			if userID == "" {
				return jsonError(c, http.StatusUnauthorized, "Authentication required")
			}

			profile, err := profiles.Get(c.Request().Context(), userID)
			if err != nil {
				if errors.Is(err, services.ErrNotFound) {
					return jsonError(c, http.StatusUnauthorized, "Unknown user")
				}
				log.Printf("[WARNING] Failed to resolve user %s: %v", userID, err)
				return jsonError(c, http.StatusInternalServerError, "Failed to resolve user")
			}

			c.Set(ContextKeyUser, profile)
			return next(c)
		}
	}
}

// GetCurrentUser retrieves the acting user's profile from context
func GetCurrentUser(c echo.Context) *models.Profile {
	user, ok := c.Get(ContextKeyUser).(*models.Profile)
	if !ok {
		return nil
	}
	return user
}

func jsonError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
