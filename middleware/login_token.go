package middleware

import (
	"errors"
	"fmt"

	"acrevista-api/config"
	"acrevista-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoginToken signs in the owner of a valid ?token= parameter. Invalid or
// expired tokens only add a warning banner; the request continues anonymously.
func LoginToken(tokens *services.LoginTokenService, auth *Auth) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("token")
		if raw == "" {
			c.Next()
			return
		}

		user, err := tokens.Lookup(c.Request.Context(), raw)
		switch {
		case errors.Is(err, services.ErrTokenInvalid):
			AddFlash(c, "warning", "Invalid login token!")
		case errors.Is(err, services.ErrTokenExpired):
			AddFlash(c, "warning", "Token is expired!")
		case err != nil:
			config.Log.Error("login token lookup failed", zap.Error(err))
		default:
			if err := auth.StartSession(c, user); err != nil {
				config.Log.Error("failed to start session from login token", zap.Int("user_id", user.UserID), zap.Error(err))
				break
			}
			AddFlash(c, "success", fmt.Sprintf("You have been logged in successfully as %s!", user.Email))
		}
		c.Next()
	}
}
