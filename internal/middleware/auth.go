package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/communityweb/strtracker/internal/common"
	"github.com/communityweb/strtracker/internal/domain"
	"github.com/communityweb/strtracker/pkg/jwt"
	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// OptionalAuth resolves the session actor. Requests without an Authorization
// header continue as anonymous; a malformed or expired token is rejected.
func OptionalAuth(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Set(actorKey, domain.Anonymous)
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			common.ErrorResponse(c, http.StatusUnauthorized, "Invalid authorization header format", nil)
			c.Abort()
			return
		}

		claims, err := jwtManager.VerifyToken(parts[1])
		if err != nil {
			if errors.Is(err, jwt.ErrExpiredToken) {
				common.ErrorResponse(c, http.StatusUnauthorized, "Token expired", err)
			} else {
				common.ErrorResponse(c, http.StatusUnauthorized, "Invalid token", err)
			}
			c.Abort()
			return
		}

		c.Set(actorKey, domain.Actor{
			Username: claims.Username,
			Email:    claims.Email,
			Level:    claims.Level,
		})
		c.Next()
	}
}

// RequireAuth rejects anonymous requests
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetActor(c).IsLoggedIn() {
			common.ErrorResponse(c, http.StatusUnauthorized, "Login required", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireDeveloper rejects actors below the developer level
func RequireDeveloper() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := GetActor(c)
		if !actor.IsLoggedIn() {
			common.ErrorResponse(c, http.StatusUnauthorized, "Login required", nil)
			c.Abort()
			return
		}
		if !actor.IsDeveloper() {
			common.ErrorResponse(c, http.StatusForbidden, "Developer access required", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetActor returns the request actor, or Anonymous when none was resolved
func GetActor(c *gin.Context) domain.Actor {
	v, exists := c.Get(actorKey)
	if !exists {
		return domain.Anonymous
	}
	if actor, ok := v.(domain.Actor); ok {
		return actor
	}
	return domain.Anonymous
}
