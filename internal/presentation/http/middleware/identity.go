// Package middleware provides HTTP middleware for the presentation layer.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bernice-stories/bernice/internal/application/services"
	"github.com/bernice-stories/bernice/internal/domain/entities/story"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/performance"
)

// AddressHeader carries a caller address when no session token is sent.
const AddressHeader = "X-Bernice-Address"

const identityKey = "identity"

// Identity is the resolved caller of a demo request.
type Identity struct {
	User   story.User
	Source string // token, header or default
}

// IdentityMiddleware resolves the caller from a bearer token, then the
// address header, then the default demo address. An invalid token is
// rejected rather than ignored.
func IdentityMiddleware(auth *services.AuthService, defaultAddress string, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		marker := perfTracker.StartOperation("middleware_identity", "request")
		defer marker.Complete()

		if token := bearerToken(c.GetHeader("Authorization")); token != "" {
			claims, err := auth.Authenticate(token)
			if err != nil {
				marker.SetError(err)
				logger.Auth().Warn("Rejected bearer token", "path", c.Request.URL.Path)
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session token"})
				c.Abort()
				return
			}
			user := story.User{Address: claims.Address}
			if claims.Username != "" {
				username := claims.Username
				user.Username = &username
			}
			c.Set(identityKey, Identity{User: user, Source: "token"})
		} else if address := strings.TrimSpace(c.GetHeader(AddressHeader)); address != "" {
			c.Set(identityKey, Identity{User: story.User{Address: address}, Source: "header"})
		} else {
			c.Set(identityKey, Identity{User: story.User{Address: defaultAddress}, Source: "default"})
		}

		logger.Auth().Debug("Identity resolved", "path", c.Request.URL.Path, "duration", time.Since(start))
		c.Next()
	}
}

func bearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// GetIdentity returns the caller resolved by IdentityMiddleware.
func GetIdentity(c *gin.Context) (Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
