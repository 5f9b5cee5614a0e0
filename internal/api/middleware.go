package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ideaflow/internal/common/auth"
	apperrors "ideaflow/internal/common/errors"
	"ideaflow/internal/common/logger"
)

const principalKey = "ideaflow.principal"

func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// requireAuth verifies the bearer token and stores the principal on the context.
func requireAuth(verifier *auth.Verifier, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			respondError(c, apperrors.NewAuthenticationError("missing bearer token", err))
			return
		}
		principal, err := verifier.Verify(token)
		if err != nil {
			log.Debug("rejected bearer token", map[string]interface{}{"path": c.FullPath(), "error": err})
			respondError(c, apperrors.NewAuthenticationError("invalid or expired token", err))
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

func principalFrom(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request handled", map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}
