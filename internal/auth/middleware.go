package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/group-scheduler/internal/pkg/apperror"
	"github.com/nekogravitycat/group-scheduler/internal/pkg/response"
)

var (
	ErrMissingHeader = apperror.New(http.StatusUnauthorized, "missing Authorization header")
	ErrHeaderFormat  = apperror.New(http.StatusUnauthorized, "invalid Authorization header format")
	ErrInvalidToken  = apperror.New(http.StatusUnauthorized, "invalid or expired token")
)

// AuthRequired is a Gin middleware that validates JWT from Authorization: Bearer <token>.
// The scheduler acts on behalf of the token subject, so every scheduler route sits behind it.
func AuthRequired(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, ErrMissingHeader)
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abort(c, ErrHeaderFormat)
			return
		}

		claims, err := jwtManager.ParseAndValidate(parts[1])
		if err != nil || claims.UserID == "" {
			abort(c, ErrInvalidToken)
			return
		}

		// Store the actor into Gin context for later handlers.
		c.Set(userIDKey, claims.UserID)
		c.Set(userEmailKey, claims.Email)

		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	response.Error(c, err)
	c.Abort()
}
