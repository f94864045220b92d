package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
	"github.com/noah-isme/lesson-planner-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// TokenValidator verifies a raw session token.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid session token. A missing or empty
// bearer value is Unauthenticated; anything else that fails is InvalidToken.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			response.Abort(c, appErrors.ErrUnauthenticated)
			return
		}

		scheme, token, found := strings.Cut(header, " ")
		if !found {
			if strings.EqualFold(scheme, "Bearer") {
				response.Abort(c, appErrors.ErrUnauthenticated)
				return
			}
			response.Abort(c, appErrors.Clone(appErrors.ErrInvalidToken, "invalid authorization header"))
			return
		}
		if !strings.EqualFold(scheme, "Bearer") {
			response.Abort(c, appErrors.Clone(appErrors.ErrInvalidToken, "invalid authorization header"))
			return
		}

		token = strings.TrimSpace(token)
		if token == "" {
			response.Abort(c, appErrors.ErrUnauthenticated)
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			response.Abort(c, err)
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// CurrentUser returns the claims stored by JWT, if any.
func CurrentUser(c *gin.Context) (*models.JWTClaims, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok && claims != nil
}
