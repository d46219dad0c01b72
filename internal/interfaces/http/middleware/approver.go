package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/knjigovodja/backend/internal/infrastructure/auth"
	"github.com/knjigovodja/backend/internal/interfaces/http/dto"
)

// Approver context keys
const (
	ApproverIDKey   = "approver_id"
	ApproverNameKey = "approver_name"
	AuthHeaderKey   = "Authorization"
	BearerPrefix    = "Bearer "
)

// ApproverIdentity resolves the approver behind a request. A Bearer token
// is validated against the JWT service; without a configured service the
// X-Approver header carries the identity, which is acceptable only for
// development and single-office installations behind their own auth.
func ApproverIdentity(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)

		if authHeader != "" && jwtService != nil {
			if !strings.HasPrefix(authHeader, BearerPrefix) {
				abortUnauthorized(c, dto.ErrCodeUnauthorized, "Invalid authorization header format")
				return
			}
			tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
			claims, err := jwtService.ValidateToken(tokenString)
			if err != nil {
				code := dto.ErrCodeUnauthorized
				if errors.Is(err, auth.ErrExpiredToken) {
					code = dto.ErrCodeTokenExpired
				}
				abortUnauthorized(c, code, "Token validation failed")
				return
			}
			c.Set(ApproverIDKey, claims.ApproverID)
			c.Set(ApproverNameKey, claims.Name)
			c.Next()
			return
		}

		if approver := c.GetHeader("X-Approver"); approver != "" {
			c.Set(ApproverIDKey, approver)
		}
		c.Next()
	}
}

// GetApproverID returns the approver identity from the context, or empty
func GetApproverID(c *gin.Context) string {
	return c.GetString(ApproverIDKey)
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, message))
}
