package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"constitution-gpt/internal/model"
	"constitution-gpt/internal/pkg/jwtutil"
	"constitution-gpt/internal/transport/http/response"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
	ContextRoleKey     = "role"
	ContextVerifiedKey = "is_verified"
)

type TokenVerifier interface {
	Verify(accessToken string) (*jwtutil.AccessClaims, bool)
}

// AuthJWT requires a valid bearer access token. Every failure yields the same
// response.
func AuthJWT(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing authorization header")
			return
		}

		const prefix = "Bearer "
		if len(authHeader) < len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid authorization scheme")
			return
		}

		token := strings.TrimSpace(authHeader[len(prefix):])
		claims, ok := verifier.Verify(token)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, response.CodeInvalidToken, "invalid or expired token")
			return
		}
		role, err := model.ParseRole(claims.Role)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, response.CodeInvalidToken, "invalid or expired token")
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextUsernameKey, claims.Username)
		c.Set(ContextRoleKey, role)
		c.Set(ContextVerifiedKey, claims.IsVerified)
		c.Next()
	}
}

// RequireRoles lets the request through only when the caller's role is in
// roles. It must run after AuthJWT.
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role, ok := RoleFrom(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
			return
		}
		if _, ok := allowed[role]; !ok {
			response.Abort(c, http.StatusForbidden, response.CodeForbidden, "insufficient permissions")
			return
		}
		c.Next()
	}
}

func UserIDFrom(c *gin.Context) (uint, bool) {
	v, exists := c.Get(ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

func RoleFrom(c *gin.Context) (model.Role, bool) {
	v, exists := c.Get(ContextRoleKey)
	if !exists {
		return "", false
	}
	role, ok := v.(model.Role)
	return role, ok
}
