package http

import (
	"github.com/gin-gonic/gin"

	"github.com/yanqian/careops/internal/domain/auth"
)

const authClaimsKey = "auth_claims"

func setClaims(c *gin.Context, claims auth.Claims) {
	c.Set(authClaimsKey, claims)
}

// subjectOf names the caller for audit logs; anonymous when auth is disabled.
func subjectOf(c *gin.Context) string {
	value, ok := c.Get(authClaimsKey)
	if !ok {
		return "anonymous"
	}
	claims, ok := value.(auth.Claims)
	if !ok || claims.Subject == "" {
		return "anonymous"
	}
	return claims.Subject
}
