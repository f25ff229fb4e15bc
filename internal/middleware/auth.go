// Package middleware contains the Gin middleware in front of the search API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKeyAPIKey is where the auth middleware stores the caller's key.
const ContextKeyAPIKey = "api_key"

// APIKeyAuth guards the public search API. With no keys configured the API
// is open and no key is stored in the context.
func APIKeyAuth(validKeys []string) gin.HandlerFunc {
	keys := keySet(validKeys)
	if len(keys) == 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return keyAuth(keys, "missing API key", http.StatusUnauthorized, "invalid API key")
}

// AdminKeyAuth guards the admin endpoints. With no admin keys configured
// every request is refused.
func AdminKeyAuth(adminKeys []string) gin.HandlerFunc {
	return keyAuth(keySet(adminKeys), "missing admin API key", http.StatusForbidden, "invalid admin API key")
}

func keyAuth(keys map[string]struct{}, missingMsg string, invalidStatus int, invalidMsg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := requestKey(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": missingMsg})
			return
		}

		if _, ok := keys[key]; !ok {
			c.AbortWithStatusJSON(invalidStatus, gin.H{"error": invalidMsg})
			return
		}

		c.Set(ContextKeyAPIKey, key)
		c.Next()
	}
}

// requestKey reads the X-API-Key header, then a bearer token.
func requestKey(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader("X-API-Key")); key != "" {
		return key
	}
	auth := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func keySet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}
