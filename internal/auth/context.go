package auth

import "github.com/gin-gonic/gin"

const (
	ctxUserID = "userID"
	ctxRole   = "userRole"
)

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// GetRole returns the authenticated user's role or empty string.
func GetRole(c *gin.Context) Role {
	if v, ok := c.Get(ctxRole); ok {
		if r, ok := v.(Role); ok {
			return r
		}
	}
	return ""
}

// GetPrincipal returns the caller, which is the zero Principal for anonymous requests.
func GetPrincipal(c *gin.Context) Principal {
	return Principal{UserID: GetUserID(c), Role: GetRole(c)}
}

func setPrincipal(c *gin.Context, claims *Claims) {
	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxRole, claims.Role)
}
