package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)

	token, err := m.GenerateAccessToken("user-1", RolePastor)
	require.NoError(t, err)

	claims, err := m.ParseAndValidate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, RolePastor, claims.Role)
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)

	other, err := NewJWTManager("other-secret", time.Minute).GenerateAccessToken("user-1", RoleAdmin)
	require.NoError(t, err)
	_, err = m.ParseAndValidate(other)
	assert.Error(t, err, "wrong signing key")

	expired, err := NewJWTManager("secret", -time.Minute).GenerateAccessToken("user-1", RoleAdmin)
	require.NoError(t, err)
	_, err = m.ParseAndValidate(expired)
	assert.Error(t, err, "expired")

	unknownRole, err := m.GenerateAccessToken("user-1", Role("guest"))
	require.NoError(t, err)
	_, err = m.ParseAndValidate(unknownRole)
	assert.Error(t, err, "unknown role")

	_, err = m.ParseAndValidate("not-a-jwt")
	assert.Error(t, err)
}

func TestBcryptPasswordHasher(t *testing.T) {
	h := NewBcryptPasswordHasherWithCost(4)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NoError(t, h.Compare(hash, "correct horse"))
	assert.ErrorIs(t, h.Compare(hash, "battery staple"), ErrPasswordMismatch)

	// Out-of-range cost falls back to the default instead of failing.
	assert.Equal(t, 10, NewBcryptPasswordHasherWithCost(0).cost)
}

func TestRoleAndPrincipal(t *testing.T) {
	assert.True(t, RoleStaff.Valid())
	assert.False(t, Role("").Valid())
	assert.True(t, RoleAdmin.In(RolePastor, RoleAdmin))
	assert.False(t, RoleStaff.In(RolePastor, RoleAdmin))

	assert.True(t, Principal{UserID: "u", Role: RoleStaff}.Authenticated())
	assert.False(t, Principal{UserID: "u"}.Authenticated())
	assert.False(t, Principal{Role: RoleAdmin}.Authenticated())
}

func newTestEngine(m *JWTManager) *gin.Engine {
	r := gin.New()
	whoami := func(c *gin.Context) {
		p := GetPrincipal(c)
		c.JSON(http.StatusOK, gin.H{"user_id": p.UserID, "role": p.Role})
	}
	r.GET("/private", AuthRequired(m), whoami)
	r.GET("/pastoral", AuthRequired(m), RequireRole(RolePastor, RoleAdmin), whoami)
	r.GET("/optional", OptionalAuth(m), whoami)
	return r
}

func do(r *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)
	r := newTestEngine(m)

	staffToken, err := m.GenerateAccessToken("staff-1", RoleStaff)
	require.NoError(t, err)
	pastorToken, err := m.GenerateAccessToken("pastor-1", RolePastor)
	require.NoError(t, err)

	t.Run("AuthRequired", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(r, "/private", "").Code)
		assert.Equal(t, http.StatusUnauthorized, do(r, "/private", "Token abc").Code)
		assert.Equal(t, http.StatusUnauthorized, do(r, "/private", "Bearer garbage").Code)

		w := do(r, "/private", "Bearer "+staffToken)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":"staff-1","role":"staff"}`, w.Body.String())
	})

	t.Run("RequireRole", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, do(r, "/pastoral", "Bearer "+staffToken).Code)
		assert.Equal(t, http.StatusOK, do(r, "/pastoral", "Bearer "+pastorToken).Code)
	})

	t.Run("OptionalAuth", func(t *testing.T) {
		w := do(r, "/optional", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":"","role":""}`, w.Body.String())

		w = do(r, "/optional", "Bearer "+pastorToken)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":"pastor-1","role":"pastor"}`, w.Body.String())

		assert.Equal(t, http.StatusUnauthorized, do(r, "/optional", "Bearer garbage").Code)
	})
}
