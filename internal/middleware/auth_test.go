package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taxdesk/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakePerms struct {
	byRole map[string][]string
	err    error
	calls  int
}

func (f *fakePerms) GetPermissionsByRoleName(_ context.Context, role string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	codes, ok := f.byRole[role]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return codes, nil
}

var jwtCfg = config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Hour, RefreshTokenTTL: 24 * time.Hour}

func token(t *testing.T, secret, sub, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newRouter(auth *Auth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/review", auth.RequirePermission("tax.review"), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	r.GET("/admin", auth.RequireRole("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/me", auth.Authenticated(), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func do(r http.Handler, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequirePermission(t *testing.T) {
	perms := &fakePerms{byRole: map[string][]string{
		"reviewer":  {"tax.read", "tax.review"},
		"treasurer": {"tax.read", "tax.write"},
	}}
	r := newRouter(NewAuth(jwtCfg, false, perms))

	tests := []struct {
		name   string
		bearer string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong secret", token(t, "other", "u1", "reviewer"), http.StatusUnauthorized},
		{"granted", token(t, jwtCfg.Secret, "u1", "reviewer"), http.StatusOK},
		{"not granted", token(t, jwtCfg.Secret, "u2", "treasurer"), http.StatusForbidden},
		{"unknown role", token(t, jwtCfg.Secret, "u3", "ghost"), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, "/review", tt.bearer)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	w := do(r, "/review", token(t, jwtCfg.Secret, "user-42", "reviewer"))
	assert.Equal(t, "user-42", w.Body.String())
}

func TestRequirePermission_LookupFailure(t *testing.T) {
	r := newRouter(NewAuth(jwtCfg, false, &fakePerms{err: errors.New("db down")}))
	w := do(r, "/review", token(t, jwtCfg.Secret, "u1", "reviewer"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPermissionCache(t *testing.T) {
	perms := &fakePerms{byRole: map[string][]string{"reviewer": {"tax.review"}}}
	auth := NewAuth(jwtCfg, false, perms)

	for i := 0; i < 3; i++ {
		assert.True(t, auth.HasPermission(context.Background(), "reviewer", "tax.review"))
	}
	assert.Equal(t, 1, perms.calls)

	auth.ClearPermissionCache("reviewer")
	assert.False(t, auth.HasPermission(context.Background(), "reviewer", "tax.write"))
	assert.Equal(t, 2, perms.calls)
}

func TestRequireRoleAndAuthenticated(t *testing.T) {
	r := newRouter(NewAuth(jwtCfg, false, &fakePerms{}))

	assert.Equal(t, http.StatusOK, do(r, "/admin", token(t, jwtCfg.Secret, "u1", "admin")).Code)
	assert.Equal(t, http.StatusForbidden, do(r, "/admin", token(t, jwtCfg.Secret, "u1", "reviewer")).Code)
	assert.Equal(t, http.StatusOK, do(r, "/me", token(t, jwtCfg.Secret, "u1", "reviewer")).Code)
}

func TestAccessTokenCookie(t *testing.T) {
	r := newRouter(NewAuth(jwtCfg, false, &fakePerms{}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token(t, jwtCfg.Secret, "u1", "admin")})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetTokenCookies_Secure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	NewAuth(jwtCfg, true, &fakePerms{}).SetTokenCookies(c, "a", "r")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, ck := range cookies {
		assert.True(t, ck.Secure)
		assert.True(t, ck.HttpOnly)
		assert.Equal(t, http.SameSiteNoneMode, ck.SameSite)
	}
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(zerolog.New(&buf)))
	r.GET("/health", func(c *gin.Context) {
		zerolog.Ctx(c.Request.Context()).Info().Msg("inside")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	for _, line := range lines {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(line, &entry))
		assert.Equal(t, "req-123", entry["request_id"])
	}
}
