package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taxdesk/internal/middleware"
	"taxdesk/internal/service"
	"taxdesk/pkg/config"
	"taxdesk/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testJWT = config.JWTConfig{
	Secret:          "handler-secret",
	AccessTokenTTL:  time.Hour,
	RefreshTokenTTL: 24 * time.Hour,
}

type staticPermissions map[string][]string

func (s staticPermissions) GetPermissionsByRoleName(_ context.Context, role string) ([]string, error) {
	return s[role], nil
}

func newTestAuth() *middleware.Auth {
	return middleware.NewAuth(testJWT, false, staticPermissions{
		service.RoleTreasurer: {service.PermTaxRead, service.PermTaxWrite, service.PermDashboardRead},
		service.RoleReviewer:  {service.PermTaxRead, service.PermTaxReview},
		service.RoleAdmin: {
			service.PermUsersRead, service.PermUsersWrite, service.PermUsersDelete, service.PermRolesManage,
			service.PermTaxRead, service.PermTaxTypesWrite, service.PermAuditRead,
		},
	})
}

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(testJWT.Secret))
	require.NoError(t, err)
	return "Bearer " + s
}

func newRouter(register func(*gin.RouterGroup)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	register(r.Group(""))
	return r
}

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Meta       *response.Meta  `json:"meta"`
	Error      string          `json:"error"`
}

func do(t *testing.T, r http.Handler, method, path, auth string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}
