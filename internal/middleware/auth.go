package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"taxdesk/pkg/config"
	"taxdesk/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// Context keys set by the auth middleware.
const (
	ContextUserID   = "userID"
	ContextUserRole = "userRole"
)

// PermissionLookup returns the permission codes granted to a role.
type PermissionLookup interface {
	GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error)
}

// permCacheEntry stores cached permission codes for a role with TTL
type permCacheEntry struct {
	codes     []string
	expiresAt time.Time
}

// Auth validates access tokens and enforces role and permission checks.
type Auth struct {
	secret        []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	secureCookies bool
	perms         PermissionLookup

	permCache    sync.Map // roleName -> permCacheEntry
	permCacheTTL time.Duration
	now          func() time.Time
}

// NewAuth builds the middleware set. secureCookies switches cookies to SameSite=None; Secure.
func NewAuth(cfg config.JWTConfig, secureCookies bool, perms PermissionLookup) *Auth {
	return &Auth{
		secret:        []byte(cfg.Secret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		secureCookies: secureCookies,
		perms:         perms,
		permCacheTTL:  5 * time.Minute,
		now:           time.Now,
	}
}

// Secret returns the HMAC key, shared with the websocket handshake.
func (a *Auth) Secret() []byte { return a.secret }

func (a *Auth) cookieMode() (http.SameSite, bool) {
	if a.secureCookies {
		return http.SameSiteNoneMode, true
	}
	return http.SameSiteLaxMode, false
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func (a *Auth) SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	sameSite, secure := a.cookieMode()
	c.SetSameSite(sameSite)
	c.SetCookie("access_token", accessToken, int(a.accessTTL.Seconds()), "/", "", secure, true)
	c.SetCookie("refresh_token", refreshToken, int(a.refreshTTL.Seconds()), "/", "", secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func (a *Auth) ClearTokenCookies(c *gin.Context) {
	sameSite, secure := a.cookieMode()
	c.SetSameSite(sameSite)
	c.SetCookie("access_token", "", -1, "/", "", secure, true)
	c.SetCookie("refresh_token", "", -1, "/", "", secure, true)
}

// authenticate parses the token from the cookie or the Authorization header and
// stores the subject and role on the context. It aborts and returns false on failure.
func (a *Auth) authenticate(c *gin.Context) (string, bool) {
	// Try cookie first, fallback to Authorization header
	tokenString, cookieErr := c.Cookie("access_token")
	if cookieErr != nil || tokenString == "" {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return "", false
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
			return "", false
		}
		tokenString = parts[1]
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
		return "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
		return "", false
	}

	userRole, ok := claims["role"].(string)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Role not found in token"))
		return "", false
	}

	sub, _ := claims["sub"].(string)
	c.Set(ContextUserID, sub)
	c.Set(ContextUserRole, userRole)
	return userRole, true
}

// Authenticated accepts any valid token.
func (a *Auth) Authenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := a.authenticate(c); !ok {
			return
		}
		c.Next()
	}
}

// RequireRole validates the JWT and checks the role against allowedRoles
func (a *Auth) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, ok := a.authenticate(c)
		if !ok {
			return
		}

		for _, role := range allowedRoles {
			if userRole == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}

// RequirePermission validates the JWT and checks the role holds every required permission code
func (a *Auth) RequirePermission(requiredPerms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, ok := a.authenticate(c)
		if !ok {
			return
		}

		userPerms, err := a.PermissionsForRole(c.Request.Context(), userRole)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify permissions"))
			return
		}

		permSet := make(map[string]bool, len(userPerms))
		for _, p := range userPerms {
			permSet[p] = true
		}

		for _, required := range requiredPerms {
			if !permSet[required] {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+required+"'"))
				return
			}
		}

		c.Next()
	}
}

// HasPermission reports whether role holds code. Lookup errors deny.
func (a *Auth) HasPermission(ctx context.Context, role, code string) bool {
	perms, err := a.PermissionsForRole(ctx, role)
	if err != nil {
		return false
	}
	for _, p := range perms {
		if p == code {
			return true
		}
	}
	return false
}

// PermissionsForRole returns cached or freshly looked-up permission codes. An unknown role has none.
func (a *Auth) PermissionsForRole(ctx context.Context, roleName string) ([]string, error) {
	if entry, ok := a.permCache.Load(roleName); ok {
		cached := entry.(permCacheEntry)
		if a.now().Before(cached.expiresAt) {
			return cached.codes, nil
		}
	}

	codes, err := a.perms.GetPermissionsByRoleName(ctx, roleName)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		codes = []string{}
	}

	a.permCache.Store(roleName, permCacheEntry{
		codes:     codes,
		expiresAt: a.now().Add(a.permCacheTTL),
	})
	return codes, nil
}

// ClearPermissionCache removes cached permissions for a specific role (or all roles if empty)
func (a *Auth) ClearPermissionCache(roleName string) {
	if roleName == "" {
		a.permCache.Range(func(key, _ interface{}) bool {
			a.permCache.Delete(key)
			return true
		})
		return
	}
	a.permCache.Delete(roleName)
}

// UserID returns the authenticated subject, or "".
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
