package handler

import (
	"context"
	"net/http"
	"testing"

	"taxdesk/internal/middleware"
	"taxdesk/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRoleService struct {
	service.RoleService
	updatedPerms []string
}

func (s *stubRoleService) ListRoles(context.Context) ([]service.RoleResponse, error) {
	return []service.RoleResponse{{Name: "auditor"}}, nil
}

func (s *stubRoleService) UpdateRolePermissions(_ context.Context, id string, req service.UpdateRolePermissionsRequest) (*service.RoleResponse, error) {
	s.updatedPerms = req.PermissionIDs
	return &service.RoleResponse{ID: id, Name: "auditor"}, nil
}

func TestRoleHandler_PermissionChangeClearsCache(t *testing.T) {
	perms := staticPermissions{"auditor": {service.PermRolesManage}}
	auth := middleware.NewAuth(testJWT, false, perms)
	r := newRouter(NewRoleHandler(&stubRoleService{}, auth).RegisterRoutes)
	token := bearer(t, "u1", "auditor")

	w, _ := do(t, r, http.MethodGet, "/api/roles", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	perms["auditor"] = nil

	// still cached
	w, _ = do(t, r, http.MethodPut, "/api/roles/r1/permissions", token,
		map[string][]string{"permission_ids": {"p1"}})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/roles", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
