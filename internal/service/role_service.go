package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"taxdesk/internal/model"
	"taxdesk/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"` // Permission UUIDs
}

type UpdateRoleRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateRolePermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids" binding:"required"`
}

type RoleResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	IsSystem    bool                 `json:"is_system"`
	Permissions []PermissionResponse `json:"permissions"`
	CreatedAt   string               `json:"created_at"`
}

type PermissionResponse struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// Permission codes checked by the HTTP layer.
const (
	PermDashboardRead = "dashboard.read"
	PermTaxRead       = "tax.read"
	PermTaxWrite      = "tax.write"
	PermTaxReview     = "tax.review"
	PermTaxTypesWrite = "tax_types.write"
	PermUsersRead     = "users.read"
	PermUsersWrite    = "users.write"
	PermUsersDelete   = "users.delete"
	PermAuditRead     = "audit.read"
	PermRolesManage   = "roles.manage"
)

// System role names.
const (
	RoleAdmin     = "admin"
	RoleReviewer  = "reviewer"
	RoleTreasurer = "treasurer"
)

var defaultPermissions = []model.Permission{
	{Code: PermDashboardRead, Name: "Lihat Dasbor & Ringkasan Pajak", Group: "dashboard"},
	{Code: PermTaxRead, Name: "Lihat Perhitungan & Catatan Pajak", Group: "tax"},
	{Code: PermTaxWrite, Name: "Catat Transaksi Pajak", Group: "tax"},
	{Code: PermTaxReview, Name: "Tinjau Kepatuhan Pajak", Group: "tax"},
	{Code: PermTaxTypesWrite, Name: "Kelola Jenis Transaksi", Group: "tax"},
	{Code: PermUsersRead, Name: "Lihat Pengguna", Group: "users"},
	{Code: PermUsersWrite, Name: "Kelola Pengguna", Group: "users"},
	{Code: PermUsersDelete, Name: "Hapus Pengguna", Group: "users"},
	{Code: PermAuditRead, Name: "Lihat Riwayat Aktivitas", Group: "audit"},
	{Code: PermRolesManage, Name: "Kelola Peran & Hak Akses", Group: "roles"},
}

type roleDefinition struct {
	Name        string
	Description string
	PermCodes   []string
}

var defaultRoles = []roleDefinition{
	{
		Name:        RoleAdmin,
		Description: "Administrator, akses penuh",
		PermCodes: []string{
			PermDashboardRead, PermTaxRead, PermTaxWrite, PermTaxReview, PermTaxTypesWrite,
			PermUsersRead, PermUsersWrite, PermUsersDelete, PermAuditRead, PermRolesManage,
		},
	},
	{
		Name:        RoleReviewer,
		Description: "Pemeriksa, meninjau kepatuhan dan membaca laporan",
		PermCodes:   []string{PermDashboardRead, PermTaxRead, PermTaxReview, PermAuditRead},
	},
	{
		Name:        RoleTreasurer,
		Description: "Bendahara, menghitung dan mencatat pemotongan pajak",
		PermCodes:   []string{PermDashboardRead, PermTaxRead, PermTaxWrite},
	},
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	GetRole(ctx context.Context, id string) (*RoleResponse, error)
	CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error)
	UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*RoleResponse, error)
	DeleteRole(ctx context.Context, id string) error
	ListPermissions(ctx context.Context) ([]PermissionResponse, error)
	UpdateRolePermissions(ctx context.Context, roleID string, req UpdateRolePermissionsRequest) (*RoleResponse, error)
	GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error)
	SeedDefaultRolesAndPermissions(ctx context.Context) error
}

type roleService struct {
	repo      repository.RoleRepository
	txManager repository.TransactionManager
}

func NewRoleService(repo repository.RoleRepository, txManager repository.TransactionManager) RoleService {
	return &roleService{repo: repo, txManager: txManager}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) GetRole(ctx context.Context, id string) (*RoleResponse, error) {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, validationError("invalid role id %q", id)
	}

	role, err := s.repo.FindByIDWithPermissions(ctx, roleID)
	if err != nil {
		return nil, notFoundOr(err, "role")
	}

	resp := toRoleResponse(*role)
	return &resp, nil
}

func (s *roleService) CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error) {
	if _, err := s.repo.FindByName(ctx, req.Name); err == nil {
		return nil, fmt.Errorf("role %q: %w", req.Name, ErrConflict)
	}

	permIDs, err := parseUUIDs(req.Permissions, "permission")
	if err != nil {
		return nil, err
	}

	role := model.Role{
		Name:        req.Name,
		Description: req.Description,
		IsSystem:    false,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, &role); err != nil {
			return fmt.Errorf("failed to create role: %w", err)
		}
		if len(permIDs) > 0 {
			if err := s.repo.UpdatePermissions(txCtx, role.ID, permIDs); err != nil {
				return fmt.Errorf("failed to assign permissions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetRole(ctx, role.ID.String())
}

func (s *roleService) UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*RoleResponse, error) {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, validationError("invalid role id %q", id)
	}

	role, err := s.repo.FindByID(ctx, roleID)
	if err != nil {
		return nil, notFoundOr(err, "role")
	}
	if role.IsSystem && req.Name != role.Name {
		return nil, validationError("cannot rename system role %q", role.Name)
	}

	role.Name = req.Name
	role.Description = req.Description

	if err := s.repo.Update(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	return s.GetRole(ctx, id)
}

func (s *roleService) DeleteRole(ctx context.Context, id string) error {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return validationError("invalid role id %q", id)
	}

	role, err := s.repo.FindByID(ctx, roleID)
	if err != nil {
		return notFoundOr(err, "role")
	}

	if role.IsSystem {
		return validationError("cannot delete system role %q", role.Name)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Clear associations before deleting
		if err := s.repo.UpdatePermissions(txCtx, role.ID, nil); err != nil {
			return fmt.Errorf("failed to clear permissions: %w", err)
		}
		if err := s.repo.Delete(txCtx, role.ID); err != nil {
			return fmt.Errorf("failed to delete role: %w", err)
		}
		return nil
	})
}

func (s *roleService) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, toPermissionResponse(p))
	}
	return res, nil
}

func (s *roleService) UpdateRolePermissions(ctx context.Context, roleID string, req UpdateRolePermissionsRequest) (*RoleResponse, error) {
	id, err := uuid.Parse(roleID)
	if err != nil {
		return nil, validationError("invalid role id %q", roleID)
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFoundOr(err, "role")
	}

	permIDs, err := parseUUIDs(req.PermissionIDs, "permission")
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdatePermissions(ctx, id, permIDs); err != nil {
		return nil, fmt.Errorf("failed to update permissions: %w", err)
	}

	return s.GetRole(ctx, roleID)
}

func (s *roleService) GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error) {
	codes, err := s.repo.GetPermissionsByRoleName(ctx, roleName)
	if err != nil {
		return nil, notFoundOr(err, "role "+roleName)
	}
	sort.Strings(codes)
	return codes, nil
}

// SeedDefaultRolesAndPermissions creates the default permissions and system roles if not already present.
// Existing system roles get their permission set reset to the defaults.
func (s *roleService) SeedDefaultRolesAndPermissions(ctx context.Context) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		idByCode := make(map[string]uuid.UUID, len(defaultPermissions))
		for _, def := range defaultPermissions {
			p := def
			if err := s.repo.UpsertPermission(txCtx, &p); err != nil {
				return fmt.Errorf("failed to seed permission '%s': %w", p.Code, err)
			}
			idByCode[p.Code] = p.ID
		}

		for _, def := range defaultRoles {
			role, err := s.repo.FindByName(txCtx, def.Name)
			if err != nil {
				role = &model.Role{Name: def.Name, Description: def.Description, IsSystem: true}
				if err := s.repo.Create(txCtx, role); err != nil {
					return fmt.Errorf("failed to seed role '%s': %w", def.Name, err)
				}
			}

			permIDs := make([]uuid.UUID, 0, len(def.PermCodes))
			for _, code := range def.PermCodes {
				if id, ok := idByCode[code]; ok {
					permIDs = append(permIDs, id)
				}
			}
			if err := s.repo.UpdatePermissions(txCtx, role.ID, permIDs); err != nil {
				return fmt.Errorf("failed to assign permissions to role '%s': %w", def.Name, err)
			}
		}
		return nil
	})
}

// --- Helpers ---

func parseUUIDs(raw []string, what string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, validationError("invalid %s id %q", what, r)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, toPermissionResponse(p))
	}

	return RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		Permissions: perms,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}

func toPermissionResponse(p model.Permission) PermissionResponse {
	return PermissionResponse{
		ID:    p.ID.String(),
		Code:  p.Code,
		Name:  p.Name,
		Group: p.Group,
	}
}
