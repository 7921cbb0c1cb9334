package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taxdesk/internal/model"
	"taxdesk/internal/repository"
	"taxdesk/internal/taxcalc"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateTransactionTypeRequest struct {
	Name             string `json:"name" binding:"required"`
	TaxpayerCategory string `json:"taxpayer_category" binding:"required,oneof=INDIVIDUAL BUSINESS"`
	Description      string `json:"description"`
	SortOrder        int    `json:"sort_order"`
}

type UpdateTransactionTypeRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
	SortOrder   *int   `json:"sort_order"`
}

type TransactionTypeResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	TaxpayerCategory string `json:"taxpayer_category"`
	Description      string `json:"description"`
	IsActive         bool   `json:"is_active"`
	SortOrder        int    `json:"sort_order"`
	CreatedAt        string `json:"created_at"`
}

// --- Interface ---

type TransactionTypeService interface {
	ListTypes(ctx context.Context, category string, activeOnly bool) ([]TransactionTypeResponse, error)
	GetType(ctx context.Context, id string) (*TransactionTypeResponse, error)
	CreateType(ctx context.Context, userID string, req CreateTransactionTypeRequest) (*TransactionTypeResponse, error)
	UpdateType(ctx context.Context, id, userID string, req UpdateTransactionTypeRequest) (*TransactionTypeResponse, error)
	DeleteType(ctx context.Context, id, userID string) error
	SeedDefaults(ctx context.Context) (int, error)
}

type transactionTypeService struct {
	repo  repository.TransactionTypeRepository
	audit repository.AuditRepository
}

func NewTransactionTypeService(repo repository.TransactionTypeRepository, audit repository.AuditRepository) TransactionTypeService {
	return &transactionTypeService{repo: repo, audit: audit}
}

// DefaultTransactionTypes is the catalogue offered on a fresh install.
var DefaultTransactionTypes = []model.TransactionType{
	{Name: "Honor (Narsum, Juri, dll)", TaxpayerCategory: model.CategoryIndividual, SortOrder: 10},
	{Name: taxcalc.TypeDailyLaborer, TaxpayerCategory: model.CategoryIndividual, SortOrder: 20},
	{Name: taxcalc.TypeCompetitionPrize, TaxpayerCategory: model.CategoryIndividual, SortOrder: 30},
	{Name: taxcalc.TypeMeals, TaxpayerCategory: model.CategoryIndividual, SortOrder: 40},
	{Name: "Sewa Kendaraan", TaxpayerCategory: model.CategoryIndividual, SortOrder: 50},
	{Name: "Sewa Gedung", TaxpayerCategory: model.CategoryIndividual, SortOrder: 60},
	{Name: "Fotokopi dan Penjilidan", TaxpayerCategory: model.CategoryIndividual, SortOrder: 70},
	{Name: "Jasa Lainnya", TaxpayerCategory: model.CategoryIndividual, SortOrder: 80},

	{Name: taxcalc.TypeConstructionConsul, TaxpayerCategory: model.CategoryBusiness, SortOrder: 10},
	{Name: "Jasa Pelaksana Konstruksi", TaxpayerCategory: model.CategoryBusiness, SortOrder: 20},
	{Name: taxcalc.TypeGoodsPurchase, TaxpayerCategory: model.CategoryBusiness, SortOrder: 30},
	{Name: taxcalc.TypeInsurancePremium, TaxpayerCategory: model.CategoryBusiness, SortOrder: 40},
	{Name: taxcalc.TypeMeals, TaxpayerCategory: model.CategoryBusiness, SortOrder: 50},
	{Name: "Jasa Event Organizer", TaxpayerCategory: model.CategoryBusiness, SortOrder: 60},
	{Name: "Sewa Gedung", TaxpayerCategory: model.CategoryBusiness, SortOrder: 70},
	{Name: "Pemeliharaan Gedung", TaxpayerCategory: model.CategoryBusiness, SortOrder: 80},
	{Name: "Jasa Pertunjukan Seni", TaxpayerCategory: model.CategoryBusiness, SortOrder: 90},
}

// --- Implementation ---

func (s *transactionTypeService) ListTypes(ctx context.Context, category string, activeOnly bool) ([]TransactionTypeResponse, error) {
	if category != "" && !taxcalc.TaxpayerCategory(category).Valid() {
		return nil, validationError("unknown taxpayer_category %q", category)
	}

	types, err := s.repo.List(ctx, category, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction types: %w", err)
	}

	res := make([]TransactionTypeResponse, 0, len(types))
	for _, t := range types {
		res = append(res, toTransactionTypeResponse(t))
	}
	return res, nil
}

func (s *transactionTypeService) GetType(ctx context.Context, id string) (*TransactionTypeResponse, error) {
	t, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toTransactionTypeResponse(*t)
	return &resp, nil
}

func (s *transactionTypeService) CreateType(ctx context.Context, userID string, req CreateTransactionTypeRequest) (*TransactionTypeResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationError("name is required")
	}
	if !taxcalc.TaxpayerCategory(req.TaxpayerCategory).Valid() {
		return nil, validationError("unknown taxpayer_category %q", req.TaxpayerCategory)
	}
	if err := s.ensureUnique(ctx, req.TaxpayerCategory, name, nil); err != nil {
		return nil, err
	}

	t := model.TransactionType{
		Name:             name,
		TaxpayerCategory: req.TaxpayerCategory,
		Description:      req.Description,
		IsActive:         true,
		SortOrder:        req.SortOrder,
	}
	if err := s.repo.Create(ctx, &t); err != nil {
		return nil, fmt.Errorf("failed to create transaction type: %w", err)
	}

	s.writeAuditLog(ctx, userID, model.ActionCreateTransactionType, t.ID.String(), t.Name, req)

	resp := toTransactionTypeResponse(t)
	return &resp, nil
}

func (s *transactionTypeService) UpdateType(ctx context.Context, id, userID string, req UpdateTransactionTypeRequest) (*TransactionTypeResponse, error) {
	t, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationError("name is required")
	}
	if name != t.Name {
		if err := s.ensureUnique(ctx, t.TaxpayerCategory, name, &t.ID); err != nil {
			return nil, err
		}
	}

	t.Name = name
	t.Description = req.Description
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	if req.SortOrder != nil {
		t.SortOrder = *req.SortOrder
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update transaction type: %w", err)
	}

	s.writeAuditLog(ctx, userID, model.ActionUpdateTransactionType, t.ID.String(), t.Name, req)

	resp := toTransactionTypeResponse(*t)
	return &resp, nil
}

func (s *transactionTypeService) DeleteType(ctx context.Context, id, userID string) error {
	t, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, t.ID); err != nil {
		return fmt.Errorf("failed to delete transaction type: %w", err)
	}

	s.writeAuditLog(ctx, userID, model.ActionDeleteTransactionType, t.ID.String(), t.Name, map[string]string{"deleted_id": id})
	return nil
}

// SeedDefaults inserts the missing DefaultTransactionTypes and returns how many were created.
func (s *transactionTypeService) SeedDefaults(ctx context.Context) (int, error) {
	created := 0
	for _, def := range DefaultTransactionTypes {
		_, err := s.repo.FindByName(ctx, def.TaxpayerCategory, def.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, fmt.Errorf("failed to look up transaction type %q: %w", def.Name, err)
		}

		t := def
		t.IsActive = true
		if err := s.repo.Create(ctx, &t); err != nil {
			return created, fmt.Errorf("failed to seed transaction type %q: %w", def.Name, err)
		}
		created++
	}
	return created, nil
}

// --- Helpers ---

func (s *transactionTypeService) find(ctx context.Context, id string) (*model.TransactionType, error) {
	typeID, err := uuid.Parse(id)
	if err != nil {
		return nil, validationError("invalid transaction type id %q", id)
	}
	t, err := s.repo.FindByID(ctx, typeID)
	if err != nil {
		return nil, notFoundOr(err, "transaction type")
	}
	return t, nil
}

func (s *transactionTypeService) ensureUnique(ctx context.Context, category, name string, self *uuid.UUID) error {
	existing, err := s.repo.FindByName(ctx, category, name)
	switch {
	case err == nil:
		if self != nil && existing.ID == *self {
			return nil
		}
		return fmt.Errorf("transaction type %q for %s: %w", name, category, ErrConflict)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return fmt.Errorf("failed to check transaction type name: %w", err)
	}
}

// writeAuditLog is best-effort: a failed audit write never fails the catalogue edit.
func (s *transactionTypeService) writeAuditLog(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
	if err := s.audit.Log(ctx, newAuditLog(userID, action, entityID, entityName, details)); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("action", action).Msg("audit log write failed")
	}
}

func toTransactionTypeResponse(t model.TransactionType) TransactionTypeResponse {
	return TransactionTypeResponse{
		ID:               t.ID.String(),
		Name:             t.Name,
		TaxpayerCategory: t.TaxpayerCategory,
		Description:      t.Description,
		IsActive:         t.IsActive,
		SortOrder:        t.SortOrder,
		CreatedAt:        t.CreatedAt.Format(time.RFC3339),
	}
}
