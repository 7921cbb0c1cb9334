package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"taxdesk/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTypeService struct {
	service.TransactionTypeService

	listCategory string
	listActive   bool
	created      service.CreateTransactionTypeRequest
	createdBy    string
	createErr    error
	deletedID    string
}

func (s *stubTypeService) ListTypes(_ context.Context, category string, activeOnly bool) ([]service.TransactionTypeResponse, error) {
	s.listCategory, s.listActive = category, activeOnly
	return []service.TransactionTypeResponse{{ID: "t1", Name: "Pembelian Barang", TaxpayerCategory: "BUSINESS", IsActive: true}}, nil
}

func (s *stubTypeService) CreateType(_ context.Context, userID string, req service.CreateTransactionTypeRequest) (*service.TransactionTypeResponse, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created, s.createdBy = req, userID
	return &service.TransactionTypeResponse{ID: "t2", Name: req.Name, TaxpayerCategory: req.TaxpayerCategory}, nil
}

func (s *stubTypeService) DeleteType(_ context.Context, id, _ string) error {
	s.deletedID = id
	return nil
}

func newTypeRouter(svc service.TransactionTypeService) http.Handler {
	return newRouter(NewTransactionTypeHandler(svc, newTestAuth()).RegisterRoutes)
}

func TestTransactionTypeHandler_List(t *testing.T) {
	svc := &stubTypeService{}
	r := newTypeRouter(svc)

	w, env := do(t, r, http.MethodGet, "/api/transaction-types?taxpayer_category=BUSINESS&active=true",
		bearer(t, "u1", "treasurer"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var types []service.TransactionTypeResponse
	require.NoError(t, json.Unmarshal(env.Data, &types))
	assert.Len(t, types, 1)
	assert.Equal(t, "BUSINESS", svc.listCategory)
	assert.True(t, svc.listActive)
}

func TestTransactionTypeHandler_WriteNeedsPermission(t *testing.T) {
	svc := &stubTypeService{}
	r := newTypeRouter(svc)

	body := map[string]interface{}{"name": "Jasa Kebersihan", "taxpayer_category": "BUSINESS"}
	w, _ := do(t, r, http.MethodPost, "/api/transaction-types", bearer(t, "u1", "treasurer"), body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/transaction-types", bearer(t, "adm", "admin"), body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Jasa Kebersihan", svc.created.Name)
	assert.Equal(t, "adm", svc.createdBy)
}

func TestTransactionTypeHandler_CreateErrors(t *testing.T) {
	svc := &stubTypeService{}
	r := newTypeRouter(svc)

	w, _ := do(t, r, http.MethodPost, "/api/transaction-types", bearer(t, "adm", "admin"),
		map[string]interface{}{"name": "X", "taxpayer_category": "GOVERNMENT"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.createErr = fmt.Errorf("type %q: %w", "X", service.ErrConflict)
	w, env := do(t, r, http.MethodPost, "/api/transaction-types", bearer(t, "adm", "admin"),
		map[string]interface{}{"name": "X", "taxpayer_category": "BUSINESS"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, env.Error, "X")
}

func TestTransactionTypeHandler_Delete(t *testing.T) {
	svc := &stubTypeService{}
	r := newTypeRouter(svc)

	w, _ := do(t, r, http.MethodDelete, "/api/transaction-types/t1", bearer(t, "adm", "admin"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t1", svc.deletedID)
}
