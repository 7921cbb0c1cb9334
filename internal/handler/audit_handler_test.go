package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"taxdesk/internal/service"
	"taxdesk/pkg/response"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuditService struct {
	action      string
	page, limit int
}

func (s *stubAuditService) GetAuditLogs(_ context.Context, action string, page, limit int) ([]service.AuditLogResponse, int64, error) {
	s.action, s.page, s.limit = action, page, limit
	return []service.AuditLogResponse{{ID: "a1", Action: action}}, 45, nil
}

func TestAuditHandler_GetAuditLogs(t *testing.T) {
	svc := &stubAuditService{}
	r := newRouter(NewAuditHandler(svc, newTestAuth()).RegisterRoutes)

	w, _ := do(t, r, http.MethodGet, "/api/audit-logs", bearer(t, "u1", "treasurer"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := do(t, r, http.MethodGet, "/api/audit-logs?action=CREATE_TAX_RECORD&page=2&limit=20",
		bearer(t, "adm", "admin"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var logs []service.AuditLogResponse
	require.NoError(t, json.Unmarshal(env.Data, &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "CREATE_TAX_RECORD", svc.action)
	require.NotNil(t, env.Meta)
	assert.Equal(t, response.Meta{Page: 2, Limit: 20, Total: 45, TotalPages: 3}, *env.Meta)
}
