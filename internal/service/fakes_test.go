package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"taxdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory repositories. They honour the gorm not-found convention so the
// services' error translation is exercised.

type fakeTxManager struct {
	calls int
}

func (f *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeRecordRepo struct {
	mu        sync.Mutex
	records   map[uuid.UUID]*model.TaxRecord
	createErr error
	summary   model.TaxSummaryResponse
	filters   []model.TaxRecordFilter
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: map[uuid.UUID]*model.TaxRecord{}}
}

func (f *fakeRecordRepo) Create(_ context.Context, r *model.TaxRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.CreatedAt = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	cp := *r
	f.records[r.ID] = &cp
	return nil
}

func (f *fakeRecordRepo) Update(_ context.Context, r *model.TaxRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	f.records[r.ID] = &cp
	return nil
}

func (f *fakeRecordRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, id)
	return nil
}

func (f *fakeRecordRepo) FindByID(_ context.Context, id uuid.UUID) (*model.TaxRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRecordRepo) List(_ context.Context, filter model.TaxRecordFilter, page, limit int) ([]model.TaxRecord, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	out := make([]model.TaxRecord, 0, len(f.records))
	for _, r := range f.records {
		if filter.TaxpayerCategory != "" && r.TaxpayerCategory != filter.TaxpayerCategory {
			continue
		}
		if filter.ComplianceStatus != "" && r.ComplianceStatus != filter.ComplianceStatus {
			continue
		}
		if filter.TransactionType != "" && !strings.Contains(r.TransactionType, filter.TransactionType) {
			continue
		}
		out = append(out, *r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRecordRepo) Summarize(_ context.Context, filter model.TaxRecordFilter) (model.TaxSummaryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	return f.summary, nil
}

type fakeTypeRepo struct {
	types   map[uuid.UUID]*model.TransactionType
	findErr error
}

func newFakeTypeRepo(types ...model.TransactionType) *fakeTypeRepo {
	f := &fakeTypeRepo{types: map[uuid.UUID]*model.TransactionType{}}
	for i := range types {
		t := types[i]
		_ = f.Create(context.Background(), &t)
	}
	return f
}

func (f *fakeTypeRepo) Create(_ context.Context, t *model.TransactionType) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	cp := *t
	f.types[t.ID] = &cp
	return nil
}

func (f *fakeTypeRepo) Update(_ context.Context, t *model.TransactionType) error {
	cp := *t
	f.types[t.ID] = &cp
	return nil
}

func (f *fakeTypeRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.types, id)
	return nil
}

func (f *fakeTypeRepo) FindByID(_ context.Context, id uuid.UUID) (*model.TransactionType, error) {
	t, ok := f.types[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTypeRepo) FindByName(_ context.Context, category, name string) (*model.TransactionType, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, t := range f.types {
		if t.TaxpayerCategory == category && t.Name == name {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTypeRepo) List(_ context.Context, category string, activeOnly bool) ([]model.TransactionType, error) {
	out := make([]model.TransactionType, 0, len(f.types))
	for _, t := range f.types {
		if category != "" && t.TaxpayerCategory != category {
			continue
		}
		if activeOnly && !t.IsActive {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
	err     error
}

func (f *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) List(_ context.Context, action string, page, limit int) ([]model.AuditLog, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AuditLog
	for _, e := range f.entries {
		if action == "" || e.Action == action {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeAuditRepo) ListByEntity(_ context.Context, entityID string) ([]model.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AuditLog
	for _, e := range f.entries {
		if e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAuditRepo) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

type fakeUserRepo struct {
	users  map[string]*model.User
	tokens map[string]*model.RefreshToken
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}, tokens: map[string]*model.RefreshToken{}}
}

func (f *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	f.users[u.ID.String()] = &cp
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) find(match func(*model.User) bool) (*model.User, error) {
	for _, u := range f.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Email == email })
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Username == username })
}

func (f *fakeUserRepo) List(_ context.Context, page, limit int) ([]model.User, int64, error) {
	out := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	cp := *u
	f.users[u.ID.String()] = &cp
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) SaveRefreshToken(_ context.Context, t *model.RefreshToken) error {
	cp := *t
	f.tokens[t.Token] = &cp
	return nil
}

func (f *fakeUserRepo) FindRefreshToken(_ context.Context, token string) (*model.RefreshToken, error) {
	t, ok := f.tokens[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	if u, ok := f.users[t.UserID.String()]; ok {
		cp.User = *u
	}
	return &cp, nil
}

func (f *fakeUserRepo) ConsumeRefreshToken(_ context.Context, token string) (bool, error) {
	_, ok := f.tokens[token]
	delete(f.tokens, token)
	return ok, nil
}

func (f *fakeUserRepo) RevokeUserTokens(_ context.Context, userID uuid.UUID) error {
	for k, t := range f.tokens {
		if t.UserID == userID {
			delete(f.tokens, k)
		}
	}
	return nil
}

func (f *fakeUserRepo) PurgeExpiredTokens(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for k, t := range f.tokens {
		if t.ExpiresAt.Before(before) {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

type fakeRoleRepo struct {
	roles       map[uuid.UUID]*model.Role
	permissions map[uuid.UUID]*model.Permission
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{roles: map[uuid.UUID]*model.Role{}, permissions: map[uuid.UUID]*model.Permission{}}
}

func (f *fakeRoleRepo) Create(_ context.Context, r *model.Role) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	cp := *r
	f.roles[r.ID] = &cp
	return nil
}

func (f *fakeRoleRepo) Update(_ context.Context, r *model.Role) error {
	cp := *r
	f.roles[r.ID] = &cp
	return nil
}

func (f *fakeRoleRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.roles, id)
	return nil
}

func (f *fakeRoleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Role, error) {
	r, ok := f.roles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRoleRepo) FindByIDWithPermissions(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeRoleRepo) FindByName(_ context.Context, name string) (*model.Role, error) {
	for _, r := range f.roles {
		if r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRoleRepo) ListAll(_ context.Context) ([]model.Role, error) {
	out := make([]model.Role, 0, len(f.roles))
	for _, r := range f.roles {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeRoleRepo) ListPermissions(_ context.Context) ([]model.Permission, error) {
	out := make([]model.Permission, 0, len(f.permissions))
	for _, p := range f.permissions {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeRoleRepo) UpdatePermissions(_ context.Context, roleID uuid.UUID, ids []uuid.UUID) error {
	r, ok := f.roles[roleID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	perms := make([]model.Permission, 0, len(ids))
	for _, id := range ids {
		if p, ok := f.permissions[id]; ok {
			perms = append(perms, *p)
		}
	}
	r.Permissions = perms
	return nil
}

func (f *fakeRoleRepo) GetPermissionsByRoleName(ctx context.Context, name string) ([]string, error) {
	r, err := f.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		codes = append(codes, p.Code)
	}
	return codes, nil
}

func (f *fakeRoleRepo) UpsertPermission(_ context.Context, p *model.Permission) error {
	for _, existing := range f.permissions {
		if existing.Code == p.Code {
			existing.Name, existing.Group = p.Name, p.Group
			*p = *existing
			return nil
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	f.permissions[p.ID] = &cp
	return nil
}

type fakeReporter struct {
	report  string
	err     error
	summary string
}

func (f *fakeReporter) Report(_ context.Context, summary string) (string, error) {
	f.summary = summary
	return f.report, f.err
}

func (f *fakeReporter) Provider() string { return "fake" }

type publishedEvent struct {
	Type    string
	Payload interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakePublisher) Publish(eventType string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{Type: eventType, Payload: payload})
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeMetrics struct {
	determinations []string
	reports        []string
	updates        []string
}

func (f *fakeMetrics) ObserveDetermination(category, rule string, persisted bool) {
	suffix := ""
	if persisted {
		suffix = "/persisted"
	}
	f.determinations = append(f.determinations, category+"/"+rule+suffix)
}

func (f *fakeMetrics) AddAssessed(float64, float64) {}

func (f *fakeMetrics) ObserveReport(provider string, _ time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	f.reports = append(f.reports, provider+"/"+outcome)
}

func (f *fakeMetrics) ObserveComplianceUpdate(status string) {
	f.updates = append(f.updates, status)
}
