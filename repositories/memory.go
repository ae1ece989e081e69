package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"damagereport-be/models"
)

// MemoryReportRepository is a process-local ReportRepository with the same conditional-write
// semantics. Used by tests and local runs without MongoDB.
type MemoryReportRepository struct {
	mu      sync.Mutex
	reports map[primitive.ObjectID]models.DamageReport
}

func NewMemoryReportRepository() *MemoryReportRepository {
	return &MemoryReportRepository{reports: map[primitive.ObjectID]models.DamageReport{}}
}

func (m *MemoryReportRepository) Insert(_ context.Context, report *models.DamageReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}
	m.reports[report.ID] = cloneReport(*report)
	return nil
}

func (m *MemoryReportRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.DamageReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneReport(r)
	return &out, nil
}

func (m *MemoryReportRepository) FindMutable(_ context.Context, id, ownerID primitive.ObjectID) (*models.DamageReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok || !isMutable(r, ownerID) {
		return nil, ErrNotFound
	}
	out := cloneReport(r)
	return &out, nil
}

func (m *MemoryReportRepository) ListByOwner(_ context.Context, ownerID primitive.ObjectID) ([]models.DamageReport, error) {
	out := m.filter(func(r models.DamageReport) bool { return r.UserID == ownerID })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}

func (m *MemoryReportRepository) ListSubmitted(_ context.Context) ([]models.DamageReport, error) {
	out := m.filter(func(r models.DamageReport) bool { return r.Status == models.StatusSubmitted })
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].SubmittedAt, out[j].SubmittedAt
		if a != nil && b != nil && !a.Equal(*b) {
			return a.Before(*b)
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}

func (m *MemoryReportRepository) SaveDraft(_ context.Context, report *models.DamageReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.reports[report.ID]
	if !ok || !isMutable(cur, report.UserID) {
		return ErrNotFound
	}
	cur.PackageID = report.PackageID
	cur.Location = report.Location
	cur.Description = report.Description
	cur.PhotoPath = report.PhotoPath
	cur.Status = report.Status
	cur.SubmittedAt = report.SubmittedAt
	cur.UpdatedAt = report.UpdatedAt
	m.reports[report.ID] = cloneReport(cur)
	return nil
}

func (m *MemoryReportRepository) Approve(_ context.Context, report *models.DamageReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.reports[report.ID]
	if !ok || cur.Status != models.StatusSubmitted {
		return ErrNotFound
	}
	cur.Status = report.Status
	cur.ApprovedAt = report.ApprovedAt
	cur.ApprovedBy = report.ApprovedBy
	cur.UpdatedAt = report.UpdatedAt
	m.reports[report.ID] = cloneReport(cur)
	return nil
}

func (m *MemoryReportRepository) DeleteDraft(_ context.Context, id, ownerID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.reports[id]
	if !ok || !isMutable(cur, ownerID) {
		return ErrNotFound
	}
	delete(m.reports, id)
	return nil
}

func (m *MemoryReportRepository) SetAnalysis(_ context.Context, id primitive.ObjectID, a models.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.reports[id]
	if !ok {
		return ErrNotFound
	}
	cur.ApplyAnalysis(a)
	cur.UpdatedAt = time.Now().UTC()
	m.reports[id] = cur
	return nil
}

func (m *MemoryReportRepository) filter(keep func(models.DamageReport) bool) []models.DamageReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.DamageReport{}
	for _, r := range m.reports {
		if keep(r) {
			out = append(out, cloneReport(r))
		}
	}
	return out
}

func isMutable(r models.DamageReport, ownerID primitive.ObjectID) bool {
	return r.UserID == ownerID && r.Status == models.StatusDraft
}

// cloneReport copies pointer fields so callers never share state with the store.
func cloneReport(r models.DamageReport) models.DamageReport {
	r.Description = cloneString(r.Description)
	r.PhotoPath = cloneString(r.PhotoPath)
	r.AISeverity = cloneString(r.AISeverity)
	r.AIDamageType = cloneString(r.AIDamageType)
	r.AIValueImpact = cloneString(r.AIValueImpact)
	r.AILiability = cloneString(r.AILiability)
	if r.SubmittedAt != nil {
		t := *r.SubmittedAt
		r.SubmittedAt = &t
	}
	if r.ApprovedAt != nil {
		t := *r.ApprovedAt
		r.ApprovedAt = &t
	}
	if r.ApprovedBy != nil {
		id := *r.ApprovedBy
		r.ApprovedBy = &id
	}
	return r
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// MemoryUserRepository is a process-local UserRepository.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: map[primitive.ObjectID]models.User{}}
}

func (m *MemoryUserRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = normalizeEmail(email)
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryUserRepository) Insert(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.Email = normalizeEmail(user.Email)
	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrDuplicateEmail
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.users[user.ID] = *user
	return nil
}
