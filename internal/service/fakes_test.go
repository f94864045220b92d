package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	"github.com/noah-isme/lesson-planner-api/internal/repository"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
)

type memUserRepo struct {
	mu      sync.Mutex
	users   map[string]*models.User
	order   []string
	err     error
	updated map[string]string
}

func newMemUserRepo(users ...*models.User) *memUserRepo {
	repo := &memUserRepo{users: map[string]*models.User{}, updated: map[string]string{}}
	for _, u := range users {
		repo.users[u.ID] = u
		repo.order = append(repo.order, u.ID)
	}
	return repo
}

func (m *memUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memUserRepo) List(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	users := make([]models.User, 0, len(m.order))
	for _, id := range m.order {
		if u, ok := m.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (m *memUserRepo) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, u := range m.users {
		if u.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	clone := *user
	m.users[user.ID] = &clone
	m.order = append(m.order, user.ID)
	return nil
}

func (m *memUserRepo) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.users, id)
	return nil
}

func (m *memUserRepo) UpdatePassword(_ context.Context, id, passwordHash string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	m.updated[id] = passwordHash
	return nil
}

func (m *memUserRepo) Count(_ context.Context, role *models.UserRole) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	total := 0
	for _, u := range m.users {
		if role == nil || u.Role == *role {
			total++
		}
	}
	return total, nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	logs    []models.AuditLog
	err     error
	removed map[string]bool
}

func (m *memAuditRepo) Append(_ context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if log.UserID != nil && m.removed[*log.UserID] {
		return &repository.ReferenceError{Constraint: repository.ConstraintAuditUser}
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	log.Seq = int64(len(m.logs) + 1)
	m.logs = append(m.logs, *log)
	return nil
}

func (m *memAuditRepo) Recent(_ context.Context, limit int) ([]models.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	logs := append([]models.AuditLog(nil), m.logs...)
	sort.SliceStable(logs, func(i, j int) bool {
		if !logs[i].CreatedAt.Equal(logs[j].CreatedAt) {
			return logs[i].CreatedAt.After(logs[j].CreatedAt)
		}
		return logs[i].Seq > logs[j].Seq
	})
	if len(logs) > limit {
		logs = logs[:limit]
	}
	for i := range logs {
		if logs[i].ActorUsername != "" {
			name := logs[i].ActorUsername
			logs[i].Username = &name
		}
	}
	return logs, nil
}

func (m *memAuditRepo) CountLogins(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for i := range m.logs {
		if m.logs[i].IsLogin() {
			total++
		}
	}
	return total, nil
}

func (m *memAuditRepo) byType(eventType models.AuditEventType) []models.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditLog
	for _, l := range m.logs {
		if l.EventType == eventType {
			out = append(out, l)
		}
	}
	return out
}

type memLessonRepo struct {
	mu        sync.Mutex
	plans     map[string]models.LessonPlan
	users     map[string]bool
	removed   map[string]bool
	listCalls int
}

func newMemLessonRepo(userIDs ...string) *memLessonRepo {
	users := map[string]bool{}
	for _, id := range userIDs {
		users[id] = true
	}
	return &memLessonRepo{plans: map[string]models.LessonPlan{}, users: users, removed: map[string]bool{}}
}

func (m *memLessonRepo) checkUsers(ids []string) error {
	for _, id := range ids {
		if !m.users[id] {
			return &repository.ReferenceError{Constraint: repository.ConstraintAssignmentUser}
		}
	}
	return nil
}

func (m *memLessonRepo) Create(_ context.Context, plan *models.LessonPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if plan.CreatedBy != nil && m.removed[*plan.CreatedBy] {
		return &repository.ReferenceError{Constraint: repository.ConstraintLessonCreator}
	}
	if err := m.checkUsers(plan.AssignedUsers); err != nil {
		return err
	}
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	plan.CreatedAt = time.Now().UTC()
	m.plans[plan.ID] = *plan
	return nil
}

func (m *memLessonRepo) Patch(_ context.Context, id string, patch models.LessonPlanPatch) (*models.LessonPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan, ok := m.plans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if patch.Title != nil {
		plan.Title = *patch.Title
	}
	if patch.Description != nil {
		plan.Description = *patch.Description
	}
	if patch.Date != nil {
		date, err := models.ParseDate(*patch.Date)
		if err != nil {
			return nil, err
		}
		plan.Date = date
	}
	if patch.StartTime != nil {
		plan.StartTime = *patch.StartTime
	}
	if patch.DurationMinutes != nil {
		plan.DurationMinutes = *patch.DurationMinutes
	}
	plan.UpdatedAt = time.Now().UTC()
	m.plans[id] = plan
	plan.AssignedUsers = append([]string{}, plan.AssignedUsers...)
	return &plan, nil
}

func (m *memLessonRepo) FindByID(_ context.Context, id string) (*models.LessonPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan, ok := m.plans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	plan.AssignedUsers = append([]string{}, plan.AssignedUsers...)
	return &plan, nil
}

func (m *memLessonRepo) ListAll(_ context.Context) ([]models.LessonPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	return m.sorted(func(models.LessonPlan) bool { return true }), nil
}

func (m *memLessonRepo) ListByUser(_ context.Context, userID string) ([]models.LessonPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	return m.sorted(func(p models.LessonPlan) bool { return p.HasAssignee(userID) }), nil
}

func (m *memLessonRepo) sorted(keep func(models.LessonPlan) bool) []models.LessonPlan {
	plans := []models.LessonPlan{}
	for _, p := range m.plans {
		if keep(p) {
			plans = append(plans, p)
		}
	}
	sort.Slice(plans, func(i, j int) bool {
		return plans[i].Start().Before(plans[j].Start())
	})
	return plans
}

func (m *memLessonRepo) ReplaceAssignments(_ context.Context, lessonID string, userIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan, ok := m.plans[lessonID]
	if !ok {
		return sql.ErrNoRows
	}
	if err := m.checkUsers(userIDs); err != nil {
		return err
	}
	plan.AssignedUsers = append([]string{}, userIDs...)
	m.plans[lessonID] = plan
	return nil
}

func (m *memLessonRepo) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.plans), nil
}

type memCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCacheRepo() *memCacheRepo {
	return &memCacheRepo{entries: map[string][]byte{}}
}

func (m *memCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	return nil
}
