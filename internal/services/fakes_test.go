package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/gomail.v2"

	"taskhub/internal/models"
	"taskhub/internal/repositories"
)

// memDB backs the in-memory repository fakes.
type memDB struct {
	mu        sync.Mutex
	nextID    int64
	users     map[int64]*models.User
	projects  map[int64]*models.Project
	assignees map[int64][]int64
	tasks     map[int64]*models.Task
}

func newMemDB() *memDB {
	return &memDB{
		users:     map[int64]*models.User{},
		projects:  map[int64]*models.Project{},
		assignees: map[int64][]int64{},
		tasks:     map[int64]*models.Task{},
	}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *memDB) addUser(username, email, firstName string) *models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	u := &models.User{ID: db.id(), Username: username, Email: email, FirstName: firstName, IsActive: true}
	db.users[u.ID] = u
	return u
}

func (db *memDB) addProject(name string, start, end models.Date, status models.ProjectStatus) *models.Project {
	db.mu.Lock()
	defer db.mu.Unlock()
	p := &models.Project{ID: db.id(), Name: name, StartDate: start, EndDate: end, Status: status}
	p.IsActive = true
	p.CreatedAt = time.Now()
	db.projects[p.ID] = p
	return p
}

// addTask stores t as-is, bypassing service validation.
func (db *memDB) addTask(t models.Task) *models.Task {
	db.mu.Lock()
	defer db.mu.Unlock()
	t.Normalize()
	t.ID = db.id()
	t.IsActive = true
	t.CreatedAt = time.Now()
	db.tasks[t.ID] = &t
	return &t
}

func (db *memDB) hydrateTask(t models.Task) models.Task {
	if p, ok := db.projects[t.ProjectID]; ok {
		t.ProjectName = p.Name
	}
	t.AssignedTo = nil
	if t.AssignedToID != nil {
		if u, ok := db.users[*t.AssignedToID]; ok {
			cp := *u
			t.AssignedTo = &cp
		}
	}
	return t
}

// ===== users =====

type fakeUsers struct{ db *memDB }

func (f fakeUsers) Create(ctx context.Context, user *models.User) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, u := range f.db.users {
		if u.Username == user.Username {
			return repositories.ErrDuplicate
		}
	}
	user.ID = f.db.id()
	user.CreatedAt = time.Now()
	cp := *user
	f.db.users[user.ID] = &cp
	return nil
}

func (f fakeUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u, ok := f.db.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f fakeUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, u := range f.db.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f fakeUsers) GetByIDs(ctx context.Context, ids []int64) ([]models.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := f.db.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f fakeUsers) ListActiveWithEmail(ctx context.Context) ([]models.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []models.User
	for _, u := range f.db.users {
		if u.IsActive && u.Email != "" {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeUsers) UpdateTelegramChat(ctx context.Context, userID, chatID int64) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u, ok := f.db.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	u.TelegramChatID = chatID
	return nil
}

func (f fakeUsers) UpdateRefresh(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u, ok := f.db.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	u.RefreshToken = &token
	u.RefreshExpiresAt = &expiresAt
	u.RefreshRevoked = false
	return nil
}

func (f fakeUsers) RotateRefresh(ctx context.Context, oldToken, newToken string, newExpiresAt time.Time) (*models.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, u := range f.db.users {
		if u.RefreshToken != nil && *u.RefreshToken == oldToken && !u.RefreshRevoked &&
			u.RefreshExpiresAt != nil && u.RefreshExpiresAt.After(time.Now()) {
			u.RefreshToken = &newToken
			u.RefreshExpiresAt = &newExpiresAt
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f fakeUsers) GetByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, u := range f.db.users {
		if u.RefreshToken != nil && *u.RefreshToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// ===== projects =====

type fakeProjects struct{ db *memDB }

func (f fakeProjects) Store(ctx context.Context, p *models.Project) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p.ID = f.db.id()
	p.IsActive = true
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	f.db.projects[p.ID] = &cp
	f.db.assignees[p.ID] = append([]int64(nil), p.AssignedToIDs...)
	return nil
}

func (f fakeProjects) FindByID(ctx context.Context, id int64) (*models.Project, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p, ok := f.db.projects[id]
	if !ok || !p.IsActive {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f fakeProjects) matching(filter models.ProjectFilter) []models.Project {
	var out []models.Project
	for _, p := range f.db.projects {
		if !p.IsActive {
			continue
		}
		if filter.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Name)) {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f fakeProjects) FindAll(ctx context.Context, filter models.ProjectFilter) ([]models.Project, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := f.matching(filter)
	if filter.Limit > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		end := filter.Offset + filter.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[filter.Offset:end]
	}
	return out, nil
}

func (f fakeProjects) Count(ctx context.Context, filter models.ProjectFilter) (int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return len(f.matching(filter)), nil
}

func (f fakeProjects) Update(ctx context.Context, p *models.Project) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	cur, ok := f.db.projects[p.ID]
	if !ok || !cur.IsActive {
		return repositories.ErrNotFound
	}
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = time.Now()
	p.IsActive = true
	cp := *p
	f.db.projects[p.ID] = &cp
	if p.AssignedToIDs != nil {
		f.db.assignees[p.ID] = append([]int64(nil), p.AssignedToIDs...)
	}
	return nil
}

func (f fakeProjects) SoftDelete(ctx context.Context, id int64, by *int64) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p, ok := f.db.projects[id]
	if !ok || !p.IsActive {
		return repositories.ErrNotFound
	}
	p.IsActive = false
	p.UpdatedBy = by
	return nil
}

func (f fakeProjects) ListAssignees(ctx context.Context, ids []int64) (map[int64][]models.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := map[int64][]models.User{}
	for _, pid := range ids {
		for _, uid := range f.db.assignees[pid] {
			if u, ok := f.db.users[uid]; ok {
				out[pid] = append(out[pid], *u)
			}
		}
	}
	return out, nil
}

func (f fakeProjects) CountTasks(ctx context.Context, projectID int64) (int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	n := 0
	for _, t := range f.db.tasks {
		if t.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

// ===== tasks =====

type fakeTasks struct{ db *memDB }

func (f fakeTasks) Store(ctx context.Context, t *models.Task) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	t.ID = f.db.id()
	t.IsActive = true
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	f.db.tasks[t.ID] = &cp
	return nil
}

func (f fakeTasks) FindByID(ctx context.Context, id int64) (*models.Task, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	t, ok := f.db.tasks[id]
	if !ok || !t.IsActive {
		return nil, repositories.ErrNotFound
	}
	out := f.db.hydrateTask(*t)
	return &out, nil
}

func (f fakeTasks) matching(filter models.TaskFilter) []models.Task {
	var out []models.Task
	for _, t := range f.db.tasks {
		if !t.IsActive {
			continue
		}
		if filter.Kind != nil && t.Kind != *filter.Kind {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if len(filter.Statuses) > 0 {
			found := false
			for _, s := range filter.Statuses {
				found = found || s == t.Status
			}
			if !found {
				continue
			}
		}
		if filter.ProjectID != nil && t.ProjectID != *filter.ProjectID {
			continue
		}
		if filter.AssignedTo != nil && (t.AssignedToID == nil || *t.AssignedToID != *filter.AssignedTo) {
			continue
		}
		out = append(out, f.db.hydrateTask(*t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f fakeTasks) FindAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.matching(filter), nil
}

func (f fakeTasks) Count(ctx context.Context, filter models.TaskFilter) (int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return len(f.matching(filter)), nil
}

func (f fakeTasks) Update(ctx context.Context, t *models.Task) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	cur, ok := f.db.tasks[t.ID]
	if !ok || !cur.IsActive || cur.Kind != t.Kind {
		return repositories.ErrNotFound
	}
	t.CreatedAt = cur.CreatedAt
	t.CreatedBy = cur.CreatedBy
	t.UpdatedAt = time.Now()
	t.IsActive = true
	cp := *t
	f.db.tasks[t.ID] = &cp
	return nil
}

func (f fakeTasks) SoftDelete(ctx context.Context, id int64, kind *models.TaskKind, by *int64) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	t, ok := f.db.tasks[id]
	if !ok || !t.IsActive || (kind != nil && t.Kind != *kind) {
		return repositories.ErrNotFound
	}
	t.IsActive = false
	t.UpdatedBy = by
	return nil
}

func (f fakeTasks) ListByProjects(ctx context.Context, ids []int64) (map[int64][]models.Task, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := map[int64][]models.Task{}
	for _, t := range f.db.tasks {
		if want[t.ProjectID] {
			out[t.ProjectID] = append(out[t.ProjectID], f.db.hydrateTask(*t))
		}
	}
	return out, nil
}

// ===== mail =====

type sentMail struct {
	to  []string
	raw string
}

// outbox captures mail through gomail's SendFunc instead of dialing SMTP.
type outbox struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

func (o *outbox) DialAndSend(m ...*gomail.Message) error {
	if o.fail != nil {
		return o.fail
	}
	return gomail.Send(gomail.SendFunc(func(from string, to []string, msg io.WriterTo) error {
		var b bytes.Buffer
		if _, err := msg.WriteTo(&b); err != nil {
			return err
		}
		o.mu.Lock()
		o.sent = append(o.sent, sentMail{to: to, raw: b.String()})
		o.mu.Unlock()
		return nil
	}), m...)
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

// ===== jobs =====

// inlineJobs runs every job immediately on the caller's goroutine.
type inlineJobs struct {
	names []string
	full  bool
}

func (j *inlineJobs) Enqueue(name string, fn func(ctx context.Context) error) (string, bool) {
	if j.full {
		return "", false
	}
	j.names = append(j.names, name)
	_ = fn(context.Background())
	return name, true
}
