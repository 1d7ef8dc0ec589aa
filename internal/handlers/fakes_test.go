package handlers

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"taskhub/internal/models"
	"taskhub/internal/pdf"
	"taskhub/internal/repositories"
	"taskhub/internal/services"
)

type fakeProjects struct {
	mu         sync.Mutex
	nextID     int64
	items      []*models.Project
	lastList   models.ProjectFilter
	lastUpdate *models.Project
}

func (f *fakeProjects) Create(ctx context.Context, p *models.Project, actorID int64) (*models.Project, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	p.IsActive = true
	p.CreatedBy = &actorID
	p.Annotate(time.Now())
	f.items = append(f.items, p)
	return p, nil
}

func (f *fakeProjects) find(id int64) (*models.Project, error) {
	for _, p := range f.items {
		if p.ID == id && p.IsActive {
			return p, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeProjects) GetByID(ctx context.Context, id int64) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(id)
}

func (f *fakeProjects) active() []models.Project {
	out := []models.Project{}
	for _, p := range f.items {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	return out
}

func (f *fakeProjects) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastList = filter
	all := f.active()
	total := len(all)
	start := filter.Offset
	if start > total {
		start = total
	}
	end := total
	if filter.Limit > 0 && start+filter.Limit < total {
		end = start + filter.Limit
	}
	return all[start:end], total, nil
}

func (f *fakeProjects) Update(ctx context.Context, id int64, p *models.Project, actorID int64) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, err := f.find(id)
	if err != nil {
		return nil, err
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	sent := *p
	f.lastUpdate = &sent
	if p.AssignedToIDs == nil {
		p.AssignedToIDs, p.AssignedTo = existing.AssignedToIDs, existing.AssignedTo
	}
	p.ID, p.IsActive = id, true
	*existing = *p
	existing.Annotate(time.Now())
	return existing, nil
}

func (f *fakeProjects) Delete(ctx context.Context, id int64, actorID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.find(id)
	if err != nil {
		return err
	}
	p.IsActive = false
	return nil
}

func (f *fakeProjects) Overdue(ctx context.Context) ([]models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Project{}
	for _, p := range f.active() {
		if p.Overdue(models.DateOf(time.Now())) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProjects) TasksSummary(ctx context.Context, id int64) (*models.TaskSummary, error) {
	p, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.TaskSummary{TotalTasks: len(p.Tasks), ProgressPercentage: p.ProgressPercentage}, nil
}

type fakeTasks struct {
	mu         sync.Mutex
	nextID     int64
	items      []*models.Task
	createErr  error
	lastFilter models.TaskFilter
	assignedTo int64
}

func (f *fakeTasks) Create(ctx context.Context, t *models.Task, actorID int64) (*models.Task, error) {
	t.Normalize()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.nextID++
	t.ID = f.nextID
	t.IsActive = true
	t.CreatedBy = &actorID
	t.Annotate(time.Now())
	f.items = append(f.items, t)
	f.mu.Unlock()
	if f.createErr != nil {
		return t, f.createErr
	}
	return t, nil
}

func (f *fakeTasks) GetByID(ctx context.Context, kind *models.TaskKind, id int64) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.items {
		if t.ID == id && t.IsActive && (kind == nil || t.Kind == *kind) {
			return t, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeTasks) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	out := []models.Task{}
	for _, t := range f.items {
		if t.IsActive && (filter.Kind == nil || t.Kind == *filter.Kind) {
			out = append(out, *t)
		}
	}
	return out, len(out), nil
}

func (f *fakeTasks) Update(ctx context.Context, kind *models.TaskKind, id int64, update *models.Task, actorID int64) (*models.Task, error) {
	existing, err := f.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	update.ID, update.Kind, update.IsActive = id, existing.Kind, true
	if kind == nil {
		update.DevelopmentDetails = existing.DevelopmentDetails
		update.DesignDetails = existing.DesignDetails
	}
	update.Normalize()
	if err := update.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	*existing = *update
	existing.Annotate(time.Now())
	f.mu.Unlock()
	return existing, nil
}

func (f *fakeTasks) Delete(ctx context.Context, kind *models.TaskKind, id int64, actorID int64) error {
	t, err := f.GetByID(ctx, kind, id)
	if err != nil {
		return err
	}
	f.mu.Lock()
	t.IsActive = false
	f.mu.Unlock()
	return nil
}

func (f *fakeTasks) Overdue(ctx context.Context) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Task{}
	for _, t := range f.items {
		if t.IsActive && t.Overdue(time.Now()) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTasks) AssignedTo(ctx context.Context, userID int64) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignedTo = userID
	out := []models.Task{}
	for _, t := range f.items {
		if t.IsActive && t.AssignedToID != nil && *t.AssignedToID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

type fakeAuth struct {
	users map[string]string // username -> password
}

func (f *fakeAuth) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if _, ok := f.users[req.Username]; ok {
		return nil, services.ErrUsernameTaken
	}
	f.users[req.Username] = req.Password
	return &models.User{ID: int64(len(f.users)), Username: req.Username, Email: req.Email}, nil
}

func (f *fakeAuth) Login(ctx context.Context, username, password string) (*models.User, *services.TokenPair, error) {
	if pw, ok := f.users[username]; !ok || pw != password {
		return nil, nil, services.ErrInvalidCredentials
	}
	return &models.User{ID: 1, Username: username}, &services.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil
}

func (f *fakeAuth) Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	switch refreshToken {
	case "r":
		return &services.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil
	case "old":
		return nil, services.ErrRefreshTokenExpired
	}
	return nil, services.ErrInvalidRefreshToken
}

func (f *fakeAuth) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return &models.User{ID: id, Username: fmt.Sprintf("user%d", id)}, nil
}

func (f *fakeAuth) HashPassword(password string) (string, error) { return password, nil }

type fakeReports struct{ calls int }

func (f *fakeReports) ProjectReport(w io.Writer, data pdf.ReportData) error {
	f.calls++
	_, err := io.WriteString(w, "%PDF-1.3 "+data.Project.Name)
	return err
}
