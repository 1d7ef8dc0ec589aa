package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskhub/internal/events"
	"taskhub/internal/models"
	"taskhub/internal/repositories"
	"taskhub/internal/services"
)

const seedPassword = "password123"

type SeedResult struct {
	Users    int
	Projects int
	Tasks    int
}

type seedTask struct {
	title   string
	kind    models.TaskKind
	variant string
}

// Seed creates sample users, projects and tasks. Existing rows (matched by
// username, project name or task title) are left alone. With notify=false new
// tasks do not trigger task.created handlers.
func (a *App) Seed(ctx context.Context, notify bool) (SeedResult, error) {
	var res SeedResult
	now := time.Now().In(a.Config.Location())

	users := make([]*models.User, 0, 5)
	for i := 1; i <= 5; i++ {
		u, created, err := a.seedUser(ctx, i)
		if err != nil {
			return res, err
		}
		if created {
			res.Users++
		}
		users = append(users, u)
	}
	owner := users[0].ID
	team := []int64{users[0].ID, users[1].ID, users[2].ID}

	projectData := []struct{ name, description string }{
		{"E-commerce Platform", "Build a complete e-commerce solution"},
		{"Mobile App Development", "Develop mobile app for iOS and Android"},
		{"Website Redesign", "Redesign company website"},
	}
	projects := make([]*models.Project, 0, len(projectData))
	for _, d := range projectData {
		p, err := a.findProject(ctx, d.name)
		if err != nil {
			return res, err
		}
		if p == nil {
			p, err = a.ProjectSvc.Create(ctx, &models.Project{
				Name:          d.name,
				Description:   d.description,
				Status:        models.ProjectInProgress,
				StartDate:     models.DateOf(now),
				EndDate:       models.DateOf(now.AddDate(0, 0, 90)),
				AssignedToIDs: team,
			}, owner)
			if err != nil {
				return res, fmt.Errorf("seed project %q: %w", d.name, err)
			}
			res.Projects++
		} else {
			p, err = a.ProjectSvc.Update(ctx, p.ID, &models.Project{
				Name: p.Name, Description: p.Description, Status: p.Status,
				StartDate: p.StartDate, EndDate: p.EndDate, AssignedToIDs: team,
			}, owner)
			if err != nil {
				return res, fmt.Errorf("seed project %q: %w", d.name, err)
			}
		}
		projects = append(projects, p)
	}

	tasks := a.TaskSvc
	if !notify {
		tasks = services.NewTaskService(a.Tasks, a.Projects, a.Users, events.NewDispatcher())
	}

	dev := []seedTask{
		{"Setup Django Project", models.KindDevelopment, string(models.TechDjango)},
		{"Create User Authentication", models.KindDevelopment, string(models.TechPython)},
		{"Build Product Catalog", models.KindDevelopment, string(models.TechDjango)},
		{"Implement Payment Gateway", models.KindDevelopment, string(models.TechPython)},
	}
	design := []seedTask{
		{"Design Landing Page", models.KindDesign, string(models.DesignUIUX)},
		{"Create Logo Design", models.KindDesign, string(models.DesignGraphic)},
		{"Build Wireframes", models.KindDesign, string(models.DesignWireframe)},
		{"Design Mobile Mockups", models.KindDesign, string(models.DesignMockup)},
	}

	for i, d := range dev {
		t := &models.Task{
			Kind:           d.kind,
			Title:          d.title,
			Description:    "Description for " + d.title,
			ProjectID:      projects[i%len(projects)].ID,
			AssignedToID:   &users[i%len(users)].ID,
			Status:         pick(i%2 == 0, models.TaskInProgress, models.TaskTodo),
			Priority:       pick(i%3 == 0, models.PriorityHigh, models.PriorityMedium),
			DueDate:        now.AddDate(0, 0, 7+i),
			EstimatedHours: 8 + i*2,
			DevelopmentDetails: &models.DevelopmentDetails{
				Technology: models.Technology(d.variant),
			},
		}
		created, err := a.seedTask(ctx, tasks, t, owner)
		if err != nil {
			return res, err
		}
		if created {
			res.Tasks++
		}
	}
	for i, d := range design {
		t := &models.Task{
			Kind:           d.kind,
			Title:          d.title,
			Description:    "Description for " + d.title,
			ProjectID:      projects[i%len(projects)].ID,
			AssignedToID:   &users[i%len(users)].ID,
			Status:         pick(i%2 == 0, models.TaskReview, models.TaskInProgress),
			Priority:       pick(i%4 == 0, models.PriorityUrgent, models.PriorityMedium),
			DueDate:        now.AddDate(0, 0, 5+i),
			EstimatedHours: 6 + i*3,
			DesignDetails: &models.DesignDetails{
				DesignType: models.DesignType(d.variant),
				DesignTool: pick(i%2 == 0, "Figma", "Adobe XD"),
			},
		}
		created, err := a.seedTask(ctx, tasks, t, owner)
		if err != nil {
			return res, err
		}
		if created {
			res.Tasks++
		}
	}
	return res, nil
}

func pick[T any](cond bool, yes, no T) T {
	if cond {
		return yes
	}
	return no
}

func (a *App) seedUser(ctx context.Context, i int) (*models.User, bool, error) {
	username := fmt.Sprintf("user%d", i)
	u, err := a.Users.GetByUsername(ctx, username)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, false, err
	}
	u, err = a.Auth.Register(ctx, models.RegisterRequest{
		Username:  username,
		Password:  seedPassword,
		Email:     fmt.Sprintf("user%d@example.com", i),
		FirstName: fmt.Sprintf("User%d", i),
		LastName:  "Test",
	})
	if err != nil {
		return nil, false, fmt.Errorf("seed user %s: %w", username, err)
	}
	return u, true, nil
}

func (a *App) findProject(ctx context.Context, name string) (*models.Project, error) {
	list, err := a.Projects.FindAll(ctx, models.ProjectFilter{Name: name})
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Name == name {
			return &list[i], nil
		}
	}
	return nil, nil
}

func (a *App) seedTask(ctx context.Context, tasks services.TaskService, t *models.Task, owner int64) (bool, error) {
	existing, err := a.Tasks.FindAll(ctx, models.TaskFilter{Title: t.Title})
	if err != nil {
		return false, err
	}
	for _, e := range existing {
		if e.Title == t.Title {
			return false, nil
		}
	}
	if _, err := tasks.Create(ctx, t, owner); err != nil {
		return false, fmt.Errorf("seed task %q: %w", t.Title, err)
	}
	return true, nil
}
