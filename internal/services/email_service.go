package services

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"taskhub/internal/models"
)

const dueDateLayout = "2006-01-02 15:04"

type EmailService interface {
	SendTaskAssigned(task *models.Task) error
	SendTaskOverdue(task *models.Task) error
	SendDailySummary(user *models.User, summary DailySummary) error
}

// DailySummary is what one user's daily email reports.
type DailySummary struct {
	Overdue     int
	DueToday    int
	TotalActive int
}

// Mailer is satisfied by *gomail.Dialer.
type Mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	mailer Mailer
	from   string
	loc    *time.Location
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string, loc *time.Location) EmailService {
	return NewEmailServiceWithMailer(gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword), fromEmail, loc)
}

func NewEmailServiceWithMailer(mailer Mailer, fromEmail string, loc *time.Location) EmailService {
	if loc == nil {
		loc = time.UTC
	}
	return &emailService{mailer: mailer, from: fromEmail, loc: loc}
}

func (s *emailService) send(to, subject, body string) error {
	m := gomail.NewMessage(gomail.SetEncoding(gomail.Unencoded))
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return s.mailer.DialAndSend(m)
}

func (s *emailService) taskLines(task *models.Task) string {
	return fmt.Sprintf("Task: %s\nProject: %s\nDue Date: %s\nPriority: %s\n",
		task.Title,
		task.ProjectName,
		task.DueDate.In(s.loc).Format(dueDateLayout),
		task.Priority.Label(),
	)
}

func (s *emailService) SendTaskAssigned(task *models.Task) error {
	if !task.AssignedTo.HasEmail() {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", task.AssignedTo.DisplayName())
	b.WriteString("You have been assigned a new task:\n\n")
	b.WriteString(s.taskLines(task))
	b.WriteString("\nPlease log in to view more details.\n\n")
	b.WriteString("Best regards,\nProject Management Team\n")

	if err := s.send(task.AssignedTo.Email, "New Task Assigned: "+task.Title, b.String()); err != nil {
		return fmt.Errorf("failed to send task assigned email: %w", err)
	}
	return nil
}

func (s *emailService) SendTaskOverdue(task *models.Task) error {
	if !task.AssignedTo.HasEmail() {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", task.AssignedTo.DisplayName())
	b.WriteString("The following task is overdue:\n\n")
	b.WriteString(s.taskLines(task))
	b.WriteString("\nPlease update the task status or contact your project manager.\n\n")
	b.WriteString("Best regards,\nProject Management Team\n")

	if err := s.send(task.AssignedTo.Email, "Overdue Task: "+task.Title, b.String()); err != nil {
		return fmt.Errorf("failed to send overdue email: %w", err)
	}
	return nil
}

func (s *emailService) SendDailySummary(user *models.User, summary DailySummary) error {
	if !user.HasEmail() {
		return nil
	}
	body := fmt.Sprintf(`Hi %s,

Your daily task summary:
- Overdue tasks: %d
- Tasks due today: %d
- Total active tasks: %d

Please check your dashboard for details.

Best regards,
Project Management Team
`, user.DisplayName(), summary.Overdue, summary.DueToday, summary.TotalActive)

	if err := s.send(user.Email, "Daily Task Summary", body); err != nil {
		return fmt.Errorf("failed to send daily summary email: %w", err)
	}
	return nil
}
