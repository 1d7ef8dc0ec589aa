package pdf

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"taskhub/internal/models"
)

// Generator: интерфейс, удобно мокать в тестах
type Generator interface {
	ProjectReport(w io.Writer, data ReportData) error
}

type ReportData struct {
	Project   *models.Project
	Summary   *models.TaskSummary
	CreatedAt time.Time
}

// ReportGenerator renders project reports. Without a font path it falls back to
// the core Helvetica font, which only covers cp1252.
type ReportGenerator struct {
	FontPath string
	fontName string
}

func NewReportGenerator(fontPath string) *ReportGenerator {
	g := &ReportGenerator{FontPath: fontPath, fontName: "Helvetica"}
	if fontPath != "" {
		g.fontName = "DejaVu"
	}
	return g
}

var taskColumns = []struct {
	title string
	width float64
}{
	{"Title", 60},
	{"Type", 24},
	{"Status", 24},
	{"Priority", 18},
	{"Due", 28},
	{"Assignee", 26},
}

func (g *ReportGenerator) ProjectReport(w io.Writer, data ReportData) error {
	p := data.Project
	if p == nil {
		return fmt.Errorf("project report: no project")
	}
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Project report #%d", p.ID), true)
	pdf.SetAuthor("taskhub", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	tr := func(s string) string { return s }
	if g.FontPath != "" {
		pdf.AddUTF8Font(g.fontName, "", g.FontPath)
		pdf.AddUTF8Font(g.fontName, "B", g.FontPath)
	} else {
		tr = pdf.UnicodeTranslatorFromDescriptor("")
	}

	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(g.fontName, "", 9)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	// ===== Заголовок
	pdf.SetFont(g.fontName, "B", 18)
	pdf.CellFormat(0, 10, tr(p.Name), "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 7, "Generated "+data.CreatedAt.Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")
	g.hr(pdf)

	g.sectionTitle(pdf, "Project")
	g.kvLine(pdf, "Status", p.Status.Label())
	g.kvLine(pdf, "Period", fmt.Sprintf("%s - %s", p.StartDate, p.EndDate))
	overdue := "no"
	if p.IsOverdue {
		overdue = "yes"
	}
	g.kvLine(pdf, "Overdue", overdue)
	if len(p.AssignedTo) > 0 {
		names := ""
		for i, u := range p.AssignedTo {
			if i > 0 {
				names += ", "
			}
			names += u.Username
		}
		g.kvLine(pdf, "Team", tr(names))
	}
	if p.Description != "" {
		pdf.Ln(1)
		pdf.SetFont(g.fontName, "", 11)
		pdf.MultiCell(0, 6, tr(p.Description), "", "L", false)
	}
	g.hr(pdf)

	if s := data.Summary; s != nil {
		g.sectionTitle(pdf, "Summary")
		g.kvLine(pdf, "Total tasks", fmt.Sprintf("%d", s.TotalTasks))
		g.kvLine(pdf, "Completed", fmt.Sprintf("%d", s.CompletedTasks))
		g.kvLine(pdf, "In progress", fmt.Sprintf("%d", s.InProgressTasks))
		g.kvLine(pdf, "Overdue", fmt.Sprintf("%d", s.OverdueTasks))
		g.kvLine(pdf, "Progress", fmt.Sprintf("%.2f%%", s.ProgressPercentage))
		g.hr(pdf)
	}

	g.sectionTitle(pdf, "Tasks")
	if len(p.Tasks) == 0 {
		pdf.CellFormat(0, 6, "No tasks.", "", 1, "L", false, 0, "")
	} else {
		g.taskTable(pdf, p.Tasks, tr)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render project report: %w", err)
	}
	return nil
}

func (g *ReportGenerator) taskTable(pdf *gofpdf.Fpdf, tasks []models.Task, tr func(string) string) {
	pdf.SetFont(g.fontName, "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range taskColumns {
		pdf.CellFormat(col.width, 7, col.title, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(g.fontName, "", 9)
	for _, t := range tasks {
		kind := t.TaskType()
		if kind == "" {
			kind = "task"
		}
		assignee := "-"
		if t.AssignedTo != nil {
			assignee = t.AssignedTo.Username
		}
		cells := []string{
			fit(pdf, tr(t.Title), taskColumns[0].width),
			kind,
			t.Status.Label(),
			t.Priority.Label(),
			t.DueDate.Format("2006-01-02"),
			fit(pdf, tr(assignee), taskColumns[5].width),
		}
		if t.IsOverdue {
			pdf.SetTextColor(180, 0, 0)
		}
		for i, col := range taskColumns {
			pdf.CellFormat(col.width, 6, cells[i], "1", 0, "L", false, 0, "")
		}
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(-1)
	}
}

// fit shortens s with "..." until it fits a cell of the given width.
func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > limit {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

// === helpers ===
func (g *ReportGenerator) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
}

func (g *ReportGenerator) kvLine(pdf *gofpdf.Fpdf, key, val string) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func (g *ReportGenerator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}
