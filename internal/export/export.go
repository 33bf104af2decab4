// Package export renders the task list as JSON, CSV or PDF.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/abatilo/duedate/internal/task"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
)

// UnknownFormatError indicates an export format with no renderer.
type UnknownFormatError struct {
	Format string
}

func (e UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown export format %q (valid: json, csv, pdf)", e.Format)
}

// Lister is anything that can produce the current task list.
type Lister interface {
	List(ctx context.Context) ([]task.Task, error)
}

type Exporter struct{ src Lister }

func NewExporter(src Lister) *Exporter { return &Exporter{src: src} }

// Export lists the tasks and renders them in format.
func (e *Exporter) Export(ctx context.Context, format string) ([]byte, error) {
	format = strings.ToLower(format)
	if ContentType(format) == "" {
		return nil, UnknownFormatError{Format: format}
	}
	tasks, err := e.src.List(ctx)
	if err != nil {
		return nil, err
	}
	return Render(tasks, format)
}

// Render encodes tasks in the given format.
func Render(tasks []task.Task, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		if tasks == nil {
			tasks = []task.Task{}
		}
		return json.MarshalIndent(tasks, "", "  ")
	case FormatCSV:
		return renderCSV(tasks)
	case FormatPDF:
		return renderPDF(tasks)
	default:
		return nil, UnknownFormatError{Format: format}
	}
}

// ContentType returns the MIME type for format, or "" if the format is unknown.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	case FormatPDF:
		return "application/pdf"
	default:
		return ""
	}
}

func renderCSV(tasks []task.Task) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "name", "start_date", "due_date", "section", "assignee", "priority", "progress"})
	for _, t := range tasks {
		_ = w.Write([]string{
			strconv.FormatInt(t.ID, 10), t.Name, t.StartDate.String(), t.DueDate.String(),
			t.Section, t.Assignee, string(t.Priority), string(t.Progress),
		})
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

//nolint:mnd // page geometry in millimetres
func renderPDF(tasks []task.Task) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "Task List")
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 10)
	widths := []float64{12, 74, 26, 22, 30}
	for i, h := range []string{"ID", "Name", "Due", "Priority", "Progress"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, t := range tasks {
		cells := []string{
			strconv.FormatInt(t.ID, 10), tr(t.Name), t.DueDate.String(), string(t.Priority), string(t.Progress),
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 6, c, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(tasks) == 0 {
		pdf.MultiCell(0, 6, "No tasks found.", "0", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
