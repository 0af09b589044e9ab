package preview

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"docsearch/search"
)

// maxTableRows caps how many rows of a sheet are drawn.
const maxTableRows = 200

var (
	pageHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	sheetHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#10B981"))

	tableBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	tableHeadStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF")).
			Italic(true)
)

var errDestroyed = errors.New("viewer destroyed")

// viewerBase carries the width and teardown flag shared by all viewers.
type viewerBase struct {
	width     int
	destroyed atomic.Bool
}

func (v *viewerBase) Destroy() { v.destroyed.Store(true) }

func (v *viewerBase) alive(ctx context.Context) error {
	if v.destroyed.Load() {
		return errDestroyed
	}
	return ctx.Err()
}

func (v *viewerBase) wrap(s string) string {
	if v.width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(v.width).Render(s)
}

// PDFViewer renders page text under a header per page.
type PDFViewer struct{ viewerBase }

func NewPDFViewer(width int) Viewer { return &PDFViewer{viewerBase{width: width}} }

func (v *PDFViewer) Preview(ctx context.Context, data []byte) (string, error) {
	pages, err := search.PDFPages(data)
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return "", errors.New("pdf has no pages")
	}

	var b strings.Builder
	for i, page := range pages {
		if err := v.alive(ctx); err != nil {
			return "", err
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(pageHeaderStyle.Render(fmt.Sprintf("Page %d of %d", i+1, len(pages))))
		b.WriteByte('\n')
		if strings.TrimSpace(page) == "" {
			b.WriteString(noteStyle.Render("(no text on this page)"))
			continue
		}
		b.WriteString(v.wrap(page))
	}
	return b.String(), nil
}

// ExcelViewer renders every sheet as a bordered table. Files that are not
// xlsx workbooks are read as CSV.
type ExcelViewer struct{ viewerBase }

func NewExcelViewer(width int) Viewer { return &ExcelViewer{viewerBase{width: width}} }

func (v *ExcelViewer) Preview(ctx context.Context, data []byte) (string, error) {
	sheets, err := search.WorkbookSheets(data)
	if err != nil {
		rows, cerr := csvRows(data)
		if cerr != nil {
			return "", err
		}
		sheets = []search.Sheet{{Name: "Sheet1", Rows: rows}}
	}

	var parts []string
	for _, sheet := range sheets {
		if err := v.alive(ctx); err != nil {
			return "", err
		}
		parts = append(parts, v.renderSheet(sheet))
	}
	return strings.Join(parts, "\n\n"), nil
}

func (v *ExcelViewer) renderSheet(sheet search.Sheet) string {
	header := sheetHeaderStyle.Render(sheet.Name)
	if len(sheet.Rows) == 0 {
		return header + "\n" + noteStyle.Render("(empty sheet)")
	}

	rows := sheet.Rows
	truncated := len(rows) > maxTableRows
	if truncated {
		rows = rows[:maxTableRows]
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeadStyle
			}
			return tableCellStyle
		}).
		Headers(rows[0]...).
		Rows(rows[1:]...)
	if v.width > 0 {
		t = t.Width(v.width)
	}

	out := header + "\n" + t.Render()
	if truncated {
		out += "\n" + noteStyle.Render(fmt.Sprintf("(showing %d of %d rows)", maxTableRows, len(sheet.Rows)))
	}
	return out
}

// csvRows decodes data as CSV, or as salvaged legacy workbook text.
func csvRows(data []byte) ([][]string, error) {
	text, err := (&search.ExcelExtractor{}).ExtractText(data)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

// DocxViewer renders paragraphs wrapped to the mount width.
type DocxViewer struct{ viewerBase }

func NewDocxViewer(width int) Viewer { return &DocxViewer{viewerBase{width: width}} }

func (v *DocxViewer) Preview(ctx context.Context, data []byte) (string, error) {
	paras, err := search.DocxParagraphs(data)
	if err != nil {
		// Legacy .doc files only have salvaged text.
		text, terr := (&search.DOCXExtractor{}).ExtractText(data)
		if terr != nil {
			return "", err
		}
		paras = strings.Split(text, "\n")
	}

	var b strings.Builder
	for _, p := range paras {
		if err := v.alive(ctx); err != nil {
			return "", err
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(v.wrap(p))
	}
	return b.String(), nil
}
