package notify

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/vigil/internal/models"
)

const (
	pageWidth  = 180.0
	lineHeight = 5.0
)

// RenderPDF converts an alert markdown report to an A4 PDF.
func RenderPDF(markdown, title string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 10)

	source := []byte(markdown)
	doc := goldmark.New(goldmark.WithExtensions(extension.Table)).Parser().Parse(text.NewReader(source))

	r := &pdfRenderer{
		pdf:    pdf,
		source: source,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
	}
	if err := ast.Walk(doc, r.walk); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// pdfRenderer walks a goldmark AST and draws it with the core Arial font.
type pdfRenderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	tr        func(string) string
	bold      bool
	italic    bool
	listLevel int
}

func (r *pdfRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			size := 10.0
			switch node.Level {
			case 1:
				size = 15
			case 2:
				size = 12
			}
			r.pdf.Ln(4)
			r.pdf.SetFont("Arial", "B", size)
		} else {
			r.pdf.Ln(8)
			r.setFont()
		}
	case *ast.Paragraph:
		if !entering && r.listLevel == 0 {
			r.pdf.Ln(7)
		}
	case *ast.Text:
		if entering {
			r.write(string(node.Segment.Value(r.source)))
			if node.SoftLineBreak() {
				r.write(" ")
			}
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.setFont()
	case *ast.CodeSpan:
		if entering {
			r.pdf.SetFont("Courier", "", 10)
			r.write(string(node.Text(r.source)))
			r.setFont()
		}
		return ast.WalkSkipChildren, nil
	case *ast.List:
		if entering {
			r.listLevel++
		} else {
			r.listLevel--
			r.pdf.Ln(lineHeight + 2)
		}
	case *ast.ListItem:
		if entering {
			if node.PreviousSibling() != nil {
				r.pdf.Ln(lineHeight)
			}
			r.pdf.SetX(15 + float64(r.listLevel)*5)
			r.write("- ")
		}
	case *ast.ThematicBreak:
		if entering {
			r.pdf.Ln(2)
			r.pdf.Line(15, r.pdf.GetY(), 195, r.pdf.GetY())
			r.pdf.Ln(2)
		}
	case *extast.Table:
		if entering {
			r.table(tableRows(node, r.source))
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) write(s string) {
	r.pdf.Write(lineHeight, r.tr(s))
}

func (r *pdfRenderer) setFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont("Arial", style, 10)
}

// table draws rows as a grid; the first row is the header.
func (r *pdfRenderer) table(rows [][]string) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}
	cols := len(rows[0])
	width := pageWidth / float64(cols)
	if cols == 2 {
		width = pageWidth / 3
	}

	r.pdf.Ln(1)
	for i, row := range rows {
		if i == 0 {
			r.pdf.SetFont("Arial", "B", 9)
			r.pdf.SetFillColor(230, 230, 230)
		} else {
			r.pdf.SetFont("Arial", "", 9)
			r.pdf.SetFillColor(255, 255, 255)
		}
		for j := 0; j < cols; j++ {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			r.pdf.CellFormat(width, 6, r.tr(cell), "1", 0, "L", true, 0, "")
		}
		r.pdf.Ln(-1)
	}
	r.pdf.Ln(4)
	r.setFont()
}

func tableRows(n *extast.Table, source []byte) [][]string {
	var rows [][]string
	var collect func(node ast.Node)
	collect = func(node ast.Node) {
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			switch child.(type) {
			case *extast.TableHeader, *extast.TableRow:
				var row []string
				for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
					row = append(row, strings.TrimSpace(string(cell.Text(source))))
				}
				rows = append(rows, row)
			}
		}
	}
	collect(n)
	return rows
}

// PDFSink writes each alert as <timestamp>-<symbol>.pdf.
type PDFSink struct {
	dir    string
	logger arbor.ILogger
}

// NewPDFSink creates a sink writing into dir, creating it if needed.
func NewPDFSink(dir string, logger arbor.ILogger) (*PDFSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("report directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &PDFSink{dir: dir, logger: logger}, nil
}

func (s *PDFSink) Notify(ctx context.Context, alert models.Alert) error {
	data, err := RenderPDF(AlertMarkdown(alert), alert.Title)
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, reportName(alert, ".pdf"))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write alert pdf: %w", err)
	}
	s.logger.Debug().Str("path", path).Int("bytes", len(data)).Msg("Alert pdf written")
	return nil
}
