package notify

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ternarybob/vigil/internal/models"
)

const htmlPage = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>%s</title></head>
<body>
%s</body></html>
`

// FileSink renders each alert to an HTML report in a directory.
type FileSink struct {
	dir    string
	md     goldmark.Markdown
	logger arbor.ILogger
}

// NewFileSink creates a sink writing into dir, creating it if needed.
func NewFileSink(dir string, logger arbor.ILogger) (*FileSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("report directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &FileSink{
		dir:    dir,
		md:     goldmark.New(goldmark.WithExtensions(extension.Table, extension.Linkify)),
		logger: logger,
	}, nil
}

// Notify writes <timestamp>-<symbol>.html and returns its rendering error, if any.
func (s *FileSink) Notify(ctx context.Context, alert models.Alert) error {
	var body bytes.Buffer
	if err := s.md.Convert([]byte(AlertMarkdown(alert)), &body); err != nil {
		return fmt.Errorf("failed to render alert: %w", err)
	}

	path := filepath.Join(s.dir, reportName(alert, ".html"))
	page := fmt.Sprintf(htmlPage, html.EscapeString(alert.Title), body.String())
	if err := os.WriteFile(path, []byte(page), 0644); err != nil {
		return fmt.Errorf("failed to write alert report: %w", err)
	}

	s.logger.Debug().Str("path", path).Str("symbol", alert.Symbol).Msg("Alert report written")
	return nil
}

func reportName(alert models.Alert, ext string) string {
	symbol := alert.Symbol
	if symbol == "" {
		symbol = "alert"
	}
	symbol = strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, symbol)
	return fmt.Sprintf("%s-%s%s", alert.CreatedAt.UTC().Format("20060102T150405Z"), symbol, ext)
}
