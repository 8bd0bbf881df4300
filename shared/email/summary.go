package email

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"yt-digest/internal/models"
)

//go:embed templates/summary.html
var summaryTemplate string

var (
	tmpl     = template.Must(template.New("summary").Parse(summaryTemplate))
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
)

type summaryView struct {
	Subject     string
	ChannelName string
	Title       string
	Duration    string
	URL         string
	Executive   template.HTML
	Detailed    template.HTML
	Quotes      template.HTML
	Generated   time.Time
}

// Subject returns the notification subject line for an artifact.
func Subject(a *models.SummaryArtifact) string {
	return fmt.Sprintf("New YouTube Summary: [%s] %s", a.ChannelName, a.Title)
}

// RenderSummary builds the HTML body for an artifact. The generated sections
// are markdown; raw HTML inside them is not passed through.
func RenderSummary(a *models.SummaryArtifact, generated time.Time) (string, error) {
	view := summaryView{
		Subject:     Subject(a),
		ChannelName: a.ChannelName,
		Title:       a.Title,
		Duration:    a.DurationText(),
		URL:         a.URL,
		Generated:   generated,
	}

	sections := []struct {
		src string
		dst *template.HTML
	}{
		{a.Executive, &view.Executive},
		{a.Detailed, &view.Detailed},
		{a.Quotes, &view.Quotes},
	}
	for _, s := range sections {
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(s.src), &buf); err != nil {
			return "", fmt.Errorf("failed to render markdown: %w", err)
		}
		*s.dst = template.HTML(buf.String())
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render email template: %w", err)
	}
	return buf.String(), nil
}
