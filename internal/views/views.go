// Package views renders chat pages and transcripts as HTML.
package views

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	modernchat "github.com/OmChillure/modern-chat"
	"github.com/OmChillure/modern-chat/internal/chat"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/extension"
)

// Views executes the embedded templates.
type Views struct {
	templates *template.Template
	md        goldmark.Markdown
	css       template.CSS
}

// Page is the data of a chat page.
type Page struct {
	Title    string
	Messages []chat.Node
	// Transcript renders a read-only standalone document with the stylesheet inlined.
	Transcript bool
}

type pageData struct {
	Title      string
	Messages   []bubble
	Transcript bool
	InlineCSS  template.CSS
}

type bubble struct {
	chat.Node
	HTML template.HTML
}

// New parses the embedded templates.
func New() (Views, error) {
	tmpl, err := template.ParseFS(
		modernchat.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return Views{}, fmt.Errorf("error parsing templates: %w", err)
	}

	css, err := modernchat.StaticFS.ReadFile("static/style.css")
	if err != nil {
		return Views{}, fmt.Errorf("error reading stylesheet: %w", err)
	}

	md := goldmark.New(goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(highlighting.WithStyle("monokai")),
	))

	return Views{
		templates: tmpl,
		md:        md,
		// The stylesheet is embedded in the binary, never user input.
		css: template.CSS(css),
	}, nil
}

// Render writes page to w. Message text is rendered as markdown.
func (v Views) Render(w io.Writer, page Page) error {
	data := pageData{
		Title:      page.Title,
		Messages:   make([]bubble, len(page.Messages)),
		Transcript: page.Transcript,
	}
	if page.Transcript {
		data.InlineCSS = v.css
	}

	for i, n := range page.Messages {
		html, err := v.Markdown(n.Text)
		if err != nil {
			return err
		}
		data.Messages[i] = bubble{Node: n, HTML: html}
	}

	return v.templates.ExecuteTemplate(w, "base", data)
}

// Markdown converts text to HTML. Fenced code blocks are highlighted with inline styles, so transcripts
// need no extra stylesheet. Raw HTML in text is omitted from the output.
func (v Views) Markdown(text string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := v.md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("error rendering markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}
