// CLAUDE:SUMMARY Export: groups annotations by source URL and writes research notecards as Markdown (html-to-markdown) or JSON.
// Package export renders stored annotations for use outside the browser:
// Markdown notecards grouped by source page, or a JSON snapshot mirroring
// the stored records.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/hazyhaar/skylight/annotation"
)

// Entry is the exported view of one annotation.
type Entry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Text      string    `json:"text"`
	HTML      string    `json:"html,omitempty"`
	Note      string    `json:"note"`
	Color     string    `json:"color"`
	Projects  []string  `json:"projects"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEntry converts a stored annotation.
func NewEntry(a annotation.Annotation) Entry {
	return Entry{
		ID:        a.ID,
		Title:     a.Title,
		URL:       a.URL,
		Text:      a.Text,
		HTML:      a.HTML,
		Note:      a.Note,
		Color:     a.Color,
		Projects:  append([]string(nil), a.Projects...),
		Timestamp: a.Timestamp,
	}
}

// Source is the annotations of one page.
type Source struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Entries []Entry `json:"entries"`
}

// Group groups list by URL in first-seen order. Within a URL, entries keep
// storage order and duplicate ids are dropped. The title is taken from the
// first annotation of the URL.
func Group(list []annotation.Annotation) []Source {
	idx := make(map[string]int)
	seen := make(map[string]bool)
	var out []Source
	for _, a := range list {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		i, ok := idx[a.URL]
		if !ok {
			i = len(out)
			idx[a.URL] = i
			out = append(out, Source{URL: a.URL, Title: a.Title})
		}
		out[i].Entries = append(out[i].Entries, NewEntry(a))
	}
	return out
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// Exporter writes exports. It is safe for concurrent use.
type Exporter struct {
	conv   *converter.Converter
	logger *slog.Logger
}

// New returns an Exporter.
func New(opts ...Option) *Exporter {
	e := &Exporter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

var blankRun = regexp.MustCompile(`\n{3,}`)

// quote renders the highlighted content: the HTML snapshot converted to
// Markdown when there is one, the plain text in italics otherwise.
func (e *Exporter) quote(en Entry) string {
	fallback := "*" + strings.TrimSpace(en.Text) + "*"
	if en.HTML == "" {
		return fallback
	}
	md, err := e.conv.ConvertString(en.HTML, converter.WithDomain(en.URL))
	if err != nil {
		e.logger.Debug("export: markdown conversion failed", "id", en.ID, "error", err)
		return fallback
	}
	md = strings.TrimSpace(md)
	if md == "" {
		return fallback
	}
	return blankRun.ReplaceAllString(md, "\n\n")
}

// Markdown writes the research notecards of the annotations matching q.
func (e *Exporter) Markdown(w io.Writer, q annotation.Query, list []annotation.Annotation) error {
	filtered, err := annotation.Filter(list, q)
	if err != nil {
		return err
	}
	project := q.Project
	if project == "" {
		project = annotation.DefaultProject
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Research Project: %s\n\n", project)
	for _, src := range Group(filtered) {
		fmt.Fprintf(&sb, "# Source: %s\n**URL:** %s\n\n", src.Title, src.URL)
		for _, en := range src.Entries {
			sb.WriteString("---\n\n")
			sb.WriteString(e.quote(en))
			sb.WriteString("\n\n")
			if en.Note != "" {
				fmt.Fprintf(&sb, "**Note: %s**\n\n", en.Note)
			}
			sb.WriteString("---\n\n")
		}
	}
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("export: write markdown: %w", err)
	}
	return nil
}

// JSON writes the annotations matching q as an indented array of entries.
func JSON(w io.Writer, q annotation.Query, list []annotation.Annotation) error {
	filtered, err := annotation.Filter(list, q)
	if err != nil {
		return err
	}
	entries := make([]Entry, 0, len(filtered))
	for _, a := range filtered {
		entries = append(entries, NewEntry(a))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("export: write json: %w", err)
	}
	return nil
}

var spaces = regexp.MustCompile(`\s+`)

// FileName is the download name of a project's Markdown export.
func FileName(project string) string {
	if project == "" {
		project = annotation.DefaultProject
	}
	return spaces.ReplaceAllString(project, "_") + "_Research.md"
}
