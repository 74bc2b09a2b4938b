// CLAUDE:SUMMARY Research manager service: lists annotations grouped by source, manages projects and tags, fuzzy search, Markdown/JSON export.
// Package research is the manager side of skylight: it browses every stored
// annotation across pages, organizes them into projects, and exports them.
// It is served over HTTP (chi) and MCP.
package research

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/hazyhaar/skylight/annotation"
	"github.com/hazyhaar/skylight/export"
)

var (
	ErrUnauthorized = errors.New("research: unauthorized")
	ErrEmptyQuery   = errors.New("research: empty search query")
)

// Service is the manager backend.
type Service struct {
	repo     *annotation.Repository
	exporter *export.Exporter
	cfg      *Config
	logger   *slog.Logger
}

// NewService creates a Service over repo. A nil cfg uses DefaultConfig.
func NewService(repo *annotation.Repository, cfg *Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Service{
		repo:     repo,
		exporter: export.New(export.WithLogger(logger)),
		cfg:      cfg,
		logger:   logger,
	}
}

// Annotations returns the annotations matching q.
func (s *Service) Annotations(ctx context.Context, q annotation.Query) ([]annotation.Annotation, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return annotation.Filter(list, q)
}

// Sources returns the annotations matching q grouped by page.
func (s *Service) Sources(ctx context.Context, q annotation.Query) ([]export.Source, error) {
	list, err := s.Annotations(ctx, q)
	if err != nil {
		return nil, err
	}
	return export.Group(list), nil
}

// Delete removes one annotation.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("research: annotation deleted", "id", id)
	return nil
}

// Projects lists the known projects.
func (s *Service) Projects(ctx context.Context) ([]string, error) {
	return s.repo.Projects(ctx)
}

// AddProject registers a project name.
func (s *Service) AddProject(ctx context.Context, name string) error {
	return s.repo.AddProject(ctx, name)
}

// Tag adds or removes project on one annotation.
func (s *Service) Tag(ctx context.Context, id, project string, on bool) error {
	return s.repo.Tag(ctx, id, project, on)
}

// TagURL adds or removes project on every annotation of url.
func (s *Service) TagURL(ctx context.Context, url, project string, on bool) (int, error) {
	n, err := s.repo.TagURL(ctx, url, project, on)
	if err != nil {
		return 0, err
	}
	s.logger.Info("research: source tagged", "url", url, "project", project, "on", on, "count", n)
	return n, nil
}

// Hit is one search result.
type Hit struct {
	Annotation annotation.Annotation `json:"annotation"`
	Score      int                   `json:"score"`
}

// searchable exposes quote and note text to the fuzzy matcher.
type searchable []annotation.Annotation

func (s searchable) String(i int) string {
	if s[i].Note == "" {
		return s[i].Text
	}
	return s[i].Text + " " + s[i].Note
}

func (s searchable) Len() int { return len(s) }

// Search ranks annotations by fuzzy match of query against quote and note.
// limit <= 0 returns every match.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	list, err := s.Annotations(ctx, annotation.Query{})
	if err != nil {
		return nil, err
	}
	matches := fuzzy.FindFrom(query, searchable(list))
	hits := make([]Hit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, Hit{Annotation: list[m.Index], Score: m.Score})
		if limit > 0 && len(hits) == limit {
			break
		}
	}
	return hits, nil
}

// ExportMarkdown writes the Markdown notecards of q.
func (s *Service) ExportMarkdown(ctx context.Context, w io.Writer, q annotation.Query) error {
	list, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	return s.exporter.Markdown(w, q, list)
}

// ExportJSON writes the JSON snapshot of q.
func (s *Service) ExportJSON(ctx context.Context, w io.Writer, q annotation.Query) error {
	list, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	return export.JSON(w, q, list)
}
