// CLAUDE:SUMMARY Repository: annotation and project persistence over the two-key KV contract, with single read-modify-write batches.
package annotation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hazyhaar/skylight/store"
)

// Storage keys.
const (
	KeyAnnotations = "annotations"
	KeyProjects    = "projects"
)

// Changes is a batch applied in one read-modify-write.
type Changes struct {
	Delete []string
	Upsert []Annotation
}

// Empty reports whether the batch does nothing.
func (c Changes) Empty() bool { return len(c.Delete) == 0 && len(c.Upsert) == 0 }

// Repository reads and writes annotations through a KV store. Writers in
// one process are serialized; across processes the last writer wins.
type Repository struct {
	kv     store.KV
	logger *slog.Logger
	mu     sync.Mutex
}

// NewRepository wraps kv.
func NewRepository(kv store.KV, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{kv: kv, logger: logger}
}

func (r *Repository) load(ctx context.Context) ([]Annotation, error) {
	raw, ok, err := r.kv.Get(ctx, KeyAnnotations)
	if err != nil {
		return nil, fmt.Errorf("annotation: load: %w", err)
	}
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	var list []Annotation
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("annotation: decode: %w", err)
	}
	return list, nil
}

func (r *Repository) store(ctx context.Context, list []Annotation) error {
	if list == nil {
		list = []Annotation{}
	}
	if err := r.kv.Set(ctx, KeyAnnotations, list); err != nil {
		return fmt.Errorf("annotation: store: %w", err)
	}
	return nil
}

// List returns every annotation in storage order.
func (r *Repository) List(ctx context.Context) ([]Annotation, error) {
	return r.load(ctx)
}

// ForURL returns the annotations recorded for url.
func (r *Repository) ForURL(ctx context.Context, url string) ([]Annotation, error) {
	list, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []Annotation
	for _, a := range list {
		if a.URL == url {
			out = append(out, a)
		}
	}
	return out, nil
}

// Get returns the annotation with id.
func (r *Repository) Get(ctx context.Context, id string) (*Annotation, error) {
	list, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Save upserts a by id.
func (r *Repository) Save(ctx context.Context, a Annotation) error {
	return r.Apply(ctx, Changes{Upsert: []Annotation{a}})
}

// Delete removes the annotation with id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.load(ctx)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, a := range list {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(list) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.store(ctx, kept)
}

// Apply removes ch.Delete and upserts ch.Upsert in one write. Upserts of
// existing ids keep their position; new ids are appended.
func (r *Repository) Apply(ctx context.Context, ch Changes) error {
	if ch.Empty() {
		return nil
	}
	for _, a := range ch.Upsert {
		if a.ID == "" {
			return ErrMissingID
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.load(ctx)
	if err != nil {
		return err
	}
	drop := make(map[string]bool, len(ch.Delete))
	for _, id := range ch.Delete {
		drop[id] = true
	}
	pending := make(map[string]Annotation, len(ch.Upsert))
	for _, a := range ch.Upsert {
		pending[a.ID] = a
	}
	out := make([]Annotation, 0, len(list)+len(ch.Upsert))
	for _, a := range list {
		if up, ok := pending[a.ID]; ok {
			out = append(out, up)
			delete(pending, a.ID)
			continue
		}
		if !drop[a.ID] {
			out = append(out, a)
		}
	}
	for _, a := range ch.Upsert {
		if _, ok := pending[a.ID]; ok {
			out = append(out, a)
			delete(pending, a.ID)
		}
	}
	if err := r.store(ctx, out); err != nil {
		return err
	}
	r.logger.Debug("annotation: applied", "deleted", len(ch.Delete), "upserted", len(ch.Upsert))
	return nil
}

// update runs fn on every annotation selected by match and writes once.
func (r *Repository) update(ctx context.Context, match func(Annotation) bool, fn func(*Annotation)) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.load(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range list {
		if match(list[i]) {
			fn(&list[i])
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, r.store(ctx, list)
}

// UpdateNote replaces the note of one annotation, leaving id, text and path
// untouched.
func (r *Repository) UpdateNote(ctx context.Context, id, note string) error {
	n, err := r.update(ctx, func(a Annotation) bool { return a.ID == id }, func(a *Annotation) {
		a.Note = note
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Tag adds or removes project on one annotation.
func (r *Repository) Tag(ctx context.Context, id, project string, on bool) error {
	if err := validProject(project); err != nil {
		return err
	}
	n, err := r.update(ctx, func(a Annotation) bool { return a.ID == id }, func(a *Annotation) {
		a.SetProject(project, on)
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// TagURL adds or removes project on every annotation of url and returns how
// many were touched.
func (r *Repository) TagURL(ctx context.Context, url, project string, on bool) (int, error) {
	if err := validProject(project); err != nil {
		return 0, err
	}
	return r.update(ctx, func(a Annotation) bool { return a.URL == url }, func(a *Annotation) {
		a.SetProject(project, on)
	})
}

// Projects returns the known project names, DefaultProject first.
func (r *Repository) Projects(ctx context.Context) ([]string, error) {
	raw, ok, err := r.kv.Get(ctx, KeyProjects)
	if err != nil {
		return nil, fmt.Errorf("annotation: load projects: %w", err)
	}
	if !ok || len(raw) == 0 {
		return []string{DefaultProject}, nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("annotation: decode projects: %w", err)
	}
	if len(names) == 0 {
		return []string{DefaultProject}, nil
	}
	return names, nil
}

// AddProject registers name. Adding a known project is a no-op.
func (r *Repository) AddProject(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if err := validProject(name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	names, err := r.Projects(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		if n == name {
			return nil
		}
	}
	if err := r.kv.Set(ctx, KeyProjects, append(names, name)); err != nil {
		return fmt.Errorf("annotation: store projects: %w", err)
	}
	return nil
}

func validProject(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidProject
	}
	return nil
}
