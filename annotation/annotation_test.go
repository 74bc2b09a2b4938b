package annotation

import (
	"context"
	"errors"
	"testing"

	"github.com/hazyhaar/skylight/store"
)

func TestNormalizeColor(t *testing.T) {
	tests := []struct {
		in, want string
		ok       bool
	}{
		{"yellow", Yellow, true},
		{" Blue ", Blue, true},
		{"#FFEB3B", Yellow, true},
		{"rgb(255, 235, 59)", Yellow, true},
		{"transparent", Transparent, true},
		{"#123456", "", false},
		{"rgb(1,2)", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := NormalizeColor(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("NormalizeColor(%q): got %q, %v", tt.in, got, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidColor) {
			t.Errorf("NormalizeColor(%q): want ErrInvalidColor, got %v", tt.in, err)
		}
	}
	if !SameColor("yellow", "rgb(255,235,59)") {
		t.Error("yellow should equal its rgb form")
	}
	if SameColor("yellow", "blue") {
		t.Error("yellow is not blue")
	}
}

func TestProjects_Membership(t *testing.T) {
	a := Annotation{ID: "1", Projects: []string{"A", "B"}}
	for _, p := range []string{"A", "B", DefaultProject, ""} {
		if !a.InProject(p) {
			t.Errorf("should be in %q", p)
		}
	}
	if a.InProject("C") {
		t.Error("should not be in C")
	}
	a.SetProject("C", true)
	a.SetProject("C", true)
	a.SetProject("A", false)
	if len(a.Projects) != 2 || a.Projects[0] != "B" || a.Projects[1] != "C" {
		t.Errorf("projects: got %v", a.Projects)
	}
}

func newRepo(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(store.NewMemory(), nil)
}

func TestRepository_ApplyKeepsOrder(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	for _, id := range []string{"a", "b", "c"} {
		if err := r.Save(ctx, Annotation{ID: id, URL: "u", Text: id}); err != nil {
			t.Fatal(err)
		}
	}
	err := r.Apply(ctx, Changes{
		Delete: []string{"a"},
		Upsert: []Annotation{{ID: "d", URL: "u"}, {ID: "b", URL: "u", Text: "B"}},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	list, _ := r.List(ctx)
	var ids []string
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	if got, want := len(ids), 3; got != want {
		t.Fatalf("ids: got %v", ids)
	}
	if ids[0] != "b" || ids[1] != "c" || ids[2] != "d" {
		t.Errorf("order: got %v, want [b c d]", ids)
	}
	if list[0].Text != "B" {
		t.Errorf("upsert not applied: %q", list[0].Text)
	}
	if err := r.Apply(ctx, Changes{Upsert: []Annotation{{URL: "u"}}}); !errors.Is(err, ErrMissingID) {
		t.Errorf("got %v, want ErrMissingID", err)
	}
}

func TestRepository_NoteAndTags(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	_ = r.Save(ctx, Annotation{ID: "1", URL: "https://a", Text: "quote", Path: "p", Projects: []string{"General"}})
	_ = r.Save(ctx, Annotation{ID: "2", URL: "https://a", Projects: []string{"General"}})
	_ = r.Save(ctx, Annotation{ID: "3", URL: "https://b", Projects: []string{"General"}})

	if err := r.UpdateNote(ctx, "1", "remember"); err != nil {
		t.Fatalf("note: %v", err)
	}
	a, err := r.Get(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if a.Note != "remember" || a.Text != "quote" || a.Path != "p" || a.ID != "1" {
		t.Errorf("note edit changed identity: %+v", a)
	}

	n, err := r.TagURL(ctx, "https://a", "Thesis", true)
	if err != nil || n != 2 {
		t.Fatalf("tag url: n=%d err=%v", n, err)
	}
	thesis, _ := r.List(ctx)
	got, _ := Filter(thesis, Query{Project: "Thesis"})
	if len(got) != 2 {
		t.Errorf("thesis members: got %d, want 2", len(got))
	}

	if err := r.Tag(ctx, "3", "Thesis", true); err != nil {
		t.Fatal(err)
	}
	if err := r.Tag(ctx, "missing", "Thesis", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	if err := r.Delete(ctx, "2"); err != nil {
		t.Fatal(err)
	}
	if err := r.Delete(ctx, "2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestRepository_Projects(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	names, err := r.Projects(ctx)
	if err != nil || len(names) != 1 || names[0] != DefaultProject {
		t.Fatalf("defaults: %v %v", names, err)
	}
	if err := r.AddProject(ctx, " Thesis "); err != nil {
		t.Fatal(err)
	}
	if err := r.AddProject(ctx, "Thesis"); err != nil {
		t.Fatal(err)
	}
	if err := r.AddProject(ctx, "  "); !errors.Is(err, ErrInvalidProject) {
		t.Errorf("got %v, want ErrInvalidProject", err)
	}
	names, _ = r.Projects(ctx)
	if len(names) != 2 || names[1] != "Thesis" {
		t.Errorf("projects: got %v", names)
	}
}

func TestFilter_MultiProject(t *testing.T) {
	list := []Annotation{
		{ID: "1", URL: "https://example.com/a", Projects: []string{"A", "B"}},
		{ID: "2", URL: "https://other.org/x", Projects: []string{"General"}},
		{ID: "1", URL: "https://example.com/a", Projects: []string{"A", "B"}},
	}
	tests := []struct {
		q    Query
		want int
	}{
		{Query{Project: "A"}, 1},
		{Query{Project: "B"}, 1},
		{Query{Project: "General"}, 2},
		{Query{Project: "C"}, 0},
		{Query{URLGlob: "https://example.com/*"}, 1},
		{Query{}, 2},
	}
	for _, tt := range tests {
		got, err := Filter(list, tt.q)
		if err != nil {
			t.Fatalf("%+v: %v", tt.q, err)
		}
		if len(got) != tt.want {
			t.Errorf("%+v: got %d, want %d", tt.q, len(got), tt.want)
		}
	}
	if _, err := Filter(list, Query{URLGlob: "[unclosed"}); !errors.Is(err, ErrBadGlob) {
		t.Errorf("got %v, want ErrBadGlob", err)
	}
}
