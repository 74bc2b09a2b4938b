package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/hazyhaar/skylight/annotation"
)

func sample() []annotation.Annotation {
	return []annotation.Annotation{
		{ID: "1", URL: "https://a.example/post", Title: "Post A", Text: "first quote", Note: "why it matters", Color: annotation.Yellow, Projects: []string{"Thesis"}},
		{ID: "2", URL: "https://b.example/page", Title: "Page B", Text: "other", Color: annotation.Blue, Projects: []string{"General"}},
		{ID: "3", URL: "https://a.example/post", Title: "Post A", Text: "second", HTML: "<p>Hello <b>world</b></p>", Color: annotation.Green, Projects: []string{"Thesis", "Side"}},
		{ID: "1", URL: "https://a.example/post", Title: "Post A", Text: "first quote", Projects: []string{"Thesis"}},
	}
}

func TestGroup(t *testing.T) {
	got := Group(sample())
	if len(got) != 2 {
		t.Fatalf("sources: got %d, want 2", len(got))
	}
	if got[0].URL != "https://a.example/post" || len(got[0].Entries) != 2 {
		t.Errorf("first source: %+v", got[0])
	}
	if got[0].Entries[0].ID != "1" || got[0].Entries[1].ID != "3" {
		t.Errorf("order: got %s %s", got[0].Entries[0].ID, got[0].Entries[1].ID)
	}
}

func TestMarkdown_Project(t *testing.T) {
	var buf bytes.Buffer
	if err := New().Markdown(&buf, annotation.Query{Project: "Thesis"}, sample()); err != nil {
		t.Fatalf("markdown: %v", err)
	}
	md := buf.String()
	for _, want := range []string{
		"# Research Project: Thesis\n\n",
		"# Source: Post A\n**URL:** https://a.example/post\n\n",
		"---\n\n*first quote*\n\n**Note: why it matters**\n\n---\n\n",
		"**world**",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("missing %q in:\n%s", want, md)
		}
	}
	if strings.Contains(md, "Page B") {
		t.Error("annotation outside the project exported")
	}
	if n := strings.Count(md, "*first quote*"); n != 1 {
		t.Errorf("duplicate id exported %d times", n)
	}
}

func TestMarkdown_GeneralIncludesEverything(t *testing.T) {
	var buf bytes.Buffer
	if err := New().Markdown(&buf, annotation.Query{}, sample()); err != nil {
		t.Fatalf("markdown: %v", err)
	}
	md := buf.String()
	if !strings.HasPrefix(md, "# Research Project: General\n") {
		t.Errorf("header: %q", md[:40])
	}
	if !strings.Contains(md, "# Source: Page B") || !strings.Contains(md, "# Source: Post A") {
		t.Errorf("sources missing:\n%s", md)
	}
}

func TestJSON_Glob(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, annotation.Query{URLGlob: "https://a.example/*"}, sample()); err != nil {
		t.Fatalf("json: %v", err)
	}
	var got []Entry
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "3" {
		t.Errorf("got %+v", got)
	}
	if got[1].HTML == "" || got[0].HTML != "" {
		t.Error("html field not mirrored")
	}

	if err := JSON(&buf, annotation.Query{URLGlob: "[unclosed"}, sample()); !errors.Is(err, annotation.ErrBadGlob) {
		t.Errorf("got %v, want ErrBadGlob", err)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct{ project, want string }{
		{"", "General_Research.md"},
		{"My  Thesis draft", "My_Thesis_draft_Research.md"},
	}
	for _, tt := range tests {
		if got := FileName(tt.project); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.project, got, tt.want)
		}
	}
}
