package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var article = `<!DOCTYPE html>
<html>
<head><title>Test Page</title></head>
<body>
<main>
<article>
<h1>Article Title</h1>
<p>Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat. Duis aute irure dolor in reprehenderit in voluptate velit esse cillum dolore eu fugiat nulla pariatur.</p>
</article>
</main>
</body>
</html>`

var shell = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>App</title></head>
<body>
<div id="root"></div>
<script src="/static/js/main.chunk.js"></script>
</body>
</html>`

func TestIsSufficient(t *testing.T) {
	tests := []struct {
		name string
		page string
		want bool
	}{
		{"static article", article, true},
		{"spa shell", shell, false},
		{"too short", `<html><body>hi</body></html>`, false},
		{"empty body", `<!DOCTYPE html><html><head></head><body></body></html>`, false},
		{"script heavy", `<html><body><script>` + strings.Repeat("var a = 1;", 200) + `</script><p>short</p></body></html>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSufficient([]byte(tt.page)); got != tt.want {
				t.Errorf("IsSufficient = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTextMarkupRatio(t *testing.T) {
	text, markup := textMarkupRatio([]byte(`<div>Hello World</div>`))
	if text != 10 {
		t.Errorf("text: got %d, want 10", text)
	}
	if markup != len("<div></div>") {
		t.Errorf("markup: got %d, want %d", markup, len("<div></div>"))
	}
}

type fakeRenderer struct {
	calls int
	out   string
	err   error
}

func (f *fakeRenderer) Render(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	return []byte(f.out), f.err
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			http.Error(w, "ua", http.StatusBadRequest)
			return
		}
		switch r.URL.Path {
		case "/article":
			w.Write([]byte(article))
		case "/app":
			w.Write([]byte(shell))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetcher_Get(t *testing.T) {
	srv := newServer(t)
	f := New(WithUserAgent("test-agent"))

	p, err := f.Get(context.Background(), srv.URL+"/article")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.StatusCode != 200 || !p.Sufficient || p.Rendered {
		t.Errorf("page: %+v", p)
	}
	doc, err := p.Document()
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if doc.Title() != "Test Page" {
		t.Errorf("title: got %q", doc.Title())
	}

	if _, err := f.Get(context.Background(), srv.URL+"/missing"); !errors.Is(err, ErrStatus) {
		t.Errorf("got %v, want ErrStatus", err)
	}
}

func TestFetcher_MaxBytes(t *testing.T) {
	srv := newServer(t)
	p, err := New(WithUserAgent("test-agent"), WithMaxBytes(64)).Get(context.Background(), srv.URL+"/article")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(p.HTML) != 64 {
		t.Errorf("body: got %d bytes, want 64", len(p.HTML))
	}
}

func TestLoader(t *testing.T) {
	srv := newServer(t)
	rendered := strings.Replace(shell, `<div id="root"></div>`, `<div id="root"><p>rendered</p></div>`, 1)

	tests := []struct {
		name         string
		mode         Mode
		path         string
		renderErr    error
		wantRendered bool
		wantCalls    int
	}{
		{"auto static", ModeAuto, "/article", nil, false, 0},
		{"auto shell", ModeAuto, "/app", nil, true, 1},
		{"auto render fails", ModeAuto, "/app", errors.New("chrome gone"), false, 1},
		{"never", ModeNever, "/app", nil, false, 0},
		{"always", ModeAlways, "/article", nil, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRenderer{out: rendered, err: tt.renderErr}
			l := NewLoader(New(WithUserAgent("test-agent")), r, tt.mode, nil)
			p, err := l.Load(context.Background(), srv.URL+tt.path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if p.Rendered != tt.wantRendered {
				t.Errorf("rendered: got %v, want %v", p.Rendered, tt.wantRendered)
			}
			if r.calls != tt.wantCalls {
				t.Errorf("renderer calls: got %d, want %d", r.calls, tt.wantCalls)
			}
			if tt.wantRendered && !strings.Contains(string(p.HTML), "<p>rendered</p>") {
				t.Errorf("html: %s", p.HTML)
			}
		})
	}
}

func TestLoader_AlwaysWithoutRenderer(t *testing.T) {
	l := NewLoader(New(), nil, ModeAlways, nil)
	if _, err := l.Load(context.Background(), "http://127.0.0.1:1/"); !errors.Is(err, ErrNoBrowser) {
		t.Errorf("got %v, want ErrNoBrowser", err)
	}
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"", "auto", "never", "always"} {
		if _, err := ParseMode(s); err != nil {
			t.Errorf("ParseMode(%q): %v", s, err)
		}
	}
	if _, err := ParseMode("sometimes"); !errors.Is(err, ErrMode) {
		t.Errorf("got %v, want ErrMode", err)
	}
}
