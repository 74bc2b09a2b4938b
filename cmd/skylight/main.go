// CLAUDE:SUMMARY CLI entry point for skylight: highlight, remove, note, restore, fetch and export pages; serve the research manager (HTTP + MCP).
// Command skylight annotates web pages and manages the stored research.
//
// Usage:
//
//	skylight fetch     -url URL                              # print the loaded page
//	skylight restore   -url URL [-file page.html]            # repaint stored annotations
//	skylight highlight -url URL -quote TEXT [-color C] [-note N] [-project P]
//	skylight remove    -url URL -quote TEXT [-whole]
//	skylight note      -url URL -id ID -text NOTE
//	skylight export    [-project P] [-format markdown|json] [-o FILE]
//	skylight serve     [-mcp none|stdio|http]
//
// Every subcommand accepts -config, -db and -log-level.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/skylight/annotation"
	"github.com/hazyhaar/skylight/dom"
	"github.com/hazyhaar/skylight/export"
	"github.com/hazyhaar/skylight/fetch"
	"github.com/hazyhaar/skylight/idgen"
	"github.com/hazyhaar/skylight/page"
	"github.com/hazyhaar/skylight/research"
	"github.com/hazyhaar/skylight/store"
)

const usage = "usage: skylight <fetch|restore|highlight|remove|note|export|serve> [flags]"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cmd, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		slog.Error("skylight: fatal", "command", cmd, "error", err)
		os.Exit(1)
	}
}

// env is shared by every subcommand.
type env struct {
	cfg    *research.Config
	logger *slog.Logger
	db     *store.SQLite
	repo   *annotation.Repository
}

func (e *env) close() {
	if e.db != nil {
		e.db.Close()
	}
}

// common registers the shared flags and returns a function that resolves
// them once fs is parsed.
func common(fs *flag.FlagSet) func() (*env, error) {
	configPath := fs.String("config", "", "path to skylight.yaml config file")
	dbPath := fs.String("db", "", "path to SQLite database (overrides config)")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	return func() (*env, error) {
		var level slog.Level
		switch *logLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		cfg := research.DefaultConfig()
		if *configPath != "" {
			c, err := research.LoadConfigFile(*configPath)
			if err != nil {
				return nil, fmt.Errorf("config: %w", err)
			}
			cfg = c
		}
		if *dbPath != "" {
			cfg.DBPath = *dbPath
		}
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		return &env{cfg: cfg, logger: logger, db: db, repo: annotation.NewRepository(db, logger)}, nil
	}
}

func run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "fetch":
		return runFetch(ctx, args)
	case "restore":
		return runRestore(ctx, args)
	case "highlight":
		return runHighlight(ctx, args)
	case "remove":
		return runRemove(ctx, args)
	case "note":
		return runNote(ctx, args)
	case "export":
		return runExport(ctx, args)
	case "serve":
		return runServe(ctx, args)
	}
	fmt.Fprintln(os.Stderr, usage)
	return flag.ErrHelp
}

// pageFlags are the flags of every subcommand working on one page.
type pageFlags struct {
	url  *string
	file *string
	out  *string
}

func addPageFlags(fs *flag.FlagSet) pageFlags {
	return pageFlags{
		url:  fs.String("url", "", "page URL (identity of the annotations)"),
		file: fs.String("file", "", "read the page from this HTML file instead of fetching it"),
		out:  fs.String("o", "", "write the resulting HTML here (default stdout)"),
	}
}

func loader(e *env) (*fetch.Loader, func(), error) {
	mode, err := fetch.ParseMode(e.cfg.Fetch.Render)
	if err != nil {
		return nil, nil, err
	}
	f := fetch.New(
		fetch.WithClient(&http.Client{Timeout: e.cfg.Fetch.Timeout}),
		fetch.WithUserAgent(e.cfg.Fetch.UserAgent),
		fetch.WithMaxBytes(e.cfg.Fetch.MaxBytes),
		fetch.WithLogger(e.logger),
	)
	if mode == fetch.ModeNever {
		return fetch.NewLoader(f, nil, mode, e.logger), func() {}, nil
	}
	b := fetch.NewBrowser(fetch.BrowserConfig{
		RemoteURL: os.Getenv("SKYLIGHT_CHROME_URL"),
		Timeout:   e.cfg.Fetch.Timeout,
		Logger:    e.logger,
	})
	return fetch.NewLoader(f, b, mode, e.logger), func() { b.Close() }, nil
}

func loadDocument(ctx context.Context, e *env, pf pageFlags) (*dom.Document, error) {
	if *pf.url == "" {
		return nil, errors.New("-url is required")
	}
	if *pf.file != "" {
		fh, err := os.Open(*pf.file)
		if err != nil {
			return nil, err
		}
		defer fh.Close()
		return dom.Parse(fh)
	}
	l, closeFn, err := loader(e)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	p, err := l.Load(ctx, *pf.url)
	if err != nil {
		return nil, err
	}
	return p.Document()
}

// openSession loads the page and repaints its stored annotations.
func openSession(ctx context.Context, e *env, pf pageFlags) (*page.Session, error) {
	doc, err := loadDocument(ctx, e, pf)
	if err != nil {
		return nil, err
	}
	gen := idgen.UUIDv7()
	if e.cfg.Highlight.IDFormat == "epoch" {
		gen = idgen.Epoch(9)
	}
	s := page.New(doc, *pf.url, e.repo,
		page.WithLogger(e.logger),
		page.WithIDGenerator(gen),
		page.WithConfig(page.Config{
			DefaultColor:     e.cfg.Highlight.DefaultColor,
			DefaultProject:   e.cfg.Highlight.DefaultProject,
			MinFragmentRunes: e.cfg.Highlight.MinFragmentRunes,
			Settle:           e.cfg.Watch.Settle,
			MaxBuffer:        e.cfg.Watch.MaxBuffer,
		}),
	)
	rep, err := s.Restore(ctx)
	if err != nil {
		return nil, err
	}
	e.logger.Info("skylight: page ready", "url", *pf.url, "restored", rep.Restored, "missing", rep.Missing)
	return s, nil
}

func output(path, content string) error {
	var w io.Writer = os.Stdout
	if path != "" {
		fh, err := os.Create(path)
		if err != nil {
			return err
		}
		defer fh.Close()
		w = fh
	}
	_, err := io.WriteString(w, content)
	return err
}

func runFetch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	resolve := common(fs)
	pf := addPageFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := resolve()
	if err != nil {
		return err
	}
	defer e.close()
	doc, err := loadDocument(ctx, e, pf)
	if err != nil {
		return err
	}
	return output(*pf.out, doc.String())
}

func runRestore(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	resolve := common(fs)
	pf := addPageFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := resolve()
	if err != nil {
		return err
	}
	defer e.close()
	s, err := openSession(ctx, e, pf)
	if err != nil {
		return err
	}
	return output(*pf.out, s.HTML())
}

func runHighlight(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("highlight", flag.ContinueOnError)
	resolve := common(fs)
	pf := addPageFlags(fs)
	quote := fs.String("quote", "", "text to highlight")
	nth := fs.Int("nth", 0, "occurrence of the quote (0-based)")
	color := fs.String("color", "", "highlight color (default from config)")
	note := fs.String("note", "", "note attached to the highlight")
	project := fs.String("project", "", "project tag (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := resolve()
	if err != nil {
		return err
	}
	defer e.close()
	s, err := openSession(ctx, e, pf)
	if err != nil {
		return err
	}
	if err := s.SelectText(*quote, *nth); err != nil {
		return err
	}
	a, err := s.Highlight(ctx, s.Context(*project), *color, false)
	if err != nil {
		return err
	}
	if *note != "" {
		if err := s.EditNote(ctx, a.ID, *note); err != nil {
			return err
		}
	}
	e.logger.Info("skylight: highlighted", "id", a.ID, "color", a.Color)
	return output(*pf.out, s.HTML())
}

func runRemove(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ContinueOnError)
	resolve := common(fs)
	pf := addPageFlags(fs)
	quote := fs.String("quote", "", "text to clear")
	nth := fs.Int("nth", 0, "occurrence of the quote (0-based)")
	whole := fs.Bool("whole", false, "remove every annotation touching the quote start, whole")
	id := fs.String("id", "", "remove annotation by id instead of by quote")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := resolve()
	if err != nil {
		return err
	}
	defer e.close()
	s, err := openSession(ctx, e, pf)
	if err != nil {
		return err
	}
	if *id != "" {
		if err := s.RemoveAnnotation(ctx, *id); err != nil {
			return err
		}
		return output(*pf.out, s.HTML())
	}
	if err := s.SelectText(*quote, *nth); err != nil {
		return err
	}
	oc := s.Context("")
	if *whole {
		_, err = s.RemoveAtCursor(ctx, oc)
	} else {
		_, err = s.Remove(ctx, oc)
	}
	if err != nil {
		return err
	}
	return output(*pf.out, s.HTML())
}

func runNote(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("note", flag.ContinueOnError)
	resolve := common(fs)
	pf := addPageFlags(fs)
	id := fs.String("id", "", "annotation id")
	text := fs.String("text", "", "note text (empty clears the note)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := resolve()
	if err != nil {
		return err
	}
	defer e.close()
	if *id == "" {
		return errors.New("-id is required")
	}
	s, err := openSession(ctx, e, pf)
	if err != nil {
		return err
	}
	if err := s.EditNote(ctx, *id, *text); err != nil {
		return err
	}
	return output(*pf.out, s.HTML())
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	resolve := common(fs)
	project := fs.String("project", "", "project to export (empty: everything)")
	urlGlob := fs.String("url", "", "glob on annotation URLs")
	format := fs.String("format", "markdown", "markdown or json")
	out := fs.String("o", "", "output file (default stdout; \"-\" for the project file name)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := resolve()
	if err != nil {
		return err
	}
	defer e.close()

	path := *out
	if path == "-" {
		path = export.FileName(*project)
	}
	var w io.Writer = os.Stdout
	if path != "" {
		fh, err := os.Create(path)
		if err != nil {
			return err
		}
		defer fh.Close()
		w = fh
	}

	svc := research.NewService(e.repo, e.cfg, e.logger)
	q := annotation.Query{Project: *project, URLGlob: *urlGlob}
	switch *format {
	case "markdown", "md":
		return svc.ExportMarkdown(ctx, w, q)
	case "json":
		return svc.ExportJSON(ctx, w, q)
	}
	return fmt.Errorf("unknown format %q", *format)
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	resolve := common(fs)
	listen := fs.String("listen", "", "listen address (overrides config)")
	mcpMode := fs.String("mcp", "http", "MCP transport: none, stdio or http (mounted at /mcp)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := resolve()
	if err != nil {
		return err
	}
	defer e.close()
	if *listen != "" {
		e.cfg.Listen = *listen
	}

	svc := research.NewService(e.repo, e.cfg, e.logger)
	mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "skylight", Version: "1.0.0"}, nil)
	svc.RegisterMCP(mcpSrv)

	r := chi.NewRouter()
	switch *mcpMode {
	case "none":
	case "http":
		r.Handle("/mcp", svc.MCPHandler(mcpSrv))
	case "stdio":
		go func() {
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				e.logger.Error("skylight: mcp stdio", "error", err)
			}
		}()
	default:
		return fmt.Errorf("unknown mcp transport %q", *mcpMode)
	}
	r.Mount("/", svc.Router())

	srv := &http.Server{
		Addr:              e.cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		e.logger.Info("skylight: server starting", "addr", e.cfg.Listen, "mcp", *mcpMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	e.logger.Info("skylight: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
