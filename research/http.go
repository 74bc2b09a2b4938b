// CLAUDE:SUMMARY chi router for the manager API: security headers, body limit, bcrypt basic auth, JSON handlers and export downloads.
package research

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/skylight/annotation"
	"github.com/hazyhaar/skylight/export"
	"github.com/hazyhaar/skylight/kit"
)

// HeaderConfig defines the security headers applied to every response.
type HeaderConfig struct {
	CSP                 string
	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
}

// DefaultHeaders returns the manager's header configuration.
func DefaultHeaders() HeaderConfig {
	return HeaderConfig{
		CSP:                 "default-src 'self'; frame-ancestors 'none'",
		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		ReferrerPolicy:      "no-referrer",
	}
}

// SecurityHeaders returns middleware that sets cfg on every response.
func SecurityHeaders(cfg HeaderConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.XContentTypeOptions != "" {
				w.Header().Set("X-Content-Type-Options", cfg.XContentTypeOptions)
			}
			if cfg.XFrameOptions != "" {
				w.Header().Set("X-Frame-Options", cfg.XFrameOptions)
			}
			if cfg.ReferrerPolicy != "" {
				w.Header().Set("Referrer-Policy", cfg.ReferrerPolicy)
			}
			if cfg.CSP != "" {
				w.Header().Set("Content-Security-Policy", cfg.CSP)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HashPassword returns the bcrypt hash to put in auth.password_hash.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Authenticate enforces the configured credentials. Without a password hash
// every request is let through.
func (s *Service) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Auth.PasswordHash == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(s.cfg.Auth.User)) != 1 ||
			bcrypt.CompareHashAndPassword([]byte(s.cfg.Auth.PasswordHash), []byte(pass)) != nil {
			s.logger.Warn("research: authentication failed", "remote", r.RemoteAddr, "user", user)
			w.Header().Set("WWW-Authenticate", `Basic realm="skylight"`)
			writeError(w, http.StatusUnauthorized, ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(kit.WithUser(r.Context(), user)))
	})
}

func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := kit.WithTransport(r.Context(), "http")
		ctx = kit.WithRequestID(ctx, middleware.GetReqID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// MCPHandler serves srv over streamable HTTP behind the same credentials as
// the API.
func (s *Service) MCPHandler(srv *mcp.Server) http.Handler {
	h := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil)
	return middleware.RequestID(s.Authenticate(h))
}

// Router returns the manager HTTP API.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.GetHead)
	r.Use(SecurityHeaders(DefaultHeaders()))
	r.Use(middleware.RequestSize(1 << 20))
	r.Use(requestContext)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.Authenticate)

		r.Route("/api/annotations", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				list, err := s.Annotations(r.Context(), queryOf(r))
				if err != nil {
					writeServiceError(w, err)
					return
				}
				if list == nil {
					list = []annotation.Annotation{}
				}
				writeJSON(w, http.StatusOK, list)
			})
			r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
				if err := s.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
					writeServiceError(w, err)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})
			r.Put("/{id}/projects/{project}", s.tagHandler(true))
			r.Delete("/{id}/projects/{project}", s.tagHandler(false))
		})

		r.Get("/api/sources", func(w http.ResponseWriter, r *http.Request) {
			sources, err := s.Sources(r.Context(), queryOf(r))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			if sources == nil {
				sources = []export.Source{}
			}
			writeJSON(w, http.StatusOK, sources)
		})
		r.Post("/api/sources/tags", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				URL     string `json:"url"`
				Project string `json:"project"`
				On      bool   `json:"on"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
				return
			}
			n, err := s.TagURL(r.Context(), body.URL, body.Project, body.On)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]int{"updated": n})
		})

		r.Route("/api/projects", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				projects, err := s.Projects(r.Context())
				if err != nil {
					writeServiceError(w, err)
					return
				}
				writeJSON(w, http.StatusOK, projects)
			})
			r.Post("/", func(w http.ResponseWriter, r *http.Request) {
				var body struct {
					Name string `json:"name"`
				}
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
					return
				}
				if err := s.AddProject(r.Context(), body.Name); err != nil {
					writeServiceError(w, err)
					return
				}
				writeJSON(w, http.StatusCreated, map[string]string{"name": body.Name})
			})
		})

		r.Get("/api/search", func(w http.ResponseWriter, r *http.Request) {
			hits, err := s.Search(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit", 20))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, hits)
		})

		r.Get("/api/export/markdown", func(w http.ResponseWriter, r *http.Request) {
			q := queryOf(r)
			w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(q.Project)))
			if err := s.ExportMarkdown(r.Context(), w, q); err != nil {
				s.logger.Error("research: markdown export", "error", err)
				writeServiceError(w, err)
			}
		})
		r.Get("/api/export/json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := s.ExportJSON(r.Context(), w, queryOf(r)); err != nil {
				s.logger.Error("research: json export", "error", err)
				writeServiceError(w, err)
			}
		})
	})
	return r
}

func (s *Service) tagHandler(on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Tag(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "project"), on); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func queryOf(r *http.Request) annotation.Query {
	v := r.URL.Query()
	return annotation.Query{Project: v.Get("project"), URLGlob: v.Get("url")}
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Status already sent.
		slog.Debug("research: write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, annotation.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, annotation.ErrInvalidProject),
		errors.Is(err, annotation.ErrBadGlob),
		errors.Is(err, ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
