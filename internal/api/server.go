package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/contextlab/codectx/internal/config"
	"github.com/contextlab/codectx/internal/project"
	"github.com/contextlab/codectx/internal/retriever"
	"github.com/contextlab/codectx/pkg/types"
)

const maxBodyBytes int64 = 1 * 1024 * 1024

// Server exposes the retriever pipeline over HTTP. The project registry is
// optional; without it the index endpoint requires an explicit root.
type Server struct {
	ret      *retriever.Retriever
	registry *project.Registry
	cfg      config.APIConfig
	log      *slog.Logger
}

// NewServer creates the HTTP server around an assembled retriever.
func NewServer(ret *retriever.Retriever, registry *project.Registry, cfg config.APIConfig) *Server {
	return &Server{
		ret:      ret,
		registry: registry,
		cfg:      cfg,
		log:      slog.Default().With("component", "api"),
	}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(AccessLog(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.cfg.APIKey))

		r.Route("/v1", func(r chi.Router) {
			r.Post("/query", s.handleQuery)
			r.Post("/index", s.handleIndex)
			r.Get("/status", s.handleStatus)
		})
	})

	return r
}

// ListenAndServe runs the server until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type queryRequest struct {
	Query     string   `json:"query"`
	TopK      int      `json:"top_k,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Raw       bool     `json:"raw,omitempty"`
}

type queryResponse struct {
	Results   []types.SearchResult `json:"results"`
	Formatted string               `json:"formatted,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeBody(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Query == "" {
		Error(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	if req.Raw {
		results, err := s.ret.RawQuery(r.Context(), req.Query, req.TopK)
		if err != nil {
			s.queryError(w, err)
			return
		}
		Success(w, http.StatusOK, queryResponse{Results: results})
		return
	}

	formatted, results, err := s.ret.Query(r.Context(), req.Query, req.TopK, req.Threshold)
	if err != nil {
		s.queryError(w, err)
		return
	}
	Success(w, http.StatusOK, queryResponse{Results: results, Formatted: formatted})
}

func (s *Server) queryError(w http.ResponseWriter, err error) {
	if errors.Is(err, types.ErrNotReady) {
		Error(w, http.StatusConflict, "no index built or loaded")
		return
	}
	Error(w, http.StatusInternalServerError, err.Error())
}

type indexRequest struct {
	Root    string `json:"root,omitempty"`
	Project string `json:"project,omitempty"`
	Name    string `json:"name,omitempty"`
	Save    bool   `json:"save,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := decodeBody(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	root := req.Root
	name := req.Name
	if root == "" && req.Project != "" && s.registry != nil {
		p, err := s.registry.Get(r.Context(), req.Project)
		if err != nil {
			if errors.Is(err, project.ErrNotFound) {
				Error(w, http.StatusNotFound, err.Error())
				return
			}
			Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		root = p.Path
		if name == "" {
			name = p.IndexName
		}
	}
	if root == "" {
		Error(w, http.StatusBadRequest, "root or project is required")
		return
	}

	stats, err := s.ret.IndexCodebase(r.Context(), root, retriever.IndexOptions{Name: name, Save: req.Save})
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	Success(w, http.StatusOK, stats)
}

type statusResponse struct {
	Ready     bool   `json:"ready"`
	Chunks    int    `json:"chunks"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	BuildMode string `json:"build_mode"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	provider, model := s.ret.EmbedderInfo()
	Success(w, http.StatusOK, statusResponse{
		Ready:     s.ret.Ready(),
		Chunks:    s.ret.IndexSize(),
		Provider:  provider,
		Model:     model,
		BuildMode: project.BuildMode,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
