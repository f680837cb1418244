package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"chartmaster/exporter"
	"chartmaster/generator"
	"chartmaster/renderer"
)

//go:embed web
var embeddedStatic embed.FS

const (
	DefaultStoreSize = 128

	maxBodyBytes = 64 << 10
	// 生成失败时给前端的兜底提示。
	msgGenericFailure = "Failed to generate chart. Please try again."
)

// Generator produces a diagram from a description.
type Generator interface {
	Generate(ctx context.Context, description string) (generator.DiagramResult, error)
}

// Renderer draws sanitized markup as SVG.
type Renderer interface {
	Render(ctx context.Context, markup string) (renderer.Result, error)
}

// Exporter builds downloadable artifacts.
type Exporter interface {
	Export(ctx context.Context, format exporter.Format, markup, explanation, svg string) (exporter.Artifact, error)
}

// Options tunes a Server. Zero values pick defaults.
type Options struct {
	StoreSize int
	Logger    logrus.FieldLogger
}

type Server struct {
	gen      Generator
	render   Renderer
	export   Exporter
	store    *diagramStore
	staticFS http.Handler
	log      logrus.FieldLogger
}

// New wires the HTTP surface. render may be nil: the page then draws diagrams
// in the browser and PNG export is unavailable.
func New(gen Generator, render Renderer, export Exporter, opts Options) (*Server, error) {
	if gen == nil {
		return nil, errors.New("generator required")
	}
	if export == nil {
		return nil, errors.New("exporter required")
	}

	sub, err := fs.Sub(embeddedStatic, "web")
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Server{
		gen:      gen,
		render:   render,
		export:   export,
		store:    newStore(opts.StoreSize),
		staticFS: http.FileServer(http.FS(sub)),
		log:      log.WithField("component", "server"),
	}, nil
}

func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/diagrams", s.handleGenerate).Methods(http.MethodPost)
	api.HandleFunc("/render", s.handleRender).Methods(http.MethodPost)
	api.HandleFunc("/diagrams/{id}", s.handleGet).Methods(http.MethodGet)
	api.HandleFunc("/diagrams/{id}/export/{format}", s.handleExport).Methods(http.MethodGet)
	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found", "")
	})

	r.PathPrefix("/").Handler(s.staticFS).Methods(http.MethodGet, http.MethodHead)
	// Wrap the router, not r.Use: mux skips route middleware on 404 and 405.
	return logMiddleware(s.log)(r)
}

// --- Handlers ---

type generateReq struct {
	Prompt string `json:"prompt"`
}

type renderReq struct {
	Code string `json:"code"`
}

// diagramResp is a Diagram plus the failure, if rendering failed. The code
// is always returned so the user can still copy or fix it.
type diagramResp struct {
	Diagram
	ClientRender bool   `json:"client_render"`
	Error        string `json:"error,omitempty"`
	Kind         string `json:"kind,omitempty"`
}

type errorResp struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"renderer": s.render != nil,
		"diagrams": s.store.len(),
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateReq
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required", "")
		return
	}

	res, err := s.gen.Generate(r.Context(), prompt)
	if err != nil {
		var gerr *generator.GenerationError
		if errors.As(err, &gerr) {
			writeError(w, http.StatusBadGateway, gerr.Message, gerr.Kind.String())
			return
		}
		s.log.WithError(err).Error("generator returned an untyped error")
		writeError(w, http.StatusBadGateway, msgGenericFailure, generator.KindUnknown.String())
		return
	}

	d := Diagram{
		ID:          uuid.NewString(),
		Prompt:      prompt,
		Code:        generator.Sanitize(res.Markup),
		Explanation: res.Explanation,
		CreatedAt:   time.Now(),
	}
	if html, err := exporter.RenderExplanation(res.Explanation); err != nil {
		s.log.WithError(err).Warn("explanation markdown failed")
	} else {
		d.ExplanationHTML = html
	}
	s.finish(w, r, d)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderReq
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	code := generator.Sanitize(req.Code)
	if code == "" {
		writeError(w, http.StatusBadRequest, "code is required", "")
		return
	}
	s.finish(w, r, Diagram{ID: uuid.NewString(), Code: code, CreatedAt: time.Now()})
}

// finish renders d, stores it whatever the outcome, and writes the response.
func (s *Server) finish(w http.ResponseWriter, r *http.Request, d Diagram) {
	if s.render == nil {
		s.store.put(d)
		writeJSON(w, http.StatusOK, diagramResp{Diagram: d, ClientRender: true})
		return
	}

	out, err := s.render.Render(r.Context(), d.Code)
	if err != nil {
		s.store.put(d)
		msg, kind := "Render Error: "+err.Error(), renderer.KindRender.String()
		var rerr *renderer.Error
		if errors.As(err, &rerr) {
			msg, kind = rerr.Message, rerr.Kind.String()
		}
		s.log.WithFields(logrus.Fields{"diagram_id": d.ID, "kind": kind}).WithError(err).Warn("render failed")
		writeJSON(w, http.StatusUnprocessableEntity, diagramResp{Diagram: d, Error: msg, Kind: kind})
		return
	}

	d.SVG, d.RenderID = out.SVG, out.ID
	s.store.put(d)
	writeJSON(w, http.StatusOK, diagramResp{Diagram: d})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	d, ok := s.store.get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "diagram not found", "")
		return
	}
	writeJSON(w, http.StatusOK, diagramResp{Diagram: d, ClientRender: s.render == nil})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	format, err := exporter.ParseFormat(vars["format"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	d, ok := s.store.get(vars["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "diagram not found", "")
		return
	}

	art, err := s.export.Export(r.Context(), format, d.Code, d.Explanation, d.SVG)
	if err != nil {
		status, kind := exportStatus(err)
		s.log.WithFields(logrus.Fields{"diagram_id": d.ID, "format": string(format)}).WithError(err).Warn("export failed")
		writeError(w, status, err.Error(), kind)
		return
	}

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Data)
}

func exportStatus(err error) (int, string) {
	var rerr *renderer.Error
	switch {
	case errors.Is(err, exporter.ErrNothingToExport):
		return http.StatusConflict, ""
	case errors.Is(err, exporter.ErrNoRasterizer):
		return http.StatusNotImplemented, renderer.KindUnavailable.String()
	case errors.As(err, &rerr):
		return http.StatusUnprocessableEntity, rerr.Kind.String()
	default:
		return http.StatusInternalServerError, ""
	}
}

// --- Helpers ---

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	writeJSON(w, status, errorResp{Error: msg, Kind: kind})
}
