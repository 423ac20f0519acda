package server

import (
	_ "embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/integbuilder/internal/analyzer"
	"github.com/yourorg/integbuilder/internal/config"
	"github.com/yourorg/integbuilder/internal/generator"
	"github.com/yourorg/integbuilder/internal/highlight"
	"github.com/yourorg/integbuilder/internal/store"
	"github.com/yourorg/integbuilder/internal/workflow"
	"github.com/yourorg/integbuilder/pkg/types"
)

var (
	//go:embed ui.html
	uiHTML string

	uiTemplate = template.Must(template.New("ui").Parse(uiHTML))
)

// Server wraps the workflow UI and API handlers.
type Server struct {
	cfg    *config.Config
	store  store.Store
	gen    *generator.Generator
	logger *zap.Logger
	mux    *http.ServeMux
}

type uiData struct {
	WorkflowID string
	DemoMode   bool
}

// New constructs a Server with routes registered.
func New(cfg *config.Config, st store.Store, gen *generator.Generator, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if st == nil {
		return nil, errors.New("store is nil")
	}
	if gen == nil {
		return nil, errors.New("generator is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := &Server{
		cfg:    cfg,
		store:  st,
		gen:    gen,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	srv.registerRoutes()
	return srv, nil
}

// Handler returns the http handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/workflow/", s.handleWorkflowPage)

	s.mux.HandleFunc("/api/workflows", s.handleWorkflows)
	s.mux.HandleFunc("/api/workflows/", s.handleWorkflowRoutes)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.renderUI(w, "")
}

func (s *Server) handleWorkflowPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, tail, ok := splitPath(r.URL.Path, "/workflow/")
	if !ok || id == "" || tail != "" {
		http.NotFound(w, r)
		return
	}
	s.renderUI(w, id)
}

func (s *Server) handleWorkflows(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		workflows, err := s.store.ListWorkflows()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, workflows)
	case http.MethodPost:
		wf, err := s.store.CreateWorkflow(types.AuthMethod(s.cfg.Workflow.DefaultAuth), s.cfg.Workflow.DefaultLanguage)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.logger.Info("workflow created", zap.String("workflow_id", wf.ID))
		writeJSON(w, http.StatusCreated, wf)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleWorkflowRoutes(w http.ResponseWriter, r *http.Request) {
	id, tail, ok := splitPath(r.URL.Path, "/api/workflows/")
	if !ok || id == "" {
		http.NotFound(w, r)
		return
	}
	switch tail {
	case "":
		s.handleWorkflowDetail(w, r, id)
	case "configure":
		s.handleConfigure(w, r, id)
	case "generate":
		s.handleGenerate(w, r, id)
	case "advance":
		s.handleEvent(w, r, id, workflow.Advance{})
	case "test":
		s.handleTest(w, r, id)
	case "deploy":
		s.handleEvent(w, r, id, workflow.Deploy{Now: time.Now().UTC()})
	case "reset":
		s.handleEvent(w, r, id, workflow.Reset{
			DefaultAuth:     types.AuthMethod(s.cfg.Workflow.DefaultAuth),
			DefaultLanguage: s.cfg.Workflow.DefaultLanguage,
		})
	case "code":
		s.handleCode(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleWorkflowDetail(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		wf, err := s.store.GetWorkflow(id)
		if err != nil {
			http.Error(w, "workflow not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, wf)
	case http.MethodDelete:
		if _, err := s.store.GetWorkflow(id); err != nil {
			http.Error(w, "workflow not found", http.StatusNotFound)
			return
		}
		if err := s.store.DeleteWorkflow(id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		DocURL     string `json:"doc_url"`
		AuthMethod string `json:"auth_method"`
		Language   string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.handleEvent(w, r, id, workflow.Configure{
		DocURL:     req.DocURL,
		AuthMethod: types.AuthMethod(req.AuthMethod),
		Language:   req.Language,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	wf, err := s.store.GetWorkflow(id)
	if err != nil {
		http.Error(w, "workflow not found", http.StatusNotFound)
		return
	}
	if wf.Step != types.StepGenerate {
		http.Error(w, "workflow is not at the generate step", http.StatusConflict)
		return
	}

	// Blocks until the upstream call returns or the request is cancelled.
	res, genErr := s.gen.Generate(r.Context(), wf.DocURL, wf.AuthMethod, wf.Language)

	rec := &types.GenerationRecord{WorkflowID: wf.ID}
	var ev workflow.Event
	if genErr != nil {
		rec.Status = "failed"
		rec.ErrorMsg = genErr.Error()
		rec.Model = s.gen.Model()
		ev = workflow.GenerationFailed{Message: genErr.Error()}
		s.logger.Warn("generation failed", zap.String("workflow_id", wf.ID), zap.Error(genErr))
	} else {
		rec.Status = "ok"
		rec.Model = res.Model
		rec.DemoMode = res.DemoMode
		rec.DurationMs = res.Duration.Milliseconds()
		rec.RawOutput = res.Code
		ev = workflow.GenerationSucceeded{
			Code:     res.Code,
			DemoMode: res.DemoMode,
			Insights: res.Insights,
			Quality:  analyzer.AnalyzeQuality(res.Code),
		}
	}
	if err := s.store.SaveGeneration(rec); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.applyAndRespond(w, *wf, ev)
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	wf, err := s.store.GetWorkflow(id)
	if err != nil {
		http.Error(w, "workflow not found", http.StatusNotFound)
		return
	}
	result := analyzer.RunSandbox(wf.Code, time.Now().UTC())
	s.applyAndRespond(w, *wf, workflow.TestsRun{Result: result})
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request, id string, ev workflow.Event) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	wf, err := s.store.GetWorkflow(id)
	if err != nil {
		http.Error(w, "workflow not found", http.StatusNotFound)
		return
	}
	s.applyAndRespond(w, *wf, ev)
}

func (s *Server) applyAndRespond(w http.ResponseWriter, wf types.Workflow, ev workflow.Event) {
	next, err := workflow.Apply(wf, ev)
	if err != nil {
		http.Error(w, err.Error(), eventErrorStatus(err))
		return
	}
	if err := s.store.SaveWorkflow(&next); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

func (s *Server) handleCode(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	wf, err := s.store.GetWorkflow(id)
	if err != nil {
		http.Error(w, "workflow not found", http.StatusNotFound)
		return
	}
	if wf.Code == "" {
		http.Error(w, "no generated code", http.StatusNotFound)
		return
	}
	out, err := highlight.HTML(wf.Code, wf.Language)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(out))
}

func (s *Server) renderUI(w http.ResponseWriter, workflowID string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_ = uiTemplate.Execute(w, uiData{WorkflowID: workflowID, DemoMode: s.cfg.DemoMode()})
}

func eventErrorStatus(err error) int {
	switch {
	case errors.Is(err, workflow.ErrDeployBlocked), errors.Is(err, workflow.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrEmptyURL), errors.Is(err, workflow.ErrBadAuthMethod):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func splitPath(fullPath, prefix string) (string, string, bool) {
	if !strings.HasPrefix(fullPath, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(fullPath, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	tail := ""
	if len(parts) > 1 {
		tail = strings.Join(parts[1:], "/")
	}
	return id, tail, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
