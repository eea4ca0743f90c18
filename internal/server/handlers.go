package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jonathan/longform-writer/internal/pipeline"
	"github.com/jonathan/longform-writer/internal/store"
	"github.com/jonathan/longform-writer/internal/types"
)

// SubmitRunRequest is the request body for POST /runs
type SubmitRunRequest struct {
	types.DocumentRequest

	Concurrency int  `json:"concurrency,omitempty"`
	SkipReview  bool `json:"skip_review,omitempty"`
	UseBrowser  bool `json:"use_browser,omitempty"`
}

// SubmitRunResponse is the response body for POST /runs
type SubmitRunResponse struct {
	Status string `json:"status"`
	Topic  string `json:"topic"`
}

// RunStatusResponse describes a stored run
type RunStatusResponse struct {
	RunID       string `json:"run_id"`
	Topic       string `json:"topic"`
	Kind        string `json:"kind"`
	TargetWords int    `json:"target_words"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

func (s *Server) runOptions(req SubmitRunRequest) pipeline.RunOptions {
	return pipeline.RunOptions{
		Request:     req.DocumentRequest,
		APIKey:      s.apiKey,
		Provider:    s.provider,
		DatabaseURL: s.databaseURL,
		OutputDir:   s.outputDir,
		Concurrency: req.Concurrency,
		SkipReview:  req.SkipReview,
		UseBrowser:  req.UseBrowser,
		Verbose:     true,
	}
}

// handleSubmitRun starts a generation run in the background. The run ID is
// assigned by the pipeline once planning succeeds; clients discover it
// through GET /runs or by using the streaming endpoint instead.
func (s *Server) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	var req SubmitRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validator.Struct(req.DocumentRequest); err != nil {
		s.errorResponse(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	opts := s.runOptions(req)
	log.Printf("Starting run for topic %q", req.Topic)

	go func() {
		if _, err := pipeline.Run(context.Background(), opts); err != nil {
			log.Printf("Run failed for topic %q: %v", req.Topic, err)
		}
	}()

	s.jsonResponse(w, http.StatusAccepted, SubmitRunResponse{
		Status: "started",
		Topic:  req.Topic,
	})
}

// handleSubmitRunStream runs the pipeline synchronously and streams progress
// via Server-Sent Events.
func (s *Server) handleSubmitRunStream(w http.ResponseWriter, r *http.Request) {
	var req SubmitRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validator.Struct(req.DocumentRequest); err != nil {
		s.errorResponse(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	opts := s.runOptions(req)
	opts.OnProgress = func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("progress", event); err != nil {
			log.Printf("Error writing SSE event: %v", err)
		}
	}

	result, err := pipeline.Run(r.Context(), opts)
	if err != nil {
		log.Printf("Streaming run failed: %v", err)
		sse.WriteError(err.Error())
		return
	}

	sse.WriteComplete(result.RunID.String(), "completed", result.Plan.MeasuredWords)
}

// handleListRuns returns recent runs, newest first
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.errorResponse(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.db.ListRuns(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	out := make([]RunStatusResponse, 0, len(runs))
	for i := range runs {
		out = append(out, runResponse(&runs[i]))
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": out})
}

// handleGetRun returns the status of a single run
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.runID(w, r)
	if !ok {
		return
	}

	run, err := s.db.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if run == nil {
		notFound := &ErrRunNotFound{RunID: runID}
		s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, runResponse(run))
}

// handleResumeRun restarts an interrupted run from its last snapshot
func (s *Server) handleResumeRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.runID(w, r)
	if !ok {
		return
	}

	run, err := s.db.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if run == nil {
		notFound := &ErrRunNotFound{RunID: runID}
		s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
		return
	}

	opts := pipeline.RunOptions{
		APIKey:      s.apiKey,
		Provider:    s.provider,
		DatabaseURL: s.databaseURL,
		OutputDir:   s.outputDir,
		Verbose:     true,
	}

	log.Printf("Resuming run %s", runID)
	go func() {
		if _, err := pipeline.Resume(context.Background(), runID, opts); err != nil {
			log.Printf("Resume failed for run %s: %v", runID, err)
		}
	}()

	s.jsonResponse(w, http.StatusAccepted, map[string]string{
		"run_id": runID.String(),
		"status": "resuming",
	})
}

// handleGetPlan returns the stored plan snapshot for a run
func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.runID(w, r)
	if !ok {
		return
	}

	plan, err := s.db.GetPlan(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if plan == nil {
		s.errorResponse(w, http.StatusNotFound, "No plan snapshot for run "+runID.String())
		return
	}
	s.jsonResponse(w, http.StatusOK, plan)
}

// handleGetDocument returns the assembled document for a completed run
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.runID(w, r)
	if !ok {
		return
	}

	doc, err := s.db.GetDocument(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if doc == nil {
		s.errorResponse(w, http.StatusNotFound, "No document for run "+runID.String())
		return
	}
	s.jsonResponse(w, http.StatusOK, doc)
}

func (s *Server) handleExportMarkdown(w http.ResponseWriter, r *http.Request) {
	s.serveTextArtifact(w, r, store.StepMarkdown, "text/markdown; charset=utf-8")
}

func (s *Server) handleExportHTML(w http.ResponseWriter, r *http.Request) {
	s.serveTextArtifact(w, r, store.StepHTML, "text/html; charset=utf-8")
}

func (s *Server) serveTextArtifact(w http.ResponseWriter, r *http.Request, step, contentType string) {
	runID, ok := s.runID(w, r)
	if !ok {
		return
	}

	text, err := s.db.GetTextArtifact(r.Context(), runID, step)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if text == "" {
		s.errorResponse(w, http.StatusNotFound, "No "+step+" export for run "+runID.String())
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(text)); err != nil {
		log.Printf("Error writing export: %v", err)
	}
}

// runID parses the run ID path parameter, writing an error response on failure.
func (s *Server) runID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	runID, err := uuid.Parse(idStr)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid run ID format")
		return uuid.Nil, false
	}
	return runID, true
}

func runResponse(run *store.Run) RunStatusResponse {
	resp := RunStatusResponse{
		RunID:       run.ID.String(),
		Topic:       run.Topic,
		Kind:        run.Kind,
		TargetWords: run.TargetWords,
		Status:      run.Status,
		CreatedAt:   run.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if run.CompletedAt != nil {
		resp.CompletedAt = run.CompletedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}
