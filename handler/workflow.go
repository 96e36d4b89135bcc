package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/hirewatch/scraper-http-service/common"
	"github.com/hirewatch/scraper-http-service/common/models"
	"github.com/hirewatch/scraper-http-service/common/utils"
	"github.com/hirewatch/scraper-http-service/workflow"
)

const sseKeepaliveInterval = 20 * time.Second

type WorkflowHandler struct {
	manager *workflow.Manager
	router  *chi.Mux
}

func NewWorkflowHandler(manager *workflow.Manager) *WorkflowHandler {
	h := &WorkflowHandler{
		manager: manager,
	}

	r := chi.NewRouter()
	r.Post("/", h.handleStartWorkflow)
	r.Get("/", h.handleListWorkflows)
	r.Get("/{id}", h.handleGetWorkflow)
	r.Get("/{id}/events", h.handleStreamEvents)
	r.Delete("/{id}", h.handleCancelWorkflow)

	h.router = r
	return h
}

func (h *WorkflowHandler) Router() *chi.Mux {
	return h.router
}

type StartWorkflowParams struct {
	TargetName   string   `json:"target_name" validate:"required"`
	Keywords     []string `json:"keywords"`
	OracleApiKey string   `json:"oracle_api_key" validate:"required"`
}

// handleStartWorkflow kicks off a scraper-building workflow
// @Summary Start a scraper-building workflow
// @Tags workflows
// @Accept json
// @Produce json
// @Param request body StartWorkflowParams true "Workflow parameters"
// @Success 202 {object} models.BaseResponse{data=models.Workflow}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /v1/workflows [post]
func (h *WorkflowHandler) handleStartWorkflow(w http.ResponseWriter, r *http.Request) {
	var p StartWorkflowParams

	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	validate := validator.New()
	if err := validate.Struct(p); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	wf, err := h.manager.Start(r.Context(), workflow.StartParams{
		TargetName:   p.TargetName,
		Keywords:     p.Keywords,
		OracleApiKey: p.OracleApiKey,
	})
	if err != nil {
		if errors.Is(err, common.ErrWorkflowConflict) {
			utils.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		log.Error().Err(err).Str("target", p.TargetName).Msg("Failed to start workflow")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to start workflow")
		return
	}

	utils.WriteJSON(w, http.StatusAccepted, wf)
}

// handleListWorkflows lists live and recently finished workflows
// @Summary List workflows
// @Tags workflows
// @Produce json
// @Success 200 {object} models.BaseResponse{data=[]models.Workflow}
// @Router /v1/workflows [get]
func (h *WorkflowHandler) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, h.manager.List())
}

// handleGetWorkflow returns one workflow's current state
// @Summary Get a workflow
// @Tags workflows
// @Produce json
// @Param id path string true "Workflow id"
// @Success 200 {object} models.BaseResponse{data=models.Workflow}
// @Failure 404 {object} models.ErrorResponse
// @Router /v1/workflows/{id} [get]
func (h *WorkflowHandler) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	run, err := h.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Workflow not found")
		return
	}

	utils.WriteJSON(w, http.StatusOK, run.Snapshot())
}

// handleCancelWorkflow aborts a running workflow
// @Summary Cancel a workflow
// @Tags workflows
// @Produce json
// @Param id path string true "Workflow id"
// @Success 200 {object} models.BaseResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /v1/workflows/{id} [delete]
func (h *WorkflowHandler) handleCancelWorkflow(w http.ResponseWriter, r *http.Request) {
	run, err := h.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Workflow not found")
		return
	}

	run.Cancel()
	utils.WriteMessage(w, http.StatusOK, "Workflow cancelled")
}

// handleStreamEvents streams a workflow's progress log as server-sent events.
// Past events replay first, then live events until the terminal one.
// @Summary Stream workflow progress
// @Tags workflows
// @Produce text/event-stream
// @Param id path string true "Workflow id"
// @Success 200 {string} string "SSE stream of progress events"
// @Failure 404 {object} models.ErrorResponse
// @Router /v1/workflows/{id}/events [get]
func (h *WorkflowHandler) handleStreamEvents(w http.ResponseWriter, r *http.Request) {
	run, err := h.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Workflow not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	replay, live, cancel := run.Log.Subscribe()
	defer cancel()

	for _, event := range replay {
		if err := writeSSE(w, event); err != nil {
			return
		}
	}
	flusher.Flush()

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, open := <-live:
			if !open {
				return
			}
			if err := writeSSE(w, event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event models.ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Stage, data)
	return err
}
