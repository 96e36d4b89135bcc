package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"

	"github.com/hirewatch/scraper-http-service/common/constants"
	"github.com/hirewatch/scraper-http-service/common/db"
	"github.com/hirewatch/scraper-http-service/common/messaging"
	"github.com/hirewatch/scraper-http-service/common/models"
	"github.com/hirewatch/scraper-http-service/common/services"
	"github.com/hirewatch/scraper-http-service/common/utils"
	"github.com/hirewatch/scraper-http-service/repository"
)

type TargetHandler struct {
	db      *db.DB
	broker  *messaging.NatsBroker
	targets services.TargetService
	runLogs services.RunLogService
	router  *chi.Mux
}

func NewTargetHandler(db *db.DB, broker *messaging.NatsBroker) *TargetHandler {
	h := &TargetHandler{
		db:      db,
		broker:  broker,
		targets: services.NewTargetRepository(db.Queries),
		runLogs: services.NewRunLogRepository(db.Queries),
	}

	r := chi.NewRouter()
	r.Get("/", h.handleListTargets)
	r.Post("/", h.handleCreateTarget)
	r.Get("/{name}", h.handleGetTarget)
	r.Post("/run-all", h.handleRunAllTargets)
	r.Post("/{name}/run", h.handleRunTarget)
	r.Get("/{name}/runs", h.handleRunHistory)

	h.router = r
	return h
}

func (h *TargetHandler) Router() *chi.Mux {
	return h.router
}

type CreateTargetParams struct {
	Name          string   `json:"name" validate:"required"`
	CareerPageURL string   `json:"career_page_url" validate:"omitempty,url"`
	Keywords      []string `json:"keywords"`
}

// handleCreateTarget registers a scrape target without starting a workflow
// @Summary Register a target
// @Tags targets
// @Accept json
// @Produce json
// @Param request body CreateTargetParams true "Target parameters"
// @Success 201 {object} models.BaseResponse{data=models.Target}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /v1/targets [post]
func (h *TargetHandler) handleCreateTarget(w http.ResponseWriter, r *http.Request) {
	var p CreateTargetParams

	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	validate := validator.New()
	if err := validate.Struct(p); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.targets.GetByName(r.Context(), p.Name); err == nil {
		utils.WriteError(w, http.StatusConflict, "Target already exists")
		return
	}

	arg := repository.CreateTargetParams{
		ID:       uuid.New().String(),
		Name:     p.Name,
		Keywords: p.Keywords,
		Status:   models.TargetStatusPending,
	}
	if p.CareerPageURL != "" {
		arg.CareerPageURL = pgtype.Text{String: p.CareerPageURL, Valid: true}
	}

	target, err := h.targets.Create(r.Context(), arg)
	if err != nil {
		log.Error().Err(err).Str("name", p.Name).Msg("Failed to create target")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to create target")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, target)
}

// handleListTargets returns a page of registered targets
// @Summary List targets
// @Tags targets
// @Produce json
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Success 200 {object} models.BasePaginationResponse{data=[]models.Target}
// @Router /v1/targets [get]
func (h *TargetHandler) handleListTargets(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)

	targets, total, err := h.targets.List(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list targets")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list targets")
		return
	}

	utils.WritePagination(w, http.StatusOK, targets, page, perPage, total)
}

// handleGetTarget returns one target by name
// @Summary Get a target
// @Tags targets
// @Produce json
// @Param name path string true "Target name"
// @Success 200 {object} models.BaseResponse{data=models.Target}
// @Failure 404 {object} models.ErrorResponse
// @Router /v1/targets/{name} [get]
func (h *TargetHandler) handleGetTarget(w http.ResponseWriter, r *http.Request) {
	target, err := h.targets.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteError(w, http.StatusNotFound, "Target not found")
			return
		}
		log.Error().Err(err).Msg("Failed to get target")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to get target")
		return
	}

	utils.WriteJSON(w, http.StatusOK, target)
}

// handleRunTarget queues an on-demand run of a target's stored configuration
// @Summary Run a target's stored scraper
// @Tags targets
// @Produce json
// @Param name path string true "Target name"
// @Success 202 {object} models.BaseResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /v1/targets/{name}/run [post]
func (h *TargetHandler) handleRunTarget(w http.ResponseWriter, r *http.Request) {
	target, err := h.targets.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Target not found")
		return
	}

	if target.Config.JobContainerSelector == "" {
		utils.WriteError(w, http.StatusConflict, "Target has no stored configuration yet")
		return
	}

	msg, err := json.Marshal(messaging.RunRequest{
		Type:     constants.RunScraperAction,
		TargetID: target.ID,
	})
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to marshal message")
		return
	}

	if err := h.broker.Publish(constants.ScraperRunTopic, msg); err != nil {
		log.Error().Err(err).Str("target", target.Name).Msg("Failed to publish run request")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to queue run")
		return
	}

	utils.WriteMessage(w, http.StatusAccepted, "Run queued")
}

// handleRunAllTargets queues a run for every active target
// @Summary Run every active target's stored scraper
// @Tags targets
// @Produce json
// @Success 202 {object} models.BaseResponse
// @Router /v1/targets/run-all [post]
func (h *TargetHandler) handleRunAllTargets(w http.ResponseWriter, r *http.Request) {
	msg, err := json.Marshal(messaging.RunRequest{
		Type: constants.RunAllScrapersAction,
	})
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to marshal message")
		return
	}

	if err := h.broker.Publish(constants.ScraperRunTopic, msg); err != nil {
		log.Error().Err(err).Msg("Failed to publish run-all request")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to queue runs")
		return
	}

	utils.WriteMessage(w, http.StatusAccepted, "Runs queued for all active targets")
}

// handleRunHistory returns a target's execution history, newest first
// @Summary List a target's run history
// @Tags targets
// @Produce json
// @Param name path string true "Target name"
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Success 200 {object} models.BaseResponse{data=[]models.RunLog}
// @Failure 404 {object} models.ErrorResponse
// @Router /v1/targets/{name}/runs [get]
func (h *TargetHandler) handleRunHistory(w http.ResponseWriter, r *http.Request) {
	target, err := h.targets.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Target not found")
		return
	}

	page, perPage := pagination(r)
	logs, err := h.runLogs.History(r.Context(), target.ID, perPage, (page-1)*perPage)
	if err != nil {
		log.Error().Err(err).Str("target", target.Name).Msg("Failed to list run logs")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list run logs")
		return
	}

	utils.WriteJSON(w, http.StatusOK, logs)
}

func pagination(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}
