package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/hirewatch/scraper-http-service/common/db"
	"github.com/hirewatch/scraper-http-service/common/services"
	"github.com/hirewatch/scraper-http-service/common/utils"
	"github.com/hirewatch/scraper-http-service/repository"
)

type JobHandler struct {
	db     *db.DB
	jobs   services.JobService
	router *chi.Mux
}

func NewJobHandler(db *db.DB) *JobHandler {
	h := &JobHandler{
		db:   db,
		jobs: services.NewJobRepository(db.Queries, db.Redis),
	}

	r := chi.NewRouter()
	r.Get("/", h.handleListJobs)

	h.router = r
	return h
}

func (h *JobHandler) Router() *chi.Mux {
	return h.router
}

// handleListJobs returns collected job records, optionally filtered
// @Summary List job records
// @Tags jobs
// @Produce json
// @Param target_id query string false "Filter by target id"
// @Param search query string false "Filter by title substring"
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Success 200 {object} models.BasePaginationResponse{data=[]models.JobRecord}
// @Router /v1/jobs [get]
func (h *JobHandler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)

	jobs, total, err := h.jobs.List(r.Context(), repository.ListJobsParams{
		TargetID: r.URL.Query().Get("target_id"),
		Search:   r.URL.Query().Get("search"),
		Limit:    perPage,
		Offset:   (page - 1) * perPage,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to list jobs")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	utils.WritePagination(w, http.StatusOK, jobs, page, perPage, total)
}
