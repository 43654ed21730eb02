package handlers

import (
	"log/slog"
	"net/http"

	"galactic-server/internal/game"
	"galactic-server/internal/job"
	"galactic-server/internal/shared/response"
)

// EmpireHandler serves one empire's view of a game. Every route requires the
// caller to own the empire or be an admin.
type EmpireHandler struct {
	service *game.Service
}

func NewEmpireHandler(service *game.Service) *EmpireHandler {
	return &EmpireHandler{service: service}
}

func (h *EmpireHandler) logger(r *http.Request, handler string) *slog.Logger {
	return slog.With(
		"handler", handler,
		"game_id", r.PathValue("game"),
		"empire_id", r.PathValue("empire"),
	)
}

func (h *EmpireHandler) GetEmpire(w http.ResponseWriter, r *http.Request) {
	logger := h.logger(r, "get_empire")

	a, err := actor(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	e, err := h.service.GetEmpire(r.Context(), a, r.PathValue("game"), r.PathValue("empire"))
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, e)
}

// GetAggregate computes an aggregate; query parameters become its params,
// e.g. ?resource=energy or ?technology=improved_production_2.
func (h *EmpireHandler) GetAggregate(w http.ResponseWriter, r *http.Request) {
	logger := h.logger(r, "get_aggregate").With("aggregate", r.PathValue("aggregate"))

	a, err := actor(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	params := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	agg, err := h.service.Aggregate(r.Context(), a, r.PathValue("game"), r.PathValue("empire"), r.PathValue("aggregate"), params)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, agg)
}

func (h *EmpireHandler) ExplainVariable(w http.ResponseWriter, r *http.Request) {
	logger := h.logger(r, "explain_variable").With("variable", r.PathValue("variable"))

	a, err := actor(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	explanation, err := h.service.ExplainVariable(r.Context(), a, r.PathValue("game"), r.PathValue("empire"), r.PathValue("variable"))
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, explanation)
}

func (h *EmpireHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	logger := h.logger(r, "list_jobs")

	a, err := actor(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	jobs, err := h.service.ListJobs(r.Context(), a, r.PathValue("game"), r.PathValue("empire"))
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if jobs == nil {
		jobs = []*job.Job{}
	}

	response.Success(w, http.StatusOK, jobs)
}

func (h *EmpireHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	logger := h.logger(r, "create_job")

	a, err := actor(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var req job.Request
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	created, err := h.service.CreateJob(r.Context(), a, r.PathValue("game"), r.PathValue("empire"), req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, created)
}

func (h *EmpireHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	logger := h.logger(r, "cancel_job").With("job_id", r.PathValue("job"))

	a, err := actor(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if err := h.service.CancelJob(r.Context(), a, r.PathValue("game"), r.PathValue("empire"), r.PathValue("job")); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusNoContent, nil)
}
