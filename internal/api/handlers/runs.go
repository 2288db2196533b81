package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"network-design-service/internal/api/dto"
	"network-design-service/internal/domain"
	"network-design-service/internal/ports"
	"network-design-service/internal/services"
)

type RunHandler struct {
	Designer *services.NetworkDesigner
	Store    ports.RunStore
}

// Runs dispatches the /runs collection endpoint.
func (h *RunHandler) Runs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.solve(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// solve validates the request and executes one solve cycle (or the full
// configuration matrix).
func (h *RunHandler) solve(w http.ResponseWriter, r *http.Request) {
	var req dto.SolveRequest

	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	if req.CapacityMode == "" {
		req.CapacityMode = services.ModeFixedCapacity
	}
	if req.CapacityMode != services.ModeFixedCapacity && req.CapacityMode != services.ModeFlexCapacity {
		writeError(w, r, http.StatusBadRequest, "capacity_mode must be fixed-capacity or flex-capacity")
		return
	}
	if req.Periods < 1 {
		writeError(w, r, http.StatusBadRequest, "periods must be at least 1")
		return
	}
	if req.ScenarioCount == 0 {
		req.ScenarioCount = 1
	}
	if req.ScenarioCount < 1 {
		writeError(w, r, http.StatusBadRequest, "scenario_count must be at least 1")
		return
	}
	if req.TimeLimitSeconds < 0 {
		writeError(w, r, http.StatusBadRequest, "time_limit_seconds must be non-negative")
		return
	}

	svcReq := services.SolveRequest{
		InstanceID:           strings.TrimSpace(req.InstanceID),
		CapacityMode:         req.CapacityMode,
		ContinuousAssignment: req.ContinuousAssignment,
		Periods:              req.Periods,
		ScenarioCount:        req.ScenarioCount,
		Evaluation:           req.Evaluation,
		SamplingID:           req.SamplingID,
		TimeLimitSeconds:     req.TimeLimitSeconds,
	}

	if req.Matrix {
		runs, err := h.Designer.SolveMatrix(r.Context(), svcReq)
		if err != nil && len(runs) == 0 {
			log.Error().Err(err).Msg("solve matrix failed")
			writeError(w, r, http.StatusInternalServerError, "internal server error")
			return
		}
		if err != nil {
			log.Warn().Err(err).Msg("solve matrix partially failed")
		}

		res := dto.ListRunResponse{Runs: make([]dto.RunResponse, 0, len(runs))}
		for _, run := range runs {
			res.Runs = append(res.Runs, toRunResponse(run, false))
		}
		writeJSON(w, r, http.StatusOK, res)
		return
	}

	run, err := h.Designer.Solve(r.Context(), svcReq)
	if err != nil {
		log.Error().Err(err).Msg("solve failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, toRunResponse(run, true))
}

func (h *RunHandler) list(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list runs failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListRunResponse{Runs: make([]dto.RunResponse, 0, len(runs))}
	for _, run := range runs {
		res.Runs = append(res.Runs, toRunResponse(run, false))
	}
	writeJSON(w, r, http.StatusOK, res)
}

// Get serves /runs/{id}.
func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/runs/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusBadRequest, "run id is required")
		return
	}

	run, err := h.Store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, ports.ErrRunNotFound) {
			writeError(w, r, http.StatusNotFound, "run not found")
			return
		}
		log.Error().Err(err).Str("run_id", id).Msg("get run failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, toRunResponse(run, true))
}

func toRunResponse(run *domain.SolveRun, withVariables bool) dto.RunResponse {
	res := dto.RunResponse{
		RunID:                run.ID,
		InstanceID:           run.InstanceID,
		CapacityMode:         run.CapacityMode,
		ContinuousAssignment: run.ContinuousAssignment,
		Periods:              run.Periods,
		ScenarioIDs:          run.ScenarioIDs,
		TimeLimitSeconds:     run.TimeLimitSeconds,
		Status:               run.Status,
		Objective:            run.Objective,
		BestBound:            run.BestBound,
		GapPercent:           run.GapPercent,
		RunTimeSeconds:       run.RunTimeSeconds,
		CostInstallation:     run.CostInstallation,
		CostOperating:        run.CostOperating,
		CostFromFacilities:   run.CostFromFacilities,
		CostFromDepot:        run.CostFromDepot,
		CreatedAt:            run.CreatedAt,
	}
	if withVariables {
		res.Variables = run.Variables
	}
	return res
}
