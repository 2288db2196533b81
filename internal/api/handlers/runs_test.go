package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"network-design-service/internal/api/dto"
	"network-design-service/internal/domain"
	"network-design-service/internal/ports"
)

type stubRunStore struct {
	runs map[string]*domain.SolveRun
}

func (s *stubRunStore) SaveRun(ctx context.Context, run *domain.SolveRun) error {
	s.runs[run.ID] = run
	return nil
}

func (s *stubRunStore) GetRun(ctx context.Context, id string) (*domain.SolveRun, error) {
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("get run %q: %w", id, ports.ErrRunNotFound)
	}
	return run, nil
}

func (s *stubRunStore) ListRuns(ctx context.Context) ([]*domain.SolveRun, error) {
	out := make([]*domain.SolveRun, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	return out, nil
}

func storedRun() *domain.SolveRun {
	run := domain.NewSolveRun("instance-a")
	run.CapacityMode = "fixed-capacity"
	run.Status = "optimal"
	run.Objective = 577
	run.Variables = map[string]float64{"Y_if1_qbase": 1}
	return run
}

func TestGetRun(t *testing.T) {
	run := storedRun()
	h := &RunHandler{Store: &stubRunStore{runs: map[string]*domain.SolveRun{run.ID: run}}}

	req := httptest.NewRequest(http.MethodGet, "/runs/"+run.ID, nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res dto.RunResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.RunID != run.ID || res.Objective != 577 {
		t.Fatalf("unexpected response: %+v", res)
	}
	if res.Variables["Y_if1_qbase"] != 1 {
		t.Fatalf("expected variables in single-run response, got %v", res.Variables)
	}
}

func TestGetRunNotFound(t *testing.T) {
	h := &RunHandler{Store: &stubRunStore{runs: map[string]*domain.SolveRun{}}}

	req := httptest.NewRequest(http.MethodGet, "/runs/nope", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListRunsOmitsVariables(t *testing.T) {
	run := storedRun()
	h := &RunHandler{Store: &stubRunStore{runs: map[string]*domain.SolveRun{run.ID: run}}}

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	rec := httptest.NewRecorder()
	h.Runs(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res dto.ListRunResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(res.Runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(res.Runs))
	}
	if res.Runs[0].Variables != nil {
		t.Fatalf("expected variables omitted from listing, got %v", res.Runs[0].Variables)
	}
}

func TestSolveValidation(t *testing.T) {
	h := &RunHandler{Store: &stubRunStore{runs: map[string]*domain.SolveRun{}}}

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"unknown field", `{"bogus": 1}`},
		{"bad mode", `{"capacity_mode": "elastic", "periods": 1}`},
		{"missing periods", `{"capacity_mode": "fixed-capacity"}`},
		{"negative time limit", `{"periods": 1, "time_limit_seconds": -5}`},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(tc.body))
		rec := httptest.NewRecorder()
		h.Runs(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d: %s", tc.name, rec.Code, rec.Body.String())
		}
	}
}

func TestRunsMethodNotAllowed(t *testing.T) {
	h := &RunHandler{Store: &stubRunStore{runs: map[string]*domain.SolveRun{}}}

	req := httptest.NewRequest(http.MethodDelete, "/runs", nil)
	rec := httptest.NewRecorder()
	h.Runs(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
