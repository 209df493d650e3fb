package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"ghostpace/pkg/model"
)

func TestRunsEndpoints(t *testing.T) {
	st := &mockStore{runs: map[string]*model.RecordedRun{
		"run-1": {ID: "run-1", Route: "park", Samples: validSamples()},
	}}
	h := NewRunsHandler(st)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/runs", h.HandleList)
	mux.HandleFunc("GET /api/runs/{id}", h.HandleGet)
	mux.HandleFunc("GET /api/runs/best/{route}", h.HandlePersonalBest)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{name: "List", path: "/api/runs", wantStatus: http.StatusOK},
		{name: "GetExisting", path: "/api/runs/run-1", wantStatus: http.StatusOK},
		{name: "GetMissing", path: "/api/runs/nope", wantStatus: http.StatusNotFound},
		{name: "BestExisting", path: "/api/runs/best/park", wantStatus: http.StatusOK},
		{name: "BestMissing", path: "/api/runs/best/alley", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
