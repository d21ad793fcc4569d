package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lumbrjx/codek7/streaming/internal/service"
)

type importRequest struct {
	MasterURL   string `json:"master_url"`
	Destination string `json:"destination"`
	TimeoutMS   int64  `json:"timeout_ms"`
	BudgetKB    int64  `json:"budget_kb"`
}

type importResponse struct {
	JobID string   `json:"job_id"`
	Files []string `json:"files"`
	Bytes int64    `json:"bytes"`
}

// ImportPlaylist handles POST /imports. The import runs within the request.
func (a *API) ImportPlaylist(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("decode body: %v: %w", err, service.ErrInvalidRequest))
		return
	}
	if req.TimeoutMS < 0 || req.BudgetKB < 0 {
		writeError(w, r, fmt.Errorf("timeout_ms and budget_kb must not be negative: %w", service.ErrInvalidRequest))
		return
	}
	// checked before the millisecond conversion can overflow
	if req.TimeoutMS > service.MaxImportTimeout.Milliseconds() || req.BudgetKB > service.MaxImportBudgetKB {
		writeError(w, r, fmt.Errorf("timeout_ms or budget_kb above the import limits: %w", service.ErrInvalidRequest))
		return
	}

	res, err := a.Service.ImportPlaylist(r.Context(), service.ImportRequest{
		MasterURL:   req.MasterURL,
		Destination: req.Destination,
		Timeout:     time.Duration(req.TimeoutMS) * time.Millisecond,
		BudgetKB:    req.BudgetKB,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, importResponse{
		JobID: res.JobID,
		Files: res.Files,
		Bytes: res.Bytes,
	})
}
