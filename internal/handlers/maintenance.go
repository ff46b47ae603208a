package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ukydev/fleet-maintenance/internal/engine"
)

// MaintenanceHandler exposes the maintenance engine over HTTP.
type MaintenanceHandler struct {
	engine *engine.Engine
}

// NewMaintenanceHandler creates a new maintenance handler
func NewMaintenanceHandler(eng *engine.Engine) *MaintenanceHandler {
	return &MaintenanceHandler{engine: eng}
}

// RecordMaintenance handles POST /api/vehicles/{id}/maintenance
func (h *MaintenanceHandler) RecordMaintenance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var in engine.RecordInput
	if err := json.Unmarshal(body, &in); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	record, err := h.engine.RecordMaintenance(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// UpdateOdometer handles PUT /api/vehicles/{id}/odometer
func (h *MaintenanceHandler) UpdateOdometer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req struct {
		MileageKm int `json:"mileage_km"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	summary, err := h.engine.UpdateOdometer(r.Context(), r.PathValue("id"), req.MileageKm)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// GetSnapshot handles GET /api/vehicles/{id}/snapshot
func (h *MaintenanceHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot, err := h.engine.GetMaintenanceSnapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// GetHistory handles GET /api/vehicles/{id}/maintenance
func (h *MaintenanceHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := h.engine.GetHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// writeEngineError maps engine error taxonomy to HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case engine.IsInvariantViolation(err):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, engine.ErrVehicleNotFound), errors.Is(err, engine.ErrNotificationNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
