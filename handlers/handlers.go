// Package handlers provides the HTTP endpoints of the receitas API:
// prescription extraction, result retrieval, portal search links and
// health reporting.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/giygas/receitas-api/logging"
	"github.com/giygas/receitas-api/portal"
	"github.com/giygas/receitas-api/prescription/entities"
	"github.com/google/uuid"
)

// ExtractRequest is the JSON form of POST /v1/prescriptions
type ExtractRequest struct {
	Text *string `json:"text"`
}

// PrescriptionResponse is a stored extraction result plus its portal handoff
type PrescriptionResponse struct {
	ID          uuid.UUID                  `json:"id"`
	Medications []entities.MedicationEntry `json:"medications"`
	Token       *string                    `json:"token"`
	Date        *string                    `json:"date,omitempty"`
	Portal      portal.Handoff             `json:"portal"`
	CreatedAt   time.Time                  `json:"created_at"`
	ExpiresAt   time.Time                  `json:"expires_at"`
}

// PortalSearchResponse is the answer of GET /v1/portal/search
type PortalSearchResponse struct {
	Medication string `json:"medication"`
	URL        string `json:"url"`
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status string         `json:"status"`
	Uptime string         `json:"uptime"`
	Data   map[string]any `json:"data"`
	System map[string]any `json:"system"`
}

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

// RespondWithError writes the JSON error envelope
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	})
}

func newPrescriptionResponse(stored entities.StoredResult, handoff portal.Handoff) PrescriptionResponse {
	return PrescriptionResponse{
		ID:          stored.ID,
		Medications: stored.Result.Medications,
		Token:       stored.Result.Token,
		Date:        stored.Result.Date,
		Portal:      handoff,
		CreatedAt:   stored.CreatedAt,
		ExpiresAt:   stored.ExpiresAt,
	}
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
