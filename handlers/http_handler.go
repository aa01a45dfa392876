package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"runtime"
	"time"

	"github.com/giygas/receitas-api/interfaces"
	"github.com/giygas/receitas-api/logging"
	"github.com/giygas/receitas-api/metrics"
	"github.com/giygas/receitas-api/prescription"
	"github.com/go-chi/chi/v5"
)

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	store     interfaces.ResultStore
	extractor interfaces.Extractor
	linker    interfaces.Linker
	validator interfaces.Validator
	health    interfaces.HealthChecker
	maxBody   int64
}

// NewHTTPHandler creates the API handler with injected dependencies.
// maxBody caps the prescription text read from a request.
func NewHTTPHandler(
	store interfaces.ResultStore,
	extractor interfaces.Extractor,
	linker interfaces.Linker,
	validator interfaces.Validator,
	health interfaces.HealthChecker,
	maxBody int64,
) *HTTPHandlerImpl {
	return &HTTPHandlerImpl{
		store:     store,
		extractor: extractor,
		linker:    linker,
		validator: validator,
		health:    health,
		maxBody:   maxBody,
	}
}

// CreatePrescription parses the submitted prescription text, stores the
// result and answers with it and its portal handoff.
// Accepts text/plain (optional charset parameter) or JSON {"text": "..."}.
func (h *HTTPHandlerImpl) CreatePrescription(w http.ResponseWriter, r *http.Request) {
	mediaType, params := "text/plain", map[string]string{}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		var err error
		mediaType, params, err = mime.ParseMediaType(ct)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid Content-Type header")
			return
		}
	}

	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	start := time.Now()
	var (
		analysis prescription.Analysis
		err      error
	)

	switch mediaType {
	case "application/json":
		var req ExtractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondBodyError(w, err, "Invalid JSON body")
			return
		}
		if req.Text == nil {
			metrics.RecordInvalidInput()
			RespondWithError(w, http.StatusBadRequest, "Field 'text' is required")
			return
		}
		analysis, err = h.extractor.AnalyzeText(*req.Text)

	case "text/plain", "application/octet-stream":
		charset := params["charset"]
		if err := h.validator.ValidateCharset(charset); err != nil {
			metrics.RecordInvalidInput()
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		body, readErr := io.ReadAll(r.Body)
		if readErr != nil {
			h.respondBodyError(w, readErr, "Could not read request body")
			return
		}
		analysis, err = h.extractor.AnalyzeBytes(body, charset)

	default:
		RespondWithError(w, http.StatusUnsupportedMediaType,
			fmt.Sprintf("Unsupported Content-Type %q, use text/plain or application/json", mediaType))
		return
	}

	if err != nil {
		if errors.Is(err, prescription.ErrInvalidInput) {
			metrics.RecordInvalidInput()
			logging.Warn("Rejected prescription input", "error", err)
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		logging.Error("Prescription extraction failed", "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Extraction failed")
		return
	}

	metrics.RecordExtraction(analysis, time.Since(start))

	stored := h.store.Save(analysis.Result)
	metrics.StoredResults.Set(float64(h.store.Count()))

	// Counts only: prescription content and tokens are patient data
	logging.Info("Prescription extracted",
		"id", stored.ID.String(),
		"medications", len(analysis.Result.Medications),
		"token_found", analysis.Result.HasToken(),
		"token_fallback", analysis.TokenFromFallback,
		"date_found", analysis.Result.Date != nil,
	)

	w.Header().Set("Location", "/v1/prescriptions/"+stored.ID.String())
	RespondWithJSON(w, http.StatusCreated, newPrescriptionResponse(stored, h.linker.BuildHandoff(stored.Result)))
}

// GetPrescription returns a stored result by ID
func (h *HTTPHandlerImpl) GetPrescription(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "id")
	id, err := h.validator.ValidateResultID(rawID)
	if err != nil {
		logging.Warn("Unusual user input", "id", rawID)
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	stored, ok := h.store.Get(id)
	if !ok {
		RespondWithError(w, http.StatusNotFound, "Prescription not found or expired")
		return
	}

	RespondWithJSON(w, http.StatusOK, newPrescriptionResponse(stored, h.linker.BuildHandoff(stored.Result)))
}

// PortalSearch returns the pharmacy portal search URL for one medication
func (h *HTTPHandlerImpl) PortalSearch(w http.ResponseWriter, r *http.Request) {
	name, err := h.validator.ValidateMedicationName(r.URL.Query().Get("name"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.linker.SearchURL(name)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	RespondWithJSON(w, http.StatusOK, PortalSearchResponse{Medication: name, URL: u})
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, data, httpStatus := h.health.HealthCheck()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Duration(0)
	if start := h.store.GetServerStartTime(); !start.IsZero() {
		uptime = time.Since(start)
	}

	RespondWithJSON(w, httpStatus, HealthResponse{
		Status: status,
		Uptime: formatUptimeHuman(uptime),
		Data:   data,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": int(m.Alloc / 1024 / 1024),
				"sys_mb":   int(m.Sys / 1024 / 1024),
				"num_gc":   m.NumGC,
			},
		},
	})
}

// respondBodyError maps body read failures to 413 or 400
func (h *HTTPHandlerImpl) respondBodyError(w http.ResponseWriter, err error, message string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondWithError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Request body too large, maximum is %d bytes", tooLarge.Limit))
		return
	}
	metrics.RecordInvalidInput()
	RespondWithError(w, http.StatusBadRequest, message)
}
