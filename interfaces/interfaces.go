// Package interfaces defines the contracts between the receitas API
// components so handlers, scheduler and health checks can be tested
// against fakes.
package interfaces

import (
	"net/http"
	"time"

	"github.com/giygas/receitas-api/portal"
	"github.com/giygas/receitas-api/prescription"
	"github.com/giygas/receitas-api/prescription/entities"
	"github.com/google/uuid"
)

// ResultStore keeps extraction results for a limited time.
// Implementations must be safe for concurrent use.
type ResultStore interface {
	Save(res entities.PrescriptionResult) entities.StoredResult
	Get(id uuid.UUID) (entities.StoredResult, bool)
	// Purge drops expired results and returns how many were removed
	Purge() int
	Count() int
	GetLastExtraction() time.Time
	GetServerStartTime() time.Time
	TTL() time.Duration
}

// Extractor parses prescription documents
type Extractor interface {
	AnalyzeText(raw string) (prescription.Analysis, error)
	AnalyzeBytes(data []byte, charset string) (prescription.Analysis, error)
}

// Linker builds pharmacy portal searches
type Linker interface {
	SearchURL(name string) (string, error)
	BuildHandoff(res entities.PrescriptionResult) portal.Handoff
}

// Scheduler runs background maintenance jobs
type Scheduler interface {
	Start() error
	Stop()
}

// HTTPHandler is the set of API endpoints
type HTTPHandler interface {
	CreatePrescription(w http.ResponseWriter, r *http.Request)
	GetPrescription(w http.ResponseWriter, r *http.Request)
	PortalSearch(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker reports service health
type HealthChecker interface {
	// HealthCheck returns the status, the fields to report and the HTTP status to answer with
	HealthCheck() (status string, details map[string]any, httpStatus int)
}

// Validator checks user input before it reaches the engine
type Validator interface {
	ValidateMedicationName(input string) (string, error)
	ValidateResultID(input string) (uuid.UUID, error)
	ValidateCharset(input string) error
}
