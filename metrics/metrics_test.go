package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/giygas/receitas-api/prescription"
	"github.com/giygas/receitas-api/prescription/entities"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordExtraction(t *testing.T) {
	token := "AB12CD34EF"
	a := prescription.Analysis{
		Result: entities.PrescriptionResult{
			Medications: []entities.MedicationEntry{{Name: "Paracetamol 500mg"}},
			Token:       &token,
		},
		RuleHits: map[prescription.RuleKind]int{
			prescription.RuleAdjacentQuantity: 2,
			prescription.RuleInlinePack:       1,
		},
		TokenLine: 3,
	}

	parsedBefore := testutil.ToFloat64(ExtractionsTotal.WithLabelValues(OutcomeParsed))
	adjacentBefore := testutil.ToFloat64(MedicationsExtracted.WithLabelValues("adjacent_quantity"))
	markerBefore := testutil.ToFloat64(TokensFound.WithLabelValues("marker"))

	RecordExtraction(a, 2*time.Millisecond)

	if got := testutil.ToFloat64(ExtractionsTotal.WithLabelValues(OutcomeParsed)) - parsedBefore; got != 1 {
		t.Errorf("Expected parsed outcome +1, got %v", got)
	}
	if got := testutil.ToFloat64(MedicationsExtracted.WithLabelValues("adjacent_quantity")) - adjacentBefore; got != 2 {
		t.Errorf("Expected adjacent_quantity +2, got %v", got)
	}
	if got := testutil.ToFloat64(TokensFound.WithLabelValues("marker")) - markerBefore; got != 1 {
		t.Errorf("Expected marker token +1, got %v", got)
	}
}

func TestRecordExtractionOutcomes(t *testing.T) {
	emptyBefore := testutil.ToFloat64(ExtractionsTotal.WithLabelValues(OutcomeEmpty))
	RecordExtraction(prescription.Analysis{TokenLine: -1}, time.Millisecond)
	if got := testutil.ToFloat64(ExtractionsTotal.WithLabelValues(OutcomeEmpty)) - emptyBefore; got != 1 {
		t.Errorf("Expected empty outcome +1, got %v", got)
	}

	token := "AB34CD56"
	fallbackBefore := testutil.ToFloat64(TokensFound.WithLabelValues("fallback"))
	RecordExtraction(prescription.Analysis{
		Result:            entities.PrescriptionResult{Token: &token},
		TokenLine:         -1,
		TokenFromFallback: true,
	}, time.Millisecond)
	if got := testutil.ToFloat64(TokensFound.WithLabelValues("fallback")) - fallbackBefore; got != 1 {
		t.Errorf("Expected fallback token +1, got %v", got)
	}

	invalidBefore := testutil.ToFloat64(ExtractionsTotal.WithLabelValues(OutcomeInvalid))
	RecordInvalidInput()
	if got := testutil.ToFloat64(ExtractionsTotal.WithLabelValues(OutcomeInvalid)) - invalidBefore; got != 1 {
		t.Errorf("Expected invalid outcome +1, got %v", got)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/v1/prescriptions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(HTTPRequestTotals.WithLabelValues(http.MethodGet, "/v1/prescriptions/{id}", "404"))

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/prescriptions/"+id, nil))
	}

	got := testutil.ToFloat64(HTTPRequestTotals.WithLabelValues(http.MethodGet, "/v1/prescriptions/{id}", "404")) - before
	if got != 2 {
		t.Errorf("Expected 2 requests labelled by route pattern, got %v", got)
	}
	if testutil.ToFloat64(HTTPRequestInFlight) != 0 {
		t.Error("Expected no requests in flight")
	}
}

func TestRoutePatternWithoutRouter(t *testing.T) {
	if got := routePattern(httptest.NewRequest(http.MethodGet, "/x", nil)); got != "unmatched" {
		t.Errorf("Expected unmatched, got %q", got)
	}
}
