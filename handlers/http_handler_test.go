package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/giygas/receitas-api/data"
	"github.com/giygas/receitas-api/health"
	"github.com/giygas/receitas-api/portal"
	"github.com/giygas/receitas-api/prescription"
	"github.com/giygas/receitas-api/prescription/entities"
	"github.com/giygas/receitas-api/validation"
	"github.com/go-chi/chi/v5"
)

const samplePrescription = "Paracetamol 500mg\nQuantidade: 20\nToken: AB12CD34EF"

// failingExtractor returns err for every document
type failingExtractor struct {
	err error
}

func (f *failingExtractor) AnalyzeText(raw string) (prescription.Analysis, error) {
	return prescription.Analysis{}, f.err
}

func (f *failingExtractor) AnalyzeBytes(data []byte, charset string) (prescription.Analysis, error) {
	return prescription.Analysis{}, f.err
}

func newTestHandler(t *testing.T) (*HTTPHandlerImpl, *data.ResultContainer) {
	t.Helper()

	store := data.NewResultContainer(time.Hour)
	store.SetServerStartTime(time.Now())

	linker, err := portal.New(portal.DefaultSearchURL)
	if err != nil {
		t.Fatalf("Failed to create portal: %v", err)
	}

	h := NewHTTPHandler(
		store,
		prescription.MustNewParser(prescription.DefaultConfig()),
		linker,
		validation.NewDataValidator(),
		health.NewHealthChecker(store, 24*time.Hour),
		1024,
	)
	return h, store
}

func newRouter(h *HTTPHandlerImpl) http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/prescriptions", h.CreatePrescription)
	r.Get("/v1/prescriptions/{id}", h.GetPrescription)
	r.Get("/v1/portal/search", h.PortalSearch)
	r.Get("/health", h.HealthCheck)
	return r
}

func decodeResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
	return v
}

func assertErrorEnvelope(t *testing.T, rr *httptest.ResponseRecorder, code int) {
	t.Helper()
	if rr.Code != code {
		t.Fatalf("Expected status %d, got %d: %s", code, rr.Code, rr.Body.String())
	}
	body := decodeResponse[map[string]any](t, rr)
	if body["error"] != http.StatusText(code) || body["code"] != float64(code) {
		t.Errorf("Unexpected error envelope %v", body)
	}
	if msg, _ := body["message"].(string); msg == "" {
		t.Error("Expected a message in the error envelope")
	}
}

func TestCreatePrescription(t *testing.T) {
	h, store := newTestHandler(t)
	router := newRouter(h)

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"plain text", "text/plain; charset=utf-8", samplePrescription},
		{"no content type", "", samplePrescription},
		{"json", "application/json", `{"text":"Paracetamol 500mg\nQuantidade: 20\nToken: AB12CD34EF"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/prescriptions", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusCreated {
				t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
			}

			resp := decodeResponse[PrescriptionResponse](t, rr)
			if rr.Header().Get("Location") != "/v1/prescriptions/"+resp.ID.String() {
				t.Errorf("Unexpected Location header %q", rr.Header().Get("Location"))
			}

			want := []entities.MedicationEntry{{Name: "Paracetamol 500mg", Quantity: entities.NumericQuantity(20)}}
			if len(resp.Medications) != 1 || resp.Medications[0] != want[0] {
				t.Errorf("Expected %+v, got %+v", want, resp.Medications)
			}
			if resp.Token == nil || *resp.Token != "AB12CD34EF" {
				t.Errorf("Expected token AB12CD34EF, got %v", resp.Token)
			}

			if len(resp.Portal.Searches) != 1 {
				t.Fatalf("Expected one portal search, got %d", len(resp.Portal.Searches))
			}
			search := resp.Portal.Searches[0]
			if search.URL != portal.DefaultSearchURL+"Paracetamol+500mg" || search.Units != 20 {
				t.Errorf("Unexpected portal search %+v", search)
			}
			if resp.Portal.Token == nil || *resp.Portal.Token != "AB12CD34EF" {
				t.Error("Expected the token in the portal handoff")
			}

			if _, ok := store.Get(resp.ID); !ok {
				t.Error("Expected the result to be stored")
			}
		})
	}
}

func TestCreatePrescriptionCharset(t *testing.T) {
	h, _ := newTestHandler(t)
	router := newRouter(h)

	body := "Sulfato ferroso 40mg\nQuantidade: 30\nObserva\xe7\xf5es"
	req := httptest.NewRequest(http.MethodPost, "/v1/prescriptions", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/plain; charset=iso-8859-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse[PrescriptionResponse](t, rr)
	if len(resp.Medications) != 1 || resp.Medications[0].Name != "Sulfato Ferroso 40mg" {
		t.Errorf("Unexpected medications %+v", resp.Medications)
	}
	if resp.Token != nil {
		t.Errorf("Expected no token, got %q", *resp.Token)
	}
}

func TestCreatePrescriptionEmptyResult(t *testing.T) {
	h, _ := newTestHandler(t)
	router := newRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/v1/prescriptions", strings.NewReader("Observações gerais do paciente."))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201 for a document without medications, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"medications":[]`) || !strings.Contains(rr.Body.String(), `"token":null`) {
		t.Errorf("Expected empty medications and null token, got %s", rr.Body.String())
	}
}

func TestCreatePrescriptionEmptyBody(t *testing.T) {
	h, _ := newTestHandler(t)
	router := newRouter(h)

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"empty raw body", "text/plain", ""},
		{"empty json text", "application/json", `{"text":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/prescriptions", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusCreated {
				t.Fatalf("Expected 201 for empty text, got %d: %s", rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), `"medications":[]`) {
				t.Errorf("Expected empty medications, got %s", rr.Body.String())
			}
		})
	}
}

func TestCreatePrescriptionErrors(t *testing.T) {
	h, _ := newTestHandler(t)
	router := newRouter(h)

	tests := []struct {
		name        string
		contentType string
		body        string
		expected    int
	}{
		{"binary content", "application/octet-stream", "%PDF-1.4\x00\x01", http.StatusBadRequest},
		{"json with binary text", "application/json", `{"text":"Dipirona\u0000"}`, http.StatusBadRequest},
		{"unknown charset", "text/plain; charset=klingon", "Dipirona", http.StatusBadRequest},
		{"malformed json", "application/json", `{"text":`, http.StatusBadRequest},
		{"json without text", "application/json", `{"charset":"utf-8"}`, http.StatusBadRequest},
		{"json null text", "application/json", `{"text":null}`, http.StatusBadRequest},
		{"unsupported media type", "application/pdf", "%PDF-1.4", http.StatusUnsupportedMediaType},
		{"malformed content type", "text/plain; charset", "Dipirona", http.StatusBadRequest},
		{"body too large", "text/plain", strings.Repeat("Dipirona 10 comprimidos\n", 100), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/prescriptions", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assertErrorEnvelope(t, rr, tt.expected)
		})
	}
}

func TestCreatePrescriptionExtractorFailure(t *testing.T) {
	h, _ := newTestHandler(t)
	h.extractor = &failingExtractor{err: errors.New("boom")}
	router := newRouter(h)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/prescriptions", strings.NewReader("x")))
	assertErrorEnvelope(t, rr, http.StatusInternalServerError)
	if strings.Contains(rr.Body.String(), "boom") {
		t.Error("Internal errors must not leak to clients")
	}
}

func TestGetPrescription(t *testing.T) {
	h, store := newTestHandler(t)
	router := newRouter(h)

	token := "KTSJTC"
	stored := store.Save(entities.PrescriptionResult{
		Medications: []entities.MedicationEntry{{Name: "Dipirona 1g", Quantity: entities.TextQuantity("Uso contínuo")}},
		Token:       &token,
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/prescriptions/"+stored.ID.String(), nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	resp := decodeResponse[PrescriptionResponse](t, rr)
	if resp.ID != stored.ID || len(resp.Medications) != 1 || resp.Medications[0].Name != "Dipirona 1g" {
		t.Errorf("Unexpected response %+v", resp)
	}
	if len(resp.Portal.Searches) != 1 || resp.Portal.Searches[0].Units != 1 {
		t.Errorf("Unexpected portal handoff %+v", resp.Portal)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/prescriptions/6ba7b810-9dad-11d1-80b4-00c04fd430c8", nil))
	assertErrorEnvelope(t, rr, http.StatusNotFound)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/prescriptions/not-a-uuid", nil))
	assertErrorEnvelope(t, rr, http.StatusBadRequest)
}

func TestPortalSearch(t *testing.T) {
	h, _ := newTestHandler(t)
	router := newRouter(h)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/portal/search?name=Losartana+Pot%C3%A1ssica++50mg", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	resp := decodeResponse[PortalSearchResponse](t, rr)
	if resp.Medication != "Losartana Potássica 50mg" {
		t.Errorf("Unexpected medication %q", resp.Medication)
	}
	if resp.URL != portal.DefaultSearchURL+"Losartana+Pot%C3%A1ssica+50mg" {
		t.Errorf("Unexpected URL %q", resp.URL)
	}

	for _, query := range []string{"", "?name=", "?name=%3Cscript%3E"} {
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/portal/search"+query, nil))
		assertErrorEnvelope(t, rr, http.StatusBadRequest)
	}
}

func TestHealthCheck(t *testing.T) {
	h, store := newTestHandler(t)
	router := newRouter(h)
	store.Save(entities.PrescriptionResult{Medications: []entities.MedicationEntry{}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	resp := decodeResponse[HealthResponse](t, rr)
	if resp.Status != "healthy" {
		t.Errorf("Expected healthy, got %s", resp.Status)
	}
	if resp.Data["stored_results"] != float64(1) {
		t.Errorf("Expected 1 stored result, got %v", resp.Data["stored_results"])
	}
	if resp.Data["last_extraction"] == nil {
		t.Error("Expected last_extraction to be set")
	}
	if _, ok := resp.System["goroutines"]; !ok {
		t.Error("Expected goroutines in system info")
	}
}

func TestHealthCheckNotStarted(t *testing.T) {
	store := data.NewResultContainer(time.Hour)
	linker, _ := portal.New(portal.DefaultSearchURL)
	h := NewHTTPHandler(store, prescription.MustNewParser(prescription.DefaultConfig()), linker,
		validation.NewDataValidator(), health.NewHealthChecker(store, 0), 0)

	rr := httptest.NewRecorder()
	h.HealthCheck(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rr.Code)
	}
}

func TestFormatUptimeHuman(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{2*time.Minute + 3*time.Second, "2m 3s"},
		{3*time.Hour + 5*time.Second, "3h 0m 5s"},
		{50*time.Hour + 10*time.Minute, "2d 2h 10m 0s"},
	}

	for _, tt := range tests {
		if got := formatUptimeHuman(tt.d); got != tt.want {
			t.Errorf("formatUptimeHuman(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestRespondWithError(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondWithError(rr, http.StatusNotFound, "Prescription not found or expired")

	assertErrorEnvelope(t, rr, http.StatusNotFound)
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Unexpected Content-Type %q", ct)
	}
}
