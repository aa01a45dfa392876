package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/giygas/receitas-api/config"
	"github.com/giygas/receitas-api/data"
	"github.com/giygas/receitas-api/handlers"
	"github.com/giygas/receitas-api/health"
	"github.com/giygas/receitas-api/portal"
	"github.com/giygas/receitas-api/prescription"
	"github.com/giygas/receitas-api/validation"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:             "0",
		Address:          "127.0.0.1",
		Env:              config.EnvTest,
		LogLevel:         "info",
		MaxRequestBody:   1048576,
		MaxHeaderSize:    1048576,
		PortalSearchURL:  portal.DefaultSearchURL,
		ResultTTLMinutes: 60,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := testConfig()
	store := data.NewResultContainer(time.Duration(cfg.ResultTTLMinutes) * time.Minute)
	store.SetServerStartTime(time.Now())

	linker, err := portal.New(cfg.PortalSearchURL)
	if err != nil {
		t.Fatalf("Failed to create portal: %v", err)
	}

	h := handlers.NewHTTPHandler(
		store,
		prescription.MustNewParser(prescription.DefaultConfig()),
		linker,
		validation.NewDataValidator(),
		health.NewHealthChecker(store, 24*time.Hour),
		cfg.MaxRequestBody,
	)
	return NewServer(cfg, h)
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t)

	if s.server.Addr != "127.0.0.1:0" {
		t.Errorf("Unexpected address %s", s.server.Addr)
	}
	if s.server.MaxHeaderBytes != 1048576 {
		t.Errorf("Unexpected MaxHeaderBytes %d", s.server.MaxHeaderBytes)
	}
	if s.Router() == nil {
		t.Fatal("Router should not be nil")
	}
}

func TestServerRoutes(t *testing.T) {
	router := newTestServer(t).Router()

	req := httptest.NewRequest(http.MethodPost, "/v1/prescriptions",
		strings.NewReader("Paracetamol 500mg\nQuantidade: 20\nToken (Farmácia): KTSJTC"))
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.RemoteAddr = "192.0.2.10:4000"
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-RateLimit-Remaining") == "" {
		t.Error("Expected rate limit headers")
	}

	var created handlers.PrescriptionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if created.Token == nil || *created.Token != "KTSJTC" {
		t.Errorf("Expected token KTSJTC, got %v", created.Token)
	}

	tests := []struct {
		name     string
		path     string
		expected int
		contains string
	}{
		{"get result", "/v1/prescriptions/" + created.ID.String(), http.StatusOK, `"token":"KTSJTC"`},
		{"portal search", "/v1/portal/search?name=Dipirona", http.StatusOK, "Ntt=Dipirona"},
		{"health", "/health", http.StatusOK, `"status":"healthy"`},
		{"metrics", "/metrics", http.StatusOK, "receitas_extractions_total"},
		{"unknown route", "/v1/unknown", http.StatusNotFound, ""},
		{"trailing slash redirects", "/health/", http.StatusMovedPermanently, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.RemoteAddr = "192.0.2.10:4000"
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tt.expected {
				t.Fatalf("Expected %d, got %d: %s", tt.expected, rr.Code, rr.Body.String())
			}
			if tt.contains != "" && !strings.Contains(rr.Body.String(), tt.contains) {
				t.Errorf("Expected body to contain %q", tt.contains)
			}
		})
	}
}

func TestServerShutdown(t *testing.T) {
	s := newTestServer(t)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start returned %v after shutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Start did not return after shutdown")
	}
}
