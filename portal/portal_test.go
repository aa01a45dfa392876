package portal

import (
	"errors"
	"testing"

	"github.com/giygas/receitas-api/prescription/entities"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		wantErr bool
	}{
		{"default", DefaultSearchURL, false},
		{"plain http", "http://localhost:8080/busca?q=", false},
		{"empty", "  ", true},
		{"relative", "/search?Ntt=", true},
		{"ftp", "ftp://example.com/search?q=", true},
		{"no host", "https:///search?q=", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.base)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%q) error = %v, wantErr %v", tt.base, err, tt.wantErr)
			}
		})
	}
}

func TestSearchURL(t *testing.T) {
	p, err := New(DefaultSearchURL)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	tests := []struct {
		name string
		want string
	}{
		{"Paracetamol 500mg", "https://www.qualidoc.com.br/search?Ntt=Paracetamol+500mg"},
		{"  Dipirona   Sódica ", "https://www.qualidoc.com.br/search?Ntt=Dipirona+S%C3%B3dica"},
		{"Insulina NPH 100UI/ml", "https://www.qualidoc.com.br/search?Ntt=Insulina+NPH+100UI%2Fml"},
		{"Losartana + Hidroclorotiazida", "https://www.qualidoc.com.br/search?Ntt=Losartana+%2B+Hidroclorotiazida"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.SearchURL(tt.name)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("SearchURL(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}

	if _, err := p.SearchURL(" "); !errors.Is(err, ErrEmptyName) {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
}

func TestBuildHandoff(t *testing.T) {
	p, err := New(DefaultSearchURL)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	token := "KTSJTC"
	res := entities.PrescriptionResult{
		Medications: []entities.MedicationEntry{
			{Name: "Losartana 50mg", Quantity: entities.TextQuantity("30 comprimidos")},
			{Name: "Dipirona", Quantity: entities.TextQuantity("uso contínuo")},
			{Name: "Metformina 850mg", Quantity: entities.NumericQuantity(60)},
		},
		Token: &token,
	}

	h := p.BuildHandoff(res)

	if len(h.Searches) != 3 {
		t.Fatalf("expected 3 searches, got %d", len(h.Searches))
	}
	wantUnits := []int{30, 1, 60}
	for i, s := range h.Searches {
		if s.Medication != res.Medications[i].Name {
			t.Errorf("search %d out of order: %q", i, s.Medication)
		}
		if s.Units != wantUnits[i] {
			t.Errorf("search %d: expected %d units, got %d", i, wantUnits[i], s.Units)
		}
	}
	if h.Token == nil || *h.Token != "KTSJTC" {
		t.Errorf("expected token KTSJTC, got %v", h.Token)
	}

	token = "CHANGED"
	if *h.Token != "KTSJTC" {
		t.Error("handoff token must not alias the result")
	}

	empty := p.BuildHandoff(entities.PrescriptionResult{})
	if empty.Searches == nil || len(empty.Searches) != 0 || empty.Token != nil {
		t.Errorf("expected empty handoff, got %+v", empty)
	}
}
