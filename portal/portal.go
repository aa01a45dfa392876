// Package portal builds the pharmacy portal search links for the
// medications of a parsed prescription.
package portal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/giygas/receitas-api/prescription/entities"
)

// DefaultSearchURL is the pharmacy portal search endpoint; the escaped
// medication name is appended to it
const DefaultSearchURL = "https://www.qualidoc.com.br/search?Ntt="

var ErrEmptyName = errors.New("medication name is empty")

// Search is one portal lookup for a prescribed medication
type Search struct {
	Medication string            `json:"medication"`
	Quantity   entities.Quantity `json:"quantity"`
	Units      int               `json:"units"`
	URL        string            `json:"url"`
}

// Handoff is everything the browser and clipboard collaborators need:
// one search per medication, in prescription order, then the token
type Handoff struct {
	Searches []Search `json:"searches"`
	Token    *string  `json:"token"`
}

// Portal builds search URLs against one portal
type Portal struct {
	base string
}

// New validates baseURL, which must be an absolute http(s) URL ending
// where the query value goes
func New(baseURL string) (*Portal, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("portal search URL cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid portal search URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("portal search URL must use http or https, got: %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("portal search URL has no host")
	}

	return &Portal{base: baseURL}, nil
}

// SearchURL returns the portal search URL for one medication name
func (p *Portal) SearchURL(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "", ErrEmptyName
	}
	return p.base + url.QueryEscape(name), nil
}

// BuildHandoff plans the portal lookups for a parsed prescription
func (p *Portal) BuildHandoff(res entities.PrescriptionResult) Handoff {
	h := Handoff{Searches: make([]Search, 0, len(res.Medications))}

	for _, m := range res.Medications {
		u, err := p.SearchURL(m.Name)
		if err != nil {
			continue
		}
		h.Searches = append(h.Searches, Search{
			Medication: m.Name,
			Quantity:   m.Quantity,
			Units:      m.NormalizedUnits(),
			URL:        u,
		})
	}

	if res.Token != nil {
		token := *res.Token
		h.Token = &token
	}
	return h
}
