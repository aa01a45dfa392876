// Package prescription extracts medications, quantities and the pharmacy
// token from the text of a Brazilian medical prescription. It does no I/O
// and a Parser is safe for concurrent use.
package prescription

import (
	"fmt"
	"strings"

	"github.com/giygas/receitas-api/prescription/entities"
	"golang.org/x/text/cases"
)

// Parser turns a normalized Document into a PrescriptionResult.
// It only holds compiled, read-only state and is safe for concurrent use.
type Parser struct {
	cfg      Config
	rules    []RuleKind
	excluded map[string]bool
	token    *tokenMatcher
}

// Analysis is a parse result plus what produced it
type Analysis struct {
	Result entities.PrescriptionResult
	// RuleHits counts the medication lines committed by each rule
	RuleHits map[RuleKind]int
	// TokenLine is the index of the line holding the token code, -1 when absent
	TokenLine int
	// TokenFromFallback is set when the code came from the bare-code search
	TokenFromFallback bool
}

// NewParser validates cfg and compiles its patterns
func NewParser(cfg Config) (*Parser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parser config: %w", err)
	}

	token, err := newTokenMatcher(cfg)
	if err != nil {
		return nil, err
	}

	rules := cfg.Rules
	if rules == nil {
		rules = DefaultRules
	}

	excluded := make(map[string]bool, len(cfg.Exclusions))
	for _, word := range cfg.Exclusions {
		excluded[strings.ToLower(strings.TrimSpace(word))] = true
	}

	cfg.TokenMarkers = append([]string(nil), cfg.TokenMarkers...)
	cfg.Exclusions = append([]string(nil), cfg.Exclusions...)
	cfg.Rules = append([]RuleKind(nil), rules...)

	return &Parser{
		cfg:      cfg,
		rules:    cfg.Rules,
		excluded: excluded,
		token:    token,
	}, nil
}

// MustNewParser is NewParser for configurations known to be valid
func MustNewParser(cfg Config) *Parser {
	p, err := NewParser(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

// Rules returns the rule priority order in use
func (p *Parser) Rules() []RuleKind {
	return append([]RuleKind(nil), p.rules...)
}

// Parse extracts medications, token and date from doc
func (p *Parser) Parse(doc Document) entities.PrescriptionResult {
	return p.Analyze(doc).Result
}

// ParseText normalizes raw text and parses it
func (p *Parser) ParseText(raw string) (entities.PrescriptionResult, error) {
	a, err := p.AnalyzeText(raw)
	if err != nil {
		return entities.PrescriptionResult{}, err
	}
	return a.Result, nil
}

// AnalyzeText is ParseText returning the full Analysis
func (p *Parser) AnalyzeText(raw string) (Analysis, error) {
	if err := checkUsable(raw); err != nil {
		return Analysis{}, err
	}
	return p.Analyze(Normalize(raw)), nil
}

// ParseBytes decodes data (see DecodeText) and parses it
func (p *Parser) ParseBytes(data []byte, charset string) (entities.PrescriptionResult, error) {
	a, err := p.AnalyzeBytes(data, charset)
	if err != nil {
		return entities.PrescriptionResult{}, err
	}
	return a.Result, nil
}

// AnalyzeBytes is ParseBytes returning the full Analysis
func (p *Parser) AnalyzeBytes(data []byte, charset string) (Analysis, error) {
	text, err := DecodeText(data, charset)
	if err != nil {
		return Analysis{}, err
	}
	return p.AnalyzeText(text)
}

// scan is the per-call state of one Analyze run
type scan struct {
	p        *Parser
	doc      Document
	consumed []bool
	title    cases.Caser
	fold     cases.Caser
}

type tokenState int

const (
	tokenScanning tokenState = iota
	tokenAwaiting
	tokenLocked
)

// Analyze walks the document once, line by line, committing at most one
// medication per line and locking the first token found.
func (p *Parser) Analyze(doc Document) Analysis {
	s := &scan{
		p:        p,
		doc:      doc,
		consumed: make([]bool, len(doc)),
		title:    cases.Title(p.cfg.Locale),
		fold:     cases.Fold(),
	}

	a := Analysis{
		Result:    entities.PrescriptionResult{Medications: []entities.MedicationEntry{}},
		RuleHits:  make(map[RuleKind]int),
		TokenLine: -1,
	}

	var token string
	state := tokenScanning
	index := make(map[string][]int)

	for i, line := range doc {
		if state == tokenAwaiting {
			// a marker without its code is not a match, keep looking
			state = tokenScanning
			if code, ok := p.token.nextLineCode(line); ok {
				token, a.TokenLine = code, i
				state = tokenLocked
				s.consumed[i] = true
				continue
			}
		}

		if p.token.isMarkerLine(line) {
			s.consumed[i] = true
			if state == tokenScanning {
				code, found, awaitNext := p.token.find(line)
				switch {
				case found:
					token, a.TokenLine = code, i
					state = tokenLocked
				case awaitNext:
					state = tokenAwaiting
				}
			}
			continue
		}

		if s.consumed[i] {
			continue
		}

		m, c, ok := s.match(i)
		if !ok {
			continue
		}
		for _, k := range c.lines {
			s.consumed[k] = true
		}
		for _, k := range m.consumed {
			s.consumed[k] = true
		}

		a.RuleHits[m.rule]++
		s.add(&a.Result, index, entities.MedicationEntry{
			Name:     formatName(m.name, s.title),
			Quantity: m.quantity,
		})
	}

	if a.TokenLine < 0 {
		if code, ok := p.token.fallbackCode(doc); ok {
			token = code
			a.TokenFromFallback = true
		}
	}
	if token != "" {
		a.Result.Token = &token
	}
	a.Result.Date = extractDate(doc)

	return a
}

// match tries every rule on the wrapped candidate, then on the line alone
func (s *scan) match(i int) (ruleMatch, candidate, bool) {
	for _, c := range s.candidates(i) {
		for _, kind := range s.p.rules {
			if m, ok := s.apply(kind, c); ok {
				return m, c, true
			}
		}
	}
	return ruleMatch{}, candidate{}, false
}

// add appends entry unless it duplicates an earlier one by folded name.
// A quantity upgrades an earlier bare entry in place; two different
// quantities for the same name stay as separate entries.
func (s *scan) add(res *entities.PrescriptionResult, index map[string][]int, entry entities.MedicationEntry) {
	key := foldKey(entry.Name, s.fold)

	for _, pos := range index[key] {
		existing := res.Medications[pos]
		switch {
		case !entry.Quantity.IsSet():
			return
		case !existing.Quantity.IsSet():
			res.Medications[pos].Quantity = entry.Quantity
			return
		case existing.Quantity == entry.Quantity:
			return
		}
	}

	index[key] = append(index[key], len(res.Medications))
	res.Medications = append(res.Medications, entry)
}

var defaultParser = MustNewParser(DefaultConfig())

// Extract parses raw prescription text with the default configuration
func Extract(raw string) (entities.PrescriptionResult, error) {
	return defaultParser.ParseText(raw)
}
