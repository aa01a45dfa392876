package prescription

import (
	"fmt"

	"github.com/giygas/receitas-api/prescription/entities"
)

// RuleKind identifies one medication rule. Rules are tried per line in
// table order and the first one that matches commits the line.
type RuleKind int

const (
	// RuleInlinePack: name with a parenthesized pack, "Amoxicilina 500mg (2 caixas)"
	RuleInlinePack RuleKind = iota + 1
	// RuleTrailingQuantity: name followed by a quantity phrase on the same line
	RuleTrailingQuantity
	// RuleAdjacentQuantity: name with the quantity on a neighbouring line
	RuleAdjacentQuantity
	// RuleHeading: a name strong enough to stand without a quantity
	RuleHeading
)

// DefaultRules is the rule priority order used when Config.Rules is nil
var DefaultRules = []RuleKind{
	RuleInlinePack,
	RuleTrailingQuantity,
	RuleAdjacentQuantity,
	RuleHeading,
}

func (k RuleKind) String() string {
	switch k {
	case RuleInlinePack:
		return "inline_pack"
	case RuleTrailingQuantity:
		return "trailing_quantity"
	case RuleAdjacentQuantity:
		return "adjacent_quantity"
	case RuleHeading:
		return "heading"
	default:
		return fmt.Sprintf("rule(%d)", int(k))
	}
}

func (k RuleKind) valid() bool {
	return k >= RuleInlinePack && k <= RuleHeading
}

// candidate is a line, possibly joined with its wrapped continuation
type candidate struct {
	text  string
	lines []int
}

func (c candidate) last() int {
	return c.lines[len(c.lines)-1]
}

// ruleMatch is one committed medication line
type ruleMatch struct {
	rule     RuleKind
	name     nameCandidate
	quantity entities.Quantity
	// consumed lists the extra lines the rule used up
	consumed []int
}

func (s *scan) apply(kind RuleKind, c candidate) (ruleMatch, bool) {
	switch kind {
	case RuleInlinePack:
		return s.inlinePack(c)
	case RuleTrailingQuantity:
		return s.trailingQuantity(c)
	case RuleAdjacentQuantity:
		return s.adjacentQuantity(c)
	case RuleHeading:
		return s.heading(c)
	}
	return ruleMatch{}, false
}

func (s *scan) inlinePack(c candidate) (ruleMatch, bool) {
	loc := packRe.FindStringSubmatchIndex(c.text)
	if loc == nil {
		return ruleMatch{}, false
	}
	name, ok := s.p.extractName(c.text[:loc[0]])
	if !ok {
		return ruleMatch{}, false
	}
	qty, ok := quantityValue(c.text[loc[2]:loc[3]])
	if !ok {
		return ruleMatch{}, false
	}
	return ruleMatch{rule: RuleInlinePack, name: name, quantity: qty}, true
}

func (s *scan) trailingQuantity(c candidate) (ruleMatch, bool) {
	if loc := qtyPhraseRe.FindStringSubmatchIndex(c.text); loc != nil {
		if m, ok := s.nameBefore(c.text, loc[2], entities.TextQuantity(c.text[loc[2]:loc[3]])); ok {
			return m, true
		}
	}
	if loc := continuousRe.FindStringSubmatchIndex(c.text); loc != nil {
		if m, ok := s.nameBefore(c.text, loc[2], entities.TextQuantity(c.text[loc[2]:loc[3]])); ok {
			return m, true
		}
	}
	if loc := trailingIntRe.FindStringSubmatchIndex(c.text); loc != nil {
		if qty, ok := quantityValue(c.text[loc[2]:loc[3]]); ok {
			return s.nameBefore(c.text, loc[0], qty)
		}
	}
	return ruleMatch{}, false
}

func (s *scan) nameBefore(text string, end int, qty entities.Quantity) (ruleMatch, bool) {
	name, ok := s.p.extractName(text[:end])
	if !ok {
		return ruleMatch{}, false
	}
	return ruleMatch{rule: RuleTrailingQuantity, name: name, quantity: qty}, true
}

// adjacentQuantity pairs a bare name with a pure quantity line below it,
// or with the unclaimed quantity line right above it.
func (s *scan) adjacentQuantity(c candidate) (ruleMatch, bool) {
	name, ok := s.p.extractName(c.text)
	if !ok {
		return ruleMatch{}, false
	}

	last := c.last()
	for k := last + 1; k < len(s.doc) && k <= last+s.p.cfg.LookaheadLines; k++ {
		if s.consumed[k] {
			break
		}
		if qty, ok := pureQuantity(s.doc[k]); ok {
			return ruleMatch{rule: RuleAdjacentQuantity, name: name, quantity: qty, consumed: []int{k}}, true
		}
		if s.p.token.isMarkerLine(s.doc[k]) || s.looksLikeMedication(s.doc[k]) {
			break
		}
	}

	if k := c.lines[0] - 1; k >= 0 && !s.consumed[k] {
		if qty, ok := pureQuantity(s.doc[k]); ok {
			return ruleMatch{rule: RuleAdjacentQuantity, name: name, quantity: qty, consumed: []int{k}}, true
		}
	}

	return ruleMatch{}, false
}

func (s *scan) heading(c candidate) (ruleMatch, bool) {
	name, ok := s.p.extractName(c.text)
	if !ok {
		return ruleMatch{}, false
	}
	// all-caps single words are usually codes, not drugs
	if !name.strong && !(name.single() && !name.allUpper) {
		return ruleMatch{}, false
	}
	return ruleMatch{rule: RuleHeading, name: name}, true
}

func (s *scan) looksLikeMedication(line string) bool {
	_, ok := s.p.extractName(line)
	return ok
}

// wraps reports whether next continues the name started on cur
func (s *scan) wraps(cur, next string) bool {
	if s.p.token.isMarkerLine(next) {
		return false
	}
	if _, ok := pureQuantity(next); ok {
		return false
	}
	if isJoiner(lastField(cur)) {
		return true
	}
	return !containsStrengthRe.MatchString(cur) && startsLower(next) && containsStrengthRe.MatchString(next)
}

// candidates returns the wrapped form of line i first, then the line alone
func (s *scan) candidates(i int) []candidate {
	base := candidate{text: s.doc[i], lines: []int{i}}
	joined := base
	for len(joined.lines) < s.p.cfg.WrapWindow {
		next := joined.last() + 1
		if next >= len(s.doc) || s.consumed[next] || !s.wraps(joined.text, s.doc[next]) {
			break
		}
		lines := append(append([]int(nil), joined.lines...), next)
		joined = candidate{text: joined.text + " " + s.doc[next], lines: lines}
	}
	if len(joined.lines) > 1 {
		return []candidate{joined, base}
	}
	return []candidate{base}
}
