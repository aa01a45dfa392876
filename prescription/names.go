package prescription

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// nameCandidate is a medication name found at the start of a line
type nameCandidate struct {
	words []string
	// strong names stand alone without a quantity
	strong bool
	// alpha counts the alphabetic words
	alpha    int
	allUpper bool
}

func (n nameCandidate) single() bool {
	return n.alpha == 1 && len(n.words) == 1
}

// extractName reads the medication name that opens part.
// Sentences, label lines and excluded words yield nothing.
func (p *Parser) extractName(part string) (nameCandidate, bool) {
	part = strings.TrimSpace(part)

	numbered := false
	if loc := numberedPrefixRe.FindStringIndex(part); loc != nil {
		part = part[loc[1]:]
		numbered = true
	} else if loc := bulletPrefixRe.FindStringIndex(part); loc != nil {
		part = part[loc[1]:]
	}

	if i := strings.IndexAny(part, ",;:"); i >= 0 {
		part = part[:i]
	}
	for _, sep := range []string{" - ", " – "} {
		if i := strings.Index(part, sep); i >= 0 {
			part = part[:i]
		}
	}
	part = strings.TrimRight(part, " -–(")

	words := strings.Fields(part)
	if len(words) == 0 || !startsUpper(words[0]) {
		return nameCandidate{}, false
	}
	first := strings.ToLower(strings.Trim(words[0], ".'’-"))
	if p.excluded[first] || utf8.RuneCountInString(first) < 3 {
		return nameCandidate{}, false
	}
	// "CRM-SP", "Av.Paulista"
	if head, _, found := strings.Cut(first, "-"); found && p.excluded[head] {
		return nameCandidate{}, false
	}
	if head, _, found := strings.Cut(first, "."); found && p.excluded[head] {
		return nameCandidate{}, false
	}

	var out []string
	alpha := 0
	sawStrength := false
	afterStrength := false

collect:
	for i := 0; i < len(words); i++ {
		w := words[i]
		lw := strings.ToLower(w)

		switch {
		case strengthRe.MatchString(w):
			if alpha == 0 {
				return nameCandidate{}, false
			}
			out = append(out, w)
			sawStrength, afterStrength = true, true

		case numberRe.MatchString(w) && i+1 < len(words) && doseUnitRe.MatchString(words[i+1]):
			if alpha == 0 {
				return nameCandidate{}, false
			}
			out = append(out, w, words[i+1])
			i++
			sawStrength, afterStrength = true, true

		case w == "+" || w == "/":
			if alpha == 0 {
				return nameCandidate{}, false
			}
			out = append(out, w)
			afterStrength = false

		case afterStrength:
			break collect

		case nameWordRe.MatchString(w) || vitaminRe.MatchString(w):
			if alpha > 0 && (formWords[lw] || (p.excluded[lw] && !connectives[lw])) {
				break collect
			}
			out = append(out, w)
			alpha++

		case strings.HasSuffix(w, ".") && nameWordRe.MatchString(strings.TrimSuffix(w, ".")):
			if alpha > 0 && formWords[strings.TrimSuffix(lw, ".")] {
				break collect
			}
			// a full stop before any strength marks a sentence
			return nameCandidate{}, false

		default:
			if alpha == 0 {
				return nameCandidate{}, false
			}
			break collect
		}
	}

	// names never end on a joiner
	for len(out) > 0 {
		last := out[len(out)-1]
		if !isJoiner(last) {
			break
		}
		if nameWordRe.MatchString(last) {
			alpha--
		}
		out = out[:len(out)-1]
	}

	if alpha < 1 || alpha > p.cfg.MaxNameWords {
		return nameCandidate{}, false
	}

	return nameCandidate{
		words:    out,
		strong:   numbered || sawStrength || compoundPrefixes[first],
		alpha:    alpha,
		allUpper: isAllUpper(strings.Join(out, " ")),
	}, true
}

// formatName renders a name in pt-BR title case.
// Connectives stay lower case, dosage units keep their conventional case.
func formatName(n nameCandidate, title cases.Caser) string {
	out := make([]string, 0, len(n.words))
	for i, w := range n.words {
		lw := strings.ToLower(w)
		switch {
		case strengthRe.MatchString(w), numberRe.MatchString(w), doseUnitRe.MatchString(w):
			out = append(out, uiRe.ReplaceAllString(lw, "UI"))
		case w == "+" || w == "/":
			out = append(out, w)
		case i > 0 && isJoiner(w):
			out = append(out, lw)
		case vitaminRe.MatchString(w):
			out = append(out, w)
		case !n.allUpper && isAcronym(w):
			out = append(out, w)
		default:
			out = append(out, title.String(w))
		}
	}
	return strings.Join(out, " ")
}

// isJoiner reports words that link two parts of a name.
// A lone capital "E" is a vitamin, not a conjunction.
func isJoiner(w string) bool {
	if w == "+" || w == "/" || connectives[w] {
		return true
	}
	return utf8.RuneCountInString(w) > 1 && connectives[strings.ToLower(w)]
}

// isAcronym matches short all-caps words like NPH or XR
func isAcronym(w string) bool {
	return utf8.RuneCountInString(w) <= 4 && isAllUpper(w)
}

// foldKey is the comparison key used for deduplication
func foldKey(name string, fold cases.Caser) string {
	return fold.String(strings.Join(strings.Fields(name), " "))
}
