package prescription

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// tokenMatcher finds the pharmacy token code from the configured markers
type tokenMatcher struct {
	// inline matches marker and code on one line, one per marker in priority order.
	// Group 1 is the separator, group 2 the code.
	inline []*regexp.Regexp
	// dangling matches a marker that ends its line, code on the next line
	dangling []*regexp.Regexp
	any      *regexp.Regexp
	codeOnly *regexp.Regexp
	code     *regexp.Regexp

	fallback  bool
	tailLines int
}

// addressWords mark lines the fallback never reads codes from
var addressWords = []string{"endereço", "endereco", "rua ", "avenida", "av.", "r.", "cep", "bairro"}

func newTokenMatcher(cfg Config) (*tokenMatcher, error) {
	t := &tokenMatcher{fallback: cfg.TokenFallback, tailLines: cfg.TokenTailLines}

	code := fmt.Sprintf(`[A-Za-z0-9]{%d,%d}`, cfg.TokenMinLength, cfg.TokenMaxLength)
	exprs := make([]string, 0, len(cfg.TokenMarkers))
	for _, marker := range cfg.TokenMarkers {
		expr := markerExpr(marker)
		exprs = append(exprs, expr)

		inline, err := regexp.Compile(`(?i)(?:^|[^\p{L}\p{N}])` + expr + `(\s*[:\-–]\s*|\s+)(` + code + `)(?:$|[^A-Za-z0-9])`)
		if err != nil {
			return nil, fmt.Errorf("failed to compile token marker %q: %w", marker, err)
		}
		dangling, err := regexp.Compile(`(?i)(?:^|[^\p{L}\p{N}])` + expr + `\s*[:\-–]?\s*$`)
		if err != nil {
			return nil, fmt.Errorf("failed to compile token marker %q: %w", marker, err)
		}
		t.inline = append(t.inline, inline)
		t.dangling = append(t.dangling, dangling)
	}

	var err error
	t.any, err = regexp.Compile(`(?i)(?:^|[^\p{L}\p{N}])(?:` + strings.Join(exprs, "|") + `)(?:$|[^\p{L}\p{N}])`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile token markers: %w", err)
	}
	t.codeOnly = regexp.MustCompile(`^(` + code + `)$`)
	t.code = regexp.MustCompile(`^` + code + `$`)

	return t, nil
}

// markerExpr turns "Token (Farmácia)" into a whitespace tolerant pattern
func markerExpr(marker string) string {
	fields := strings.Fields(marker)
	for i, f := range fields {
		fields[i] = regexp.QuoteMeta(f)
	}
	return strings.Join(fields, `\s*`)
}

func (t *tokenMatcher) isMarkerLine(line string) bool {
	return t.any.MatchString(line)
}

// find reads a marker line. It returns the code when it sits on the same
// line, or awaitNext when the marker closes the line.
func (t *tokenMatcher) find(line string) (code string, found bool, awaitNext bool) {
	best := -1
	for _, re := range t.inline {
		loc := re.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		sep, candidate := line[loc[2]:loc[3]], line[loc[4]:loc[5]]
		// a code after a bare space must carry a digit
		if strings.TrimSpace(sep) == "" && !hasDigit(candidate) {
			continue
		}
		if best < 0 || loc[0] < best {
			best = loc[0]
			code = candidate
		}
	}
	if best >= 0 {
		return code, true, false
	}

	for _, re := range t.dangling {
		if re.MatchString(line) {
			return "", false, true
		}
	}
	return "", false, false
}

// nextLineCode reads a code standing alone on the line after a marker
func (t *tokenMatcher) nextLineCode(line string) (string, bool) {
	m := t.codeOnly.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// fallbackCode looks for a bare code mixing letters and digits
// in the last lines of the document
func (t *tokenMatcher) fallbackCode(doc Document) (string, bool) {
	if !t.fallback {
		return "", false
	}
	start := len(doc) - t.tailLines
	if start < 0 {
		start = 0
	}
	for _, line := range doc[start:] {
		if isAddressLine(line) {
			continue
		}
		for _, field := range strings.Fields(line) {
			field = strings.TrimFunc(field, func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsDigit(r)
			})
			if t.code.MatchString(field) && hasLetterAndDigit(field) {
				return field, true
			}
		}
	}
	return "", false
}

func isAddressLine(line string) bool {
	lower := strings.ToLower(line) + " "
	for _, word := range addressWords {
		if strings.HasPrefix(lower, word) || strings.Contains(lower, " "+word) {
			return true
		}
	}
	return false
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func hasLetterAndDigit(s string) bool {
	var letter, digit bool
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLetter(r):
			letter = true
		}
	}
	return letter && digit
}
