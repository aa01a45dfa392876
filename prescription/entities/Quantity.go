package entities

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Quantity is the dispensation amount as written on the prescription.
// It is either a number (the source used a standalone integer), a literal
// phrase ("10 comprimidos", "uso contínuo") or unset.
type Quantity struct {
	count   int
	text    string
	numeric bool
	set     bool
}

// NumericQuantity builds a quantity written as a standalone integer
func NumericQuantity(n int) Quantity {
	return Quantity{count: n, numeric: true, set: true}
}

// TextQuantity builds a quantity written as a phrase
func TextQuantity(s string) Quantity {
	s = strings.TrimSpace(s)
	if s == "" {
		return Quantity{}
	}
	return Quantity{text: s, set: true}
}

// IsSet reports whether a quantity was found
func (q Quantity) IsSet() bool { return q.set }

// IsNumeric reports whether the source wrote a plain integer
func (q Quantity) IsNumeric() bool { return q.set && q.numeric }

// Count returns the integer value of a numeric quantity
func (q Quantity) Count() (int, bool) {
	return q.count, q.IsNumeric()
}

// Text returns the literal phrase of a textual quantity
func (q Quantity) Text() (string, bool) {
	return q.text, q.set && !q.numeric
}

func (q Quantity) String() string {
	switch {
	case !q.set:
		return ""
	case q.numeric:
		return strconv.Itoa(q.count)
	default:
		return q.text
	}
}

var firstNumber = regexp.MustCompile(`\d+`)

// writtenNumbers maps pt-BR number words to their value
var writtenNumbers = map[string]int{
	"um": 1, "uma": 1, "dois": 2, "duas": 2, "três": 3, "tres": 3,
	"quatro": 4, "cinco": 5, "seis": 6, "sete": 7, "oito": 8, "nove": 9,
	"dez": 10, "onze": 11, "doze": 12, "treze": 13, "catorze": 14, "quatorze": 14,
	"quinze": 15, "dezesseis": 16, "dezessete": 17, "dezoito": 18, "dezenove": 19,
	"vinte": 20, "trinta": 30, "quarenta": 40, "cinquenta": 50, "sessenta": 60,
	"noventa": 90, "cem": 100,
}

// WrittenNumber returns the value of a pt-BR number word
func WrittenNumber(word string) (int, bool) {
	n, ok := writtenNumbers[strings.ToLower(word)]
	return n, ok
}

// Units collapses the quantity into a dispensable unit count.
// Continuous use and whole packages count as 1; a missing number defaults to 1.
func (q Quantity) Units() int {
	if !q.set {
		return 1
	}
	if q.numeric {
		return q.count
	}

	lower := strings.ToLower(q.text)
	if strings.Contains(lower, "contínuo") || strings.Contains(lower, "continuo") || strings.Contains(lower, "embalagem") {
		return 1
	}

	if m := firstNumber.FindString(lower); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n
		}
	}

	for _, word := range strings.Fields(lower) {
		if n, ok := WrittenNumber(word); ok {
			return n
		}
	}

	return 1
}

// MarshalJSON renders a number, a string or null
func (q Quantity) MarshalJSON() ([]byte, error) {
	switch {
	case !q.set:
		return []byte("null"), nil
	case q.numeric:
		return []byte(strconv.Itoa(q.count)), nil
	default:
		return json.Marshal(q.text)
	}
}

// UnmarshalJSON accepts a number, a string or null
func (q *Quantity) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" {
		*q = Quantity{}
		return nil
	}

	if strings.HasPrefix(s, `"`) {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return fmt.Errorf("invalid quantity text: %w", err)
		}
		*q = TextQuantity(text)
		return nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid quantity %s: %w", s, err)
	}
	*q = NumericQuantity(n)
	return nil
}
