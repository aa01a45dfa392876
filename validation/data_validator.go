// Package validation checks user input of the receitas API before it
// reaches the extraction engine or the result store.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/giygas/receitas-api/interfaces"
	"github.com/google/uuid"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	minNameLength = 2
	maxNameLength = 120
	maxNameWords  = 12
)

var (
	// Medication names: letters (accents included), digits, spaces and the
	// punctuation used in strengths and combinations
	nameRegex = regexp.MustCompile(`^[\p{L}\p{N}\s\-\.\+'/,%()]+$`)

	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"eval(", "expression(", "@import",
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"--", "/*", "*/", "exec(",
		"; ", "| ", "& ", "`", "$(", "${",
		"../", "..\\", "%2e%2e", "file://",
	}
)

// DataValidatorImpl implements the interfaces.Validator interface
type DataValidatorImpl struct{}

// Compile-time check to ensure DataValidatorImpl implements Validator
var _ interfaces.Validator = (*DataValidatorImpl)(nil)

// NewDataValidator creates a new validator
func NewDataValidator() interfaces.Validator {
	return &DataValidatorImpl{}
}

// ValidateMedicationName checks a portal search query and returns it with
// whitespace collapsed
func (v *DataValidatorImpl) ValidateMedicationName(input string) (string, error) {
	name := strings.Join(strings.Fields(input), " ")
	if name == "" {
		return "", fmt.Errorf("input cannot be empty")
	}

	length := utf8.RuneCountInString(name)
	if length < minNameLength {
		return "", fmt.Errorf("input too short: minimum %d characters", minNameLength)
	}
	if length > maxNameLength {
		return "", fmt.Errorf("input too long: maximum %d characters", maxNameLength)
	}

	if len(strings.Fields(name)) > maxNameWords {
		return "", fmt.Errorf("name too complex: maximum %d words allowed", maxNameWords)
	}

	lower := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lower, pattern) {
			return "", fmt.Errorf("input contains potentially dangerous content")
		}
	}

	if !nameRegex.MatchString(name) {
		return "", fmt.Errorf("input contains invalid characters. Only letters, numbers, spaces and - . + ' / , %% ( ) are allowed")
	}

	if hasExcessiveRepetition(name) {
		return "", fmt.Errorf("input contains excessive character repetition")
	}

	return name, nil
}

// ValidateResultID parses a result ID in canonical UUID form
func (v *DataValidatorImpl) ValidateResultID(input string) (uuid.UUID, error) {
	if input == "" {
		return uuid.Nil, fmt.Errorf("id cannot be empty")
	}
	if len(input) != 36 {
		return uuid.Nil, fmt.Errorf("id must be a UUID in the form xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx")
	}

	id, err := uuid.Parse(input)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id: %w", err)
	}
	return id, nil
}

// ValidateCharset accepts an empty label or any WHATWG encoding label
func (v *DataValidatorImpl) ValidateCharset(input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	if len(input) > 40 {
		return fmt.Errorf("charset label too long")
	}
	if _, err := htmlindex.Get(input); err != nil {
		return fmt.Errorf("unsupported charset %q", input)
	}
	return nil
}

// hasExcessiveRepetition reports the same rune more than 10 times in a row
func hasExcessiveRepetition(input string) bool {
	var prev rune
	run := 0
	for _, r := range input {
		if r == prev {
			run++
			if run > 10 {
				return true
			}
			continue
		}
		prev = r
		run = 1
	}
	return false
}
