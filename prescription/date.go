package prescription

import (
	"regexp"
	"time"
)

const dateLayout = "02/01/2006"

// issue date patterns, most specific first
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)data\s+e\s+hora\s*:?\s*(\d{2}/\d{2}/\d{4})`),
	regexp.MustCompile(`(?i)(?:data|emitid[oa]\s+em|emiss[ãa]o)\s*:?\s*(\d{2}/\d{2}/\d{4})`),
	regexp.MustCompile(`(?:^|[^\d/])(\d{2}/\d{2}/\d{4})(?:$|[^\d/])`),
}

// extractDate returns the prescription issue date as dd/mm/yyyy.
// Labeled dates win over bare ones; impossible calendar dates are skipped.
func extractDate(doc Document) *string {
	for _, re := range datePatterns {
		for _, line := range doc {
			for _, m := range re.FindAllStringSubmatch(line, -1) {
				if _, err := time.Parse(dateLayout, m[1]); err != nil {
					continue
				}
				date := m[1]
				return &date
			}
		}
	}
	return nil
}
