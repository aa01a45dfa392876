package prescription

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Document is the normalized, line-oriented form of one prescription's text.
// Lines are trimmed, non-empty, and in source order.
type Document []string

// String joins the lines back with newlines
func (d Document) String() string {
	return strings.Join(d, "\n")
}

// lineBreaks lists every sequence treated as the end of a line
var lineBreaks = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\f", "\n",
	"\v", "\n",
	"\u2028", "\n",
	"\u2029", "\n",
)

// Normalize collapses the layout noise of PDF text extraction into a Document.
// Hyphenated word wraps ("Parace-" / "tamol") are the only lines ever joined.
// The hyphen is kept when it joins two whole words ("Amoxicilina-" / "clavulanato").
func Normalize(raw string) Document {
	if raw == "" {
		return Document{}
	}

	text := lineBreaks.Replace(raw)
	text = strings.Map(cleanRune, text)
	text = norm.NFC.String(text)

	doc := make(Document, 0, strings.Count(text, "\n")+1)
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}

		if n := len(doc); n > 0 && isWordWrap(doc[n-1], line) {
			prev := doc[n-1]
			if _, size := lastRune(prev); !isCompoundBreak(prev[:len(prev)-size]) {
				prev = prev[:len(prev)-size]
			}
			doc[n-1] = prev + line
			continue
		}

		doc = append(doc, line)
	}

	return doc
}

// cleanRune maps odd spaces to a plain space and drops invisible characters
func cleanRune(r rune) rune {
	switch r {
	case '\n':
		return r
	case '\u00ad', '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
		return -1
	}
	if unicode.IsSpace(r) {
		return ' '
	}
	if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
		return -1
	}
	return r
}

// isWordWrap reports a word cut by a hyphen at the end of prev and continued
// in lower case at the start of next
func isWordWrap(prev, next string) bool {
	last, size := lastRune(prev)
	if last != '-' && last != '\u2010' {
		return false
	}
	before, _ := lastRune(prev[:len(prev)-size])
	if !unicode.IsLetter(before) {
		return false
	}
	first, _ := utf8.DecodeRuneInString(next)
	return unicode.IsLower(first)
}

// wholeWordEndings close complete pt-BR drug and salt names
var wholeWordEndings = []string{"ina", "ino", "ato", "eto", "ida", "ona", "ol", "am", "il"}

// isCompoundBreak reports whether the word before a line-end hyphen
// is already complete, making the hyphen part of a compound
func isCompoundBreak(prev string) bool {
	word := prev
	if i := strings.LastIndexByte(prev, ' '); i >= 0 {
		word = prev[i+1:]
	}
	if utf8.RuneCountInString(word) < 7 {
		return false
	}
	word = strings.ToLower(word)
	for _, ending := range wholeWordEndings {
		if strings.HasSuffix(word, ending) {
			return true
		}
	}
	return false
}

func lastRune(s string) (rune, int) {
	if s == "" {
		return 0, 0
	}
	return utf8.DecodeLastRuneInString(s)
}
