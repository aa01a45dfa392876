package prescription

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// DecodeText turns the bytes handed over by the PDF reader into a UTF-8 string.
// An explicit charset label ("iso-8859-1", "windows-1252", "utf-8", ...) is
// honored; without one, valid UTF-8 is used as-is and anything else is read
// as ISO-8859-1.
func DecodeText(data []byte, charset string) (string, error) {
	if data == nil {
		return "", invalidInput("no text provided", nil)
	}

	var text string
	charset = strings.TrimSpace(charset)

	switch {
	case charset != "":
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return "", invalidInput("unsupported charset "+charset, err)
		}
		decoded, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			return "", invalidInput("could not decode text as "+charset, err)
		}
		text = string(decoded)
	case utf8.Valid(data):
		text = string(data)
	default:
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return "", invalidInput("could not decode text as iso-8859-1", err)
		}
		text = string(decoded)
	}

	if err := checkUsable(text); err != nil {
		return "", err
	}
	return text, nil
}

// checkUsable rejects strings that cannot be extracted text: invalid UTF-8
// or embedded NUL bytes, which only show up in binary streams.
func checkUsable(text string) error {
	if !utf8.ValidString(text) {
		return invalidInput("text is not valid UTF-8", nil)
	}
	if strings.IndexByte(text, 0) >= 0 {
		return invalidInput("text contains binary data", nil)
	}
	return nil
}
