package prescription

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/giygas/receitas-api/prescription/entities"
)

// Dispensing units, longest alternatives first (RE2 alternation is leftmost-first)
const unitAlt = `comprimidos|comprimido|comp\.|comp|cps|cp|cápsulas|cápsula|capsulas|capsula|` +
	`caixas|caixa|cx\.|cx|frascos|frasco|fr\.|embalagens|embalagem|unidades|unidade|und|un|` +
	`ampolas|ampola|bisnagas|bisnaga|tubos|tubo|envelopes|envelope|sachês|sachê|saches|sache|` +
	`drágeas|drágea|drageas|dragea|canetas|caneta|refis|refil|blisters|blister|cartelas|cartela|` +
	`potes|pote|flaconetes|flaconete|seringas|seringa|adesivos|adesivo`

// Written-out quantities
const writtenAlt = `dezesseis|dezessete|dezoito|dezenove|quatorze|catorze|quinze|treze|doze|onze|dez|` +
	`vinte|trinta|quarenta|cinquenta|sessenta|noventa|cem|um|uma|dois|duas|três|tres|quatro|` +
	`cinco|seis|sete|oito|nove`

// "20 (vinte)" style spelled-out echo of a number
const echoAlt = `(?:\s*\(\s*\p{L}+(?:\s+e\s+\p{L}+)?\s*\))?`

var (
	// "(2 caixas)", "(1un de 30g)", "(1)"
	packRe = regexp.MustCompile(`(?i)\(\s*((?:\d+\s*(?:` + unitAlt + `)?|(?:` + writtenAlt + `)\s*(?:` + unitAlt + `))\.?(?:\s+de\s+[^)]*)?)\s*\)`)

	// "10 comprimidos", "dez comprimidos", "20 (vinte) cápsulas"
	qtyPhraseRe = regexp.MustCompile(`(?i)(?:^|[\s,;:(\-–])((?:\d+|` + writtenAlt + `)` + echoAlt + `\s*(?:` + unitAlt + `))(?:$|[^\p{L}\d])`)

	continuousRe = regexp.MustCompile(`(?i)(?:^|[\s,;:(\-–])(uso\s+cont[íi]nuo)(?:$|[^\p{L}])`)

	// "Losartana 50mg 30", "Losartana 50mg - 30"
	trailingIntRe = regexp.MustCompile(`(?:^|\s)(?:[-–x×:]\s*)?(\d{1,3})\.?$`)

	labeledQtyRe = regexp.MustCompile(`(?i)^(?:quantidade|quant\.?|qtde\.?|qtd\.?)(?:\s+total)?\s*[:\-–]?\s*(.+)$`)

	pureQtyRe = regexp.MustCompile(`(?i)^\(?\s*(?:\d{1,4}|` + writtenAlt + `)` + echoAlt +
		`(?:\s*(?:` + unitAlt + `)\.?)?(?:\s+(?:de|com)\s+.+)?\s*\)?\.?$`)

	pureContinuousRe = regexp.MustCompile(`(?i)^uso\s+cont[íi]nuo\.?$`)

	digitsRe = regexp.MustCompile(`^\d+$`)

	numberedPrefixRe = regexp.MustCompile(`^(\d{1,2})\s*[.)\-–]\s*`)
	bulletPrefixRe   = regexp.MustCompile(`^[-•*·–]\s*`)

	strengthRe = regexp.MustCompile(`(?i)^\d+(?:[.,]\d+)?(?:mg|mcg|µg|μg|g|ml|ui|%)` +
		`(?:/(?:\d+(?:[.,]\d+)?)?(?:mg|mcg|g|ml|dose|gota|gotas|h))?$`)
	doseUnitRe         = regexp.MustCompile(`(?i)^(?:mg|mcg|µg|μg|g|ml|ui|%)(?:/\S+)?$`)
	numberRe           = regexp.MustCompile(`^\d+(?:[.,]\d+)?$`)
	containsStrengthRe = regexp.MustCompile(`(?i)\d+(?:[.,]\d+)?\s?(?:mg|mcg|µg|μg|ml|ui|g)(?:$|[^\p{L}])`)
	uiRe               = regexp.MustCompile(`(?i)ui`)

	vitaminRe  = regexp.MustCompile(`^\p{Lu}\d{1,2}$`)
	nameWordRe = regexp.MustCompile(`^\p{L}[\p{L}'’\-]*$`)
)

// connectives stay lower case inside names and may end a wrapped line
var connectives = map[string]bool{
	"de": true, "da": true, "do": true, "das": true, "dos": true,
	"e": true, "com": true, "em": true, "para": true,
}

// formWords end a name: what follows is the pharmaceutical form or route
var formWords = map[string]bool{
	"comprimido": true, "comprimidos": true, "comp": true, "cp": true, "cps": true,
	"cápsula": true, "cápsulas": true, "capsula": true, "capsulas": true,
	"drágea": true, "drágeas": true, "gotas": true, "gota": true,
	"solução": true, "solucao": true, "suspensão": true, "suspensao": true,
	"xarope": true, "pomada": true, "creme": true, "gel": true, "loção": true,
	"injetável": true, "injetavel": true, "oral": true, "via": true, "uso": true,
	"sachê": true, "envelope": true, "ampola": true, "frasco": true, "spray": true,
	"colírio": true, "dermatológica": true, "dermatologico": true, "orodispersível": true,
	"revestido": true, "revestidos": true, "mastigável": true, "efervescente": true,
	"tópico": true, "tópica": true, "nasal": true, "oftálmica": true, "oftálmico": true,
	"sublingual": true, "caixa": true, "embalagem": true, "adesivo": true,
}

// compoundPrefixes open names that are medications on their own
var compoundPrefixes = map[string]bool{
	"cloridrato": true, "dicloridrato": true, "sulfato": true, "maleato": true,
	"succinato": true, "besilato": true, "fosfato": true, "acetato": true,
	"citrato": true, "insulina": true, "hemifumarato": true, "tartarato": true,
}

// pureQuantity reads a line holding nothing but a quantity
func pureQuantity(line string) (entities.Quantity, bool) {
	line = strings.TrimSpace(line)
	if m := labeledQtyRe.FindStringSubmatch(line); m != nil {
		return quantityValue(m[1])
	}
	if pureContinuousRe.MatchString(line) {
		return entities.TextQuantity(strings.TrimSuffix(line, ".")), true
	}
	if pureQtyRe.MatchString(line) {
		value := strings.Trim(line, "() .")
		// a bare four digit number is a year or a page, not a count
		if digitsRe.MatchString(value) && len(value) > 3 {
			return entities.Quantity{}, false
		}
		return quantityValue(value)
	}
	return entities.Quantity{}, false
}

// quantityValue keeps digits as a number and anything else as written
func quantityValue(value string) (entities.Quantity, bool) {
	value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "."))
	if value == "" {
		return entities.Quantity{}, false
	}
	if digitsRe.MatchString(value) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return entities.Quantity{}, false
		}
		return entities.NumericQuantity(n), true
	}
	return entities.TextQuantity(value), true
}

func startsLower(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLower(r)
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func lastField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}
