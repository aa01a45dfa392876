package prescription

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Config holds the template-specific settings of a Parser.
// Different prescription layouts get different Configs, never globals.
type Config struct {
	// TokenMarkers are the labels printed before the portal code, in priority order
	TokenMarkers []string
	// TokenMinLength and TokenMaxLength bound the code length
	TokenMinLength int
	TokenMaxLength int
	// TokenFallback enables the bare-code search near the end of the document
	TokenFallback  bool
	TokenTailLines int

	// LookaheadLines is how far below a name a quantity line may appear
	LookaheadLines int
	// WrapWindow is the maximum number of lines a single name may span
	WrapWindow int
	// MaxNameWords caps the words of a name, keeping sentences out
	MaxNameWords int

	// Exclusions are lower-case words that never start a medication name
	Exclusions []string
	// Rules overrides the rule priority order; nil means DefaultRules
	Rules []RuleKind

	Locale language.Tag
}

// DefaultConfig returns the settings for Brazilian electronic prescriptions
func DefaultConfig() Config {
	return Config{
		TokenMarkers:   []string{"Token (Farmácia)", "Token"},
		TokenMinLength: 6,
		TokenMaxLength: 16,
		TokenFallback:  false,
		TokenTailLines: 10,
		LookaheadLines: 2,
		WrapWindow:     2,
		MaxNameWords:   5,
		Exclusions:     defaultExclusions(),
		Locale:         language.BrazilianPortuguese,
	}
}

// Validate checks the configuration values
func (c Config) Validate() error {
	if len(c.TokenMarkers) == 0 {
		return fmt.Errorf("at least one token marker is required")
	}
	for _, marker := range c.TokenMarkers {
		if strings.TrimSpace(marker) == "" {
			return fmt.Errorf("token markers cannot be empty")
		}
	}

	if c.TokenMinLength < 1 {
		return fmt.Errorf("token min length must be positive, got: %d", c.TokenMinLength)
	}
	if c.TokenMaxLength < c.TokenMinLength {
		return fmt.Errorf("token max length %d is below min length %d", c.TokenMaxLength, c.TokenMinLength)
	}
	if c.TokenMaxLength > 64 {
		return fmt.Errorf("token max length is too large (max 64), got: %d", c.TokenMaxLength)
	}
	if c.TokenFallback && c.TokenTailLines < 1 {
		return fmt.Errorf("token tail lines must be positive when fallback is enabled, got: %d", c.TokenTailLines)
	}

	if c.LookaheadLines < 0 {
		return fmt.Errorf("lookahead lines cannot be negative, got: %d", c.LookaheadLines)
	}
	if c.WrapWindow < 1 {
		return fmt.Errorf("wrap window must be at least 1, got: %d", c.WrapWindow)
	}
	if c.MaxNameWords < 1 {
		return fmt.Errorf("max name words must be positive, got: %d", c.MaxNameWords)
	}

	seen := make(map[RuleKind]bool)
	for _, kind := range c.Rules {
		if !kind.valid() {
			return fmt.Errorf("unknown rule kind: %d", kind)
		}
		if seen[kind] {
			return fmt.Errorf("rule %s listed twice", kind)
		}
		seen[kind] = true
	}

	return nil
}

func defaultExclusions() []string {
	return []string{
		// labels and header fields
		"nome", "paciente", "cpf", "rg", "crm", "cro", "data", "hora", "endereço", "endereco",
		"rua", "avenida", "av", "telefone", "tel", "celular", "email", "e-mail", "idade", "sexo",
		"assinatura", "médico", "medico", "médica", "medica", "dr", "dra", "receituário", "receituario",
		"receita", "prescrição", "prescricao", "prescrito", "emitido", "emitida", "emissão", "emissao",
		"validade", "válida", "valida", "token", "código", "codigo", "quantidade", "qtd", "qtde",
		"farmácia", "farmacia", "identificação", "identificacao", "comprador", "fornecedor",
		"observações", "observacoes", "observação", "observacao", "orientações", "orientacoes",
		"memed", "página", "pagina", "documento", "assinado", "digitalmente", "acesse", "cidade",
		"uf", "cep", "bairro", "especialidade", "clínica", "clinica", "hospital", "unidade",
		// posology verbs
		"tomar", "usar", "aplicar", "administrar", "ingerir", "pingar", "passar", "diluir",
		"utilizar", "mastigar", "dissolver", "inalar", "retornar",
		// forms, packaging and routes
		"uso", "via", "oral", "contínuo", "continuo", "comprimido", "comprimidos", "cápsula",
		"capsula", "cápsulas", "pomada", "dermatológica", "embalagem", "caixa", "frasco",
		"unidades", "und", "un", "ui", "mg", "ml", "sp", "orodispersível", "injetável",
		"suspensão", "solução",
		// manufacturers
		"eurofarma", "ems", "medley", "abbott", "novo", "nordisk", "roche", "bayer", "pfizer",
		"novartis", "sanofi", "aché", "ache", "libbs", "neo", "química", "germed", "cimed",
	}
}
