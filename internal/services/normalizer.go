package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/nexconsult/processo-api/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type statusRule struct {
	keywords []string
	status   models.CanonicalStatus
}

// statusRules is matched in order; the first group with a hit wins.
var statusRules = []statusRule{
	{keywords: []string{"suspenso"}, status: models.StatusSuspended},
	{keywords: []string{"arquivado"}, status: models.StatusArchived},
	{keywords: []string{"concluido", "finalizado", "baixado", "transitado"}, status: models.StatusConcluded},
	{keywords: []string{"andamento", "ativo", "tramitacao"}, status: models.StatusInProgress},
}

// DefaultStatus is returned for portal wording that no rule recognizes.
// The portal vocabulary is open ended, so this is a default and not an error.
const DefaultStatus = models.StatusInProgress

// MapStatus maps free portal text to a canonical status
func MapStatus(raw string) models.CanonicalStatus {
	text := strings.ToLower(foldAccents(raw))
	for _, rule := range statusRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.status
			}
		}
	}
	return DefaultStatus
}

var currencyJunk = regexp.MustCompile(`[^0-9.,]`)

// ParseCurrency reads Brazilian money text such as "R$ 1.234,56".
// It returns nil when nothing numeric can be read.
func ParseCurrency(raw string) *float64 {
	cleaned := currencyJunk.ReplaceAllString(raw, "")
	if cleaned == "" {
		return nil
	}

	// "." groups thousands and "," is the decimal mark
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.Replace(cleaned, ",", ".", 1)
	if strings.Contains(cleaned, ",") {
		return nil
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &value
}

var (
	plaintiffTerms = []string{
		"AUTOR", "AUTORA", "REQUERENTE", "EXEQUENTE", "RECLAMANTE", "IMPETRANTE",
		"EMBARGANTE", "APELANTE", "AGRAVANTE", "RECORRENTE", "DEMANDANTE", "PROMOVENTE", "ATIVO",
	}
	defendantTerms = []string{
		"REU", "RE", "REQUERIDO", "REQUERIDA", "EXECUTADO", "EXECUTADA", "RECLAMADO", "RECLAMADA",
		"IMPETRADO", "EMBARGADO", "APELADO", "AGRAVADO", "RECORRIDO", "DEMANDADO", "PROMOVIDO", "PASSIVO",
	}
	thirdPartyTerms = []string{
		"TERCEIRO", "INTERESSADO", "ASSISTENTE", "LITISCONSORTE", "OPOENTE", "CUSTOS LEGIS",
	}
)

// MapPartyRole classifies a portal party label. Unknown labels count as
// interested third parties.
func MapPartyRole(raw string) models.PartyRole {
	label := strings.ToUpper(strings.TrimSpace(foldAccents(raw)))
	if label == "" {
		return models.RoleThirdPartyInterested
	}

	words := strings.FieldsFunc(label, func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	switch {
	case containsTerm(label, words, thirdPartyTerms):
		return models.RoleThirdPartyInterested
	case containsTerm(label, words, plaintiffTerms):
		return models.RolePlaintiff
	case containsTerm(label, words, defendantTerms):
		return models.RoleDefendant
	default:
		return models.RoleThirdPartyInterested
	}
}

// containsTerm matches multi-word terms as substrings and single words exactly,
// so "RE" does not hit "REQUERENTE".
func containsTerm(label string, words []string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(term, " ") {
			if strings.Contains(label, term) {
				return true
			}
			continue
		}
		for _, w := range words {
			if w == term {
				return true
			}
		}
	}
	return false
}

// foldAccents strips combining marks: "Réu" becomes "Reu"
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeCase fills the canonical status, the parsed claim value and party
// roles from their raw counterparts.
func NormalizeCase(c *models.ExtractedCase) {
	raw := ""
	if c.StatusRaw != nil {
		raw = *c.StatusRaw
	}
	c.Status = MapStatus(raw)

	c.ClaimValue = nil
	if c.ClaimValueRaw != nil {
		c.ClaimValue = ParseCurrency(*c.ClaimValueRaw)
	}

	for i := range c.Parties {
		c.Parties[i].Role = MapPartyRole(c.Parties[i].RoleRaw)
	}
}
