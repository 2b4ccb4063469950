package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/nexconsult/processo-api/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
)

// MaxMovements caps how many docket entries a single extraction returns
const MaxMovements = 10

var (
	captchaRejectedPhrases = []string{
		"captcha invalido",
		"captcha incorreto",
		"codigo incorreto",
		"codigo invalido",
		"codigo de seguranca invalido",
		"texto da imagem nao confere",
	}
	caseNotFoundPhrases = []string{
		"processo nao encontrado",
		"nenhum processo encontrado",
		"nenhum registro encontrado",
		"nao foram encontrados processos",
	}
	// Containers the portal renders form and lookup messages into
	messageSelectors = "#mensagem, #mensagens, #erro, .erro, .error, .errorMessage, .alert, .aviso, .mensagem, .msgErro"

	emptyValues = map[string]bool{
		"-": true, "--": true, "***": true, "n/a": true, "nao informado": true,
	}
)

// fieldRule locates one metadata field: a primary selector first, then a
// label cell whose following sibling holds the value.
type fieldRule struct {
	name     string
	selector string
	labels   []string
	assign   func(c *models.ExtractedCase, v *string)
}

var caseFields = []fieldRule{
	{"case_number", "#numeroProcesso", []string{"processo", "numero do processo", "numero unico"}, func(c *models.ExtractedCase, v *string) {
		if v != nil {
			c.CaseNumber = *v
		}
	}},
	{"comarca", "#comarca", []string{"comarca", "tribunal"}, func(c *models.ExtractedCase, v *string) { c.Comarca = v }},
	{"vara", "#vara", []string{"vara", "juizo", "orgao julgador", "secao judiciaria"}, func(c *models.ExtractedCase, v *string) { c.Vara = v }},
	{"foro", "#foro", []string{"foro", "local"}, func(c *models.ExtractedCase, v *string) { c.Foro = v }},
	{"status", "#situacao", []string{"situacao", "status", "situacao do processo"}, func(c *models.ExtractedCase, v *string) { c.StatusRaw = v }},
	{"distribution_date", "#dataDistribuicao", []string{"distribuicao", "data de distribuicao", "data da distribuicao"}, func(c *models.ExtractedCase, v *string) { c.DistributionDate = v }},
	{"filing_date", "#dataAutuacao", []string{"autuacao", "data de autuacao", "data do ajuizamento"}, func(c *models.ExtractedCase, v *string) { c.FilingDate = v }},
	{"claim_value", "#valorCausa", []string{"valor da causa", "valor"}, func(c *models.ExtractedCase, v *string) { c.ClaimValueRaw = v }},
	{"subject", "#assunto", []string{"assunto", "assunto principal"}, func(c *models.ExtractedCase, v *string) { c.Subject = v }},
	{"class", "#classe", []string{"classe", "classe processual", "classe judicial"}, func(c *models.ExtractedCase, v *string) { c.Class = v }},
	{"area", "#area", []string{"area", "competencia", "natureza"}, func(c *models.ExtractedCase, v *string) { c.Area = v }},
}

var knownLabels = collectLabels(caseFields)

// ExtractorService turns portal result pages into case records
type ExtractorService struct {
	logger *logrus.Logger
	now    func() time.Time
}

// NewExtractorService creates a new extractor service
func NewExtractorService(logger *logrus.Logger, now func() time.Time) *ExtractorService {
	if now == nil {
		now = time.Now
	}
	return &ExtractorService{
		logger: logger,
		now:    now,
	}
}

// ExtractCase parses a UTF-8 result page. Missing fields are left nil;
// known failure pages surface as ErrCaptchaRejected or ErrCaseNotFound.
func (e *ExtractorService) ExtractCase(html string) (*models.ExtractedCase, error) {
	return e.ExtractCaseFromReader(strings.NewReader(html), "text/html; charset=utf-8")
}

// ExtractCaseFromReader decodes r using the declared or sniffed charset
// before parsing. The portal serves ISO-8859-1 pages.
func (e *ExtractorService) ExtractCaseFromReader(r io.Reader, contentType string) (*models.ExtractedCase, error) {
	utf8Reader, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to detect charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(utf8Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return e.extract(doc)
}

func (e *ExtractorService) extract(doc *goquery.Document) (*models.ExtractedCase, error) {
	if err := detectFailure(messageText(doc)); err != nil {
		return nil, err
	}

	result := &models.ExtractedCase{
		Parties:     []models.Party{},
		Movements:   []models.Movement{},
		ExtractedAt: e.now(),
	}

	missing := make([]string, 0)
	for _, rule := range caseFields {
		v := extractField(doc, rule)
		if v == nil {
			missing = append(missing, rule.name)
		}
		rule.assign(result, v)
	}

	result.Parties = extractParties(doc)
	result.Movements = extractMovements(doc, MaxMovements)

	// A page with no case data at all is judged on its whole text
	if len(missing) == len(caseFields) && len(result.Parties) == 0 && len(result.Movements) == 0 {
		if err := detectFailure(doc.Text()); err != nil {
			return nil, err
		}
	}

	fields := logrus.Fields{
		"case_number": result.CaseNumber,
		"parties":     len(result.Parties),
		"movements":   len(result.Movements),
	}
	if len(missing) > 0 {
		fields["missing_fields"] = missing
	}
	e.logger.WithFields(fields).Debug("Case extraction completed")

	return result, nil
}

// Health returns extractor service health status
func (e *ExtractorService) Health() map[string]interface{} {
	return map[string]interface{}{
		"status":        "healthy",
		"fields":        len(caseFields),
		"max_movements": MaxMovements,
	}
}

// messageText joins the text of the containers the portal uses for form
// and lookup messages.
func messageText(doc *goquery.Document) string {
	parts := make([]string, 0)
	doc.Find(messageSelectors).Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, s.Text())
	})
	return strings.Join(parts, " ")
}

func detectFailure(text string) error {
	text = strings.ToLower(foldAccents(collapseSpace(text)))
	if text == "" {
		return nil
	}
	for _, phrase := range captchaRejectedPhrases {
		if strings.Contains(text, phrase) {
			return ErrCaptchaRejected
		}
	}
	for _, phrase := range caseNotFoundPhrases {
		if strings.Contains(text, phrase) {
			return ErrCaseNotFound
		}
	}
	return nil
}

func extractField(doc *goquery.Document, rule fieldRule) *string {
	if rule.selector != "" {
		if v := cleanValue(doc.Find(rule.selector).First().Text()); v != nil {
			return v
		}
	}
	return valueByLabel(doc, rule.labels)
}

// valueByLabel finds a label cell (td, th, dt, label or span.label) matching
// one of labels. The value is the element right after it, or the cell in the
// same column of the next row when the label sits in a header row.
func valueByLabel(doc *goquery.Document, labels []string) *string {
	var found *string
	doc.Find("td, th, dt, label, span.label, span.labelRadio").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !matchesLabel(s.Text(), labels) {
			return true
		}
		if next := s.Next(); !isLabelCell(next) {
			if v := cleanValue(next.Text()); v != nil {
				found = v
				return false
			}
		}
		if v := columnValue(s); v != nil {
			found = v
			return false
		}
		return true
	})
	return found
}

// columnValue reads the cell below cell in a header-row table
func columnValue(cell *goquery.Selection) *string {
	row := cell.Parent()
	if goquery.NodeName(row) != "tr" {
		return nil
	}
	below := row.NextAllFiltered("tr").First().Children().Eq(cell.Index())
	if below.Length() == 0 || isLabelCell(below) {
		return nil
	}
	return cleanValue(below.Text())
}

// isLabelCell reports whether s holds a field label rather than a value
func isLabelCell(s *goquery.Selection) bool {
	if s.Length() == 0 {
		return false
	}
	switch goquery.NodeName(s) {
	case "th", "dt", "label":
		return true
	}
	if s.HasClass("label") {
		return true
	}
	return knownLabels[labelKey(s.Text())]
}

func labelKey(text string) string {
	key := strings.ToLower(foldAccents(collapseSpace(text)))
	return strings.TrimSpace(strings.TrimSuffix(key, ":"))
}

func matchesLabel(text string, labels []string) bool {
	key := labelKey(text)
	for _, label := range labels {
		if key == label {
			return true
		}
	}
	return false
}

func collectLabels(rules []fieldRule) map[string]bool {
	labels := make(map[string]bool)
	for _, rule := range rules {
		for _, label := range rule.labels {
			labels[label] = true
		}
	}
	return labels
}

// extractParties reads rows of the parties table: role, name and an optional tax id
func extractParties(doc *goquery.Document) []models.Party {
	parties := make([]models.Party, 0)
	doc.Find("#partes tr, table.partes tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		role := cleanValue(cells.Eq(0).Text())
		name := cleanValue(cells.Eq(1).Text())
		if role == nil || name == nil {
			return
		}
		party := models.Party{
			RoleRaw: strings.TrimSuffix(*role, ":"),
			Name:    *name,
		}
		if cells.Length() > 2 {
			party.TaxID = cleanValue(cells.Eq(2).Text())
		}
		parties = append(parties, party)
	})
	return parties
}

// extractMovements reads docket rows (date, description) up to limit
func extractMovements(doc *goquery.Document, limit int) []models.Movement {
	movements := make([]models.Movement, 0, limit)
	doc.Find("#movimentacoes tr, table.movimentacoes tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if len(movements) >= limit {
			return false
		}
		cells := row.Find("td")
		if cells.Length() < 2 {
			return true
		}
		date := cleanValue(cells.Eq(0).Text())
		description := cleanValue(cells.Eq(1).Text())
		if date == nil || description == nil {
			return true
		}
		movements = append(movements, models.Movement{
			Date:        *date,
			Description: *description,
		})
		return true
	})
	return movements
}

// cleanValue trims the text and maps empty or placeholder values to nil
func cleanValue(text string) *string {
	v := collapseSpace(text)
	if v == "" || emptyValues[strings.ToLower(foldAccents(v))] {
		return nil
	}
	return &v
}

// collapseSpace trims and joins whitespace runs, NBSP included
func collapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
