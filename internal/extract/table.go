package extract

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/models"
	"github.com/niranjanaambadi/lawmate-prod-sub000/pkg/logger"
)

// DefaultMinCells is the fewest cells a data row may have.
const DefaultMinCells = 3

// tableSelectors locate the case listing, most specific first.
var tableSelectors = []string{
	"table#myCasesTable",
	"table#mycases_table",
	"table#case_list",
	"table.dataTable",
	"table#example",
}

// TableOptions configure a TableExtractor.
type TableOptions struct {
	DefaultPartyRole string
	MinCells         int
	Now              func() time.Time
}

// TableExtractor parses the rendered "My Cases" table into case records.
type TableExtractor struct {
	logger *logger.Logger
	opts   TableOptions
}

// NewTableExtractor creates a new table extractor
func NewTableExtractor(logger *logger.Logger, opts TableOptions) *TableExtractor {
	if opts.MinCells <= 0 {
		opts.MinCells = DefaultMinCells
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultPartyRole == "" {
		opts.DefaultPartyRole = models.RolePetitioner
	}
	return &TableExtractor{logger: logger, opts: opts}
}

// FindCaseTable returns the case listing table, trying known selectors
// before any table whose header mentions a case.
func FindCaseTable(doc *goquery.Document) *goquery.Selection {
	for _, selector := range tableSelectors {
		if t := doc.Find(selector).First(); t.Length() > 0 {
			return t
		}
	}

	var found *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		for _, h := range headerCells(t) {
			if strings.Contains(normalizeHeader(h), "case") {
				found = t
				return false
			}
		}
		return true
	})
	return found
}

// tableRows returns the rows that belong to t itself, not to nested tables.
func tableRows(t *goquery.Selection) *goquery.Selection {
	return t.ChildrenFiltered("thead, tbody, tfoot").ChildrenFiltered("tr").AddSelection(t.ChildrenFiltered("tr"))
}

func isHeaderRow(row *goquery.Selection) bool {
	if goquery.NodeName(row.Parent()) == "thead" {
		return true
	}
	cells := row.ChildrenFiltered("td, th")
	return cells.Length() > 0 && cells.Length() == row.ChildrenFiltered("th").Length()
}

func headerCells(t *goquery.Selection) []string {
	var headers []string
	tableRows(t).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if !isHeaderRow(row) {
			return true
		}
		headers = headers[:0]
		row.ChildrenFiltered("td, th").Each(func(_ int, c *goquery.Selection) {
			headers = append(headers, flatten(c.Text()))
		})
		// the last header row wins, which handles grouped two-row headers
		return true
	})
	return headers
}

func dataRows(t *goquery.Selection) []*goquery.Selection {
	var rows []*goquery.Selection
	tableRows(t).Each(func(_ int, row *goquery.Selection) {
		if !isHeaderRow(row) {
			rows = append(rows, row)
		}
	})
	return rows
}

// HasCaseRows reports whether the case table exists with at least one
// populated row.
func HasCaseRows(doc *goquery.Document) bool {
	t := FindCaseTable(doc)
	if t == nil {
		return false
	}
	for _, row := range dataRows(t) {
		if row.ChildrenFiltered("td").Length() >= DefaultMinCells {
			return true
		}
	}
	return false
}

// Extract parses every case row on the page. A missing or empty table yields
// an empty list, never an error.
func (e *TableExtractor) Extract(doc *goquery.Document, pageURL string) []models.CaseRecord {
	table := FindCaseTable(doc)
	if table == nil {
		e.logger.Warn("Case table not found", "url", pageURL)
		return []models.CaseRecord{}
	}

	// Columns are resolved once; row parsing below is purely index based.
	headers := headerCells(table)
	columns := ResolveColumns(headers)
	e.logger.Debug("Resolved columns", "headers", headers, "columns", columns)

	rows := dataRows(table)
	cases := make([]models.CaseRecord, 0, len(rows))
	for i, row := range rows {
		record, ok := e.ExtractRow(row, columns, i, pageURL)
		if !ok {
			continue
		}
		cases = append(cases, record)
	}

	if len(cases) == 0 {
		e.logger.Warn("Case table has no parsable rows", "url", pageURL, "rows", len(rows))
	}
	return cases
}

// ExtractHTML is Extract over raw markup.
func (e *TableExtractor) ExtractHTML(page, pageURL string) ([]models.CaseRecord, error) {
	doc, err := ParseDocument(page)
	if err != nil {
		return nil, err
	}
	return e.Extract(doc, pageURL), nil
}

// ExtractRow parses a single row. Rows with too few cells are skipped.
func (e *TableExtractor) ExtractRow(row *goquery.Selection, columns ColumnMap, index int, pageURL string) (models.CaseRecord, bool) {
	cellSel := row.ChildrenFiltered("td, th")
	if cellSel.Length() < e.opts.MinCells {
		e.logger.Warn("Skipping row below minimum cell count",
			"row", index,
			"cells", cellSel.Length(),
			"min", e.opts.MinCells,
		)
		return models.CaseRecord{}, false
	}

	cells := make([]string, cellSel.Length())
	cellSel.Each(func(i int, c *goquery.Selection) {
		cells[i] = selectionText(c)
	})
	ordered := logicalCells(cells, columns)
	rowText := strings.Join(ordered, "\n")

	caseCell := cell(cells, columns.CaseNumber)
	caseNumber := ExtractCaseNumber(caseCell)
	efilingDate := extractDate(filedOnPattern, rowText, cell(cells, columns.Efiling))

	caseTypeSource := caseCell
	if caseNumber != nil {
		caseTypeSource = *caseNumber
	}

	partyCell := cell(cells, columns.Parties)
	parties := ExtractParties(partyCell)

	statusText := cell(cells, columns.Status)
	if columns.Status < 0 {
		statusText = rowText
	}

	roleAttr, _ := row.Attr("data-party-role")
	if roleAttr == "" {
		roleAttr, _ = row.Find("[data-party-role]").First().Attr("data-party-role")
	}
	role, _, ok := roleChain(ordered, roleAttr).First(rowText)
	if !ok {
		role = e.opts.DefaultPartyRole
	}

	base := BaseURL(pageURL)
	links := documentAnchors(row, pageURL)
	links = append(links, BundleButtons(row, base)...)

	now := e.opts.Now()
	record := models.CaseRecord{
		CaseNumber:      caseNumber,
		EfilingNumber:   ExtractEfilingNumber(rowText, caseNumber),
		CaseType:        ExtractCaseType(caseTypeSource),
		CaseYear:        ExtractCaseYear(caseNumber, efilingDate, now),
		PartyRole:       role,
		PetitionerName:  parties.Petitioner,
		RespondentName:  parties.Respondent,
		EfilingDate:     efilingDate,
		NextHearingDate: extractDate(nextHearingPattern, rowText, ""),
		Status:          NormalizeStatus(statusText),
		BenchType:       extractBench(rowText),
		JudgeName:       extractJudge(rowText),
		CourtNumber:     extractCourt(rowText),
		PDFLinks:        models.BundlesOnly(links),
		SourceURL:       pageURL,
		RowIndex:        index,
		ScrapedAt:       now,
	}

	if strings.HasPrefix(record.EfilingNumber, TempEfilingPrefix) {
		e.logger.Warn("No e-filing number found, using content-derived placeholder",
			"row", index,
			"efiling_number", record.EfilingNumber,
		)
	}
	return record, true
}
