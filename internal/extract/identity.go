package extract

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/models"
	"github.com/niranjanaambadi/lawmate-prod-sub000/pkg/logger"
)

// enrollmentPattern matches bar enrollment numbers such as K/001234/2015.
var enrollmentPattern = regexp.MustCompile(`(?i)\b([A-Z]{1,4}\s*/\s*\d{1,6}\s*/\s*\d{2,4})\b`)

var (
	idElementSelectors = []string{
		"[data-advocate-id]",
		"[data-enrollment]",
		"#advocate_id",
		"#enrollment_no",
		".advocate-id",
		".enrollment-no",
		".adv-code",
	}
	idAttributes = []string{"data-advocate-id", "data-enrollment", "value", "title"}

	// labeled ids are trusted anywhere on the page
	idLabelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)advocate\s*(?:id|code)\s*[:\-]\s*([A-Z0-9][A-Z0-9/\-]{1,24})`),
		regexp.MustCompile(`(?i)enrol+ment\s*(?:no\.?|number|id)\s*[:\-]?\s*([A-Z0-9][A-Z0-9/\-]{1,24})`),
		regexp.MustCompile(`(?i)\bKHC\s*(?:id|code)\s*[:\-]\s*([A-Z0-9][A-Z0-9/\-]{1,24})`),
	}

	idQueryParams = []string{"advocate_id", "adv_id", "enrollment", "enrollment_no", "enroll_no", "khc_id"}

	nameElementSelectors = []string{
		"[data-advocate-name]",
		"#advocate_name",
		".advocate-name",
		"#userName",
		".user-name",
		".profile-name",
		".navbar .dropdown-toggle",
	}

	nameTextPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)advocate\s*name\s*[:\-]\s*([^\n|]+)`),
		regexp.MustCompile(`(?:Welcome|WELCOME|welcome),?[ \t]+((?:Adv\.?[ \t]+)?[A-Z][A-Za-z.'\-]*(?:[ \t]+[A-Z][A-Za-z.'\-]*){0,5})`),
		regexp.MustCompile(`(?i)logged\s+in\s+as\s*[:\-]?[ \t]*([^\n|(]+)`),
	}

	welcomePrefix    = regexp.MustCompile(`(?i)^welcome,?\s+`)
	honorificPattern = regexp.MustCompile(`(?i)^(?:adv\.|advocate\s*[:\-]|sri\.?|smt\.?)\s*`)
)

// navigation words that trail a greeting on the same line
var trailingNavWords = map[string]bool{
	"logout": true, "log": true, "sign": true, "profile": true, "dashboard": true, "home": true, "settings": true,
}

// identityPage is the input every identity strategy sees.
type identityPage struct {
	doc    *goquery.Document
	text   string
	chrome string // text outside tables, away from case rows
	url    *url.URL
}

var khcIDChain = Chain[identityPage, string]{
	{Name: "element", Fn: idFromElement},
	{Name: "labeled-text", Fn: idFromLabel},
	{Name: "page-chrome", Fn: idFromChrome},
	{Name: "url-param", Fn: idFromURL},
}

var nameChain = Chain[identityPage, string]{
	{Name: "element", Fn: nameFromElement},
	{Name: "page-text", Fn: nameFromText},
}

func idFromElement(p identityPage) (string, bool) {
	for _, selector := range idElementSelectors {
		var found string
		p.doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			candidates := []string{flatten(s.Text())}
			for _, attr := range idAttributes {
				if v, ok := s.Attr(attr); ok {
					candidates = append([]string{flatten(v)}, candidates...)
				}
			}
			for _, c := range candidates {
				if m := enrollmentPattern.FindStringSubmatch(c); len(m) > 1 {
					found = compactID(m[1])
					return false
				}
			}
			return true
		})
		if found != "" {
			return found, true
		}
	}
	return "", false
}

func idFromLabel(p identityPage) (string, bool) {
	for _, re := range idLabelPatterns {
		if m := re.FindStringSubmatch(p.text); len(m) > 1 {
			return compactID(m[1]), true
		}
	}
	return "", false
}

// idFromChrome accepts a bare enrollment number only outside tables; a case
// row can carry enrollment-shaped references of other advocates.
func idFromChrome(p identityPage) (string, bool) {
	if m := enrollmentPattern.FindStringSubmatch(p.chrome); len(m) > 1 {
		return compactID(m[1]), true
	}
	return "", false
}

func idFromURL(p identityPage) (string, bool) {
	if p.url == nil {
		return "", false
	}
	q := p.url.Query()
	for _, key := range idQueryParams {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			return v, true
		}
	}
	return "", false
}

func compactID(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

func nameFromElement(p identityPage) (string, bool) {
	for _, selector := range nameElementSelectors {
		s := p.doc.Find(selector).First()
		if s.Length() == 0 {
			continue
		}
		if v, ok := s.Attr("data-advocate-name"); ok {
			if name := cleanName(v); len(name) >= models.MinNameLength {
				return name, true
			}
		}
		if name := cleanName(s.Text()); len(name) >= models.MinNameLength {
			return name, true
		}
	}
	return "", false
}

func nameFromText(p identityPage) (string, bool) {
	for _, re := range nameTextPatterns {
		if m := re.FindStringSubmatch(p.text); len(m) > 1 {
			if name := cleanName(m[1]); len(name) >= models.MinNameLength {
				return name, true
			}
		}
	}
	return "", false
}

func cleanName(s string) string {
	s = flatten(s)
	s = welcomePrefix.ReplaceAllString(s, "")
	s = honorificPattern.ReplaceAllString(strings.TrimSpace(s), "")
	words := strings.Fields(s)
	for len(words) > 0 && trailingNavWords[strings.ToLower(strings.Trim(words[len(words)-1], ".!"))] {
		words = words[:len(words)-1]
	}
	return strings.Trim(strings.Join(words, " "), " ,.!")
}

// IdentityExtractor derives the logged-in advocate from the rendered page.
type IdentityExtractor struct {
	logger *logger.Logger
	now    func() time.Time
}

// NewIdentityExtractor creates a new identity extractor
func NewIdentityExtractor(logger *logger.Logger, now func() time.Time) *IdentityExtractor {
	if now == nil {
		now = time.Now
	}
	return &IdentityExtractor{logger: logger, now: now}
}

// Extract returns the advocate identity or nil when no usable name is found.
// The enrollment id is optional.
func (x *IdentityExtractor) Extract(doc *goquery.Document, pageURL, userAgent string) *models.AdvocateIdentity {
	body := doc.Find("body")
	chrome := body.Clone()
	chrome.Find("table").Remove()
	page := identityPage{doc: doc, text: selectionText(body), chrome: selectionText(chrome)}
	if u, err := url.Parse(pageURL); err == nil {
		page.url = u
	}

	name, nameSource, ok := nameChain.First(page)
	if !ok || len(name) < models.MinNameLength {
		x.logger.Warn("Advocate name not found on page", "url", pageURL)
		return nil
	}

	identity := &models.AdvocateIdentity{
		Name:      name,
		ScrapedAt: x.now(),
		PageURL:   pageURL,
		UserAgent: userAgent,
	}
	id, idSource, found := khcIDChain.First(page)
	if found {
		identity.KhcID = &id
	}

	x.logger.Debug("Advocate identity extracted",
		"name_source", nameSource,
		"id_source", idSource,
		"has_id", found,
	)
	return identity
}

// ExtractHTML is Extract over raw markup.
func (x *IdentityExtractor) ExtractHTML(page, pageURL, userAgent string) (*models.AdvocateIdentity, error) {
	doc, err := ParseDocument(page)
	if err != nil {
		return nil, err
	}
	return x.Extract(doc, pageURL, userAgent), nil
}
