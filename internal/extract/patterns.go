package extract

import "regexp"

// caseCore matches a court case number such as "WP(C) 5896/2026",
// "Crl.A No. 12/2024" or "Bail Appl. 33/2025".
const caseCore = `[A-Z][A-Za-z.()]*(?:\s?\([A-Za-z.]+\))?(?:\s[A-Z][A-Za-z.()]*)?\.?\s*(?:No\.?\s*)?\d{1,7}\s*/\s*\d{4}`

const monthNames = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)[a-z]*`

// datePattern matches ISO, numeric and month-name dates.
const datePattern = `\d{4}-\d{1,2}-\d{1,2}|\d{1,2}[/\-.]\d{1,2}[/\-.]\d{4}|\d{1,2}[\s\-]` + monthNames + `[\s\-,]+\d{4}|` + monthNames + `\s+\d{1,2},?\s+\d{4}`

var (
	filingNoPattern   = regexp.MustCompile(`(?i)filing\s*no\.?\s*[:\-]?\s*(` + caseCore + `)`)
	caseNoLabel       = regexp.MustCompile(`(?i)case\s*no\.?\s*[:\-]?\s*(` + caseCore + `)`)
	caseCorePattern   = regexp.MustCompile(`(` + caseCore + `)`)
	numberYearPattern = regexp.MustCompile(`(\d{1,7}\s*/\s*\d{4})`)
	casePrefixPattern = regexp.MustCompile(`^(.*?)\s*(?:No\.?\s*)?\d{1,7}\s*/\s*\d{4}`)
	caseWordPattern   = regexp.MustCompile(`[A-Za-z][A-Za-z.()]*`)
	slashYearPattern  = regexp.MustCompile(`/\s*((?:19|20)\d{2})\b`)
	anyYearPattern    = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)

	efileLabelPattern = regexp.MustCompile(`(?i)\be-?\s?fil(?:e|ing)\s*(?:no|number)\.?\s*[:\-]?\s*([A-Z0-9][A-Z0-9/\-]{5,})`)
	efileCodePattern  = regexp.MustCompile(`\b(E[A-Z]{2,5}/\d{4}/[A-Za-z().]+/\d+)\b`)

	versusPattern  = regexp.MustCompile(`(?i)\s+(?:vs\.?|v/s\.?|v\.|versus)\s+`)
	andPattern     = regexp.MustCompile(`(?i)\s+and\s+`)
	partyLabel     = regexp.MustCompile(`(?i)^\s*(?:petitioner|respondent|appellant|pet|resp)\s*(?:\(s\))?\s*[:\-]\s*`)
	trailingFiller = regexp.MustCompile(`[\s,;:\-]+$`)

	dateSeparator      = regexp.MustCompile(`[/\-.]`)
	dateToken          = regexp.MustCompile(`(?i)\b(` + datePattern + `)\b`)
	filedOnPattern     = regexp.MustCompile(`(?i)(?:e-?filed\s*(?:on|date)|filing\s*date|date\s*of\s*filing|filed\s*on)\s*[:\-]?\s*(` + datePattern + `)`)
	nextHearingPattern = regexp.MustCompile(`(?i)(?:next\s*(?:hearing\s*)?date|next\s*hearing|posted\s*(?:on|to)|listed\s*on)\s*[:\-]?\s*(` + datePattern + `)`)

	explicitRolePattern = regexp.MustCompile(`(?i)\b(?:appearing|counsel|advocate|adv\.?)\s+for\s+(?:the\s+)?(petitioner|respondent|appellant)`)
	labeledRolePattern  = regexp.MustCompile(`(?i)\b(?:role|side)\s*[:\-]\s*(petitioner|respondent|appellant)`)
	bareRolePattern     = regexp.MustCompile(`(?i)^\s*(petitioner|respondent|appellant)\s*(?:\(s\))?\s*$`)

	benchPattern = regexp.MustCompile(`(?i)\b(single|division|full|larger)\s+bench\b`)
	judgePattern = regexp.MustCompile(`(?i:hon'?ble\s+)?(?i:(?:mr|mrs|ms|dr)\.?\s+)?(?i:justice)[ \t]+([A-Z][A-Za-z.]*(?:[ \t]+[A-Z][A-Za-z.]*){0,4})`)
	courtPattern = regexp.MustCompile(`(?i)\bcourt\s*(?:hall|room)?\s*(?:no\.?|number)?\s*[:\-]?\s*(\d{1,3}[A-Z]?)\b`)

	documentHrefPattern = regexp.MustCompile(`(?i)\.pdf\b|download|document|bundle|viewfile|getfile`)
	bundleHandler       = regexp.MustCompile(`(?i)bundle`)
	bundleButtonText    = regexp.MustCompile(`(?i)(?:print\s*)?case\s*bundle`)
	quotedArgPattern    = regexp.MustCompile(`'((?:[^'\\]|\\.)*)'|"((?:[^"\\]|\\.)*)"`)
)

// caseTypeAliases maps the alnum form of a case-type prefix to its
// canonical short code.
var caseTypeAliases = map[string]string{
	"wpc":       "WP(C)",
	"wpcrl":     "WP(Crl.)",
	"wa":        "WA",
	"opc":       "OP(C)",
	"opcrl":     "OP(Crl.)",
	"opkat":     "OP(KAT)",
	"opfc":      "OP(FC)",
	"oprc":      "OP(RC)",
	"crla":      "Crl.A",
	"crlmc":     "Crl.MC",
	"crlrp":     "Crl.RP",
	"crlrev":    "Crl.Rev.Pet",
	"crlrevpet": "Crl.Rev.Pet",
	"bailappl":  "Bail Appl.",
	"ba":        "Bail Appl.",
	"mfa":       "MFA",
	"rfa":       "RFA",
	"rsa":       "RSA",
	"crp":       "CRP",
	"maca":      "MACA",
	"matappeal": "Mat.Appeal",
	"rp":        "RP",
	"ia":        "IA",
	"ita":       "ITA",
	"cocp":      "CoCP",
	"contcasec": "Cont.Case(C)",
	"arba":      "Arb.A",
	"arbappeal": "Arb.A",
	"rcrev":     "RCRev.",
	"exfa":      "Ex.FA",
	"sa":        "SA",
	"cma":       "CMA",
}

// statusRules are evaluated in order; the first keyword hit wins.
var statusRules = []struct {
	status   string
	keywords []string
}{
	{"disposed", []string{"disposed", "decided", "closed", "dismissed"}},
	{"withdrawn", []string{"withdrawn", "withdraw"}},
	{"transferred", []string{"transferred", "transfer"}},
	{"admitted", []string{"admitted", "admission"}},
	{"registered", []string{"registered", "registration"}},
	{"filed", []string{"e-filed", "efiled", "filed", "submitted"}},
	{"pending", []string{"pending", "scrutiny", "defect", "returned", "objection"}},
}

// dateLayouts are tried for month-name dates.
var dateLayouts = []string{
	"2-Jan-2006",
	"2-January-2006",
	"2 Jan 2006",
	"2 January 2006",
	"2 Jan, 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
}
