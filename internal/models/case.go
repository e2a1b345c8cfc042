package models

import "time"

// Party roles
const (
	RolePetitioner = "petitioner"
	RoleRespondent = "respondent"
)

// Case statuses as normalized from the portal's wording
const (
	StatusPending     = "pending"
	StatusDisposed    = "disposed"
	StatusRegistered  = "registered"
	StatusFiled       = "filed"
	StatusAdmitted    = "admitted"
	StatusWithdrawn   = "withdrawn"
	StatusTransferred = "transferred"
)

const (
	UnknownCaseType       = "UNKNOWN"
	UnknownPetitioner     = "Unknown"
	UnspecifiedRespondent = "Not specified"
)

// CaseRecord is one parsed row of the portal's case listing.
type CaseRecord struct {
	CaseNumber      *string      `json:"case_number"`
	EfilingNumber   string       `json:"efiling_number"`
	CaseType        string       `json:"case_type"`
	CaseYear        int          `json:"case_year"`
	PartyRole       string       `json:"party_role"`
	PetitionerName  string       `json:"petitioner_name"`
	RespondentName  string       `json:"respondent_name"`
	EfilingDate     *string      `json:"efiling_date"`
	NextHearingDate *string      `json:"next_hearing_date"`
	Status          string       `json:"status"`
	BenchType       *string      `json:"bench_type"`
	JudgeName       *string      `json:"judge_name"`
	CourtNumber     *string      `json:"court_number"`
	PDFLinks        []BundleLink `json:"pdf_links"`
	SourceURL       string       `json:"khc_source_url"`
	RowIndex        int          `json:"row_index"`
	ScrapedAt       time.Time    `json:"scraped_at"`
}

// DisplayNumber is the number shown to the user: the case number when known,
// the e-filing number otherwise.
func (c CaseRecord) DisplayNumber() string {
	if c.CaseNumber != nil && *c.CaseNumber != "" {
		return *c.CaseNumber
	}
	return c.EfilingNumber
}

// MatchKeys returns the normalized keys this case can be joined on.
func (c CaseRecord) MatchKeys() []string {
	var raw []string
	if c.CaseNumber != nil {
		raw = append(raw, *c.CaseNumber)
	}
	raw = append(raw, c.EfilingNumber)
	return KeySet(raw...)
}

// Clone returns a deep copy so enrichment never aliases the caller's slices.
func (c CaseRecord) Clone() CaseRecord {
	out := c
	out.PDFLinks = append([]BundleLink(nil), c.PDFLinks...)
	return out
}

// StringPtr returns nil for empty strings.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
