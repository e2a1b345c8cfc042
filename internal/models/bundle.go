package models

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Document categories
const (
	CategoryCaseBundle       = "case_bundle"
	CategoryCaseFile         = "case_file"
	CategoryAffirmation      = "affirmation"
	CategoryReceipt          = "receipt"
	CategoryAnnexure         = "annexure"
	CategoryJudgment         = "judgment"
	CategoryCourtOrder       = "court_order"
	CategoryCounterAffidavit = "counter_affidavit"
	CategoryVakalatnama      = "vakalatnama"
	CategoryNotice           = "notice"
	CategoryOther            = "other"
)

// BundleLink is a downloadable document attached to a case.
type BundleLink struct {
	URL        string `json:"url"`
	DocumentID string `json:"document_id"`
	Label      string `json:"label"`
	Category   string `json:"category"`
}

// NewBundleLink builds a link with a deterministic document id and category.
func NewBundleLink(rawURL, label string) BundleLink {
	label = strings.TrimSpace(label)
	return BundleLink{
		URL:        rawURL,
		DocumentID: DocumentID(rawURL, label),
		Label:      label,
		Category:   Categorize(rawURL, label),
	}
}

var naturalIDParams = []string{"document_id", "doc_id", "docid", "fileid"}

// DocumentID derives a stable id from (url, label). A natural id carried in
// the url query wins; otherwise the pair is hashed.
func DocumentID(rawURL, label string) string {
	if u, err := url.Parse(rawURL); err == nil {
		q := u.Query()
		for _, p := range naturalIDParams {
			if v := strings.TrimSpace(q.Get(p)); v != "" {
				return "doc_" + v
			}
		}
	}
	sum := sha256.Sum256([]byte(rawURL + "\x00" + strings.TrimSpace(label)))
	return "doc_" + hex.EncodeToString(sum[:])[:16]
}

// categoryRules are checked in order against the lowercased label and url.
var categoryRules = []struct {
	category string
	needles  []string
}{
	{CategoryCaseBundle, []string{"case bundle", "casebundle", "loadbundle", "bundle"}},
	{CategoryCounterAffidavit, []string{"counter affidavit", "counter_affidavit", "counter"}},
	{CategoryAffirmation, []string{"affirmation", "affidavit"}},
	{CategoryVakalatnama, []string{"vakalat"}},
	{CategoryReceipt, []string{"receipt", "fee paid"}},
	{CategoryAnnexure, []string{"annexure", "exhibit"}},
	{CategoryJudgment, []string{"judgment", "judgement"}},
	{CategoryCourtOrder, []string{"order"}},
	{CategoryNotice, []string{"notice"}},
	{CategoryCaseFile, []string{"e-file", "efile", "case file", "print", "petition"}},
}

// Categorize maps a link onto the closed category set.
func Categorize(rawURL, label string) string {
	hay := strings.ToLower(label + " " + rawURL)
	for _, rule := range categoryRules {
		for _, needle := range rule.needles {
			if strings.Contains(hay, needle) {
				return rule.category
			}
		}
	}
	return CategoryOther
}

// BundlesOnly keeps case_bundle links, dropping duplicates by document id.
func BundlesOnly(links []BundleLink) []BundleLink {
	out := make([]BundleLink, 0, len(links))
	seen := make(map[string]bool, len(links))
	for _, l := range links {
		if l.Category != CategoryCaseBundle || seen[l.DocumentID] {
			continue
		}
		seen[l.DocumentID] = true
		out = append(out, l)
	}
	return out
}

// MergeLinks appends extra onto base, skipping document ids already present.
func MergeLinks(base, extra []BundleLink) []BundleLink {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]BundleLink, 0, len(base)+len(extra))
	for _, l := range base {
		if !seen[l.DocumentID] {
			seen[l.DocumentID] = true
			out = append(out, l)
		}
	}
	for _, l := range extra {
		if !seen[l.DocumentID] {
			seen[l.DocumentID] = true
			out = append(out, l)
		}
	}
	return out
}
