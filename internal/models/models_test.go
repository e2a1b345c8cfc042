package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentIDIsPure(t *testing.T) {
	url := "https://portal.example/Casebundle/loadBundle?token=WPC&salt=991&pds=P&cnr=KLHC010&cny=WP%28C%29+5896%2F2026"
	first := DocumentID(url, "Case Bundle")
	second := DocumentID(url, "Case Bundle")

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, DocumentID(url, "Case Bundle 2"))
	assert.NotEqual(t, first, DocumentID(url+"&x=1", "Case Bundle"))
	assert.Equal(t, "doc_A17", DocumentID("https://portal.example/view?doc_id=A17", "x"))
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"WP(C) 5896/2026",
		"  EKHC/2026/WPC/05896 ",
		"Crl.A\tNo. 12 / 2024",
		"",
		"ÄBC déf",
	}
	for _, in := range inputs {
		loose := NormalizeLoose(in)
		alnum := NormalizeAlnum(in)
		assert.Equal(t, loose, NormalizeLoose(loose), in)
		assert.Equal(t, alnum, NormalizeAlnum(alnum), in)
	}
	assert.Equal(t, "wp(c)5896/2026", NormalizeLoose("WP(C) 5896/2026"))
	assert.Equal(t, "wpc58962026", NormalizeAlnum("WP(C) 5896/2026"))
}

func TestKeySetJoinsBothForms(t *testing.T) {
	keys := KeySet("WP(C) 5896/2026", "", "wp(c)5896/2026")
	assert.Equal(t, []string{"wp(c)5896/2026", "wpc58962026"}, keys)
}

func TestDecodeTitle(t *testing.T) {
	assert.Equal(t, "WP(C) 5896/2026", DecodeTitle("<b>WP&#40;C&#41;</b>&nbsp;5896/2026"))
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		url, label, want string
	}{
		{"https://p/Casebundle/loadBundle?token=1", "Print Case Bundle", CategoryCaseBundle},
		{"https://p/efile/print/12", "e-File Print", CategoryCaseFile},
		{"https://p/docs/1.pdf", "Counter Affidavit", CategoryCounterAffidavit},
		{"https://p/docs/2.pdf", "Vakalathnama", CategoryVakalatnama},
		{"https://p/docs/3.pdf", "Interim Order", CategoryCourtOrder},
		{"https://p/docs/4.pdf", "Judgement", CategoryJudgment},
		{"https://p/docs/5.pdf", "Annexure P1", CategoryAnnexure},
		{"https://p/docs/6.pdf", "", CategoryOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Categorize(tt.url, tt.label), tt.label)
	}
}

func TestBundlesOnly(t *testing.T) {
	bundle := NewBundleLink("https://p/Casebundle/loadBundle?token=1", "Case Bundle")
	links := []BundleLink{
		NewBundleLink("https://p/efile/print/1", "e-File Print"),
		bundle,
		bundle,
		NewBundleLink("https://p/docs/receipt.pdf", "Receipt"),
	}
	out := BundlesOnly(links)
	assert.Equal(t, []BundleLink{bundle}, out)
	for _, l := range out {
		assert.Equal(t, CategoryCaseBundle, l.Category)
	}
}

func TestMergeLinksSkipsDuplicates(t *testing.T) {
	a := NewBundleLink("https://p/a", "Case Bundle")
	b := NewBundleLink("https://p/b", "Case Bundle")
	merged := MergeLinks([]BundleLink{a}, []BundleLink{a, b})
	assert.Equal(t, []BundleLink{a, b}, merged)
}
