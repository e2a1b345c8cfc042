package enrich

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/bytedance/sonic"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/extract"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/models"
)

// flexInt accepts counts sent as numbers or numeric strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid count %q", s)
	}
	*f = flexInt(n)
	return nil
}

// ListingRow holds the identifiers the detail endpoint needs.
type ListingRow struct {
	CINO           string
	EfileNo        string
	DigitizationNo string
	EIDEnc         string
	CTypeEnc       string
	SubEnc         string
	CasePD         string
	CTitle         string
}

// Complete reports whether the row can be used for a detail fetch.
func (r ListingRow) Complete() bool {
	return r.EfileNo != "" && r.EIDEnc != "" && r.CTypeEnc != ""
}

// Keys are the normalized keys used to join the row to parsed cases.
func (r ListingRow) Keys() []string {
	return models.KeySet(r.EfileNo, models.DecodeTitle(r.CTitle))
}

// rowFields maps row fields to the keys the listing may use for them.
var rowFields = []struct {
	set  func(*ListingRow, string)
	keys []string
}{
	{func(r *ListingRow, v string) { r.CINO = v }, []string{"cino", "cnr", "cnr_no"}},
	{func(r *ListingRow, v string) { r.EfileNo = v }, []string{"efile_no", "efileno", "efile_number", "efiling_no"}},
	{func(r *ListingRow, v string) { r.DigitizationNo = v }, []string{"dgtzn_no", "digitization_no"}},
	{func(r *ListingRow, v string) { r.EIDEnc = v }, []string{"eid_enc", "efile_id_enc"}},
	{func(r *ListingRow, v string) { r.CTypeEnc = v }, []string{"ctype_enc", "case_type_enc"}},
	{func(r *ListingRow, v string) { r.SubEnc = v }, []string{"sub_enc"}},
	{func(r *ListingRow, v string) { r.CasePD = v }, []string{"case_pd", "pd"}},
	{func(r *ListingRow, v string) { r.CTitle = v }, []string{"ctitle", "case_title", "cause_title"}},
}

// detailArgOrder is the argument order of the listing's "details" handler
// when rows arrive as arrays of rendered cells.
var detailArgOrder = []func(*ListingRow, string){
	func(r *ListingRow, v string) { r.CINO = v },
	func(r *ListingRow, v string) { r.EfileNo = v },
	func(r *ListingRow, v string) { r.DigitizationNo = v },
	func(r *ListingRow, v string) { r.EIDEnc = v },
	func(r *ListingRow, v string) { r.CTypeEnc = v },
	func(r *ListingRow, v string) { r.SubEnc = v },
	func(r *ListingRow, v string) { r.CasePD = v },
	func(r *ListingRow, v string) { r.CTitle = v },
}

// ParseRow decodes a listing row given either as an object or as an array
// of rendered cells.
func ParseRow(raw []byte) (ListingRow, bool) {
	var obj map[string]interface{}
	if err := sonic.Unmarshal(raw, &obj); err == nil {
		return rowFromObject(obj), true
	}

	var cells []interface{}
	if err := sonic.Unmarshal(raw, &cells); err == nil {
		return rowFromCells(cells)
	}
	return ListingRow{}, false
}

func rowFromObject(obj map[string]interface{}) ListingRow {
	lower := make(map[string]interface{}, len(obj))
	for k, v := range obj {
		lower[strings.ToLower(k)] = v
	}

	var row ListingRow
	for _, f := range rowFields {
		for _, k := range f.keys {
			if v, ok := lower[k]; ok && v != nil {
				if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
					f.set(&row, s)
					break
				}
			}
		}
	}
	return row
}

func rowFromCells(cells []interface{}) (ListingRow, bool) {
	var b strings.Builder
	for _, c := range cells {
		if s, ok := c.(string); ok {
			b.WriteString("<div>")
			b.WriteString(s)
			b.WriteString("</div>")
		}
	}
	doc, err := extract.ParseDocument(b.String())
	if err != nil {
		return ListingRow{}, false
	}

	var row ListingRow
	found := false
	doc.Find("[onclick]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		handler, _ := s.Attr("onclick")
		args := extract.HandlerArgs(handler)
		if len(args) < len(detailArgOrder) {
			return true
		}
		for i, set := range detailArgOrder {
			set(&row, strings.TrimSpace(args[i]))
		}
		found = true
		return false
	})
	return row, found
}
