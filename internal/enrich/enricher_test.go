package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/extract"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/models"
	"github.com/niranjanaambadi/lawmate-prod-sub000/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingScript = `<html><head>
<script src="/assets/datatables.min.js"></script>
<script>
$('#myCasesTable').DataTable({
	serverSide: true,
	ajax: { url: "/Mycases/list_ajax", type: "POST" }
});
</script></head><body></body></html>`

const bundleFragment = `<div class="modal-body">
<button class="btn" onclick="printBundle('WPC','991','P','KLHC010001232026','WP(C) 5896/2026')">Print Case Bundle</button>
<a href="/docs/x.pdf" onclick="viewOrder('a','b')">Order</a>
</div>`

func testCases() []models.CaseRecord {
	return []models.CaseRecord{
		{CaseNumber: models.StringPtr("WP(C) 5896/2026"), EfilingNumber: "EWPC/2026/00001"},
		{EfilingNumber: "ECRLA/2025/0042"},
		{CaseNumber: models.StringPtr("OP 3/2024"), EfilingNumber: "EOP/2024/0003"},
	}
}

type fakePortal struct {
	srv          *httptest.Server
	listCalls    int32
	detailCalls  int32
	listHandler  func(w http.ResponseWriter, r *http.Request)
	detailStatus map[string]int
}

func newFakePortal(t *testing.T, list func(w http.ResponseWriter, r *http.Request)) *fakePortal {
	fp := &fakePortal{listHandler: list, detailStatus: map[string]int{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/Mycases/list_ajax", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fp.listCalls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		fp.listHandler(w, r)
	})
	mux.HandleFunc("/Mycases/get_case_details", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fp.detailCalls, 1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "tok123", r.Header.Get("X-CSRF-TOKEN"))
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		ck, err := r.Cookie("ci_session")
		if assert.NoError(t, err) {
			assert.Equal(t, "s1", ck.Value)
		}

		if code, ok := fp.detailStatus[r.URL.Query().Get("eid_enc")]; ok {
			w.WriteHeader(code)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"html": bundleFragment})
	})
	fp.srv = httptest.NewServer(mux)
	t.Cleanup(fp.srv.Close)
	return fp
}

func (fp *fakePortal) enricher(opts Options) *Enricher {
	client := NewPortalClient(ClientOptions{
		BaseURL:    fp.srv.URL,
		DetailPath: "/Mycases/get_case_details",
		CSRFCookie: "csrf_cookie_name",
	})
	client.SetCookies([]*http.Cookie{
		{Name: "csrf_cookie_name", Value: "tok123"},
		{Name: "ci_session", Value: "s1"},
	})
	return NewEnricher(client, logger.NewNop(), opts)
}

func listingDoc(t *testing.T) *goquery.Document {
	t.Helper()
	doc, err := extract.ParseDocument(listingScript)
	require.NoError(t, err)
	return doc
}

func writeListing(w http.ResponseWriter, total interface{}, rows []map[string]interface{}) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"draw":         1,
		"recordsTotal": total,
		"data":         rows,
	})
}

func TestEnrichMergesBundleLinks(t *testing.T) {
	fp := newFakePortal(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "1", r.PostForm.Get("draw"))
		assert.Equal(t, "0", r.PostForm.Get("start"))
		assert.Equal(t, "100", r.PostForm.Get("length"))
		for _, f := range []string{"cstat", "kw_efileno", "cfrno", "partyname", "pip", "cia", "cvt"} {
			assert.True(t, r.PostForm.Has(f), f)
		}

		writeListing(w, 3, []map[string]interface{}{
			{"cino": "KLHC010001232026", "efile_no": "EWPC/2026/00001", "eid_enc": "e1", "ctype_enc": "c1", "ctitle": "WP(C) 5896/2026", "case_pd": "P"},
			{"efile_no": "EOTHER/2020/0009", "eid_enc": "e2", "ctype_enc": "c2"},
			{"efile_no": "ECRLA/2025/0042", "eid_enc": "e3", "ctype_enc": "c3"},
		})
	})
	fp.detailStatus["e3"] = http.StatusInternalServerError

	cases := testCases()
	out, stats := fp.enricher(Options{}).Enrich(context.Background(), listingDoc(t), fp.srv.URL+"/mycases", cases)

	require.Len(t, out, 3)
	require.Len(t, out[0].PDFLinks, 1)
	link := out[0].PDFLinks[0]
	assert.Equal(t, fp.srv.URL+"/Casebundle/loadBundle?token=WPC&salt=991&pds=P&cnr=KLHC010001232026&cny=WP%28C%29+5896%2F2026", link.URL)
	assert.Equal(t, models.CategoryCaseBundle, link.Category)

	assert.Empty(t, out[1].PDFLinks)
	assert.Empty(t, out[2].PDFLinks)
	assert.Empty(t, cases[0].PDFLinks, "input must not be mutated")

	assert.Equal(t, int32(1), atomic.LoadInt32(&fp.listCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&fp.detailCalls), "non-target rows are not fetched")
	assert.Equal(t, Stats{Pages: 1, Listed: 3, Matched: 2, Fetched: 1, Failed: 1, Enriched: 1}, stats)
}

func TestEnrichKeepsExistingLinks(t *testing.T) {
	fp := newFakePortal(t, func(w http.ResponseWriter, r *http.Request) {
		writeListing(w, 1, []map[string]interface{}{
			{"efile_no": "EWPC/2026/00001", "eid_enc": "e1", "ctype_enc": "c1"},
		})
	})

	cases := testCases()
	existing := models.NewBundleLink("https://portal/Casebundle/loadBundle?token=OLD", "Case Bundle")
	cases[0].PDFLinks = []models.BundleLink{existing}

	out, _ := fp.enricher(Options{}).Enrich(context.Background(), listingDoc(t), fp.srv.URL+"/mycases", cases)
	require.Len(t, out[0].PDFLinks, 2)
	assert.Equal(t, existing, out[0].PDFLinks[0])
}

func TestPaginationStopsAtPageCap(t *testing.T) {
	fp := newFakePortal(t, func(w http.ResponseWriter, r *http.Request) {
		// the server always claims far more rows than it serves
		writeListing(w, "100000", []map[string]interface{}{
			{"efile_no": "EX/1", "eid_enc": "x", "ctype_enc": "x"},
			{"efile_no": "EX/2", "eid_enc": "x", "ctype_enc": "x"},
		})
	})

	out, stats := fp.enricher(Options{PageSize: 2}).Enrich(context.Background(), listingDoc(t), fp.srv.URL+"/mycases", testCases())
	assert.Equal(t, int32(DefaultMaxPages), atomic.LoadInt32(&fp.listCalls))
	assert.Equal(t, DefaultMaxPages, stats.Pages)
	assert.Zero(t, atomic.LoadInt32(&fp.detailCalls))
	assert.Equal(t, testCases(), out)
}

func TestPaginationStopsOnShortPage(t *testing.T) {
	var calls int32
	fp := newFakePortal(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		rows := []map[string]interface{}{{"efile_no": "EX/1"}, {"efile_no": "EX/2"}}
		if n == 3 {
			rows = rows[:1]
		}
		writeListing(w, 999, rows)
	})

	_, stats := fp.enricher(Options{PageSize: 2}).Enrich(context.Background(), listingDoc(t), fp.srv.URL+"/mycases", testCases())
	assert.Equal(t, 3, stats.Pages)
	assert.Equal(t, 5, stats.Listed)
}

func TestPaginationStopsWhenTotalExhausted(t *testing.T) {
	fp := newFakePortal(t, func(w http.ResponseWriter, r *http.Request) {
		writeListing(w, 4, []map[string]interface{}{{"efile_no": "EX/1"}, {"efile_no": "EX/2"}})
	})

	_, stats := fp.enricher(Options{PageSize: 2}).Enrich(context.Background(), listingDoc(t), fp.srv.URL+"/mycases", testCases())
	assert.Equal(t, 2, stats.Pages)
}

func TestEnrichDegradesOnListingFailure(t *testing.T) {
	fp := newFakePortal(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	out, stats := fp.enricher(Options{}).Enrich(context.Background(), listingDoc(t), fp.srv.URL+"/mycases", testCases())
	assert.Equal(t, testCases(), out)
	assert.Zero(t, stats.Pages)
}

func TestEnrichDegradesWithoutEndpoint(t *testing.T) {
	fp := newFakePortal(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("listing must not be called")
	})
	doc, err := extract.ParseDocument("<html><body></body></html>")
	require.NoError(t, err)

	out, _ := fp.enricher(Options{}).Enrich(context.Background(), doc, fp.srv.URL+"/unknown/page", testCases())
	assert.Equal(t, testCases(), out)
}

func TestEnrichEmptyInput(t *testing.T) {
	e := NewEnricher(NewPortalClient(ClientOptions{}), logger.NewNop(), Options{})
	out, stats := e.Enrich(context.Background(), nil, "https://portal/mycases", nil)
	assert.Empty(t, out)
	assert.Zero(t, stats)
}
