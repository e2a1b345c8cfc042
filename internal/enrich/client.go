package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// ListingRequest is one page request against the listing endpoint.
type ListingRequest struct {
	Draw   int
	Start  int
	Length int
}

// listingFilters are sent empty so the listing returns every case.
var listingFilters = []string{"cstat", "kw_efileno", "cfrno", "partyname", "pip", "cia", "cvt"}

// ListingPage is the listing endpoint's response.
type ListingPage struct {
	Draw            flexInt           `json:"draw"`
	Data            []json.RawMessage `json:"data"`
	RecordsTotal    flexInt           `json:"recordsTotal"`
	RecordsFiltered flexInt           `json:"recordsFiltered"`
}

// Total is the server-reported row count, preferring the filtered count.
func (p *ListingPage) Total() int {
	if p.RecordsFiltered > 0 {
		return int(p.RecordsFiltered)
	}
	return int(p.RecordsTotal)
}

type detailResponse struct {
	HTML string `json:"html"`
}

// ClientOptions configure a PortalClient.
type ClientOptions struct {
	BaseURL    string
	DetailPath string
	CSRFCookie string
	UserAgent  string
	Timeout    time.Duration
	Client     *http.Client
}

// PortalClient calls the portal's internal AJAX endpoints with the browser
// session's cookies.
type PortalClient struct {
	baseURL    string
	detailPath string
	csrfCookie string
	userAgent  string
	client     *http.Client

	mu      sync.RWMutex
	cookies []*http.Cookie
}

// NewPortalClient creates a new portal API client
func NewPortalClient(opts ClientOptions) *PortalClient {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &PortalClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		detailPath: opts.DetailPath,
		csrfCookie: opts.CSRFCookie,
		userAgent:  opts.UserAgent,
		client:     client,
	}
}

// BaseURL returns scheme://host of the portal.
func (c *PortalClient) BaseURL() string {
	return c.baseURL
}

// SetCookies replaces the session cookies sent with every request.
func (c *PortalClient) SetCookies(cookies []*http.Cookie) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cookies = append([]*http.Cookie(nil), cookies...)
}

// CSRFToken reads the anti-forgery token from the session cookies.
func (c *PortalClient) CSRFToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ck := range c.cookies {
		if ck.Name == c.csrfCookie {
			if v, err := url.QueryUnescape(ck.Value); err == nil {
				return v
			}
			return ck.Value
		}
	}
	return ""
}

func (c *PortalClient) prepare(req *http.Request) {
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token := c.CSRFToken(); token != "" {
		req.Header.Set("X-CSRF-TOKEN", token)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ck := range c.cookies {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}
}

// ListPage fetches one listing page.
func (c *PortalClient) ListPage(ctx context.Context, endpoint string, lr ListingRequest) (*ListingPage, error) {
	form := url.Values{}
	form.Set("draw", strconv.Itoa(lr.Draw))
	form.Set("start", strconv.Itoa(lr.Start))
	form.Set("length", strconv.Itoa(lr.Length))
	for _, f := range listingFilters {
		form.Set(f, "")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	c.prepare(req)

	var page ListingPage
	if err := c.do(req, &page); err != nil {
		return nil, fmt.Errorf("listing page at %d: %w", lr.Start, err)
	}
	return &page, nil
}

// Detail fetches the case-detail fragment for one listing row.
func (c *PortalClient) Detail(ctx context.Context, row ListingRow) (string, error) {
	q := url.Values{}
	q.Set("cino", row.CINO)
	q.Set("efile_no", row.EfileNo)
	q.Set("dgtzn_no", row.DigitizationNo)
	q.Set("eid_enc", row.EIDEnc)
	q.Set("ctype_enc", row.CTypeEnc)
	q.Set("sub_enc", row.SubEnc)
	q.Set("case_pd", row.CasePD)
	q.Set("ctitle", row.CTitle)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.detailPath+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.prepare(req)

	var resp detailResponse
	if err := c.do(req, &resp); err != nil {
		return "", fmt.Errorf("detail for %s: %w", row.EfileNo, err)
	}
	return resp.HTML, nil
}

func (c *PortalClient) do(req *http.Request, out interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := sonic.Unmarshal(body, out); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	return nil
}
