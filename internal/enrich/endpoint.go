package enrich

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/extract"
)

// ErrEndpointNotFound means neither the page scripts nor the known
// conventions yield a listing endpoint.
var ErrEndpointNotFound = errors.New("listing endpoint not found")

// ajaxURLPatterns find the DataTable ajax url in inline scripts.
var ajaxURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)["']?ajax["']?\s*:\s*\{[^}]*?["']?url["']?\s*:\s*["']([^"']+)["']`),
	regexp.MustCompile(`["']?ajax["']?\s*:\s*["']([^"']+)["']`),
	regexp.MustCompile(`["']?sAjaxSource["']?\s*:\s*["']([^"']+)["']`),
}

// endpointConventions maps the first path segment of a page to its listing
// endpoint.
var endpointConventions = map[string]string{
	"mycases":  "/Mycases/ajax_mycases_list",
	"casebook": "/Casebook/ajax_casebook_list",
	"efiling":  "/Efiling/ajax_efiled_list",
}

// ResolveEndpoint returns the absolute listing endpoint for a page.
func ResolveEndpoint(doc *goquery.Document, pageURL string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" {
		return "", errors.New("page url is not absolute")
	}

	if doc != nil {
		var found string
		doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if src, ok := s.Attr("src"); ok && src != "" {
				return true
			}
			body := s.Text()
			for _, re := range ajaxURLPatterns {
				if m := re.FindStringSubmatch(body); len(m) > 1 && m[1] != "" {
					found = m[1]
					return false
				}
			}
			return true
		})
		if found != "" {
			return resolve(base, found), nil
		}
	}

	segment := strings.ToLower(strings.Split(strings.Trim(base.Path, "/"), "/")[0])
	if path, ok := endpointConventions[segment]; ok {
		return extract.BaseURL(pageURL) + path, nil
	}
	return "", ErrEndpointNotFound
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
