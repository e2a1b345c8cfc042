package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/models"
)

// BundleLabel is the label given to links built from bundle buttons.
const BundleLabel = "Case Bundle"

// BundleArgs are the inline handler arguments of a "print case bundle"
// button, in handler order.
type BundleArgs struct {
	EType   string
	EfileID string
	PD      string
	CINO    string
	CTitle  string
}

// HandlerArgs returns the quoted string arguments of an inline handler such
// as `printBundle('WPC','991','P','KLHC01','WP(C) 1/2026')`.
func HandlerArgs(handler string) []string {
	if i := strings.Index(handler, "("); i >= 0 {
		handler = handler[i+1:]
	}
	var args []string
	for _, m := range quotedArgPattern.FindAllStringSubmatch(handler, -1) {
		v := m[1]
		if v == "" {
			v = m[2]
		}
		v = strings.ReplaceAll(v, `\'`, `'`)
		v = strings.ReplaceAll(v, `\"`, `"`)
		args = append(args, v)
	}
	return args
}

// ParseBundleArgs reads bundle arguments from a handler; all five must be present.
func ParseBundleArgs(handler string) (BundleArgs, bool) {
	args := HandlerArgs(handler)
	if len(args) < 5 || args[0] == "" || args[1] == "" {
		return BundleArgs{}, false
	}
	return BundleArgs{EType: args[0], EfileID: args[1], PD: args[2], CINO: args[3], CTitle: args[4]}, true
}

// BundleURL builds <base>/Casebundle/loadBundle?token=&salt=&pds=&cnr=&cny=.
func BundleURL(base string, a BundleArgs) string {
	var q strings.Builder
	pairs := [][2]string{
		{"token", a.EType},
		{"salt", a.EfileID},
		{"pds", a.PD},
		{"cnr", a.CINO},
		{"cny", a.CTitle},
	}
	for i, p := range pairs {
		if i > 0 {
			q.WriteByte('&')
		}
		q.WriteString(p[0])
		q.WriteByte('=')
		q.WriteString(url.QueryEscape(p[1]))
	}
	return strings.TrimRight(base, "/") + "/Casebundle/loadBundle?" + q.String()
}

// BundleButtons finds "print case bundle" controls under sel and turns their
// handler arguments into bundle links.
func BundleButtons(sel *goquery.Selection, base string) []models.BundleLink {
	var links []models.BundleLink
	sel.Find("[onclick]").Each(func(_ int, s *goquery.Selection) {
		handler, _ := s.Attr("onclick")
		text := flatten(s.Text())
		if v, ok := s.Attr("value"); ok && text == "" {
			text = v
		}
		if !bundleHandler.MatchString(handler) && !bundleButtonText.MatchString(text) {
			return
		}
		args, ok := ParseBundleArgs(handler)
		if !ok {
			return
		}
		links = append(links, models.NewBundleLink(BundleURL(base, args), BundleLabel))
	})
	return links
}

// documentAnchors collects anchors that point at documents.
func documentAnchors(sel *goquery.Selection, pageURL string) []models.BundleLink {
	var links []models.BundleLink
	sel.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(strings.ToLower(href), "javascript:") || href == "#" {
			return
		}
		if !documentHrefPattern.MatchString(href) {
			return
		}
		label := flatten(s.Text())
		if label == "" {
			label, _ = s.Attr("title")
		}
		if label == "" {
			label = "Document"
		}
		links = append(links, models.NewBundleLink(absoluteURL(pageURL, href), label))
	})
	return links
}

// absoluteURL resolves href against the page url.
func absoluteURL(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// BaseURL returns scheme://host of a page url.
func BaseURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
