package service

import (
	"context"
	"net/url"
	"strings"

	"room-advisor/internal/models"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// productQuery is what the URL strategies search for. SKU is empty when
// the product name carries no model number.
type productQuery struct {
	Name string
	SKU  string
}

func (q productQuery) term() string {
	if q.SKU != "" {
		return q.SKU
	}
	return q.Name
}

// urlStrategy is one way of finding a product page. Strategies are tried
// in order and the first hit wins.
type urlStrategy interface {
	tier() string
	find(ctx context.Context, q productQuery) (string, bool)
}

// catalogPathStrategy probes well-known catalog paths built from the SKU.
type catalogPathStrategy struct {
	client       *CatalogClient
	baseURL      string
	paths        []string
	discontinued string
	logger       *zap.Logger
}

func (s *catalogPathStrategy) tier() string { return models.TierCatalogPath }

func (s *catalogPathStrategy) find(ctx context.Context, q productQuery) (string, bool) {
	if q.SKU == "" {
		return "", false
	}
	values := map[string]string{
		"sku":     q.SKU,
		"initial": q.SKU[:1],
	}

	paths := append([]string{}, s.paths...)
	if s.discontinued != "" {
		paths = append(paths, s.discontinued)
	}
	for _, p := range paths {
		candidate := s.baseURL + fillTemplate(p, values)
		if final, ok := s.client.PageExists(ctx, candidate); ok {
			return final, true
		}
		if ctx.Err() != nil {
			return "", false
		}
	}
	return "", false
}

// siteSearchStrategy reads the catalog's own search results page.
type siteSearchStrategy struct {
	client   *CatalogClient
	template string
	host     string
	marker   string
	logger   *zap.Logger
}

func (s *siteSearchStrategy) tier() string { return models.TierSiteSearch }

func (s *siteSearchStrategy) find(ctx context.Context, q productQuery) (string, bool) {
	if s.template == "" {
		return "", false
	}
	searchURL := fillTemplate(s.template, map[string]string{"query": url.QueryEscape(q.term())})
	doc, final, err := s.client.FetchDocument(ctx, searchURL, "")
	if err != nil {
		s.logger.Debug("Site search unavailable", zap.String("query", q.term()), zap.Error(err))
		return "", false
	}

	return firstLink(doc, final, func(u *url.URL) bool {
		if !sameHost(u.Host, s.host) || !strings.Contains(u.Path, s.marker) {
			return false
		}
		return q.SKU == "" || strings.Contains(strings.ToUpper(u.Path), q.SKU)
	}, false)
}

// webSearchStrategy asks a general web search engine, restricted to the
// catalog host, and follows its redirect links.
type webSearchStrategy struct {
	client   *CatalogClient
	template string
	host     string
	marker   string
	logger   *zap.Logger
}

func (s *webSearchStrategy) tier() string { return models.TierWebSearch }

func (s *webSearchStrategy) find(ctx context.Context, q productQuery) (string, bool) {
	if s.template == "" {
		return "", false
	}
	query := "site:" + strings.TrimPrefix(hostname(s.host), "www.") + " " + q.term()
	searchURL := fillTemplate(s.template, map[string]string{"query": url.QueryEscape(query)})

	doc, final, err := s.client.FetchDocument(ctx, searchURL, "")
	if err != nil {
		s.logger.Debug("Web search unavailable", zap.String("query", query), zap.Error(err))
		return "", false
	}

	return firstLink(doc, final, func(u *url.URL) bool {
		return sameHost(u.Host, s.host) && strings.Contains(u.Path, s.marker)
	}, true)
}

// firstLink returns the first anchor on the page whose absolute URL
// satisfies match. With decodeRedirects, links carrying a uddg parameter
// are replaced by the URL they redirect to.
func firstLink(doc *goquery.Document, pageURL string, match func(*url.URL) bool, decodeRedirects bool) (string, bool) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		abs := absoluteURL(base, href)
		if abs == "" {
			return true
		}
		u, err := url.Parse(abs)
		if err != nil {
			return true
		}
		if decodeRedirects {
			if target := u.Query().Get("uddg"); target != "" {
				if u, err = url.Parse(target); err != nil {
					return true
				}
			}
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return true
		}
		if match(u) {
			found = u.String()
			return false
		}
		return true
	})
	return found, found != ""
}

func sameHost(a, b string) bool {
	a = strings.TrimPrefix(strings.ToLower(a), "www.")
	b = strings.TrimPrefix(strings.ToLower(b), "www.")
	return a != "" && a == b
}

// hostname drops the port from a host[:port] string.
func hostname(host string) string {
	u := url.URL{Host: host}
	return u.Hostname()
}
