package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"room-advisor/pkg/config"
	"room-advisor/pkg/metrics"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	acceptHTML  = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptImage = "image/webp,image/jpeg,image/png,image/gif,image/*;q=0.8,*/*;q=0.5"
)

// CatalogClient performs the outbound page and image requests of the
// resolver. All requests share one rate limiter and carry their own timeout.
type CatalogClient struct {
	http    *resty.Client
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

func NewCatalogClient(cfg *config.CatalogConfig, logger *zap.Logger) *CatalogClient {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(limit, burst)

	client := resty.New().
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept-Language", "en-US,en;q=0.9").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		return limiter.Wait(r.Context())
	})

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	return &CatalogClient{
		http:    client,
		limiter: limiter,
		timeout: timeout,
		logger:  logger,
	}
}

type probeResult struct {
	FinalURL    string
	Status      int
	ContentType string
}

func (p probeResult) ok() bool {
	return p.Status >= 200 && p.Status < 300
}

// probe issues HEAD and falls back to GET when HEAD fails or its answer is
// not acceptable. The GET body is discarded unread.
func (c *CatalogClient) probe(ctx context.Context, rawURL, accept, referer string, acceptable func(probeResult) bool) (probeResult, bool) {
	for _, method := range []string{http.MethodHead, http.MethodGet} {
		res, err := c.send(ctx, method, rawURL, accept, referer)
		if err != nil {
			c.logger.Debug("Probe failed",
				zap.String("method", method),
				zap.String("url", rawURL),
				zap.Error(err),
			)
			continue
		}
		if acceptable(res) {
			return res, true
		}
	}
	return probeResult{}, false
}

func (c *CatalogClient) send(ctx context.Context, method, rawURL, accept, referer string) (probeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", accept).
		SetDoNotParseResponse(true)
	if referer != "" {
		req.SetHeader("Referer", referer)
	}

	resp, err := req.Execute(method, rawURL)
	if err != nil {
		return probeResult{}, err
	}
	if body := resp.RawBody(); body != nil {
		body.Close()
	}
	return probeResult{
		FinalURL:    finalURL(resp, rawURL),
		Status:      resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
	}, nil
}

// PageExists reports the final URL of rawURL when it serves an HTML page
// that did not redirect to a not-found page.
func (c *CatalogClient) PageExists(ctx context.Context, rawURL string) (string, bool) {
	res, ok := c.probe(ctx, rawURL, acceptHTML, "", func(p probeResult) bool {
		return p.ok() && isHTML(p.ContentType) && !notFoundPage(p.FinalURL)
	})
	if !ok {
		return "", false
	}
	return res.FinalURL, true
}

// ImageExists reports whether rawURL answers with an image content type.
func (c *CatalogClient) ImageExists(ctx context.Context, rawURL, referer string) bool {
	_, ok := c.probe(ctx, rawURL, acceptImage, referer, func(p probeResult) bool {
		return p.ok() && isImage(p.ContentType)
	})
	return ok
}

// FetchDocument downloads an HTML page and parses it. The returned URL is
// the one after redirects, used to resolve relative links.
func (c *CatalogClient) FetchDocument(ctx context.Context, rawURL, referer string) (*goquery.Document, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", acceptHTML)
	if referer != "" {
		req.SetHeader("Referer", referer)
	}

	start := time.Now()
	resp, err := req.Get(rawURL)
	metrics.UpstreamDuration.WithLabelValues("catalog").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	if !resp.IsSuccess() {
		return nil, "", fmt.Errorf("failed to fetch %s: status %d", rawURL, resp.StatusCode())
	}
	if ct := resp.Header().Get("Content-Type"); !isHTML(ct) {
		return nil, "", fmt.Errorf("failed to fetch %s: unexpected content type %q", rawURL, ct)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse %s: %w", rawURL, err)
	}
	return doc, finalURL(resp, rawURL), nil
}

// FetchImage downloads image bytes. It fails unless the server declares an
// image content type.
func (c *CatalogClient) FetchImage(ctx context.Context, rawURL, referer string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", acceptImage)
	if referer != "" {
		req.SetHeader("Referer", referer)
	}

	resp, err := req.Get(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, "", fmt.Errorf("failed to download image: status %d", resp.StatusCode())
	}
	ct := resp.Header().Get("Content-Type")
	if !isImage(ct) {
		return nil, "", fmt.Errorf("failed to download image: unexpected content type %q", ct)
	}
	return resp.Body(), ct, nil
}

func finalURL(resp *resty.Response, fallback string) string {
	if resp != nil && resp.RawResponse != nil && resp.RawResponse.Request != nil && resp.RawResponse.Request.URL != nil {
		return resp.RawResponse.Request.URL.String()
	}
	return fallback
}

// notFoundPage reports whether a redirect landed on a soft 404 page.
// Host and port are ignored.
func notFoundPage(finalURL string) bool {
	u, err := url.Parse(finalURL)
	if err != nil {
		return strings.Contains(finalURL, "404")
	}
	return strings.Contains(u.Path+"?"+u.RawQuery, "404")
}

func isHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}

func isImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}
