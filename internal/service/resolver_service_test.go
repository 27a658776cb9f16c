package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"room-advisor/internal/models"
	"room-advisor/internal/repository"
	"room-advisor/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// catalogFixture is a fake catalog site. Pages and images are keyed by
// path; everything else is a 404.
type catalogFixture struct {
	t        *testing.T
	srv      *httptest.Server
	mu       sync.Mutex
	pages    map[string]string
	images   map[string]bool
	handlers map[string]http.HandlerFunc
	requests []string
	agents   []string
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	f := &catalogFixture{
		t:        t,
		pages:    make(map[string]string),
		images:   make(map[string]bool),
		handlers: make(map[string]http.HandlerFunc),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *catalogFixture) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.agents = append(f.agents, r.Header.Get("User-Agent"))
	page, isPage := f.pages[r.URL.Path]
	isImage := f.images[r.URL.Path]
	handler := f.handlers[r.URL.Path]
	f.mu.Unlock()

	switch {
	case handler != nil:
		handler(w, r)
	case isPage:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	case isImage:
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
	default:
		http.NotFound(w, r)
	}
}

func (f *catalogFixture) page(path, html string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[path] = html
}

func (f *catalogFixture) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

func (f *catalogFixture) image(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[path] = true
}

func (f *catalogFixture) requested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *catalogFixture) url(path string) string {
	return f.srv.URL + path
}

func testCatalogConfig(catalogURL, webSearchURL string) config.CatalogConfig {
	return config.CatalogConfig{
		BaseURL: catalogURL,
		ProductPaths: []string{
			"/Products/Workspace/{sku}",
			"/Products/Catalog/Tabletop/{sku}",
		},
		DiscontinuedPath: "/Products/Catalog/Inactive/Discontinued/{initial}/{sku}",
		SiteSearchURL:    catalogURL + "/en-US/Search?q={query}",
		WebSearchURL:     webSearchURL,
		ProductMarker:    "/Products/",
		CDNMarker:        "/cdn/img/",
		UpscaleWidth:     1000,
		RequestTimeout:   2 * time.Second,
		RateLimit:        0,
		RateBurst:        1,
		UserAgent:        "room-advisor-test",
	}
}

func newTestResolver(t *testing.T, cfg config.CatalogConfig, cache repository.ResolutionCache) *ResolverService {
	logger := zaptest.NewLogger(t)
	client := NewCatalogClient(&cfg, logger)
	return NewResolverService(&cfg, client, cache, logger)
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

func TestExtractSKU(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Crestron Flex UC-B160-T Tabletop Kit", "UC-B160-T"},
		{"UC-C160-T-WM wall mount", "UC-C160-T-WM"},
		{"crestron flex uc-m70-t", "UC-M70-T"},
		{"TSW-1070 touch screen with UC-CX100-T", "UC-CX100-T"},
		{"Crestron Flex Advanced Tabletop", ""},
		{"MICROSOFT-TEAMS Room Kit", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractSKU(tt.name))
		})
	}
}

func TestResolve_CatalogPathsInOrderBeforeSearch(t *testing.T) {
	f := newCatalogFixture(t)
	f.page("/Products/Catalog/Tabletop/UC-B160-T", `<html><head>
		<meta property="og:image" content="/media/uc-b160-t.jpg">
	</head><body></body></html>`)
	f.image("/media/uc-b160-t.jpg")

	resolver := newTestResolver(t, testCatalogConfig(f.srv.URL, ""), nil)

	res := resolver.Resolve(context.Background(), "Crestron Flex UC-B160-T Tabletop Kit")

	assert.Equal(t, models.TierCatalogPath, res.Tier)
	assert.Equal(t, f.url("/Products/Catalog/Tabletop/UC-B160-T"), res.ProductURL)
	assert.Equal(t, f.url("/media/uc-b160-t.jpg"), res.ImageURL)
	assert.False(t, res.Miss())

	reqs := f.requested()
	first := indexOf(reqs, "HEAD /Products/Workspace/UC-B160-T")
	second := indexOf(reqs, "HEAD /Products/Catalog/Tabletop/UC-B160-T")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second)
	assert.Contains(t, reqs, "GET /Products/Workspace/UC-B160-T", "HEAD miss falls back to GET")
	assert.Equal(t, -1, indexOf(reqs, "GET /en-US/Search"), "search must not run after a catalog hit")

	for _, ua := range f.agents {
		assert.Equal(t, "room-advisor-test", ua)
	}
}

func TestResolve_DiscontinuedPath(t *testing.T) {
	f := newCatalogFixture(t)
	f.page("/Products/Catalog/Inactive/Discontinued/U/UC-C160-Z", `<html><body>Discontinued</body></html>`)

	resolver := newTestResolver(t, testCatalogConfig(f.srv.URL, ""), nil)

	res := resolver.Resolve(context.Background(), "Crestron Flex UC-C160-Z")

	assert.Equal(t, models.TierCatalogPath, res.Tier)
	assert.Equal(t, f.url("/Products/Catalog/Inactive/Discontinued/U/UC-C160-Z"), res.ProductURL)
	assert.Empty(t, res.ImageURL)
}

func TestResolve_RejectsRedirectToNotFoundPage(t *testing.T) {
	f := newCatalogFixture(t)
	f.page("/errors/404", `<html><body>Not here</body></html>`)
	f.page("/Products/Catalog/Tabletop/UC-M70-T", `<html><body>Product</body></html>`)

	f.handle("/Products/Workspace/UC-M70-T", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, f.url("/errors/404"), http.StatusFound)
	})

	resolver := newTestResolver(t, testCatalogConfig(f.srv.URL, ""), nil)

	res := resolver.Resolve(context.Background(), "UC-M70-T")

	assert.Equal(t, f.url("/Products/Catalog/Tabletop/UC-M70-T"), res.ProductURL)
}

func TestResolve_NoSKUGoesStraightToSearch(t *testing.T) {
	f := newCatalogFixture(t)
	var query string
	f.handle("/en-US/Search", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
			<a href="/About">About</a>
			<a href="https://elsewhere.example/Products/Tabletop-Kit">Mirror</a>
			<a href="/Products/Catalog/Tabletop-Kit">Tabletop Kit</a>
		</body></html>`)
	})
	f.page("/Products/Catalog/Tabletop-Kit", `<html><body>No pictures here</body></html>`)

	resolver := newTestResolver(t, testCatalogConfig(f.srv.URL, ""), nil)

	res := resolver.Resolve(context.Background(), "Crestron Flex Tabletop Kit")

	assert.Equal(t, models.TierSiteSearch, res.Tier)
	assert.Equal(t, f.url("/Products/Catalog/Tabletop-Kit"), res.ProductURL)
	assert.Empty(t, res.ImageURL)
	assert.Equal(t, "Crestron Flex Tabletop Kit", query)
	for _, r := range f.requested() {
		assert.NotContains(t, r, "/Products/Workspace/", "catalog paths need a SKU")
	}
}

func TestResolve_SiteSearchRequiresSKUInLink(t *testing.T) {
	f := newCatalogFixture(t)
	f.handle("/en-US/Search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
			<a href="/Products/Catalog/UC-OTHER-1">Other</a>
			<a href="/Products/Catalog/Accessories/UC-B160-T-KIT">Match</a>
		</body></html>`)
	})

	resolver := newTestResolver(t, testCatalogConfig(f.srv.URL, ""), nil)

	res := resolver.Resolve(context.Background(), "UC-B160-T")

	assert.Equal(t, models.TierSiteSearch, res.Tier)
	assert.Equal(t, f.url("/Products/Catalog/Accessories/UC-B160-T-KIT"), res.ProductURL)
}

func TestResolve_WebSearchDecodesRedirects(t *testing.T) {
	f := newCatalogFixture(t)
	f.page("/Products/Workspace-Solutions/UC-X1-Z", `<html><body>found</body></html>`)

	target := f.url("/Products/Workspace-Solutions/UC-X1-Z")
	var query string
	ddg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body>
			<a class="result__a" href="//duckduckgo.com/l/?uddg=%s&rut=1">Unrelated</a>
			<a class="result__a" href="//duckduckgo.com/l/?uddg=%s&rut=2">Product</a>
		</body></html>`, url.QueryEscape("https://news.example/Products/UC-X1-Z"), url.QueryEscape(target))
	}))
	defer ddg.Close()

	cfg := testCatalogConfig(f.srv.URL, ddg.URL+"/html/?q={query}")
	resolver := newTestResolver(t, cfg, nil)

	res := resolver.Resolve(context.Background(), "Crestron UC-X1-Z")

	assert.Equal(t, models.TierWebSearch, res.Tier)
	assert.Equal(t, target, res.ProductURL)
	assert.True(t, strings.HasPrefix(query, "site:127.0.0.1 "), query)
	assert.True(t, strings.HasSuffix(query, "UC-X1-Z"), query)
}

func TestResolve_MissIsNotAnError(t *testing.T) {
	f := newCatalogFixture(t)
	resolver := newTestResolver(t, testCatalogConfig(f.srv.URL, f.srv.URL+"/html/?q={query}"), nil)

	res := resolver.Resolve(context.Background(), "Imaginary UC-NOPE-1")

	assert.True(t, res.Miss())
	assert.Empty(t, res.ProductURL)
	assert.Empty(t, res.ImageURL)
	assert.Equal(t, models.TierNone, res.Tier)
}

func TestResolve_UnreachableCatalog(t *testing.T) {
	f := newCatalogFixture(t)
	base := f.srv.URL
	f.srv.Close()

	resolver := newTestResolver(t, testCatalogConfig(base, base+"/html/?q={query}"), nil)

	res := resolver.Resolve(context.Background(), "Crestron Flex UC-B160-T")

	assert.True(t, res.Miss())
}

func TestResolve_UpscalesCDNImage(t *testing.T) {
	f := newCatalogFixture(t)
	f.page("/Products/Workspace/UC-B160-T", fmt.Sprintf(`<html><body>
		<img src="/assets/logo.png">
		<img src="%s" width="640">
	</body></html>`, "/cdn/img/crestron/abc/640px@1x/UC-B160-T.jpg"))
	f.image("/cdn/img/crestron/abc/1000px@1x/UC-B160-T.jpg")
	f.image("/cdn/img/crestron/abc/640px@1x/UC-B160-T.jpg")
	f.image("/assets/logo.png")

	resolver := newTestResolver(t, testCatalogConfig(f.srv.URL, ""), nil)

	res := resolver.Resolve(context.Background(), "UC-B160-T")

	assert.Equal(t, f.url("/cdn/img/crestron/abc/1000px@1x/UC-B160-T.jpg"), res.ImageURL)
}

func TestResolve_FallsBackToOriginalCDNImage(t *testing.T) {
	f := newCatalogFixture(t)
	f.page("/Products/Workspace/UC-B160-T", `<html><body>
		<picture><source srcset="/cdn/img/crestron/abc/320px@1x/a.jpg 1x, /cdn/img/crestron/abc/640px@1x/a.jpg 2x"></picture>
	</body></html>`)
	f.image("/cdn/img/crestron/abc/640px@1x/a.jpg")

	resolver := newTestResolver(t, testCatalogConfig(f.srv.URL, ""), nil)

	res := resolver.Resolve(context.Background(), "UC-B160-T")

	assert.Equal(t, f.url("/cdn/img/crestron/abc/640px@1x/a.jpg"), res.ImageURL)
}

func TestResolve_UsesCache(t *testing.T) {
	f := newCatalogFixture(t)
	f.page("/Products/Workspace/UC-B160-T", `<html><body></body></html>`)

	cache := repository.NewMemoryResolutionCache(time.Minute)
	resolver := newTestResolver(t, testCatalogConfig(f.srv.URL, ""), cache)

	first := resolver.Resolve(context.Background(), "UC-B160-T")
	before := len(f.requested())
	second := resolver.Resolve(context.Background(), "  uc-b160-t ")

	assert.Equal(t, first, second)
	assert.Equal(t, before, len(f.requested()))
}

func TestResolveAll_FillsProductsInOrder(t *testing.T) {
	f := newCatalogFixture(t)
	f.page("/Products/Workspace/UC-B160-T", `<html><body></body></html>`)

	resolver := newTestResolver(t, testCatalogConfig(f.srv.URL, ""), nil)
	set := &models.RecommendationSet{
		Rationale: "x",
		Products: []models.ProductRecommendation{
			{Name: "UC-B160-T"},
			{Name: "Unknown Gadget", ProductURL: "https://model.invented/url"},
		},
	}

	resolver.ResolveAll(context.Background(), set)

	assert.Equal(t, f.url("/Products/Workspace/UC-B160-T"), set.Products[0].ProductURL)
	assert.Empty(t, set.Products[1].ProductURL)
	assert.Empty(t, set.Products[1].ImageURL)
}
