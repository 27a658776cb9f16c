package service

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"room-advisor/internal/models"
	"room-advisor/internal/repository"
	"room-advisor/pkg/config"
	"room-advisor/pkg/metrics"

	"go.uber.org/zap"
)

var skuRegex = regexp.MustCompile(`\b[A-Z]{1,8}(?:-[A-Z0-9]{1,10}){1,8}\b`)

// ExtractSKU returns the longest hyphenated model number in name that
// contains a digit, or "" when there is none.
func ExtractSKU(name string) string {
	var best string
	for _, m := range skuRegex.FindAllString(strings.ToUpper(name), -1) {
		if !strings.ContainsAny(m, "0123456789") {
			continue
		}
		if len(m) > len(best) {
			best = m
		}
	}
	return best
}

// ResolverService maps product names to catalog pages and product images.
// It never fails; a product nothing was found for keeps empty fields.
type ResolverService struct {
	client     *CatalogClient
	strategies []urlStrategy
	cache      repository.ResolutionCache
	referer    string
	cdnMarker  string
	upscale    int
	logger     *zap.Logger
}

// NewResolverService wires the URL strategies in their fixed order:
// catalog paths, catalog search, web search. cache may be nil.
func NewResolverService(cfg *config.CatalogConfig, client *CatalogClient, cache repository.ResolutionCache, logger *zap.Logger) *ResolverService {
	base := strings.TrimRight(cfg.BaseURL, "/")
	host := ""
	if u, err := url.Parse(base); err == nil {
		host = u.Host
	}

	marker := cfg.ProductMarker
	if marker == "" {
		marker = "/Products/"
	}

	return &ResolverService{
		client: client,
		strategies: []urlStrategy{
			&catalogPathStrategy{
				client:       client,
				baseURL:      base,
				paths:        cfg.ProductPaths,
				discontinued: cfg.DiscontinuedPath,
				logger:       logger,
			},
			&siteSearchStrategy{
				client:   client,
				template: cfg.SiteSearchURL,
				host:     host,
				marker:   marker,
				logger:   logger,
			},
			&webSearchStrategy{
				client:   client,
				template: cfg.WebSearchURL,
				host:     host,
				marker:   marker,
				logger:   logger,
			},
		},
		cache:     cache,
		referer:   base + "/",
		cdnMarker: cfg.CDNMarker,
		upscale:   cfg.UpscaleWidth,
		logger:    logger,
	}
}

func (s *ResolverService) Resolve(ctx context.Context, productName string) models.Resolution {
	name := strings.TrimSpace(productName)
	if name == "" {
		return models.Resolution{Tier: models.TierNone}
	}

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, name)
		if err != nil {
			s.logger.Warn("Resolution cache read failed", zap.String("product", name), zap.Error(err))
		} else if ok {
			return cached
		}
	}

	q := productQuery{Name: name, SKU: ExtractSKU(name)}
	res := models.Resolution{Tier: models.TierNone}
	for _, strategy := range s.strategies {
		if ctx.Err() != nil {
			break
		}
		if u, ok := strategy.find(ctx, q); ok {
			res.ProductURL = u
			res.Tier = strategy.tier()
			break
		}
		s.logger.Debug("Resolver tier missed",
			zap.String("product", name),
			zap.String("sku", q.SKU),
			zap.String("tier", strategy.tier()),
		)
	}
	metrics.ResolverHits.WithLabelValues(res.Tier).Inc()

	if res.Miss() {
		s.logger.Info("Product not resolved", zap.String("product", name), zap.String("sku", q.SKU))
		return res
	}

	res.ImageURL = s.findImage(ctx, res.ProductURL)
	s.logger.Info("Product resolved",
		zap.String("product", name),
		zap.String("tier", res.Tier),
		zap.String("product_url", res.ProductURL),
		zap.Bool("image", res.ImageURL != ""),
	)

	// Misses are not cached so a transient outage does not stick.
	if s.cache != nil {
		if err := s.cache.Set(ctx, name, res); err != nil {
			s.logger.Warn("Resolution cache write failed", zap.String("product", name), zap.Error(err))
		}
	}
	return res
}

func (s *ResolverService) findImage(ctx context.Context, productURL string) string {
	doc, final, err := s.client.FetchDocument(ctx, productURL, s.referer)
	if err != nil {
		s.logger.Debug("Product page unavailable", zap.String("url", productURL), zap.Error(err))
		return ""
	}

	for _, c := range collectImageCandidates(doc, final, s.cdnMarker) {
		if c.CDN {
			if large := upscaleCDN(c.URL, s.upscale); large != c.URL && s.client.ImageExists(ctx, large, final) {
				return large
			}
		}
		if s.client.ImageExists(ctx, c.URL, final) {
			return c.URL
		}
		if ctx.Err() != nil {
			return ""
		}
	}
	return ""
}

// ResolveAll fills product and image URLs of every product in set, in order.
func (s *ResolverService) ResolveAll(ctx context.Context, set *models.RecommendationSet) {
	if set == nil {
		return
	}
	for i := range set.Products {
		res := s.Resolve(ctx, set.Products[i].Name)
		set.Products[i].ProductURL = res.ProductURL
		set.Products[i].ImageURL = res.ImageURL
	}
}

// FetchImage downloads an image for embedding in an exported document.
func (s *ResolverService) FetchImage(ctx context.Context, imageURL, referer string) ([]byte, string, error) {
	return s.client.FetchImage(ctx, imageURL, referer)
}
