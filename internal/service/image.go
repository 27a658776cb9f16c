package service

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const minImageDimension = 64

var (
	logoMarkers  = []string{"logo", "favicon", "icon", "sprite", "social", "ogimage"}
	ogImageKeys  = []string{"og:image", "og:image:url", "twitter:image"}
	cdnSizeRegex = regexp.MustCompile(`/(\d+)px@1x/`)
)

type imageCandidate struct {
	URL string
	CDN bool
}

// collectImageCandidates lists product image URLs found on a catalog page:
// Open-Graph images first, then CDN-hosted images in document order.
// Logos and tiny images are dropped.
func collectImageCandidates(doc *goquery.Document, pageURL, cdnMarker string) []imageCandidate {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var out []imageCandidate
	seen := make(map[string]bool)
	add := func(raw string, cdn bool) {
		abs := absoluteURL(base, raw)
		if abs == "" || seen[abs] || looksLikeLogo(abs) {
			return
		}
		seen[abs] = true
		out = append(out, imageCandidate{URL: abs, CDN: cdn})
	}

	for _, key := range ogImageKeys {
		sel := doc.Find(`meta[property="` + key + `"], meta[name="` + key + `"]`)
		sel.Each(func(_ int, s *goquery.Selection) {
			if content, ok := s.Attr("content"); ok {
				add(content, cdnMarker != "" && strings.Contains(content, cdnMarker))
			}
		})
	}

	if cdnMarker == "" {
		return out
	}

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if declaredTooSmall(s) {
			return
		}
		for _, attr := range []string{"src", "data-src"} {
			if src, ok := s.Attr(attr); ok && strings.Contains(src, cdnMarker) {
				add(src, true)
			}
		}
	})

	doc.Find("source[srcset]").Each(func(_ int, s *goquery.Selection) {
		srcset, _ := s.Attr("srcset")
		for _, part := range strings.Split(srcset, ",") {
			fields := strings.Fields(part)
			if len(fields) == 0 {
				continue
			}
			if strings.Contains(fields[0], cdnMarker) {
				add(fields[0], true)
			}
		}
	})

	return out
}

func looksLikeLogo(rawURL string) bool {
	l := strings.ToLower(rawURL)
	if u, err := url.Parse(l); err == nil {
		l = u.Path
	}
	for _, marker := range logoMarkers {
		if strings.Contains(l, marker) {
			return true
		}
	}
	return false
}

func declaredTooSmall(s *goquery.Selection) bool {
	for _, attr := range []string{"width", "height"} {
		v, ok := s.Attr(attr)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v), "px"))
		if err == nil && n > 0 && n < minImageDimension {
			return true
		}
	}
	return false
}

// upscaleCDN rewrites the rendition width segment of a CDN image URL.
// URLs without such a segment are returned unchanged.
func upscaleCDN(rawURL string, width int) string {
	if width <= 0 {
		return rawURL
	}
	return cdnSizeRegex.ReplaceAllString(rawURL, "/"+strconv.Itoa(width)+"px@1x/")
}

func absoluteURL(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "data:") {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}
