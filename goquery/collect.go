// Package goquery extracts asset references from markup and rewrites the
// markup with resolved local paths. It is the pipeline's only HTML-aware
// component; stylesheet text is handled by the css package.
package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/Webictbyleo/capsule"
	"github.com/Webictbyleo/capsule/urlnorm"
)

// attrTarget pairs an element selector with the attribute that may carry an
// asset reference.
type attrTarget struct {
	tag  string
	attr string
}

// attrTargets lists the markup locations scanned for first-order
// references. Stylesheet and icon links are handled separately because
// their category comes from the rel attribute rather than the extension.
var attrTargets = []attrTarget{
	{"img", "src"},
	{"img", "data-src"},
	{"script", "src"},
	{"source", "src"},
	{"video", "src"},
	{"video", "poster"},
	{"audio", "src"},
	{"object", "data"},
	{"embed", "src"},
}

// CollectReferences parses markup and returns every external asset
// reference, normalized against baseURL. Many raw references may share one
// canonical URL; each occurrence is returned.
func CollectReferences(markup string, baseURL string) ([]capsule.AssetReference, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, capsule.Errorf(capsule.EINVALID, "invalid base URL: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, capsule.Errorf(capsule.EINVALID, "failed to parse markup: %v", err)
	}

	var refs []capsule.AssetReference

	add := func(raw, origin string, category capsule.Category) {
		if !urlnorm.Fetchable(raw) {
			return
		}
		canonical := urlnorm.Normalize(raw, base)
		if category == "" {
			category = urlnorm.Classify(canonical)
		}
		refs = append(refs, capsule.AssetReference{
			Raw:       raw,
			Canonical: canonical,
			Category:  category,
			Origin:    origin,
		})
	}

	for _, target := range attrTargets {
		target := target
		doc.Find(target.tag).Each(func(_ int, sel *goquery.Selection) {
			raw, exists := sel.Attr(target.attr)
			if !exists || strings.TrimSpace(raw) == "" {
				return
			}
			add(strings.TrimSpace(raw), target.tag+"["+target.attr+"]", "")
		})
	}

	doc.Find("link[href]").Each(func(_ int, sel *goquery.Selection) {
		raw, _ := sel.Attr("href")
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return
		}
		rel, _ := sel.Attr("rel")
		switch {
		case relContains(rel, "stylesheet"):
			add(raw, "link[rel=stylesheet]", capsule.CategoryStylesheet)
		case relContains(rel, "icon"):
			add(raw, "link[rel=icon]", capsule.CategoryImage)
		}
	})

	return refs, nil
}

// relContains reports whether a space-separated rel attribute value
// contains the given token, case-insensitively.
func relContains(rel, token string) bool {
	for _, part := range strings.Fields(strings.ToLower(rel)) {
		if part == token {
			return true
		}
	}
	return false
}
