package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/Webictbyleo/capsule"
)

// RewriteDocument replaces asset references in markup using resolve and
// returns the re-serialized document. The resolve function receives the raw
// attribute value and returns the local path to substitute; returning false
// leaves the attribute untouched.
func RewriteDocument(markup string, resolve func(raw string) (string, bool)) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", capsule.Errorf(capsule.EINVALID, "failed to parse markup: %v", err)
	}

	replace := func(sel *goquery.Selection, attr string) {
		raw, exists := sel.Attr(attr)
		if !exists {
			return
		}
		if local, ok := resolve(strings.TrimSpace(raw)); ok {
			sel.SetAttr(attr, local)
		}
	}

	for _, target := range attrTargets {
		target := target
		doc.Find(target.tag).Each(func(_ int, sel *goquery.Selection) {
			replace(sel, target.attr)
		})
	}

	doc.Find("link[href]").Each(func(_ int, sel *goquery.Selection) {
		rel, _ := sel.Attr("rel")
		if relContains(rel, "stylesheet") || relContains(rel, "icon") {
			replace(sel, "href")
		}
	})

	out, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return "", capsule.Errorf(capsule.EINTERNAL, "failed to render markup: %v", err)
	}
	return out, nil
}
