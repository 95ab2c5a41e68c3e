// Package css locates external references inside stylesheet text and
// rewrites them with resolved local paths. It does not interpret CSS beyond
// finding url(...) and @import occurrences.
package css

import (
	"regexp"
	"strings"
)

// Patterns for url(): double-quoted, single-quoted, and bare, plus the two
// quoted @import forms. Matched case-insensitively.
var (
	reURLDouble = regexp.MustCompile(`(?i)url\(\s*"([^"]+)"\s*\)`)
	reURLSingle = regexp.MustCompile(`(?i)url\(\s*'([^']+)'\s*\)`)
	reURLBare   = regexp.MustCompile(`(?i)url\(\s*([^)'"]+?)\s*\)`)
	reImportDbl = regexp.MustCompile(`(?i)@import\s+"([^"]+)"`)
	reImportSgl = regexp.MustCompile(`(?i)@import\s+'([^']+)'`)
)

var patterns = []*regexp.Regexp{reURLDouble, reURLSingle, reURLBare, reImportDbl, reImportSgl}

// skippable reports references that never leave the stylesheet: data URIs
// and fragment-only references (SVG filters and the like).
func skippable(ref string) bool {
	return ref == "" || strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "#")
}

// References returns the raw reference values found in stylesheet text, in
// document order, deduplicated. Data URIs and fragment-only values are
// excluded.
func References(cssText string) []string {
	seen := make(map[string]struct{})
	var refs []string

	type span struct {
		start int
		value string
	}
	var spans []span

	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatchIndex(cssText, -1) {
			value := strings.TrimSpace(cssText[m[2]:m[3]])
			if skippable(value) {
				continue
			}
			spans = append(spans, span{start: m[0], value: value})
		}
	}

	// Restore document order across the separate pattern passes.
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && spans[j-1].start > spans[j].start; j-- {
			spans[j-1], spans[j] = spans[j], spans[j-1]
		}
	}

	for _, s := range spans {
		if _, ok := seen[s.value]; ok {
			continue
		}
		seen[s.value] = struct{}{}
		refs = append(refs, s.value)
	}
	return refs
}

// Rewrite replaces each reference in stylesheet text using resolve. The
// resolve function receives the raw reference value and returns the local
// path to substitute; returning false leaves the occurrence untouched.
// Rewritten url() occurrences are emitted double-quoted.
func Rewrite(cssText string, resolve func(raw string) (string, bool)) string {
	rewriteURL := func(re *regexp.Regexp) {
		cssText = re.ReplaceAllStringFunc(cssText, func(match string) string {
			sub := re.FindStringSubmatch(match)
			if len(sub) < 2 {
				return match
			}
			value := strings.TrimSpace(sub[1])
			if skippable(value) {
				return match
			}
			local, ok := resolve(value)
			if !ok {
				return match
			}
			return `url("` + local + `")`
		})
	}
	rewriteURL(reURLDouble)
	rewriteURL(reURLSingle)
	rewriteURL(reURLBare)

	rewriteImport := func(re *regexp.Regexp) {
		cssText = re.ReplaceAllStringFunc(cssText, func(match string) string {
			sub := re.FindStringSubmatch(match)
			if len(sub) < 2 {
				return match
			}
			value := strings.TrimSpace(sub[1])
			if skippable(value) {
				return match
			}
			local, ok := resolve(value)
			if !ok {
				return match
			}
			return `@import "` + local + `"`
		})
	}
	rewriteImport(reImportDbl)
	rewriteImport(reImportSgl)

	return cssText
}
