// Package urlnorm canonicalizes asset references into stable, uniquely
// encoded absolute URLs and classifies them into expected content
// categories. The canonical form is what the rest of the pipeline uses as
// the cache key, so normalization must be idempotent: normalizing an
// already-canonical URL yields the same string.
package urlnorm

import (
	"net/url"
	"path"
	"strings"

	"github.com/Webictbyleo/capsule"
)

// maxDecodeIterations bounds the fixed-point percent-decode loop so
// adversarial input cannot spin it forever.
const maxDecodeIterations = 5

// fontServiceHost is the stylesheet service whose query strings must keep
// their literal '+', ':', ',' and '|' characters. Re-encoding them breaks
// family specifications like "family=Oswald:700|Raleway:600,700".
const fontServiceHost = "fonts.googleapis.com"

// Fetchable reports whether a reference can be retrieved over the network.
// Data URIs, javascript: pseudo-URLs, and fragment-only references are
// passed through the pipeline unchanged and never enter the cache.
func Fetchable(ref string) bool {
	if ref == "" {
		return false
	}
	return !strings.HasPrefix(ref, "data:") &&
		!strings.HasPrefix(ref, "javascript:") &&
		!strings.HasPrefix(ref, "#")
}

// Normalize resolves ref against base (which may be nil for absolute
// references) and returns its canonical form. Percent-encoding in path
// segments and the query is collapsed to exactly one level, the scheme and
// host are lower-cased, and fragments pass through unchanged.
//
// Normalize never fails: references that cannot be parsed, and relative
// references without a base, are returned unchanged.
func Normalize(ref string, base *url.URL) string {
	if !Fetchable(ref) {
		return ref
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if !u.IsAbs() || u.Host == "" {
		// Relative reference with no base to resolve against.
		return ref
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	// Collapse multi-level encoding in each path segment, then re-encode
	// with a fixed safe set so equivalent references share one spelling.
	segments := strings.Split(u.EscapedPath(), "/")
	decoded := make([]string, len(segments))
	encoded := make([]string, len(segments))
	for i, seg := range segments {
		decoded[i] = decodeFixpoint(seg)
		encoded[i] = encodeSegment(decoded[i])
	}
	u.Path = strings.Join(decoded, "/")
	u.RawPath = strings.Join(encoded, "/")

	if u.RawQuery != "" {
		q := decodeFixpoint(u.RawQuery)
		if isFontService(u.Host) && requestsStylesheet(strings.ToLower(u.Path), strings.ToLower(q)) {
			// The font service requires the decoded query verbatim.
			u.RawQuery = q
		} else {
			u.RawQuery = encodeQuery(q)
		}
	}

	return u.String()
}

// decodeFixpoint percent-decodes s until decoding is a no-op, guarding
// against multi-level encoding such as %2520 -> %20 -> space. The iteration
// cap keeps pathological input from looping.
func decodeFixpoint(s string) string {
	for i := 0; i < maxDecodeIterations; i++ {
		dec, err := url.PathUnescape(s)
		if err != nil || dec == s {
			break
		}
		s = dec
	}
	return s
}

// isUnreserved reports whether c never needs percent-encoding.
func isUnreserved(c byte) bool {
	return ('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9') ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

const upperhex = "0123456789ABCDEF"

func encodeByte(b *strings.Builder, c byte) {
	b.WriteByte('%')
	b.WriteByte(upperhex[c>>4])
	b.WriteByte(upperhex[c&0xf])
}

// encodeSegment re-encodes a decoded path segment, keeping only unreserved
// characters literal.
func encodeSegment(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if isUnreserved(s[i]) {
			b.WriteByte(s[i])
		} else {
			encodeByte(&b, s[i])
		}
	}
	return b.String()
}

// encodeQuery re-encodes a decoded query string, keeping '=' and '&'
// literal so the parameter structure survives.
func encodeQuery(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if isUnreserved(s[i]) || s[i] == '=' || s[i] == '&' {
			b.WriteByte(s[i])
		} else {
			encodeByte(&b, s[i])
		}
	}
	return b.String()
}

func isFontService(host string) bool {
	return strings.Contains(strings.ToLower(host), fontServiceHost)
}

// requestsStylesheet reports whether a font-service path/query pair denotes
// a stylesheet request. Both arguments must already be lower-cased.
func requestsStylesheet(lowerPath, lowerQuery string) bool {
	return strings.Contains(lowerPath, "css") ||
		strings.Contains(lowerQuery, "css") ||
		strings.HasPrefix(lowerPath, "/css")
}

// extensionCategories is the fixed extension table used by Classify.
var extensionCategories = map[string]capsule.Category{
	".jpg":   capsule.CategoryImage,
	".jpeg":  capsule.CategoryImage,
	".png":   capsule.CategoryImage,
	".gif":   capsule.CategoryImage,
	".svg":   capsule.CategoryImage,
	".webp":  capsule.CategoryImage,
	".bmp":   capsule.CategoryImage,
	".ico":   capsule.CategoryImage,
	".css":   capsule.CategoryStylesheet,
	".js":    capsule.CategoryScript,
	".mjs":   capsule.CategoryScript,
	".woff":  capsule.CategoryFont,
	".woff2": capsule.CategoryFont,
	".ttf":   capsule.CategoryFont,
	".otf":   capsule.CategoryFont,
	".eot":   capsule.CategoryFont,
	".xml":   capsule.CategoryText,
	".json":  capsule.CategoryText,
	".txt":   capsule.CategoryText,
}

// Classify maps a canonical URL to its expected content category based on
// the path extension. Requests to the font service whose path or query
// denotes a stylesheet are classified as stylesheets regardless of
// extension.
func Classify(canonicalURL string) capsule.Category {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return capsule.CategoryOther
	}

	lowerPath := strings.ToLower(u.Path)
	if isFontService(u.Host) && requestsStylesheet(lowerPath, strings.ToLower(u.RawQuery)) {
		return capsule.CategoryStylesheet
	}

	if cat, ok := extensionCategories[path.Ext(lowerPath)]; ok {
		return cat
	}
	return capsule.CategoryOther
}
