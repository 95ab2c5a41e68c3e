package capture

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// maxExtensionLength bounds the extension carried over from the URL path;
// anything longer is treated as not being a real extension.
const maxExtensionLength = 6

// contentTypeExtensions maps common response content types to a filename
// extension, used when the URL path carries none.
var contentTypeExtensions = map[string]string{
	"image/jpeg":             ".jpg",
	"image/png":              ".png",
	"image/gif":              ".gif",
	"image/webp":             ".webp",
	"image/svg+xml":          ".svg",
	"image/x-icon":           ".ico",
	"text/css":               ".css",
	"text/javascript":        ".js",
	"application/javascript": ".js",
	"font/woff":              ".woff",
	"font/woff2":             ".woff2",
	"font/ttf":               ".ttf",
	"font/otf":               ".otf",
}

// assetFilename derives a stable local filename for a canonical URL by
// hashing host+path+query. The URL's extension is preserved when present;
// otherwise one is inferred from the response content type. Collisions
// between distinct URLs are resolved by the asset store, not here.
func assetFilename(canonicalURL, contentType string) string {
	key := canonicalURL
	ext := ""

	if u, err := url.Parse(canonicalURL); err == nil {
		key = u.Host + u.Path
		if u.RawQuery != "" {
			key += "?" + u.RawQuery
		}
		ext = path.Ext(u.Path)
		if len(ext) > maxExtensionLength {
			ext = ""
		}
	}

	if ext == "" {
		mediaType := contentType
		if idx := strings.Index(mediaType, ";"); idx != -1 {
			mediaType = mediaType[:idx]
		}
		ext = contentTypeExtensions[strings.ToLower(strings.TrimSpace(mediaType))]
	}

	return fmt.Sprintf("%016x%s", xxhash.Sum64String(key), ext)
}
