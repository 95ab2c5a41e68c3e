package capsule

// Category classifies the content a canonical URL is expected to resolve to.
type Category string

// Content categories recognized by the classifier and validator.
const (
	CategoryImage      Category = "image"
	CategoryStylesheet Category = "stylesheet"
	CategoryScript     Category = "script"
	CategoryFont       Category = "font"
	CategoryText       Category = "text"
	CategoryOther      Category = "other"
)

// AssetReference is a single occurrence of a resource pointer found in markup
// or stylesheet text. Many raw references may resolve to one canonical URL.
// References are immutable once created.
type AssetReference struct {
	// Raw is the reference exactly as it appeared in the source.
	Raw string

	// Canonical is the normalized absolute URL used as the cache key.
	Canonical string

	// Category is the expected content category for the canonical URL.
	Category Category

	// Origin describes where the reference was found, e.g. "img[src]" for a
	// markup attribute or "css:url()" for a rule inside a fetched stylesheet.
	Origin string
}

// FetchDisposition describes how a single reference was resolved by the
// fetch executor.
type FetchDisposition int

// Dispositions reported per reference.
const (
	// AlreadyCached means the canonical URL was served from the asset cache
	// without a network call.
	AlreadyCached FetchDisposition = iota

	// Downloaded means the asset was fetched, validated, and written to disk
	// during this attempt.
	Downloaded

	// Failed means the fetch, validation, or write failed for this attempt.
	Failed
)

// String returns a human-readable name for the disposition.
func (d FetchDisposition) String() string {
	switch d {
	case AlreadyCached:
		return "cached"
	case Downloaded:
		return "downloaded"
	case Failed:
		return "failed"
	}
	return "unknown"
}
