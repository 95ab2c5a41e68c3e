// Package capsule acquires every externally-referenced resource needed to
// make a captured document self-contained. It normalizes references into
// canonical URLs, deduplicates them across and within captures, fetches them
// with bounded concurrency, validates that the downloaded bytes match the
// expected content category, and rewrites markup and stylesheets to point at
// the resulting local files.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., goquery/, sqlite/, httpclient/).
package capsule
