package capsule

import "context"

// Cookie is a single browser session cookie captured by the external
// rendering collaborator and replayed on asset requests.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
}

// AuthContext carries the headers and cookies of the authenticated browser
// session. It is captured once at the start of a batch and treated as
// read-only for the duration of that batch.
type AuthContext struct {
	Headers map[string]string
	Cookies []Cookie
}

// FetchResponse holds the outcome of a successful asset request.
type FetchResponse struct {
	Body []byte

	// ContentType is the Content-Type header of the response, if any.
	ContentType string
}

// AssetFetcher retrieves the raw bytes of a single asset URL.
//
// Implementations distinguish HTTP 403, 404, and 429 from other failures by
// returning errors with codes EFORBIDDEN, ENOTFOUND, and ERATELIMITED
// respectively; those are never worth retrying within an attempt. Network
// errors, timeouts, and other non-2xx statuses return EUNAVAILABLE.
type AssetFetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResponse, error)
}
