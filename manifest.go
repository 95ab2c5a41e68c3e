package capsule

import "time"

// Manifest is the final mapping of original reference strings to resolved
// local paths for a completed capture. It is written once, at the end, and
// only if the capture completed.
type Manifest struct {
	// CaptureID uniquely identifies the capture run.
	CaptureID string `json:"captureId"`

	// BaseURL is the document URL the capture ran against.
	BaseURL string `json:"baseUrl"`

	// CreatedAt is when the manifest was assembled.
	CreatedAt time.Time `json:"createdAt"`

	// Assets maps each original reference string, exactly as it appeared in
	// the markup or stylesheet text, to its resolved local path.
	Assets map[string]string `json:"assets"`
}

// Validate returns an error if the manifest contains invalid fields.
func (m *Manifest) Validate() error {
	if m.BaseURL == "" {
		return Errorf(EINVALID, "manifest base URL required")
	}
	if m.Assets == nil {
		return Errorf(EINVALID, "manifest asset mapping required")
	}
	return nil
}
