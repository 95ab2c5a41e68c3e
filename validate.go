package capsule

// ValidationOutcome is the result of checking downloaded bytes against an
// expected content category.
type ValidationOutcome int

// Validation outcomes.
const (
	// Accepted means at least one check (signature, header, or structure)
	// confirmed the expected category.
	Accepted ValidationOutcome = iota

	// Rejected means every check failed.
	Rejected

	// Indeterminate means the validator could not run its checks, so the
	// content can be neither confirmed nor denied. Whether indeterminate
	// content is kept is a policy decision made by the capture controller.
	Indeterminate
)

// String returns a human-readable name for the outcome.
func (o ValidationOutcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case Indeterminate:
		return "indeterminate"
	}
	return "unknown"
}

// Validator confirms that downloaded bytes plausibly match an expected
// content category.
type Validator interface {
	// Validate checks data against the expected category. contentType is the
	// HTTP Content-Type response header and may be empty.
	Validate(data []byte, expected Category, contentType string) ValidationOutcome
}
