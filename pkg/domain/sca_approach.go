package domain

import dErrors "xs2a/pkg/domain-errors"

// ScaApproach selects how the PSU completes strong customer authentication.
type ScaApproach string

const (
	// ScaApproachEmbedded carries authentication data inline in the API exchange.
	ScaApproachEmbedded ScaApproach = "EMBEDDED"
	// ScaApproachRedirect sends the PSU to an ASPSP-hosted page.
	ScaApproachRedirect ScaApproach = "REDIRECT"
	// ScaApproachDecoupled confirms out-of-band, e.g. in the bank's mobile app.
	ScaApproachDecoupled ScaApproach = "DECOUPLED"
)

var validScaApproaches = map[ScaApproach]bool{
	ScaApproachEmbedded:  true,
	ScaApproachRedirect:  true,
	ScaApproachDecoupled: true,
}

// ParseScaApproach constructs a ScaApproach from external input.
func ParseScaApproach(s string) (ScaApproach, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "sca approach cannot be empty")
	}
	a := ScaApproach(s)
	if !validScaApproaches[a] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid sca approach")
	}
	return a, nil
}

// IsValid checks if the approach is one of the supported enum values.
func (a ScaApproach) IsValid() bool {
	return validScaApproaches[a]
}

// String returns the string representation of the approach.
func (a ScaApproach) String() string {
	return string(a)
}
