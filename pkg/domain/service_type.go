package domain

import dErrors "xs2a/pkg/domain-errors"

// ServiceType distinguishes which XS2A service an authorisation belongs to.
// The stage resolver and the error mapper key on it; PIIS participates only
// at the error-type level (funds-confirmation consents are authorised through
// the AIS-shaped flow).
type ServiceType string

const (
	ServiceAIS             ServiceType = "AIS"
	ServicePIS             ServiceType = "PIS"
	ServicePISCancellation ServiceType = "PIS_CANCELLATION"
	ServicePIIS            ServiceType = "PIIS"
)

var validServiceTypes = map[ServiceType]bool{
	ServiceAIS:             true,
	ServicePIS:             true,
	ServicePISCancellation: true,
	ServicePIIS:            true,
}

// ParseServiceType constructs a ServiceType from external input.
func ParseServiceType(s string) (ServiceType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "service type cannot be empty")
	}
	t := ServiceType(s)
	if !validServiceTypes[t] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid service type")
	}
	return t, nil
}

// IsValid checks if the service type is one of the supported enum values.
func (t ServiceType) IsValid() bool {
	return validServiceTypes[t]
}

// String returns the string representation of the service type.
func (t ServiceType) String() string {
	return string(t)
}
