package authorisation

import (
	"context"

	id "xs2a/pkg/domain"
)

// StageHandler processes one PSU data update for an authorisation at a given
// SCA status. Apply mutates the record in memory only; the caller persists it
// after a successful outcome. Recoverable failures come back as a response
// with status failed and an error holder; the error return is reserved for
// fatal conditions such as persistence faults.
type StageHandler interface {
	Apply(ctx context.Context, record *Record, req UpdateRequest) (Response, error)
}

// StageResolver selects the stage handler for a service type, SCA approach
// and current status. A missing registration is a configuration defect, not a
// user error.
type StageResolver interface {
	Resolve(service id.ServiceType, approach id.ScaApproach, status id.ScaStatus) (StageHandler, error)
}
