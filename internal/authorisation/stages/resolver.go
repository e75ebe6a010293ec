package stages

import (
	"fmt"

	"xs2a/internal/authorisation"
	id "xs2a/pkg/domain"
	dErrors "xs2a/pkg/domain-errors"
)

type stageKey struct {
	service  id.ServiceType
	approach id.ScaApproach
	status   id.ScaStatus
}

// Resolver is the lookup table from (service type, SCA approach, status) to
// the stage handler. Built once at startup; a missing entry afterwards is a
// configuration defect, never a user error.
type Resolver struct {
	handlers map[stageKey]authorisation.StageHandler
}

// NewResolver registers the stage handlers for all supported combinations.
func NewResolver(deps *Deps) *Resolver {
	r := &Resolver{handlers: make(map[stageKey]authorisation.StageHandler)}
	coordinator := NewDecoupledCoordinator(deps)

	registerAis(r, deps, coordinator)
	registerPis(r, deps, coordinator)
	registerCancellation(r, deps, coordinator)
	return r
}

func (r *Resolver) register(service id.ServiceType, approach id.ScaApproach, status id.ScaStatus, h authorisation.StageHandler) {
	r.handlers[stageKey{service: service, approach: approach, status: status}] = h
}

// Resolve returns the handler for the combination. Pure lookup; no side
// effects.
func (r *Resolver) Resolve(service id.ServiceType, approach id.ScaApproach, status id.ScaStatus) (authorisation.StageHandler, error) {
	h, ok := r.handlers[stageKey{service: service, approach: approach, status: status}]
	if !ok {
		return nil, dErrors.New(dErrors.CodeConfiguration,
			fmt.Sprintf("no stage handler registered for %s/%s/%s", service, approach, status))
	}
	return h, nil
}
