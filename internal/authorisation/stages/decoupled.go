package stages

import (
	"context"

	"xs2a/internal/authorisation"
	"xs2a/internal/spi"
	id "xs2a/pkg/domain"
	"xs2a/pkg/requestcontext"
)

// DecoupledStarter is the slice of an SPI adapter the coordinator needs. All
// three service adapters satisfy it.
type DecoupledStarter interface {
	StartScaDecoupled(ctx context.Context, contextData spi.ContextData, authorisationID id.AuthorisationID, methodID string) spi.Response[spi.StartDecoupledResponse]
}

// DecoupledCoordinator triggers the out-of-band SCA confirmation. It is
// shared by the AIS, PIS and cancellation stages; the service distinction
// enters only through the starter and the error types.
type DecoupledCoordinator struct {
	deps *Deps
}

// NewDecoupledCoordinator builds the coordinator over the shared deps.
func NewDecoupledCoordinator(deps *Deps) *DecoupledCoordinator {
	return &DecoupledCoordinator{deps: deps}
}

// Proceed starts the decoupled flow, optionally with a pre-chosen
// authentication method. On adapter failure the PSU message is the adapter's
// messages joined with ", ". On success the status is always
// scaMethodSelected and the response carries an authentication-object shell
// populated with just the method id, empty when the ASPSP picked the channel
// itself. The full method metadata was already presented earlier in the
// flow, so none is fetched here.
func (c *DecoupledCoordinator) Proceed(ctx context.Context, service id.ServiceType, starter DecoupledStarter, record *authorisation.Record, req authorisation.UpdateRequest, methodID string) (authorisation.Response, error) {
	data := c.deps.contextData(ctx, record, req)
	resp := call(ctx, c.deps, service, "StartScaDecoupled", func(ctx context.Context) spi.Response[spi.StartDecoupledResponse] {
		return starter.StartScaDecoupled(ctx, data, record.ID, methodID)
	})
	if !resp.IsSuccessful() {
		holder := spi.MapFailure(c.deps.Mapper, resp, service)
		c.deps.Metrics.IncrementOutcome(service.String(), id.ScaStatusFailed.String(), "failed")
		return authorisation.Failed(req, holder), nil
	}

	now := requestcontext.Now(ctx)
	if methodID != "" {
		record.ChosenMethodID = methodID
	}
	if record.Psu.IsEmpty() && !req.Psu.IsEmpty() {
		record.Psu = req.Psu
	}
	if err := record.ApplyStatus(id.ScaStatusScaMethodSelected, now); err != nil {
		return authorisation.Response{}, err
	}

	out := authorisation.Response{
		ScaStatus:       id.ScaStatusScaMethodSelected,
		ResourceID:      req.ResourceID,
		AuthorisationID: req.AuthorisationID,
		ChosenScaMethod: &spi.AuthenticationObject{ID: methodID},
		PsuMessage:      resp.Payload.PsuMessage,
	}
	c.deps.Metrics.IncrementOutcome(service.String(), out.ScaStatus.String(), "success")
	return out, nil
}
