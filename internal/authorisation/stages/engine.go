package stages

import (
	"context"
	"time"

	"xs2a/internal/authorisation"
	"xs2a/internal/spi"
	id "xs2a/pkg/domain"
	dErrors "xs2a/pkg/domain-errors"
	msgErrors "xs2a/pkg/message-errors"
)

// stage is the generic engine behind every handler: a capability set over an
// owning resource type O and an adapter payload type T. Apply runs the shared
// ordering — resolve owner, validate, adapter call, map failure, interpret —
// so the variants only supply the pieces that differ.
type stage[O any, T any] struct {
	deps      *Deps
	service   id.ServiceType
	operation string

	// resolveOwner loads the owning consent or payment. A CodeNotFound error
	// fails the request before any adapter call.
	resolveOwner func(ctx context.Context, req authorisation.UpdateRequest) (O, error)

	// validate runs the cheap request checks. A non-nil holder rejects the
	// request without touching the adapter. Optional.
	validate func(owner O, record *authorisation.Record, req authorisation.UpdateRequest) *msgErrors.ErrorHolder

	// complete may finish the stage without an adapter call, e.g. PSU
	// identification. A nil response falls through to invoke. Optional.
	complete func(ctx context.Context, owner O, record *authorisation.Record, req authorisation.UpdateRequest) (*authorisation.Response, error)

	// invoke performs the stage's primary adapter operation.
	invoke func(ctx context.Context, data spi.ContextData, owner O, record *authorisation.Record, req authorisation.UpdateRequest) spi.Response[T]

	// interpret turns a successful adapter payload into the next status,
	// applying side effects on the owning aggregate. Follow-up adapter calls
	// are allowed here and report through the same mapper.
	interpret func(ctx context.Context, owner O, record *authorisation.Record, req authorisation.UpdateRequest, payload T) (authorisation.Response, error)
}

func (s *stage[O, T]) Apply(ctx context.Context, record *authorisation.Record, req authorisation.UpdateRequest) (authorisation.Response, error) {
	start := time.Now()
	defer func() {
		s.deps.Metrics.ObserveStageLatency(time.Since(start))
	}()

	owner, err := s.resolveOwner(ctx, req)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return s.failed(req, ownerUnknown(s.service)), nil
		}
		return authorisation.Response{}, err
	}

	if s.validate != nil {
		if holder := s.validate(owner, record, req); holder != nil {
			return s.failed(req, *holder), nil
		}
	}

	if s.complete != nil {
		out, err := s.complete(ctx, owner, record, req)
		if err != nil {
			return authorisation.Response{}, err
		}
		if out != nil {
			s.deps.Metrics.IncrementOutcome(s.service.String(), out.ScaStatus.String(), outcomeOf(*out))
			return *out, nil
		}
	}

	if s.invoke == nil {
		return authorisation.Response{}, dErrors.New(dErrors.CodeConfiguration,
			"stage "+s.operation+" has no adapter operation")
	}

	data := s.deps.contextData(ctx, record, req)
	resp := call(ctx, s.deps, s.service, s.operation, func(ctx context.Context) spi.Response[T] {
		return s.invoke(ctx, data, owner, record, req)
	})
	if !resp.IsSuccessful() {
		return s.failed(req, spi.MapFailure(s.deps.Mapper, resp, s.service)), nil
	}

	out, err := s.interpret(ctx, owner, record, req, resp.Payload)
	if err != nil {
		return authorisation.Response{}, err
	}
	s.deps.Metrics.IncrementOutcome(s.service.String(), out.ScaStatus.String(), outcomeOf(out))
	return out, nil
}

func (s *stage[O, T]) failed(req authorisation.UpdateRequest, holder msgErrors.ErrorHolder) authorisation.Response {
	s.deps.Metrics.IncrementOutcome(s.service.String(), id.ScaStatusFailed.String(), "failed")
	return authorisation.Failed(req, holder)
}

func outcomeOf(r authorisation.Response) string {
	if r.IsFailure() {
		return "failed"
	}
	return "success"
}

// validateAuthenticationData rejects verification requests without a TAN.
func validateAuthenticationData[O any](service id.ServiceType) func(O, *authorisation.Record, authorisation.UpdateRequest) *msgErrors.ErrorHolder {
	return func(_ O, _ *authorisation.Record, req authorisation.UpdateRequest) *msgErrors.ErrorHolder {
		if req.ScaAuthenticationData == "" {
			holder := validationFailure(service, msgErrors.CodeFormatError, "SCA authentication data is required")
			return &holder
		}
		return nil
	}
}

func methodKnown(methods []spi.AuthenticationObject, methodID string) bool {
	for _, m := range methods {
		if m.ID == methodID {
			return true
		}
	}
	return false
}

// methodByID returns the full method description when it is known, or a
// shell carrying just the id.
func methodByID(methods []spi.AuthenticationObject, methodID string) *spi.AuthenticationObject {
	for i := range methods {
		if methods[i].ID == methodID {
			m := methods[i]
			return &m
		}
	}
	return &spi.AuthenticationObject{ID: methodID}
}
