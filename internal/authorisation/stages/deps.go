// Package stages implements the stage handlers of the SCA authorisation state
// machine. One generic engine carries the shared request ordering; per-service
// files plug in a small capability set per (service type, status) and the
// resolver wires the combinations into a lookup table.
package stages

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"xs2a/internal/authorisation"
	"xs2a/internal/authorisation/metrics"
	"xs2a/internal/consent"
	"xs2a/internal/payment"
	"xs2a/internal/profile"
	"xs2a/internal/spi"
	id "xs2a/pkg/domain"
	msgErrors "xs2a/pkg/message-errors"
	"xs2a/pkg/requestcontext"
)

var tracer = otel.Tracer("xs2a/authorisation")

// Deps bundles the collaborators every stage handler shares. Built once at
// startup; treated as read-only afterwards.
type Deps struct {
	Consents *consent.Service
	Payments *payment.Service

	// DB backs the verification-stage transaction; nil with in-memory
	// stores, where the writes run directly.
	DB *sql.DB

	ConsentAdapter      spi.ConsentAdapter
	PaymentAdapter      spi.PaymentAdapter
	CancellationAdapter spi.CancellationAdapter

	Mapper   spi.ErrorMapper
	Settings profile.AspspSettings
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// contextData builds the adapter call context for one request. The PSU from
// the request wins; an already identified record fills the gap on follow-up
// steps that carry no PSU headers.
func (d *Deps) contextData(ctx context.Context, record *authorisation.Record, req authorisation.UpdateRequest) spi.ContextData {
	psu := req.Psu
	if psu.IsEmpty() {
		psu = record.Psu
	}
	return spi.ContextData{
		Psu:       psu,
		Tpp:       spi.TppInfo{AuthorisationNumber: requestcontext.TppID(ctx)},
		RequestID: requestcontext.RequestID(ctx),
	}
}

// call runs one SPI adapter operation under a span and records its latency.
func call[T any](ctx context.Context, d *Deps, service id.ServiceType, operation string, fn func(ctx context.Context) spi.Response[T]) spi.Response[T] {
	ctx, span := tracer.Start(ctx, "spi."+operation, trace.WithAttributes(
		attribute.String("xs2a.service", service.String()),
	))
	defer span.End()

	start := time.Now()
	resp := fn(ctx)
	d.Metrics.ObserveSpiLatency(service.String(), operation, time.Since(start))

	span.SetAttributes(attribute.String("xs2a.spi.status", string(resp.Status)))
	if !resp.IsSuccessful() {
		span.SetStatus(codes.Error, string(resp.Status))
	}
	return resp
}

// ownerUnknown is the failure for an absent owning resource. AIS reports an
// unknown consent at the 400 class; the payment services report an unknown
// resource at the 404 class.
func ownerUnknown(service id.ServiceType) msgErrors.ErrorHolder {
	if service == id.ServiceAIS {
		return msgErrors.NewErrorHolder(
			msgErrors.ForService(service, http.StatusBadRequest),
			msgErrors.NewTppMessage(msgErrors.CodeConsentUnknown, ""),
		)
	}
	return msgErrors.NewErrorHolder(
		msgErrors.ForService(service, http.StatusNotFound),
		msgErrors.NewTppMessage(msgErrors.CodeResourceUnknown, ""),
	)
}

// validationFailure builds the holder for a request rejected before any
// adapter call.
func validationFailure(service id.ServiceType, code msgErrors.MessageCode, text string) msgErrors.ErrorHolder {
	return msgErrors.NewErrorHolder(
		msgErrors.ForService(service, http.StatusBadRequest),
		msgErrors.NewTppMessage(code, text),
	)
}

// psuMismatch is the failure for PSU identity that does not match the
// authorisation or the owning resource.
func psuMismatch(service id.ServiceType) msgErrors.ErrorHolder {
	return msgErrors.NewErrorHolder(
		msgErrors.ForService(service, http.StatusUnauthorized),
		msgErrors.NewTppMessage(msgErrors.CodePsuCredentialsInvalid, ""),
	)
}
