// Package piis implements the funds-confirmation check: a PIIS consent is
// validated and the availability question is delegated to the bank through
// the funds SPI adapter. PIIS consents themselves are authorised through the
// AIS-shaped flow; this package only answers the confirmation question.
package piis

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"xs2a/internal/consent"
	"xs2a/internal/spi"
	id "xs2a/pkg/domain"
	dErrors "xs2a/pkg/domain-errors"
	msgErrors "xs2a/pkg/message-errors"
	"xs2a/pkg/platform/audit"
	"xs2a/pkg/requestcontext"
)

var tracer = otel.Tracer("xs2a/piis")

// Request is one funds-confirmation question.
type Request struct {
	ConsentID   id.ConsentID
	AccountIBAN string
	Amount      string
	Currency    string
}

// Response answers the question or carries the protocol failure.
type Response struct {
	FundsAvailable bool
	Error          *msgErrors.ErrorHolder
}

// IsFailure reports whether the response carries an error payload.
func (r Response) IsFailure() bool {
	return r.Error != nil
}

// Service checks funds availability against a PIIS consent.
type Service struct {
	consents       *consent.Service
	adapter        spi.FundsAdapter
	mapper         spi.ErrorMapper
	auditPublisher audit.Publisher
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func New(consents *consent.Service, adapter spi.FundsAdapter, mapper spi.ErrorMapper, opts ...Option) (*Service, error) {
	if consents == nil {
		return nil, fmt.Errorf("consent service is required")
	}
	if adapter == nil {
		return nil, fmt.Errorf("funds adapter is required")
	}

	svc := &Service{consents: consents, adapter: adapter, mapper: mapper}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ConfirmFunds validates the consent and asks the bank whether funds are
// available. Recoverable failures come back inside the response; the error
// return is reserved for fatal conditions.
func (s *Service) ConfirmFunds(ctx context.Context, req Request) (Response, error) {
	if holder := validate(req); holder != nil {
		return Response{Error: holder}, nil
	}

	c, err := s.consents.GetConsent(ctx, req.ConsentID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return failure(http.StatusBadRequest, msgErrors.CodeConsentUnknown, ""), nil
		}
		return Response{}, err
	}
	if c.Status != consent.StatusValid || c.IsExpiredAt(requestcontext.Now(ctx)) {
		return failure(http.StatusBadRequest, msgErrors.CodeStatusInvalid,
			"the consent does not allow funds confirmation"), nil
	}

	data := spi.ContextData{
		Tpp:       spi.TppInfo{AuthorisationNumber: requestcontext.TppID(ctx)},
		RequestID: requestcontext.RequestID(ctx),
	}

	spanCtx, span := tracer.Start(ctx, "spi.PerformFundsConfirmation")
	start := time.Now()
	resp := s.adapter.PerformFundsConfirmation(spanCtx, data, req.ConsentID, req.AccountIBAN, req.Amount, req.Currency)
	span.SetAttributes(
		attribute.String("xs2a.spi.status", string(resp.Status)),
		attribute.Int64("xs2a.spi.duration_ms", time.Since(start).Milliseconds()),
	)
	span.End()

	if !resp.IsSuccessful() {
		holder := s.mapper.MapToErrorHolder(resp.Status, resp.Messages, id.ServicePIIS)
		return Response{Error: &holder}, nil
	}

	s.emit(ctx, req, resp.Payload.FundsAvailable)
	return Response{FundsAvailable: resp.Payload.FundsAvailable}, nil
}

func (s *Service) emit(ctx context.Context, req Request, available bool) {
	event := audit.Event{
		Action:      audit.ActionFundsConfirmationChecked,
		ResourceID:  req.ConsentID.String(),
		ServiceType: id.ServicePIIS,
		Reason:      fmt.Sprintf("funds available: %t", available),
		TppID:       requestcontext.TppID(ctx),
		RequestID:   requestcontext.RequestID(ctx),
	}
	if err := audit.Emit(ctx, s.auditPublisher, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

func validate(req Request) *msgErrors.ErrorHolder {
	var missing string
	switch {
	case req.ConsentID.IsEmpty():
		missing = "consent id"
	case req.AccountIBAN == "":
		missing = "account reference"
	case req.Amount == "":
		missing = "instructed amount"
	case req.Currency == "":
		missing = "currency"
	default:
		return nil
	}
	holder := msgErrors.NewErrorHolder(
		msgErrors.ForService(id.ServicePIIS, http.StatusBadRequest),
		msgErrors.NewTppMessage(msgErrors.CodeFormatError, missing+" is required"),
	)
	return &holder
}

func failure(httpStatus int, code msgErrors.MessageCode, text string) Response {
	holder := msgErrors.NewErrorHolder(
		msgErrors.ForService(id.ServicePIIS, httpStatus),
		msgErrors.NewTppMessage(code, text),
	)
	return Response{Error: &holder}
}
