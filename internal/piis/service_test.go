package piis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"xs2a/internal/consent"
	"xs2a/internal/spi"
	id "xs2a/pkg/domain"
	msgErrors "xs2a/pkg/message-errors"
	"xs2a/pkg/platform/audit"
)

type fakeFundsAdapter struct {
	calls    int
	response spi.Response[spi.FundsConfirmationResponse]
}

func (f *fakeFundsAdapter) PerformFundsConfirmation(_ context.Context, _ spi.ContextData, _ id.ConsentID, _, _, _ string) spi.Response[spi.FundsConfirmationResponse] {
	f.calls++
	return f.response
}

type auditRecorder struct {
	events []audit.Event
}

func (r *auditRecorder) Emit(_ context.Context, event audit.Event) error {
	r.events = append(r.events, event)
	return nil
}

type PiisServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *consent.InMemoryStore
	adapter *fakeFundsAdapter
	audit   *auditRecorder
	service *Service
}

func TestPiisServiceSuite(t *testing.T) {
	suite.Run(t, new(PiisServiceSuite))
}

func (s *PiisServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = consent.NewInMemoryStore()
	s.adapter = &fakeFundsAdapter{response: spi.Success(spi.FundsConfirmationResponse{FundsAvailable: true})}
	s.audit = &auditRecorder{}

	consents, err := consent.New(s.store)
	s.Require().NoError(err)
	svc, err := New(consents, s.adapter, spi.NewErrorMapper(), WithAuditPublisher(s.audit))
	s.Require().NoError(err)
	s.service = svc
}

func (s *PiisServiceSuite) seed(status consent.Status, validUntil time.Time) {
	s.Require().NoError(s.store.Save(s.ctx, &consent.AccountConsent{
		ID:         "consent-1",
		TppID:      "tpp-1",
		PsuIDs:     []id.PsuID{"psu-1"},
		Status:     status,
		ValidUntil: validUntil,
	}))
}

func (s *PiisServiceSuite) request() Request {
	return Request{
		ConsentID:   "consent-1",
		AccountIBAN: "DE89370400440532013000",
		Amount:      "123.50",
		Currency:    "EUR",
	}
}

func (s *PiisServiceSuite) TestConfirmFunds() {
	s.Run("requires every request field", func() {
		for field, mutate := range map[string]func(*Request){
			"consent id":        func(r *Request) { r.ConsentID = "" },
			"account reference": func(r *Request) { r.AccountIBAN = "" },
			"instructed amount": func(r *Request) { r.Amount = "" },
			"currency":          func(r *Request) { r.Currency = "" },
		} {
			req := s.request()
			mutate(&req)

			resp, err := s.service.ConfirmFunds(s.ctx, req)
			s.Require().NoError(err, field)
			s.Require().True(resp.IsFailure(), field)
			s.Equal(msgErrors.PIIS400, resp.Error.ErrorType)
			s.Equal(msgErrors.CodeFormatError, resp.Error.Messages[0].Code)
		}
		s.Zero(s.adapter.calls)
	})

	s.Run("unknown consent fails as CONSENT_UNKNOWN", func() {
		resp, err := s.service.ConfirmFunds(s.ctx, s.request())
		s.Require().NoError(err)
		s.Require().True(resp.IsFailure())
		s.Equal(msgErrors.PIIS400, resp.Error.ErrorType)
		s.Equal(msgErrors.CodeConsentUnknown, resp.Error.Messages[0].Code)
		s.Zero(s.adapter.calls)
	})

	s.Run("a consent that is not valid cannot be used", func() {
		s.seed(consent.StatusReceived, time.Now().Add(24*time.Hour))

		resp, err := s.service.ConfirmFunds(s.ctx, s.request())
		s.Require().NoError(err)
		s.Require().True(resp.IsFailure())
		s.Equal(msgErrors.CodeStatusInvalid, resp.Error.Messages[0].Code)
		s.Zero(s.adapter.calls)
	})

	s.Run("an expired consent cannot be used", func() {
		s.seed(consent.StatusValid, time.Now().Add(-time.Hour))

		resp, err := s.service.ConfirmFunds(s.ctx, s.request())
		s.Require().NoError(err)
		s.Require().True(resp.IsFailure())
		s.Equal(msgErrors.CodeStatusInvalid, resp.Error.Messages[0].Code)
	})

	s.Run("answers the availability question", func() {
		s.seed(consent.StatusValid, time.Now().Add(24*time.Hour))

		resp, err := s.service.ConfirmFunds(s.ctx, s.request())
		s.Require().NoError(err)
		s.Require().False(resp.IsFailure())
		s.True(resp.FundsAvailable)
		s.Equal(1, s.adapter.calls)

		s.Require().Len(s.audit.events, 1)
		s.Equal(audit.ActionFundsConfirmationChecked, s.audit.events[0].Action)
	})

	s.Run("adapter failures map to PIIS error types", func() {
		s.seed(consent.StatusValid, time.Now().Add(24*time.Hour))
		s.adapter.response = spi.Failure[spi.FundsConfirmationResponse](spi.StatusTechnicalFailure, "core banking down")

		resp, err := s.service.ConfirmFunds(s.ctx, s.request())
		s.Require().NoError(err)
		s.Require().True(resp.IsFailure())
		s.Equal(msgErrors.PIIS500, resp.Error.ErrorType)
		s.Equal("core banking down", resp.Error.Messages[0].Text)
	})
}
