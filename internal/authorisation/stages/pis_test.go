package stages

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/suite"

	"xs2a/internal/authorisation"
	"xs2a/internal/consent"
	"xs2a/internal/payment"
	"xs2a/internal/profile"
	"xs2a/internal/spi"
	id "xs2a/pkg/domain"
	msgErrors "xs2a/pkg/message-errors"
)

const testPaymentID = "payment-1"

type PaymentStagesSuite struct {
	suite.Suite
	ctx          context.Context
	store        *payment.InMemoryStore
	adapter      *fakePaymentAdapter
	cancellation *fakePaymentAdapter
	deps         *Deps
	resolver     *Resolver
}

func TestPaymentStagesSuite(t *testing.T) {
	suite.Run(t, new(PaymentStagesSuite))
}

func (s *PaymentStagesSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = payment.NewInMemoryStore()
	s.adapter = &fakePaymentAdapter{}
	s.cancellation = &fakePaymentAdapter{}

	consents, err := consent.New(consent.NewInMemoryStore())
	s.Require().NoError(err)
	payments, err := payment.New(s.store)
	s.Require().NoError(err)

	s.deps = &Deps{
		Consents:            consents,
		Payments:            payments,
		ConsentAdapter:      &fakeConsentAdapter{},
		PaymentAdapter:      s.adapter,
		CancellationAdapter: s.cancellation,
		Mapper:              spi.NewErrorMapper(),
		Settings:            profile.Default(),
		Logger:              discardLogger(),
	}
	s.resolver = NewResolver(s.deps)

	s.seedPayment(payment.StatusReceived)
}

func (s *PaymentStagesSuite) seedPayment(status payment.TransactionStatus) {
	s.Require().NoError(s.store.Save(s.ctx, &payment.Payment{
		ID:                testPaymentID,
		TppID:             "tpp-1",
		PsuIDs:            []id.PsuID{"psu-1"},
		TransactionStatus: status,
		PaymentProduct:    "sepa-credit-transfers",
	}))
}

func (s *PaymentStagesSuite) handler(service id.ServiceType, status id.ScaStatus) authorisation.StageHandler {
	h, err := s.resolver.Resolve(service, id.ScaApproachEmbedded, status)
	s.Require().NoError(err)
	return h
}

func (s *PaymentStagesSuite) newRecord(service id.ServiceType, status id.ScaStatus) *authorisation.Record {
	return &authorisation.Record{
		ID:          id.NewAuthorisationID(),
		ServiceType: service,
		ResourceID:  testPaymentID,
		ScaStatus:   status,
		ScaApproach: id.ScaApproachEmbedded,
	}
}

func (s *PaymentStagesSuite) newRequest(record *authorisation.Record) authorisation.UpdateRequest {
	return authorisation.UpdateRequest{
		AuthorisationID: record.ID,
		ResourceID:      record.ResourceID,
		ServiceType:     record.ServiceType,
		Psu:             spi.PsuIdData{PsuID: "psu-1"},
	}
}

func (s *PaymentStagesSuite) paymentStatus() payment.TransactionStatus {
	p, err := s.store.FindByID(s.ctx, testPaymentID)
	s.Require().NoError(err)
	return p.TransactionStatus
}

func (s *PaymentStagesSuite) TestAuthorisation() {
	s.Run("unknown payment fails with RESOURCE_UNKNOWN at the 404 class", func() {
		record := s.newRecord(id.ServicePIS, id.ScaStatusReceived)
		record.ResourceID = "no-such-payment"
		req := s.newRequest(record)

		resp, err := s.handler(id.ServicePIS, id.ScaStatusReceived).Apply(s.ctx, record, req)
		s.Require().NoError(err)
		s.Require().True(resp.IsFailure())
		s.Equal(msgErrors.PIS404, resp.Error.ErrorType)
		s.Equal(msgErrors.CodeResourceUnknown, resp.Error.Messages[0].Code)
		s.Empty(s.adapter.calls)
	})

	s.Run("successful verification executes the payment", func() {
		record := s.newRecord(id.ServicePIS, id.ScaStatusScaMethodSelected)
		record.Psu = spi.PsuIdData{PsuID: "psu-1"}
		record.ChosenMethodID = "sms"
		req := s.newRequest(record)
		req.ScaAuthenticationData = "123456"
		s.adapter.execute = func(confirmation spi.ScaConfirmation) spi.Response[spi.VerifyPaymentResponse] {
			s.Equal(testPaymentID, confirmation.OwnerID)
			return spi.Success(spi.VerifyPaymentResponse{TransactionStatus: "ACSC"})
		}

		resp, err := s.handler(id.ServicePIS, id.ScaStatusScaMethodSelected).Apply(s.ctx, record, req)
		s.Require().NoError(err)
		s.Require().False(resp.IsFailure())
		s.Equal(id.ScaStatusFinalised, resp.ScaStatus)
		s.Equal(payment.StatusAcceptedSettlement, s.paymentStatus())
	})

	s.Run("verification side effects run under one transaction", func() {
		db, mock, err := sqlmock.New()
		s.Require().NoError(err)
		defer db.Close()
		mock.ExpectBegin()
		mock.ExpectCommit()
		s.deps.DB = db
		defer func() { s.deps.DB = nil }()

		s.seedPayment(payment.StatusReceived)
		record := s.newRecord(id.ServicePIS, id.ScaStatusScaMethodSelected)
		record.Psu = spi.PsuIdData{PsuID: "psu-1"}
		record.ChosenMethodID = "sms"
		req := s.newRequest(record)
		req.ScaAuthenticationData = "123456"
		s.adapter.execute = func(spi.ScaConfirmation) spi.Response[spi.VerifyPaymentResponse] {
			return spi.Success(spi.VerifyPaymentResponse{TransactionStatus: "PATC"})
		}

		resp, err := s.handler(id.ServicePIS, id.ScaStatusScaMethodSelected).Apply(s.ctx, record, req)
		s.Require().NoError(err)
		s.Require().False(resp.IsFailure())
		s.Equal(payment.StatusPartiallyAuthorised, s.paymentStatus())
		s.NoError(mock.ExpectationsWereMet())
	})

	s.Run("partial authorisation reports PATC and raises the multilevel flag", func() {
		s.seedPayment(payment.StatusReceived)
		record := s.newRecord(id.ServicePIS, id.ScaStatusScaMethodSelected)
		record.Psu = spi.PsuIdData{PsuID: "psu-1"}
		record.ChosenMethodID = "sms"
		req := s.newRequest(record)
		req.ScaAuthenticationData = "123456"
		s.adapter.execute = func(spi.ScaConfirmation) spi.Response[spi.VerifyPaymentResponse] {
			return spi.Success(spi.VerifyPaymentResponse{TransactionStatus: "PATC"})
		}

		resp, err := s.handler(id.ServicePIS, id.ScaStatusScaMethodSelected).Apply(s.ctx, record, req)
		s.Require().NoError(err)
		s.Require().False(resp.IsFailure())
		s.Equal(payment.StatusPartiallyAuthorised, s.paymentStatus())

		p, err := s.store.FindByID(s.ctx, testPaymentID)
		s.Require().NoError(err)
		s.True(p.MultilevelScaRequired)
	})

	s.Run("exemption accepts the payment technically", func() {
		s.seedPayment(payment.StatusReceived)
		s.deps.Settings.ScaExemptionAllowed = true
		defer func() { s.deps.Settings.ScaExemptionAllowed = false }()

		record := s.newRecord(id.ServicePIS, id.ScaStatusReceived)
		req := s.newRequest(record)
		req.Password = "secret"
		s.adapter.authorise = func(id.PaymentID, string) spi.Response[spi.AuthorisePsuResponse] {
			return spi.Success(spi.AuthorisePsuResponse{ScaStatus: id.ScaStatusExempted})
		}

		resp, err := s.handler(id.ServicePIS, id.ScaStatusReceived).Apply(s.ctx, record, req)
		s.Require().NoError(err)
		s.Require().False(resp.IsFailure())
		s.Equal(id.ScaStatusExempted, resp.ScaStatus)
		s.Equal(payment.StatusAcceptedTechnical, s.paymentStatus())
	})
}

func (s *PaymentStagesSuite) TestCancellation() {
	s.Run("finalised payment is not cancellable", func() {
		s.seedPayment(payment.StatusAcceptedSettlement)
		record := s.newRecord(id.ServicePISCancellation, id.ScaStatusReceived)
		req := s.newRequest(record)

		resp, err := s.handler(id.ServicePISCancellation, id.ScaStatusReceived).Apply(s.ctx, record, req)
		s.Require().NoError(err)
		s.Require().True(resp.IsFailure())
		s.Equal(msgErrors.PIS400, resp.Error.ErrorType)
		s.Equal(msgErrors.CodeCancellationInvalid, resp.Error.Messages[0].Code)
		s.Empty(s.cancellation.calls)
	})

	s.Run("successful verification cancels the payment", func() {
		s.seedPayment(payment.StatusAcceptedCustomer)
		record := s.newRecord(id.ServicePISCancellation, id.ScaStatusScaMethodSelected)
		record.Psu = spi.PsuIdData{PsuID: "psu-1"}
		record.ChosenMethodID = "sms"
		req := s.newRequest(record)
		req.ScaAuthenticationData = "123456"
		s.cancellation.cancel = func(spi.ScaConfirmation) spi.Response[spi.VerifyPaymentResponse] {
			return spi.Success(spi.VerifyPaymentResponse{TransactionStatus: "CANC"})
		}

		resp, err := s.handler(id.ServicePISCancellation, id.ScaStatusScaMethodSelected).Apply(s.ctx, record, req)
		s.Require().NoError(err)
		s.Require().False(resp.IsFailure())
		s.Equal(id.ScaStatusFinalised, resp.ScaStatus)
		s.Equal(payment.StatusCancelled, s.paymentStatus())
		s.Contains(s.cancellation.calls, "VerifyScaAuthorisationAndCancelPayment")
	})

	s.Run("exemption cancels directly", func() {
		s.seedPayment(payment.StatusAcceptedCustomer)
		s.deps.Settings.ScaExemptionAllowed = true
		defer func() { s.deps.Settings.ScaExemptionAllowed = false }()

		record := s.newRecord(id.ServicePISCancellation, id.ScaStatusReceived)
		req := s.newRequest(record)
		req.Password = "secret"
		s.cancellation.authorise = func(id.PaymentID, string) spi.Response[spi.AuthorisePsuResponse] {
			return spi.Success(spi.AuthorisePsuResponse{ScaStatus: id.ScaStatusExempted})
		}

		resp, err := s.handler(id.ServicePISCancellation, id.ScaStatusReceived).Apply(s.ctx, record, req)
		s.Require().NoError(err)
		s.Require().False(resp.IsFailure())
		s.Equal(id.ScaStatusExempted, resp.ScaStatus)
		s.Equal(payment.StatusCancelled, s.paymentStatus())
	})
}
