// Package payment owns the payment aggregate as seen by the authorisation
// core: its ISO 20022 transaction status and the synchronizer operation that
// applies authorisation outcomes to it.
package payment

import (
	"time"

	id "xs2a/pkg/domain"
)

// TransactionStatus is an ISO 20022 payment transaction status code.
type TransactionStatus string

const (
	StatusReceived            TransactionStatus = "RCVD"
	StatusPartiallyAuthorised TransactionStatus = "PATC"
	StatusAcceptedTechnical   TransactionStatus = "ACTC"
	StatusAcceptedCustomer    TransactionStatus = "ACCP"
	StatusSettlementInProcess TransactionStatus = "ACSP"
	StatusAcceptedSettlement  TransactionStatus = "ACSC"
	StatusAcceptedWithChange  TransactionStatus = "ACWC"
	StatusPending             TransactionStatus = "PDNG"
	StatusCancelled           TransactionStatus = "CANC"
	StatusRejected            TransactionStatus = "RJCT"
)

var validTransactionStatuses = map[TransactionStatus]bool{
	StatusReceived:            true,
	StatusPartiallyAuthorised: true,
	StatusAcceptedTechnical:   true,
	StatusAcceptedCustomer:    true,
	StatusSettlementInProcess: true,
	StatusAcceptedSettlement:  true,
	StatusAcceptedWithChange:  true,
	StatusPending:             true,
	StatusCancelled:           true,
	StatusRejected:            true,
}

// IsValid checks if the status is one of the supported enum values.
func (s TransactionStatus) IsValid() bool {
	return validTransactionStatuses[s]
}

// IsFinalised reports whether the payment accepts no further status changes.
func (s TransactionStatus) IsFinalised() bool {
	return s == StatusAcceptedSettlement || s == StatusCancelled || s == StatusRejected
}

// String returns the string representation of the status.
func (s TransactionStatus) String() string {
	return string(s)
}

// Payment is the payment aggregate. The core reads it for authorisation
// decisions and writes back only TransactionStatus and MultilevelScaRequired.
type Payment struct {
	ID                    id.PaymentID
	TppID                 id.TppID
	PsuIDs                []id.PsuID
	TransactionStatus     TransactionStatus
	PaymentProduct        string
	MultilevelScaRequired bool
	CreatedAt             time.Time
	StatusChangedAt       time.Time
}

// HasPsu reports whether the PSU participates in this payment.
func (p *Payment) HasPsu(psuID id.PsuID) bool {
	for _, candidate := range p.PsuIDs {
		if candidate == psuID {
			return true
		}
	}
	return false
}

// IsCancellable reports whether a cancellation authorisation may start.
func (p *Payment) IsCancellable() bool {
	return !p.TransactionStatus.IsFinalised()
}
