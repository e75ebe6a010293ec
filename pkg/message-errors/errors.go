// Package messageerrors defines the protocol-facing error model of the XS2A
// interface: the coded TPP messages and service-scoped error types that an
// authorisation response carries when a step fails.
//
// Every recoverable failure in the authorisation flow ends up as an
// ErrorHolder built here, almost always through the SPI error mapper; stage
// handlers never assemble protocol errors by hand.
package messageerrors

import (
	"fmt"
	"net/http"
	"strings"

	id "xs2a/pkg/domain"
)

// MessageCode is a TPP-facing error code from the XS2A code list.
type MessageCode string

const (
	CodeFormatError           MessageCode = "FORMAT_ERROR"
	CodePsuCredentialsInvalid MessageCode = "PSU_CREDENTIALS_INVALID"
	CodeResourceUnknown       MessageCode = "RESOURCE_UNKNOWN"
	CodeConsentUnknown        MessageCode = "CONSENT_UNKNOWN"
	CodePaymentFailed         MessageCode = "PAYMENT_FAILED"
	CodeCancellationInvalid   MessageCode = "CANCELLATION_INVALID"
	CodeScaMethodUnknown      MessageCode = "SCA_METHOD_UNKNOWN"
	CodeScaInvalid            MessageCode = "SCA_INVALID"
	CodeStatusInvalid         MessageCode = "STATUS_INVALID"
	CodeTokenUnknown          MessageCode = "TOKEN_UNKNOWN"
	CodeServiceBlocked        MessageCode = "SERVICE_BLOCKED"
	CodeUnauthorized          MessageCode = "UNAUTHORIZED"
	CodeInternalServerError   MessageCode = "INTERNAL_SERVER_ERROR"
)

// defaultTexts supplies human text when an adapter provides none.
var defaultTexts = map[MessageCode]string{
	CodeFormatError:           "Format of certain request fields are not matching the XS2A requirements",
	CodePsuCredentialsInvalid: "The PSU-ID cannot be matched by the addressed ASPSP or is blocked, or a password resp. OTP was not correct",
	CodeResourceUnknown:       "The addressed resource is unknown relative to the TPP",
	CodeConsentUnknown:        "The consent-ID cannot be matched by the ASPSP relative to the TPP",
	CodePaymentFailed:         "The payment initiation POST request failed during the initial process",
	CodeCancellationInvalid:   "The addressed payment is not cancellable",
	CodeScaMethodUnknown:      "Addressed SCA method in the authorisation object is unknown or not matching the PSU",
	CodeScaInvalid:            "The SCA step was not successful",
	CodeStatusInvalid:         "The addressed resource does not allow additional authorisation steps",
	CodeTokenUnknown:          "The OAuth2 token cannot be matched by the ASPSP relative to the TPP",
	CodeServiceBlocked:        "This service is not reachable for the addressed PSU due to a channel independent blocking by the ASPSP",
	CodeUnauthorized:          "The TPP or the PSU is not correctly authorized to perform the request",
	CodeInternalServerError:   "Internal server error occurred",
}

// ErrorType pairs a service with an HTTP status class, e.g. AIS_400.
type ErrorType string

const (
	AIS400 ErrorType = "AIS_400"
	AIS401 ErrorType = "AIS_401"
	AIS403 ErrorType = "AIS_403"
	AIS404 ErrorType = "AIS_404"
	AIS500 ErrorType = "AIS_500"

	PIS400 ErrorType = "PIS_400"
	PIS401 ErrorType = "PIS_401"
	PIS403 ErrorType = "PIS_403"
	PIS404 ErrorType = "PIS_404"
	PIS500 ErrorType = "PIS_500"

	PIIS400 ErrorType = "PIIS_400"
	PIIS401 ErrorType = "PIIS_401"
	PIIS404 ErrorType = "PIIS_404"
	PIIS500 ErrorType = "PIIS_500"
)

var errorTypesByService = map[id.ServiceType]map[int]ErrorType{
	id.ServiceAIS: {
		http.StatusBadRequest:          AIS400,
		http.StatusUnauthorized:        AIS401,
		http.StatusForbidden:           AIS403,
		http.StatusNotFound:            AIS404,
		http.StatusInternalServerError: AIS500,
	},
	id.ServicePIS: {
		http.StatusBadRequest:          PIS400,
		http.StatusUnauthorized:        PIS401,
		http.StatusForbidden:           PIS403,
		http.StatusNotFound:            PIS404,
		http.StatusInternalServerError: PIS500,
	},
	// Cancellation authorisations report under the PIS error types.
	id.ServicePISCancellation: {
		http.StatusBadRequest:          PIS400,
		http.StatusUnauthorized:        PIS401,
		http.StatusForbidden:           PIS403,
		http.StatusNotFound:            PIS404,
		http.StatusInternalServerError: PIS500,
	},
	id.ServicePIIS: {
		http.StatusBadRequest:          PIIS400,
		http.StatusUnauthorized:        PIIS401,
		http.StatusNotFound:            PIIS404,
		http.StatusInternalServerError: PIIS500,
	},
}

// ForService returns the ErrorType for a service and HTTP status. Unknown
// combinations fall back to the service's 500 type so a mapping gap can never
// surface as a panic or a missing error type.
func ForService(service id.ServiceType, httpStatus int) ErrorType {
	byStatus, ok := errorTypesByService[service]
	if !ok {
		byStatus = errorTypesByService[id.ServiceAIS]
	}
	if et, ok := byStatus[httpStatus]; ok {
		return et
	}
	return byStatus[http.StatusInternalServerError]
}

// HTTPStatus returns the HTTP status encoded in the error type.
func (t ErrorType) HTTPStatus() int {
	s := string(t)
	switch s[len(s)-3:] {
	case "400":
		return http.StatusBadRequest
	case "401":
		return http.StatusUnauthorized
	case "403":
		return http.StatusForbidden
	case "404":
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// TppMessage is one coded message with human text.
type TppMessage struct {
	Code MessageCode `json:"code"`
	Text string      `json:"text"`
}

// NewTppMessage builds a message, filling in the code's default text when the
// adapter supplied none.
func NewTppMessage(code MessageCode, text string) TppMessage {
	if text == "" {
		text = defaultTexts[code]
	}
	return TppMessage{Code: code, Text: text}
}

// ErrorHolder is a categorized protocol failure: one error type plus one or
// more coded messages. Build it once; it is not mutated afterwards.
type ErrorHolder struct {
	ErrorType ErrorType
	Messages  []TppMessage
}

// NewErrorHolder builds a holder with at least one message.
func NewErrorHolder(errorType ErrorType, messages ...TppMessage) ErrorHolder {
	if len(messages) == 0 {
		messages = []TppMessage{NewTppMessage(CodeInternalServerError, "")}
	}
	return ErrorHolder{ErrorType: errorType, Messages: messages}
}

// IsZero reports whether the holder carries no failure.
func (h ErrorHolder) IsZero() bool {
	return h.ErrorType == "" && len(h.Messages) == 0
}

// Message returns the concatenated message texts.
func (h ErrorHolder) Message() string {
	texts := make([]string, 0, len(h.Messages))
	for _, m := range h.Messages {
		texts = append(texts, m.Text)
	}
	return strings.Join(texts, ", ")
}

// Error lets an ErrorHolder travel as an error where call sites require one.
func (h ErrorHolder) Error() string {
	return fmt.Sprintf("%s: %s", h.ErrorType, h.Message())
}
