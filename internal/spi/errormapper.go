package spi

import (
	"net/http"

	id "xs2a/pkg/domain"
	msgErrors "xs2a/pkg/message-errors"
)

// failureMapping pairs the HTTP status class and TPP message code for one
// adapter failure category. The table is the single source of truth; same
// category, same result, always.
type failureMapping struct {
	httpStatus int
	code       msgErrors.MessageCode
}

var failureMappings = map[Status]failureMapping{
	StatusLogicalFailure:      {http.StatusBadRequest, msgErrors.CodeFormatError},
	StatusUnauthorizedFailure: {http.StatusUnauthorized, msgErrors.CodePsuCredentialsInvalid},
	StatusNotSupported:        {http.StatusBadRequest, msgErrors.CodeServiceBlocked},
	StatusTechnicalFailure:    {http.StatusInternalServerError, msgErrors.CodeInternalServerError},
}

// ErrorMapper is the single chokepoint translating adapter failure categories
// into protocol error holders. Stage handlers route every adapter failure
// through it; none construct protocol errors ad hoc.
type ErrorMapper struct{}

// NewErrorMapper returns a stateless mapper.
func NewErrorMapper() ErrorMapper {
	return ErrorMapper{}
}

// MapToErrorHolder classifies an adapter failure for a service. Total over
// the Status enum: an unknown category maps to the service's internal-error
// type rather than propagating as an error.
func (ErrorMapper) MapToErrorHolder(status Status, messages []string, service id.ServiceType) msgErrors.ErrorHolder {
	mapping, ok := failureMappings[status]
	if !ok {
		mapping = failureMappings[StatusTechnicalFailure]
	}

	errorType := msgErrors.ForService(service, mapping.httpStatus)
	if len(messages) == 0 {
		return msgErrors.NewErrorHolder(errorType, msgErrors.NewTppMessage(mapping.code, ""))
	}

	tppMessages := make([]msgErrors.TppMessage, 0, len(messages))
	for _, text := range messages {
		tppMessages = append(tppMessages, msgErrors.NewTppMessage(mapping.code, text))
	}
	return msgErrors.NewErrorHolder(errorType, tppMessages...)
}

// MapFailure is a convenience over MapToErrorHolder for a typed response.
func MapFailure[T any](m ErrorMapper, resp Response[T], service id.ServiceType) msgErrors.ErrorHolder {
	return m.MapToErrorHolder(resp.Status, resp.Messages, service)
}
