package handler

import (
	"net/http"

	"xs2a/internal/authorisation"
	"xs2a/internal/spi"
	msgErrors "xs2a/pkg/message-errors"
	"xs2a/pkg/platform/httputil"
)

// StartAuthorisationResponse is the body returned when an authorisation
// sub-resource was opened.
type StartAuthorisationResponse struct {
	AuthorisationID string `json:"authorisationId"`
	ScaStatus       string `json:"scaStatus"`
	ScaApproach     string `json:"scaApproach"`

	// RedirectID is present only for the redirect approach.
	RedirectID string `json:"redirectId,omitempty"`
}

// UpdatePsuDataResponse is the body of a successful authorisation step.
type UpdatePsuDataResponse struct {
	ScaStatus       string                     `json:"scaStatus"`
	AuthorisationID string                     `json:"authorisationId"`
	ScaMethods      []spi.AuthenticationObject `json:"scaMethods,omitempty"`
	ChosenScaMethod *spi.AuthenticationObject  `json:"chosenScaMethod,omitempty"`
	ChallengeData   *spi.ChallengeData         `json:"challengeData,omitempty"`
	PsuMessage      string                     `json:"psuMessage,omitempty"`
}

// ScaStatusResponse answers a GET on the authorisation sub-resource.
type ScaStatusResponse struct {
	ScaStatus string `json:"scaStatus"`
}

// AuthorisationListResponse lists the authorisation sub-resources of one
// consent or payment.
type AuthorisationListResponse struct {
	AuthorisationIDs []string `json:"authorisationIds"`
}

// RedirectSessionResponse tells the online-banking frontend which
// authorisation a redirect session belongs to.
type RedirectSessionResponse struct {
	AuthorisationID string `json:"authorisationId"`
	ServiceType     string `json:"serviceType"`
	ResourceID      string `json:"resourceId"`
	ScaStatus       string `json:"scaStatus"`
}

// TppMessage is the wire form of one coded message.
type TppMessage struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Text     string `json:"text,omitempty"`
}

// ErrorResponse is the XS2A tppMessages error shape.
type ErrorResponse struct {
	TppMessages []TppMessage `json:"tppMessages"`
}

func fromCreateResult(result *authorisation.CreateResult) StartAuthorisationResponse {
	return StartAuthorisationResponse{
		AuthorisationID: result.Record.ID.String(),
		ScaStatus:       result.Record.ScaStatus.String(),
		ScaApproach:     result.Record.ScaApproach.String(),
		RedirectID:      result.RedirectID.String(),
	}
}

func fromStepResponse(resp authorisation.Response) UpdatePsuDataResponse {
	return UpdatePsuDataResponse{
		ScaStatus:       resp.ScaStatus.String(),
		AuthorisationID: resp.AuthorisationID.String(),
		ScaMethods:      resp.AvailableMethods,
		ChosenScaMethod: resp.ChosenScaMethod,
		ChallengeData:   resp.Challenge,
		PsuMessage:      resp.PsuMessage,
	}
}

func fromRecords(records []*authorisation.Record) AuthorisationListResponse {
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ID.String())
	}
	return AuthorisationListResponse{AuthorisationIDs: ids}
}

func fromRedirect(record *authorisation.Record) RedirectSessionResponse {
	return RedirectSessionResponse{
		AuthorisationID: record.ID.String(),
		ServiceType:     record.ServiceType.String(),
		ResourceID:      record.ResourceID,
		ScaStatus:       record.ScaStatus.String(),
	}
}

// writeHolder renders a protocol failure as the XS2A tppMessages shape at the
// error type's HTTP status.
func writeHolder(w http.ResponseWriter, holder msgErrors.ErrorHolder) {
	messages := make([]TppMessage, 0, len(holder.Messages))
	for _, m := range holder.Messages {
		messages = append(messages, TppMessage{
			Category: "ERROR",
			Code:     string(m.Code),
			Text:     m.Text,
		})
	}
	httputil.WriteJSON(w, holder.ErrorType.HTTPStatus(), ErrorResponse{TppMessages: messages})
}
