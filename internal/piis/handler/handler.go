// Package handler serves the PIIS funds-confirmation endpoint.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"xs2a/internal/piis"
	id "xs2a/pkg/domain"
	dErrors "xs2a/pkg/domain-errors"
	msgErrors "xs2a/pkg/message-errors"
	"xs2a/pkg/platform/httputil"
	"xs2a/pkg/requestcontext"
)

// Service defines the funds-confirmation operation the transport needs.
type Service interface {
	ConfirmFunds(ctx context.Context, req piis.Request) (piis.Response, error)
}

// Handler serves POST /v1/funds-confirmations.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the funds-confirmation endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/funds-confirmations", h.HandleConfirmFunds)
}

// FundsConfirmationRequest is the XS2A funds-confirmation body.
type FundsConfirmationRequest struct {
	ConsentID string `json:"consentId"`
	Account   struct {
		IBAN string `json:"iban"`
	} `json:"account"`
	InstructedAmount struct {
		Currency string `json:"currency"`
		Amount   string `json:"amount"`
	} `json:"instructedAmount"`
}

// Validate trims the fields; presence checks stay in the service so the
// failure renders in the XS2A error shape.
func (r *FundsConfirmationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.ConsentID = strings.TrimSpace(r.ConsentID)
	r.Account.IBAN = strings.TrimSpace(r.Account.IBAN)
	r.InstructedAmount.Currency = strings.TrimSpace(r.InstructedAmount.Currency)
	r.InstructedAmount.Amount = strings.TrimSpace(r.InstructedAmount.Amount)
	return nil
}

// FundsConfirmationResponse answers the availability question.
type FundsConfirmationResponse struct {
	FundsAvailable bool `json:"fundsAvailable"`
}

// HandleConfirmFunds handles POST /v1/funds-confirmations.
func (h *Handler) HandleConfirmFunds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, ok := httputil.DecodeAndPrepare[FundsConfirmationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	resp, err := h.service.ConfirmFunds(ctx, piis.Request{
		ConsentID:   id.ConsentID(body.ConsentID),
		AccountIBAN: body.Account.IBAN,
		Amount:      body.InstructedAmount.Amount,
		Currency:    body.InstructedAmount.Currency,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "funds confirmation failed",
			"request_id", requestID,
			"consent_id", body.ConsentID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	if resp.IsFailure() {
		writeHolder(w, *resp.Error)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FundsConfirmationResponse{FundsAvailable: resp.FundsAvailable})
}

func writeHolder(w http.ResponseWriter, holder msgErrors.ErrorHolder) {
	type tppMessage struct {
		Category string `json:"category"`
		Code     string `json:"code"`
		Text     string `json:"text,omitempty"`
	}
	messages := make([]tppMessage, 0, len(holder.Messages))
	for _, m := range holder.Messages {
		messages = append(messages, tppMessage{Category: "ERROR", Code: string(m.Code), Text: m.Text})
	}
	httputil.WriteJSON(w, holder.ErrorType.HTTPStatus(), map[string]any{"tppMessages": messages})
}
