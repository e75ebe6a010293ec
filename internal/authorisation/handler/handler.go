// Package handler wires the XS2A authorisation endpoints to the
// authorisation service: the consent, payment and cancellation authorisation
// sub-resources share one handler parameterized by service type.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"xs2a/internal/authorisation"
	"xs2a/internal/spi"
	id "xs2a/pkg/domain"
	dErrors "xs2a/pkg/domain-errors"
	"xs2a/pkg/platform/httputil"
	"xs2a/pkg/requestcontext"
)

// Service defines the authorisation operations the transport needs.
type Service interface {
	CreateAuthorisation(ctx context.Context, serviceType id.ServiceType, resourceID string, psu spi.PsuIdData) (*authorisation.CreateResult, error)
	UpdatePsuData(ctx context.Context, req authorisation.UpdateRequest) (authorisation.Response, error)
	GetScaStatus(ctx context.Context, serviceType id.ServiceType, resourceID string, authorisationID id.AuthorisationID) (id.ScaStatus, error)
	ListAuthorisations(ctx context.Context, serviceType id.ServiceType, resourceID string) ([]*authorisation.Record, error)
	ResolveRedirect(ctx context.Context, redirectID id.RedirectID) (*authorisation.Record, error)
}

// Handler serves the authorisation sub-resource endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs the handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the authorisation endpoint triples for all three services.
func (h *Handler) Register(r chi.Router) {
	h.mount(r, "/v1/consents/{consentId}/authorisations", id.ServiceAIS, "consentId")
	h.mount(r, "/v1/payments/{paymentId}/authorisations", id.ServicePIS, "paymentId")
	h.mount(r, "/v1/payments/{paymentId}/cancellation-authorisations", id.ServicePISCancellation, "paymentId")
	r.Get("/v1/redirect-sessions/{redirectId}", h.handleRedirect)
}

func (h *Handler) mount(r chi.Router, pattern string, service id.ServiceType, resourceParam string) {
	r.Route(pattern, func(r chi.Router) {
		r.Post("/", h.handleStart(service, resourceParam))
		r.Get("/", h.handleList(service, resourceParam))
		r.Route("/{authorisationId}", func(r chi.Router) {
			r.Put("/", h.handleUpdate(service, resourceParam))
			r.Get("/", h.handleStatus(service, resourceParam))
		})
	})
}

func (h *Handler) handleStart(service id.ServiceType, resourceParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := requestcontext.RequestID(ctx)
		start := time.Now()

		resourceID := chi.URLParam(r, resourceParam)
		req, ok := httputil.DecodeAndPrepare[StartAuthorisationRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}

		result, err := h.service.CreateAuthorisation(ctx, service, resourceID, psuFrom(ctx, req.PsuData))
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to start authorisation",
				"request_id", requestID,
				"service_type", service,
				"resource_id", resourceID,
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}

		h.logger.InfoContext(ctx, "authorisation started",
			"request_id", requestID,
			"service_type", service,
			"authorisation_id", result.Record.ID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		httputil.WriteJSON(w, http.StatusCreated, fromCreateResult(result))
	}
}

func (h *Handler) handleUpdate(service id.ServiceType, resourceParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := requestcontext.RequestID(ctx)

		authorisationID, err := id.ParseAuthorisationID(chi.URLParam(r, "authorisationId"))
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "authorisation not found"))
			return
		}
		body, ok := httputil.DecodeAndPrepare[UpdatePsuDataRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}

		resp, err := h.service.UpdatePsuData(ctx, authorisation.UpdateRequest{
			AuthorisationID:        authorisationID,
			ResourceID:             chi.URLParam(r, resourceParam),
			ServiceType:            service,
			Psu:                    psuFrom(ctx, body.PsuData),
			Password:               body.Password,
			AuthenticationMethodID: body.AuthenticationMethodID,
			ScaAuthenticationData:  body.ScaAuthenticationData,
		})
		if err != nil {
			h.logger.ErrorContext(ctx, "authorisation step failed",
				"request_id", requestID,
				"service_type", service,
				"authorisation_id", authorisationID,
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}

		if resp.IsFailure() {
			writeHolder(w, *resp.Error)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, fromStepResponse(resp))
	}
}

func (h *Handler) handleStatus(service id.ServiceType, resourceParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		authorisationID, err := id.ParseAuthorisationID(chi.URLParam(r, "authorisationId"))
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "authorisation not found"))
			return
		}

		status, err := h.service.GetScaStatus(ctx, service, chi.URLParam(r, resourceParam), authorisationID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, ScaStatusResponse{ScaStatus: status.String()})
	}
}

// handleRedirect is the landing point of the redirect SCA approach: the
// online-banking frontend exchanges the short-lived session id for the
// authorisation it belongs to.
func (h *Handler) handleRedirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	redirectID := id.RedirectID(chi.URLParam(r, "redirectId"))
	if redirectID.IsEmpty() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "redirect session not found"))
		return
	}

	record, err := h.service.ResolveRedirect(ctx, redirectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromRedirect(record))
}

func (h *Handler) handleList(service id.ServiceType, resourceParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		records, err := h.service.ListAuthorisations(ctx, service, chi.URLParam(r, resourceParam))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, fromRecords(records))
	}
}
