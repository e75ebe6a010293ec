package handler

import (
	"context"
	"strings"

	"xs2a/internal/spi"
	id "xs2a/pkg/domain"
	dErrors "xs2a/pkg/domain-errors"
	"xs2a/pkg/requestcontext"
)

// PsuData mirrors the XS2A psuData body object.
type PsuData struct {
	PsuID          string `json:"psuId"`
	PsuIDType      string `json:"psuIdType,omitempty"`
	PsuCorporateID string `json:"psuCorporateId,omitempty"`
}

// StartAuthorisationRequest is the (optional) body of a POST that opens an
// authorisation sub-resource.
type StartAuthorisationRequest struct {
	PsuData *PsuData `json:"psuData,omitempty"`
}

// Validate implements httputil.Validatable; an empty body is a valid start.
func (r *StartAuthorisationRequest) Validate() error {
	return nil
}

// UpdatePsuDataRequest is the body of a PUT advancing an authorisation. The
// XS2A interface allows exactly one step payload per call.
type UpdatePsuDataRequest struct {
	PsuData                *PsuData `json:"psuData,omitempty"`
	Password               string   `json:"password,omitempty"`
	AuthenticationMethodID string   `json:"authenticationMethodId,omitempty"`
	ScaAuthenticationData  string   `json:"scaAuthenticationData,omitempty"`
}

// Validate rejects bodies mixing several step payloads.
func (r *UpdatePsuDataRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Password = strings.TrimSpace(r.Password)
	r.AuthenticationMethodID = strings.TrimSpace(r.AuthenticationMethodID)
	r.ScaAuthenticationData = strings.TrimSpace(r.ScaAuthenticationData)

	steps := 0
	if r.Password != "" {
		steps++
	}
	if r.AuthenticationMethodID != "" {
		steps++
	}
	if r.ScaAuthenticationData != "" {
		steps++
	}
	if steps > 1 {
		return dErrors.New(dErrors.CodeValidation, "request must carry exactly one authorisation step payload")
	}
	return nil
}

// psu builds the PSU identity from the body, falling back to the PSU headers
// the middleware stored in the context.
func psuFrom(ctx context.Context, body *PsuData) spi.PsuIdData {
	if body != nil && body.PsuID != "" {
		return spi.PsuIdData{
			PsuID:          id.PsuID(body.PsuID),
			PsuIDType:      body.PsuIDType,
			PsuCorporateID: body.PsuCorporateID,
		}
	}
	return spi.PsuIdData{
		PsuID:          requestcontext.PsuID(ctx),
		PsuIDType:      requestcontext.PsuIDType(ctx),
		PsuCorporateID: requestcontext.PsuCorporateID(ctx),
	}
}
