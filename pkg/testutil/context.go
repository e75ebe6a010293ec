package testutil

import (
	"net/http"
	"time"

	id "xs2a/pkg/domain"
	"xs2a/pkg/requestcontext"
)

// WithTpp stamps the authenticated TPP onto the request context, simulating
// what the auth middleware does after validating the bearer token.
func WithTpp(req *http.Request, tppID string) *http.Request {
	ctx := requestcontext.WithTppID(req.Context(), id.TppID(tppID))
	return req.WithContext(ctx)
}

// WithPsu stamps the PSU identification headers' context values onto the
// request, as the request-context middleware would.
func WithPsu(req *http.Request, psuID string) *http.Request {
	ctx := requestcontext.WithPsuID(req.Context(), id.PsuID(psuID))
	return req.WithContext(ctx)
}

// WithRequestID stamps a fixed correlation id onto the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	ctx := requestcontext.WithRequestID(req.Context(), requestID)
	return req.WithContext(ctx)
}

// WithFixedTime pins the request clock, so expiry checks in the handler
// chain are deterministic.
func WithFixedTime(req *http.Request, t time.Time) *http.Request {
	ctx := requestcontext.WithTime(req.Context(), t)
	return req.WithContext(ctx)
}
