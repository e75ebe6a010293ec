// Package middleware carries the chi middleware of the XS2A transport: TPP
// authentication, request-context propagation and request metrics.
package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	id "xs2a/pkg/domain"
	"xs2a/pkg/requestcontext"
)

// RequestContext propagates the XS2A request headers into the context: the
// X-Request-ID correlation id (generated when absent), the PSU identity
// headers, and the pinned request time so all expiry checks within one step
// agree on "now".
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		if psuID := r.Header.Get("PSU-ID"); psuID != "" {
			ctx = requestcontext.WithPsuID(ctx, id.PsuID(psuID))
		}
		if psuIDType := r.Header.Get("PSU-ID-Type"); psuIDType != "" {
			ctx = requestcontext.WithPsuIDType(ctx, psuIDType)
		}
		if corporateID := r.Header.Get("PSU-Corporate-ID"); corporateID != "" {
			ctx = requestcontext.WithPsuCorporateID(ctx, corporateID)
		}

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
