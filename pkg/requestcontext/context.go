// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets values (PSU headers, TPP identity, request id, request
// time); services read them without importing net/http. Tests inject fixed
// values, in particular a fixed clock via WithTime.
package requestcontext

import (
	"context"
	"time"

	id "xs2a/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	psuIDKey          struct{}
	psuIDTypeKey      struct{}
	psuCorporateIDKey struct{}
	tppIDKey          struct{}
	requestIDKey      struct{}
	requestTimeKey    struct{}
)

// WithPsuID stores the PSU-ID header value.
func WithPsuID(ctx context.Context, psuID id.PsuID) context.Context {
	return context.WithValue(ctx, psuIDKey{}, psuID)
}

// PsuID returns the PSU id, or the zero value when not identified.
func PsuID(ctx context.Context) id.PsuID {
	v, _ := ctx.Value(psuIDKey{}).(id.PsuID)
	return v
}

// WithPsuIDType stores the PSU-ID-Type header value.
func WithPsuIDType(ctx context.Context, idType string) context.Context {
	return context.WithValue(ctx, psuIDTypeKey{}, idType)
}

// PsuIDType returns the PSU id type, or "".
func PsuIDType(ctx context.Context) string {
	v, _ := ctx.Value(psuIDTypeKey{}).(string)
	return v
}

// WithPsuCorporateID stores the PSU-Corporate-ID header value.
func WithPsuCorporateID(ctx context.Context, corporateID string) context.Context {
	return context.WithValue(ctx, psuCorporateIDKey{}, corporateID)
}

// PsuCorporateID returns the PSU corporate id, or "".
func PsuCorporateID(ctx context.Context) string {
	v, _ := ctx.Value(psuCorporateIDKey{}).(string)
	return v
}

// WithTppID stores the authenticated TPP's authorisation number.
func WithTppID(ctx context.Context, tppID id.TppID) context.Context {
	return context.WithValue(ctx, tppIDKey{}, tppID)
}

// TppID returns the TPP id, or the zero value when unauthenticated.
func TppID(ctx context.Context) id.TppID {
	v, _ := ctx.Value(tppIDKey{}).(id.TppID)
	return v
}

// WithRequestID stores the correlation id for the request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the correlation id, or "".
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// WithTime pins the request time. Middleware sets it once per request so all
// expiry checks within one authorisation step agree on "now"; tests use it as
// a fixed clock.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now returns the pinned request time, falling back to the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
