package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "xs2a/pkg/domain"
	"xs2a/pkg/requestcontext"
)

// TppClaims are the claims carried by a TPP access token. The authorisation
// number is the TPP's registered identifier and becomes the TppID of the
// request.
type TppClaims struct {
	AuthorisationNumber string `json:"authorisation_number"`
	TppName             string `json:"tpp_name,omitempty"`
	jwt.RegisteredClaims
}

// TokenValidator validates a bearer token into TPP claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TppClaims, error)
}

// JWTValidator validates HMAC-signed TPP tokens.
type JWTValidator struct {
	signingKey []byte
}

func NewJWTValidator(signingKey string) *JWTValidator {
	return &JWTValidator{signingKey: []byte(signingKey)}
}

func (v *JWTValidator) ValidateToken(tokenString string) (*TppClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TppClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(*TppClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.AuthorisationNumber == "" {
		return nil, fmt.Errorf("token carries no TPP authorisation number")
	}
	return claims, nil
}

// RequireTpp authenticates the calling TPP and stores its identity in the
// request context. Requests without a valid bearer token get the XS2A
// TOKEN_UNKNOWN error shape.
func RequireTpp(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized request: missing bearer token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized request: invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w)
				return
			}

			ctx = requestcontext.WithTppID(ctx, id.TppID(claims.AuthorisationNumber))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"tppMessages":[{"category":"ERROR","code":"TOKEN_UNKNOWN","text":"The OAuth2 token cannot be matched by the ASPSP relative to the TPP"}]}`))
}
