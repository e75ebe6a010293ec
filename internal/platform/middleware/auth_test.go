package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "xs2a/pkg/domain"
	"xs2a/pkg/requestcontext"
)

const signingKey = "test-signing-key"

func signedToken(t *testing.T, key string, claims TppClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func TestValidateToken(t *testing.T) {
	validator := NewJWTValidator(signingKey)

	t.Run("accepts a valid HMAC token", func(t *testing.T) {
		token := signedToken(t, signingKey, TppClaims{
			AuthorisationNumber: "PSDDE-BAFIN-123456",
			TppName:             "Example TPP",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})

		claims, err := validator.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "PSDDE-BAFIN-123456", claims.AuthorisationNumber)
	})

	t.Run("rejects a token signed with another key", func(t *testing.T) {
		token := signedToken(t, "wrong-key", TppClaims{AuthorisationNumber: "PSDDE-BAFIN-123456"})

		_, err := validator.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		token := signedToken(t, signingKey, TppClaims{
			AuthorisationNumber: "PSDDE-BAFIN-123456",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		})

		_, err := validator.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("rejects a token without an authorisation number", func(t *testing.T) {
		token := signedToken(t, signingKey, TppClaims{})

		_, err := validator.ValidateToken(token)
		assert.Error(t, err)
	})
}

func TestRequireTpp(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validator := NewJWTValidator(signingKey)

	var seenTpp id.TppID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenTpp = requestcontext.TppID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	protected := RequireTpp(validator, logger)(next)

	t.Run("stores the TPP identity in the context", func(t *testing.T) {
		token := signedToken(t, signingKey, TppClaims{AuthorisationNumber: "PSDDE-BAFIN-123456"})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, id.TppID("PSDDE-BAFIN-123456"), seenTpp)
	})

	t.Run("a missing bearer token is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "TOKEN_UNKNOWN")
	})

	t.Run("a garbage token is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not.a.jwt")
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
