package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "xs2a/pkg/domain-errors"
)

func TestNewAuthorisationID(t *testing.T) {
	first := NewAuthorisationID()
	second := NewAuthorisationID()

	assert.NotEqual(t, first, second)
	_, err := uuid.Parse(first.String())
	assert.NoError(t, err)
}

func TestParseAuthorisationID(t *testing.T) {
	t.Run("round-trips a generated id", func(t *testing.T) {
		generated := NewAuthorisationID()
		parsed, err := ParseAuthorisationID(generated.String())
		require.NoError(t, err)
		assert.Equal(t, generated, parsed)
	})

	t.Run("rejects empty and non-UUID input", func(t *testing.T) {
		for _, s := range []string{"", "not-a-uuid"} {
			_, err := ParseAuthorisationID(s)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "%q", s)
		}
	})
}

func TestExternalIDParsers(t *testing.T) {
	t.Run("consent and payment ids are opaque", func(t *testing.T) {
		consentID, err := ParseConsentID("cms-consent-42")
		require.NoError(t, err)
		assert.Equal(t, ConsentID("cms-consent-42"), consentID)

		paymentID, err := ParsePaymentID("cms-payment-42")
		require.NoError(t, err)
		assert.Equal(t, PaymentID("cms-payment-42"), paymentID)
	})

	t.Run("empty external ids are rejected", func(t *testing.T) {
		_, err := ParseConsentID("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = ParsePaymentID("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestParseScaApproach(t *testing.T) {
	for _, s := range []string{"EMBEDDED", "REDIRECT", "DECOUPLED"} {
		approach, err := ParseScaApproach(s)
		require.NoError(t, err, s)
		assert.True(t, approach.IsValid())
	}

	_, err := ParseScaApproach("OAUTH")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestParseServiceType(t *testing.T) {
	for _, s := range []string{"AIS", "PIS", "PIS_CANCELLATION", "PIIS"} {
		serviceType, err := ParseServiceType(s)
		require.NoError(t, err, s)
		assert.True(t, serviceType.IsValid())
	}

	_, err := ParseServiceType("SB")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
