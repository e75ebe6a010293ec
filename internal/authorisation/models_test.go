package authorisation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "xs2a/pkg/domain"
	dErrors "xs2a/pkg/domain-errors"
	msgErrors "xs2a/pkg/message-errors"
	"xs2a/pkg/platform/sentinel"
)

var testNow = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

func TestNewRecord(t *testing.T) {
	t.Run("starts in received", func(t *testing.T) {
		record, err := NewRecord(id.ServiceAIS, "consent-1", id.ScaApproachEmbedded, testNow.Add(time.Hour), testNow)
		require.NoError(t, err)
		assert.NotEmpty(t, record.ID)
		assert.Equal(t, id.ScaStatusReceived, record.ScaStatus)
		assert.Equal(t, "consent-1", record.ResourceID)
		assert.Equal(t, testNow, record.CreatedAt)
		assert.Equal(t, testNow, record.UpdatedAt)
	})

	t.Run("rejects invalid inputs", func(t *testing.T) {
		for name, build := range map[string]func() (*Record, error){
			"service type": func() (*Record, error) {
				return NewRecord(id.ServiceType("wire"), "consent-1", id.ScaApproachEmbedded, time.Time{}, testNow)
			},
			"resource id": func() (*Record, error) {
				return NewRecord(id.ServiceAIS, "", id.ScaApproachEmbedded, time.Time{}, testNow)
			},
			"approach": func() (*Record, error) {
				return NewRecord(id.ServiceAIS, "consent-1", id.ScaApproach("carrier-pigeon"), time.Time{}, testNow)
			},
		} {
			t.Run(name, func(t *testing.T) {
				record, err := build()
				assert.Nil(t, record)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			})
		}
	})
}

func TestApplyStatus(t *testing.T) {
	newReceived := func(t *testing.T) *Record {
		t.Helper()
		record, err := NewRecord(id.ServicePIS, "payment-1", id.ScaApproachEmbedded, time.Time{}, testNow)
		require.NoError(t, err)
		return record
	}

	t.Run("forward edges advance and stamp the update time", func(t *testing.T) {
		record := newReceived(t)
		later := testNow.Add(time.Minute)

		require.NoError(t, record.ApplyStatus(id.ScaStatusPsuIdentified, later))
		assert.Equal(t, id.ScaStatusPsuIdentified, record.ScaStatus)
		assert.Equal(t, later, record.UpdatedAt)

		require.NoError(t, record.ApplyStatus(id.ScaStatusPsuAuthenticated, later))
		require.NoError(t, record.ApplyStatus(id.ScaStatusScaMethodSelected, later))
		require.NoError(t, record.ApplyStatus(id.ScaStatusFinalised, later))
	})

	t.Run("backward edges are rejected", func(t *testing.T) {
		record := newReceived(t)
		require.NoError(t, record.ApplyStatus(id.ScaStatusPsuAuthenticated, testNow))

		err := record.ApplyStatus(id.ScaStatusPsuIdentified, testNow)
		require.Error(t, err)
		assert.True(t, errors.Is(err, sentinel.ErrInvalidTransition))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		assert.Equal(t, id.ScaStatusPsuAuthenticated, record.ScaStatus)
	})

	t.Run("terminal records are read-only", func(t *testing.T) {
		record := newReceived(t)
		require.NoError(t, record.ApplyStatus(id.ScaStatusFailed, testNow))

		err := record.ApplyStatus(id.ScaStatusReceived, testNow)
		require.Error(t, err)
		assert.True(t, errors.Is(err, sentinel.ErrTerminal))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestSetAuthenticationData(t *testing.T) {
	record, err := NewRecord(id.ServiceAIS, "consent-1", id.ScaApproachEmbedded, time.Time{}, testNow)
	require.NoError(t, err)

	require.NoError(t, record.SetAuthenticationData("123456"))
	assert.Equal(t, "123456", record.AuthenticationData())

	err = record.SetAuthenticationData("654321")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	assert.Equal(t, "123456", record.AuthenticationData())
}

func TestSetRedirectExpiry(t *testing.T) {
	record, err := NewRecord(id.ServiceAIS, "consent-1", id.ScaApproachRedirect, time.Time{}, testNow)
	require.NoError(t, err)

	expiry := testNow.Add(10 * time.Minute)
	require.NoError(t, record.SetRedirectExpiry(expiry))
	assert.Equal(t, expiry, record.RedirectURLExpiresAt)

	err = record.SetRedirectExpiry(expiry.Add(time.Hour))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	assert.Equal(t, expiry, record.RedirectURLExpiresAt)
}

func TestIsExpiredAt(t *testing.T) {
	record, err := NewRecord(id.ServiceAIS, "consent-1", id.ScaApproachEmbedded, testNow.Add(time.Hour), testNow)
	require.NoError(t, err)

	assert.False(t, record.IsExpiredAt(testNow))
	assert.True(t, record.IsExpiredAt(testNow.Add(2*time.Hour)))

	record.ExpiresAt = time.Time{}
	assert.False(t, record.IsExpiredAt(testNow.Add(100*time.Hour)))
}

func TestFailedResponse(t *testing.T) {
	req := UpdateRequest{AuthorisationID: "auth-1", ResourceID: "payment-1", ServiceType: id.ServicePIS}
	holder := msgErrors.NewErrorHolder(msgErrors.PIS400,
		msgErrors.NewTppMessage(msgErrors.CodeFormatError, "password is required"))

	resp := Failed(req, holder)
	assert.True(t, resp.IsFailure())
	assert.Equal(t, id.ScaStatusFailed, resp.ScaStatus)
	assert.Equal(t, req.ResourceID, resp.ResourceID)
	assert.Equal(t, req.AuthorisationID, resp.AuthorisationID)
	assert.Equal(t, holder.Message(), resp.PsuMessage)
}
