package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "xs2a/pkg/domain-errors"
)

func TestParseScaStatus(t *testing.T) {
	t.Run("accepts every vocabulary value", func(t *testing.T) {
		for _, s := range []string{
			"received", "psuIdentified", "psuAuthenticated", "scaMethodSelected",
			"started", "unconfirmed", "finalised", "failed", "exempted",
		} {
			status, err := ParseScaStatus(s)
			require.NoError(t, err, s)
			assert.Equal(t, s, status.String())
		}
	})

	t.Run("rejects empty and unknown values", func(t *testing.T) {
		for _, s := range []string{"", "FINALISED", "done"} {
			_, err := ParseScaStatus(s)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "%q", s)
		}
	})
}

func TestScaStatusIsTerminal(t *testing.T) {
	terminal := []ScaStatus{ScaStatusFinalised, ScaStatusFailed, ScaStatusExempted}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), s)
	}
	open := []ScaStatus{
		ScaStatusReceived, ScaStatusPsuIdentified, ScaStatusPsuAuthenticated,
		ScaStatusScaMethodSelected, ScaStatusStarted, ScaStatusUnconfirmed,
	}
	for _, s := range open {
		assert.False(t, s.IsTerminal(), s)
	}
}

func TestCanTransitionTo(t *testing.T) {
	t.Run("walks the embedded path forward", func(t *testing.T) {
		assert.True(t, ScaStatusReceived.CanTransitionTo(ScaStatusPsuIdentified))
		assert.True(t, ScaStatusPsuIdentified.CanTransitionTo(ScaStatusPsuAuthenticated))
		assert.True(t, ScaStatusPsuAuthenticated.CanTransitionTo(ScaStatusScaMethodSelected))
		assert.True(t, ScaStatusScaMethodSelected.CanTransitionTo(ScaStatusFinalised))
	})

	t.Run("a single method shortcuts authentication to finalised", func(t *testing.T) {
		assert.True(t, ScaStatusPsuAuthenticated.CanTransitionTo(ScaStatusFinalised))
	})

	t.Run("exemption leaves from the authentication stages only", func(t *testing.T) {
		assert.True(t, ScaStatusReceived.CanTransitionTo(ScaStatusExempted))
		assert.True(t, ScaStatusPsuIdentified.CanTransitionTo(ScaStatusExempted))
		assert.True(t, ScaStatusPsuAuthenticated.CanTransitionTo(ScaStatusExempted))
		assert.False(t, ScaStatusScaMethodSelected.CanTransitionTo(ScaStatusExempted))
		assert.False(t, ScaStatusUnconfirmed.CanTransitionTo(ScaStatusExempted))
	})

	t.Run("every open status may fail", func(t *testing.T) {
		for _, s := range []ScaStatus{
			ScaStatusReceived, ScaStatusPsuIdentified, ScaStatusPsuAuthenticated,
			ScaStatusScaMethodSelected, ScaStatusStarted, ScaStatusUnconfirmed,
		} {
			assert.True(t, s.CanTransitionTo(ScaStatusFailed), s)
		}
	})

	t.Run("re-applying the current status is allowed", func(t *testing.T) {
		assert.True(t, ScaStatusPsuIdentified.CanTransitionTo(ScaStatusPsuIdentified))
	})

	t.Run("backward edges are rejected", func(t *testing.T) {
		assert.False(t, ScaStatusPsuAuthenticated.CanTransitionTo(ScaStatusPsuIdentified))
		assert.False(t, ScaStatusScaMethodSelected.CanTransitionTo(ScaStatusReceived))
	})

	t.Run("terminal statuses accept nothing", func(t *testing.T) {
		for _, s := range []ScaStatus{ScaStatusFinalised, ScaStatusFailed, ScaStatusExempted} {
			assert.False(t, s.CanTransitionTo(ScaStatusReceived), s)
			assert.False(t, s.CanTransitionTo(ScaStatusFailed), s)
			assert.False(t, s.CanTransitionTo(s), s)
		}
	})

	t.Run("a confirmation step sits between selection and finalised", func(t *testing.T) {
		assert.True(t, ScaStatusScaMethodSelected.CanTransitionTo(ScaStatusUnconfirmed))
		assert.True(t, ScaStatusUnconfirmed.CanTransitionTo(ScaStatusFinalised))
		assert.False(t, ScaStatusUnconfirmed.CanTransitionTo(ScaStatusScaMethodSelected))
	})
}
