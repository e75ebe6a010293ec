package spi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "xs2a/pkg/domain"
	msgErrors "xs2a/pkg/message-errors"
)

func TestMapToErrorHolder(t *testing.T) {
	mapper := NewErrorMapper()

	for _, tc := range []struct {
		name     string
		status   Status
		service  id.ServiceType
		wantType msgErrors.ErrorType
		wantCode msgErrors.MessageCode
	}{
		{"logical failure is a format error", StatusLogicalFailure, id.ServiceAIS, msgErrors.AIS400, msgErrors.CodeFormatError},
		{"unauthorized failure rejects the credentials", StatusUnauthorizedFailure, id.ServiceAIS, msgErrors.AIS401, msgErrors.CodePsuCredentialsInvalid},
		{"unsupported operation blocks the service", StatusNotSupported, id.ServicePIS, msgErrors.PIS400, msgErrors.CodeServiceBlocked},
		{"technical failure is internal", StatusTechnicalFailure, id.ServicePIS, msgErrors.PIS500, msgErrors.CodeInternalServerError},
		{"unknown category falls back to internal", Status("EXOTIC"), id.ServiceAIS, msgErrors.AIS500, msgErrors.CodeInternalServerError},
	} {
		t.Run(tc.name, func(t *testing.T) {
			holder := mapper.MapToErrorHolder(tc.status, nil, tc.service)
			assert.Equal(t, tc.wantType, holder.ErrorType)
			require.Len(t, holder.Messages, 1)
			assert.Equal(t, tc.wantCode, holder.Messages[0].Code)
		})
	}

	t.Run("carries every adapter message", func(t *testing.T) {
		holder := mapper.MapToErrorHolder(StatusLogicalFailure, []string{"iban malformed", "amount missing"}, id.ServicePIS)
		require.Len(t, holder.Messages, 2)
		assert.Equal(t, "iban malformed", holder.Messages[0].Text)
		assert.Equal(t, "amount missing", holder.Messages[1].Text)
		assert.Equal(t, "iban malformed, amount missing", holder.Message())
	})
}

func TestMapFailure(t *testing.T) {
	mapper := NewErrorMapper()
	resp := Failure[AuthorisePsuResponse](StatusUnauthorizedFailure, "wrong password")

	holder := MapFailure(mapper, resp, id.ServicePISCancellation)
	assert.Equal(t, msgErrors.PIS401, holder.ErrorType)
	assert.Equal(t, "wrong password", holder.Messages[0].Text)
}
