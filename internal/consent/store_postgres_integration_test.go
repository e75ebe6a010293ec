//go:build integration

package consent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xs2a/internal/platform/migrate"
	id "xs2a/pkg/domain"
	"xs2a/pkg/platform/sentinel"
	"xs2a/pkg/requestcontext"
	"xs2a/pkg/testutil"
	"xs2a/pkg/testutil/containers"
)

func TestPostgresStoreIntegration(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	require.NoError(t, migrate.Up(pg.DSN, "../../migrations"))

	store := NewPostgres(pg.DB)
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	save := func(t *testing.T, consentID id.ConsentID, recurring bool) {
		require.NoError(t, store.Save(ctx, &AccountConsent{
			ID:              consentID,
			TppID:           "tpp-1",
			PsuIDs:          []id.PsuID{"psu-1"},
			Status:          StatusReceived,
			Recurring:       recurring,
			FrequencyPerDay: 4,
			ValidUntil:      now.Add(24 * time.Hour),
			CreatedAt:       now,
			StatusChangedAt: now,
		}))
	}

	testutil.Given(t, "a persisted consent", func(t *testing.T) {
		save(t, "consent-int-1", true)

		testutil.Then(t, "it reads back field for field", func(t *testing.T) {
			got, err := store.FindByID(ctx, "consent-int-1")
			require.NoError(t, err)
			assert.Equal(t, id.TppID("tpp-1"), got.TppID)
			assert.Equal(t, []id.PsuID{"psu-1"}, got.PsuIDs)
			assert.Equal(t, StatusReceived, got.Status)
			assert.True(t, got.Recurring)
			assert.Equal(t, 4, got.FrequencyPerDay)
			assert.WithinDuration(t, now.Add(24*time.Hour), got.ValidUntil, time.Second)
		})

		testutil.When(t, "its status and multilevel flag change", func(t *testing.T) {
			require.NoError(t, store.UpdateStatus(ctx, "consent-int-1", StatusValid))
			require.NoError(t, store.UpdateMultilevelScaRequired(ctx, "consent-int-1", true))

			got, err := store.FindByID(ctx, "consent-int-1")
			require.NoError(t, err)
			assert.Equal(t, StatusValid, got.Status)
			assert.True(t, got.MultilevelScaRequired)
		})
	})

	testutil.Given(t, "an unknown consent id", func(t *testing.T) {
		_, err := store.FindByID(ctx, "consent-int-missing")
		assert.True(t, errors.Is(err, sentinel.ErrNotFound))

		assert.Error(t, store.UpdateStatus(ctx, "consent-int-missing", StatusValid))
	})

	testutil.Given(t, "an older consent of the same TPP and PSU", func(t *testing.T) {
		save(t, "consent-int-new", true)

		testutil.Then(t, "the new consent sees it as superseded", func(t *testing.T) {
			old, err := store.FindOldConsents(ctx, "consent-int-new")
			require.NoError(t, err)
			require.Len(t, old, 1)
			assert.Equal(t, id.ConsentID("consent-int-1"), old[0].ID)
		})
	})
}
