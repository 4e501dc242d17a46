package tenancy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsScanAndValue(t *testing.T) {
	trial := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	in := Settings{Currency: "USD", Language: "en", TrialEndsAt: &trial}

	v, err := in.Value()
	require.NoError(t, err)

	var out Settings
	require.NoError(t, out.Scan(v))
	assert.Equal(t, "USD", out.Currency)
	require.NotNil(t, out.TrialEndsAt)
	assert.True(t, trial.Equal(*out.TrialEndsAt))

	require.NoError(t, out.Scan(nil))
	assert.Equal(t, Settings{}, out)

	require.NoError(t, out.Scan(`{"language":"tr"}`))
	assert.Equal(t, "tr", out.Language)

	assert.Error(t, out.Scan(42))
}

func TestValidateID(t *testing.T) {
	id, err := ValidateID("11111111-1111-1111-1111-111111111111")
	require.NoError(t, err)
	assert.Equal(t, tenantA, id)

	_, err = ValidateID("")
	assert.ErrorIs(t, err, ErrInvalidID)
}
