package subscription

import (
	"testing"
	"time"

	"github.com/bizflow/bizgate/pkg/plans"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCreditType(t *testing.T) {
	ct, err := ParseCreditType("ocr")
	require.NoError(t, err)
	assert.Equal(t, CreditOCR, ct)
	assert.Equal(t, plans.FeatureOCR, ct.Feature())

	ct, err = ParseCreditType("e_fatura")
	require.NoError(t, err)
	assert.Equal(t, plans.FeatureEFatura, ct.Feature())

	_, err = ParseCreditType("sms")
	assert.ErrorIs(t, err, ErrUnknownCreditType)
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusCancelled.Valid())
	assert.False(t, Status("paused").Valid())
}

func TestSnapshot_EffectivePlan(t *testing.T) {
	past := fixedNow.Add(-time.Hour)
	future := fixedNow.Add(time.Hour)

	tests := []struct {
		name string
		sub  Subscription
		want plans.PlanName
	}{
		{"active", Subscription{PlanName: plans.PlanOrta, Status: StatusActive}, plans.PlanOrta},
		{"lowercase name", Subscription{PlanName: "orta", Status: StatusActive}, plans.PlanOrta},
		{"cancelled before expiry", Subscription{PlanName: plans.PlanBuyuk, Status: StatusCancelled, ExpiresAt: &future}, plans.PlanBuyuk},
		{"expired status", Subscription{PlanName: plans.PlanBuyuk, Status: StatusExpired}, plans.PlanFree},
		{"lapsed expiry", Subscription{PlanName: plans.PlanKucuk, Status: StatusActive, ExpiresAt: &past}, plans.PlanFree},
		{"unknown plan kept", Subscription{PlanName: "LEGACY_PRO", Status: StatusActive}, "LEGACY_PRO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &Snapshot{Subscription: tt.sub}
			assert.Equal(t, tt.want, snap.EffectivePlan(fixedNow))
		})
	}
}

func TestSnapshot_WithCreditsCopies(t *testing.T) {
	orig := &Snapshot{Credits: Credits{OCR: 2, EFatura: 2}}
	next := orig.withCredits(CreditEFatura, 1)

	assert.Equal(t, 2, orig.Credits.EFatura)
	assert.Equal(t, 1, next.Credits.EFatura)
	assert.Equal(t, 2, next.Credits.OCR)
}

func TestBuildSnapshot_UnknownPlanHasNoDisplayRecord(t *testing.T) {
	sub := &Subscription{UserID: alice, PlanName: "LEGACY_PRO", Status: StatusActive}
	snap := buildSnapshot(alice, sub, plans.DefaultCatalog().Plans, nil, 5, fixedNow)
	assert.Nil(t, snap.Plan)
	assert.False(t, snap.SubscriptionDefaulted)
	assert.True(t, snap.CreditsDefaulted)
}
