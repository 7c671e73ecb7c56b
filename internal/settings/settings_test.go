package settings

import (
	"context"
	"testing"

	"dholratri-tickets/internal/database/dbtest"
	"dholratri-tickets/internal/models"
	"dholratri-tickets/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	return NewService(NewStore(dbtest.New(t)), utils.NewValidator())
}

func TestGetBeforeSetup(t *testing.T) {
	_, err := newTestService(t).Get(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateUpsertsSingleton(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	qr := "https://media.local/dholratri-config/payment-qr-code"
	_, err := svc.Update(ctx, models.SettingsUpdate{
		EventName:    "DholRatri 2025",
		PaymentUpiID: "dholratri@upi",
		PaymentQrURL: &qr,
		Tiers: []models.Tier{
			{ID: "solo", Name: "Solo Pass", Price: 499},
			{ID: "couple", Name: "Couple Pass", Price: 899, GroupSize: 2, Perks: []string{"Priority entry"}},
		},
	})
	require.NoError(t, err)

	// second save without a new QR keeps the old URL
	st, err := svc.Update(ctx, models.SettingsUpdate{
		EventName:    "DholRatri 2025 Finale",
		PaymentUpiID: "dholratri@upi",
		Tiers:        []models.Tier{{ID: "solo", Name: "Solo Pass", Price: 549}},
	})
	require.NoError(t, err)

	assert.Equal(t, models.SettingsID, st.ID)
	assert.Equal(t, "DholRatri 2025 Finale", st.EventName)
	require.NotNil(t, st.PaymentQrURL)
	assert.Equal(t, qr, *st.PaymentQrURL)
	require.Len(t, st.Tiers, 1)
	assert.Equal(t, 549.0, st.Tiers[0].Price)

	count, err := svc.Store.db.NewSelect().Model((*models.Settings)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpdateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, models.SettingsUpdate{PaymentUpiID: "x@upi"})
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), `"eventName"`)

	_, err = svc.Update(ctx, models.SettingsUpdate{
		EventName: "E", PaymentUpiID: "x@upi",
		Tiers: []models.Tier{{ID: "solo", Name: "A"}, {ID: "solo", Name: "B"}},
	})
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "duplicate tier id")

	_, err = svc.Update(ctx, models.SettingsUpdate{
		EventName: "E", PaymentUpiID: "x@upi",
		Tiers: []models.Tier{{ID: "solo", Name: "A", Price: -1}},
	})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseTiers(t *testing.T) {
	tiers, err := ParseTiers(`[{"id":"group","name":"Group of 5","price":2000,"groupSize":5}]`)
	require.NoError(t, err)
	require.Len(t, tiers, 1)
	assert.Equal(t, 5, tiers[0].GroupSize)

	_, err = ParseTiers(`not json`)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = ParseTiers(`{"id":"solo"}`)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = ParseTiers("")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseTiersFromAdminForm(t *testing.T) {
	// the admin form keeps perks as free text and the price input's string value
	tiers, err := ParseTiers(`[
		{"id":"general","name":"General","price":500,"perks":"Perk 1, Perk 2"},
		{"id":"vip","name":"VIP","price":"1200","perks":" Front row ,, Welcome drink "},
		{"id":"free","name":"Free","price":"","perks":""}
	]`)
	require.NoError(t, err)
	require.Len(t, tiers, 3)

	assert.Equal(t, []string{"Perk 1", "Perk 2"}, tiers[0].Perks)
	assert.Equal(t, 500.0, tiers[0].Price)
	assert.Equal(t, []string{"Front row", "Welcome drink"}, tiers[1].Perks)
	assert.Equal(t, 1200.0, tiers[1].Price)
	assert.Empty(t, tiers[2].Perks)
	assert.Zero(t, tiers[2].Price)

	_, err = ParseTiers(`[{"id":"vip","name":"VIP","price":"lots"}]`)
	assert.ErrorIs(t, err, ErrInvalid)
}
