package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/invoice"
)

func TestMigrationIndexesCoverUniqueKeys(t *testing.T) {
	indexes := migrationIndexes()

	for _, col := range []string{colInvoices, colEscrows, colPools, colEntries, colProfiles} {
		models, ok := indexes[col]
		require.True(t, ok, "no indexes for %s", col)
		require.NotEmpty(t, models, col)
		assert.NotNil(t, models[0].Options, "%s first index must be unique", col)
	}
}

func TestInvoiceModelMilestones(t *testing.T) {
	done := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	inv := &invoice.Invoice{
		ID:      id.NewInvoiceID(),
		Creator: "alice",
		Number:  "INV-1",
		Amount:  500,
		Asset:   "USDC",
		Status:  invoice.StatusEscrowFunded,
		Milestones: []invoice.Milestone{
			{Description: "one", Amount: 200, Completed: true, CompletedAt: &done},
			{Description: "two", Amount: 300},
		},
		CurrentMilestone: 1,
	}

	got, err := fromInvoiceModel(toInvoiceModel(inv))
	require.NoError(t, err)
	assert.Equal(t, inv.ID.String(), got.ID.String())
	require.Len(t, got.Milestones, 2)
	assert.True(t, got.Milestones[0].Completed)
	assert.True(t, got.Milestones[0].CompletedAt.Equal(done))
	assert.Nil(t, got.Milestones[1].CompletedAt)

	bare, err := fromInvoiceModel(toInvoiceModel(&invoice.Invoice{ID: id.NewInvoiceID()}))
	require.NoError(t, err)
	assert.Nil(t, bare.Milestones)
}
