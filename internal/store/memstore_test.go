package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicware/booking-ledger/internal/clinic"
)

// Loads must hand out copies: mutating a loaded day must not leak into the
// store until it is saved back, mirroring the file store's behavior.
func TestMemStoreLoadsAreCopies(t *testing.T) {
	ctx := context.Background()
	mem := NewMemStore(nil, nil)
	date, err := clinic.ParseDate("20/06/2025")
	require.NoError(t, err)

	day := clinic.NewSessionDay("D1", date)
	require.NoError(t, mem.SaveSessionDays(ctx, []*clinic.SessionDay{day}))

	loaded, err := mem.LoadSessionDays(ctx)
	require.NoError(t, err)
	loaded[0].Slots[0] = clinic.HeldSlot("P1", clinic.HoldPending, "A0001")

	again, err := mem.LoadSessionDays(ctx)
	require.NoError(t, err)
	assert.Equal(t, clinic.SlotFree, again[0].Slots[0].State)
}
