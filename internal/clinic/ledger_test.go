package clinic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func emptyLedger() *Ledger {
	return NewLedger(nil, nil, nil)
}

func TestBook(t *testing.T) {
	date := mustDate(t, "20/06/2025")

	t.Run("free slot", func(t *testing.T) {
		l := emptyLedger()
		appt, err := l.Book("P1", "D1", date, 3)
		require.NoError(t, err)

		assert.Equal(t, "A0001", appt.ID)
		assert.Equal(t, StatusPending, appt.Status)
		assert.Equal(t, 3, appt.Slot)

		slot := l.Day("D1", date).Slots[2]
		assert.Equal(t, SlotHeld, slot.State)
		assert.Equal(t, "P1", slot.PatientID)
		assert.Equal(t, HoldPending, slot.Hold)
		assert.Equal(t, "A0001", slot.AppointmentID)
		require.NoError(t, l.CheckConsistency())
	})

	t.Run("occupied slot rejected, first booking untouched", func(t *testing.T) {
		l := emptyLedger()
		first, err := l.Book("P1", "D1", date, 3)
		require.NoError(t, err)

		_, err = l.Book("P2", "D1", date, 3)
		assert.ErrorIs(t, err, ErrSlotUnavailable)

		assert.Equal(t, StatusPending, first.Status)
		assert.Equal(t, "P1", l.Day("D1", date).Slots[2].PatientID)
		assert.Len(t, l.Appointments(), 1)
		require.NoError(t, l.CheckConsistency())
	})

	t.Run("blocked slot rejected", func(t *testing.T) {
		l := emptyLedger()
		_, err := l.ToggleSlot("D1", date, 4)
		require.NoError(t, err)

		_, err = l.Book("P1", "D1", date, 4)
		assert.ErrorIs(t, err, ErrSlotUnavailable)
	})

	t.Run("slot index out of range", func(t *testing.T) {
		l := emptyLedger()
		_, err := l.Book("P1", "D1", date, 0)
		assert.ErrorIs(t, err, ErrInvalidSlot)
		_, err = l.Book("P1", "D1", date, SlotCount+1)
		assert.ErrorIs(t, err, ErrInvalidSlot)
	})

	t.Run("sequential IDs", func(t *testing.T) {
		l := emptyLedger()
		a1, err := l.Book("P1", "D1", date, 1)
		require.NoError(t, err)
		a2, err := l.Book("P2", "D1", date, 2)
		require.NoError(t, err)
		assert.Equal(t, "A0001", a1.ID)
		assert.Equal(t, "A0002", a2.ID)
	})
}

func TestReschedule(t *testing.T) {
	date := mustDate(t, "20/06/2025")
	other := mustDate(t, "21/06/2025")

	t.Run("moves the hold and resets to pending", func(t *testing.T) {
		l := emptyLedger()
		appt, err := l.Book("P1", "D1", date, 3)
		require.NoError(t, err)
		_, err = l.Accept("D1", date, 3)
		require.NoError(t, err)

		moved, err := l.Reschedule(appt.ID, other, 5)
		require.NoError(t, err)

		assert.Equal(t, SlotFree, l.Day("D1", date).Slots[2].State)
		newSlot := l.Day("D1", other).Slots[4]
		assert.Equal(t, SlotHeld, newSlot.State)
		assert.Equal(t, HoldPending, newSlot.Hold)
		assert.Equal(t, "P1", newSlot.PatientID)
		assert.Equal(t, StatusPending, moved.Status)
		assert.Equal(t, 5, moved.Slot)
		assert.True(t, moved.Date.Equal(other))

		// exactly one active record for this patient, and it points at slot 5
		active := l.AppointmentsByPatient("P1")
		require.Len(t, active, 1)
		assert.Equal(t, 5, active[0].Slot)
		require.NoError(t, l.CheckConsistency())
	})

	t.Run("same day lands both edits in one session day", func(t *testing.T) {
		l := emptyLedger()
		appt, err := l.Book("P1", "D1", date, 3)
		require.NoError(t, err)

		_, err = l.Reschedule(appt.ID, date, 5)
		require.NoError(t, err)

		day := l.Day("D1", date)
		assert.Equal(t, SlotFree, day.Slots[2].State)
		assert.Equal(t, SlotHeld, day.Slots[4].State)
		require.NoError(t, l.CheckConsistency())
	})

	t.Run("occupied destination rejected without mutation", func(t *testing.T) {
		l := emptyLedger()
		appt, err := l.Book("P1", "D1", date, 3)
		require.NoError(t, err)
		_, err = l.Book("P2", "D1", date, 5)
		require.NoError(t, err)

		_, err = l.Reschedule(appt.ID, date, 5)
		assert.ErrorIs(t, err, ErrSlotUnavailable)
		assert.Equal(t, 3, appt.Slot)
		assert.Equal(t, SlotHeld, l.Day("D1", date).Slots[2].State)
		require.NoError(t, l.CheckConsistency())
	})

	t.Run("terminal record not reschedulable", func(t *testing.T) {
		l := emptyLedger()
		appt, err := l.Book("P1", "D1", date, 3)
		require.NoError(t, err)
		_, err = l.Cancel(appt.ID)
		require.NoError(t, err)

		_, err = l.Reschedule(appt.ID, date, 5)
		assert.ErrorIs(t, err, ErrNotActionable)
	})

	t.Run("unknown record", func(t *testing.T) {
		l := emptyLedger()
		_, err := l.Reschedule("A9999", date, 1)
		assert.ErrorIs(t, err, ErrAppointmentNotFound)
	})
}

func TestCancel(t *testing.T) {
	date := mustDate(t, "20/06/2025")

	t.Run("frees the slot", func(t *testing.T) {
		l := emptyLedger()
		appt, err := l.Book("P1", "D1", date, 3)
		require.NoError(t, err)

		cancelled, err := l.Cancel(appt.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, cancelled.Status)
		assert.Equal(t, SlotFree, l.Day("D1", date).Slots[2].State)
		require.NoError(t, l.CheckConsistency())
	})

	t.Run("cancel twice rejected, no double free", func(t *testing.T) {
		l := emptyLedger()
		appt, err := l.Book("P1", "D1", date, 3)
		require.NoError(t, err)
		_, err = l.Cancel(appt.ID)
		require.NoError(t, err)

		// another patient takes the freed slot; a second cancel must not free it
		_, err = l.Book("P2", "D1", date, 3)
		require.NoError(t, err)

		_, err = l.Cancel(appt.ID)
		assert.ErrorIs(t, err, ErrNotActionable)
		assert.Equal(t, "P2", l.Day("D1", date).Slots[2].PatientID)
		require.NoError(t, l.CheckConsistency())
	})
}

func TestAcceptDecline(t *testing.T) {
	date := mustDate(t, "20/06/2025")

	t.Run("accept confirms slot and record", func(t *testing.T) {
		l := emptyLedger()
		appt, err := l.Book("P1", "D1", date, 3)
		require.NoError(t, err)

		accepted, err := l.Accept("D1", date, 3)
		require.NoError(t, err)
		assert.Equal(t, appt.ID, accepted.ID)
		assert.Equal(t, StatusConfirmed, accepted.Status)

		slot := l.Day("D1", date).Slots[2]
		assert.Equal(t, HoldConfirmed, slot.Hold)
		assert.Equal(t, "P1", slot.PatientID)
		require.NoError(t, l.CheckConsistency())
	})

	t.Run("decline frees slot and cancels record", func(t *testing.T) {
		l := emptyLedger()
		appt, err := l.Book("P1", "D1", date, 3)
		require.NoError(t, err)

		declined, err := l.Decline("D1", date, 3)
		require.NoError(t, err)
		assert.Equal(t, appt.ID, declined.ID)
		assert.Equal(t, StatusCancelled, declined.Status)
		assert.Equal(t, SlotFree, l.Day("D1", date).Slots[2].State)
		require.NoError(t, l.CheckConsistency())
	})

	t.Run("accept on a non-pending slot rejected", func(t *testing.T) {
		l := emptyLedger()
		_, err := l.Accept("D1", date, 3)
		assert.ErrorIs(t, err, ErrSlotNotPending)

		_, err = l.Book("P1", "D1", date, 3)
		require.NoError(t, err)
		_, err = l.Accept("D1", date, 3)
		require.NoError(t, err)

		_, err = l.Accept("D1", date, 3)
		assert.ErrorIs(t, err, ErrSlotNotPending)
	})
}

func TestToggleSlot(t *testing.T) {
	date := mustDate(t, "20/06/2025")

	t.Run("free and blocked toggle", func(t *testing.T) {
		l := emptyLedger()
		state, err := l.ToggleSlot("D1", date, 1)
		require.NoError(t, err)
		assert.Equal(t, SlotBlocked, state)

		state, err = l.ToggleSlot("D1", date, 1)
		require.NoError(t, err)
		assert.Equal(t, SlotFree, state)
	})

	t.Run("forcing a pending hold cancels the record", func(t *testing.T) {
		l := emptyLedger()
		appt, err := l.Book("P1", "D1", date, 3)
		require.NoError(t, err)

		state, err := l.ToggleSlot("D1", date, 3)
		require.NoError(t, err)
		assert.Equal(t, SlotBlocked, state)
		assert.Equal(t, StatusCancelled, appt.Status)
		require.NoError(t, l.CheckConsistency())
	})

	t.Run("confirmed hold refused", func(t *testing.T) {
		l := emptyLedger()
		appt, err := l.Book("P1", "D1", date, 3)
		require.NoError(t, err)
		_, err = l.Accept("D1", date, 3)
		require.NoError(t, err)

		_, err = l.ToggleSlot("D1", date, 3)
		assert.ErrorIs(t, err, ErrSlotConfirmed)
		assert.Equal(t, StatusConfirmed, appt.Status)
		assert.Equal(t, SlotHeld, l.Day("D1", date).Slots[2].State)
	})
}

func TestLazySessionDay(t *testing.T) {
	l := emptyLedger()
	date := mustDate(t, "01/07/2025")

	day := l.Day("D1", date)
	for i := range day.Slots {
		assert.Equal(t, SlotFree, day.Slots[i].State)
	}

	// same object on every touch
	assert.Same(t, day, l.Day("D1", date))
}

func TestListingsOrdered(t *testing.T) {
	l := emptyLedger()
	d20 := mustDate(t, "20/06/2025")
	d21 := mustDate(t, "21/06/2025")

	_, err := l.Book("P1", "D1", d21, 2)
	require.NoError(t, err)
	_, err = l.Book("P1", "D1", d20, 7)
	require.NoError(t, err)
	_, err = l.Book("P1", "D1", d20, 1)
	require.NoError(t, err)

	list := l.PendingByPractitioner("D1")
	require.Len(t, list, 3)
	assert.Equal(t, 1, list[0].Slot)
	assert.True(t, list[0].Date.Equal(d20))
	assert.Equal(t, 7, list[1].Slot)
	assert.True(t, list[2].Date.Equal(d21))
}

func TestAppointmentsByPatientFiltersTerminal(t *testing.T) {
	l := emptyLedger()
	date := mustDate(t, "20/06/2025")

	a1, err := l.Book("P1", "D1", date, 1)
	require.NoError(t, err)
	_, err = l.Cancel(a1.ID)
	require.NoError(t, err)

	a2, err := l.Book("P1", "D1", date, 2)
	require.NoError(t, err)
	_, err = l.Accept("D1", date, 2)
	require.NoError(t, err)

	list := l.AppointmentsByPatient("P1")
	require.Len(t, list, 1)
	assert.Equal(t, a2.ID, list[0].ID)
}

func TestRelinkOnLoad(t *testing.T) {
	// Simulate a wire load: held slots come back without appointment IDs and
	// must be relinked by position.
	date := mustDate(t, "20/06/2025")
	day := NewSessionDay("D1", date)
	day.Slots[2] = Slot{State: SlotHeld, PatientID: "P1", Hold: HoldPending}
	appts := []*Appointment{{
		ID: "A0001", PatientID: "P1", PractitionerID: "D1",
		Date: date, Slot: 3, Status: StatusPending,
	}}

	l := NewLedger([]*SessionDay{day}, appts, nil)
	assert.Equal(t, "A0001", l.Day("D1", date).Slots[2].AppointmentID)
	require.NoError(t, l.CheckConsistency())

	accepted, err := l.Accept("D1", date, 3)
	require.NoError(t, err)
	assert.Equal(t, "A0001", accepted.ID)
}

func TestCheckConsistencyDetectsDrift(t *testing.T) {
	date := mustDate(t, "20/06/2025")

	t.Run("held slot without record", func(t *testing.T) {
		day := NewSessionDay("D1", date)
		day.Slots[0] = Slot{State: SlotHeld, PatientID: "P1", Hold: HoldPending}
		l := NewLedger([]*SessionDay{day}, nil, nil)
		assert.Error(t, l.CheckConsistency())
	})

	t.Run("active record without held slot", func(t *testing.T) {
		day := NewSessionDay("D1", date)
		appts := []*Appointment{{
			ID: "A0001", PatientID: "P1", PractitionerID: "D1",
			Date: date, Slot: 1, Status: StatusConfirmed,
		}}
		l := NewLedger([]*SessionDay{day}, appts, nil)
		assert.Error(t, l.CheckConsistency())
	})

	t.Run("status category mismatch", func(t *testing.T) {
		day := NewSessionDay("D1", date)
		day.Slots[0] = Slot{State: SlotHeld, PatientID: "P1", Hold: HoldConfirmed, AppointmentID: "A0001"}
		appts := []*Appointment{{
			ID: "A0001", PatientID: "P1", PractitionerID: "D1",
			Date: date, Slot: 1, Status: StatusPending,
		}}
		l := NewLedger([]*SessionDay{day}, appts, nil)
		assert.Error(t, l.CheckConsistency())
	})
}

// The end-to-end lifecycle: book, accept, reschedule, decline.
func TestBookingLifecycle(t *testing.T) {
	l := emptyLedger()
	date := mustDate(t, "20/06/2025")

	appt, err := l.Book("P1", "D1", date, 3)
	require.NoError(t, err)
	assert.Equal(t, "A0001", appt.ID)
	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, "P1-PENDING", EncodeSlot(l.Day("D1", date).Slots[2]))

	_, err = l.Accept("D1", date, 3)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, appt.Status)
	assert.Equal(t, "P1-CONFIRMED", EncodeSlot(l.Day("D1", date).Slots[2]))

	_, err = l.Reschedule(appt.ID, date, 5)
	require.NoError(t, err)
	assert.Equal(t, "Available", EncodeSlot(l.Day("D1", date).Slots[2]))
	assert.Equal(t, "P1-PENDING", EncodeSlot(l.Day("D1", date).Slots[4]))
	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, 5, appt.Slot)

	_, err = l.Decline("D1", date, 5)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, appt.Status)
	assert.Equal(t, "Available", EncodeSlot(l.Day("D1", date).Slots[4]))

	require.NoError(t, l.CheckConsistency())
}
