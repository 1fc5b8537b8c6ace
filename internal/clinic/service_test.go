package clinic_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicware/booking-ledger/internal/clinic"
	"github.com/clinicware/booking-ledger/internal/store"
)

func testService(t *testing.T, opts ...clinic.ServiceOption) (*clinic.Service, *store.MemStore) {
	t.Helper()
	mem := store.NewMemStore(
		[]clinic.User{{ID: "D1", Name: "Dr. Reyes", Role: clinic.RolePractitioner}},
		[]clinic.User{
			{ID: "P1", Name: "Alma Osei", Role: clinic.RolePatient},
			{ID: "P2", Name: "Juno Park", Role: clinic.RolePatient},
		},
	)
	return clinic.NewService(mem, nil, opts...), mem
}

func svcDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := clinic.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestServiceBookPersists(t *testing.T) {
	ctx := context.Background()
	svc, mem := testService(t)
	date := svcDate(t, "20/06/2025")

	appt, err := svc.Book(ctx, "P1", "D1", date, 3)
	require.NoError(t, err)
	assert.Equal(t, "A0001", appt.ID)

	// a second service over the same store sees the booking
	svc2 := clinic.NewService(mem, nil)
	got, err := svc2.Appointment(ctx, "A0001")
	require.NoError(t, err)
	assert.Equal(t, clinic.StatusPending, got.Status)

	day, err := svc2.SessionBoard(ctx, "D1", date)
	require.NoError(t, err)
	assert.Equal(t, "P1-PENDING", clinic.EncodeSlot(day.Slots[2]))
}

func TestServiceUnknownUsers(t *testing.T) {
	ctx := context.Background()
	svc, _ := testService(t)
	date := svcDate(t, "20/06/2025")

	_, err := svc.Book(ctx, "P9", "D1", date, 1)
	assert.ErrorIs(t, err, clinic.ErrPatientNotFound)

	_, err = svc.Book(ctx, "P1", "D9", date, 1)
	assert.ErrorIs(t, err, clinic.ErrPractitionerNotFound)

	_, err = svc.PractitionerPending(ctx, "D9")
	assert.ErrorIs(t, err, clinic.ErrPractitionerNotFound)
}

func TestServiceRejectedMutationLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	svc, _ := testService(t)
	date := svcDate(t, "20/06/2025")

	_, err := svc.Book(ctx, "P1", "D1", date, 3)
	require.NoError(t, err)
	_, err = svc.Book(ctx, "P2", "D1", date, 3)
	assert.ErrorIs(t, err, clinic.ErrSlotUnavailable)

	list, err := svc.PatientAppointments(ctx, "P2")
	require.NoError(t, err)
	assert.Empty(t, list)

	day, err := svc.SessionBoard(ctx, "D1", date)
	require.NoError(t, err)
	assert.Equal(t, "P1", day.Slots[2].PatientID)
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	date := svcDate(t, "20/06/2025")
	afterVisit := clinic.SlotStart(date, 5).Add(2 * time.Hour)
	svc, _ := testService(t, clinic.WithClock(func() time.Time { return afterVisit }))

	appt, err := svc.Book(ctx, "P1", "D1", date, 3)
	require.NoError(t, err)

	_, err = svc.Accept(ctx, "D1", date, 3)
	require.NoError(t, err)

	moved, err := svc.Reschedule(ctx, appt.ID, date, 5)
	require.NoError(t, err)
	assert.Equal(t, clinic.StatusPending, moved.Status)

	_, err = svc.Accept(ctx, "D1", date, 5)
	require.NoError(t, err)

	rec, rejected, err := svc.RecordCompleted(ctx, appt.ID, clinic.VisitDetails{
		ServiceType: "Consultation",
		Prescriptions: []clinic.PrescriptionLine{
			{MedicationID: "M1", Name: "Paracetamol", Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, rejected)
	assert.Equal(t, appt.ID, rec.AppointmentID)

	// the outcome record survives a reload
	got, err := svc.Outcome(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, "Consultation", got.ServiceType)
	require.Len(t, got.Prescriptions, 1)

	_, err = svc.Outcome(ctx, "A9999")
	assert.ErrorIs(t, err, clinic.ErrOutcomeNotFound)
}

func TestServiceOutcomeClockGate(t *testing.T) {
	ctx := context.Background()
	date := svcDate(t, "20/06/2025")
	beforeVisit := clinic.SlotStart(date, 3).Add(-time.Hour)
	svc, _ := testService(t, clinic.WithClock(func() time.Time { return beforeVisit }))

	appt, err := svc.Book(ctx, "P1", "D1", date, 3)
	require.NoError(t, err)
	_, err = svc.Accept(ctx, "D1", date, 3)
	require.NoError(t, err)

	_, err = svc.RecordNoShow(ctx, appt.ID)
	assert.ErrorIs(t, err, clinic.ErrNotYetOccurred)

	// the record is still confirmed and listed as outcome-eligible
	list, err := svc.PractitionerConfirmed(ctx, "D1")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestServiceStockCollaborator(t *testing.T) {
	ctx := context.Background()
	date := svcDate(t, "20/06/2025")
	after := clinic.SlotStart(date, 1).Add(2 * time.Hour)
	svc, _ := testService(t,
		clinic.WithClock(func() time.Time { return after }),
		clinic.WithStock(emptyStock{}),
	)

	appt, err := svc.Book(ctx, "P1", "D1", date, 1)
	require.NoError(t, err)
	_, err = svc.Accept(ctx, "D1", date, 1)
	require.NoError(t, err)

	rec, rejected, err := svc.RecordCompleted(ctx, appt.ID, clinic.VisitDetails{
		Prescriptions: []clinic.PrescriptionLine{
			{MedicationID: "M1", Name: "Paracetamol", Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, rec.Prescriptions)
	require.Len(t, rejected, 1)
}

type emptyStock struct{}

func (emptyStock) InStock(string, int) bool { return false }

func TestServiceToggleSlot(t *testing.T) {
	ctx := context.Background()
	svc, _ := testService(t)
	date := svcDate(t, "20/06/2025")

	state, err := svc.ToggleSlot(ctx, "D1", date, 2)
	require.NoError(t, err)
	assert.Equal(t, clinic.SlotBlocked, state)

	day, err := svc.SessionBoard(ctx, "D1", date)
	require.NoError(t, err)
	assert.Equal(t, "Unavailable", clinic.EncodeSlot(day.Slots[1]))

	_, err = svc.Book(ctx, "P1", "D1", date, 2)
	assert.ErrorIs(t, err, clinic.ErrSlotUnavailable)
}
