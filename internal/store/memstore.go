package store

import (
	"context"
	"sync"

	"github.com/clinicware/booking-ledger/internal/clinic"
)

// MemStore keeps whole collections in memory, for tests and throwaway runs.
// Loads return deep copies so a caller mutating a ledger never aliases the
// stored state; only a save publishes changes, same as the file store.
type MemStore struct {
	mu            sync.Mutex
	days          []*clinic.SessionDay
	appointments  []*clinic.Appointment
	practitioners []clinic.User
	patients      []clinic.User
	outcomes      []*clinic.OutcomeRecord
}

func NewMemStore(practitioners, patients []clinic.User) *MemStore {
	return &MemStore{practitioners: practitioners, patients: patients}
}

func (m *MemStore) LoadSessionDays(context.Context) ([]*clinic.SessionDay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*clinic.SessionDay, len(m.days))
	for i, d := range m.days {
		cp := *d
		out[i] = &cp
	}
	return out, nil
}

func (m *MemStore) SaveSessionDays(_ context.Context, days []*clinic.SessionDay) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.days = make([]*clinic.SessionDay, len(days))
	for i, d := range days {
		cp := *d
		m.days[i] = &cp
	}
	return nil
}

func (m *MemStore) LoadAppointments(context.Context) ([]*clinic.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*clinic.Appointment, len(m.appointments))
	for i, a := range m.appointments {
		cp := *a
		out[i] = &cp
	}
	return out, nil
}

func (m *MemStore) SaveAppointments(_ context.Context, appointments []*clinic.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointments = make([]*clinic.Appointment, len(appointments))
	for i, a := range appointments {
		cp := *a
		m.appointments[i] = &cp
	}
	return nil
}

func (m *MemStore) LoadPractitioners(context.Context) ([]clinic.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]clinic.User(nil), m.practitioners...), nil
}

func (m *MemStore) LoadPatients(context.Context) ([]clinic.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]clinic.User(nil), m.patients...), nil
}

func (m *MemStore) LoadOutcomeRecords(context.Context) ([]*clinic.OutcomeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*clinic.OutcomeRecord, len(m.outcomes))
	for i, o := range m.outcomes {
		cp := *o
		cp.Prescriptions = append([]clinic.PrescriptionLine(nil), o.Prescriptions...)
		out[i] = &cp
	}
	return out, nil
}

func (m *MemStore) SaveOutcomeRecords(_ context.Context, outcomes []*clinic.OutcomeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = make([]*clinic.OutcomeRecord, len(outcomes))
	for i, o := range outcomes {
		cp := *o
		cp.Prescriptions = append([]clinic.PrescriptionLine(nil), o.Prescriptions...)
		m.outcomes[i] = &cp
	}
	return nil
}
