package clinic

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Locker guards the critical section of a booking-path mutation so two
// requests for the same slot cannot both see it free. Keys name a single
// slot: "<practitionerID>:<dd/MM/yyyy>:<slot>".
type Locker interface {
	WithSlotLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// NopLocker is used when no Redis is configured; the service mutex still
// serializes mutations within the process.
type NopLocker struct{}

func (NopLocker) WithSlotLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Service drives every operation the same way: load the entire collections,
// build a ledger, apply one consistency-preserving mutation, write the entire
// collections back. The mutex makes that read-mutate-write sequence a single
// step within this process.
type Service struct {
	mu     sync.Mutex
	store  Store
	locker Locker
	stock  StockChecker
	now    func() time.Time
}

type ServiceOption func(*Service)

// WithClock overrides the wall clock, used by the outcome-recording gate.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithStock wires the inventory collaborator for prescription checks.
func WithStock(stock StockChecker) ServiceOption {
	return func(s *Service) { s.stock = stock }
}

func NewService(store Store, locker Locker, opts ...ServiceOption) *Service {
	if locker == nil {
		locker = NopLocker{}
	}
	s := &Service{
		store:  store,
		locker: locker,
		stock:  AllowAllStock{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func slotKey(practitionerID string, date time.Time, slot int) string {
	return fmt.Sprintf("%s:%s:%d", practitionerID, FormatDate(date), slot)
}

// load pulls both collections plus outcomes and assembles the ledger.
func (s *Service) load(ctx context.Context) (*Ledger, error) {
	days, err := s.store.LoadSessionDays(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session days: %w", err)
	}
	appts, err := s.store.LoadAppointments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	outcomes, err := s.store.LoadOutcomeRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load outcome records: %w", err)
	}
	return NewLedger(days, appts, outcomes), nil
}

// flush overwrites both collections. Order matters for crash behavior no more
// than the contract promises: there is none.
func (s *Service) flush(ctx context.Context, l *Ledger) error {
	if err := s.store.SaveSessionDays(ctx, l.Days()); err != nil {
		return fmt.Errorf("save session days: %w", err)
	}
	if err := s.store.SaveAppointments(ctx, l.Appointments()); err != nil {
		return fmt.Errorf("save appointments: %w", err)
	}
	return nil
}

func (s *Service) requireUser(ctx context.Context, id string, role Role) error {
	var (
		users []User
		err   error
	)
	switch role {
	case RolePractitioner:
		users, err = s.store.LoadPractitioners(ctx)
	default:
		users, err = s.store.LoadPatients(ctx)
	}
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	for _, u := range users {
		if u.ID == id {
			return nil
		}
	}
	if role == RolePractitioner {
		return ErrPractitionerNotFound
	}
	return ErrPatientNotFound
}

// mutate runs one ledger mutation under the service mutex with a fresh load
// and a full flush.
func (s *Service) mutate(ctx context.Context, fn func(l *Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(l); err != nil {
		return err
	}
	return s.flush(ctx, l)
}

// Book reserves a free slot for a patient. The slot lock closes the window
// between two requests both loading the slot as free.
func (s *Service) Book(ctx context.Context, patientID, practitionerID string, date time.Time, slot int) (*Appointment, error) {
	if err := s.requireUser(ctx, patientID, RolePatient); err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, practitionerID, RolePractitioner); err != nil {
		return nil, err
	}

	var appt *Appointment
	err := s.locker.WithSlotLock(ctx, slotKey(practitionerID, date, slot), func(ctx context.Context) error {
		return s.mutate(ctx, func(l *Ledger) error {
			var err error
			appt, err = l.Book(patientID, practitionerID, date, slot)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// Reschedule moves an active appointment to a new date and slot. The lock is
// per appointment, not per slot: two concurrent moves of the same record are
// the race worth closing, and the free-slot check inside the mutation still
// rejects a destination a Book claimed first.
func (s *Service) Reschedule(ctx context.Context, id string, newDate time.Time, newSlot int) (*Appointment, error) {
	var appt *Appointment
	err := s.locker.WithSlotLock(ctx, "resched:"+id, func(ctx context.Context) error {
		return s.mutate(ctx, func(l *Ledger) error {
			var err error
			appt, err = l.Reschedule(id, newDate, newSlot)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *Service) Cancel(ctx context.Context, id string) (*Appointment, error) {
	var appt *Appointment
	err := s.mutate(ctx, func(l *Ledger) error {
		var err error
		appt, err = l.Cancel(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *Service) Accept(ctx context.Context, practitionerID string, date time.Time, slot int) (*Appointment, error) {
	return s.slotDecision(ctx, practitionerID, date, slot, (*Ledger).Accept)
}

func (s *Service) Decline(ctx context.Context, practitionerID string, date time.Time, slot int) (*Appointment, error) {
	return s.slotDecision(ctx, practitionerID, date, slot, (*Ledger).Decline)
}

func (s *Service) slotDecision(
	ctx context.Context,
	practitionerID string,
	date time.Time,
	slot int,
	op func(*Ledger, string, time.Time, int) (*Appointment, error),
) (*Appointment, error) {
	if err := s.requireUser(ctx, practitionerID, RolePractitioner); err != nil {
		return nil, err
	}
	var appt *Appointment
	err := s.locker.WithSlotLock(ctx, slotKey(practitionerID, date, slot), func(ctx context.Context) error {
		return s.mutate(ctx, func(l *Ledger) error {
			var err error
			appt, err = op(l, practitionerID, date, slot)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// ToggleSlot flips a slot's availability, cancelling a pending hold if the
// practitioner forces the slot closed.
func (s *Service) ToggleSlot(ctx context.Context, practitionerID string, date time.Time, slot int) (SlotState, error) {
	if err := s.requireUser(ctx, practitionerID, RolePractitioner); err != nil {
		return SlotFree, err
	}
	var state SlotState
	err := s.locker.WithSlotLock(ctx, slotKey(practitionerID, date, slot), func(ctx context.Context) error {
		return s.mutate(ctx, func(l *Ledger) error {
			var err error
			state, err = l.ToggleSlot(practitionerID, date, slot)
			return err
		})
	})
	if err != nil {
		return state, err
	}
	return state, nil
}

// RecordCompleted closes a confirmed, elapsed appointment as COMPLETED,
// persisting the new outcome record alongside both collections. Prescription
// lines the inventory rejected are returned for reporting.
func (s *Service) RecordCompleted(ctx context.Context, id string, visit VisitDetails) (*OutcomeRecord, []PrescriptionLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.load(ctx)
	if err != nil {
		return nil, nil, err
	}
	rec, rejected, err := l.RecordCompleted(id, s.now(), s.stock, visit)
	if err != nil {
		return nil, rejected, err
	}
	if err := s.flush(ctx, l); err != nil {
		return nil, rejected, err
	}
	if err := s.store.SaveOutcomeRecords(ctx, l.Outcomes()); err != nil {
		return nil, rejected, fmt.Errorf("save outcome records: %w", err)
	}
	return rec, rejected, nil
}

// RecordNoShow closes a confirmed, elapsed appointment as NO_SHOW.
func (s *Service) RecordNoShow(ctx context.Context, id string) (*Appointment, error) {
	var appt *Appointment
	err := s.mutate(ctx, func(l *Ledger) error {
		var err error
		appt, err = l.RecordNoShow(id, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// Appointment returns one record by ID.
func (s *Service) Appointment(ctx context.Context, id string) (*Appointment, error) {
	l, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return l.AppointmentByID(id)
}

// Outcome returns the outcome record of a completed appointment.
func (s *Service) Outcome(ctx context.Context, appointmentID string) (*OutcomeRecord, error) {
	l, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if rec := l.OutcomeByAppointment(appointmentID); rec != nil {
		return rec, nil
	}
	return nil, ErrOutcomeNotFound
}

// PatientAppointments lists a patient's non-terminal history, date-then-slot.
func (s *Service) PatientAppointments(ctx context.Context, patientID string) ([]*Appointment, error) {
	if err := s.requireUser(ctx, patientID, RolePatient); err != nil {
		return nil, err
	}
	l, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return l.AppointmentsByPatient(patientID), nil
}

// PractitionerPending lists the accept/decline candidate set.
func (s *Service) PractitionerPending(ctx context.Context, practitionerID string) ([]*Appointment, error) {
	if err := s.requireUser(ctx, practitionerID, RolePractitioner); err != nil {
		return nil, err
	}
	l, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return NewWorkflow(l).AwaitingDecision(practitionerID), nil
}

// PractitionerConfirmed lists the outcome-eligible candidate set.
func (s *Service) PractitionerConfirmed(ctx context.Context, practitionerID string) ([]*Appointment, error) {
	if err := s.requireUser(ctx, practitionerID, RolePractitioner); err != nil {
		return nil, err
	}
	l, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return NewWorkflow(l).OutcomeEligible(practitionerID), nil
}

// SessionBoard returns the slot board for one practitioner and date. An
// unconfigured date renders fully available; the lazy day is not persisted by
// a pure read.
func (s *Service) SessionBoard(ctx context.Context, practitionerID string, date time.Time) (*SessionDay, error) {
	if err := s.requireUser(ctx, practitionerID, RolePractitioner); err != nil {
		return nil, err
	}
	l, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return l.Day(practitionerID, date), nil
}
