package clinic

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrInvalidSlot          = errors.New("slot index out of range")
	ErrSlotUnavailable      = errors.New("invalid or unavailable selection")
	ErrSlotNotPending       = errors.New("slot has no pending booking")
	ErrSlotConfirmed        = errors.New("a confirmed appointment exists for this slot")
	ErrNotActionable        = errors.New("appointment is not in an actionable status")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrPractitionerNotFound = errors.New("practitioner not found")
)

type dayKey struct {
	practitionerID string
	date           time.Time
}

// Ledger owns both views of the booking state: the per-day slot timetables
// and the flat appointment list. Every mutation goes through one of the
// methods below, each of which leaves the two views agreeing about who holds
// which slot and in what status. Nothing outside this type writes a slot or
// an appointment status.
type Ledger struct {
	days         map[dayKey]*SessionDay
	appointments []*Appointment
	outcomes     []*OutcomeRecord
}

// NewLedger builds a ledger from freshly loaded collections. Held slots come
// off the wire without their appointment link, so each one is resolved here
// by scanning for the active record with matching practitioner, date and
// slot. This is the only place that scan still happens.
func NewLedger(days []*SessionDay, appointments []*Appointment, outcomes []*OutcomeRecord) *Ledger {
	l := &Ledger{
		days:         make(map[dayKey]*SessionDay, len(days)),
		appointments: appointments,
		outcomes:     outcomes,
	}
	for _, d := range days {
		l.days[dayKey{d.PractitionerID, d.Date}] = d
	}
	for _, d := range days {
		for i := range d.Slots {
			s := &d.Slots[i]
			if s.State == SlotHeld && s.AppointmentID == "" {
				if rec := l.findActiveAt(d.PractitionerID, d.Date, i+1); rec != nil {
					s.AppointmentID = rec.ID
				}
			}
		}
	}
	return l
}

// Days returns the session days sorted by practitioner then date, ready to be
// handed to the store.
func (l *Ledger) Days() []*SessionDay {
	out := make([]*SessionDay, 0, len(l.days))
	for _, d := range l.days {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PractitionerID != out[j].PractitionerID {
			return out[i].PractitionerID < out[j].PractitionerID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

func (l *Ledger) Appointments() []*Appointment { return l.appointments }

func (l *Ledger) Outcomes() []*OutcomeRecord { return l.outcomes }

// Day returns the session day for (practitioner, date), materializing it with
// every slot free on first touch. A date nobody has configured is fully open.
func (l *Ledger) Day(practitionerID string, date time.Time) *SessionDay {
	k := dayKey{practitionerID, date}
	if d, ok := l.days[k]; ok {
		return d
	}
	d := NewSessionDay(practitionerID, date)
	l.days[k] = d
	return d
}

func checkSlotIndex(slot int) error {
	if slot < 1 || slot > SlotCount {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	return nil
}

// nextID derives the next appointment ID from the record count. Records are
// never deleted, so this never collides.
func (l *Ledger) nextID() string {
	return fmt.Sprintf("A%04d", len(l.appointments)+1)
}

// Book places a pending hold on a free slot and creates the matching PENDING
// record. Anything other than a free slot is an invalid selection; the ledger
// is untouched on rejection.
func (l *Ledger) Book(patientID, practitionerID string, date time.Time, slot int) (*Appointment, error) {
	if err := checkSlotIndex(slot); err != nil {
		return nil, err
	}
	day := l.Day(practitionerID, date)
	if day.Slots[slot-1].State != SlotFree {
		return nil, ErrSlotUnavailable
	}

	appt := &Appointment{
		ID:             l.nextID(),
		PatientID:      patientID,
		PractitionerID: practitionerID,
		Date:           date,
		Slot:           slot,
		Status:         StatusPending,
	}
	day.Slots[slot-1] = HeldSlot(patientID, HoldPending, appt.ID)
	l.appointments = append(l.appointments, appt)
	return appt, nil
}

// Reschedule moves an active appointment to a new date and slot. The old slot
// is freed, the new one is held PENDING: moving an appointment always forfeits
// a prior confirmation and requires re-approval.
func (l *Ledger) Reschedule(id string, newDate time.Time, newSlot int) (*Appointment, error) {
	if err := checkSlotIndex(newSlot); err != nil {
		return nil, err
	}
	appt, err := l.AppointmentByID(id)
	if err != nil {
		return nil, err
	}
	if !appt.Status.Active() {
		return nil, ErrNotActionable
	}

	newDay := l.Day(appt.PractitionerID, newDate)
	if newDay.Slots[newSlot-1].State != SlotFree {
		return nil, ErrSlotUnavailable
	}

	oldDay := l.Day(appt.PractitionerID, appt.Date)
	oldDay.Slots[appt.Slot-1] = Slot{State: SlotFree}
	newDay.Slots[newSlot-1] = HeldSlot(appt.PatientID, HoldPending, appt.ID)

	appt.Date = newDate
	appt.Slot = newSlot
	appt.Status = StatusPending
	return appt, nil
}

// Cancel is the patient-initiated cancellation: the record goes CANCELLED and
// its slot is freed. A record already in a terminal status is rejected, so
// the slot is never freed twice.
func (l *Ledger) Cancel(id string) (*Appointment, error) {
	appt, err := l.AppointmentByID(id)
	if err != nil {
		return nil, err
	}
	if !appt.Status.Active() {
		return nil, ErrNotActionable
	}
	l.releaseSlot(appt)
	appt.Status = StatusCancelled
	return appt, nil
}

// Accept confirms the pending hold on a slot: sub-status goes CONFIRMED with
// the occupant preserved, and the holding record follows.
func (l *Ledger) Accept(practitionerID string, date time.Time, slot int) (*Appointment, error) {
	appt, day, err := l.pendingHold(practitionerID, date, slot)
	if err != nil {
		return nil, err
	}
	day.Slots[slot-1].Hold = HoldConfirmed
	appt.Status = StatusConfirmed
	return appt, nil
}

// Decline rejects the pending hold on a slot: the slot is freed and the
// holding record goes CANCELLED.
func (l *Ledger) Decline(practitionerID string, date time.Time, slot int) (*Appointment, error) {
	appt, day, err := l.pendingHold(practitionerID, date, slot)
	if err != nil {
		return nil, err
	}
	day.Slots[slot-1] = Slot{State: SlotFree}
	appt.Status = StatusCancelled
	return appt, nil
}

// ToggleSlot is the practitioner's direct availability switch. Free and
// blocked toggle into each other. A pending hold may be forced to blocked,
// which cancels the underlying record as an implicit decline, so the request
// is not silently orphaned. A confirmed hold is refused.
func (l *Ledger) ToggleSlot(practitionerID string, date time.Time, slot int) (SlotState, error) {
	if err := checkSlotIndex(slot); err != nil {
		return SlotFree, err
	}
	day := l.Day(practitionerID, date)
	s := &day.Slots[slot-1]

	switch s.State {
	case SlotFree:
		*s = Slot{State: SlotBlocked}
		return SlotBlocked, nil
	case SlotBlocked:
		*s = Slot{State: SlotFree}
		return SlotFree, nil
	}

	if s.Hold == HoldConfirmed {
		return SlotHeld, ErrSlotConfirmed
	}
	appt, err := l.holdingAppointment(practitionerID, date, slot, *s)
	if err != nil {
		return SlotHeld, err
	}
	*s = Slot{State: SlotBlocked}
	appt.Status = StatusCancelled
	return SlotBlocked, nil
}

// pendingHold resolves a slot that must carry a PENDING hold, returning the
// holding appointment and its day.
func (l *Ledger) pendingHold(practitionerID string, date time.Time, slot int) (*Appointment, *SessionDay, error) {
	if err := checkSlotIndex(slot); err != nil {
		return nil, nil, err
	}
	day := l.Day(practitionerID, date)
	s := day.Slots[slot-1]
	if s.State != SlotHeld || s.Hold != HoldPending {
		return nil, nil, ErrSlotNotPending
	}
	appt, err := l.holdingAppointment(practitionerID, date, slot, s)
	if err != nil {
		return nil, nil, err
	}
	return appt, day, nil
}

func (l *Ledger) holdingAppointment(practitionerID string, date time.Time, slot int, s Slot) (*Appointment, error) {
	if s.AppointmentID != "" {
		return l.AppointmentByID(s.AppointmentID)
	}
	if rec := l.findActiveAt(practitionerID, date, slot); rec != nil {
		return rec, nil
	}
	return nil, ErrAppointmentNotFound
}

// releaseSlot frees the slot an active appointment occupies. Terminal records
// must never leave an occupied slot behind.
func (l *Ledger) releaseSlot(appt *Appointment) {
	day := l.Day(appt.PractitionerID, appt.Date)
	s := &day.Slots[appt.Slot-1]
	if s.State == SlotHeld && (s.AppointmentID == appt.ID || s.PatientID == appt.PatientID) {
		*s = Slot{State: SlotFree}
	}
}

func (l *Ledger) AppointmentByID(id string) (*Appointment, error) {
	for _, a := range l.appointments {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (l *Ledger) findActiveAt(practitionerID string, date time.Time, slot int) *Appointment {
	for _, a := range l.appointments {
		if a.Status.Active() && a.PractitionerID == practitionerID && a.Date.Equal(date) && a.Slot == slot {
			return a
		}
	}
	return nil
}

// AppointmentsByPatient lists a patient's records excluding COMPLETED and
// CANCELLED, sorted by date then slot.
func (l *Ledger) AppointmentsByPatient(patientID string) []*Appointment {
	var out []*Appointment
	for _, a := range l.appointments {
		if a.PatientID == patientID && a.Status != StatusCompleted && a.Status != StatusCancelled {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	return out
}

// ConfirmedByPractitioner lists a practitioner's CONFIRMED records sorted by
// date then slot.
func (l *Ledger) ConfirmedByPractitioner(practitionerID string) []*Appointment {
	return l.byPractitionerStatus(practitionerID, StatusConfirmed)
}

// PendingByPractitioner lists a practitioner's PENDING records sorted by date
// then slot. This is the accept/decline candidate set.
func (l *Ledger) PendingByPractitioner(practitionerID string) []*Appointment {
	return l.byPractitionerStatus(practitionerID, StatusPending)
}

func (l *Ledger) byPractitionerStatus(practitionerID string, status AppointmentStatus) []*Appointment {
	var out []*Appointment
	for _, a := range l.appointments {
		if a.PractitionerID == practitionerID && a.Status == status {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	return out
}

// OutcomeByAppointment returns the outcome record for a completed
// appointment, or nil if none exists.
func (l *Ledger) OutcomeByAppointment(appointmentID string) *OutcomeRecord {
	for _, o := range l.outcomes {
		if o.AppointmentID == appointmentID {
			return o
		}
	}
	return nil
}

// sortAppointments orders ascending by date, then slot index within a date.
// Listings must be stable across repeated renders.
func sortAppointments(list []*Appointment) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.Before(list[j].Date)
		}
		return list[i].Slot < list[j].Slot
	})
}

// CheckConsistency verifies the slot/record agreement invariant: every held
// slot maps to exactly one active record with the same position and status
// category, and no active record points at a slot that is not held by its
// patient.
func (l *Ledger) CheckConsistency() error {
	for _, d := range l.days {
		for i := range d.Slots {
			s := d.Slots[i]
			if s.State != SlotHeld {
				if rec := l.findActiveAt(d.PractitionerID, d.Date, i+1); rec != nil {
					return fmt.Errorf("slot %s %s #%d is %s but record %s is %s",
						d.PractitionerID, FormatDate(d.Date), i+1, s.State, rec.ID, rec.Status)
				}
				continue
			}

			var matches []*Appointment
			for _, a := range l.appointments {
				if a.Status.Active() && a.PractitionerID == d.PractitionerID && a.Date.Equal(d.Date) && a.Slot == i+1 {
					matches = append(matches, a)
				}
			}
			if len(matches) != 1 {
				return fmt.Errorf("slot %s %s #%d held by %s has %d active records, want 1",
					d.PractitionerID, FormatDate(d.Date), i+1, s.PatientID, len(matches))
			}
			rec := matches[0]
			if rec.PatientID != s.PatientID {
				return fmt.Errorf("slot %s %s #%d held by %s but record %s belongs to %s",
					d.PractitionerID, FormatDate(d.Date), i+1, s.PatientID, rec.ID, rec.PatientID)
			}
			if string(s.Hold) != string(rec.Status) {
				return fmt.Errorf("slot %s %s #%d hold %s disagrees with record %s status %s",
					d.PractitionerID, FormatDate(d.Date), i+1, s.Hold, rec.ID, rec.Status)
			}
		}
	}

	for _, a := range l.appointments {
		if !a.Status.Active() {
			continue
		}
		day, ok := l.days[dayKey{a.PractitionerID, a.Date}]
		if !ok {
			return fmt.Errorf("active record %s references missing day %s %s",
				a.ID, a.PractitionerID, FormatDate(a.Date))
		}
		s := day.Slots[a.Slot-1]
		if s.State != SlotHeld || s.PatientID != a.PatientID {
			return fmt.Errorf("active record %s not reflected in slot %s %s #%d",
				a.ID, a.PractitionerID, FormatDate(a.Date), a.Slot)
		}
	}
	return nil
}
