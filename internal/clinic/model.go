package clinic

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used everywhere: in the flat files,
// in the API, and in log lines.
const DateLayout = "02/01/2006"

const (
	// SlotCount is the number of one-hour intervals in a session day.
	SlotCount = 8
	// DayStartHour is the hour of the first slot, so slot n (1-based)
	// covers [DayStartHour+n-1, DayStartHour+n).
	DayStartHour = 9
)

// Slot wire literals. These are the on-disk cell values and must not change:
// ParseSlot relies on holdSeparator being absent from patient IDs.
const (
	wireAvailable   = "Available"
	wireUnavailable = "Unavailable"
	holdSeparator   = "-"
)

type SlotState int

const (
	SlotFree SlotState = iota
	SlotBlocked
	SlotHeld
)

func (s SlotState) String() string {
	switch s {
	case SlotFree:
		return "free"
	case SlotBlocked:
		return "blocked"
	case SlotHeld:
		return "held"
	}
	return "unknown"
}

type HoldStatus string

const (
	HoldPending   HoldStatus = "PENDING"
	HoldConfirmed HoldStatus = "CONFIRMED"
)

// Slot is one bookable interval in a session day. State decides which of the
// remaining fields mean anything: PatientID and Hold are set only for
// SlotHeld. AppointmentID is the in-memory link to the holding appointment;
// it is not part of the wire format and is reattached on load.
type Slot struct {
	State         SlotState
	PatientID     string
	Hold          HoldStatus
	AppointmentID string
}

// HeldSlot builds an occupied slot value.
func HeldSlot(patientID string, hold HoldStatus, appointmentID string) Slot {
	return Slot{State: SlotHeld, PatientID: patientID, Hold: hold, AppointmentID: appointmentID}
}

// EncodeSlot renders a slot in the wire format: the literals "Available" and
// "Unavailable", or "<patientID>-<SUBSTATUS>" for a held slot.
func EncodeSlot(s Slot) string {
	switch s.State {
	case SlotBlocked:
		return wireUnavailable
	case SlotHeld:
		return s.PatientID + holdSeparator + string(s.Hold)
	default:
		return wireAvailable
	}
}

// ParseSlot is the inverse of EncodeSlot. The appointment link is not carried
// on the wire, so the returned slot has an empty AppointmentID; the ledger
// reattaches it against the appointment list.
func ParseSlot(raw string) (Slot, error) {
	switch raw {
	case wireAvailable:
		return Slot{State: SlotFree}, nil
	case wireUnavailable:
		return Slot{State: SlotBlocked}, nil
	}

	patientID, sub, ok := strings.Cut(raw, holdSeparator)
	if !ok || patientID == "" {
		return Slot{}, fmt.Errorf("malformed slot value %q", raw)
	}
	switch HoldStatus(sub) {
	case HoldPending, HoldConfirmed:
		return HeldSlot(patientID, HoldStatus(sub), ""), nil
	}
	return Slot{}, fmt.Errorf("malformed slot value %q: unknown sub-status %q", raw, sub)
}

// SessionDay is one practitioner's timetable for one calendar date. Slots are
// positional: index i is the i-th hour-long interval starting at DayStartHour.
// This layer does not bound-check slot indexes; callers validate 1..SlotCount.
type SessionDay struct {
	PractitionerID string
	Date           time.Time
	Slots          [SlotCount]Slot
}

// NewSessionDay returns a day with every slot free.
func NewSessionDay(practitionerID string, date time.Time) *SessionDay {
	return &SessionDay{PractitionerID: practitionerID, Date: date}
}

// SlotStart returns the wall-clock start of a 1-based slot on the given date.
func SlotStart(date time.Time, slot int) time.Time {
	return date.Add(time.Duration(DayStartHour+slot-1) * time.Hour)
}

// SlotLabel renders the interval of a 1-based slot, e.g. "09:00-10:00".
func SlotLabel(slot int) string {
	start := DayStartHour + slot - 1
	return fmt.Sprintf("%02d:00-%02d:00", start, start+1)
}

// ParseDate parses a dd/MM/yyyy calendar date to midnight UTC. All dates in
// the system are built through here so they compare and map-key cleanly.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed date %q: want dd/MM/yyyy", s)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "PENDING"
	StatusConfirmed AppointmentStatus = "CONFIRMED"
	StatusCancelled AppointmentStatus = "CANCELLED"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusNoShow    AppointmentStatus = "NO_SHOW"
)

// Active reports whether the appointment still occupies a slot.
func (s AppointmentStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal reports whether the status is final. Terminal records never
// correspond to an occupied slot.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusNoShow
}

// Appointment is the authoritative booking record, independent of slot
// storage. Slot is 1-based. Records are never deleted, so IDs are never
// reused.
type Appointment struct {
	ID             string
	PatientID      string
	PractitionerID string
	Date           time.Time
	Slot           int
	Status         AppointmentStatus
}

type Role string

const (
	RolePatient      Role = "patient"
	RolePractitioner Role = "practitioner"
)

type User struct {
	ID   string
	Name string
	Role Role
}

type DispenseStatus string

const (
	DispensePending DispenseStatus = "PENDING"
	Dispensed       DispenseStatus = "DISPENSED"
)

// PrescriptionLine is one medication item on an outcome record. Dispensing is
// handled by the inventory collaborator, not here.
type PrescriptionLine struct {
	MedicationID string
	Name         string
	Quantity     int
}

// OutcomeRecord is the terminal visit record, created only when an
// appointment completes. No-shows produce no outcome record.
type OutcomeRecord struct {
	AppointmentID string
	ServiceType   string
	Notes         string
	Diagnosis     string
	Treatment     string
	Prescriptions []PrescriptionLine
	Dispense      DispenseStatus
}
