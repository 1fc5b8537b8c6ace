package clinic

import (
	"errors"
)

var ErrChoiceOutOfRange = errors.New("choice out of range")

// Workflow computes the candidate sets the interactive flows present and maps
// a user's 1-based menu choice back to a record. It never mutates anything
// itself; every state change goes through the ledger.
type Workflow struct {
	ledger *Ledger
}

func NewWorkflow(l *Ledger) *Workflow {
	return &Workflow{ledger: l}
}

// Reschedulable lists the patient's appointments eligible for rescheduling:
// PENDING or CONFIRMED, date-then-slot order.
func (w *Workflow) Reschedulable(patientID string) []*Appointment {
	return w.activeByPatient(patientID)
}

// Cancellable lists the patient's appointments eligible for cancellation,
// the same set as Reschedulable.
func (w *Workflow) Cancellable(patientID string) []*Appointment {
	return w.activeByPatient(patientID)
}

func (w *Workflow) activeByPatient(patientID string) []*Appointment {
	var out []*Appointment
	for _, a := range w.ledger.AppointmentsByPatient(patientID) {
		if a.Status.Active() {
			out = append(out, a)
		}
	}
	return out
}

// AwaitingDecision lists the practitioner's pending requests, the
// accept/decline candidate set.
func (w *Workflow) AwaitingDecision(practitionerID string) []*Appointment {
	return w.ledger.PendingByPractitioner(practitionerID)
}

// OutcomeEligible lists the practitioner's confirmed appointments, the only
// ones an outcome can be recorded for. Once a record goes terminal it drops
// out of this list, so a second recording attempt has nothing to select.
func (w *Workflow) OutcomeEligible(practitionerID string) []*Appointment {
	return w.ledger.ConfirmedByPractitioner(practitionerID)
}

// Choose maps a 1-based menu choice onto a candidate list.
func Choose(list []*Appointment, choice int) (*Appointment, error) {
	if choice < 1 || choice > len(list) {
		return nil, ErrChoiceOutOfRange
	}
	return list[choice-1], nil
}
