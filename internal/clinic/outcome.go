package clinic

import (
	"errors"
	"time"
)

var (
	ErrNotYetOccurred  = errors.New("appointment has not yet occurred")
	ErrOutcomeNotFound = errors.New("no outcome record for this appointment")
)

// StockChecker is the inventory collaborator's surface from here: it answers
// whether a prescription line can be filled right now. Stock bookkeeping
// itself lives elsewhere.
type StockChecker interface {
	InStock(medicationID string, quantity int) bool
}

// AllowAllStock is used when no inventory collaborator is wired in.
type AllowAllStock struct{}

func (AllowAllStock) InStock(string, int) bool { return true }

// VisitDetails carries the free-text and prescription content of a completed
// visit.
type VisitDetails struct {
	ServiceType   string
	Notes         string
	Diagnosis     string
	Treatment     string
	Prescriptions []PrescriptionLine
}

// outcomeGate checks the preconditions shared by both outcomes: the record
// must be CONFIRMED (a terminal record is never recordable again) and the
// slot's scheduled time must have passed. now is injected by the caller.
func (l *Ledger) outcomeGate(id string, now time.Time) (*Appointment, error) {
	appt, err := l.AppointmentByID(id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusConfirmed {
		return nil, ErrNotActionable
	}
	if now.Before(SlotStart(appt.Date, appt.Slot)) {
		return nil, ErrNotYetOccurred
	}
	return appt, nil
}

// RecordCompleted closes a confirmed, elapsed appointment as COMPLETED and
// creates its outcome record with dispensing still pending. Prescription
// lines the inventory cannot fill are dropped from the record and returned so
// the caller can report them; the rest of the visit is recorded regardless.
// The slot is freed: terminal records never leave an occupied slot behind.
func (l *Ledger) RecordCompleted(id string, now time.Time, stock StockChecker, visit VisitDetails) (*OutcomeRecord, []PrescriptionLine, error) {
	appt, err := l.outcomeGate(id, now)
	if err != nil {
		return nil, nil, err
	}
	if stock == nil {
		stock = AllowAllStock{}
	}

	var accepted, rejected []PrescriptionLine
	for _, line := range visit.Prescriptions {
		if stock.InStock(line.MedicationID, line.Quantity) {
			accepted = append(accepted, line)
		} else {
			rejected = append(rejected, line)
		}
	}

	rec := &OutcomeRecord{
		AppointmentID: appt.ID,
		ServiceType:   visit.ServiceType,
		Notes:         visit.Notes,
		Diagnosis:     visit.Diagnosis,
		Treatment:     visit.Treatment,
		Prescriptions: accepted,
		Dispense:      DispensePending,
	}

	l.releaseSlot(appt)
	appt.Status = StatusCompleted
	l.outcomes = append(l.outcomes, rec)
	return rec, rejected, nil
}

// RecordNoShow closes a confirmed, elapsed appointment as NO_SHOW. No outcome
// record is created; the slot is freed.
func (l *Ledger) RecordNoShow(id string, now time.Time) (*Appointment, error) {
	appt, err := l.outcomeGate(id, now)
	if err != nil {
		return nil, err
	}
	l.releaseSlot(appt)
	appt.Status = StatusNoShow
	return appt, nil
}
