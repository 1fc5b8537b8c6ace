package clinic

import "context"

// Store is the persistence collaborator's contract: whole collections in,
// whole collections out, full overwrite on every save. There is no partial
// update and no transaction across the two collections; the service layer
// keeps them consistent by mutating a Ledger built from a fresh load and
// writing everything back.
type Store interface {
	LoadSessionDays(ctx context.Context) ([]*SessionDay, error)
	SaveSessionDays(ctx context.Context, days []*SessionDay) error

	LoadAppointments(ctx context.Context) ([]*Appointment, error)
	SaveAppointments(ctx context.Context, appointments []*Appointment) error

	// User lists are read-only from this subsystem's perspective.
	LoadPractitioners(ctx context.Context) ([]User, error)
	LoadPatients(ctx context.Context) ([]User, error)

	LoadOutcomeRecords(ctx context.Context) ([]*OutcomeRecord, error)
	SaveOutcomeRecords(ctx context.Context, outcomes []*OutcomeRecord) error
}
