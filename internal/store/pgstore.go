package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicware/booking-ledger/internal/clinic"
)

// PgStore implements the same whole-collection contract over Postgres: every
// save truncates the table and reinserts all rows in one transaction, which
// is the relational reading of "overwrite the whole file". Slot cells are
// stored in their wire encoding so the rows round-trip byte for byte.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureSchema creates the tables on first run.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS session_days (
			practitioner_id text NOT NULL,
			date            date NOT NULL,
			slots           text[] NOT NULL,
			PRIMARY KEY (practitioner_id, date)
		);
		CREATE TABLE IF NOT EXISTS appointments (
			id              text PRIMARY KEY,
			patient_id      text NOT NULL,
			practitioner_id text NOT NULL,
			date            date NOT NULL,
			slot            int  NOT NULL,
			status          text NOT NULL
		);
		CREATE TABLE IF NOT EXISTS users (
			id   text PRIMARY KEY,
			name text NOT NULL,
			role text NOT NULL
		);
		CREATE TABLE IF NOT EXISTS outcome_records (
			appointment_id text PRIMARY KEY,
			service_type   text NOT NULL,
			notes          text NOT NULL,
			diagnosis      text NOT NULL,
			treatment      text NOT NULL,
			dispense       text NOT NULL,
			prescriptions  jsonb NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// overwrite runs fn inside a transaction that starts by truncating the table.
func (s *PgStore) overwrite(ctx context.Context, table string, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "TRUNCATE "+table); err != nil {
		return fmt.Errorf("truncate %s: %w", table, err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}
	return nil
}

func (s *PgStore) LoadSessionDays(ctx context.Context) ([]*clinic.SessionDay, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT practitioner_id, date, slots
		FROM session_days
		ORDER BY practitioner_id, date
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []*clinic.SessionDay
	for rows.Next() {
		var (
			practitionerID string
			date           time.Time
			cells          []string
		)
		if err := rows.Scan(&practitionerID, &date, &cells); err != nil {
			return nil, err
		}
		if len(cells) != clinic.SlotCount {
			return nil, fmt.Errorf("session_days: row %s/%s has %d slots, want %d",
				practitionerID, clinic.FormatDate(date), len(cells), clinic.SlotCount)
		}
		day := clinic.NewSessionDay(practitionerID, date.UTC().Truncate(24*time.Hour))
		for i, cell := range cells {
			slot, err := clinic.ParseSlot(cell)
			if err != nil {
				return nil, fmt.Errorf("session_days: %w", err)
			}
			day.Slots[i] = slot
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

func (s *PgStore) SaveSessionDays(ctx context.Context, days []*clinic.SessionDay) error {
	return s.overwrite(ctx, "session_days", func(tx pgx.Tx) error {
		for _, d := range days {
			cells := make([]string, clinic.SlotCount)
			for i := range d.Slots {
				cells[i] = clinic.EncodeSlot(d.Slots[i])
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO session_days (practitioner_id, date, slots)
				VALUES ($1, $2, $3)
			`, d.PractitionerID, d.Date, cells)
			if err != nil {
				return fmt.Errorf("insert session day: %w", err)
			}
		}
		return nil
	})
}

func (s *PgStore) LoadAppointments(ctx context.Context) ([]*clinic.Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, patient_id, practitioner_id, date, slot, status
		FROM appointments
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []*clinic.Appointment
	for rows.Next() {
		var (
			a    clinic.Appointment
			date time.Time
		)
		if err := rows.Scan(&a.ID, &a.PatientID, &a.PractitionerID, &date, &a.Slot, &a.Status); err != nil {
			return nil, err
		}
		a.Date = date.UTC().Truncate(24 * time.Hour)
		appts = append(appts, &a)
	}
	return appts, rows.Err()
}

func (s *PgStore) SaveAppointments(ctx context.Context, appointments []*clinic.Appointment) error {
	return s.overwrite(ctx, "appointments", func(tx pgx.Tx) error {
		for _, a := range appointments {
			_, err := tx.Exec(ctx, `
				INSERT INTO appointments (id, patient_id, practitioner_id, date, slot, status)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, a.ID, a.PatientID, a.PractitionerID, a.Date, a.Slot, a.Status)
			if err != nil {
				return fmt.Errorf("insert appointment %s: %w", a.ID, err)
			}
		}
		return nil
	})
}

func (s *PgStore) loadUsers(ctx context.Context, role clinic.Role) ([]clinic.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, role
		FROM users
		WHERE role = $1
		ORDER BY id
	`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []clinic.User
	for rows.Next() {
		var u clinic.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Role); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PgStore) LoadPractitioners(ctx context.Context) ([]clinic.User, error) {
	return s.loadUsers(ctx, clinic.RolePractitioner)
}

func (s *PgStore) LoadPatients(ctx context.Context) ([]clinic.User, error) {
	return s.loadUsers(ctx, clinic.RolePatient)
}

// SaveUsers upserts users; seeding uses it, the booking core never does.
func (s *PgStore) SaveUsers(ctx context.Context, users []clinic.User) error {
	for _, u := range users {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO users (id, name, role)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role
		`, u.ID, u.Name, u.Role)
		if err != nil {
			return fmt.Errorf("upsert user %s: %w", u.ID, err)
		}
	}
	return nil
}

func (s *PgStore) LoadOutcomeRecords(ctx context.Context) ([]*clinic.OutcomeRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT appointment_id, service_type, notes, diagnosis, treatment, dispense, prescriptions
		FROM outcome_records
		ORDER BY appointment_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []*clinic.OutcomeRecord
	for rows.Next() {
		var (
			o  clinic.OutcomeRecord
			rx []byte
		)
		if err := rows.Scan(&o.AppointmentID, &o.ServiceType, &o.Notes, &o.Diagnosis, &o.Treatment, &o.Dispense, &rx); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rx, &o.Prescriptions); err != nil {
			return nil, fmt.Errorf("outcome_records: bad prescriptions for %s: %w", o.AppointmentID, err)
		}
		outcomes = append(outcomes, &o)
	}
	return outcomes, rows.Err()
}

func (s *PgStore) SaveOutcomeRecords(ctx context.Context, outcomes []*clinic.OutcomeRecord) error {
	return s.overwrite(ctx, "outcome_records", func(tx pgx.Tx) error {
		for _, o := range outcomes {
			rx, err := json.Marshal(o.Prescriptions)
			if err != nil {
				return fmt.Errorf("marshal prescriptions for %s: %w", o.AppointmentID, err)
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO outcome_records (appointment_id, service_type, notes, diagnosis, treatment, dispense, prescriptions)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, o.AppointmentID, o.ServiceType, o.Notes, o.Diagnosis, o.Treatment, o.Dispense, rx)
			if err != nil {
				return fmt.Errorf("insert outcome record %s: %w", o.AppointmentID, err)
			}
		}
		return nil
	})
}
