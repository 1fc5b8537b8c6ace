package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/clinicware/booking-ledger/internal/clinic"
)

// File names inside the data directory.
const (
	sessionsFile      = "sessions.txt"
	appointmentsFile  = "appointments.txt"
	practitionersFile = "practitioners.txt"
	patientsFile      = "patients.txt"
	outcomesFile      = "outcomes.txt"
)

// FileStore persists every collection as a pipe-delimited flat file and
// rewrites the whole file on every save. Dates are dd/MM/yyyy and slot cells
// use the exact wire encoding ("Available", "Unavailable",
// "<patientID>-<SUBSTATUS>"), so the files stay readable by anything that
// speaks the original row format. There is no atomic rename: an interrupted
// write can leave a file truncated, which is all the contract promises.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// readRows loads all rows of one file. A missing file is an empty collection,
// not an error: the first run starts with nothing on disk.
func (f *FileStore) readRows(name string) ([][]string, error) {
	file, err := os.Open(filepath.Join(f.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.Comma = '|'
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return rows, nil
}

func (f *FileStore) writeRows(name string, rows [][]string) error {
	file, err := os.Create(filepath.Join(f.dir, name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	w := csv.NewWriter(file)
	w.Comma = '|'
	if err := w.WriteAll(rows); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return nil
}

// Session day rows: practitionerID|date|slot1|...|slot8.

func (f *FileStore) LoadSessionDays(context.Context) ([]*clinic.SessionDay, error) {
	rows, err := f.readRows(sessionsFile)
	if err != nil {
		return nil, err
	}
	days := make([]*clinic.SessionDay, 0, len(rows))
	for _, row := range rows {
		if len(row) != 2+clinic.SlotCount {
			return nil, fmt.Errorf("%s: malformed row %q", sessionsFile, strings.Join(row, "|"))
		}
		date, err := clinic.ParseDate(row[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sessionsFile, err)
		}
		day := clinic.NewSessionDay(row[0], date)
		for i := 0; i < clinic.SlotCount; i++ {
			slot, err := clinic.ParseSlot(row[2+i])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", sessionsFile, err)
			}
			day.Slots[i] = slot
		}
		days = append(days, day)
	}
	return days, nil
}

func (f *FileStore) SaveSessionDays(_ context.Context, days []*clinic.SessionDay) error {
	rows := make([][]string, 0, len(days))
	for _, d := range days {
		row := make([]string, 0, 2+clinic.SlotCount)
		row = append(row, d.PractitionerID, clinic.FormatDate(d.Date))
		for i := range d.Slots {
			row = append(row, clinic.EncodeSlot(d.Slots[i]))
		}
		rows = append(rows, row)
	}
	return f.writeRows(sessionsFile, rows)
}

// Appointment rows: ID|patientID|practitionerID|date|slot|status.

func (f *FileStore) LoadAppointments(context.Context) ([]*clinic.Appointment, error) {
	rows, err := f.readRows(appointmentsFile)
	if err != nil {
		return nil, err
	}
	appts := make([]*clinic.Appointment, 0, len(rows))
	for _, row := range rows {
		if len(row) != 6 {
			return nil, fmt.Errorf("%s: malformed row %q", appointmentsFile, strings.Join(row, "|"))
		}
		date, err := clinic.ParseDate(row[3])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", appointmentsFile, err)
		}
		slot, err := strconv.Atoi(row[4])
		if err != nil {
			return nil, fmt.Errorf("%s: bad slot %q", appointmentsFile, row[4])
		}
		appts = append(appts, &clinic.Appointment{
			ID:             row[0],
			PatientID:      row[1],
			PractitionerID: row[2],
			Date:           date,
			Slot:           slot,
			Status:         clinic.AppointmentStatus(row[5]),
		})
	}
	return appts, nil
}

func (f *FileStore) SaveAppointments(_ context.Context, appointments []*clinic.Appointment) error {
	rows := make([][]string, 0, len(appointments))
	for _, a := range appointments {
		rows = append(rows, []string{
			a.ID,
			a.PatientID,
			a.PractitionerID,
			clinic.FormatDate(a.Date),
			strconv.Itoa(a.Slot),
			string(a.Status),
		})
	}
	return f.writeRows(appointmentsFile, rows)
}

// User rows: ID|name. The role is implied by which file a user sits in.

func (f *FileStore) loadUsers(name string, role clinic.Role) ([]clinic.User, error) {
	rows, err := f.readRows(name)
	if err != nil {
		return nil, err
	}
	users := make([]clinic.User, 0, len(rows))
	for _, row := range rows {
		if len(row) != 2 {
			return nil, fmt.Errorf("%s: malformed row %q", name, strings.Join(row, "|"))
		}
		users = append(users, clinic.User{ID: row[0], Name: row[1], Role: role})
	}
	return users, nil
}

func (f *FileStore) LoadPractitioners(context.Context) ([]clinic.User, error) {
	return f.loadUsers(practitionersFile, clinic.RolePractitioner)
}

func (f *FileStore) LoadPatients(context.Context) ([]clinic.User, error) {
	return f.loadUsers(patientsFile, clinic.RolePatient)
}

// SaveUsers writes one role's user file; seeding uses it, the booking core
// never does.
func (f *FileStore) SaveUsers(users []clinic.User, role clinic.Role) error {
	name := patientsFile
	if role == clinic.RolePractitioner {
		name = practitionersFile
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{u.ID, u.Name})
	}
	return f.writeRows(name, rows)
}

// Outcome rows: appointmentID|serviceType|notes|diagnosis|treatment|dispense|rx
// where rx is ";"-joined "medicationID:name:quantity" triples. Medication IDs
// and names must not contain ":" or ";".

func (f *FileStore) LoadOutcomeRecords(context.Context) ([]*clinic.OutcomeRecord, error) {
	rows, err := f.readRows(outcomesFile)
	if err != nil {
		return nil, err
	}
	outcomes := make([]*clinic.OutcomeRecord, 0, len(rows))
	for _, row := range rows {
		if len(row) != 7 {
			return nil, fmt.Errorf("%s: malformed row %q", outcomesFile, strings.Join(row, "|"))
		}
		lines, err := parsePrescriptions(row[6])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", outcomesFile, err)
		}
		outcomes = append(outcomes, &clinic.OutcomeRecord{
			AppointmentID: row[0],
			ServiceType:   row[1],
			Notes:         row[2],
			Diagnosis:     row[3],
			Treatment:     row[4],
			Dispense:      clinic.DispenseStatus(row[5]),
			Prescriptions: lines,
		})
	}
	return outcomes, nil
}

func (f *FileStore) SaveOutcomeRecords(_ context.Context, outcomes []*clinic.OutcomeRecord) error {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []string{
			o.AppointmentID,
			o.ServiceType,
			o.Notes,
			o.Diagnosis,
			o.Treatment,
			string(o.Dispense),
			formatPrescriptions(o.Prescriptions),
		})
	}
	return f.writeRows(outcomesFile, rows)
}

func formatPrescriptions(lines []clinic.PrescriptionLine) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, fmt.Sprintf("%s:%s:%d", l.MedicationID, l.Name, l.Quantity))
	}
	return strings.Join(parts, ";")
}

func parsePrescriptions(raw string) ([]clinic.PrescriptionLine, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ";")
	lines := make([]clinic.PrescriptionLine, 0, len(parts))
	for _, p := range parts {
		fields := strings.Split(p, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed prescription %q", p)
		}
		qty, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("malformed prescription quantity %q", fields[2])
		}
		lines = append(lines, clinic.PrescriptionLine{MedicationID: fields[0], Name: fields[1], Quantity: qty})
	}
	return lines, nil
}
