package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/clinicware/booking-ledger/internal/clinic"
	"github.com/clinicware/booking-ledger/internal/config"
	"github.com/clinicware/booking-ledger/internal/db"
	"github.com/clinicware/booking-ledger/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var (
		practitioners = flag.Int("practitioners", 5, "number of practitioners to generate")
		patients      = flag.Int("patients", 40, "number of patients to generate")
		days          = flag.Int("days", 7, "session days per practitioner, starting tomorrow")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()
	gofakeit.Seed(time.Now().UnixNano())

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		seedPostgres(ctx, cfg, *practitioners, *patients, *days)
	default:
		seedFiles(ctx, cfg, *practitioners, *patients, *days)
	}
	log.Println("seed complete")
}

func makeUsers(prefix string, role clinic.Role, count int) []clinic.User {
	users := make([]clinic.User, 0, count)
	for i := 1; i <= count; i++ {
		users = append(users, clinic.User{
			ID:   fmt.Sprintf("%s%d", prefix, i),
			Name: gofakeit.Name(),
			Role: role,
		})
	}
	return users
}

// makeSessionDays lays out blank all-available days starting tomorrow, with
// the occasional blocked slot so boards do not all look identical.
func makeSessionDays(practitioners []clinic.User, dayCount int) []*clinic.SessionDay {
	start, _ := clinic.ParseDate(clinic.FormatDate(time.Now().AddDate(0, 0, 1)))
	var out []*clinic.SessionDay
	for _, p := range practitioners {
		for d := 0; d < dayCount; d++ {
			day := clinic.NewSessionDay(p.ID, start.AddDate(0, 0, d))
			if gofakeit.Bool() {
				day.Slots[gofakeit.Number(0, clinic.SlotCount-1)] = clinic.Slot{State: clinic.SlotBlocked}
			}
			out = append(out, day)
		}
	}
	return out
}

func seedFiles(ctx context.Context, cfg config.Config, practitionerCount, patientCount, dayCount int) {
	fs, err := store.NewFileStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("file store error: %v", err)
	}

	practitioners := makeUsers("D", clinic.RolePractitioner, practitionerCount)
	patients := makeUsers("P", clinic.RolePatient, patientCount)

	if err := fs.SaveUsers(practitioners, clinic.RolePractitioner); err != nil {
		log.Fatalf("seed practitioners: %v", err)
	}
	if err := fs.SaveUsers(patients, clinic.RolePatient); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := fs.SaveSessionDays(ctx, makeSessionDays(practitioners, dayCount)); err != nil {
		log.Fatalf("seed session days: %v", err)
	}
	log.Printf("seeded data_dir=%s practitioners=%d patients=%d days=%d",
		cfg.DataDir, practitionerCount, patientCount, dayCount)
}

func seedPostgres(ctx context.Context, cfg config.Config, practitionerCount, patientCount, dayCount int) {
	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.Connect(connCtx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	pg := store.NewPgStore(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		log.Fatalf("schema error: %v", err)
	}

	practitioners := makeUsers("D", clinic.RolePractitioner, practitionerCount)
	patients := makeUsers("P", clinic.RolePatient, patientCount)

	if err := pg.SaveUsers(ctx, append(practitioners, patients...)); err != nil {
		log.Fatalf("seed users: %v", err)
	}
	if err := pg.SaveSessionDays(ctx, makeSessionDays(practitioners, dayCount)); err != nil {
		log.Fatalf("seed session days: %v", err)
	}
	log.Printf("seeded postgres practitioners=%d patients=%d days=%d",
		practitionerCount, patientCount, dayCount)
}
