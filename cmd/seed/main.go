package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careslot/appointment-booking/internal/db"
	"github.com/careslot/appointment-booking/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	doctors, err := seedDoctors(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	patients, err := seedPatients(context.Background(), pool, 5000)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedTemplates(context.Background(), pool, doctors); err != nil {
		log.Fatalf("seed availability: %v", err)
	}
	if err := seedWindows(context.Background(), pool, doctors); err != nil {
		log.Fatalf("seed unavailability: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, doctors, patients); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d patients", count)

	const batchSize = 500
	ids := make([]uuid.UUID, 0, count)

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return ids, nil
}

// seedTemplates gives every doctor a Monday-Friday week with a morning
// and an afternoon block.
func seedTemplates(ctx context.Context, pool *pgxpool.Pool, doctors []uuid.UUID) error {
	log.Printf("seeding weekly availability for %d doctors", len(doctors))

	type block struct {
		period   string
		startMin int
		endMin   int
	}
	blocks := []block{
		{schedule.PeriodMorning, 8*60 + 30, 12*60 + 30},
		{schedule.PeriodAfternoon, 14 * 60, 18 * 60},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, doctorID := range doctors {
		for day := schedule.Monday; day <= schedule.Friday; day++ {
			for _, b := range blocks {
				// roughly one block in ten starts deactivated
				active := gofakeit.Number(0, 9) > 0
				_, err := tx.Exec(ctx, `
					INSERT INTO availability_templates (doctor_id, day_of_week, period, start_min, end_min, active, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $6, now(), now())
				`, doctorID, int(day), b.period, b.startMin, b.endMin, active)
				if err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("availability seeded")
	return nil
}

func seedWindows(ctx context.Context, pool *pgxpool.Pool, doctors []uuid.UUID) error {
	log.Println("seeding unavailability windows")

	reasons := []string{"vacation", "conference", "training", "personal leave"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	for _, doctorID := range doctors {
		// about a third of doctors get one upcoming absence
		if gofakeit.Number(0, 2) != 0 {
			continue
		}
		start := now.AddDate(0, 0, gofakeit.Number(3, 40))
		end := start.AddDate(0, 0, gofakeit.Number(1, 5))
		reason := reasons[gofakeit.Number(0, len(reasons)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO unavailability_windows (id, doctor_id, start_at, end_at, reason, created_at)
			VALUES ($1, $2, $3, $4, $5, now())
		`, uuid.New(), doctorID, start, end, reason)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// seedAppointments books a handful of upcoming slots per doctor so the
// calendar is not empty. Bookings land on the half hour inside the
// morning block; collisions with the exclusion constraint are skipped.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, doctors, patients []uuid.UUID) error {
	log.Println("seeding appointments")

	reasons := []string{"checkup", "follow-up", "consultation", "vaccination", "test results"}
	statuses := []string{"pending", "confirmed"}

	inserted := 0
	for _, doctorID := range doctors {
		for i := 0; i < gofakeit.Number(2, 6); i++ {
			patientID := patients[gofakeit.Number(0, len(patients)-1)]

			day := time.Now().AddDate(0, 0, gofakeit.Number(1, 30))
			start := time.Date(day.Year(), day.Month(), day.Day(),
				9+gofakeit.Number(0, 2), 30*gofakeit.Number(0, 1), 0, 0, day.Location())
			end := start.Add(30 * time.Minute)

			status := statuses[gofakeit.Number(0, 1)]
			reason := reasons[gofakeit.Number(0, len(reasons)-1)]

			var confirmedBy *uuid.UUID
			if status == "confirmed" {
				confirmedBy = &doctorID
			}

			_, err := pool.Exec(ctx, `
				INSERT INTO appointments (id, doctor_id, patient_id, booked_by, start_at, end_at, status, reason, confirmed_by, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
			`, uuid.New(), doctorID, patientID, patientID, start, end, status, reason, confirmedBy)
			if err != nil {
				// overlapping seed picks trip the exclusion constraint
				continue
			}
			inserted++
		}
	}

	log.Printf("appointments seeded: %d", inserted)
	return nil
}
