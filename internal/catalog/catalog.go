// Package catalog is the SQLite-backed store for the clinic's service
// offerings and appointment reservations.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/voxloop/voxd/internal/catalog/migrations"
	"github.com/voxloop/voxd/internal/logging"
)

// Service is one bookable clinic service.
type Service struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	DurationMinutes    int     `json:"durationMinutes"`
	Price              float64 `json:"price"`
	Description        string  `json:"description"`
	WhatIsIncluded     string  `json:"whatIsIncluded"`
	HowItsDone         string  `json:"howItsDone"`
	SpecialPreparation string  `json:"specialPreparation,omitempty"`
}

// Reservation is a booked appointment for a service.
type Reservation struct {
	ID          string    `json:"id"`
	ServiceID   string    `json:"serviceId"`
	Date        string    `json:"date"` // YYYY-MM-DD
	Time        string    `json:"time"` // HH:MM
	PatientName string    `json:"patientName"`
	PatientDOB  string    `json:"patientDOB"` // YYYY-MM-DD
	Status      string    `json:"status"`     // confirmed, cancelled, completed
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store wraps the single serialized SQLite connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog database at path, applies
// migrations, and returns the store.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite doesn't handle concurrent writers well; serialize all access
	// through a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logging.Infof("catalog database ready at %s", path)
	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ListServices returns all bookable services.
func (s *Store) ListServices(ctx context.Context) ([]Service, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, duration_minutes, price, description,
		       what_is_included, how_its_done, COALESCE(special_preparation, '')
		FROM services ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var out []Service
	for rows.Next() {
		var svc Service
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.DurationMinutes, &svc.Price,
			&svc.Description, &svc.WhatIsIncluded, &svc.HowItsDone, &svc.SpecialPreparation); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

// GetService returns one service by id, or sql.ErrNoRows.
func (s *Store) GetService(ctx context.Context, id string) (Service, error) {
	var svc Service
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, duration_minutes, price, description,
		       what_is_included, how_its_done, COALESCE(special_preparation, '')
		FROM services WHERE id = ?`, id).
		Scan(&svc.ID, &svc.Name, &svc.DurationMinutes, &svc.Price,
			&svc.Description, &svc.WhatIsIncluded, &svc.HowItsDone, &svc.SpecialPreparation)
	if err != nil {
		return Service{}, err
	}
	return svc, nil
}

// ReservationParams are the caller-supplied fields of a new reservation.
type ReservationParams struct {
	ServiceID   string
	Date        string
	Time        string
	PatientName string
	PatientDOB  string
	Notes       string
}

// CreateReservation books an appointment. The service must exist.
func (s *Store) CreateReservation(ctx context.Context, p ReservationParams) (Reservation, error) {
	if _, err := s.GetService(ctx, p.ServiceID); err != nil {
		return Reservation{}, fmt.Errorf("service %q: %w", p.ServiceID, err)
	}

	r := Reservation{
		ID:          uuid.New().String(),
		ServiceID:   p.ServiceID,
		Date:        p.Date,
		Time:        p.Time,
		PatientName: p.PatientName,
		PatientDOB:  p.PatientDOB,
		Status:      "confirmed",
		Notes:       p.Notes,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reservations (id, service_id, date, time, patient_name, patient_dob, status, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ServiceID, r.Date, r.Time, r.PatientName, r.PatientDOB, r.Status, r.Notes,
		r.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Reservation{}, fmt.Errorf("insert reservation: %w", err)
	}
	return r, nil
}

// ListReservations returns all reservations, newest first.
func (s *Store) ListReservations(ctx context.Context) ([]Reservation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, service_id, date, time, patient_name, patient_dob, status, COALESCE(notes, ''), created_at
		FROM reservations ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		var r Reservation
		var created string
		if err := rows.Scan(&r.ID, &r.ServiceID, &r.Date, &r.Time, &r.PatientName,
			&r.PatientDOB, &r.Status, &r.Notes, &created); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			r.CreatedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
