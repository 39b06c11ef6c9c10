package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tidianefall/cliniq-api/internal/domain"
	"github.com/tidianefall/cliniq-api/internal/domain/entity"
	"github.com/tidianefall/cliniq-api/internal/domain/repository"
)

var _ repository.PatientRepository = (*PatientRepo)(nil)

// PatientRepo implémentation de PatientRepository (utilisable avec pool ou tx).
type PatientRepo struct {
	q Querier
}

// NewPatientRepository construit l'adaptateur. Passer pool ou tx (Querier).
func NewPatientRepository(q Querier) *PatientRepo {
	return &PatientRepo{q: q}
}

const patientColumns = `id, clinic_id, first_name, last_name, COALESCE(phone, ''), created_at, updated_at`

// Create persiste un patient.
func (r *PatientRepo) Create(ctx context.Context, patient *entity.Patient) error {
	if patient.ID == "" {
		patient.ID = uuid.New().String()
	}
	query := `
		INSERT INTO patients (id, clinic_id, first_name, last_name, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		patient.ID, patient.ClinicID, patient.FirstName, patient.LastName,
		nullIfEmpty(patient.Phone), patient.CreatedAt, patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

// GetByID lecture interne sans filtre tenant (résolution de la clinique à la
// création de facture).
func (r *PatientRepo) GetByID(ctx context.Context, id string) (*entity.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, id))
}

// GetScoped combine id et clinic_id dans la même requête.
func (r *PatientRepo) GetScoped(ctx context.Context, scope domain.TenantScope, id string) (*entity.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	args := []any{id}
	if scope.Filtered() {
		query += ` AND clinic_id = $2`
		args = append(args, scope.ClinicID)
	}
	return r.scanOne(r.q.QueryRow(ctx, query, args...))
}

// List liste les patients du scope.
func (r *PatientRepo) List(ctx context.Context, scope domain.TenantScope, limit, offset int) ([]*entity.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients`
	args := []any{}
	if scope.Filtered() {
		query += ` WHERE clinic_id = $1`
		args = append(args, scope.ClinicID)
	}
	query += fmt.Sprintf(` ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()
	var patients []*entity.Patient
	for rows.Next() {
		var p entity.Patient
		if err := rows.Scan(&p.ID, &p.ClinicID, &p.FirstName, &p.LastName, &p.Phone,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		patients = append(patients, &p)
	}
	return patients, rows.Err()
}

func (r *PatientRepo) scanOne(row pgx.Row) (*entity.Patient, error) {
	var p entity.Patient
	err := row.Scan(&p.ID, &p.ClinicID, &p.FirstName, &p.LastName, &p.Phone,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return &p, nil
}
