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

var _ repository.ClinicRepository = (*ClinicRepo)(nil)

// ClinicRepo implémentation de ClinicRepository (utilisable avec pool ou tx).
type ClinicRepo struct {
	q Querier
}

// NewClinicRepository construit l'adaptateur. Passer pool ou tx (Querier).
func NewClinicRepository(q Querier) *ClinicRepo {
	return &ClinicRepo{q: q}
}

const clinicColumns = `id, code, name, active, created_at, updated_at`

// Create persiste une clinique.
func (r *ClinicRepo) Create(ctx context.Context, clinic *entity.Clinic) error {
	if clinic.ID == "" {
		clinic.ID = uuid.New().String()
	}
	query := `
		INSERT INTO clinics (id, code, name, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query,
		clinic.ID, clinic.Code, clinic.Name, clinic.Active, clinic.CreatedAt, clinic.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("code clinique %s: %w", clinic.Code, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert clinic: %w", err)
	}
	return nil
}

// GetByID charge une clinique.
func (r *ClinicRepo) GetByID(ctx context.Context, id string) (*entity.Clinic, error) {
	query := `SELECT ` + clinicColumns + ` FROM clinics WHERE id = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, id))
}

// GetByCode charge une clinique par son code court.
func (r *ClinicRepo) GetByCode(ctx context.Context, code string) (*entity.Clinic, error) {
	query := `SELECT ` + clinicColumns + ` FROM clinics WHERE code = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, code))
}

// List liste toutes les cliniques (super_admin).
func (r *ClinicRepo) List(ctx context.Context) ([]*entity.Clinic, error) {
	rows, err := r.q.Query(ctx, `SELECT `+clinicColumns+` FROM clinics ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list clinics: %w", err)
	}
	defer rows.Close()
	var clinics []*entity.Clinic
	for rows.Next() {
		var c entity.Clinic
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan clinic: %w", err)
		}
		clinics = append(clinics, &c)
	}
	return clinics, rows.Err()
}

func (r *ClinicRepo) scanOne(row pgx.Row) (*entity.Clinic, error) {
	var c entity.Clinic
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get clinic: %w", err)
	}
	return &c, nil
}
