package postgres

import (
	"context"
	"fmt"

	"github.com/tidianefall/cliniq-api/internal/domain/repository"
)

var _ repository.CounterRepository = (*CounterRepo)(nil)

// CounterRepo compteur atomique par périmètre de numérotation, stocké dans la
// table counters. L'upsert-increment avec RETURNING fait l'allocation en un
// seul aller-retour: deux appels concurrents sur la même clé sont sérialisés
// par le verrou de ligne et reçoivent des valeurs distinctes.
type CounterRepo struct {
	q Querier
}

// NewCounterRepository construit l'adaptateur. Passer pool ou tx (Querier).
func NewCounterRepository(q Querier) *CounterRepo {
	return &CounterRepo{q: q}
}

// Next incrémente et retourne la valeur du compteur de la clé donnée.
// La première allocation d'une clé retourne 1.
func (r *CounterRepo) Next(ctx context.Context, scopeKey string) (int64, error) {
	query := `
		INSERT INTO counters (scope_key, value) VALUES ($1, 1)
		ON CONFLICT (scope_key) DO UPDATE SET value = counters.value + 1
		RETURNING value`
	var value int64
	if err := r.q.QueryRow(ctx, query, scopeKey).Scan(&value); err != nil {
		return 0, fmt.Errorf("next counter %s: %w", scopeKey, err)
	}
	return value, nil
}
