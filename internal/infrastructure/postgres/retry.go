package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tidianefall/cliniq-api/internal/application/billing"
	"github.com/tidianefall/cliniq-api/pkg/logger"
)

var _ billing.Retryer = (*SchemaCacheRetryer)(nil)

// SchemaCacheRetryer rejoue une unité de travail exactement une fois quand
// l'erreur est un défaut transitoire de cache de schéma (PgBouncer/PostgREST
// pendant une migration: prepared statements invalidés, relation introuvable
// alors que la table existe). Entre les deux tentatives, les connexions du
// pool sont réinitialisées pour forcer une reconnexion propre.
type SchemaCacheRetryer struct {
	pool *pgxpool.Pool
	wait time.Duration
	log  *logger.Logger
}

// NewSchemaCacheRetryer construit le retryer. wait est l'attente avant la
// seconde tentative.
func NewSchemaCacheRetryer(pool *pgxpool.Pool, wait time.Duration, log *logger.Logger) *SchemaCacheRetryer {
	if wait <= 0 {
		wait = time.Second
	}
	return &SchemaCacheRetryer{pool: pool, wait: wait, log: log}
}

// Do exécute fn; en cas d'erreur de cache de schéma, réinitialise le pool,
// attend, et rejoue fn une seule fois. Toute autre erreur remonte inchangée.
func (r *SchemaCacheRetryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err == nil || !IsSchemaCacheError(err) {
		return err
	}

	if r.log != nil {
		r.log.Warn().Err(err).Msg("erreur de cache de schéma, reconnexion et nouvelle tentative")
	}
	if r.pool != nil {
		r.pool.Reset()
	}
	select {
	case <-time.After(r.wait):
	case <-ctx.Done():
		return ctx.Err()
	}
	return fn(ctx)
}

// IsSchemaCacheError classe une erreur comme défaut transitoire de cache de
// schéma. Couvre le code SQLSTATE 42P01 (undefined_table juste après une
// migration) et les messages texte des proxys qui maintiennent un cache de
// schéma.
func IsSchemaCacheError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
		return true
	}
	msg := err.Error()
	if strings.Contains(msg, "schema cache") {
		return true
	}
	if strings.Contains(msg, "Could not find the table") {
		return true
	}
	if strings.Contains(msg, "does not exist") && strings.Contains(msg, "relation") {
		return true
	}
	return false
}
