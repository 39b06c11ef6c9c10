package repository

import "context"

// CounterRepository compteur atomique par périmètre de numérotation.
// Next incrémente et retourne la valeur pour une clé de périmètre
// (ex: "FAC-ABC-202608" ou "OP-29-08-2026") en un seul aller-retour SQL,
// ce qui élimine la course lecture-puis-écriture de la numérotation.
type CounterRepository interface {
	Next(ctx context.Context, scopeKey string) (int64, error)
}
