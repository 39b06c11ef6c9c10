package billing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidianefall/cliniq-api/internal/domain/repository"
)

// DefaultClinicCode code utilisé dans les numéros quand la clinique n'a pas
// de code configuré.
const DefaultClinicCode = "CLINIC"

// maxNumberAttempts borne la boucle de régénération en cas de collision.
const maxNumberAttempts = 25

// SequenceNumberGenerator produit des identifiants lisibles, croissants et
// vérifiés sans collision: numéros de facture FAC-CODE-YYYYMM-NNNN (périmètre
// mensuel par clinique) et références d'opération OP-DD-MM-YYYY-NNN (périmètre
// journalier).
//
// Chemin principal: un compteur atomique par périmètre (upsert-increment SQL),
// qui élimine la course lecture-puis-écriture. Chemin de repli quand le
// compteur est indisponible: scan du dernier numéro existant du périmètre,
// incrément du suffixe, et régénération si l'identifiant formé existe déjà.
type SequenceNumberGenerator struct {
	counters   repository.CounterRepository
	invoices   repository.InvoiceRepository
	operations repository.OperationRepository
	now        func() time.Time
}

// NewSequenceNumberGenerator construit le générateur. counters peut être nil:
// seul le chemin de repli est alors utilisé.
func NewSequenceNumberGenerator(
	counters repository.CounterRepository,
	invoices repository.InvoiceRepository,
	operations repository.OperationRepository,
) *SequenceNumberGenerator {
	return &SequenceNumberGenerator{
		counters:   counters,
		invoices:   invoices,
		operations: operations,
		now:        time.Now,
	}
}

// InvoiceNumber génère un numéro de facture unique pour le mois courant et le
// code clinique donné.
func (g *SequenceNumberGenerator) InvoiceNumber(ctx context.Context, clinicCode string) (string, error) {
	if clinicCode == "" {
		clinicCode = DefaultClinicCode
	}
	now := g.now()
	prefix := fmt.Sprintf("FAC-%s-%d%02d", clinicCode, now.Year(), int(now.Month()))
	return g.generate(ctx, prefix, 4, g.invoices.LastNumberWithPrefix, g.invoices.NumberExists)
}

// OperationReference génère une référence d'opération unique pour le jour courant.
func (g *SequenceNumberGenerator) OperationReference(ctx context.Context) (string, error) {
	now := g.now()
	prefix := fmt.Sprintf("OP-%02d-%02d-%d", now.Day(), int(now.Month()), now.Year())
	return g.generate(ctx, prefix, 3, g.operations.LastReferenceWithPrefix, g.operations.ReferenceExists)
}

// generate forme prefix-NNN..N et vérifie l'unicité avant de retourner.
// En cas de collision (données existantes en avance sur le compteur, ou course
// sur le chemin de repli), on régénère au lieu d'échouer.
func (g *SequenceNumberGenerator) generate(
	ctx context.Context,
	prefix string,
	width int,
	lastWithPrefix func(ctx context.Context, prefix string) (string, error),
	exists func(ctx context.Context, id string) (bool, error),
) (string, error) {
	var scanNext int64 // prochain suffixe du chemin de repli, avance à chaque collision
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		var seq int64
		if g.counters != nil {
			n, err := g.counters.Next(ctx, prefix)
			if err == nil {
				seq = n
			}
		}
		if seq == 0 {
			// Repli: scanner le dernier identifiant du périmètre.
			if scanNext == 0 {
				last, err := lastWithPrefix(ctx, prefix)
				if err != nil {
					return "", fmt.Errorf("dernier numéro du périmètre %s: %w", prefix, err)
				}
				scanNext = parseSuffix(last) + 1
			}
			seq = scanNext
			scanNext++
		}

		candidate := fmt.Sprintf("%s-%0*d", prefix, width, seq)
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("vérifier l'unicité de %s: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		// Collision: le compteur comme le scan avancent, on retente.
	}
	return "", fmt.Errorf("numérotation: impossible de générer un identifiant unique pour %s", prefix)
}

// parseSuffix extrait le suffixe numérique après le dernier tiret; 0 si absent.
func parseSuffix(id string) int64 {
	if id == "" {
		return 0
	}
	idx := strings.LastIndex(id, "-")
	if idx < 0 || idx == len(id)-1 {
		return 0
	}
	n, err := strconv.ParseInt(id[idx+1:], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
