package posting

import (
	"context"

	"github.com/tu-usuario/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. Garantiza atomicidad para el motor de posting:
// hecho, fila del ledger y evento del outbox se confirman o revierten juntos.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		txRepo repository.TransactionRepository,
		ledgerRepo repository.LedgerRepository,
		outboxRepo repository.OutboxRepository,
	) error) error
}
