package repository

import (
	"context"

	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
)

// TransactionRepository define el puerto de persistencia para el libro de
// movimientos (append-only). A propósito NO expone Update ni Delete: el único
// cambio legal sobre un hecho existente es persistir su anulación.
type TransactionRepository interface {
	Create(ctx context.Context, tx *entity.StockTransaction) error
	GetByID(ctx context.Context, organizationID, id string) (*entity.StockTransaction, error)
	// SaveCancellation persiste únicamente el flag de anulación y su razón
	// (el hecho ya debe venir marcado vía MarkCancelled).
	SaveCancellation(ctx context.Context, tx *entity.StockTransaction) error
	ListByKey(ctx context.Context, key entity.LedgerKey, limit, offset int) ([]*entity.StockTransaction, error)
	ListByReference(ctx context.Context, organizationID, referenceKind, referenceID string) ([]*entity.StockTransaction, error)
}
