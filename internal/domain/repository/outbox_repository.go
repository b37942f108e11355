package repository

import (
	"context"

	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
)

// OutboxRepository define el puerto del outbox transaccional de eventos de stock.
// Create se invoca dentro de la misma transacción del posting.
type OutboxRepository interface {
	Create(ctx context.Context, event *entity.StockEvent) error
	ListPending(ctx context.Context, limit int) ([]*entity.StockEvent, error)
	MarkPublished(ctx context.Context, id string) error
}
