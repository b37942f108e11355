package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
)

// LedgerRepository define el puerto para las filas de estado actual del stock.
// Usado dentro de transacciones para garantizar consistencia con el libro.
type LedgerRepository interface {
	// Get lectura sin lock. Devuelve nil si la posición nunca fue posteada
	// (estado válido, no error).
	Get(ctx context.Context, key entity.LedgerKey) (*entity.StockLedger, error)

	// GetForUpdate bloquea la fila de la posición (SELECT FOR UPDATE) y la
	// devuelve; si no existe la crea en cero dentro del mismo alcance del lock,
	// para que dos primeros postings concurrentes no dupliquen la fila.
	GetForUpdate(ctx context.Context, key entity.LedgerKey) (*entity.StockLedger, error)

	// FindReservableForUpdate busca, entre las posiciones con lote del ítem en
	// la bodega, una con neto disponible >= quantity, en orden FEFO
	// (vencimiento más próximo primero, luego id de lote) y la bloquea.
	// Devuelve nil si ninguna posición alcanza.
	FindReservableForUpdate(ctx context.Context, organizationID, itemID, warehouseID string, quantity decimal.Decimal) (*entity.StockLedger, error)

	Save(ctx context.Context, row *entity.StockLedger) error

	ListByItem(ctx context.Context, organizationID, itemID string) ([]*entity.StockLedger, error)
	ListByWarehouse(ctx context.Context, organizationID, warehouseID string, limit, offset int) ([]*entity.StockLedger, error)
}
