package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerKey identidad compuesta de una posición de stock:
// (organización, ítem, bodega, lote opcional). Inmutable.
type LedgerKey struct {
	OrganizationID string
	ItemID         string
	WarehouseID    string
	BatchID        *string // nil = posición sin lote
}

// StockLedger es la fila de estado actual derivada del libro de movimientos.
// A lo sumo una fila por LedgerKey; se crea perezosamente en el primer posting
// y nunca se borra (stock en cero es un estado válido, no un fin de vida).
// Solo el motor de posting y las reservas la mutan, siempre bajo lock de fila.
type StockLedger struct {
	OrganizationID    string
	ItemID            string
	WarehouseID       string
	BatchID           *string
	Available         decimal.Decimal // suma de hechos no anulados
	Reserved          decimal.Decimal // apartado blando, no toca el libro
	InTransit         decimal.Decimal // rastreado; este núcleo no lo muta
	UnitCost          decimal.Decimal // costo promedio ponderado
	LastTransactionID *string
	UpdatedAt         time.Time
}

// Key devuelve la identidad de la fila.
func (l *StockLedger) Key() LedgerKey {
	return LedgerKey{
		OrganizationID: l.OrganizationID,
		ItemID:         l.ItemID,
		WarehouseID:    l.WarehouseID,
		BatchID:        l.BatchID,
	}
}

// NetAvailable = disponible − reservado. Puede ser negativo si la bodega
// permite stock negativo.
func (l *StockLedger) NetAvailable() decimal.Decimal {
	return l.Available.Sub(l.Reserved)
}
