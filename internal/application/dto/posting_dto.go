package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// PostTransactionRequest body para POST /api/v1/stock/transactions.
// Quantity es firmada: positiva entra stock, negativa sale.
type PostTransactionRequest struct {
	Kind          string          `json:"kind" validate:"required,oneof=RECEIPT ISSUE ADJUSTMENT TRANSFER"`
	ItemID        string          `json:"item_id" validate:"required,uuid"`
	WarehouseID   string          `json:"warehouse_id" validate:"required,uuid"`
	BatchID       *string         `json:"batch_id,omitempty" validate:"omitempty,uuid"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	ReferenceKind string          `json:"reference_kind" validate:"required,min=1,max=50"`
	ReferenceID   string          `json:"reference_id" validate:"required,min=1,max=100"`
}

// CancelTransactionRequest body para POST /api/v1/stock/transactions/:id/cancel.
type CancelTransactionRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=500"`
}

// ReserveStockRequest body para POST /api/v1/stock/reservations.
// BatchID es opcional: si el ítem es loteado y no se indica, el motor elige
// la posición en orden FEFO y devuelve el lote elegido.
type ReserveStockRequest struct {
	ItemID        string          `json:"item_id" validate:"required,uuid"`
	WarehouseID   string          `json:"warehouse_id" validate:"required,uuid"`
	BatchID       *string         `json:"batch_id,omitempty" validate:"omitempty,uuid"`
	Quantity      decimal.Decimal `json:"quantity"`
	ReferenceKind string          `json:"reference_kind" validate:"required,min=1,max=50"`
	ReferenceID   string          `json:"reference_id" validate:"required,min=1,max=100"`
}

// ReleaseStockRequest body para POST /api/v1/stock/releases.
type ReleaseStockRequest struct {
	ItemID      string          `json:"item_id" validate:"required,uuid"`
	WarehouseID string          `json:"warehouse_id" validate:"required,uuid"`
	BatchID     *string         `json:"batch_id,omitempty" validate:"omitempty,uuid"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// ReserveStockResponse salida de una reserva: el lote sobre el que quedó.
type ReserveStockResponse struct {
	BatchID *string `json:"batch_id"`
}

// TransactionResponse salida de un hecho del libro de movimientos.
type TransactionResponse struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	Kind           string          `json:"kind"`
	ItemID         string          `json:"item_id"`
	WarehouseID    string          `json:"warehouse_id"`
	BatchID        *string         `json:"batch_id,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	TotalValue     decimal.Decimal `json:"total_value"`
	ReferenceKind  string          `json:"reference_kind"`
	ReferenceID    string          `json:"reference_id"`
	BalanceAfter   decimal.Decimal `json:"balance_after"`
	Cancelled      bool            `json:"cancelled"`
	CancelReason   string          `json:"cancel_reason,omitempty"`
	CreatedBy      string          `json:"created_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// TransactionListResponse lista paginada de hechos.
type TransactionListResponse struct {
	Items []TransactionResponse `json:"items"`
	Page  PageResponse          `json:"page"`
}

// StockResponse salida de GET stock de una posición.
type StockResponse struct {
	ItemID       string          `json:"item_id"`
	WarehouseID  string          `json:"warehouse_id"`
	BatchID      *string         `json:"batch_id,omitempty"`
	Available    decimal.Decimal `json:"available"`
	Reserved     decimal.Decimal `json:"reserved"`
	InTransit    decimal.Decimal `json:"in_transit"`
	NetAvailable decimal.Decimal `json:"net_available"`
}
