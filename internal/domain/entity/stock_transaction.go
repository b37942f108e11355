package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/stock-ledger/internal/domain"
)

// Tipos de transacción de stock. Cantidad positiva = entra stock, negativa = sale.
const (
	KindReceipt    TransactionKind = "RECEIPT"    // entrada (compra, recepción)
	KindIssue      TransactionKind = "ISSUE"      // salida (despacho, consumo)
	KindAdjustment TransactionKind = "ADJUSTMENT" // ajuste de inventario
	KindTransfer   TransactionKind = "TRANSFER"   // traslado entre bodegas
)

// Tipos de referencia al documento de negocio que originó el movimiento.
const (
	RefPurchaseOrder = "PURCHASE_ORDER"
	RefGoodsReceipt  = "GOODS_RECEIPT"
	RefWorkOrder     = "WORK_ORDER"
	RefSalesOrder    = "SALES_ORDER"
	RefAdjustment    = "STOCK_ADJUSTMENT"
	RefScrap         = "SCRAP"
	RefCancellation  = "CANCELLATION" // la referencia de un hecho de reversa es la transacción original
)

const reversalSuffix = "_REVERSAL"

// TransactionKind tipo de movimiento (RECEIPT, ISSUE, ... o su *_REVERSAL).
type TransactionKind string

// Valid reporta si el kind es uno de los conocidos (base o reversa).
func (k TransactionKind) Valid() bool {
	switch k.Base() {
	case KindReceipt, KindIssue, KindAdjustment, KindTransfer:
		return true
	}
	return false
}

// IsReversal reporta si el kind es una reversa (*_REVERSAL).
func (k TransactionKind) IsReversal() bool {
	return len(k) > len(reversalSuffix) && k[len(k)-len(reversalSuffix):] == reversalSuffix
}

// Base devuelve el kind sin el sufijo de reversa.
func (k TransactionKind) Base() TransactionKind {
	if k.IsReversal() {
		return k[:len(k)-len(reversalSuffix)]
	}
	return k
}

// Reversal devuelve el kind de la reversa. El sufijo se aplica una sola vez:
// la reversa de una reversa vuelve al kind base.
func (k TransactionKind) Reversal() TransactionKind {
	if k.IsReversal() {
		return k.Base()
	}
	return k + reversalSuffix
}

// StockTransaction es un hecho inmutable del libro de movimientos (append-only).
// Los campos del movimiento no tienen mutadores públicos: el tipo se construye
// una vez vía NewStockTransaction y el único cambio legal posterior es
// MarkCancelled. No existe operación de borrado en el repositorio.
type StockTransaction struct {
	id             string
	organizationID string
	kind           TransactionKind
	itemID         string
	warehouseID    string
	batchID        *string
	quantity       decimal.Decimal // firmada: positiva entra, negativa sale
	unitCost       decimal.Decimal
	totalValue     decimal.Decimal // quantity * unitCost
	referenceKind  string
	referenceID    string
	balanceAfter   decimal.Decimal // disponible del ledger justo después de aplicar este hecho
	cancelled      bool
	cancelReason   string
	createdBy      string
	createdAt      time.Time
}

// NewTransactionParams parámetros para construir un hecho nuevo.
type NewTransactionParams struct {
	OrganizationID string
	Kind           TransactionKind
	ItemID         string
	WarehouseID    string
	BatchID        *string
	Quantity       decimal.Decimal
	UnitCost       decimal.Decimal
	ReferenceKind  string
	ReferenceID    string
	BalanceAfter   decimal.Decimal
	CreatedBy      string
	CreatedAt      time.Time
}

// NewStockTransaction construye el hecho validando el contrato mínimo.
// El motor de posting es el único caller legítimo.
func NewStockTransaction(p NewTransactionParams) (*StockTransaction, error) {
	if p.OrganizationID == "" || p.ItemID == "" || p.WarehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	if !p.Kind.Valid() {
		return nil, domain.ErrInvalidInput
	}
	if p.Quantity.IsZero() {
		return nil, domain.ErrInvalidInput
	}
	if p.UnitCost.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	if p.ReferenceKind == "" || p.ReferenceID == "" {
		return nil, domain.ErrInvalidInput
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return &StockTransaction{
		id:             uuid.New().String(),
		organizationID: p.OrganizationID,
		kind:           p.Kind,
		itemID:         p.ItemID,
		warehouseID:    p.WarehouseID,
		batchID:        p.BatchID,
		quantity:       p.Quantity,
		unitCost:       p.UnitCost,
		totalValue:     p.Quantity.Mul(p.UnitCost),
		referenceKind:  p.ReferenceKind,
		referenceID:    p.ReferenceID,
		balanceAfter:   p.BalanceAfter,
		createdBy:      p.CreatedBy,
		createdAt:      createdAt,
	}, nil
}

// TransactionRecord snapshot plano de un hecho, para persistencia y DTOs.
type TransactionRecord struct {
	ID             string
	OrganizationID string
	Kind           TransactionKind
	ItemID         string
	WarehouseID    string
	BatchID        *string
	Quantity       decimal.Decimal
	UnitCost       decimal.Decimal
	TotalValue     decimal.Decimal
	ReferenceKind  string
	ReferenceID    string
	BalanceAfter   decimal.Decimal
	Cancelled      bool
	CancelReason   string
	CreatedBy      string
	CreatedAt      time.Time
}

// RestoreStockTransaction rehidrata un hecho desde la BD. Solo para adaptadores
// de persistencia; no valida porque el hecho ya fue validado al crearse.
func RestoreStockTransaction(r TransactionRecord) *StockTransaction {
	return &StockTransaction{
		id:             r.ID,
		organizationID: r.OrganizationID,
		kind:           r.Kind,
		itemID:         r.ItemID,
		warehouseID:    r.WarehouseID,
		batchID:        r.BatchID,
		quantity:       r.Quantity,
		unitCost:       r.UnitCost,
		totalValue:     r.TotalValue,
		referenceKind:  r.ReferenceKind,
		referenceID:    r.ReferenceID,
		balanceAfter:   r.BalanceAfter,
		cancelled:      r.Cancelled,
		cancelReason:   r.CancelReason,
		createdBy:      r.CreatedBy,
		createdAt:      r.CreatedAt,
	}
}

// Record devuelve el snapshot plano del hecho.
func (t *StockTransaction) Record() TransactionRecord {
	return TransactionRecord{
		ID:             t.id,
		OrganizationID: t.organizationID,
		Kind:           t.kind,
		ItemID:         t.itemID,
		WarehouseID:    t.warehouseID,
		BatchID:        t.batchID,
		Quantity:       t.quantity,
		UnitCost:       t.unitCost,
		TotalValue:     t.totalValue,
		ReferenceKind:  t.referenceKind,
		ReferenceID:    t.referenceID,
		BalanceAfter:   t.balanceAfter,
		Cancelled:      t.cancelled,
		CancelReason:   t.cancelReason,
		CreatedBy:      t.createdBy,
		CreatedAt:      t.createdAt,
	}
}

// MarkCancelled marca el hecho como anulado. Única mutación legal del tipo.
// Devuelve ErrAlreadyCancelled si ya estaba anulado.
func (t *StockTransaction) MarkCancelled(reason string) error {
	if t.cancelled {
		return domain.ErrAlreadyCancelled
	}
	if reason == "" {
		return domain.ErrInvalidInput
	}
	t.cancelled = true
	t.cancelReason = reason
	return nil
}

func (t *StockTransaction) ID() string             { return t.id }
func (t *StockTransaction) OrganizationID() string { return t.organizationID }
func (t *StockTransaction) Kind() TransactionKind  { return t.kind }
func (t *StockTransaction) ItemID() string         { return t.itemID }
func (t *StockTransaction) WarehouseID() string    { return t.warehouseID }
func (t *StockTransaction) BatchID() *string       { return t.batchID }

func (t *StockTransaction) Quantity() decimal.Decimal     { return t.quantity }
func (t *StockTransaction) UnitCost() decimal.Decimal     { return t.unitCost }
func (t *StockTransaction) TotalValue() decimal.Decimal   { return t.totalValue }
func (t *StockTransaction) BalanceAfter() decimal.Decimal { return t.balanceAfter }

func (t *StockTransaction) ReferenceKind() string { return t.referenceKind }
func (t *StockTransaction) ReferenceID() string   { return t.referenceID }
func (t *StockTransaction) Cancelled() bool       { return t.cancelled }
func (t *StockTransaction) CancelReason() string  { return t.cancelReason }
func (t *StockTransaction) CreatedBy() string     { return t.createdBy }
func (t *StockTransaction) CreatedAt() time.Time  { return t.createdAt }
