package entity

import "time"

// Batch representa un lote de un ítem (trazabilidad y vencimiento).
// Pertenece a un Item; las posiciones del ledger lo referencian opcionalmente.
type Batch struct {
	ID             string
	OrganizationID string
	ItemID         string
	Code           string     // código de lote del proveedor o interno
	ExpiryDate     *time.Time // nil = sin vencimiento
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
