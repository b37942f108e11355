package entity

import "time"

// Item representa un artículo o SKU del inventario (multi-bodega).
// El costo vive en el ledger por posición; aquí solo los atributos maestros.
type Item struct {
	ID             string
	OrganizationID string
	SKU            string // código único por organización
	Name           string
	Description    string
	UnitMeasure    string
	IsBatchTracked bool // exige lote en recepciones
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
