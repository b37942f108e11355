package entity

import "time"

// Warehouse representa una bodega o sucursal donde se almacena inventario (multi-bodega).
// AllowNegativeStock habilita salidas que dejen el disponible por debajo de cero.
type Warehouse struct {
	ID                 string
	OrganizationID     string
	Name               string
	Address            string
	AllowNegativeStock bool
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
