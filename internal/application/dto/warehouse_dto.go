package dto

import "time"

// CreateWarehouseRequest entrada para crear una bodega.
type CreateWarehouseRequest struct {
	Name               string `json:"name" validate:"required,min=1,max=200"`
	Address            string `json:"address"`
	AllowNegativeStock bool   `json:"allow_negative_stock"`
}

// UpdateWarehouseRequest entrada para actualizar una bodega.
type UpdateWarehouseRequest struct {
	Name               *string `json:"name" validate:"omitempty,min=1,max=200"`
	Address            *string `json:"address"`
	AllowNegativeStock *bool   `json:"allow_negative_stock"`
	IsActive           *bool   `json:"is_active"`
}

// WarehouseResponse salida de una bodega.
type WarehouseResponse struct {
	ID                 string    `json:"id"`
	OrganizationID     string    `json:"organization_id"`
	Name               string    `json:"name"`
	Address            string    `json:"address"`
	AllowNegativeStock bool      `json:"allow_negative_stock"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// WarehouseListResponse lista paginada de bodegas.
type WarehouseListResponse struct {
	Items []WarehouseResponse `json:"items"`
	Page  PageResponse        `json:"page"`
}
