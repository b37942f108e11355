package dto

import "time"

// CreateItemRequest entrada para crear un ítem.
type CreateItemRequest struct {
	SKU            string `json:"sku" validate:"required,min=1,max=100"`
	Name           string `json:"name" validate:"required,min=1,max=200"`
	Description    string `json:"description"`
	UnitMeasure    string `json:"unit_measure" validate:"required"`
	IsBatchTracked bool   `json:"is_batch_tracked"`
}

// UpdateItemRequest entrada para actualizar un ítem (el SKU no cambia).
type UpdateItemRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	UnitMeasure *string `json:"unit_measure"`
	IsActive    *bool   `json:"is_active"`
}

// ItemResponse salida de un ítem.
type ItemResponse struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	UnitMeasure    string    `json:"unit_measure"`
	IsBatchTracked bool      `json:"is_batch_tracked"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ItemListResponse lista paginada de ítems.
type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}
