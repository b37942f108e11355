package dto

import "time"

// CreateBatchRequest entrada para crear un lote de un ítem.
type CreateBatchRequest struct {
	ItemID     string     `json:"item_id" validate:"required,uuid"`
	Code       string     `json:"code" validate:"required,min=1,max=100"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}

// BatchResponse salida de un lote.
type BatchResponse struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	ItemID         string     `json:"item_id"`
	Code           string     `json:"code"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// BatchListResponse lista paginada de lotes.
type BatchListResponse struct {
	Items []BatchResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}
