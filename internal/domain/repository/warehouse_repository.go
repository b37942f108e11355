package repository

import "github.com/tu-usuario/stock-ledger/internal/domain/entity"

// WarehouseRepository define el puerto de persistencia para Warehouse (DIP).
type WarehouseRepository interface {
	Create(warehouse *entity.Warehouse) error
	GetByID(id string) (*entity.Warehouse, error)
	Update(warehouse *entity.Warehouse) error
	ListByOrganization(organizationID string, limit, offset int) ([]*entity.Warehouse, error)
}
