package repository

import "github.com/tu-usuario/stock-ledger/internal/domain/entity"

// ItemRepository define el puerto de persistencia para Item (DIP).
type ItemRepository interface {
	Create(item *entity.Item) error
	GetByID(id string) (*entity.Item, error)
	GetByOrganizationAndSKU(organizationID, sku string) (*entity.Item, error)
	Update(item *entity.Item) error
	ListByOrganization(organizationID string, limit, offset int) ([]*entity.Item, error)
}
