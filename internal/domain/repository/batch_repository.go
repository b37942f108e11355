package repository

import "github.com/tu-usuario/stock-ledger/internal/domain/entity"

// BatchRepository define el puerto de persistencia para Batch (DIP).
type BatchRepository interface {
	Create(batch *entity.Batch) error
	GetByID(id string) (*entity.Batch, error)
	ListByItem(itemID string, limit, offset int) ([]*entity.Batch, error)
}
