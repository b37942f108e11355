package usecase

import (
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/stock-ledger/internal/application/dto"
	"github.com/tu-usuario/stock-ledger/internal/domain"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
	"github.com/tu-usuario/stock-ledger/internal/domain/repository"
)

// BatchUseCase casos de uso para lotes de ítems loteados.
type BatchUseCase struct {
	repo     repository.BatchRepository
	itemRepo repository.ItemRepository
}

// NewBatchUseCase construye el caso de uso.
func NewBatchUseCase(repo repository.BatchRepository, itemRepo repository.ItemRepository) *BatchUseCase {
	return &BatchUseCase{repo: repo, itemRepo: itemRepo}
}

// Create crea un lote. Solo tiene sentido sobre ítems loteados.
func (uc *BatchUseCase) Create(organizationID string, in dto.CreateBatchRequest) (*dto.BatchResponse, error) {
	item, err := uc.itemRepo.GetByID(in.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.OrganizationID != organizationID {
		return nil, domain.ErrNotFound
	}
	if !item.IsBatchTracked {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now()
	batch := &entity.Batch{
		ID:             uuid.New().String(),
		OrganizationID: organizationID,
		ItemID:         in.ItemID,
		Code:           in.Code,
		ExpiryDate:     in.ExpiryDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.repo.Create(batch); err != nil {
		return nil, err
	}
	return toBatchResponse(batch), nil
}

// GetByID obtiene un lote por ID dentro de la organización.
func (uc *BatchUseCase) GetByID(organizationID, id string) (*dto.BatchResponse, error) {
	batch, err := uc.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if batch == nil || batch.OrganizationID != organizationID {
		return nil, nil
	}
	return toBatchResponse(batch), nil
}

// ListByItem lista los lotes de un ítem, vencimiento más próximo primero.
func (uc *BatchUseCase) ListByItem(organizationID, itemID string, limit, offset int) (*dto.BatchListResponse, error) {
	item, err := uc.itemRepo.GetByID(itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.OrganizationID != organizationID {
		return nil, domain.ErrNotFound
	}
	list, err := uc.repo.ListByItem(itemID, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.BatchResponse, 0, len(list))
	for _, b := range list {
		items = append(items, *toBatchResponse(b))
	}
	return &dto.BatchListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

func toBatchResponse(b *entity.Batch) *dto.BatchResponse {
	if b == nil {
		return nil
	}
	return &dto.BatchResponse{
		ID:             b.ID,
		OrganizationID: b.OrganizationID,
		ItemID:         b.ItemID,
		Code:           b.Code,
		ExpiryDate:     b.ExpiryDate,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}
