package usecase

import (
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/stock-ledger/internal/application/dto"
	"github.com/tu-usuario/stock-ledger/internal/domain"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
	"github.com/tu-usuario/stock-ledger/internal/domain/repository"
)

// ItemUseCase casos de uso CRUD para ítems. Stock y costo se manejan vía el
// motor de posting; aquí solo datos maestros.
type ItemUseCase struct {
	repo repository.ItemRepository
}

// NewItemUseCase construye el caso de uso.
func NewItemUseCase(repo repository.ItemRepository) *ItemUseCase {
	return &ItemUseCase{repo: repo}
}

// Create crea un nuevo ítem. El SKU es único dentro de la organización.
func (uc *ItemUseCase) Create(organizationID string, in dto.CreateItemRequest) (*dto.ItemResponse, error) {
	existing, _ := uc.repo.GetByOrganizationAndSKU(organizationID, in.SKU)
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	if in.UnitMeasure == "" {
		in.UnitMeasure = "UND"
	}
	now := time.Now()
	item := &entity.Item{
		ID:             uuid.New().String(),
		OrganizationID: organizationID,
		SKU:            in.SKU,
		Name:           in.Name,
		Description:    in.Description,
		UnitMeasure:    in.UnitMeasure,
		IsBatchTracked: in.IsBatchTracked,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.repo.Create(item); err != nil {
		return nil, err
	}
	return toItemResponse(item), nil
}

// GetByID obtiene un ítem por ID dentro de la organización.
func (uc *ItemUseCase) GetByID(organizationID, id string) (*dto.ItemResponse, error) {
	item, err := uc.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.OrganizationID != organizationID {
		return nil, nil
	}
	return toItemResponse(item), nil
}

// Update actualiza un ítem. El SKU y el tracking por lote no cambian después
// de creado: hay hechos en el libro que dependen de ellos.
func (uc *ItemUseCase) Update(organizationID, id string, in dto.UpdateItemRequest) (*dto.ItemResponse, error) {
	item, err := uc.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.OrganizationID != organizationID {
		return nil, nil
	}
	if in.Name != nil {
		item.Name = *in.Name
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.UnitMeasure != nil {
		item.UnitMeasure = *in.UnitMeasure
	}
	if in.IsActive != nil {
		item.IsActive = *in.IsActive
	}
	item.UpdatedAt = time.Now()
	if err := uc.repo.Update(item); err != nil {
		return nil, err
	}
	return toItemResponse(item), nil
}

// List lista ítems por organización con paginación.
func (uc *ItemUseCase) List(organizationID string, limit, offset int) (*dto.ItemListResponse, error) {
	list, err := uc.repo.ListByOrganization(organizationID, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ItemResponse, 0, len(list))
	for _, i := range list {
		items = append(items, *toItemResponse(i))
	}
	return &dto.ItemListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

func toItemResponse(i *entity.Item) *dto.ItemResponse {
	if i == nil {
		return nil
	}
	return &dto.ItemResponse{
		ID:             i.ID,
		OrganizationID: i.OrganizationID,
		SKU:            i.SKU,
		Name:           i.Name,
		Description:    i.Description,
		UnitMeasure:    i.UnitMeasure,
		IsBatchTracked: i.IsBatchTracked,
		IsActive:       i.IsActive,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
}
