package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/stock-ledger/internal/domain"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
	"github.com/tu-usuario/stock-ledger/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

// ItemRepo implementación del puerto ItemRepository sobre PostgreSQL.
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador de persistencia para ítems.
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

// Create persiste un nuevo ítem.
func (r *ItemRepo) Create(item *entity.Item) error {
	query := `
		INSERT INTO items (id, organization_id, sku, name, description, unit_measure,
			is_batch_tracked, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(context.Background(), query,
		item.ID, item.OrganizationID, item.SKU, item.Name, item.Description, item.UnitMeasure,
		item.IsBatchTracked, item.IsActive, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// GetByID obtiene un ítem por ID.
func (r *ItemRepo) GetByID(id string) (*entity.Item, error) {
	query := `
		SELECT id, organization_id, sku, name, description, unit_measure,
			is_batch_tracked, is_active, created_at, updated_at
		FROM items WHERE id = $1`
	var i entity.Item
	err := r.q.QueryRow(context.Background(), query, id).Scan(
		&i.ID, &i.OrganizationID, &i.SKU, &i.Name, &i.Description, &i.UnitMeasure,
		&i.IsBatchTracked, &i.IsActive, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &i, nil
}

// GetByOrganizationAndSKU obtiene un ítem por SKU dentro de la organización.
func (r *ItemRepo) GetByOrganizationAndSKU(organizationID, sku string) (*entity.Item, error) {
	query := `
		SELECT id, organization_id, sku, name, description, unit_measure,
			is_batch_tracked, is_active, created_at, updated_at
		FROM items WHERE organization_id = $1 AND sku = $2`
	var i entity.Item
	err := r.q.QueryRow(context.Background(), query, organizationID, sku).Scan(
		&i.ID, &i.OrganizationID, &i.SKU, &i.Name, &i.Description, &i.UnitMeasure,
		&i.IsBatchTracked, &i.IsActive, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item by sku: %w", err)
	}
	return &i, nil
}

// Update actualiza un ítem existente.
func (r *ItemRepo) Update(item *entity.Item) error {
	query := `
		UPDATE items SET name = $2, description = $3, unit_measure = $4,
			is_batch_tracked = $5, is_active = $6, updated_at = $7
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query,
		item.ID, item.Name, item.Description, item.UnitMeasure,
		item.IsBatchTracked, item.IsActive, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// ListByOrganization lista ítems por organización con paginación.
func (r *ItemRepo) ListByOrganization(organizationID string, limit, offset int) ([]*entity.Item, error) {
	query := `
		SELECT id, organization_id, sku, name, description, unit_measure,
			is_batch_tracked, is_active, created_at, updated_at
		FROM items WHERE organization_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(context.Background(), query, organizationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	var list []*entity.Item
	for rows.Next() {
		var i entity.Item
		if err := rows.Scan(&i.ID, &i.OrganizationID, &i.SKU, &i.Name, &i.Description, &i.UnitMeasure,
			&i.IsBatchTracked, &i.IsActive, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		list = append(list, &i)
	}
	return list, rows.Err()
}
