package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
	"github.com/tu-usuario/stock-ledger/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

const ledgerColumns = `organization_id, item_id, warehouse_id, batch_id,
		available, reserved, in_transit, unit_cost, last_transaction_id, updated_at`

// LedgerRepo implementación de LedgerRepository sobre PostgreSQL (usable con pool o tx).
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Acepta pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// Get obtiene la fila de una posición sin lock. nil si nunca fue posteada.
func (r *LedgerRepo) Get(ctx context.Context, key entity.LedgerKey) (*entity.StockLedger, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM stock_ledger
		WHERE organization_id = $1 AND item_id = $2 AND warehouse_id = $3
		  AND batch_id IS NOT DISTINCT FROM $4`
	row, err := scanLedger(r.q.QueryRow(ctx, query,
		key.OrganizationID, key.ItemID, key.WarehouseID, key.BatchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger row: %w", err)
	}
	return row, nil
}

// GetForUpdate bloquea la fila de la posición (SELECT FOR UPDATE). Si no
// existe la inserta primero (ON CONFLICT DO NOTHING) para que el lock cubra
// la creación: dos primeros postings concurrentes nunca duplican la fila;
// los índices únicos por tupla de clave son el respaldo.
func (r *LedgerRepo) GetForUpdate(ctx context.Context, key entity.LedgerKey) (*entity.StockLedger, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_ledger (organization_id, item_id, warehouse_id, batch_id,
			available, reserved, in_transit, unit_cost, updated_at)
		VALUES ($1, $2, $3, $4, 0, 0, 0, 0, now())
		ON CONFLICT DO NOTHING`,
		key.OrganizationID, key.ItemID, key.WarehouseID, key.BatchID,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure ledger row: %w", err)
	}
	query := `
		SELECT ` + ledgerColumns + `
		FROM stock_ledger
		WHERE organization_id = $1 AND item_id = $2 AND warehouse_id = $3
		  AND batch_id IS NOT DISTINCT FROM $4
		FOR UPDATE`
	row, err := scanLedger(r.q.QueryRow(ctx, query,
		key.OrganizationID, key.ItemID, key.WarehouseID, key.BatchID))
	if err != nil {
		return nil, fmt.Errorf("get ledger row for update: %w", err)
	}
	return row, nil
}

// FindReservableForUpdate busca entre las posiciones con lote del ítem una con
// neto disponible suficiente, en orden FEFO (vencimiento más próximo primero,
// id de lote como desempate) y la bloquea. nil si ninguna alcanza.
func (r *LedgerRepo) FindReservableForUpdate(ctx context.Context, organizationID, itemID, warehouseID string, quantity decimal.Decimal) (*entity.StockLedger, error) {
	query := `
		SELECT l.organization_id, l.item_id, l.warehouse_id, l.batch_id,
		       l.available, l.reserved, l.in_transit, l.unit_cost, l.last_transaction_id, l.updated_at
		FROM stock_ledger l
		JOIN batches b ON b.id = l.batch_id
		WHERE l.organization_id = $1 AND l.item_id = $2 AND l.warehouse_id = $3
		  AND (l.available - l.reserved) >= $4
		ORDER BY b.expiry_date ASC NULLS LAST, b.id ASC
		LIMIT 1
		FOR UPDATE OF l`
	row, err := scanLedger(r.q.QueryRow(ctx, query, organizationID, itemID, warehouseID, quantity))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find reservable ledger row: %w", err)
	}
	return row, nil
}

// Save proyecta el estado de la fila (la fila ya existe: GetForUpdate la creó).
func (r *LedgerRepo) Save(ctx context.Context, row *entity.StockLedger) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE stock_ledger
		SET available = $5, reserved = $6, in_transit = $7, unit_cost = $8,
		    last_transaction_id = $9, updated_at = $10
		WHERE organization_id = $1 AND item_id = $2 AND warehouse_id = $3
		  AND batch_id IS NOT DISTINCT FROM $4`,
		row.OrganizationID, row.ItemID, row.WarehouseID, row.BatchID,
		row.Available, row.Reserved, row.InTransit, row.UnitCost,
		row.LastTransactionID, row.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save ledger row: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("save ledger row: posición inexistente")
	}
	return nil
}

// ListByItem lista las posiciones de un ítem en todas las bodegas.
func (r *LedgerRepo) ListByItem(ctx context.Context, organizationID, itemID string) ([]*entity.StockLedger, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM stock_ledger
		WHERE organization_id = $1 AND item_id = $2
		ORDER BY warehouse_id, batch_id NULLS FIRST`
	rows, err := r.q.Query(ctx, query, organizationID, itemID)
	if err != nil {
		return nil, fmt.Errorf("list ledger rows by item: %w", err)
	}
	defer rows.Close()
	return collectLedgerRows(rows)
}

// ListByWarehouse lista las posiciones de una bodega con paginación.
func (r *LedgerRepo) ListByWarehouse(ctx context.Context, organizationID, warehouseID string, limit, offset int) ([]*entity.StockLedger, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM stock_ledger
		WHERE organization_id = $1 AND warehouse_id = $2
		ORDER BY updated_at DESC LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, query, organizationID, warehouseID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ledger rows by warehouse: %w", err)
	}
	defer rows.Close()
	return collectLedgerRows(rows)
}

func collectLedgerRows(rows pgx.Rows) ([]*entity.StockLedger, error) {
	var list []*entity.StockLedger
	for rows.Next() {
		row, err := scanLedger(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		list = append(list, row)
	}
	return list, rows.Err()
}

func scanLedger(row pgx.Row) (*entity.StockLedger, error) {
	var l entity.StockLedger
	err := row.Scan(
		&l.OrganizationID, &l.ItemID, &l.WarehouseID, &l.BatchID,
		&l.Available, &l.Reserved, &l.InTransit, &l.UnitCost,
		&l.LastTransactionID, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
