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

var _ repository.TransactionRepository = (*TransactionRepo)(nil)

const transactionColumns = `id, organization_id, kind, item_id, warehouse_id, batch_id,
		quantity, unit_cost, total_value, reference_kind, reference_id, balance_after,
		cancelled, cancel_reason, created_by, created_at`

// TransactionRepo implementación sobre PostgreSQL (usable con pool o tx).
// El libro es append-only: no hay Update ni Delete; la BD lo respalda con un
// trigger que rechaza cualquier mutación fuera de la anulación.
type TransactionRepo struct {
	q Querier
}

// NewTransactionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransactionRepository(q Querier) *TransactionRepo {
	return &TransactionRepo{q: q}
}

// Create persiste un hecho nuevo del libro.
func (r *TransactionRepo) Create(ctx context.Context, tx *entity.StockTransaction) error {
	rec := tx.Record()
	query := `
		INSERT INTO stock_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	createdBy := (*string)(nil)
	if rec.CreatedBy != "" {
		createdBy = &rec.CreatedBy
	}
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.OrganizationID, string(rec.Kind), rec.ItemID, rec.WarehouseID, rec.BatchID,
		rec.Quantity, rec.UnitCost, rec.TotalValue, rec.ReferenceKind, rec.ReferenceID, rec.BalanceAfter,
		rec.Cancelled, rec.CancelReason, createdBy, rec.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create stock transaction: %w", err)
	}
	return nil
}

// GetByID obtiene un hecho por ID dentro de la organización.
func (r *TransactionRepo) GetByID(ctx context.Context, organizationID, id string) (*entity.StockTransaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM stock_transactions WHERE organization_id = $1 AND id = $2`
	rec, err := scanTransaction(r.q.QueryRow(ctx, query, organizationID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock transaction: %w", err)
	}
	return entity.RestoreStockTransaction(rec), nil
}

// SaveCancellation persiste únicamente el flag de anulación y su razón.
// Ningún otro campo del hecho se toca jamás.
func (r *TransactionRepo) SaveCancellation(ctx context.Context, tx *entity.StockTransaction) error {
	rec := tx.Record()
	if !rec.Cancelled {
		return domain.ErrInvalidInput
	}
	cmd, err := r.q.Exec(ctx, `
		UPDATE stock_transactions
		SET cancelled = true, cancel_reason = $3
		WHERE organization_id = $1 AND id = $2 AND cancelled = false`,
		rec.OrganizationID, rec.ID, rec.CancelReason,
	)
	if err != nil {
		return fmt.Errorf("save cancellation: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		// Carrera: otro caller anuló primero.
		return domain.ErrAlreadyCancelled
	}
	return nil
}

// ListByKey lista los hechos de una posición, más recientes primero.
func (r *TransactionRepo) ListByKey(ctx context.Context, key entity.LedgerKey, limit, offset int) ([]*entity.StockTransaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM stock_transactions
		WHERE organization_id = $1 AND item_id = $2 AND warehouse_id = $3
		  AND batch_id IS NOT DISTINCT FROM $4
		ORDER BY created_at DESC, id DESC LIMIT $5 OFFSET $6`
	rows, err := r.q.Query(ctx, query,
		key.OrganizationID, key.ItemID, key.WarehouseID, key.BatchID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions by key: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListByReference lista los hechos originados por un documento de negocio.
func (r *TransactionRepo) ListByReference(ctx context.Context, organizationID, referenceKind, referenceID string) ([]*entity.StockTransaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM stock_transactions
		WHERE organization_id = $1 AND reference_kind = $2 AND reference_id = $3
		ORDER BY created_at ASC, id ASC`
	rows, err := r.q.Query(ctx, query, organizationID, referenceKind, referenceID)
	if err != nil {
		return nil, fmt.Errorf("list transactions by reference: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]*entity.StockTransaction, error) {
	var list []*entity.StockTransaction
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock transaction: %w", err)
		}
		list = append(list, entity.RestoreStockTransaction(rec))
	}
	return list, rows.Err()
}

func scanTransaction(row pgx.Row) (entity.TransactionRecord, error) {
	var rec entity.TransactionRecord
	var kind string
	var cancelReason, createdBy *string
	err := row.Scan(
		&rec.ID, &rec.OrganizationID, &kind, &rec.ItemID, &rec.WarehouseID, &rec.BatchID,
		&rec.Quantity, &rec.UnitCost, &rec.TotalValue, &rec.ReferenceKind, &rec.ReferenceID, &rec.BalanceAfter,
		&rec.Cancelled, &cancelReason, &createdBy, &rec.CreatedAt,
	)
	if err != nil {
		return entity.TransactionRecord{}, err
	}
	rec.Kind = entity.TransactionKind(kind)
	if cancelReason != nil {
		rec.CancelReason = *cancelReason
	}
	if createdBy != nil {
		rec.CreatedBy = *createdBy
	}
	return rec, nil
}
