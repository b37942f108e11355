package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
	"github.com/tu-usuario/stock-ledger/internal/domain/repository"
)

var _ repository.OutboxRepository = (*OutboxRepo)(nil)

// OutboxRepo implementación del outbox transaccional sobre PostgreSQL.
// Create corre dentro de la misma tx que el posting; ListPending/MarkPublished
// los usa el publicador que drena la tabla.
type OutboxRepo struct {
	q Querier
}

// NewOutboxRepository construye el adaptador del outbox. Pasar pool o tx (Querier).
func NewOutboxRepository(q Querier) *OutboxRepo {
	return &OutboxRepo{q: q}
}

// Create inserta un evento pendiente de publicar.
func (r *OutboxRepo) Create(ctx context.Context, event *entity.StockEvent) error {
	query := `
		INSERT INTO stock_events (id, organization_id, event_type, transaction_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query,
		event.ID, event.OrganizationID, event.EventType, event.TransactionID,
		event.Payload, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock event: %w", err)
	}
	return nil
}

// ListPending lista eventos aún no publicados, más antiguos primero.
func (r *OutboxRepo) ListPending(ctx context.Context, limit int) ([]*entity.StockEvent, error) {
	query := `
		SELECT id, organization_id, event_type, transaction_id, payload, created_at, published_at
		FROM stock_events
		WHERE published_at IS NULL
		ORDER BY created_at ASC, id ASC LIMIT $1`
	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending stock events: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockEvent
	for rows.Next() {
		var e entity.StockEvent
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.EventType, &e.TransactionID,
			&e.Payload, &e.CreatedAt, &e.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan stock event: %w", err)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}

// MarkPublished marca un evento como publicado.
func (r *OutboxRepo) MarkPublished(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE stock_events SET published_at = $2 WHERE id = $1 AND published_at IS NULL`,
		id, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("mark stock event published: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("mark stock event published: evento %s inexistente o ya publicado", id)
	}
	return nil
}
