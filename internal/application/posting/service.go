package posting

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/stock-ledger/internal/domain"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
	"github.com/tu-usuario/stock-ledger/internal/domain/ledger"
	"github.com/tu-usuario/stock-ledger/internal/domain/repository"
)

// Service es la única puerta de entrada de mutaciones al libro de movimientos
// y al ledger: valida, bloquea la fila de la posición (SELECT FOR UPDATE),
// calcula, appendea el hecho y proyecta el estado, todo en una transacción.
// Invariante que posee: el disponible de cada posición es igual a la suma de
// los hechos no anulados de esa posición.
type Service struct {
	txRunner      TxRunner
	itemRepo      repository.ItemRepository
	warehouseRepo repository.WarehouseRepository
	batchRepo     repository.BatchRepository
	ledgerRepo    repository.LedgerRepository      // lecturas fuera de tx
	txReadRepo    repository.TransactionRepository // lecturas fuera de tx
}

// NewService construye el motor de posting.
func NewService(
	txRunner TxRunner,
	itemRepo repository.ItemRepository,
	warehouseRepo repository.WarehouseRepository,
	batchRepo repository.BatchRepository,
	ledgerRepo repository.LedgerRepository,
	txReadRepo repository.TransactionRepository,
) *Service {
	return &Service{
		txRunner:      txRunner,
		itemRepo:      itemRepo,
		warehouseRepo: warehouseRepo,
		batchRepo:     batchRepo,
		ledgerRepo:    ledgerRepo,
		txReadRepo:    txReadRepo,
	}
}

// PostInput entrada para Post. Quantity es firmada: positiva entra stock,
// negativa sale. La organización viene siempre explícita; el motor no lee
// ningún tenant ambiente.
type PostInput struct {
	OrganizationID string
	UserID         string
	Kind           entity.TransactionKind
	ItemID         string
	WarehouseID    string
	BatchID        *string
	Quantity       decimal.Decimal
	UnitCost       decimal.Decimal
	ReferenceKind  string
	ReferenceID    string
}

// Post valida, bloquea la posición y registra un movimiento de stock.
// Todo o nada: cualquier fallo deja libro y ledger intactos.
func (s *Service) Post(ctx context.Context, in PostInput) (*entity.StockTransaction, error) {
	// Los kinds de reversa solo se generan vía Cancel.
	if in.Kind.IsReversal() {
		return nil, domain.ErrInvalidInput
	}
	warehouse, err := s.validatePostInput(in)
	if err != nil {
		return nil, err
	}

	var fact *entity.StockTransaction
	err = s.txRunner.Run(ctx, func(
		txRepo repository.TransactionRepository,
		ledgerRepo repository.LedgerRepository,
		outboxRepo repository.OutboxRepository,
	) error {
		f, err := s.postLocked(ctx, txRepo, ledgerRepo, outboxRepo, warehouse, in, time.Now())
		if err != nil {
			return err
		}
		fact = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fact, nil
}

// validatePostInput verifica ítem, bodega y lote antes de cualquier mutación.
// Devuelve la bodega para evaluar la política de stock negativo bajo el lock.
func (s *Service) validatePostInput(in PostInput) (*entity.Warehouse, error) {
	if in.OrganizationID == "" || in.ItemID == "" || in.WarehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.Quantity.IsZero() || in.UnitCost.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	if in.ReferenceKind == "" || in.ReferenceID == "" {
		return nil, domain.ErrInvalidInput
	}

	item, err := s.itemRepo.GetByID(in.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.OrganizationID != in.OrganizationID {
		return nil, domain.ErrNotFound
	}
	if !item.IsActive {
		return nil, domain.ErrInactive
	}

	warehouse, err := s.warehouseRepo.GetByID(in.WarehouseID)
	if err != nil {
		return nil, err
	}
	if warehouse == nil || warehouse.OrganizationID != in.OrganizationID {
		return nil, domain.ErrNotFound
	}
	if !warehouse.IsActive {
		return nil, domain.ErrInactive
	}

	// Ítems con lote exigen el lote en entradas.
	if item.IsBatchTracked && in.Quantity.GreaterThan(decimal.Zero) && in.BatchID == nil {
		return nil, domain.ErrInvalidInput
	}
	if in.BatchID != nil {
		batch, err := s.batchRepo.GetByID(*in.BatchID)
		if err != nil {
			return nil, err
		}
		if batch == nil || batch.OrganizationID != in.OrganizationID {
			return nil, domain.ErrNotFound
		}
		if batch.ItemID != in.ItemID {
			return nil, domain.ErrInvalidInput
		}
	}
	return warehouse, nil
}

// postLocked ejecuta el algoritmo de posting usando los repositorios de la
// transacción en curso. Lo reutiliza Cancel para el hecho compensatorio
// (misma tx que el flip de anulación).
func (s *Service) postLocked(
	ctx context.Context,
	txRepo repository.TransactionRepository,
	ledgerRepo repository.LedgerRepository,
	outboxRepo repository.OutboxRepository,
	warehouse *entity.Warehouse,
	in PostInput,
	now time.Time,
) (*entity.StockTransaction, error) {
	key := entity.LedgerKey{
		OrganizationID: in.OrganizationID,
		ItemID:         in.ItemID,
		WarehouseID:    in.WarehouseID,
		BatchID:        in.BatchID,
	}
	// Bloquea (o crea bajo el mismo lock) la fila de la posición.
	row, err := ledgerRepo.GetForUpdate(ctx, key)
	if err != nil {
		return nil, err
	}

	newAvailable := row.Available.Add(in.Quantity)
	if newAvailable.IsNegative() && !warehouse.AllowNegativeStock {
		return nil, &domain.InsufficientStockError{
			Available: row.Available,
			Requested: in.Quantity.Neg(),
		}
	}

	fact, err := entity.NewStockTransaction(entity.NewTransactionParams{
		OrganizationID: in.OrganizationID,
		Kind:           in.Kind,
		ItemID:         in.ItemID,
		WarehouseID:    in.WarehouseID,
		BatchID:        in.BatchID,
		Quantity:       in.Quantity,
		UnitCost:       in.UnitCost,
		ReferenceKind:  in.ReferenceKind,
		ReferenceID:    in.ReferenceID,
		BalanceAfter:   newAvailable,
		CreatedBy:      in.UserID,
		CreatedAt:      now,
	})
	if err != nil {
		return nil, err
	}
	if err := txRepo.Create(ctx, fact); err != nil {
		return nil, err
	}

	// Costo promedio ponderado: solo entradas con costo real, con las
	// cantidades PREVIAS al posting como lado existente.
	if in.Quantity.GreaterThan(decimal.Zero) && in.UnitCost.GreaterThan(decimal.Zero) {
		row.UnitCost = ledger.WeightedAverageCost(row.Available, row.UnitCost, in.Quantity, in.UnitCost)
	}
	row.Available = newAvailable
	factID := fact.ID()
	row.LastTransactionID = &factID
	row.UpdatedAt = now
	if err := ledgerRepo.Save(ctx, row); err != nil {
		return nil, err
	}

	if err := s.emitEvent(ctx, outboxRepo, entity.EventPostingCreated, fact, now); err != nil {
		return nil, err
	}
	return fact, nil
}

// emitEvent inserta el evento en el outbox (misma transacción del posting).
func (s *Service) emitEvent(
	ctx context.Context,
	outboxRepo repository.OutboxRepository,
	eventType string,
	fact *entity.StockTransaction,
	now time.Time,
) error {
	payload, err := json.Marshal(map[string]any{
		"transaction_id": fact.ID(),
		"kind":           fact.Kind(),
		"item_id":        fact.ItemID(),
		"warehouse_id":   fact.WarehouseID(),
		"quantity":       fact.Quantity(),
		"balance_after":  fact.BalanceAfter(),
	})
	if err != nil {
		return err
	}
	return outboxRepo.Create(ctx, &entity.StockEvent{
		ID:             uuid.New().String(),
		OrganizationID: fact.OrganizationID(),
		EventType:      eventType,
		TransactionID:  fact.ID(),
		Payload:        payload,
		CreatedAt:      now,
	})
}

// Cancel anula un hecho: marca el original como anulado y registra el hecho
// compensatorio (cantidad opuesta, kind *_REVERSAL, referencia CANCELLATION)
// en la misma transacción. Si el posting compensatorio falla (p. ej. la
// política de stock negativo ya no lo permite), el flip también se revierte:
// la anulación es todo o nada y el rastro de auditoría nunca se destruye.
func (s *Service) Cancel(ctx context.Context, organizationID, transactionID, reason, userID string) (*entity.StockTransaction, error) {
	if organizationID == "" || transactionID == "" || reason == "" {
		return nil, domain.ErrInvalidInput
	}

	var reversal *entity.StockTransaction
	err := s.txRunner.Run(ctx, func(
		txRepo repository.TransactionRepository,
		ledgerRepo repository.LedgerRepository,
		outboxRepo repository.OutboxRepository,
	) error {
		original, err := txRepo.GetByID(ctx, organizationID, transactionID)
		if err != nil {
			return err
		}
		if original == nil {
			return domain.ErrNotFound
		}
		if err := original.MarkCancelled(reason); err != nil {
			return err // ErrAlreadyCancelled: error de negocio, no fatal
		}
		if err := txRepo.SaveCancellation(ctx, original); err != nil {
			return err
		}

		warehouse, err := s.warehouseRepo.GetByID(original.WarehouseID())
		if err != nil {
			return err
		}
		if warehouse == nil {
			return domain.ErrNotFound
		}

		now := time.Now()
		rev, err := s.postLocked(ctx, txRepo, ledgerRepo, outboxRepo, warehouse, PostInput{
			OrganizationID: organizationID,
			UserID:         userID,
			Kind:           original.Kind().Reversal(),
			ItemID:         original.ItemID(),
			WarehouseID:    original.WarehouseID(),
			BatchID:        original.BatchID(),
			Quantity:       original.Quantity().Neg(),
			UnitCost:       original.UnitCost(),
			ReferenceKind:  entity.RefCancellation,
			ReferenceID:    original.ID(),
		}, now)
		if err != nil {
			return err
		}
		if err := s.emitEvent(ctx, outboxRepo, entity.EventPostingCancelled, original, now); err != nil {
			return err
		}
		reversal = rev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reversal, nil
}

// ReserveInput entrada para Reserve. La referencia identifica al documento
// que aparta (p. ej. un pedido de venta); la reserva es un apartado blando y
// no escribe en el libro de movimientos.
type ReserveInput struct {
	OrganizationID string
	ItemID         string
	WarehouseID    string
	BatchID        *string
	Quantity       decimal.Decimal
	ReferenceKind  string
	ReferenceID    string
}

// Reserve aparta cantidad sobre el neto disponible de una posición.
// Si no se indica lote y el ítem es loteado, elige la posición en orden FEFO
// (vencimiento más próximo primero) y devuelve el lote elegido para que el
// caller pueda liberar sobre la misma posición.
func (s *Service) Reserve(ctx context.Context, in ReserveInput) (*string, error) {
	if in.OrganizationID == "" || in.ItemID == "" || in.WarehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	if !in.Quantity.GreaterThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}

	item, err := s.itemRepo.GetByID(in.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.OrganizationID != in.OrganizationID {
		return nil, domain.ErrNotFound
	}
	if !item.IsActive {
		return nil, domain.ErrInactive
	}

	var chosenBatch *string
	err = s.txRunner.Run(ctx, func(
		_ repository.TransactionRepository,
		ledgerRepo repository.LedgerRepository,
		_ repository.OutboxRepository,
	) error {
		var row *entity.StockLedger
		if in.BatchID == nil && item.IsBatchTracked {
			row, err = ledgerRepo.FindReservableForUpdate(ctx, in.OrganizationID, in.ItemID, in.WarehouseID, in.Quantity)
			if err != nil {
				return err
			}
			if row == nil {
				return &domain.InsufficientStockError{
					Available: s.totalNetAvailable(ctx, in.OrganizationID, in.ItemID, in.WarehouseID),
					Requested: in.Quantity,
				}
			}
		} else {
			key := entity.LedgerKey{
				OrganizationID: in.OrganizationID,
				ItemID:         in.ItemID,
				WarehouseID:    in.WarehouseID,
				BatchID:        in.BatchID,
			}
			row, err = ledgerRepo.GetForUpdate(ctx, key)
			if err != nil {
				return err
			}
			if in.Quantity.GreaterThan(row.NetAvailable()) {
				return &domain.InsufficientStockError{
					Available: row.NetAvailable(),
					Requested: in.Quantity,
				}
			}
		}
		row.Reserved = row.Reserved.Add(in.Quantity)
		row.UpdatedAt = time.Now()
		if err := ledgerRepo.Save(ctx, row); err != nil {
			return err
		}
		chosenBatch = row.BatchID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chosenBatch, nil
}

// totalNetAvailable suma el neto disponible del ítem en la bodega para el
// diagnóstico de InsufficientStockError cuando ninguna posición alcanza.
func (s *Service) totalNetAvailable(ctx context.Context, organizationID, itemID, warehouseID string) decimal.Decimal {
	rows, err := s.ledgerRepo.ListByItem(ctx, organizationID, itemID)
	if err != nil {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, r := range rows {
		if r.WarehouseID == warehouseID {
			total = total.Add(r.NetAvailable())
		}
	}
	return total
}

// ReleaseInput entrada para Release.
type ReleaseInput struct {
	OrganizationID string
	ItemID         string
	WarehouseID    string
	BatchID        *string
	Quantity       decimal.Decimal
}

// Release libera cantidad reservada, con clamp en cero: liberar de más es
// tolerado porque se usa defensivamente en flujos de anulación donde parte de
// la reserva pudo haberse consumido ya en el despacho.
func (s *Service) Release(ctx context.Context, in ReleaseInput) error {
	if in.OrganizationID == "" || in.ItemID == "" || in.WarehouseID == "" {
		return domain.ErrInvalidInput
	}
	if !in.Quantity.GreaterThan(decimal.Zero) {
		return domain.ErrInvalidInput
	}
	return s.txRunner.Run(ctx, func(
		_ repository.TransactionRepository,
		ledgerRepo repository.LedgerRepository,
		_ repository.OutboxRepository,
	) error {
		key := entity.LedgerKey{
			OrganizationID: in.OrganizationID,
			ItemID:         in.ItemID,
			WarehouseID:    in.WarehouseID,
			BatchID:        in.BatchID,
		}
		row, err := ledgerRepo.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		newReserved := row.Reserved.Sub(in.Quantity)
		if newReserved.IsNegative() {
			newReserved = decimal.Zero
		}
		row.Reserved = newReserved
		row.UpdatedAt = time.Now()
		return ledgerRepo.Save(ctx, row)
	})
}

// StockSnapshot lectura puntual de una posición.
type StockSnapshot struct {
	Available    decimal.Decimal
	Reserved     decimal.Decimal
	InTransit    decimal.Decimal
	NetAvailable decimal.Decimal
}

// GetStock devuelve el estado de una posición. Una posición nunca posteada
// devuelve ceros: ausencia es un estado válido, no un error.
func (s *Service) GetStock(ctx context.Context, organizationID, itemID, warehouseID string, batchID *string) (StockSnapshot, error) {
	row, err := s.ledgerRepo.Get(ctx, entity.LedgerKey{
		OrganizationID: organizationID,
		ItemID:         itemID,
		WarehouseID:    warehouseID,
		BatchID:        batchID,
	})
	if err != nil {
		return StockSnapshot{}, err
	}
	if row == nil {
		zero := decimal.Zero
		return StockSnapshot{Available: zero, Reserved: zero, InTransit: zero, NetAvailable: zero}, nil
	}
	return StockSnapshot{
		Available:    row.Available,
		Reserved:     row.Reserved,
		InTransit:    row.InTransit,
		NetAvailable: row.NetAvailable(),
	}, nil
}

// ListTransactions lista los hechos de una posición (rastro de auditoría).
func (s *Service) ListTransactions(ctx context.Context, key entity.LedgerKey, limit, offset int) ([]*entity.StockTransaction, error) {
	return s.txReadRepo.ListByKey(ctx, key, limit, offset)
}

// ListTransactionsByReference lista los hechos originados por un documento.
func (s *Service) ListTransactionsByReference(ctx context.Context, organizationID, referenceKind, referenceID string) ([]*entity.StockTransaction, error) {
	return s.txReadRepo.ListByReference(ctx, organizationID, referenceKind, referenceID)
}
