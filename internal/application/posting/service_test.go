package posting_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/stock-ledger/internal/application/posting"
	"github.com/tu-usuario/stock-ledger/internal/domain"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
	"github.com/tu-usuario/stock-ledger/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria: un memStore compartido con semántica transaccional
// (snapshot antes de Run, restore si la fn devuelve error) y un mutex que
// serializa los Run, emulando el lock por posición de la BD.
// ──────────────────────────────────────────────────────────────────────────────

type memStore struct {
	mu      sync.Mutex
	txs     map[string]entity.TransactionRecord
	ledger  map[string]*entity.StockLedger
	batches map[string]*entity.Batch
	events  []*entity.StockEvent
}

func newMemStore() *memStore {
	return &memStore{
		txs:     make(map[string]entity.TransactionRecord),
		ledger:  make(map[string]*entity.StockLedger),
		batches: make(map[string]*entity.Batch),
	}
}

func ledgerKey(org, item, wh string, batch *string) string {
	b := "-"
	if batch != nil {
		b = *batch
	}
	return fmt.Sprintf("%s|%s|%s|%s", org, item, wh, b)
}

type storeSnapshot struct {
	txs    map[string]entity.TransactionRecord
	ledger map[string]*entity.StockLedger
	events []*entity.StockEvent
}

func (s *memStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		txs:    make(map[string]entity.TransactionRecord, len(s.txs)),
		ledger: make(map[string]*entity.StockLedger, len(s.ledger)),
		events: append([]*entity.StockEvent(nil), s.events...),
	}
	for k, v := range s.txs {
		snap.txs[k] = v
	}
	for k, v := range s.ledger {
		row := *v
		snap.ledger[k] = &row
	}
	return snap
}

func (s *memStore) restore(snap storeSnapshot) {
	s.txs = snap.txs
	s.ledger = snap.ledger
	s.events = snap.events
}

type fakeTxRunner struct {
	store *memStore
}

func (r *fakeTxRunner) Run(_ context.Context, fn func(repository.TransactionRepository, repository.LedgerRepository, repository.OutboxRepository) error) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	snap := r.store.snapshot()
	err := fn(&fakeTransactionRepo{store: r.store}, &fakeLedgerRepo{store: r.store}, &fakeOutboxRepo{store: r.store})
	if err != nil {
		r.store.restore(snap)
	}
	return err
}

type fakeTransactionRepo struct {
	store *memStore
}

func (r *fakeTransactionRepo) Create(_ context.Context, tx *entity.StockTransaction) error {
	rec := tx.Record()
	if _, ok := r.store.txs[rec.ID]; ok {
		return domain.ErrDuplicate
	}
	r.store.txs[rec.ID] = rec
	return nil
}

func (r *fakeTransactionRepo) GetByID(_ context.Context, organizationID, id string) (*entity.StockTransaction, error) {
	rec, ok := r.store.txs[id]
	if !ok || rec.OrganizationID != organizationID {
		return nil, nil
	}
	return entity.RestoreStockTransaction(rec), nil
}

func (r *fakeTransactionRepo) SaveCancellation(_ context.Context, tx *entity.StockTransaction) error {
	rec := tx.Record()
	stored, ok := r.store.txs[rec.ID]
	if !ok || stored.Cancelled {
		return domain.ErrAlreadyCancelled
	}
	stored.Cancelled = true
	stored.CancelReason = rec.CancelReason
	r.store.txs[rec.ID] = stored
	return nil
}

func (r *fakeTransactionRepo) ListByKey(_ context.Context, key entity.LedgerKey, limit, offset int) ([]*entity.StockTransaction, error) {
	var recs []entity.TransactionRecord
	for _, rec := range r.store.txs {
		if rec.OrganizationID != key.OrganizationID || rec.ItemID != key.ItemID || rec.WarehouseID != key.WarehouseID {
			continue
		}
		if ledgerKey("", "", "", rec.BatchID) != ledgerKey("", "", "", key.BatchID) {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
	if offset > len(recs) {
		offset = len(recs)
	}
	recs = recs[offset:]
	if limit < len(recs) {
		recs = recs[:limit]
	}
	out := make([]*entity.StockTransaction, 0, len(recs))
	for _, rec := range recs {
		out = append(out, entity.RestoreStockTransaction(rec))
	}
	return out, nil
}

func (r *fakeTransactionRepo) ListByReference(_ context.Context, organizationID, referenceKind, referenceID string) ([]*entity.StockTransaction, error) {
	var recs []entity.TransactionRecord
	for _, rec := range r.store.txs {
		if rec.OrganizationID == organizationID && rec.ReferenceKind == referenceKind && rec.ReferenceID == referenceID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })
	out := make([]*entity.StockTransaction, 0, len(recs))
	for _, rec := range recs {
		out = append(out, entity.RestoreStockTransaction(rec))
	}
	return out, nil
}

type fakeLedgerRepo struct {
	store *memStore
}

func (r *fakeLedgerRepo) Get(_ context.Context, key entity.LedgerKey) (*entity.StockLedger, error) {
	row, ok := r.store.ledger[ledgerKey(key.OrganizationID, key.ItemID, key.WarehouseID, key.BatchID)]
	if !ok {
		return nil, nil
	}
	copy := *row
	return &copy, nil
}

func (r *fakeLedgerRepo) GetForUpdate(_ context.Context, key entity.LedgerKey) (*entity.StockLedger, error) {
	k := ledgerKey(key.OrganizationID, key.ItemID, key.WarehouseID, key.BatchID)
	row, ok := r.store.ledger[k]
	if !ok {
		row = &entity.StockLedger{
			OrganizationID: key.OrganizationID,
			ItemID:         key.ItemID,
			WarehouseID:    key.WarehouseID,
			BatchID:        key.BatchID,
			Available:      decimal.Zero,
			Reserved:       decimal.Zero,
			InTransit:      decimal.Zero,
			UnitCost:       decimal.Zero,
			UpdatedAt:      time.Now(),
		}
		r.store.ledger[k] = row
	}
	copy := *row
	return &copy, nil
}

func (r *fakeLedgerRepo) FindReservableForUpdate(_ context.Context, organizationID, itemID, warehouseID string, quantity decimal.Decimal) (*entity.StockLedger, error) {
	var candidates []*entity.StockLedger
	for _, row := range r.store.ledger {
		if row.OrganizationID != organizationID || row.ItemID != itemID || row.WarehouseID != warehouseID {
			continue
		}
		if row.BatchID == nil {
			continue
		}
		if row.Available.Sub(row.Reserved).LessThan(quantity) {
			continue
		}
		candidates = append(candidates, row)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	// FEFO: vencimiento más próximo primero, nil al final, id de lote desempate.
	sort.Slice(candidates, func(i, j int) bool {
		bi, bj := r.store.batches[*candidates[i].BatchID], r.store.batches[*candidates[j].BatchID]
		switch {
		case bi.ExpiryDate == nil && bj.ExpiryDate == nil:
			return bi.ID < bj.ID
		case bi.ExpiryDate == nil:
			return false
		case bj.ExpiryDate == nil:
			return true
		case bi.ExpiryDate.Equal(*bj.ExpiryDate):
			return bi.ID < bj.ID
		default:
			return bi.ExpiryDate.Before(*bj.ExpiryDate)
		}
	})
	copy := *candidates[0]
	return &copy, nil
}

func (r *fakeLedgerRepo) Save(_ context.Context, row *entity.StockLedger) error {
	k := ledgerKey(row.OrganizationID, row.ItemID, row.WarehouseID, row.BatchID)
	if _, ok := r.store.ledger[k]; !ok {
		return errors.New("posición inexistente")
	}
	copy := *row
	r.store.ledger[k] = &copy
	return nil
}

func (r *fakeLedgerRepo) ListByItem(_ context.Context, organizationID, itemID string) ([]*entity.StockLedger, error) {
	var out []*entity.StockLedger
	for _, row := range r.store.ledger {
		if row.OrganizationID == organizationID && row.ItemID == itemID {
			copy := *row
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) ListByWarehouse(_ context.Context, organizationID, warehouseID string, limit, offset int) ([]*entity.StockLedger, error) {
	var out []*entity.StockLedger
	for _, row := range r.store.ledger {
		if row.OrganizationID == organizationID && row.WarehouseID == warehouseID {
			copy := *row
			out = append(out, &copy)
		}
	}
	return out, nil
}

type fakeOutboxRepo struct {
	store *memStore
}

func (r *fakeOutboxRepo) Create(_ context.Context, event *entity.StockEvent) error {
	r.store.events = append(r.store.events, event)
	return nil
}

func (r *fakeOutboxRepo) ListPending(_ context.Context, limit int) ([]*entity.StockEvent, error) {
	var out []*entity.StockEvent
	for _, e := range r.store.events {
		if e.PublishedAt == nil {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeOutboxRepo) MarkPublished(_ context.Context, id string) error {
	now := time.Now()
	for _, e := range r.store.events {
		if e.ID == id {
			e.PublishedAt = &now
			return nil
		}
	}
	return errors.New("evento inexistente")
}

type fakeItemRepo struct {
	items map[string]*entity.Item
}

func (r *fakeItemRepo) Create(item *entity.Item) error { r.items[item.ID] = item; return nil }
func (r *fakeItemRepo) GetByID(id string) (*entity.Item, error) {
	return r.items[id], nil
}
func (r *fakeItemRepo) GetByOrganizationAndSKU(organizationID, sku string) (*entity.Item, error) {
	for _, i := range r.items {
		if i.OrganizationID == organizationID && i.SKU == sku {
			return i, nil
		}
	}
	return nil, nil
}
func (r *fakeItemRepo) Update(item *entity.Item) error { r.items[item.ID] = item; return nil }
func (r *fakeItemRepo) ListByOrganization(string, int, int) ([]*entity.Item, error) {
	return nil, nil
}

type fakeWarehouseRepo struct {
	warehouses map[string]*entity.Warehouse
}

func (r *fakeWarehouseRepo) Create(w *entity.Warehouse) error { r.warehouses[w.ID] = w; return nil }
func (r *fakeWarehouseRepo) GetByID(id string) (*entity.Warehouse, error) {
	return r.warehouses[id], nil
}
func (r *fakeWarehouseRepo) Update(w *entity.Warehouse) error { r.warehouses[w.ID] = w; return nil }
func (r *fakeWarehouseRepo) ListByOrganization(string, int, int) ([]*entity.Warehouse, error) {
	return nil, nil
}

type fakeBatchRepo struct {
	store *memStore
}

func (r *fakeBatchRepo) Create(b *entity.Batch) error { r.store.batches[b.ID] = b; return nil }
func (r *fakeBatchRepo) GetByID(id string) (*entity.Batch, error) {
	return r.store.batches[id], nil
}
func (r *fakeBatchRepo) ListByItem(string, int, int) ([]*entity.Batch, error) {
	return nil, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Fixture
// ──────────────────────────────────────────────────────────────────────────────

type fixture struct {
	svc       *posting.Service
	store     *memStore
	org       string
	item      *entity.Item
	warehouse *entity.Warehouse
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	org := uuid.New().String()
	now := time.Now()
	item := &entity.Item{
		ID:             uuid.New().String(),
		OrganizationID: org,
		SKU:            "SKU-001",
		Name:           "Tornillo 3/8",
		UnitMeasure:    "UND",
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	warehouse := &entity.Warehouse{
		ID:             uuid.New().String(),
		OrganizationID: org,
		Name:           "Bodega Central",
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	itemRepo := &fakeItemRepo{items: map[string]*entity.Item{item.ID: item}}
	warehouseRepo := &fakeWarehouseRepo{warehouses: map[string]*entity.Warehouse{warehouse.ID: warehouse}}
	svc := posting.NewService(
		&fakeTxRunner{store: store},
		itemRepo,
		warehouseRepo,
		&fakeBatchRepo{store: store},
		&fakeLedgerRepo{store: store},
		&fakeTransactionRepo{store: store},
	)
	return &fixture{svc: svc, store: store, org: org, item: item, warehouse: warehouse}
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (f *fixture) post(t *testing.T, kind entity.TransactionKind, qty, cost string, ref string) *entity.StockTransaction {
	t.Helper()
	fact, err := f.svc.Post(context.Background(), posting.PostInput{
		OrganizationID: f.org,
		UserID:         uuid.New().String(),
		Kind:           kind,
		ItemID:         f.item.ID,
		WarehouseID:    f.warehouse.ID,
		Quantity:       d(qty),
		UnitCost:       d(cost),
		ReferenceKind:  entity.RefGoodsReceipt,
		ReferenceID:    ref,
	})
	require.NoError(t, err)
	return fact
}

func (f *fixture) stock(t *testing.T) posting.StockSnapshot {
	t.Helper()
	snap, err := f.svc.GetStock(context.Background(), f.org, f.item.ID, f.warehouse.ID, nil)
	require.NoError(t, err)
	return snap
}

func (f *fixture) unitCost() decimal.Decimal {
	row := f.store.ledger[ledgerKey(f.org, f.item.ID, f.warehouse.ID, nil)]
	if row == nil {
		return decimal.Zero
	}
	return row.UnitCost
}

// ──────────────────────────────────────────────────────────────────────────────
// Posting: costo promedio ponderado y saldos
// ──────────────────────────────────────────────────────────────────────────────

// Escenario completo: entradas con costo, salida, salida excesiva rechazada,
// anulación con hecho compensatorio.
func TestPost_EscenarioCompleto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Entrada 100 @ 10.00
	r1 := f.post(t, entity.KindReceipt, "100", "10.00", "GR-001")
	assert.True(t, d("100").Equal(r1.BalanceAfter()))
	assert.True(t, d("10").Equal(f.unitCost()))

	// Entrada 50 @ 16.00 → costo promedio (100*10 + 50*16) / 150 = 12
	f.post(t, entity.KindReceipt, "50", "16.00", "GR-002")
	assert.True(t, d("150").Equal(f.stock(t).Available))
	assert.True(t, d("12").Equal(f.unitCost()), "costo promedio ponderado: %s", f.unitCost())

	// Salida 60 → disponible 90, el costo no cambia en salidas
	issue := f.post(t, entity.KindIssue, "-60", "12.00", "SO-001")
	assert.True(t, d("90").Equal(f.stock(t).Available))
	assert.True(t, d("12").Equal(f.unitCost()))

	// Salida excesiva: rechazada con disponible y solicitado en el error
	_, err := f.svc.Post(ctx, posting.PostInput{
		OrganizationID: f.org,
		UserID:         "u",
		Kind:           entity.KindIssue,
		ItemID:         f.item.ID,
		WarehouseID:    f.warehouse.ID,
		Quantity:       d("-200"),
		UnitCost:       d("0"),
		ReferenceKind:  entity.RefSalesOrder,
		ReferenceID:    "SO-002",
	})
	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, d("90").Equal(insufficient.Available))
	assert.True(t, d("200").Equal(insufficient.Requested))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.True(t, d("90").Equal(f.stock(t).Available), "un posting rechazado no muta nada")

	// Anulación de la salida: hecho compensatorio +60 con kind de reversa
	reversal, err := f.svc.Cancel(ctx, f.org, issue.ID(), "pedido devuelto", "u")
	require.NoError(t, err)
	assert.Equal(t, entity.KindIssue.Reversal(), reversal.Kind())
	assert.True(t, d("60").Equal(reversal.Quantity()))
	assert.Equal(t, entity.RefCancellation, reversal.ReferenceKind())
	assert.Equal(t, issue.ID(), reversal.ReferenceID())
	assert.True(t, d("150").Equal(f.stock(t).Available))

	// El original quedó marcado pero sigue en el libro
	original, err := f.svc.ListTransactionsByReference(ctx, f.org, entity.RefGoodsReceipt, "SO-001")
	require.NoError(t, err)
	require.Len(t, original, 1)
	assert.True(t, original[0].Cancelled())
	assert.Equal(t, "pedido devuelto", original[0].CancelReason())
}

// Invariante de replay: el disponible es la suma de los hechos no anulados.
func TestPost_InvarianteReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.post(t, entity.KindReceipt, "100", "10.00", "GR-001")
	f.post(t, entity.KindReceipt, "50", "16.00", "GR-002")
	issue := f.post(t, entity.KindIssue, "-30", "0", "SO-001")
	f.post(t, entity.KindAdjustment, "-5", "0", "ADJ-001")
	_, err := f.svc.Cancel(ctx, f.org, issue.ID(), "error de captura", "u")
	require.NoError(t, err)

	key := entity.LedgerKey{OrganizationID: f.org, ItemID: f.item.ID, WarehouseID: f.warehouse.ID}
	facts, err := f.svc.ListTransactions(ctx, key, 100, 0)
	require.NoError(t, err)

	replayed := decimal.Zero
	for _, fact := range facts {
		replayed = replayed.Add(fact.Quantity())
	}
	assert.True(t, replayed.Equal(f.stock(t).Available),
		"replay %s != disponible %s", replayed, f.stock(t).Available)
}

func TestPost_ValidacionesDeEntrada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	base := posting.PostInput{
		OrganizationID: f.org,
		UserID:         "u",
		Kind:           entity.KindReceipt,
		ItemID:         f.item.ID,
		WarehouseID:    f.warehouse.ID,
		Quantity:       d("10"),
		UnitCost:       d("1"),
		ReferenceKind:  entity.RefGoodsReceipt,
		ReferenceID:    "GR-001",
	}

	// Cantidad cero: un movimiento que no mueve nada no existe
	in := base
	in.Quantity = decimal.Zero
	_, err := f.svc.Post(ctx, in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Costo negativo
	in = base
	in.UnitCost = d("-1")
	_, err = f.svc.Post(ctx, in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Kind de reversa solo nace de Cancel
	in = base
	in.Kind = entity.KindReceipt.Reversal()
	_, err = f.svc.Post(ctx, in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Referencia obligatoria
	in = base
	in.ReferenceID = ""
	_, err = f.svc.Post(ctx, in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Ítem inexistente
	in = base
	in.ItemID = uuid.New().String()
	_, err = f.svc.Post(ctx, in)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Ítem inactivo
	f.item.IsActive = false
	_, err = f.svc.Post(ctx, base)
	assert.ErrorIs(t, err, domain.ErrInactive)
	f.item.IsActive = true

	// Bodega inactiva
	f.warehouse.IsActive = false
	_, err = f.svc.Post(ctx, base)
	assert.ErrorIs(t, err, domain.ErrInactive)
}

func TestPost_BodegaConStockNegativoPermitido(t *testing.T) {
	f := newFixture(t)
	f.warehouse.AllowNegativeStock = true

	fact := f.post(t, entity.KindIssue, "-25", "0", "SO-001")
	assert.True(t, d("-25").Equal(fact.BalanceAfter()))
	assert.True(t, d("-25").Equal(f.stock(t).Available))
}

func TestPost_ItemLoteadoExigeLoteEnEntradas(t *testing.T) {
	f := newFixture(t)
	f.item.IsBatchTracked = true

	_, err := f.svc.Post(context.Background(), posting.PostInput{
		OrganizationID: f.org,
		UserID:         "u",
		Kind:           entity.KindReceipt,
		ItemID:         f.item.ID,
		WarehouseID:    f.warehouse.ID,
		Quantity:       d("10"),
		UnitCost:       d("1"),
		ReferenceKind:  entity.RefGoodsReceipt,
		ReferenceID:    "GR-001",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// El costo se toma del entrante cuando la posición está vacía o en negativo.
func TestPost_CostoConPosicionNegativa(t *testing.T) {
	f := newFixture(t)
	f.warehouse.AllowNegativeStock = true

	f.post(t, entity.KindIssue, "-10", "0", "SO-001")
	f.post(t, entity.KindReceipt, "4", "7.50", "GR-001")

	// total previo -10 ≤ 0 → costo = costo entrante
	assert.True(t, d("7.5").Equal(f.unitCost()))
	assert.True(t, d("-6").Equal(f.stock(t).Available))
}

// ──────────────────────────────────────────────────────────────────────────────
// Cancelación
// ──────────────────────────────────────────────────────────────────────────────

func TestCancel_DobleAnulacionRechazada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fact := f.post(t, entity.KindReceipt, "10", "5", "GR-001")
	_, err := f.svc.Cancel(ctx, f.org, fact.ID(), "duplicado", "u")
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.org, fact.ID(), "otra vez", "u")
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)
}

func TestCancel_RazonObligatoria(t *testing.T) {
	f := newFixture(t)
	fact := f.post(t, entity.KindReceipt, "10", "5", "GR-001")

	_, err := f.svc.Cancel(context.Background(), f.org, fact.ID(), "", "u")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCancel_MovimientoInexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Cancel(context.Background(), f.org, uuid.New().String(), "razón", "u")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Si el hecho compensatorio viola la política de stock negativo, el flip de
// anulación también se revierte: todo o nada.
func TestCancel_RollbackSiReversaDejaNegativo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	receipt := f.post(t, entity.KindReceipt, "100", "10", "GR-001")
	f.post(t, entity.KindIssue, "-80", "0", "SO-001")

	// Anular la entrada exigiría -100 sobre un disponible de 20.
	_, err := f.svc.Cancel(ctx, f.org, receipt.ID(), "entrada errada", "u")
	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)

	// El original NO quedó anulado y el saldo no cambió.
	facts, err := f.svc.ListTransactionsByReference(ctx, f.org, entity.RefGoodsReceipt, "GR-001")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.False(t, facts[0].Cancelled(), "el flip debe revertirse junto con la reversa fallida")
	assert.True(t, d("20").Equal(f.stock(t).Available))
}

// La reversa de una reversa vuelve al kind base, sin apilar sufijos.
func TestCancel_ReversaDeReversa(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fact := f.post(t, entity.KindReceipt, "10", "5", "GR-001")
	rev, err := f.svc.Cancel(ctx, f.org, fact.ID(), "error", "u")
	require.NoError(t, err)
	require.Equal(t, entity.TransactionKind("RECEIPT_REVERSAL"), rev.Kind())

	rev2, err := f.svc.Cancel(ctx, f.org, rev.ID(), "la anulación era errada", "u")
	require.NoError(t, err)
	assert.Equal(t, entity.KindReceipt, rev2.Kind())
	assert.True(t, d("10").Equal(f.stock(t).Available))
}

// ──────────────────────────────────────────────────────────────────────────────
// Reservas
// ──────────────────────────────────────────────────────────────────────────────

func TestReserve_Release_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.post(t, entity.KindReceipt, "100", "10", "GR-001")

	_, err := f.svc.Reserve(ctx, posting.ReserveInput{
		OrganizationID: f.org,
		ItemID:         f.item.ID,
		WarehouseID:    f.warehouse.ID,
		Quantity:       d("30"),
		ReferenceKind:  entity.RefSalesOrder,
		ReferenceID:    "SO-001",
	})
	require.NoError(t, err)

	snap := f.stock(t)
	assert.True(t, d("100").Equal(snap.Available), "reservar no toca el disponible")
	assert.True(t, d("30").Equal(snap.Reserved))
	assert.True(t, d("70").Equal(snap.NetAvailable))

	// Reservar sobre el neto, no sobre el disponible
	_, err = f.svc.Reserve(ctx, posting.ReserveInput{
		OrganizationID: f.org,
		ItemID:         f.item.ID,
		WarehouseID:    f.warehouse.ID,
		Quantity:       d("80"),
		ReferenceKind:  entity.RefSalesOrder,
		ReferenceID:    "SO-002",
	})
	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, d("70").Equal(insufficient.Available))
	assert.True(t, d("80").Equal(insufficient.Requested))

	require.NoError(t, f.svc.Release(ctx, posting.ReleaseInput{
		OrganizationID: f.org,
		ItemID:         f.item.ID,
		WarehouseID:    f.warehouse.ID,
		Quantity:       d("30"),
	}))
	assert.True(t, f.stock(t).Reserved.IsZero())

	// Las reservas no escriben hechos en el libro
	key := entity.LedgerKey{OrganizationID: f.org, ItemID: f.item.ID, WarehouseID: f.warehouse.ID}
	facts, err := f.svc.ListTransactions(ctx, key, 100, 0)
	require.NoError(t, err)
	assert.Len(t, facts, 1)
}

func TestRelease_ClampEnCero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.post(t, entity.KindReceipt, "10", "1", "GR-001")
	_, err := f.svc.Reserve(ctx, posting.ReserveInput{
		OrganizationID: f.org,
		ItemID:         f.item.ID,
		WarehouseID:    f.warehouse.ID,
		Quantity:       d("5"),
		ReferenceKind:  entity.RefSalesOrder,
		ReferenceID:    "SO-001",
	})
	require.NoError(t, err)

	// Liberar más de lo reservado no deja la reserva negativa
	require.NoError(t, f.svc.Release(ctx, posting.ReleaseInput{
		OrganizationID: f.org,
		ItemID:         f.item.ID,
		WarehouseID:    f.warehouse.ID,
		Quantity:       d("50"),
	}))
	assert.True(t, f.stock(t).Reserved.IsZero())
}

// Sin lote explícito en un ítem loteado, la reserva elige FEFO: el lote con
// vencimiento más próximo que alcance la cantidad.
func TestReserve_FEFOEligeVencimientoMasProximo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.item.IsBatchTracked = true

	near := time.Now().AddDate(0, 1, 0)
	far := time.Now().AddDate(1, 0, 0)
	batchNear := &entity.Batch{ID: uuid.New().String(), OrganizationID: f.org, ItemID: f.item.ID, Code: "L-NEAR", ExpiryDate: &near}
	batchFar := &entity.Batch{ID: uuid.New().String(), OrganizationID: f.org, ItemID: f.item.ID, Code: "L-FAR", ExpiryDate: &far}
	f.store.batches[batchNear.ID] = batchNear
	f.store.batches[batchFar.ID] = batchFar

	for _, in := range []posting.PostInput{
		{Kind: entity.KindReceipt, BatchID: &batchFar.ID, Quantity: d("50"), UnitCost: d("1"), ReferenceID: "GR-001"},
		{Kind: entity.KindReceipt, BatchID: &batchNear.ID, Quantity: d("40"), UnitCost: d("1"), ReferenceID: "GR-002"},
	} {
		in.OrganizationID = f.org
		in.UserID = "u"
		in.ItemID = f.item.ID
		in.WarehouseID = f.warehouse.ID
		in.ReferenceKind = entity.RefGoodsReceipt
		_, err := f.svc.Post(ctx, in)
		require.NoError(t, err)
	}

	chosen, err := f.svc.Reserve(ctx, posting.ReserveInput{
		OrganizationID: f.org,
		ItemID:         f.item.ID,
		WarehouseID:    f.warehouse.ID,
		Quantity:       d("30"),
		ReferenceKind:  entity.RefSalesOrder,
		ReferenceID:    "SO-001",
	})
	require.NoError(t, err)
	require.NotNil(t, chosen)
	assert.Equal(t, batchNear.ID, *chosen, "debe elegir el lote que vence primero")

	// Si el lote próximo no alcanza, salta al siguiente
	chosen, err = f.svc.Reserve(ctx, posting.ReserveInput{
		OrganizationID: f.org,
		ItemID:         f.item.ID,
		WarehouseID:    f.warehouse.ID,
		Quantity:       d("45"),
		ReferenceKind:  entity.RefSalesOrder,
		ReferenceID:    "SO-002",
	})
	require.NoError(t, err)
	require.NotNil(t, chosen)
	assert.Equal(t, batchFar.ID, *chosen)
}

func TestReserve_CantidadInvalida(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Reserve(context.Background(), posting.ReserveInput{
		OrganizationID: f.org,
		ItemID:         f.item.ID,
		WarehouseID:    f.warehouse.ID,
		Quantity:       d("-5"),
		ReferenceKind:  entity.RefSalesOrder,
		ReferenceID:    "SO-001",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Lecturas
// ──────────────────────────────────────────────────────────────────────────────

// Una posición nunca posteada devuelve ceros: ausencia es estado válido.
func TestGetStock_PosicionNuncaPosteada(t *testing.T) {
	f := newFixture(t)
	snap := f.stock(t)
	assert.True(t, snap.Available.IsZero())
	assert.True(t, snap.Reserved.IsZero())
	assert.True(t, snap.InTransit.IsZero())
	assert.True(t, snap.NetAvailable.IsZero())
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia y outbox
// ──────────────────────────────────────────────────────────────────────────────

// N posteos concurrentes sobre la misma posición: N hechos y saldo exacto.
func TestPost_ConcurrenciaMismaPosicion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const n = 25

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Post(ctx, posting.PostInput{
				OrganizationID: f.org,
				UserID:         "u",
				Kind:           entity.KindReceipt,
				ItemID:         f.item.ID,
				WarehouseID:    f.warehouse.ID,
				Quantity:       d("1"),
				UnitCost:       d("2"),
				ReferenceKind:  entity.RefGoodsReceipt,
				ReferenceID:    fmt.Sprintf("GR-%03d", i),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.True(t, decimal.NewFromInt(n).Equal(f.stock(t).Available))
	key := entity.LedgerKey{OrganizationID: f.org, ItemID: f.item.ID, WarehouseID: f.warehouse.ID}
	facts, err := f.svc.ListTransactions(ctx, key, 100, 0)
	require.NoError(t, err)
	assert.Len(t, facts, n, "ningún posting se pierde ni se duplica")
}

// Cada posting deja su evento en el outbox; la anulación deja dos (la reversa
// y el aviso de anulación).
func TestPost_EventosEnOutbox(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fact := f.post(t, entity.KindReceipt, "10", "5", "GR-001")
	require.Len(t, f.store.events, 1)
	assert.Equal(t, entity.EventPostingCreated, f.store.events[0].EventType)
	assert.Equal(t, fact.ID(), f.store.events[0].TransactionID)

	_, err := f.svc.Cancel(ctx, f.org, fact.ID(), "error", "u")
	require.NoError(t, err)
	require.Len(t, f.store.events, 3)
	assert.Equal(t, entity.EventPostingCancelled, f.store.events[2].EventType)
}
