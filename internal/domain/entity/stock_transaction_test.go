package entity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/stock-ledger/internal/domain"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
)

func validParams() entity.NewTransactionParams {
	return entity.NewTransactionParams{
		OrganizationID: "org-1",
		Kind:           entity.KindReceipt,
		ItemID:         "item-1",
		WarehouseID:    "wh-1",
		Quantity:       decimal.NewFromInt(10),
		UnitCost:       decimal.NewFromInt(5),
		ReferenceKind:  entity.RefGoodsReceipt,
		ReferenceID:    "grn-1",
		BalanceAfter:   decimal.NewFromInt(10),
		CreatedBy:      "user-1",
	}
}

func TestNewStockTransaction_CalculaTotalValue(t *testing.T) {
	tx, err := entity.NewStockTransaction(validParams())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(tx.TotalValue()),
		"total_value = quantity * unit_cost")
	assert.NotEmpty(t, tx.ID())
	assert.False(t, tx.Cancelled())
}

func TestNewStockTransaction_RechazaCantidadCero(t *testing.T) {
	p := validParams()
	p.Quantity = decimal.Zero
	_, err := entity.NewStockTransaction(p)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewStockTransaction_RechazaCostoNegativo(t *testing.T) {
	p := validParams()
	p.UnitCost = decimal.NewFromInt(-1)
	_, err := entity.NewStockTransaction(p)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewStockTransaction_RechazaKindDesconocido(t *testing.T) {
	p := validParams()
	p.Kind = "TELEPORT"
	_, err := entity.NewStockTransaction(p)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewStockTransaction_RechazaReferenciaVacia(t *testing.T) {
	p := validParams()
	p.ReferenceID = ""
	_, err := entity.NewStockTransaction(p)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// MarkCancelled es la única mutación legal y solo funciona una vez.
func TestMarkCancelled_SoloUnaVez(t *testing.T) {
	tx, err := entity.NewStockTransaction(validParams())
	require.NoError(t, err)

	require.NoError(t, tx.MarkCancelled("recepción registrada por error"))
	assert.True(t, tx.Cancelled())
	assert.Equal(t, "recepción registrada por error", tx.CancelReason())

	err = tx.MarkCancelled("otra razón")
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled,
		"anular dos veces es un error de negocio reportable")
}

func TestMarkCancelled_ExigeRazon(t *testing.T) {
	tx, err := entity.NewStockTransaction(validParams())
	require.NoError(t, err)
	assert.ErrorIs(t, tx.MarkCancelled(""), domain.ErrInvalidInput)
}

// El sufijo de reversa se aplica una sola vez: reversar una reversa vuelve al kind base.
func TestTransactionKind_Reversal(t *testing.T) {
	assert.Equal(t, entity.TransactionKind("ISSUE_REVERSAL"), entity.KindIssue.Reversal())
	assert.Equal(t, entity.KindIssue, entity.KindIssue.Reversal().Reversal())
	assert.True(t, entity.KindIssue.Reversal().IsReversal())
	assert.True(t, entity.KindIssue.Reversal().Valid())
	assert.Equal(t, entity.KindIssue, entity.KindIssue.Reversal().Base())
}

// Restore/Record es un round-trip fiel para los adaptadores de persistencia.
func TestRestoreStockTransaction_RoundTrip(t *testing.T) {
	tx, err := entity.NewStockTransaction(validParams())
	require.NoError(t, err)
	require.NoError(t, tx.MarkCancelled("duplicado"))

	rec := tx.Record()
	restored := entity.RestoreStockTransaction(rec)
	assert.Equal(t, rec, restored.Record())
}
