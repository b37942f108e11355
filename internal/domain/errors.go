package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInactive           = errors.New("recurso inactivo")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrAlreadyCancelled   = errors.New("la transacción ya está anulada")

	// ErrImmutableTransaction: intentar modificar o borrar un hecho del libro
	// es un error de programación, no un error de negocio. Última línea de
	// defensa en el código; el trigger de BD lo bloquea también.
	ErrImmutableTransaction = errors.New("las transacciones de stock son inmutables")
)

// InsufficientStockError lleva el contexto disponible-vs-solicitado para que
// el caller pueda mostrar un mensaje accionable o pedir menos cantidad.
type InsufficientStockError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente: disponible %s, solicitado %s",
		e.Available.String(), e.Requested.String())
}

// Is permite errors.Is(err, domain.ErrInsufficientStock) sobre el error tipado.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
