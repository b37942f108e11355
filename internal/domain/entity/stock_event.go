package entity

import (
	"encoding/json"
	"time"
)

// Tipos de evento publicados por el motor de posting.
const (
	EventPostingCreated   = "POSTING_CREATED"
	EventPostingCancelled = "POSTING_CANCELLED"
)

// StockEvent es una fila del outbox transaccional: se inserta en la misma
// transacción que el hecho de stock, para que otros módulos reaccionen sin
// acoplar el motor a un pub/sub concreto. Un publicador externo la drena.
type StockEvent struct {
	ID             string
	OrganizationID string
	EventType      string
	TransactionID  string
	Payload        json.RawMessage
	CreatedAt      time.Time
	PublishedAt    *time.Time // nil = pendiente de publicar
}
