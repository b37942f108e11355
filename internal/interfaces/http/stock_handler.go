package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/stock-ledger/internal/application/dto"
	"github.com/tu-usuario/stock-ledger/internal/application/posting"
	"github.com/tu-usuario/stock-ledger/internal/domain"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
)

// StockHandler expone el motor de posting: movimientos, anulaciones,
// reservas y consultas de stock (protegido).
type StockHandler struct {
	svc *posting.Service
}

// NewStockHandler construye el handler.
func NewStockHandler(svc *posting.Service) *StockHandler {
	return &StockHandler{svc: svc}
}

// PostTransaction godoc
// @Summary      Registrar movimiento de stock
// @Description  Appendea un hecho al libro y proyecta la posición en la misma
// @Description  transacción. Quantity firmada: positiva entra, negativa sale.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.PostTransactionRequest  true  "Movimiento"
// @Success      201   {object}  dto.TransactionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/v1/stock/transactions [post]
func (h *StockHandler) PostTransaction(c *fiber.Ctx) error {
	organizationID := GetOrganizationID(c)
	userID := GetUserID(c)
	if organizationID == "" || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.PostTransactionRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := dto.Validate(in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	fact, err := h.svc.Post(c.Context(), posting.PostInput{
		OrganizationID: organizationID,
		UserID:         userID,
		Kind:           entity.TransactionKind(in.Kind),
		ItemID:         in.ItemID,
		WarehouseID:    in.WarehouseID,
		BatchID:        in.BatchID,
		Quantity:       in.Quantity,
		UnitCost:       in.UnitCost,
		ReferenceKind:  in.ReferenceKind,
		ReferenceID:    in.ReferenceID,
	})
	if err != nil {
		return stockError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toTransactionResponse(fact))
}

// CancelTransaction godoc
// @Summary      Anular un movimiento
// @Description  Marca el hecho original como anulado y registra el hecho
// @Description  compensatorio, todo o nada. Devuelve el hecho compensatorio.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del movimiento"
// @Param        body  body  dto.CancelTransactionRequest  true  "Razón"
// @Success      201   {object}  dto.TransactionResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/v1/stock/transactions/{id}/cancel [post]
func (h *StockHandler) CancelTransaction(c *fiber.Ctx) error {
	organizationID := GetOrganizationID(c)
	userID := GetUserID(c)
	if organizationID == "" || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	var in dto.CancelTransactionRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := dto.Validate(in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	reversal, err := h.svc.Cancel(c.Context(), organizationID, id, in.Reason, userID)
	if err != nil {
		return stockError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toTransactionResponse(reversal))
}

// Reserve godoc
// @Summary      Reservar stock
// @Description  Apartado blando sobre el neto disponible; no escribe en el
// @Description  libro. Sin lote en ítems loteados elige la posición FEFO.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReserveStockRequest  true  "Reserva"
// @Success      200   {object}  dto.ReserveStockResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/v1/stock/reservations [post]
func (h *StockHandler) Reserve(c *fiber.Ctx) error {
	organizationID := GetOrganizationID(c)
	if organizationID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.ReserveStockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := dto.Validate(in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	batchID, err := h.svc.Reserve(c.Context(), posting.ReserveInput{
		OrganizationID: organizationID,
		ItemID:         in.ItemID,
		WarehouseID:    in.WarehouseID,
		BatchID:        in.BatchID,
		Quantity:       in.Quantity,
		ReferenceKind:  in.ReferenceKind,
		ReferenceID:    in.ReferenceID,
	})
	if err != nil {
		return stockError(c, err)
	}
	return c.JSON(dto.ReserveStockResponse{BatchID: batchID})
}

// Release godoc
// @Summary      Liberar stock reservado
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReleaseStockRequest  true  "Liberación"
// @Success      204
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/v1/stock/releases [post]
func (h *StockHandler) Release(c *fiber.Ctx) error {
	organizationID := GetOrganizationID(c)
	if organizationID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.ReleaseStockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := dto.Validate(in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	if err := h.svc.Release(c.Context(), posting.ReleaseInput{
		OrganizationID: organizationID,
		ItemID:         in.ItemID,
		WarehouseID:    in.WarehouseID,
		BatchID:        in.BatchID,
		Quantity:       in.Quantity,
	}); err != nil {
		return stockError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetStock godoc
// @Summary      Consultar stock de una posición
// @Description  Una posición nunca posteada devuelve ceros, no 404.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        item_id       query  string  true   "Ítem (UUID)"
// @Param        warehouse_id  query  string  true   "Bodega (UUID)"
// @Param        batch_id      query  string  false  "Lote (UUID)"
// @Success      200  {object}  dto.StockResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/v1/stock [get]
func (h *StockHandler) GetStock(c *fiber.Ctx) error {
	organizationID := GetOrganizationID(c)
	if organizationID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	itemID := c.Query("item_id")
	warehouseID := c.Query("warehouse_id")
	if itemID == "" || warehouseID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "item_id y warehouse_id son requeridos"})
	}
	var batchID *string
	if b := c.Query("batch_id"); b != "" {
		batchID = &b
	}
	snap, err := h.svc.GetStock(c.Context(), organizationID, itemID, warehouseID, batchID)
	if err != nil {
		return stockError(c, err)
	}
	return c.JSON(dto.StockResponse{
		ItemID:       itemID,
		WarehouseID:  warehouseID,
		BatchID:      batchID,
		Available:    snap.Available,
		Reserved:     snap.Reserved,
		InTransit:    snap.InTransit,
		NetAvailable: snap.NetAvailable,
	})
}

// ListTransactions godoc
// @Summary      Historial de movimientos de una posición
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        item_id       query  string  true   "Ítem (UUID)"
// @Param        warehouse_id  query  string  true   "Bodega (UUID)"
// @Param        batch_id      query  string  false  "Lote (UUID)"
// @Param        limit         query  int     false  "Límite"  default(20)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.TransactionListResponse
// @Router       /api/v1/stock/transactions [get]
func (h *StockHandler) ListTransactions(c *fiber.Ctx) error {
	organizationID := GetOrganizationID(c)
	if organizationID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	itemID := c.Query("item_id")
	warehouseID := c.Query("warehouse_id")
	if itemID == "" || warehouseID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "item_id y warehouse_id son requeridos"})
	}
	var batchID *string
	if b := c.Query("batch_id"); b != "" {
		batchID = &b
	}
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	list, err := h.svc.ListTransactions(c.Context(), entity.LedgerKey{
		OrganizationID: organizationID,
		ItemID:         itemID,
		WarehouseID:    warehouseID,
		BatchID:        batchID,
	}, limit, offset)
	if err != nil {
		return stockError(c, err)
	}
	items := make([]dto.TransactionResponse, 0, len(list))
	for _, f := range list {
		items = append(items, toTransactionResponse(f))
	}
	return c.JSON(dto.TransactionListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	})
}

// ListTransactionsByReference godoc
// @Summary      Movimientos originados por un documento
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        reference_kind  query  string  true  "Tipo de documento"
// @Param        reference_id    query  string  true  "ID del documento"
// @Success      200  {object}  dto.TransactionListResponse
// @Router       /api/v1/stock/transactions/by-reference [get]
func (h *StockHandler) ListTransactionsByReference(c *fiber.Ctx) error {
	organizationID := GetOrganizationID(c)
	if organizationID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	referenceKind := c.Query("reference_kind")
	referenceID := c.Query("reference_id")
	if referenceKind == "" || referenceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "reference_kind y reference_id son requeridos"})
	}
	list, err := h.svc.ListTransactionsByReference(c.Context(), organizationID, referenceKind, referenceID)
	if err != nil {
		return stockError(c, err)
	}
	items := make([]dto.TransactionResponse, 0, len(list))
	for _, f := range list {
		items = append(items, toTransactionResponse(f))
	}
	return c.JSON(dto.TransactionListResponse{Items: items})
}

// stockError mapea los errores del motor a respuestas HTTP.
func stockError(c *fiber.Ctx, err error) error {
	var insufficient *domain.InsufficientStockError
	if errors.As(err, &insufficient) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code:    "INSUFFICIENT_STOCK",
			Message: err.Error(),
			Details: fiber.Map{
				"available": insufficient.Available,
				"requested": insufficient.Requested,
			},
		})
	}
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "ítem, bodega, lote o movimiento no encontrado"})
	case errors.Is(err, domain.ErrInactive):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INACTIVE", Message: "ítem o bodega inactivo"})
	case errors.Is(err, domain.ErrAlreadyCancelled):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "ALREADY_CANCELLED", Message: "el movimiento ya fue anulado"})
	case errors.Is(err, domain.ErrImmutableTransaction):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "IMMUTABLE", Message: "el movimiento no admite modificaciones"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

func toTransactionResponse(f *entity.StockTransaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:             f.ID(),
		OrganizationID: f.OrganizationID(),
		Kind:           string(f.Kind()),
		ItemID:         f.ItemID(),
		WarehouseID:    f.WarehouseID(),
		BatchID:        f.BatchID(),
		Quantity:       f.Quantity(),
		UnitCost:       f.UnitCost(),
		TotalValue:     f.TotalValue(),
		ReferenceKind:  f.ReferenceKind(),
		ReferenceID:    f.ReferenceID(),
		BalanceAfter:   f.BalanceAfter(),
		Cancelled:      f.Cancelled(),
		CancelReason:   f.CancelReason(),
		CreatedBy:      f.CreatedBy(),
		CreatedAt:      f.CreatedAt(),
	}
}
