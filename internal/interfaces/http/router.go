package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/stock-ledger/internal/application/auth"
	"github.com/tu-usuario/stock-ledger/internal/application/posting"
	"github.com/tu-usuario/stock-ledger/internal/application/usecase"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	OrganizationUC *usecase.OrganizationUseCase
	ItemUC         *usecase.ItemUseCase
	WarehouseUC    *usecase.WarehouseUseCase
	BatchUC        *usecase.BatchUseCase
	PostingService *posting.Service
	AuthUC         *auth.AuthUseCase
	JWTSecret      string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api/v1")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Organizations (público para el alta inicial; lectura protegida después si se requiere)
	organizations := api.Group("/organizations")
	organizationHandler := NewOrganizationHandler(deps.OrganizationUC)
	organizations.Post("/", organizationHandler.Create)
	organizations.Get("/:id", organizationHandler.GetByID)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Items (protegido)
	items := protected.Group("/items")
	itemHandler := NewItemHandler(deps.ItemUC)
	items.Post("/", itemHandler.Create)
	items.Get("/", itemHandler.List)
	items.Get("/:id", itemHandler.GetByID)
	items.Put("/:id", itemHandler.Update)

	// Warehouses (protegido; la política de stock negativo solo la tocan admins)
	warehouses := protected.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC)
	warehouses.Post("/", RequireRole(entity.RoleAdmin), warehouseHandler.Create)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Get("/:id", warehouseHandler.GetByID)
	warehouses.Put("/:id", RequireRole(entity.RoleAdmin), warehouseHandler.Update)

	// Batches (protegido)
	batches := protected.Group("/batches")
	batchHandler := NewBatchHandler(deps.BatchUC)
	batches.Post("/", batchHandler.Create)
	batches.Get("/", batchHandler.ListByItem)
	batches.Get("/:id", batchHandler.GetByID)

	// Stock: motor de posting (protegido)
	stock := protected.Group("/stock")
	stockHandler := NewStockHandler(deps.PostingService)
	stock.Post("/transactions", RequireRole(entity.RoleAdmin, entity.RoleBodeguero), stockHandler.PostTransaction)
	stock.Get("/transactions", stockHandler.ListTransactions)
	stock.Get("/transactions/by-reference", stockHandler.ListTransactionsByReference)
	stock.Post("/transactions/:id/cancel", RequireRole(entity.RoleAdmin, entity.RoleBodeguero), stockHandler.CancelTransaction)
	stock.Post("/reservations", stockHandler.Reserve)
	stock.Post("/releases", stockHandler.Release)
	stock.Get("/", stockHandler.GetStock)
}
