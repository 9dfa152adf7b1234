package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger-api/internal/application/assistant"
	"github.com/jhoicas/stock-ledger-api/internal/application/auth"
	"github.com/jhoicas/stock-ledger-api/internal/application/catalog"
	"github.com/jhoicas/stock-ledger-api/internal/application/report"
	"github.com/jhoicas/stock-ledger-api/internal/application/stock"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CatalogUC   *catalog.Resolver
	StockUC     *stock.Coordinator
	KardexUC    *report.KardexUseCase
	AssistantUC *assistant.AssistantUseCase
	AuthUC      *auth.AuthUseCase
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Catálogo (protegido)
	products := protected.Group("/products")
	catalogHandler := NewCatalogHandler(deps.CatalogUC)
	products.Post("/upsert", catalogHandler.Upsert)
	products.Post("/upsert/batch", catalogHandler.UpsertBatch)
	products.Get("/varieties", catalogHandler.ListVarieties)
	products.Get("/search", catalogHandler.Search)
	products.Get("/:sku/price", catalogHandler.GetPrice)
	products.Get("/:sku/stock", catalogHandler.GetStock)
	products.Get("/:sku/card", catalogHandler.GetCard)

	// Stock (protegido)
	stockGroup := protected.Group("/stock")
	stockHandler := NewStockHandler(deps.StockUC)
	stockGroup.Post("/buy", stockHandler.Buy)
	stockGroup.Post("/buy/batch", stockHandler.BuyBatch)
	stockGroup.Post("/sell", stockHandler.Sell)
	stockGroup.Post("/sell/order", stockHandler.SellOrder)
	// Los ajustes de inventario quedan restringidos a admin.
	stockGroup.Post("/adjust", RequireRole(entity.RoleAdmin), stockHandler.Adjust)

	// Reportes (protegido)
	reports := protected.Group("/reports")
	reportHandler := NewReportHandler(deps.KardexUC)
	reports.Get("/kardex/:sku", reportHandler.DownloadKardex)
	reports.Get("/kardex/:sku/movements", reportHandler.ListMovements)

	// Asistente (protegido; opcional, solo si hay API key configurada)
	if deps.AssistantUC != nil {
		assistantGroup := protected.Group("/assistant")
		assistantHandler := NewAssistantHandler(deps.AssistantUC)
		assistantGroup.Post("/chat", assistantHandler.Chat)
	}
}
