package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/kitchenledger-backend/api/controllers"
	"github.com/angelmondragon/kitchenledger-backend/api/middleware"
	"github.com/angelmondragon/kitchenledger-backend/internal/catalog"
	"github.com/angelmondragon/kitchenledger-backend/internal/inventory"
	"github.com/angelmondragon/kitchenledger-backend/internal/purchasing"
	"github.com/angelmondragon/kitchenledger-backend/internal/recipes"
	"github.com/angelmondragon/kitchenledger-backend/internal/sales"
	"github.com/angelmondragon/kitchenledger-backend/internal/stockrequests"
	"github.com/angelmondragon/kitchenledger-backend/internal/transfers"
	"github.com/angelmondragon/kitchenledger-backend/internal/units"
	"github.com/angelmondragon/kitchenledger-backend/pkg/config"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
	"github.com/angelmondragon/kitchenledger-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/kitchenledger-backend/pkg/redis"
)

// Params carries everything the HTTP surface is wired to.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency pkgredis.IdempotencyStore
	Gatherer    prometheus.Gatherer

	Catalog       catalog.Service
	Units         units.Converter
	Inventory     inventory.Service
	Recipes       recipes.Service
	Sales         sales.Service
	SalesReports  sales.Reports
	Purchasing    purchasing.Service
	StockRequests stockrequests.Service
	Transfers     transfers.Service
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": p.DB,
			"redis":    p.Redis,
		}))
	})
	r.Handle("/metrics", metrics.Handler(p.Gatherer))

	// once guards a document-creating POST; critical guards a POST that
	// moves stock and must never double-post within the retry window.
	once := middleware.Idempotency(p.Idempotency, middleware.DefaultIdempotencyTTL, logg)
	critical := middleware.Idempotency(p.Idempotency, middleware.CriticalIdempotencyTTL, logg)
	roles := func(allowed []enums.UserRole) func(http.Handler) http.Handler {
		return middleware.RequireRoles(logg, allowed...)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/units", func(r chi.Router) {
			r.Get("/conversions", controllers.ListUnitConversions(p.Units, logg))
			r.Post("/convert", controllers.ConvertUnits(p.Units, logg))
		})

		r.Get("/outlets", controllers.ListOutlets(p.Catalog, logg))

		r.Route("/ingredients", func(r chi.Router) {
			r.Get("/", controllers.ListIngredients(p.Catalog, logg))
			r.With(roles(middleware.StockManagers), once).Post("/", controllers.CreateIngredient(p.Catalog, logg))
		})

		r.Route("/menus", func(r chi.Router) {
			r.Get("/", controllers.ListMenus(p.Catalog, logg))
			r.With(roles(middleware.StockManagers), once).Post("/", controllers.CreateMenu(p.Catalog, logg))
			r.Route("/{menuId}", func(r chi.Router) {
				r.Get("/", controllers.GetMenu(p.Catalog, p.Recipes, logg))
				r.Get("/cost", controllers.MenuCost(p.Recipes, logg))
				r.With(roles(middleware.CentralManagers), once).Post("/recipes", controllers.CreateRecipe(p.Recipes, logg))
			})
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/stock", controllers.ListStock(p.Inventory, logg))
			r.Get("/stock/{outletId}/{ingredientId}", controllers.GetStockLevel(p.Inventory, logg))
			r.With(roles(middleware.StockManagers)).Put("/stock/{outletId}/{ingredientId}/reorder-level", controllers.SetReorderLevel(p.Inventory, logg))
			r.Get("/low-stock", controllers.LowStock(p.Inventory, logg))
			r.Get("/ledger", controllers.ListLedger(p.Inventory, logg))
			r.Get("/ledger/export", controllers.ExportLedger(p.Inventory, logg))
			r.With(roles(middleware.Administrators), critical).Post("/ledger", controllers.PostLedgerEntry(p.Inventory, logg))
			r.With(roles(middleware.StockManagers), critical).Post("/adjustments", controllers.AdjustStock(p.Inventory, logg))
		})

		r.Route("/sales-orders", func(r chi.Router) {
			r.Get("/", controllers.ListSalesOrders(p.Sales, logg))
			r.With(critical).Post("/", controllers.CreateSalesOrder(p.Sales, logg))
			r.Get("/{orderId}", controllers.GetSalesOrder(p.Sales, logg))
		})

		r.Route("/sales/reports", func(r chi.Router) {
			r.Use(roles(middleware.StockManagers))
			r.Get("/daily-summary", controllers.DailySalesSummary(p.SalesReports, logg))
			r.Get("/menu-engineering", controllers.MenuEngineeringReport(p.SalesReports, logg))
		})

		r.Route("/purchase-orders", func(r chi.Router) {
			r.Get("/", controllers.ListPurchaseOrders(p.Purchasing, logg))
			r.With(roles(middleware.CentralStaff), once).Post("/", controllers.CreatePurchaseOrder(p.Purchasing, logg))
			r.Route("/{poId}", func(r chi.Router) {
				r.Get("/", controllers.GetPurchaseOrder(p.Purchasing, logg))
				r.With(roles(middleware.CentralManagers)).Post("/approve", controllers.ApprovePurchaseOrder(p.Purchasing, logg))
				r.With(roles(middleware.CentralStaff), critical).Post("/receive", controllers.ReceivePurchaseOrder(p.Purchasing, logg))
				r.With(roles(middleware.CentralManagers)).Post("/cancel", controllers.CancelPurchaseOrder(p.Purchasing, logg))
			})
		})

		r.Route("/stock-requests", func(r chi.Router) {
			r.Get("/", controllers.ListStockRequests(p.StockRequests, logg))
			r.With(roles(middleware.StockManagers), once).Post("/", controllers.CreateStockRequest(p.StockRequests, logg))
			r.Route("/{requestId}", func(r chi.Router) {
				r.Get("/", controllers.GetStockRequest(p.StockRequests, logg))
				r.With(roles(middleware.CentralManagers)).Post("/approve", controllers.ApproveStockRequest(p.StockRequests, logg))
				r.With(roles(middleware.CentralManagers)).Post("/reject", controllers.RejectStockRequest(p.StockRequests, logg))
				r.With(roles(middleware.StockManagers)).Post("/cancel", controllers.CancelStockRequest(p.StockRequests, logg))
			})
		})

		r.Route("/stock-transfers", func(r chi.Router) {
			r.Get("/", controllers.ListStockTransfers(p.Transfers, logg))
			r.With(roles(middleware.CentralStaff), once).Post("/", controllers.CreateStockTransfer(p.Transfers, logg))
			r.Route("/{transferId}", func(r chi.Router) {
				r.Get("/", controllers.GetStockTransfer(p.Transfers, logg))
				r.With(roles(middleware.CentralStaff), critical).Post("/ship", controllers.ShipStockTransfer(p.Transfers, logg))
				r.With(roles(middleware.StockManagers), critical).Post("/receive", controllers.ReceiveStockTransfer(p.Transfers, logg))
				r.With(roles(middleware.CentralManagers)).Post("/cancel", controllers.CancelStockTransfer(p.Transfers, logg))
			})
		})
	})

	return r
}
