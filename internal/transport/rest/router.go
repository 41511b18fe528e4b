package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/VivaainNg/finance-tracker/internal/auth"
	"github.com/VivaainNg/finance-tracker/internal/category"
	"github.com/VivaainNg/finance-tracker/internal/charts"
	"github.com/VivaainNg/finance-tracker/internal/datatable"
	"github.com/VivaainNg/finance-tracker/internal/transaction"
	"github.com/VivaainNg/finance-tracker/internal/transport/middleware"
	"github.com/VivaainNg/finance-tracker/internal/transport/swagger"
	"github.com/VivaainNg/finance-tracker/internal/user"
)

func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	authHandler *auth.Handler,
	userHandler *user.Handler,
	transactionHandler *transaction.Handler,
	categoryHandler *category.Handler,
	chartsHandler *charts.Handler,
	datatableHandler *datatable.Handler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", authHandler.Login)
			sr.Post("/register", authHandler.Register)
			sr.Post("/refresh", authHandler.RefreshToken)
			sr.Post("/logout", authHandler.Logout)
		})

		// Public category listing; mutations live behind auth below.
		r.Get("/categories", categoryHandler.GetCategories)

		// Serialized product and transaction collections for the
		// dashboard charts.
		r.Get("/charts", chartsHandler.GetChartData)

		// The transactions collection itself is open; ownership only
		// narrows listings when a valid token is presented.
		r.Group(func(tr chi.Router) {
			tr.Use(authHandler.OptionalAuthMiddleware)
			tr.Route("/transactions", func(er chi.Router) {
				er.Get("/", transactionHandler.ListTransactions)
				er.Post("/", transactionHandler.CreateTransaction)
				er.Get("/{id}", transactionHandler.GetTransaction)
				er.Put("/{id}", transactionHandler.UpdateTransaction)
				er.Patch("/{id}", transactionHandler.PatchTransaction)
				er.Delete("/{id}", transactionHandler.DeleteTransaction)
			})
		})

		// Protected routes
		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.AuthMiddleware)

			pr.Get("/users/me", userHandler.GetCurrentUser)
			pr.Get("/dashboard", transactionHandler.Dashboard)

			pr.Post("/categories", categoryHandler.CreateCategory)
			pr.Put("/categories/{id}", categoryHandler.UpdateCategory)
			pr.Delete("/categories/{id}", categoryHandler.DeleteCategory)
		})
	})

	// HTMX modal flows for the transaction screens.
	router.Group(func(wr chi.Router) {
		wr.Use(authHandler.AuthMiddleware)
		wr.Post("/transactions/create", transactionHandler.CreateTransactionModal)
		wr.Post("/transactions/update/{id}", transactionHandler.UpdateTransactionModal)
		wr.Post("/transactions/delete/{id}", transactionHandler.DeleteTransactionModal)
	})

	// Export reconstructs its filters from the referring page, so it
	// only needs the optional identity.
	router.Group(func(wr chi.Router) {
		wr.Use(authHandler.OptionalAuthMiddleware)
		wr.Get("/transactions/exports/{format}", transactionHandler.ExportTransactions)
	})

	// Generic datatable routes; anonymous requests pass through and the
	// engine decides what they may see.
	router.Route("/dynamic-dt", func(dr chi.Router) {
		dr.Use(authHandler.OptionalAuthMiddleware)

		dr.Get("/{model}", datatableHandler.List)
		dr.Get("/describe/{model}", datatableHandler.Describe)
		dr.Post("/create/{model}", datatableHandler.Create)
		dr.Post("/update/{model}/{id}", datatableHandler.Update)
		dr.Post("/delete/{model}/{id}", datatableHandler.Delete)
		dr.Get("/export/{model}/csv", datatableHandler.ExportCSV)

		dr.Post("/filters/{model}", datatableHandler.SaveFilters)
		dr.Post("/filters/{model}/delete/{id}", datatableHandler.DeleteFilter)
		dr.Post("/page-size/{model}", datatableHandler.SetPageSize)
		dr.Post("/hide-show/{model}", datatableHandler.ToggleVisibility)
	})
}
