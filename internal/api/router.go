package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/spendah/spendah-backend/internal/api/handlers"
	custommiddleware "github.com/spendah/spendah-backend/internal/api/middleware"
	"github.com/spendah/spendah-backend/internal/config"
	"github.com/spendah/spendah-backend/internal/service"
)

// Services bundles the service dependencies the router needs.
type Services struct {
	System      *service.SystemService
	Account     *service.AccountService
	Transaction *service.TransactionService
	Import      *service.ImportService
	Recurring   *service.RecurringService
	Detector    *service.RecurringDetector
	Alert       *service.AlertService
	Review      *service.ReviewService
}

// NewRouter creates and configures the HTTP router
func NewRouter(svc Services, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(svc.System)
			r.Get("/health", systemHandler.Health)
		})

		r.Route("/accounts", func(r chi.Router) {
			accountHandler := handlers.NewAccountHandler(svc.Account)
			r.Get("/", accountHandler.List)
			r.Post("/", accountHandler.Create)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", accountHandler.Get)
				r.Delete("/", accountHandler.Delete)
			})
		})

		r.Route("/transactions", func(r chi.Router) {
			transactionHandler := handlers.NewTransactionHandler(svc.Transaction)
			r.Get("/", transactionHandler.List)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", transactionHandler.Get)
				r.Patch("/", transactionHandler.Update)
			})
		})

		r.Route("/imports", func(r chi.Router) {
			importHandler := handlers.NewImportHandler(svc.Import)
			r.Post("/upload", importHandler.Upload)
			r.Get("/history", importHandler.History)
			r.Post("/{id}/confirm", importHandler.Confirm)
			r.Get("/{id}/status", importHandler.Status)
		})

		r.Route("/recurring", func(r chi.Router) {
			recurringHandler := handlers.NewRecurringHandler(svc.Recurring, svc.Detector)
			r.Get("/", recurringHandler.List)
			r.Post("/", recurringHandler.Create)
			r.Post("/detect", recurringHandler.Detect)
			r.Post("/detect/apply", recurringHandler.ApplyDetection)

			r.Route("/transactions/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Post("/mark", recurringHandler.Mark)
				r.Post("/unmark", recurringHandler.Unmark)
			})

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", recurringHandler.Get)
				r.Patch("/", recurringHandler.Update)
				r.Delete("/", recurringHandler.Delete)
				r.Get("/transactions", recurringHandler.Transactions)
			})
		})

		r.Route("/alerts", func(r chi.Router) {
			alertHandler := handlers.NewAlertHandler(svc.Alert)
			r.Get("/", alertHandler.List)
			r.Post("/read-all", alertHandler.MarkAllRead)
			r.Get("/settings", alertHandler.GetSettings)
			r.Patch("/settings", alertHandler.UpdateSettings)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Patch("/", alertHandler.Update)
				r.Delete("/", alertHandler.Delete)
			})
		})

		r.Route("/review", func(r chi.Router) {
			reviewHandler := handlers.NewReviewHandler(svc.Review, svc.Recurring)
			r.Post("/", reviewHandler.TriggerReview)
			r.Get("/upcoming", reviewHandler.Upcoming)
		})
	})

	return r
}
