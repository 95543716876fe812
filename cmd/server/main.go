package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/spendah/spendah-backend/internal/aihint"
	"github.com/spendah/spendah-backend/internal/api"
	"github.com/spendah/spendah-backend/internal/config"
	"github.com/spendah/spendah-backend/internal/database"
	"github.com/spendah/spendah-backend/internal/privacy"
	"github.com/spendah/spendah-backend/internal/repository"
	"github.com/spendah/spendah-backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	log.Printf("Connected to database: %s", cfg.Database.Path)

	// Create repositories
	accountRepo := repository.NewAccountRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	recurringRepo := repository.NewRecurringRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	alertSettingsRepo := repository.NewAlertSettingsRepository(db)
	importLogRepo := repository.NewImportLogRepository(db)
	learnedFormatRepo := repository.NewLearnedFormatRepository(db)
	tokenMapRepo := repository.NewTokenMapRepository(db)

	// Optional collaborators: the hint client is disabled without a base
	// URL, the tokenizer without an encryption key.
	hint := aihint.NewClient(cfg.Hint.BaseURL, cfg.Hint.APIKey, cfg.Hint.Timeout)

	var tokenizer *privacy.Tokenizer
	if cfg.Privacy.Key != "" {
		tokenizer, err = privacy.NewTokenizer(tokenMapRepo, cfg.Privacy.Key)
		if err != nil {
			log.Fatalf("Failed to initialize tokenizer: %v", err)
		}
	} else {
		log.Println("PRIVACY_KEY not set, tokenization disabled")
	}

	// Create services
	locks := service.NewAccountLocks()
	systemService := service.NewSystemService(db)
	alertService := service.NewAlertService(
		alertRepo,
		alertSettingsRepo,
		transactionRepo,
		recurringRepo,
	)
	recurringService := service.NewRecurringService(
		recurringRepo,
		transactionRepo,
		alertService,
		locks,
	)
	reviewService := service.NewReviewService(
		recurringRepo,
		transactionRepo,
		alertService,
		nil,
	)
	detector := service.NewRecurringDetector(
		transactionRepo,
		recurringRepo,
		recurringService,
		nil,
		hint,
		tokenizer,
		locks,
	)
	importService := service.NewImportService(
		transactionRepo,
		importLogRepo,
		learnedFormatRepo,
		accountRepo,
		alertService,
		hint,
		cfg.Imports,
		locks,
	)
	accountService := service.NewAccountService(accountRepo, locks)
	transactionService := service.NewTransactionService(transactionRepo)

	// Daily sweep: upcoming annual charges and the periodic subscription
	// review, both persisted as alerts.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("0 6 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if err := alertService.AnnualChargeSweep(ctx); err != nil {
			log.Printf("Annual charge sweep failed: %v", err)
		}

		due, err := alertService.ReviewDue(ctx)
		if err != nil {
			log.Printf("Review due check failed: %v", err)
			return
		}
		if due {
			if _, err := reviewService.Review(ctx); err != nil {
				log.Printf("Subscription review failed: %v", err)
			}
		}
	}); err != nil {
		log.Fatalf("Failed to schedule daily sweep: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(api.Services{
		System:      systemService,
		Account:     accountService,
		Transaction: transactionService,
		Import:      importService,
		Recurring:   recurringService,
		Detector:    detector,
		Alert:       alertService,
		Review:      reviewService,
	}, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
