// cmd/server/main.go
package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"github.com/RichKitibwa/BloodLink/internal/clock"
	"github.com/RichKitibwa/BloodLink/internal/config"
	"github.com/RichKitibwa/BloodLink/internal/donation"
	"github.com/RichKitibwa/BloodLink/internal/emergency"
	"github.com/RichKitibwa/BloodLink/internal/exchange"
	"github.com/RichKitibwa/BloodLink/internal/hospital"
	"github.com/RichKitibwa/BloodLink/internal/inventory"
	"github.com/RichKitibwa/BloodLink/internal/observability"
	"github.com/RichKitibwa/BloodLink/internal/storage/postgres"
	"github.com/RichKitibwa/BloodLink/internal/transport/web"
	"github.com/RichKitibwa/BloodLink/migrations"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTLPEndpoint, "bloodlink")
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	clk := clock.NewSystem()

	unitStore := postgres.NewUnitStore(db)
	offerStore := postgres.NewOfferStore(db)
	exchangeStore := postgres.NewExchangeStore(db)
	emergencyStore := postgres.NewEmergencyStore(db)
	hospitals := postgres.NewHospitalStore(db)
	events := postgres.NewEventLog(db, clk)
	notifier := postgres.NewNotifyStore(db, clk)

	ledger := inventory.NewService(unitStore, events, clk, cfg.CriticalExpiryWindow)
	donations := donation.NewService(offerStore, ledger, hospitals, hospital.TierEstimator{}, events, notifier, clk, cfg.CriticalExpiryWindow)
	exchanges := exchange.NewService(exchangeStore, hospitals, events, notifier, clk)
	emergencies := emergency.NewService(emergencyStore, hospitals, events, notifier, clk, cfg.EmergencyRatePerMinute)

	inventoryHandler := inventory.NewHandler(ledger)
	donationHandler := donation.NewHandler(donations)
	exchangeHandler := exchange.NewHandler(exchanges)
	emergencyHandler := emergency.NewHandler(emergencies)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Group(func(r chi.Router) {
		r.Use(web.CallerFromHeaders)

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/", inventoryHandler.HandleAddStock)
			r.Get("/", inventoryHandler.HandleList)
			r.Get("/summary", inventoryHandler.HandleSummary)
			r.Get("/near-expiry", inventoryHandler.HandleNearExpiry)
			r.Get("/critical-expiry", inventoryHandler.HandleCriticalExpiry)
			r.Post("/sweep-expiry", inventoryHandler.HandleSweepExpiry)
			r.Get("/{unitID}", inventoryHandler.HandleGetUnit)
		})

		r.Route("/donations", func(r chi.Router) {
			r.Post("/", donationHandler.HandlePublish)
			r.Get("/available", donationHandler.HandleListAvailable)
			r.Get("/mine", donationHandler.HandleMySchedules)
			r.Post("/{offerID}/accept", donationHandler.HandleAccept)
			r.Post("/{offerID}/cancel", donationHandler.HandleCancel)
		})

		r.Route("/exchanges", func(r chi.Router) {
			r.Post("/", exchangeHandler.HandleCreate)
			r.Get("/", exchangeHandler.HandleList)
			r.Get("/pending", exchangeHandler.HandlePending)
			r.Get("/{requestID}", exchangeHandler.HandleGet)
			r.Post("/{requestID}/responses", exchangeHandler.HandleRespond)
			r.Get("/{requestID}/responses", exchangeHandler.HandleResponses)
			r.Post("/{requestID}/responses/{responseID}/accept", exchangeHandler.HandleAcceptResponse)
			r.Patch("/{requestID}/status", exchangeHandler.HandleUpdateStatus)
			r.Post("/{requestID}/cancel", exchangeHandler.HandleCancel)
		})

		r.Route("/emergencies", func(r chi.Router) {
			r.Post("/", emergencyHandler.HandleCreate)
			r.Get("/active", emergencyHandler.HandleListActive)
			r.Post("/{requestID}/responses", emergencyHandler.HandleRespond)
			r.Get("/{requestID}/responses", emergencyHandler.HandleResponses)
		})
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("Starting BloodLink coordination service on port %s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
