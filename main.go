package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salonportal-backend/config"
	"salonportal-backend/models"
	"salonportal-backend/routes"
	"salonportal-backend/services"
	"salonportal-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	if err := config.InitLogger(cfg); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	logger := config.Log()
	defer logger.Sync()

	if cfg.JWT.Secret == "" {
		if cfg.IsProduction() {
			logger.Fatal("JWT_SECRET not set")
		}
		logger.Warn("JWT_SECRET not set, using an ephemeral secret")
		cfg.JWT.Secret = utils.GenerateJWTSecret()
	}
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpiryHours)

	if err := config.ConnectDB(cfg.DB); err != nil {
		logger.Fatal("Database connection failed", zap.Error(err))
	}
	if err := config.DB.AutoMigrate(models.All()...); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}

	events, err := services.NewEventPublisher(cfg.NatsURL)
	if err != nil {
		logger.Fatal("NATS connection failed", zap.Error(err))
	}
	defer events.Close()

	db := config.DB
	functions := services.NewFunctionsClient(cfg.Functions)
	svc := routes.Services{
		Users:         services.NewUserService(db, events, functions),
		Invitations:   services.NewInvitationService(db, functions, cfg.PortalURL, cfg.InvitationTTL),
		Employees:     services.NewEmployeeService(db),
		Tariffs:       services.NewTariffService(db),
		Bonus:         services.NewBonusService(db, functions),
		Sales:         services.NewSalesImportService(db),
		POA:           services.NewPOAService(db, services.NewTwilioSender(cfg.Twilio)),
		Announcements: services.NewAnnouncementService(db, functions),
		HubSpot:       services.NewHubSpotClient(db, cfg.HubSpot),
	}

	scheduler := services.NewScheduler(cfg.BonusCronSpec, svc.Bonus, svc.Invitations)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("Scheduler failed to start", zap.Error(err))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := routes.SetupRouter(cfg, svc)
	if !cfg.IsProduction() {
		printRoutes(r)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	scheduler.Stop()
}

func printRoutes(r *gin.Engine) {
	routes := r.Routes()
	for _, route := range routes {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
