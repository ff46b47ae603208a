package main

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-maintenance/internal/auth"
	"github.com/ukydev/fleet-maintenance/internal/catalog"
	"github.com/ukydev/fleet-maintenance/internal/config"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/engine"
	"github.com/ukydev/fleet-maintenance/internal/handlers"
	"github.com/ukydev/fleet-maintenance/internal/middleware"
	"github.com/ukydev/fleet-maintenance/internal/notify"
	"github.com/ukydev/fleet-maintenance/internal/scheduler"
)

func main() {
	cfg := config.Load()

	client, err := db.ConnectMongo(cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())
	log.Info("Connected to MongoDB")

	database := client.Database(cfg.Database)
	vehicles := &db.MongoVehicleCollection{Collection: database.Collection("vehicles")}
	states := &db.MongoStateCollection{Collection: database.Collection("maintenance_states")}
	records := &db.MongoMaintenanceRecordCollection{Collection: database.Collection("maintenance_records")}
	notifications := &db.MongoNotificationCollection{Collection: database.Collection("maintenance_notifications")}
	users := &db.MongoUserCollection{Collection: database.Collection("users")}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.MQTTBrokerURL != "" {
		mq, err := notify.NewMQTTNotifier(cfg.MQTTBrokerURL, cfg.MQTTClientID, cfg.MQTTTopicPrefix)
		if err != nil {
			log.WithError(err).Warn("MQTT broker unavailable, falling back to log notifier")
		} else {
			notifier = mq
			defer mq.Close()
		}
	}

	eng := engine.New(vehicles, states, records, notifications, catalog.Default(), notifier, nil)

	sweeper := scheduler.NewSweeper(eng, vehicles, cfg.SweepWorkers)
	cronJob, err := sweeper.Start(context.Background(), cfg.RecomputeCron)
	if err != nil {
		log.WithError(err).Fatal("Failed to schedule recompute sweep")
	}
	defer cronJob.Stop()

	authService := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	authMw := middleware.NewAuthMiddleware(authService)
	rateMw := middleware.NewRateLimitMiddleware()

	authHandler := handlers.NewAuthHandler(authService, users)
	vehicleHandler := handlers.NewVehicleHandler(vehicles)
	maintenanceHandler := handlers.NewMaintenanceHandler(eng)
	notificationHandler := handlers.NewNotificationHandler(eng)

	protect := func(action string, h http.HandlerFunc) http.Handler {
		return authMw.RequirePermission(action)(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/register", authHandler.Register)
	mux.HandleFunc("/api/auth/profile", authHandler.GetProfile)

	mux.Handle("POST /api/vehicles", protect("manage_vehicles", vehicleHandler.Create))
	mux.Handle("GET /api/vehicles", protect("view_vehicles", vehicleHandler.List))
	mux.Handle("GET /api/vehicles/{id}", protect("view_vehicles", vehicleHandler.Get))
	mux.Handle("POST /api/vehicles/{id}/maintenance", protect("record_maintenance", maintenanceHandler.RecordMaintenance))
	mux.Handle("GET /api/vehicles/{id}/maintenance", protect("view_maintenance", maintenanceHandler.GetHistory))
	mux.Handle("PUT /api/vehicles/{id}/odometer", protect("update_odometer", maintenanceHandler.UpdateOdometer))
	mux.Handle("GET /api/vehicles/{id}/snapshot", protect("view_maintenance", maintenanceHandler.GetSnapshot))
	mux.Handle("GET /api/vehicles/{id}/notifications", protect("view_notifications", notificationHandler.ListByVehicle))
	mux.Handle("POST /api/notifications/{id}/read", protect("view_notifications", notificationHandler.MarkRead))

	handler := rateMw.RateLimit(100, 60)(authMw.Authenticate(mux))

	log.WithField("port", cfg.Port).Info("HTTP server listening")
	log.Fatal(http.ListenAndServe(":"+cfg.Port, handler))
}
