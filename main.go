package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aquaholicAPI/handlers"
	"aquaholicAPI/internal/notify"
	"aquaholicAPI/middleware"
	"aquaholicAPI/services"
)

var (
	dbPool          *pgxpool.Pool
	lineNotifier    *notify.LineNotifier
	fcmService      *notify.FCMService
	profileService  *services.ProfileService
	scheduleService *services.ScheduleService
	intakeService   *services.IntakeService
	dispatchService *services.DispatchService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to database")

	lineNotifier = notify.NewLineNotifier()
	scheduleService = services.NewScheduleService(dbPool)
	profileService = services.NewProfileService(dbPool, scheduleService)
	intakeService = services.NewIntakeService(dbPool, profileService)
	dispatchService = services.NewDispatchService(scheduleService, lineNotifier)

	fcmService, err = notify.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		dispatchService.SetDevicePusher(fcmService)
		log.Println("FCM device push initialized successfully")
	}

	middleware.InitPrometheus()
	services.InitDispatchMetrics()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	profileHandler := handlers.NewProfileHandler(profileService, lineNotifier)
	scheduleHandler := handlers.NewScheduleHandler(scheduleService, profileService)
	intakeHandler := handlers.NewIntakeHandler(intakeService)
	notifyHandler := handlers.NewNotifyHandler(lineNotifier, profileService)
	cronHandler := handlers.NewCronHandler(dispatchService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "aquaholic-api"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Public: the anonymous calculator and the external dispatch trigger.
	api.HandleFunc("/hydration/calculate", profileHandler.Calculate).Methods("POST")
	api.Handle("/cron/dispatch",
		middleware.CronSecretMiddleware(http.HandlerFunc(cronHandler.RunDispatch))).Methods("POST")

	// Protected routes require a Clerk bearer token.
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/profile", profileHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/profile/metrics", profileHandler.UpdateBodyMetrics).Methods("PUT")
	protected.HandleFunc("/profile/awake-window", profileHandler.UpdateAwakeWindow).Methods("PUT")

	protected.HandleFunc("/schedule", scheduleHandler.GetSchedule).Methods("GET")
	protected.HandleFunc("/schedule/notifications", scheduleHandler.SetNotifications).Methods("PUT")

	protected.HandleFunc("/intake", intakeHandler.LogIntake).Methods("POST")
	protected.HandleFunc("/intake/history", intakeHandler.GetHistory).Methods("GET")

	protected.HandleFunc("/notify/callback", notifyHandler.Callback).Methods("GET")
	protected.HandleFunc("/notify/status", notifyHandler.Status).Methods("GET")
	protected.HandleFunc("/notify/register-device", notifyHandler.RegisterDevice).Methods("POST")

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Cron-Secret"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorillaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
