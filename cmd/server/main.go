package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/mutasim99/note-hive-server/internal/auth"
	"github.com/mutasim99/note-hive-server/internal/chunker"
	"github.com/mutasim99/note-hive-server/internal/config"
	"github.com/mutasim99/note-hive-server/internal/handlers"
	"github.com/mutasim99/note-hive-server/internal/storage"
	"github.com/mutasim99/note-hive-server/internal/store"
	"github.com/mutasim99/note-hive-server/internal/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	log.Println("Starting note-hive server...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Service: %s, Port: %s", cfg.ServiceName, cfg.ServicePort)

	// Initialize OpenTelemetry tracing
	shutdownTracer, err := tracing.InitTracer(cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	// Initialize MinIO client (chunk store)
	log.Println("Connecting to MinIO...")
	minioClient, err := storage.NewMinioClient(
		cfg.MinIOEndpoint,
		cfg.MinIOAccessKey,
		cfg.MinIOSecretKey,
		cfg.MinIOBucketName,
		cfg.MinIOUseSSL,
	)
	if err != nil {
		log.Fatalf("Failed to initialize MinIO client: %v", err)
	}
	log.Println("MinIO client initialized")

	// Initialize MySQL client (metadata index)
	log.Println("Connecting to MySQL...")
	mysqlClient, err := storage.NewMySQLClient(cfg.GetDSN())
	if err != nil {
		log.Fatalf("Failed to initialize MySQL client: %v", err)
	}
	defer mysqlClient.Close()

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	if err := mysqlClient.EnsureSchema(schemaCtx); err != nil {
		cancelSchema()
		log.Fatalf("Failed to ensure database schema: %v", err)
	}
	cancelSchema()
	log.Println("MySQL client initialized")

	// Initialize Redis client (metadata cache)
	log.Println("Connecting to Redis...")
	redisClient, err := storage.NewRedisClient(cfg.GetRedisAddr(), cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to initialize Redis client: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis client initialized")

	// Build the file store
	chunkerInstance := chunker.NewChunker(cfg.GetChunkSizeBytes())
	fileStore := store.NewFileStore(minioClient, mysqlClient, redisClient, chunkerInstance)

	// Auth gate
	verifier := auth.NewVerifier(cfg.JWTSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute)

	// Initialize handlers
	tokenHandler := handlers.NewTokenHandler(verifier)
	uploadHandler := handlers.NewUploadHandler(fileStore)
	downloadHandler := handlers.NewDownloadHandler(fileStore)
	deleteHandler := handlers.NewDeleteHandler(fileStore)
	queryHandler := handlers.NewQueryHandler(fileStore)
	catalogHandler := handlers.NewCatalogHandler(mysqlClient)
	usersHandler := handlers.NewUsersHandler(mysqlClient)
	eventsHandler := handlers.NewEventsHandler(mysqlClient)
	tasksHandler := handlers.NewTasksHandler(mysqlClient)

	// Gating policy: write and personal routes always require a token;
	// listing/download routes only when AUTH_PROTECT_READS is set.
	gated := func(h http.Handler) http.Handler { return verifier.RequireToken(h) }
	readGated := func(h http.Handler) http.Handler {
		if cfg.AuthProtectReads {
			return verifier.RequireToken(h)
		}
		return h
	}
	adminGated := func(h http.Handler) http.Handler {
		return verifier.RequireToken(auth.RequireAdmin(mysqlClient)(h))
	}

	// Setup HTTP router
	router := mux.NewRouter()

	// Health check endpoint (no tracing needed)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	route := func(path, method string, h http.Handler) {
		router.Handle(path, otelhttp.NewHandler(h, method+" "+path)).Methods(method)
	}

	route("/jwt", "POST", tokenHandler)

	route("/semesters", "GET", readGated(http.HandlerFunc(catalogHandler.ListSemesters)))
	route("/departments/{semester}", "GET", readGated(http.HandlerFunc(catalogHandler.ListDepartments)))
	route("/subjects/{semester}/{department}", "GET", readGated(http.HandlerFunc(catalogHandler.ListSubjects)))

	route("/upload-pdf", "POST", gated(uploadHandler))
	route("/pdfs/recent", "GET", readGated(http.HandlerFunc(queryHandler.MostRecent)))
	route("/pdfs/file/{file_id}", "GET", readGated(downloadHandler))
	route("/pdfs/file/{file_id}", "DELETE", adminGated(deleteHandler))
	route("/pdfs/{semester}/{department}/{subject}", "GET", readGated(http.HandlerFunc(queryHandler.ListByTags)))

	route("/users", "POST", http.HandlerFunc(usersHandler.CreateUser))
	route("/users/{email}", "GET", gated(http.HandlerFunc(usersHandler.GetUser)))

	route("/addEvent", "POST", gated(http.HandlerFunc(eventsHandler.Create)))
	route("/event/{email}", "GET", gated(http.HandlerFunc(eventsHandler.List)))
	route("/event/{id}", "PATCH", gated(http.HandlerFunc(eventsHandler.SetCompleted)))
	route("/event/delete/{id}", "DELETE", gated(http.HandlerFunc(eventsHandler.Delete)))

	route("/addDailyTask", "POST", gated(http.HandlerFunc(tasksHandler.Create)))
	route("/dailyTask/{email}", "GET", gated(http.HandlerFunc(tasksHandler.List)))
	route("/dailyTask/{id}", "PATCH", gated(http.HandlerFunc(tasksHandler.SetCompleted)))
	route("/dailyTask/delete/{id}", "DELETE", gated(http.HandlerFunc(tasksHandler.Delete)))

	// Create HTTP server. WriteTimeout is generous because downloads
	// stream chunk by chunk.
	srv := &http.Server{
		Addr:         ":" + cfg.ServicePort,
		Handler:      router,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server listening on port %s", cfg.ServicePort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
