package main

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"stoicPathAPI/handlers"
	"stoicPathAPI/middleware"
	"stoicPathAPI/services"
)

var (
	firestoreClient *firestore.Client
	auditPool       *pgxpool.Pool

	codeService     *services.CodeService
	accessService   *services.AccessService
	snapshotService *services.SnapshotService
	userService     *services.UserService
	trackService    *services.TrackService
	journalService  *services.JournalService
	auditService    *services.AuditService
)

// newFirestoreClient initializes the Firebase app from the
// FIREBASE_SERVICE_ACCOUNT_JSON environment variable (Base64 encoded),
// falling back to a local service account key file.
func newFirestoreClient(ctx context.Context, localFilePath string) (*firestore.Client, error) {
	var opts []option.ClientOption

	if encoded := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); encoded != "" {
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithCredentialsJSON(decoded))
		log.Println("Firestore: initializing from FIREBASE_SERVICE_ACCOUNT_JSON environment variable")
	} else if _, err := os.Stat(localFilePath); err == nil {
		opts = append(opts, option.WithCredentialsFile(localFilePath))
		log.Printf("Firestore: initializing from local file %s", localFilePath)
	} else {
		// Application default credentials / emulator.
		log.Println("Firestore: initializing with default credentials")
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}
	return app.Firestore(ctx)
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	firestoreClient, err = newFirestoreClient(ctx, "./serviceAccountKey.json")
	if err != nil {
		log.Fatal("Failed to create Firestore client:", err)
	}
	log.Println("Successfully connected to Firestore")

	// The audit trail is optional; the API runs fine without Postgres.
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		auditPool, err = pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Printf("Warning: could not create audit pool: %v", err)
		} else if err := auditPool.Ping(ctx); err != nil {
			log.Printf("Warning: could not ping audit database: %v", err)
			auditPool.Close()
			auditPool = nil
		} else {
			log.Println("Audit database connected")
		}
	} else {
		log.Println("DATABASE_URL not set, audit trail disabled")
	}

	auditService = services.NewAuditService(auditPool)
	codeService = services.NewCodeService(firestoreClient, auditService)
	snapshotService = services.NewSnapshotService(firestoreClient)
	accessService = services.NewAccessService(firestoreClient, codeService, snapshotService, auditService)
	userService = services.NewUserService(firestoreClient)
	trackService = services.NewTrackService(firestoreClient)
	journalService = services.NewJournalService(firestoreClient)

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing store clients...")
		firestoreClient.Close()
		if auditPool != nil {
			auditPool.Close()
		}
	}()

	userHandler := handlers.NewUserHandler(userService, accessService)
	codeHandler := handlers.NewCodeHandler(codeService)
	accessHandler := handlers.NewAccessHandler(accessService)
	trackHandler := handlers.NewTrackHandler(trackService, snapshotService, auditService)
	journalHandler := handlers.NewJournalHandler(journalService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		iter := firestoreClient.Collection("tracks").Limit(1).Documents(ctx)
		_, err := iter.Next()
		iter.Stop()
		if err != nil && err != iterator.Done {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "store connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "stoicPath-api"}`))
	}).Methods("GET")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api/v1").Subrouter()

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user/reminders", userHandler.UpdateReminders).Methods("PUT")
	protected.HandleFunc("/user/signup", userHandler.Signup).Methods("POST")

	protected.HandleFunc("/codes/validate", codeHandler.ValidateCode).Methods("POST")
	protected.HandleFunc("/paths/unlock", accessHandler.UnlockPaths).Methods("POST")
	protected.HandleFunc("/paths/switch", accessHandler.SwitchPath).Methods("POST")

	protected.HandleFunc("/tracks", trackHandler.ListTracks).Methods("GET")
	protected.HandleFunc("/tracks/{slug}", trackHandler.GetTrack).Methods("GET")

	protected.HandleFunc("/challenge/progress", journalHandler.GetProgress).Methods("GET")
	protected.HandleFunc("/challenge/days", journalHandler.ListDays).Methods("GET")
	protected.HandleFunc("/challenge/day/{day}", journalHandler.GetDay).Methods("GET")
	protected.HandleFunc("/challenge/day/{day}/entries", journalHandler.SaveEntries).Methods("PUT")
	protected.HandleFunc("/challenge/day/{day}/complete", journalHandler.CompleteDay).Methods("POST")

	// -------------------------------------------------------------------------
	// BACKSTAGE ROUTES (AUTH + ADMIN SECRET)
	// -------------------------------------------------------------------------
	backstage := protected.PathPrefix("/backstage").Subrouter()
	backstage.Use(middleware.AdminSecretMiddleware)

	backstage.HandleFunc("/codes", codeHandler.GenerateCode).Methods("POST")
	backstage.HandleFunc("/events", trackHandler.RecentEvents).Methods("GET")
	backstage.HandleFunc("/snapshots", trackHandler.BackfillSnapshot).Methods("POST")
	backstage.HandleFunc("/tracks/{id}/weeks", trackHandler.UpdateWeeks).Methods("PUT")
	backstage.HandleFunc("/challenges/{track}/{day}", trackHandler.UpsertChallenge).Methods("PUT")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Admin-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
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

	// Graceful shutdown
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
