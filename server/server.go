package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"musicstream/cache"
	"musicstream/config"
	"musicstream/core/auth"
	"musicstream/core/catalog"
	"musicstream/db"
	"musicstream/logger"
	"musicstream/repository"
	"musicstream/storage"

	"github.com/gorilla/mux"
)

// Start initializes dependencies and runs the HTTP server. A failed store
// acquisition is not fatal: the server comes up in degraded mode and keeps
// answering health checks until the store is reachable again.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})

	auth.Configure(cfg.JWTSecret, cfg.TokenExpiry)

	ctx := context.Background()
	mgr := db.NewManager(cfg.DBName)
	candidates := db.CandidatesFromConfig(cfg)

	if label, err := mgr.Acquire(ctx, candidates); err != nil {
		logger.Warn("running without database connection", logger.ErrorField(err))
	} else {
		logger.Info("database acquired", logger.String("candidate", label))
		mgr.EnsureIndexes(ctx)
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := mgr.Release(releaseCtx); err != nil {
			logger.Warn("failed to release database handle", logger.ErrorField(err))
		}
	}()

	blobs, err := storage.Connect(cfg)
	if err != nil {
		logger.Fatal("failed to initialize object storage", logger.ErrorField(err))
	}

	var trackCache catalog.TrackCache
	if c, err := cache.Connect(cfg); err != nil {
		logger.Warn("running without track cache", logger.ErrorField(err))
	} else {
		trackCache = c
		defer c.Close()
	}

	userRepo := repository.NewMongoUserRepository(mgr)
	trackRepo := repository.NewMongoTrackRepository(mgr)
	playlistRepo := repository.NewMongoPlaylistRepository(mgr)

	svc := catalog.NewService(userRepo, trackRepo, playlistRepo, blobs, trackCache)
	apiHandler := NewAPIHandler(svc, mgr, blobs, candidates)

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.HandleFunc("/", apiHandler.HealthHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/health", apiHandler.HealthHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/db-test", apiHandler.DBTestHandler).Methods(http.MethodGet)

	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/me", apiHandler.AuthMiddleware(apiHandler.MeHandler)).Methods(http.MethodGet)

	router.HandleFunc("/api/music", apiHandler.ListTracksHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/music/search", apiHandler.SearchTracksHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/music/mine", apiHandler.AuthMiddleware(apiHandler.MyTracksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/music/upload", apiHandler.AuthMiddleware(apiHandler.UploadTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/music/stream/{id}", apiHandler.StreamTrackHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/music/{id}", apiHandler.GetTrackHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/music/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteTrackHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/music/{id}/cover", apiHandler.AuthMiddleware(apiHandler.SetTrackCoverHandler)).Methods(http.MethodPut)

	router.HandleFunc("/api/playlist", apiHandler.AuthMiddleware(apiHandler.CreatePlaylistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlist", apiHandler.AuthMiddleware(apiHandler.ListPlaylistsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/playlist/{id}", apiHandler.AuthMiddleware(apiHandler.GetPlaylistHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/playlist/{id}", apiHandler.AuthMiddleware(apiHandler.UpdatePlaylistHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/playlist/{id}", apiHandler.AuthMiddleware(apiHandler.DeletePlaylistHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlist/{id}/add", apiHandler.AuthMiddleware(apiHandler.AddToPlaylistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlist/{id}/remove/{musicId}", apiHandler.AuthMiddleware(apiHandler.RemoveFromPlaylistHandler)).Methods(http.MethodDelete)

	router.HandleFunc("/api/favorite", apiHandler.AuthMiddleware(apiHandler.ListFavoritesHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/favorite/{musicId}", apiHandler.AuthMiddleware(apiHandler.ToggleFavoriteHandler)).Methods(http.MethodPost)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("http server listening", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", logger.ErrorField(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", logger.ErrorField(err))
	}
}

// corsMiddleware injects the CORS headers and answers preflight requests.
// This is the single place CORS is configured.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
