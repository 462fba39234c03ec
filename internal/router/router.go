package router

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	database "github.com/FACorreiaa/sports-card-catalog/app/db"
	"github.com/FACorreiaa/sports-card-catalog/internal/api"
	"github.com/FACorreiaa/sports-card-catalog/internal/api/asset"
	"github.com/FACorreiaa/sports-card-catalog/internal/api/card"
	"github.com/FACorreiaa/sports-card-catalog/internal/api/user"
	"github.com/FACorreiaa/sports-card-catalog/internal/types"
)

// Config contains dependencies needed for the router setup
type Config struct {
	CardHandler    card.Handler
	UserHandler    user.Handler
	Assets         asset.Materializer
	DB             database.Pinger
	AssetPath      string // public prefix of asset references, e.g. /static/images
	AllowedOrigins []string
	Logger         *slog.Logger
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (like logger, requestID, recoverer) are expected
// to be applied *before* mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Message: "Hello World"})
	})
	r.Get("/health", healthHandler(cfg.DB, cfg.Logger))

	r.Route("/cards", func(r chi.Router) {
		r.Post("/", cfg.CardHandler.CreateCard)
		r.Get("/", cfg.CardHandler.ListCards)
		r.Get("/{id}", cfg.CardHandler.GetCard)
		r.Put("/{id}", cfg.CardHandler.UpdateCard)
		r.Delete("/{id}", cfg.CardHandler.DeleteCard)
		r.Post("/{id}/upload-image", cfg.CardHandler.UploadImage)
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/register", cfg.UserHandler.Register)
		r.Post("/login", cfg.UserHandler.Login)
		r.Get("/{id}", cfg.UserHandler.GetUser)
		r.Delete("/{id}", cfg.UserHandler.DeleteUser)
	})

	r.Get(strings.TrimSuffix(cfg.AssetPath, "/")+"/*", assetHandler(cfg.Assets, cfg.Logger))

	return r
}

type healthResponse struct {
	Status string `json:"status"`
}

func healthHandler(db database.Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			logger.WarnContext(r.Context(), "Health check failed", slog.Any("error", err))
			api.WriteJSONResponse(w, r, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy"})
			return
		}
		api.WriteJSONResponse(w, r, http.StatusOK, healthResponse{Status: "healthy"})
	}
}

// assetHandler serves asset bytes by the reference the materializer handed out.
func assetHandler(assets asset.Materializer, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc, err := assets.Open(r.Context(), r.URL.Path)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			logger.ErrorContext(r.Context(), "Failed to open asset", slog.String("path", r.URL.Path), slog.Any("error", err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		defer rc.Close()

		if ct := mime.TypeByExtension(path.Ext(r.URL.Path)); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		if _, err := io.Copy(w, rc); err != nil {
			logger.WarnContext(r.Context(), "Failed to stream asset", slog.String("path", r.URL.Path), slog.Any("error", err))
		}
	}
}
