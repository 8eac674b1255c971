package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fileconv/internal/config"
	"fileconv/internal/conversion"
	"fileconv/internal/httpapi/handlers"
	"fileconv/internal/httpkit"
	"fileconv/internal/pkg/errors"
	"fileconv/internal/pkg/logger"
	"fileconv/internal/pkg/middleware"
	"fileconv/internal/ports"
)

type Deps struct {
	Config   *config.Config
	Pipeline *conversion.Pipeline
	Ledger   ports.ConversionLedger
	Stats    ports.ConversionStats
	SP       ports.StorageProvider
	Log      *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	log := d.Log
	if log == nil {
		log = logger.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logging(log))

	// ---- CORS ----
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Content-Disposition", "X-Job-ID", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAgeSeconds:    600,
	}))
	r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, log))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, errors.CodeNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, errors.CodeMethodNotAllowed, "Method not allowed")
	})

	h := handlers.New(handlers.Deps{
		Pipeline:       d.Pipeline,
		Ledger:         d.Ledger,
		Stats:          d.Stats,
		Storage:        d.SP,
		Log:            log,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	wrap := func(fn middleware.ErrorHandlerFunc) http.HandlerFunc {
		return middleware.WrapHandler(log, fn)
	}

	// ---- HEALTH ----
	r.Get("/api/health", h.Health)

	// ---- CONVERSION ----
	r.Get("/api/converters", h.ListConverters)
	r.With(middleware.Deadline(cfg.RequestTimeout)).
		Post("/api/convert/{kind}", wrap(h.Convert))

	// ---- LEDGER ----
	r.Get("/api/conversions", wrap(h.ListConversions))
	r.Get("/api/conversions/{jobId}", wrap(h.GetConversion))
	r.Get("/api/conversions/{jobId}/download", wrap(h.DownloadConversion))
	r.Delete("/api/conversions/{jobId}/download", wrap(h.DeleteDownload))

	r.Get("/api/stats", wrap(h.Stats))

	return r
}
