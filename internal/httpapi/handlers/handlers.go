package handlers

import (
	"fileconv/internal/conversion"
	"fileconv/internal/pkg/logger"
	"fileconv/internal/ports"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

type Deps struct {
	Pipeline *conversion.Pipeline
	Ledger   ports.ConversionLedger
	Stats    ports.ConversionStats
	// Storage is nil when outputs are not retained.
	Storage        ports.StorageProvider
	Log            *logger.Logger
	MaxUploadBytes int64
}

type Handler struct {
	pipeline  *conversion.Pipeline
	ledger    ports.ConversionLedger
	stats     ports.ConversionStats
	sp        ports.StorageProvider
	log       *logger.Logger
	maxUpload int64
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		pipeline:  d.Pipeline,
		ledger:    d.Ledger,
		stats:     d.Stats,
		sp:        d.Storage,
		log:       log.WithComponent("http"),
		maxUpload: d.MaxUploadBytes,
	}
}
