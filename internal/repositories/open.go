package repositories

import (
	"context"
	"fmt"

	"fileconv/internal/config"
	"fileconv/internal/ports"
)

// OpenLedger returns the conversion ledger selected by cfg.LedgerDriver.
func OpenLedger(ctx context.Context, cfg *config.Config) (ports.ConversionLedger, error) {
	switch cfg.LedgerDriver {
	case config.LedgerMemory, "":
		return NewMemoryRepository(cfg.LedgerMemoryCapacity), nil
	case config.LedgerPostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL)
	case config.LedgerSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown ledger driver: %s", cfg.LedgerDriver)
	}
}
