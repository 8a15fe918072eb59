package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"agenda/internal/config"
	"agenda/internal/database"
	"agenda/internal/domain"
	"agenda/internal/logging"
	"agenda/internal/postgres"
)

// Usage: seed [-catalog configs/catalog.yaml]
func main() {
	catalogPath := flag.String("catalog", "", "catalog file, defaults to booking.catalog_file")
	flag.Parse()

	if err := run(*catalogPath); err != nil {
		log.Fatalf("seed: %v", err)
	}
}

func run(catalogPath string) error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if catalogPath == "" {
		catalogPath = cfg.Booking.CatalogFile
	}
	if catalogPath == "" {
		catalogPath = "configs/catalog.yaml"
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	catalog, err := config.LoadCatalog(catalogPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var store domain.Store
	if cfg.Database.Driver == config.DriverPostgres {
		store, err = postgres.Open(ctx, cfg.Database.Postgres, logger)
	} else {
		store, err = database.NewDB(cfg.Database.Path, logger)
	}
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SyncCatalog(ctx, catalog); err != nil {
		return fmt.Errorf("sync catalog: %w", err)
	}

	logger.Info().
		Int("professionals", len(catalog.Professionals)).
		Int("services", len(catalog.Services)).
		Str("file", catalogPath).
		Msg("Catalog synchronized")
	return nil
}
