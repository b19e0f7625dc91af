// Command seed loads a YAML league fixture into the configured store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/okian/kartboard/internal/adapters/repository"
	"github.com/okian/kartboard/internal/config"
	"github.com/okian/kartboard/internal/seed"
	"github.com/okian/kartboard/pkg/logger"
)

const defaultTimeout = 2 * time.Minute

func main() {
	var (
		file    = flag.String("file", "", "Fixture to load (default: seed_file from config)")
		dryRun  = flag.Bool("dry-run", false, "Validate the fixture without writing")
		timeout = flag.Duration("timeout", defaultTimeout, "Overall timeout")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	log := logger.Named("seed")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal(ctx, "failed to load config", logger.Error(err))
	}
	path := *file
	if path == "" {
		path = cfg.SeedFile
	}
	if path == "" {
		log.Fatal(ctx, "no fixture given; pass -file or set KARTING_SEED_FILE")
	}

	snap, err := seed.Load(path)
	if err != nil {
		log.Fatal(ctx, "invalid fixture", logger.String("file", path), logger.Error(err))
	}
	size := snap.Size()
	log.Info(ctx, "fixture loaded",
		logger.String("file", path),
		logger.Int("drivers", size.Drivers),
		logger.Int("tournaments", size.Tournaments),
		logger.Int("races", size.Races))
	if *dryRun {
		return
	}
	if cfg.StoreDriver != config.StoreMongo {
		log.Fatal(ctx, "the memory store is seeded at server start; set KARTING_STORE_DRIVER=mongo")
	}

	store, err := repository.NewMongoStore(ctx, cfg.MongoURI,
		repository.WithDatabase(cfg.MongoDatabase),
		repository.WithMongoLogger(log),
	)
	if err != nil {
		log.Fatal(ctx, "failed to connect", logger.Error(err))
	}
	err = seed.Apply(ctx, store, snap)
	_ = store.Close(context.Background())
	if err != nil {
		log.Fatal(ctx, "seeding failed", logger.Error(err))
	}
	log.Info(ctx, "fixture written", logger.String("database", cfg.MongoDatabase))
}
