// Command order-import appends gzipped CSV order exports to the order
// record set, skipping orders that are already present.
package main

import (
	"context"
	"os"

	"github.com/cristalhq/aconfig"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/xenking/coffee-desk/internal/app"
	"github.com/xenking/coffee-desk/internal/domain/order"
	"github.com/xenking/coffee-desk/internal/ingest"
	"github.com/xenking/coffee-desk/internal/records"
)

type config struct {
	Dir      string `default:"data/import" usage:"Directory containing *.csv.gz order exports"`
	Workers  int    `default:"4" usage:"Concurrent file readers"`
	DryRun   bool   `usage:"Scan and report without writing" flag:"dry-run"`
	Timezone string `default:"Local" usage:"IANA time zone of export timestamps"`
	Storage  appkg.StorageConfig
}

func loadConfig() (*config, error) {
	var cfg config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "COFFEE",
		Args:      os.Args[1:],
		SkipFiles: true,
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if cfg.Storage.DatabaseURL == "" {
		cfg.Storage.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	return &cfg, nil
}

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return run(ctx, lg, cfg)
	})
}

func run(ctx context.Context, lg *zap.Logger, cfg *config) error {
	appCfg := appkg.Config{Timezone: cfg.Timezone}
	loc, err := appCfg.Location()
	if err != nil {
		return err
	}

	files, err := ingest.Files(cfg.Dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		lg.Info("No export files found", zap.String("dir", cfg.Dir), zap.String("pattern", ingest.Pattern))
		return nil
	}

	store, err := appkg.OpenStorage(ctx, lg, cfg.Storage, loc)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer store.Close()

	lg.Info("Importing orders",
		zap.Int("files", len(files)),
		zap.Int("workers", cfg.Workers),
		zap.Bool("dry_run", cfg.DryRun),
	)
	im := ingest.New(order.NewStore(store.Orders), records.Codec{Location: loc}, lg, cfg.Workers)
	res, err := im.Run(ctx, files, cfg.DryRun)
	if err != nil {
		return errors.Wrap(err, "import")
	}

	lg.Info("Import complete",
		zap.Int("files", res.Files),
		zap.Int("read", res.Read),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("imported", res.Imported),
	)
	return nil
}
