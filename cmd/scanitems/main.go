// Command scanitems ingests weapon images into the item catalog.
//
// Images are read from <asset-dir>/<index>_<rarity>/<file>. New files become
// items named after the file; existing items get their image path refreshed
// and a missing rarity or zero value filled in.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"caseopener-rest-api/internal/bootstrap"
	"caseopener-rest-api/internal/config"
	"caseopener-rest-api/internal/service"
)

func main() {
	cfg := config.MustLoad()

	assetDir := flag.String("dir", cfg.Game.AssetDir, "weapon image directory")
	urlPrefix := flag.String("prefix", cfg.Game.AssetURLPrefix, "path stored as the image prefix")
	backfill := flag.Bool("backfill", true, "infer missing rarities from item value")
	flag.Parse()

	bootstrap.SetupLogger(cfg)
	ctx := context.Background()

	info, err := os.Stat(*assetDir)
	if err != nil || !info.IsDir() {
		fmt.Printf("No weapon directory found: %s\n", *assetDir)
		os.Exit(1)
	}

	store, err := bootstrap.OpenStore(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	catalogService := service.NewCatalogService(store, nil)

	if *backfill {
		if _, err := catalogService.BackfillRarities(ctx); err != nil {
			slog.Error("Rarity backfill failed", "error", err)
			os.Exit(1)
		}
	}

	report, err := catalogService.ScanAssets(ctx, os.DirFS(*assetDir), *urlPrefix)
	if err != nil {
		slog.Error("Scan failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Scan complete. Created: %d, Updated: %d\n", report.Created, report.Updated)
}
