package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"caseopener-rest-api/internal/cache"
	"caseopener-rest-api/internal/catalog"
	"caseopener-rest-api/internal/logger"
	"caseopener-rest-api/internal/metrics"
	"caseopener-rest-api/internal/model"
	"caseopener-rest-api/internal/repository"
)

// DefaultAssetURLPrefix is where weapon images are served from.
const DefaultAssetURLPrefix = "static/imgs/weapon"

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// IngestReport counts the items touched by one catalog sync.
type IngestReport struct {
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Backfilled int `json:"backfilled"`
}

// CatalogService keeps the item catalog in line with the asset directory.
type CatalogService struct {
	items repository.ItemRepository
	pools *cache.PoolCache
}

// NewCatalogService creates a new catalog service. pools may be nil.
func NewCatalogService(items repository.ItemRepository, pools *cache.PoolCache) *CatalogService {
	return &CatalogService{items: items, pools: pools}
}

// ScanAssets ingests images laid out as <index>_<rarity>/<file>. Image paths
// are stored as urlPrefix joined with the path inside fsys.
func (s *CatalogService) ScanAssets(ctx context.Context, fsys fs.FS, urlPrefix string) (IngestReport, error) {
	var report IngestReport

	dirs, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return report, fmt.Errorf("failed to read asset directory: %w", err)
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name() < dirs[j].Name() })

	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}
		rarity := RarityFromDir(dir.Name())

		files, err := fs.ReadDir(fsys, dir.Name())
		if err != nil {
			return report, fmt.Errorf("failed to read %s: %w", dir.Name(), err)
		}
		sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

		for _, f := range files {
			if f.IsDir() {
				continue
			}
			ext := strings.ToLower(path.Ext(f.Name()))
			if !imageExtensions[ext] {
				continue
			}

			name := ItemNameFromFile(strings.TrimSuffix(f.Name(), path.Ext(f.Name())))
			image := path.Join(urlPrefix, dir.Name(), f.Name())

			created, updated, err := s.upsert(ctx, name, rarity, image)
			if err != nil {
				return report, err
			}
			if created {
				report.Created++
			}
			if updated {
				report.Updated++
			}
		}
	}

	metrics.CatalogItemsIngested.WithLabelValues("created").Add(float64(report.Created))
	metrics.CatalogItemsIngested.WithLabelValues("updated").Add(float64(report.Updated))
	if report.Created > 0 || report.Updated > 0 {
		s.invalidate()
	}

	logger.FromContext(ctx).Info("Asset scan complete", "created", report.Created, "updated", report.Updated)
	return report, nil
}

// upsert creates the item or fills in what an existing row is missing.
func (s *CatalogService) upsert(ctx context.Context, name, rarity, image string) (created, updated bool, err error) {
	existing, err := s.items.GetItemByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		item := &model.Item{
			Name:   name,
			Rarity: rarity,
			Value:  catalog.IngestValue(rarity),
			Image:  image,
		}
		if err := s.items.CreateItem(ctx, item); err != nil {
			return false, false, fmt.Errorf("failed to create item %q: %w", name, err)
		}
		return true, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to look up item %q: %w", name, err)
	}

	item := *existing
	changed := false
	if item.Image != image {
		item.Image = image
		changed = true
	}
	if item.Rarity == "" {
		item.Rarity = rarity
		changed = true
	}
	if item.Value == 0 {
		item.Value = catalog.IngestValue(rarity)
		changed = true
	}
	if !changed {
		return false, false, nil
	}
	if err := s.items.UpdateItem(ctx, item); err != nil {
		return false, false, fmt.Errorf("failed to update item %q: %w", name, err)
	}
	return false, true, nil
}

// BackfillRarities labels items stored without a rarity, inferring it from value.
func (s *CatalogService) BackfillRarities(ctx context.Context) (int, error) {
	items, err := s.items.ListItemsMissingRarity(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list unlabelled items: %w", err)
	}

	for _, it := range items {
		if err := s.items.SetItemRarity(ctx, it.ID, catalog.RarityForValue(it.Value)); err != nil {
			return 0, fmt.Errorf("failed to set rarity for item %d: %w", it.ID, err)
		}
	}

	if len(items) > 0 {
		metrics.CatalogItemsIngested.WithLabelValues("backfilled").Add(float64(len(items)))
		s.invalidate()
		logger.FromContext(ctx).Info("Backfilled item rarities", "count", len(items))
	}
	return len(items), nil
}

// Sync backfills legacy rarities and then scans fsys when it is set.
func (s *CatalogService) Sync(ctx context.Context, fsys fs.FS, urlPrefix string) (IngestReport, error) {
	backfilled, err := s.BackfillRarities(ctx)
	if err != nil {
		return IngestReport{}, err
	}
	report := IngestReport{Backfilled: backfilled}
	if fsys == nil {
		return report, nil
	}

	scanned, err := s.ScanAssets(ctx, fsys, urlPrefix)
	report.Created = scanned.Created
	report.Updated = scanned.Updated
	return report, err
}

func (s *CatalogService) invalidate() {
	if s.pools != nil {
		s.pools.Purge()
	}
}

// RarityFromDir maps "3_legendary" to "legendary".
func RarityFromDir(dir string) string {
	if _, rest, ok := strings.Cut(dir, "_"); ok {
		return strings.ToLower(rest)
	}
	return strings.ToLower(dir)
}

// ItemNameFromFile maps "00_dragon_lore" to "Dragon Lore".
func ItemNameFromFile(stem string) string {
	parts := strings.Split(stem, "_")
	if len(parts) > 0 && isDigits(parts[0]) {
		parts = parts[1:]
	}
	for i, p := range parts {
		if p == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(p)
		parts[i] = string(unicode.ToUpper(r)) + strings.ToLower(p[size:])
	}
	return strings.Join(parts, " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
