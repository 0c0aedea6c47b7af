package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"plantshop/internal"
	"plantshop/internal/config"
	"plantshop/internal/storage"
)

const LastSyncKey = "catalog.last_sync"

type SyncStats struct {
	Items      int
	Categories int
	Details    int
}

// SyncService copies the remote catalog into the local cache. Fetches run
// concurrently; nothing is written unless every listing fetch succeeded,
// and the listings are then written in one transaction.
type SyncService struct {
	db          *storage.DB
	source      Source
	concurrency int
	details     bool
	log         *zap.Logger
	now         func() time.Time
}

func NewSyncService(db *storage.DB, source Source, cfg config.Config, log *zap.Logger) *SyncService {
	concurrency := cfg.CatalogSyncConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SyncService{
		db:          db,
		source:      source,
		concurrency: concurrency,
		details:     cfg.CatalogSyncDetails,
		log:         log,
		now:         time.Now,
	}
}

func (s *SyncService) Sync(ctx context.Context) (SyncStats, error) {
	categories, err := s.source.FetchCategories(ctx)
	if err != nil {
		return SyncStats{}, fmt.Errorf("fetch categories: %w", err)
	}

	var all []internal.RawRecord
	perCategory := make([][]internal.RawRecord, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	g.Go(func() error {
		records, err := s.source.FetchAllItems(gctx)
		if err != nil {
			return fmt.Errorf("fetch plants: %w", err)
		}
		all = records
		return nil
	})
	for i, cat := range categories {
		i, cat := i, cat
		g.Go(func() error {
			records, err := s.source.FetchItemsByCategory(gctx, cat.ID)
			if err != nil {
				return fmt.Errorf("fetch category %s: %w", cat.ID, err)
			}
			perCategory[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SyncStats{}, err
	}

	stored, byKey := collectItems(all)
	members := make(map[string][]string, len(categories))
	for i, records := range perCategory {
		id := categories[i].ID
		extra, _ := collectItems(records)
		for _, it := range extra {
			if _, ok := byKey[it.ID]; !ok {
				byKey[it.ID] = struct{}{}
				stored = append(stored, it)
			}
			members[id] = append(members[id], it.ID)
		}
	}

	if err := s.db.ReplaceCatalog(stored, categories, members); err != nil {
		return SyncStats{}, fmt.Errorf("store catalog: %w", err)
	}

	stats := SyncStats{Items: len(stored), Categories: len(categories)}
	if s.details {
		n, err := s.syncDetails(ctx, stored)
		if err != nil {
			return stats, err
		}
		stats.Details = n
	}

	if err := s.db.SetMetadata(LastSyncKey, s.now().UTC().Format(time.RFC3339)); err != nil {
		return stats, err
	}
	s.log.Info("catalog synced",
		zap.Int("items", stats.Items),
		zap.Int("categories", stats.Categories),
		zap.Int("details", stats.Details),
	)
	return stats, nil
}

// syncDetails caches detail records. A missing or failing detail only
// costs that item its detail; the listing record still serves it.
func (s *SyncService) syncDetails(ctx context.Context, items []internal.StoredItem) (int, error) {
	blobs := make([][]byte, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			record, err := s.source.FetchItemDetail(gctx, it.ID)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if !errors.Is(err, ErrNotFound) {
					s.log.Warn("plant detail fetch failed", zap.String("id", it.ID), zap.Error(err))
				}
				return nil
			}
			blob, err := json.Marshal(record)
			if err != nil {
				return nil
			}
			blobs[i] = blob
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	n := 0
	for i, blob := range blobs {
		if blob == nil {
			continue
		}
		if err := s.db.UpsertItemDetail(items[i].ID, string(blob)); err != nil {
			return n, fmt.Errorf("store plant detail %s: %w", items[i].ID, err)
		}
		n++
	}
	return n, nil
}

// LastSync reports when the cache was last filled.
func (s *SyncService) LastSync() (time.Time, bool, error) {
	value, err := s.db.GetMetadata(LastSyncKey)
	if err != nil || value == nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse %s: %w", LastSyncKey, err)
	}
	return t, true, nil
}

// collectItems normalizes records for the cache, dropping repeated ids.
func collectItems(records []internal.RawRecord) ([]internal.StoredItem, map[string]struct{}) {
	seen := map[string]struct{}{}
	out := make([]internal.StoredItem, 0, len(records))
	for _, raw := range records {
		item := MakeItem(raw)
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		blob, err := json.Marshal(raw)
		if err != nil {
			blob = []byte("{}")
		}
		out = append(out, internal.StoredItem{Item: item, RawJSON: string(blob)})
	}
	return out, seen
}
