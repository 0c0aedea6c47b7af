package syncer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"plantshop/internal/catalog"
	"plantshop/internal/config"
	"plantshop/internal/export"
)

type Syncer interface {
	Sync(ctx context.Context) (catalog.SyncStats, error)
}

// Service refreshes the catalog cache on a fixed interval until its
// context ends. A failed cycle is logged and retried on the next tick.
type Service struct {
	syncer   Syncer
	cache    catalog.Source
	cfg      config.Config
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time
}

func NewService(syncer Syncer, cache catalog.Source, cfg config.Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	interval := cfg.SyncInterval
	if interval <= 0 {
		interval = time.Hour
	}
	return &Service{syncer: syncer, cache: cache, cfg: cfg, log: log, interval: interval, now: time.Now}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Error("sync cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.interval):
		}
	}
}

func (s *Service) RunCycle(ctx context.Context) error {
	stats, err := s.syncer.Sync(ctx)
	if err != nil {
		return err
	}

	var exported string
	if s.cfg.SyncAutoExport {
		exported, err = s.exportCatalog(ctx)
		if err != nil {
			return err
		}
	}

	s.log.Info("sync cycle done",
		zap.Int("items", stats.Items),
		zap.Int("categories", stats.Categories),
		zap.Int("details", stats.Details),
		zap.String("export", exported),
	)
	return nil
}

func (s *Service) exportCatalog(ctx context.Context) (string, error) {
	records, err := s.cache.FetchAllItems(ctx)
	if err != nil {
		return "", fmt.Errorf("read cached catalog: %w", err)
	}
	filename := fmt.Sprintf("catalog_%s.xlsx", s.now().UTC().Format("20060102T150405Z"))
	outputPath := filepath.Join(s.cfg.OutputDir, "catalog", filename)
	if err := export.SaveCatalogXLSX(catalog.MakeItems(records), outputPath); err != nil {
		return "", fmt.Errorf("export catalog: %w", err)
	}
	return outputPath, nil
}
