package catalog

import (
	"context"
	"fmt"

	"plantshop/internal"
	"plantshop/internal/storage"
)

// CachedSource serves the catalog from the local sqlite cache filled by
// SyncService. Records keep their cached identity so listings, details and
// cart lines agree.
type CachedSource struct {
	db *storage.DB
}

func NewCachedSource(db *storage.DB) *CachedSource {
	return &CachedSource{db: db}
}

func (s *CachedSource) FetchAllItems(ctx context.Context) ([]internal.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.db.ListItems()
	if err != nil {
		return nil, fmt.Errorf("list cached items: %w", err)
	}
	return cachedRecords(rows), nil
}

func (s *CachedSource) FetchItemsByCategory(ctx context.Context, categoryID string) ([]internal.RawRecord, error) {
	if internal.IsAllCategory(categoryID) {
		return s.FetchAllItems(ctx)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.db.ListCategoryItems(categoryID)
	if err != nil {
		return nil, fmt.Errorf("list cached category %s: %w", categoryID, err)
	}
	return cachedRecords(rows), nil
}

func (s *CachedSource) FetchCategories(ctx context.Context) ([]internal.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cats, err := s.db.ListCategories()
	if err != nil {
		return nil, fmt.Errorf("list cached categories: %w", err)
	}
	return cats, nil
}

// FetchItemDetail prefers the cached detail record and falls back to the
// listing record.
func (s *CachedSource) FetchItemDetail(ctx context.Context, id string) (internal.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	detail, err := s.db.GetItemDetail(id)
	if err != nil {
		return nil, fmt.Errorf("get cached detail %s: %w", id, err)
	}
	if detail != nil {
		var record internal.RawRecord
		if err := decodeJSON([]byte(*detail), &record); err == nil && record != nil {
			return record, nil
		}
	}

	row, err := s.db.GetItem(id)
	if err != nil {
		return nil, fmt.Errorf("get cached item %s: %w", id, err)
	}
	if row == nil {
		return nil, fmt.Errorf("plant %s: %w", id, ErrNotFound)
	}
	return cachedRecord(*row), nil
}

// cachedRecord overlays the normalized fields on the stored raw JSON, so a
// record that had no identity keeps the one synthesized at sync time.
func cachedRecord(row internal.StoredItem) internal.RawRecord {
	var raw internal.RawRecord
	if row.RawJSON != "" {
		_ = decodeJSON([]byte(row.RawJSON), &raw)
	}
	return Merge(raw, row.Item.Record())
}

func cachedRecords(rows []internal.StoredItem) []internal.RawRecord {
	out := make([]internal.RawRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, cachedRecord(row))
	}
	return out
}
