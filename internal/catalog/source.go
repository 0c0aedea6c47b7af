package catalog

import (
	"context"
	"errors"

	"plantshop/internal"
)

var ErrNotFound = errors.New("catalog record not found")

// Source is where listings, categories and detail records come from. Any
// call may fail; callers fall back instead of propagating.
type Source interface {
	FetchAllItems(ctx context.Context) ([]internal.RawRecord, error)
	FetchItemsByCategory(ctx context.Context, categoryID string) ([]internal.RawRecord, error)
	FetchCategories(ctx context.Context) ([]internal.Category, error)
	FetchItemDetail(ctx context.Context, id string) (internal.RawRecord, error)
}

// toCategory reads one entry of the category list. Entries without an id
// cannot be selected and are dropped.
func toCategory(raw internal.RawRecord) (internal.Category, bool) {
	id, ok := toIdentity(raw["id"])
	if !ok {
		return internal.Category{}, false
	}
	name := textOr(raw["category_name"], "")
	if name == "" {
		name = textOr(raw["name"], id)
	}
	return internal.Category{ID: id, Name: name}, true
}
