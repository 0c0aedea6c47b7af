package storefront

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"plantshop/internal"
	"plantshop/internal/cart"
	"plantshop/internal/catalog"
)

var ErrUnknownItem = errors.New("unknown item")

// Service puts the catalog source, the normalizer and the cart together
// behind the operations the storefront needs. Fetch failures are logged
// and turned into fallbacks; they never reach the cart.
type Service struct {
	source catalog.Source
	log    *zap.Logger

	mu       sync.RWMutex
	listings map[string][]internal.Item
	index    *catalog.Index
}

func NewService(source catalog.Source, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		source:   source,
		log:      log,
		listings: map[string][]internal.Item{},
		index:    catalog.BuildIndex(nil),
	}
}

// Categories returns the category list with the "All Trees" entry first.
func (s *Service) Categories(ctx context.Context) ([]internal.Category, error) {
	cats, err := s.source.FetchCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]internal.Category, 0, len(cats)+1)
	out = append(out, internal.AllCategory())
	for _, c := range cats {
		if internal.IsAllCategory(c.ID) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Items loads and normalizes a listing. The latest listing of each category
// is remembered so later detail and cart requests can find items by id.
func (s *Service) Items(ctx context.Context, categoryID string) ([]internal.Item, error) {
	records, err := s.source.FetchItemsByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	items := catalog.MakeItems(records)
	s.remember(categoryID, items)
	return items, nil
}

// Search filters a listing by query tokens, falling back to similar names.
func (s *Service) Search(ctx context.Context, categoryID, query string) ([]internal.Item, error) {
	items, err := s.Items(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return catalog.BuildIndex(items).Search(query), nil
}

// remember replaces the stored listing for categoryID and rebuilds the
// index from the full listing first, then the category listings by id.
func (s *Service) remember(categoryID string, items []internal.Item) {
	if internal.IsAllCategory(categoryID) {
		categoryID = internal.AllCategoryID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[categoryID] = items

	keys := make([]string, 0, len(s.listings))
	for key := range s.listings {
		if key != internal.AllCategoryID {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	merged := append([]internal.Item{}, s.listings[internal.AllCategoryID]...)
	for _, key := range keys {
		merged = append(merged, s.listings[key]...)
	}
	s.index = catalog.BuildIndex(merged)
}

// Lookup finds an item by id among the listings loaded so far, loading the
// full listing once if the id is not known yet.
func (s *Service) Lookup(ctx context.Context, id string) (internal.Item, bool) {
	s.mu.RLock()
	item, ok := s.index.Lookup(id)
	s.mu.RUnlock()
	if ok {
		return item, true
	}

	if _, err := s.Items(ctx, internal.AllCategoryID); err != nil {
		s.log.Warn("plant listing failed", zap.Error(err))
		return internal.Item{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Lookup(id)
}

// Detail returns the listing item merged with its detail record. When the
// detail cannot be fetched the listing item is returned as is.
func (s *Service) Detail(ctx context.Context, id string) (internal.Item, error) {
	base, known := s.Lookup(ctx, id)

	record, err := s.source.FetchItemDetail(ctx, id)
	if err != nil {
		if !known {
			return internal.Item{}, fmt.Errorf("plant %s: %w", id, ErrUnknownItem)
		}
		if !errors.Is(err, catalog.ErrNotFound) {
			s.log.Warn("plant detail failed, using listing data", zap.String("id", id), zap.Error(err))
		}
		return base, nil
	}

	if !known {
		return catalog.MakeItem(catalog.Merge(internal.RawRecord{"id": id}, record)), nil
	}
	return catalog.MergeItem(base, record), nil
}

// AddToCart adds one unit of the catalog item id to store.
func (s *Service) AddToCart(ctx context.Context, store *cart.Store, id string) (internal.CartLine, error) {
	item, ok := s.Lookup(ctx, id)
	if !ok {
		return internal.CartLine{}, fmt.Errorf("plant %s: %w", id, ErrUnknownItem)
	}
	return store.Add(item), nil
}

// PageRequest selects what BuildPage renders.
type PageRequest struct {
	CategoryID string
	DetailID   string
	Cart       cart.View
}

// BuildPage renders the full storefront. Categories and the listing are
// fetched concurrently and each section falls back on its own. Only an
// unknown detail id is reported as an error, together with the page.
func (s *Service) BuildPage(ctx context.Context, req PageRequest) (*Page, error) {
	page, err := NewPage()
	if err != nil {
		return nil, err
	}
	page.ShowSpinner(true)
	defer page.ShowSpinner(false)

	categoryID := req.CategoryID
	if internal.IsAllCategory(categoryID) {
		categoryID = internal.AllCategoryID
	}

	var (
		cats     []internal.Category
		catsErr  error
		items    []internal.Item
		itemsErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cats, catsErr = s.Categories(gctx)
		return nil
	})
	g.Go(func() error {
		items, itemsErr = s.Items(gctx, categoryID)
		return nil
	})
	_ = g.Wait()

	if catsErr != nil {
		s.log.Warn("categories failed", zap.Error(catsErr))
		page.RenderCategoriesFailed()
	} else {
		page.RenderCategories(cats)
		page.SetActiveCategory(categoryID)
	}

	if itemsErr != nil {
		s.log.Warn("plants failed", zap.String("category", categoryID), zap.Error(itemsErr))
		page.RenderGridFailed()
	} else {
		page.RenderGrid(items)
	}

	page.RenderCart(req.Cart)

	if req.DetailID != "" {
		item, err := s.Detail(ctx, req.DetailID)
		if err != nil {
			return page, err
		}
		page.RenderDetail(item)
	}

	return page, nil
}
