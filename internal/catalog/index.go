package catalog

import (
	"plantshop/internal"
	"plantshop/internal/util"
)

// fuzzyThreshold is the Dice score a name needs when no token matches.
const fuzzyThreshold = 0.6

// Index answers lookups over a loaded listing. It is immutable once built.
type Index struct {
	order              []string
	ItemsByID          map[string]internal.Item
	ByCategory         map[string][]internal.Item
	TokenToItemIDs     map[string]map[string]struct{}
	NormalizedNameByID map[string]string
}

// BuildIndex indexes items in listing order. When an id repeats, the first
// occurrence wins.
func BuildIndex(items []internal.Item) *Index {
	idx := &Index{
		ItemsByID:          map[string]internal.Item{},
		ByCategory:         map[string][]internal.Item{},
		TokenToItemIDs:     map[string]map[string]struct{}{},
		NormalizedNameByID: map[string]string{},
	}

	for _, item := range items {
		if _, dup := idx.ItemsByID[item.ID]; dup {
			continue
		}
		idx.order = append(idx.order, item.ID)
		idx.ItemsByID[item.ID] = item
		idx.NormalizedNameByID[item.ID] = util.NormalizeLabel(item.Name)

		label := util.NormalizeLabel(item.Category)
		idx.ByCategory[label] = append(idx.ByCategory[label], item)

		for _, token := range util.Tokenize(item.Name + " " + item.Category + " " + item.Description) {
			if _, ok := idx.TokenToItemIDs[token]; !ok {
				idx.TokenToItemIDs[token] = map[string]struct{}{}
			}
			idx.TokenToItemIDs[token][item.ID] = struct{}{}
		}
	}

	return idx
}

func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.order)
}

func (idx *Index) Lookup(id string) (internal.Item, bool) {
	if idx == nil {
		return internal.Item{}, false
	}
	item, ok := idx.ItemsByID[id]
	return item, ok
}

// Items returns every indexed item in listing order.
func (idx *Index) Items() []internal.Item {
	if idx == nil {
		return nil
	}
	out := make([]internal.Item, 0, len(idx.order))
	for _, id := range idx.order {
		out = append(out, idx.ItemsByID[id])
	}
	return out
}

// InCategory matches the category display label loosely (case, spacing,
// punctuation).
func (idx *Index) InCategory(label string) []internal.Item {
	if idx == nil {
		return nil
	}
	return idx.ByCategory[util.NormalizeLabel(label)]
}

// Search returns items containing every query token, in listing order. If
// nothing matches it falls back to names that look similar to the query.
func (idx *Index) Search(query string) []internal.Item {
	if idx == nil {
		return nil
	}
	tokens := util.Tokenize(query)
	if len(tokens) == 0 {
		return idx.Items()
	}

	var out []internal.Item
	for _, id := range idx.order {
		matched := true
		for _, token := range tokens {
			if _, ok := idx.TokenToItemIDs[token][id]; !ok {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, idx.ItemsByID[id])
		}
	}
	if len(out) > 0 {
		return out
	}

	norm := util.NormalizeLabel(query)
	for _, id := range idx.order {
		if util.DiceCoefficient(norm, idx.NormalizedNameByID[id]) >= fuzzyThreshold {
			out = append(out, idx.ItemsByID[id])
		}
	}
	return out
}
