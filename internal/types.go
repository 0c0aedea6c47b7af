package internal

// RawRecord is a catalog record exactly as decoded from the remote API.
// Only the normalizer looks inside it.
type RawRecord map[string]any

// Item is the canonical catalog record. All fields are always set.
type Item struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
}

// Record turns the item back into a raw record so it can be merged with
// partial records and normalized again.
func (i Item) Record() RawRecord {
	return RawRecord{
		"id":          i.ID,
		"name":        i.Name,
		"price":       i.Price,
		"image":       i.Image,
		"description": i.Description,
		"category":    i.Category,
	}
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

const (
	AllCategoryID   = "all"
	AllCategoryName = "All Trees"
)

// AllCategory is the pseudo-category that means "no filter".
func AllCategory() Category {
	return Category{ID: AllCategoryID, Name: AllCategoryName}
}

// IsAllCategory reports whether id selects the unfiltered listing.
func IsAllCategory(id string) bool {
	return id == "" || id == AllCategoryID
}

// CartLine aggregates every unit of one item identity. Name and Price are
// taken when the item is first added and never refreshed.
type CartLine struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Qty   int     `json:"qty"`
}

func (l CartLine) Subtotal() float64 {
	return l.Price * float64(l.Qty)
}

// StoredItem is a normalized item together with the JSON record it was
// built from, as kept in the local catalog cache.
type StoredItem struct {
	Item
	RawJSON string `json:"-"`
}
