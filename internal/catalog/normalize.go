package catalog

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"plantshop/internal"
	"plantshop/internal/util"
)

const (
	// DefaultName replaces a missing or blank plant name.
	DefaultName = "Tree"
	// DefaultCategory is shown for records without a usable category.
	DefaultCategory = "—"
)

// identityKeys are tried in order; the first usable value wins.
var identityKeys = []string{"id", "_id", "plantId", "slug"}

// newID synthesizes an identifier for records that carry none. It only has
// to be unique within a session.
var newID = uuid.NewString

// MakeItem normalizes a raw catalog record. A nil or partial record still
// yields a complete item.
func MakeItem(raw internal.RawRecord) internal.Item {
	if raw == nil {
		raw = internal.RawRecord{}
	}

	id := ""
	for _, key := range identityKeys {
		if v, ok := toIdentity(raw[key]); ok {
			id = v
			break
		}
	}
	if id == "" {
		id = newID()
	}

	return internal.Item{
		ID:          id,
		Name:        textOr(raw["name"], DefaultName),
		Price:       ToPrice(raw["price"]),
		Image:       stringOf(raw["image"]),
		Description: stringOf(raw["description"]),
		Category:    categoryOf(raw["category"]),
	}
}

// MakeItems normalizes a listing, keeping its order.
func MakeItems(raws []internal.RawRecord) []internal.Item {
	out := make([]internal.Item, 0, len(raws))
	for _, raw := range raws {
		out = append(out, MakeItem(raw))
	}
	return out
}

// Merge overlays detail on base. Keys present in detail win, keys only in
// base are kept. Neither input is modified.
func Merge(base, detail internal.RawRecord) internal.RawRecord {
	out := make(internal.RawRecord, len(base)+len(detail))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range detail {
		out[k] = v
	}
	return out
}

// MergeItem is Merge followed by normalization, used when a detail fetch
// augments a listing item.
func MergeItem(base internal.Item, detail internal.RawRecord) internal.Item {
	return MakeItem(Merge(base.Record(), detail))
}

// ToPrice coerces a price-like value. Missing, non-numeric, negative and
// non-finite input all give 0.
func ToPrice(v any) float64 {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		return util.ParseNumber(t)
	default:
		return 0, false
	}
}

func toIdentity(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return strconv.FormatInt(i, 10), i != 0
		}
		f, err := t.Float64()
		if err != nil || f == 0 {
			return "", false
		}
		return strconv.FormatFloat(f, 'f', -1, 64), true
	case float64, float32, int, int32, int64:
		f, _ := toFloat(t)
		if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return "", false
		}
		return strconv.FormatFloat(f, 'f', -1, 64), true
	default:
		return "", false
	}
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

// textOr accepts strings and numbers; anything blank falls back.
func textOr(v any, fallback string) string {
	switch t := v.(type) {
	case string:
		if !util.IsBlank(t) {
			return t
		}
	case json.Number, float64, float32, int, int32, int64:
		if s, ok := toIdentity(t); ok {
			return s
		}
	}
	return fallback
}

func categoryOf(v any) string {
	if raw, ok := v.(internal.RawRecord); ok {
		v = map[string]any(raw)
	}
	if m, ok := v.(map[string]any); ok {
		for _, key := range []string{"category_name", "name"} {
			if s := textOr(m[key], ""); s != "" {
				return s
			}
		}
		return DefaultCategory
	}
	return textOr(v, DefaultCategory)
}
