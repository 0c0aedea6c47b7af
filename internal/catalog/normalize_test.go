package catalog

import (
	"encoding/json"
	"math"
	"testing"

	"plantshop/internal"
)

func TestMakeItemIdentityOrder(t *testing.T) {
	cases := []struct {
		name string
		raw  internal.RawRecord
		want string
	}{
		{name: "id", raw: internal.RawRecord{"id": "p1", "_id": "x", "plantId": "y", "slug": "z"}, want: "p1"},
		{name: "numeric id", raw: internal.RawRecord{"id": float64(7)}, want: "7"},
		{name: "json number id", raw: internal.RawRecord{"id": json.Number("12")}, want: "12"},
		{name: "alternate id", raw: internal.RawRecord{"_id": "abc"}, want: "abc"},
		{name: "zero id falls through", raw: internal.RawRecord{"id": 0, "_id": "abc"}, want: "abc"},
		{name: "plant id", raw: internal.RawRecord{"id": "", "plantId": 42}, want: "42"},
		{name: "slug", raw: internal.RawRecord{"slug": "mango-tree"}, want: "mango-tree"},
		{name: "blank id falls through", raw: internal.RawRecord{"id": "  ", "slug": "neem"}, want: "neem"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MakeItem(tc.raw).ID; got != tc.want {
				t.Fatalf("id=%q want %q", got, tc.want)
			}
		})
	}
}

func TestMakeItemSynthesizesID(t *testing.T) {
	a := MakeItem(internal.RawRecord{"name": "Neem"})
	b := MakeItem(internal.RawRecord{"name": "Neem"})
	if a.ID == "" || b.ID == "" {
		t.Fatalf("empty synthesized id: %q %q", a.ID, b.ID)
	}
	if a.ID == b.ID {
		t.Fatalf("synthesized ids collide: %q", a.ID)
	}
}

func TestMakeItemDefaults(t *testing.T) {
	inputs := []internal.RawRecord{
		nil,
		{},
		{"name": nil, "price": nil, "image": nil, "description": nil, "category": nil},
		{"name": "", "price": "", "image": 3, "description": false, "category": ""},
		{"price": map[string]any{"amount": 10}},
	}

	for i, raw := range inputs {
		item := MakeItem(raw)
		if item.ID == "" {
			t.Fatalf("case %d: empty id", i)
		}
		if item.Name != DefaultName {
			t.Fatalf("case %d: name=%q", i, item.Name)
		}
		if item.Price != 0 {
			t.Fatalf("case %d: price=%v", i, item.Price)
		}
		if item.Image != "" || item.Description != "" {
			t.Fatalf("case %d: image=%q description=%q", i, item.Image, item.Description)
		}
		if item.Category != DefaultCategory {
			t.Fatalf("case %d: category=%q", i, item.Category)
		}
	}
}

func TestToPrice(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want float64
	}{
		{name: "missing", in: nil, want: 0},
		{name: "float", in: 12.5, want: 12.5},
		{name: "int", in: 500, want: 500},
		{name: "json number", in: json.Number("99.9"), want: 99.9},
		{name: "numeric string", in: "250", want: 250},
		{name: "padded string", in: " 12.5 ", want: 12.5},
		{name: "currency string", in: "\u09f3300", want: 0},
		{name: "decimal comma", in: "1,5", want: 0},
		{name: "grouped string", in: "1,250", want: 0},
		{name: "word", in: "free", want: 0},
		{name: "bool", in: true, want: 0},
		{name: "negative", in: -4, want: 0},
		{name: "nan", in: math.NaN(), want: 0},
		{name: "inf", in: math.Inf(1), want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ToPrice(tc.in)
			if got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestMakeItemCategoryShapes(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{in: "Fruit Tree", want: "Fruit Tree"},
		{in: map[string]any{"id": 1, "category_name": "Shade Tree"}, want: "Shade Tree"},
		{in: map[string]any{"name": "Herb"}, want: "Herb"},
		{in: map[string]any{}, want: DefaultCategory},
		{in: 5, want: "5"},
	}
	for _, tc := range cases {
		if got := MakeItem(internal.RawRecord{"id": 1, "category": tc.in}).Category; got != tc.want {
			t.Fatalf("category(%v)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestMakeItemIsIdempotent(t *testing.T) {
	inputs := []internal.RawRecord{
		nil,
		{"id": 1, "name": "Mango", "price": "120", "category": "Fruit Tree"},
		{"_id": "x1", "image": "https://img/x1.png", "description": "tall"},
		{"name": 0, "price": -1},
	}
	for i, raw := range inputs {
		once := MakeItem(raw)
		twice := MakeItem(once.Record())
		if once != twice {
			t.Fatalf("case %d: %+v != %+v", i, once, twice)
		}
	}
}

func TestMergeThenNormalize(t *testing.T) {
	base := internal.RawRecord{"id": 1, "name": "A", "price": 5}
	detail := internal.RawRecord{"description": "nice"}

	got := MakeItem(Merge(base, detail))
	want := internal.Item{ID: "1", Name: "A", Price: 5, Description: "nice", Image: "", Category: "—"}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
	if _, ok := base["description"]; ok {
		t.Fatal("merge modified base")
	}
}

func TestMergeDetailOverridesBase(t *testing.T) {
	base := MakeItem(internal.RawRecord{"id": 3, "name": "Neem", "price": 80, "category": "Medicinal"})
	got := MergeItem(base, internal.RawRecord{"price": 95, "image": "https://img/neem.png"})

	if got.ID != "3" || got.Name != "Neem" || got.Category != "Medicinal" {
		t.Fatalf("base fields lost: %+v", got)
	}
	if got.Price != 95 || got.Image != "https://img/neem.png" {
		t.Fatalf("detail fields not applied: %+v", got)
	}
}
