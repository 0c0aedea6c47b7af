package cart

import (
	"sync"
	"testing"

	"plantshop/internal"
)

func item(id string, price float64) internal.Item {
	return internal.Item{ID: id, Name: "Plant " + id, Price: price}
}

func TestStoreScenario(t *testing.T) {
	s := NewStore()
	s.Add(item("a", 10))
	s.Add(item("a", 10))
	s.Add(item("b", 5))

	assertLines(t, s.Lines(), []internal.CartLine{
		{ID: "a", Name: "Plant a", Price: 10, Qty: 2},
		{ID: "b", Name: "Plant b", Price: 5, Qty: 1},
	})
	if got := s.Total(); got != 25 {
		t.Fatalf("total=%v", got)
	}

	if !s.Remove("a") {
		t.Fatal("remove of present id reported no change")
	}
	assertLines(t, s.Lines(), []internal.CartLine{{ID: "b", Name: "Plant b", Price: 5, Qty: 1}})
	if got := s.Total(); got != 5 {
		t.Fatalf("total=%v", got)
	}

	s.Clear()
	if s.Len() != 0 || s.Total() != 0 {
		t.Fatalf("after clear len=%d total=%v", s.Len(), s.Total())
	}
}

func TestAddKeepsFirstSnapshot(t *testing.T) {
	s := NewStore()
	s.Add(internal.Item{ID: "m", Name: "Mango", Price: 100})
	line := s.Add(internal.Item{ID: "m", Name: "Mango (sale)", Price: 80})

	if line.Qty != 2 || line.Name != "Mango" || line.Price != 100 {
		t.Fatalf("line=%+v", line)
	}
	if got := s.Total(); got != 200 {
		t.Fatalf("total=%v", got)
	}
}

func TestAddKeepsInsertionOrder(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"x", "y", "z", "x", "y"} {
		s.Add(item(id, 1))
	}
	lines := s.Lines()
	if len(lines) != 3 || lines[0].ID != "x" || lines[1].ID != "y" || lines[2].ID != "z" {
		t.Fatalf("order=%+v", lines)
	}
}

func TestAddRawNormalizes(t *testing.T) {
	s := NewStore()
	line := s.AddRaw(internal.RawRecord{"plantId": 9, "price": "15"})
	if line.ID != "9" || line.Name != "Tree" || line.Price != 15 || line.Qty != 1 {
		t.Fatalf("line=%+v", line)
	}

	anon := s.AddRaw(nil)
	if anon.ID == "" {
		t.Fatal("anonymous item got empty id")
	}
	if s.Len() != 2 {
		t.Fatalf("len=%d", s.Len())
	}
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	s := NewStore()
	if s.Remove("missing") {
		t.Fatal("remove on empty cart reported a change")
	}

	s.Add(item("a", 3))
	before := s.View()
	if s.Remove("b") {
		t.Fatal("remove of unknown id reported a change")
	}
	after := s.View()
	if after.Total != before.Total || len(after.Lines) != len(before.Lines) {
		t.Fatalf("cart changed: %+v -> %+v", before, after)
	}
}

func TestLinesReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Add(item("a", 3))
	lines := s.Lines()
	lines[0].Qty = 99
	if got, _ := s.Line("a"); got.Qty != 1 {
		t.Fatalf("store mutated through copy: %+v", got)
	}
}

func TestSubscribersSeeEveryChange(t *testing.T) {
	s := NewStore()
	var views []View
	s.Subscribe(func(v View) { views = append(views, v) })

	s.Add(item("a", 2))
	s.Add(item("a", 2))
	s.Remove("zzz")
	s.Remove("a")
	s.Clear()

	if len(views) != 4 {
		t.Fatalf("notifications=%d", len(views))
	}
	if views[1].Total != 4 || views[1].Lines[0].Qty != 2 {
		t.Fatalf("second view=%+v", views[1])
	}
	if views[3].Total != 0 || len(views[3].Lines) != 0 {
		t.Fatalf("clear view=%+v", views[3])
	}
}

func TestSubscriberMayReadStore(t *testing.T) {
	s := NewStore()
	var total float64
	s.Subscribe(func(View) { total = s.Total() })
	s.Add(item("a", 7))
	if total != 7 {
		t.Fatalf("total seen by subscriber=%v", total)
	}
}

func TestConcurrentAddsNeverDuplicateLines(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "a"
			if i%2 == 1 {
				id = "b"
			}
			s.Add(item(id, 1))
			if i%10 == 0 {
				s.Remove("c")
			}
		}(i)
	}
	wg.Wait()

	lines := s.Lines()
	if len(lines) != 2 {
		t.Fatalf("lines=%+v", lines)
	}
	if lines[0].Qty+lines[1].Qty != 50 {
		t.Fatalf("qty sum=%d", lines[0].Qty+lines[1].Qty)
	}
}

func assertLines(t *testing.T, got, want []internal.CartLine) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("lines=%+v want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d=%+v want %+v", i, got[i], want[i])
		}
	}
}
