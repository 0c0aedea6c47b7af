// Package cart holds the session shopping cart.
package cart

import (
	"sync"

	"plantshop/internal"
	"plantshop/internal/catalog"
)

// View is what a redraw needs: the ordered lines and their total.
type View struct {
	Lines []internal.CartLine `json:"lines"`
	Total float64             `json:"total"`
}

// Store is an insertion-ordered set of cart lines, at most one per item id.
// Every operation runs to completion under the store lock; subscribers are
// called afterwards with a snapshot.
type Store struct {
	mu          sync.Mutex
	lines       []internal.CartLine
	subscribers []func(View)
}

// NewStore returns an empty cart.
func NewStore() *Store {
	return &Store{}
}

// Subscribe registers fn to be called after every mutation that changed
// the cart. The api handler uses it to log cart changes per session.
func (s *Store) Subscribe(fn func(View)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Add normalizes item and adds one unit of it. A repeat add only bumps the
// quantity; name and price stay as they were at the first add.
func (s *Store) Add(item internal.Item) internal.CartLine {
	return s.AddRaw(item.Record())
}

func (s *Store) AddRaw(raw internal.RawRecord) internal.CartLine {
	item := catalog.MakeItem(raw)

	s.mu.Lock()
	var line internal.CartLine
	if idx := s.indexOf(item.ID); idx >= 0 {
		s.lines[idx].Qty++
		line = s.lines[idx]
	} else {
		line = internal.CartLine{ID: item.ID, Name: item.Name, Price: item.Price, Qty: 1}
		s.lines = append(s.lines, line)
	}
	view, subs := s.snapshotLocked()
	s.mu.Unlock()

	notify(subs, view)
	return line
}

// Remove drops the whole line for id. Unknown ids are ignored.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	view, subs := s.snapshotLocked()
	s.mu.Unlock()

	notify(subs, view)
	return true
}

// Clear empties the cart and notifies subscribers.
func (s *Store) Clear() {
	s.mu.Lock()
	s.lines = nil
	view, subs := s.snapshotLocked()
	s.mu.Unlock()

	notify(subs, view)
}

// Total is the sum of price times quantity over all lines.
func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return total(s.lines)
}

// Lines returns a copy of the lines in first-add order.
func (s *Store) Lines() []internal.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyLines(s.lines)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{Lines: copyLines(s.lines), Total: total(s.lines)}
}

// Line looks up the line for id.
func (s *Store) Line(id string) (internal.CartLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.lines[idx], true
	}
	return internal.CartLine{}, false
}

// indexOf is a linear scan; carts are small.
func (s *Store) indexOf(id string) int {
	for i := range s.lines {
		if s.lines[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() (View, []func(View)) {
	view := View{Lines: copyLines(s.lines), Total: total(s.lines)}
	subs := make([]func(View), len(s.subscribers))
	copy(subs, s.subscribers)
	return view, subs
}

func notify(subs []func(View), view View) {
	for _, fn := range subs {
		fn(view)
	}
}

func total(lines []internal.CartLine) float64 {
	sum := 0.0
	for _, l := range lines {
		sum += l.Subtotal()
	}
	return sum
}

func copyLines(lines []internal.CartLine) []internal.CartLine {
	out := make([]internal.CartLine, len(lines))
	copy(out, lines)
	return out
}
