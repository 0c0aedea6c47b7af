package cart

import (
	"testing"
	"time"
)

func TestRegistryKeepsSessionsApart(t *testing.T) {
	r := NewRegistry()

	idA, a := r.Get("")
	idB, b := r.Get("not-a-session")
	if idA == "" || idB == "" || idA == idB {
		t.Fatalf("ids %q %q", idA, idB)
	}

	a.Add(item("x", 4))
	if b.Len() != 0 {
		t.Fatal("carts share state")
	}

	sameID, same := r.Get(idA)
	if sameID != idA || same != a {
		t.Fatal("existing session not returned")
	}

	r.Drop(idA)
	if r.Len() != 1 {
		t.Fatalf("len=%d", r.Len())
	}
	newID, fresh := r.Get(idA)
	if newID == idA || fresh.Len() != 0 {
		t.Fatal("dropped session was revived")
	}
}

func TestRegistryStaysBoundedForCookielessCalls(t *testing.T) {
	r := NewRegistryWithLimits(time.Hour, 50)

	for i := 0; i < 1000; i++ {
		r.Get("")
	}
	if r.Len() != 50 {
		t.Fatalf("len=%d", r.Len())
	}
}

func TestRegistryEvictsLeastRecentlySeen(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistryWithLimits(time.Hour, 2)
	r.now = func() time.Time { return clock }

	idA, _ := r.Get("")
	clock = clock.Add(time.Minute)
	idB, _ := r.Get("")
	clock = clock.Add(time.Minute)
	if _, ok := r.Peek(idA); !ok {
		t.Fatal("session A missing")
	}
	clock = clock.Add(time.Minute)
	r.Get("")

	if _, ok := r.Peek(idB); ok {
		t.Fatal("least recently seen session B was kept")
	}
	if _, ok := r.Peek(idA); !ok {
		t.Fatal("recently seen session A was evicted")
	}
}

func TestRegistryExpiresIdleSessions(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistryWithLimits(time.Hour, 100)
	r.now = func() time.Time { return clock }

	idA, a := r.Get("")
	a.Add(item("x", 4))
	r.Get("")

	clock = clock.Add(2 * time.Hour)
	if _, ok := r.Peek(idA); ok {
		t.Fatal("idle session still served")
	}
	newID, fresh := r.Get(idA)
	if newID == idA || fresh.Len() != 0 {
		t.Fatal("expired session was revived")
	}
	if r.Len() != 1 {
		t.Fatalf("idle sessions not swept: len=%d", r.Len())
	}
}

func TestPeekDoesNotCreate(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Peek(""); ok {
		t.Fatal("empty id found")
	}
	if _, ok := r.Peek("unknown"); ok {
		t.Fatal("unknown id found")
	}
	if r.Len() != 0 {
		t.Fatalf("len=%d", r.Len())
	}
}
