package catalog

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"plantshop/internal"
	"plantshop/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func newTestClient(t *testing.T, fn roundTripFunc) *Client {
	t.Helper()
	client := NewClient(config.Config{
		CatalogAPIBaseURL:   "https://example.test/api/",
		CatalogRateLimitRPS: 1000,
		CatalogMaxAttempts:  3,
		CatalogTimeout:      time.Second,
	})
	client.httpClient = &http.Client{Transport: fn}
	client.sleep = func(context.Context, time.Duration) error { return nil }
	return client
}

func TestFetchAllItemsWithRetry(t *testing.T) {
	attempt := 0
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/api/plants" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		attempt++
		if attempt == 1 {
			return jsonResponse(http.StatusServiceUnavailable, `{"error":"busy"}`), nil
		}
		return jsonResponse(http.StatusOK, `{"status":true,"plants":[{"id":1,"name":"Mango Tree","price":500},{"id":2,"name":"Neem","price":"350"}]}`), nil
	})

	records, err := client.FetchAllItems(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if attempt != 2 {
		t.Fatalf("attempts=%d", attempt)
	}
	items := MakeItems(records)
	if len(items) != 2 || items[0].ID != "1" || items[1].Price != 350 {
		t.Fatalf("items=%+v", items)
	}
}

func TestFetchItemsByCategoryReadsDataList(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/api/category/3" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		return jsonResponse(http.StatusOK, `{"status":true,"data":[{"_id":"x9","name":"Tulsi"}]}`), nil
	})

	records, err := client.FetchItemsByCategory(context.Background(), "3")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || MakeItem(records[0]).ID != "x9" {
		t.Fatalf("records=%v", records)
	}
}

func TestFetchItemsByCategoryAllUsesFullListing(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		paths = append(paths, r.URL.Path)
		return jsonResponse(http.StatusOK, `{"plants":[]}`), nil
	})

	records, err := client.FetchItemsByCategory(context.Background(), internal.AllCategoryID)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 || len(paths) != 1 || paths[0] != "/api/plants" {
		t.Fatalf("records=%v paths=%v", records, paths)
	}
}

func TestFetchCategories(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"status":true,"categories":[
			{"id":1,"category_name":"Fruit Tree"},
			{"id":2,"name":"Shade Tree"},
			{"category_name":"orphan"}
		]}`), nil
	})

	cats, err := client.FetchCategories(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []internal.Category{{ID: "1", Name: "Fruit Tree"}, {ID: "2", Name: "Shade Tree"}}
	if len(cats) != len(want) || cats[0] != want[0] || cats[1] != want[1] {
		t.Fatalf("cats=%+v", cats)
	}
}

func TestFetchItemDetailShapes(t *testing.T) {
	bodies := map[string]string{
		"/api/plant/1": `{"status":true,"plant":{"id":1,"description":"sweet"}}`,
		"/api/plant/2": `{"status":true,"data":{"id":2,"description":"bitter"}}`,
		"/api/plant/3": `{"status":true}`,
	}
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, bodies[r.URL.Path]), nil
	})

	for id, want := range map[string]string{"1": "sweet", "2": "bitter"} {
		record, err := client.FetchItemDetail(context.Background(), id)
		if err != nil {
			t.Fatalf("plant %s: %v", id, err)
		}
		if got := MakeItem(record).Description; got != want {
			t.Fatalf("plant %s description=%q", id, got)
		}
	}

	if _, err := client.FetchItemDetail(context.Background(), "3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestFetchNotFoundAndFailures(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		switch r.URL.Path {
		case "/api/plant/404":
			return jsonResponse(http.StatusNotFound, `{}`), nil
		case "/api/plant/bad":
			return jsonResponse(http.StatusOK, `not json`), nil
		case "/api/plant/off":
			return jsonResponse(http.StatusOK, `{"status":false,"message":"maintenance"}`), nil
		default:
			return jsonResponse(http.StatusBadGateway, `{}`), nil
		}
	})

	if _, err := client.FetchItemDetail(context.Background(), "404"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("404 err=%v", err)
	}
	if _, err := client.FetchItemDetail(context.Background(), "bad"); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := client.FetchItemDetail(context.Background(), "off"); err == nil || !strings.Contains(err.Error(), "maintenance") {
		t.Fatalf("status false err=%v", err)
	}
	if _, err := client.FetchAllItems(context.Background()); err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("exhausted retries err=%v", err)
	}
}

func TestFetchTransportErrorIsRetried(t *testing.T) {
	attempt := 0
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		attempt++
		if attempt < 3 {
			return nil, errors.New("connection reset")
		}
		return jsonResponse(http.StatusOK, `{"plants":[{"slug":"bamboo"}]}`), nil
	})

	records, err := client.FetchAllItems(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || attempt != 3 {
		t.Fatalf("records=%v attempts=%d", records, attempt)
	}
}
