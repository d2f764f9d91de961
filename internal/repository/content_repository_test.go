package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStaticContentRepository(t *testing.T) {
	repo := NewStaticContentRepository("a", "b")

	ids, err := repo.ListInUseMarkerIDs(context.Background())
	if err != nil {
		t.Fatalf("ListInUseMarkerIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("Expected 2 ids, got %d", len(ids))
	}
	if _, ok := ids["a"]; !ok {
		t.Error("Expected id a")
	}

	// The returned map is a copy; mutating it must not leak back.
	delete(ids, "a")
	again, _ := repo.ListInUseMarkerIDs(context.Background())
	if _, ok := again["a"]; !ok {
		t.Error("Expected repository state to be unaffected by caller mutation")
	}
}

func TestHTTPContentRepository(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markers/in-use" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`["poster","logo"]`))
	}))
	defer ts.Close()

	repo := NewHTTPContentRepository(ts.URL)
	ids, err := repo.ListInUseMarkerIDs(context.Background())
	if err != nil {
		t.Fatalf("ListInUseMarkerIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("Expected 2 ids, got %d", len(ids))
	}
	for _, want := range []string{"poster", "logo"} {
		if _, ok := ids[want]; !ok {
			t.Errorf("Expected id %q", want)
		}
	}
}

func TestHTTPContentRepositoryErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	repo := NewHTTPContentRepository(ts.URL)
	if _, err := repo.ListInUseMarkerIDs(context.Background()); err == nil {
		t.Error("Expected non-200 registry response to fail")
	}
}
