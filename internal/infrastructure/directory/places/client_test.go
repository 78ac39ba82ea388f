package places

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fieldsight/location-engine/internal/core/domain"
)

func TestSearchNearbyMapsCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/nearby" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("type") != "restaurant" {
			t.Fatalf("expected type filter, got %q", r.URL.Query().Get("type"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "OK",
			"results": [
				{"id": "p1", "name": "Harbor Grill", "address": "1 Pier Rd", "lat": 10.0, "lon": 20.0, "types": ["restaurant"], "rating": 4.5}
			]
		}`))
	}))
	defer server.Close()

	client := New(server.URL, "test-key", Options{})
	candidates, err := client.SearchNearby(context.Background(), domain.Coordinate{Lat: 10, Lon: 20}, 1500, "restaurant")
	if err != nil {
		t.Fatalf("SearchNearby() error = %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].BusinessType != domain.TypeRestaurant {
		t.Fatalf("expected restaurant classification, got %s", candidates[0].BusinessType)
	}
}

func TestSearchNearbyZeroResultsIsEmptySuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}))
	defer server.Close()

	client := New(server.URL, "", Options{})
	candidates, err := client.SearchNearby(context.Background(), domain.Coordinate{}, 500, "")
	if err != nil {
		t.Fatalf("zero results must be success, got %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected empty list, got %d", len(candidates))
	}
}

func TestSearchNearbyNonSuccessStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "OVER_QUERY_LIMIT"}`))
	}))
	defer server.Close()

	client := New(server.URL, "", Options{})
	_, err := client.SearchNearby(context.Background(), domain.Coordinate{}, 500, "")
	if err == nil {
		t.Fatalf("expected error for non-success status")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
}

func TestGetDetailsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS"}`))
	}))
	defer server.Close()

	client := New(server.URL, "", Options{})
	_, err := client.GetDetails(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrPlaceNotFound) {
		t.Fatalf("expected ErrPlaceNotFound, got %v", err)
	}
}

func TestServerErrorWrapsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, "", Options{})
	_, err := client.SearchNearby(context.Background(), domain.Coordinate{}, 500, "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary classification for 503, got %v", err)
	}
}
