package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/boldreach/logistics-backend/internal/shipments"
)

type fakeTrackingCache struct {
	entries  map[string]string
	setCalls int
}

func newFakeTrackingCache() *fakeTrackingCache {
	return &fakeTrackingCache{entries: map[string]string{}}
}

func (c *fakeTrackingCache) Get(ctx context.Context, key string) (string, error) {
	return c.entries[key], nil
}

func (c *fakeTrackingCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	c.setCalls++
	switch v := value.(type) {
	case []byte:
		c.entries[key] = string(v)
	case string:
		c.entries[key] = v
	}
	return nil
}

func (c *fakeTrackingCache) TrackingCacheKey(trackingNumber string) string {
	return "cache:tracking:" + strings.ToUpper(trackingNumber)
}

func trackShipment(t *testing.T, svc shipments.Service, cache TrackingCache, trackingNumber string) *httptest.ResponseRecorder {
	t.Helper()

	router := chi.NewRouter()
	router.Get("/track/{trackingNumber}", ShipmentsTrack(svc, cache, time.Minute, controllerTestLogger()))

	req := httptest.NewRequest(http.MethodGet, "/track/"+trackingNumber, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestShipmentsTrackCachesLookups(t *testing.T) {
	svc := &stubShipmentService{
		trackView: &shipments.TrackingView{
			ProgressStep:  "in_transit",
			ProgressIndex: 2,
			BadgeVariant:  "info",
		},
	}
	cache := newFakeTrackingCache()

	rec := trackShipment(t, svc, cache, "BR-CACHE-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.trackCalls != 1 {
		t.Fatalf("expected one service call, got %d", svc.trackCalls)
	}
	if cache.setCalls != 1 {
		t.Fatalf("expected lookup to be cached, set calls %d", cache.setCalls)
	}

	rec = trackShipment(t, svc, cache, "BR-CACHE-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on cache hit, got %d", rec.Code)
	}
	if svc.trackCalls != 1 {
		t.Fatalf("cache hit must not reach the service, calls %d", svc.trackCalls)
	}

	var envelope struct {
		Data shipments.TrackingView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Data.ProgressStep != "in_transit" || envelope.Data.ProgressIndex != 2 {
		t.Fatalf("unexpected cached payload: %+v", envelope.Data)
	}
}

func TestShipmentsTrackWorksWithoutCache(t *testing.T) {
	svc := &stubShipmentService{trackView: &shipments.TrackingView{ProgressStep: "delivered"}}

	rec := trackShipment(t, svc, nil, "BR-NOCACHE")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.trackCalls != 1 {
		t.Fatalf("expected one service call, got %d", svc.trackCalls)
	}
}
