package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"openspots/internal/clock"
	"openspots/internal/models"
	"openspots/internal/payments"
	redisstore "openspots/internal/redis"
)

type fakeZoneGetter struct {
	zones map[string]*models.Zone
}

func (f *fakeZoneGetter) GetByID(_ context.Context, id string) (*models.Zone, error) {
	z, ok := f.zones[id]
	if !ok {
		return nil, nil
	}
	cp := *z
	return &cp, nil
}

type fakeOccupancyReader struct {
	readings map[string]*redisstore.Reading
	err      error
}

func (f *fakeOccupancyReader) Get(_ context.Context, elementID string) (*redisstore.Reading, error) {
	if f.err != nil {
		return nil, f.err
	}
	reading, ok := f.readings[elementID]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return reading, nil
}

func TestSpotStatusHandler(t *testing.T) {
	zones := &fakeZoneGetter{zones: map[string]*models.Zone{
		"zone-1": {ID: "zone-1", ZoneNumber: "4021", IsAvailable: true, RatePerHour: 12},
	}}
	handler := NewSpotStatusHandler(zones, nil)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/spot/zone-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["zoneNumber"] != "4021" || body["isAvailable"] != true {
		t.Fatalf("body = %v", body)
	}
}

func TestSpotStatusHandlerPrefersCachedReading(t *testing.T) {
	zones := &fakeZoneGetter{zones: map[string]*models.Zone{
		"zone-1": {ID: "zone-1", ZoneNumber: "4021", SensorID: "elem-9", IsAvailable: true, RatePerHour: 12},
	}}
	at := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	cache := &fakeOccupancyReader{readings: map[string]*redisstore.Reading{
		"elem-9": {ElementID: "elem-9", Status: 1, Timestamp: at},
	}}
	handler := NewSpotStatusHandler(zones, cache)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/spot/zone-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["isAvailable"] != false {
		t.Fatalf("isAvailable = %v, want false from cached reading", body["isAvailable"])
	}
	if !strings.HasPrefix(body["lastUpdated"].(string), "2026-03-14T10:30:00") {
		t.Fatalf("lastUpdated = %v, want reading timestamp", body["lastUpdated"])
	}
}

func TestSpotStatusHandlerSensorDown(t *testing.T) {
	zones := &fakeZoneGetter{zones: map[string]*models.Zone{
		"zone-1": {ID: "zone-1", SensorID: "elem-9", IsAvailable: true},
	}}
	cache := &fakeOccupancyReader{readings: map[string]*redisstore.Reading{
		"elem-9": {ElementID: "elem-9", Status: -1, Timestamp: time.Now().UTC()},
	}}
	handler := NewSpotStatusHandler(zones, cache)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/spot/zone-1", nil))
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["sensorDown"] != true {
		t.Fatalf("sensorDown = %v, want true", body["sensorDown"])
	}
	if body["isAvailable"] != true {
		t.Fatalf("isAvailable = %v, want zone document value kept", body["isAvailable"])
	}
}

func TestSpotStatusHandlerFallsBackOnCacheMiss(t *testing.T) {
	zones := &fakeZoneGetter{zones: map[string]*models.Zone{
		"zone-1": {ID: "zone-1", SensorID: "elem-9", IsAvailable: false},
	}}
	cache := &fakeOccupancyReader{err: errors.New("redis unreachable")}
	handler := NewSpotStatusHandler(zones, cache)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/spot/zone-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["isAvailable"] != false {
		t.Fatalf("isAvailable = %v, want zone document value", body["isAvailable"])
	}
}

func TestSpotStatusHandlerNotFound(t *testing.T) {
	handler := NewSpotStatusHandler(&fakeZoneGetter{zones: map[string]*models.Zone{}}, nil)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/spot/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSpotStatusHandlerRejectsNestedPath(t *testing.T) {
	handler := NewSpotStatusHandler(&fakeZoneGetter{zones: map[string]*models.Zone{}}, nil)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/spot/a/b", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestConfirmHandlerRejectsBadBody(t *testing.T) {
	handler := NewConfirmSessionHandler(nil, zap.NewNop())

	cases := []string{
		"{not json",
		"{}",
		`{"sessionId": ""}`,
	}
	for _, body := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/parking/confirm-session", strings.NewReader(body))
		handler(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestCreatePendingHandlerRequiresZone(t *testing.T) {
	handler := NewCreatePendingHandler(nil, zap.NewNop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/parking/create-pending", strings.NewReader(`{"userId":"u-1"}`))
	handler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func signWebhookPayload(payload []byte, secret string, at time.Time) string {
	signed := fmt.Sprintf("%d.%s", at.Unix(), payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signed))
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func newWebhookService() *payments.Service {
	return payments.NewService(nil, nil, nil, nil, clock.NewSystem(), zap.NewNop())
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	handler := NewStripeWebhookHandler(newWebhookService(), "whsec_test", zap.NewNop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{"type":"checkout.session.completed"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	handler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStripeWebhookAcceptsSignedIgnoredEvent(t *testing.T) {
	const secret = "whsec_test"
	handler := NewStripeWebhookHandler(newWebhookService(), secret, zap.NewNop())

	payload := []byte(`{"id":"evt_1","type":"payment_intent.created","data":{"object":{}}}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signWebhookPayload(payload, secret, time.Now()))
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
}
