package sensors

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"openspots/internal/models"
)

type fakeZones struct {
	zones map[string]*models.Zone
}

func (f *fakeZones) FindBySensorID(_ context.Context, sensorID string) (*models.Zone, error) {
	z, ok := f.zones[sensorID]
	if !ok {
		return nil, nil
	}
	cp := *z
	return &cp, nil
}

type occupancyCall struct {
	zoneID   string
	occupied bool
}

type fakeOccupancy struct {
	mu    sync.Mutex
	calls []occupancyCall
}

func (f *fakeOccupancy) SetOccupied(_ context.Context, zone *models.Zone, occupied bool) error {
	f.mu.Lock()
	f.calls = append(f.calls, occupancyCall{zoneID: zone.ID, occupied: occupied})
	f.mu.Unlock()
	return nil
}

func (f *fakeOccupancy) recorded() []occupancyCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]occupancyCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func newTestConsumer(zones *fakeZones, occupancy *fakeOccupancy) *Consumer {
	return NewConsumer("amqp://unused", "sensor.readings", zones, occupancy, nil, zap.NewNop())
}

func TestHandleOccupiedReading(t *testing.T) {
	zones := &fakeZones{zones: map[string]*models.Zone{
		"elem-9": {ID: "zone-1", SensorID: "elem-9"},
	}}
	occupancy := &fakeOccupancy{}
	c := newTestConsumer(zones, occupancy)

	c.handle(context.Background(), []byte(`{"element":"elem-9","phenomenon":"presence","value":1,"timestamp":1750000000000}`))

	calls := occupancy.recorded()
	if len(calls) != 1 || calls[0].zoneID != "zone-1" || !calls[0].occupied {
		t.Fatalf("occupancy calls = %+v", calls)
	}
}

func TestHandleVacantReading(t *testing.T) {
	zones := &fakeZones{zones: map[string]*models.Zone{
		"elem-9": {ID: "zone-1", SensorID: "elem-9"},
	}}
	occupancy := &fakeOccupancy{}
	c := newTestConsumer(zones, occupancy)

	c.handle(context.Background(), []byte(`{"element":"elem-9","value":0}`))

	calls := occupancy.recorded()
	if len(calls) != 1 || calls[0].occupied {
		t.Fatalf("occupancy calls = %+v", calls)
	}
}

func TestHandleIgnoresBadInput(t *testing.T) {
	zones := &fakeZones{zones: map[string]*models.Zone{
		"elem-9": {ID: "zone-1", SensorID: "elem-9"},
	}}
	occupancy := &fakeOccupancy{}
	c := newTestConsumer(zones, occupancy)

	cases := [][]byte{
		[]byte(`not json`),
		[]byte(`{"value":1}`),                          // no element
		[]byte(`{"element":"elem-9","value":-1}`),      // sensor down
		[]byte(`{"element":"elem-unknown","value":1}`), // unmapped sensor
	}
	for _, body := range cases {
		c.handle(context.Background(), body)
	}

	if calls := occupancy.recorded(); len(calls) != 0 {
		t.Fatalf("occupancy touched for bad input: %+v", calls)
	}
}
