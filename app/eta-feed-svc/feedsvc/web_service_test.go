package feedsvc

import (
	"io"
	logger "log"
	"testing"
	"time"
)

func testLogger() *logger.Logger {
	return logger.New(io.Discard, "", 0)
}

func Test_buildFeedMessage(t *testing.T) {
	positions := makePositionCollection()
	now := time.Date(2026, 7, 27, 8, 20, 0, 0, time.UTC)
	positions.updatePosition(&vehiclePositionUpdate{
		BusCode:     "BUS-001",
		Koridor:     "4B",
		TripId:      "4B-R01_shp",
		Gpsdatetime: "2026-07-27T08:15:30+07:00",
		Latitude:    -6.18,
		Longitude:   106.82,
		GpsHeading:  90,
		GpsSpeed:    32,
	}, now)

	handler := vehiclePositionsHandler{log: testLogger(), positions: positions}
	feedMessage := handler.buildFeedMessage(now)

	if got := feedMessage.Header.GetGtfsRealtimeVersion(); got != "2.0" {
		t.Errorf("feed version = %s, want 2.0", got)
	}
	if got := feedMessage.Header.GetTimestamp(); got != uint64(now.Unix()) {
		t.Errorf("feed timestamp = %d, want %d", got, now.Unix())
	}
	if len(feedMessage.Entity) != 1 {
		t.Fatalf("feed has %d entities, want 1", len(feedMessage.Entity))
	}

	vehicle := feedMessage.Entity[0].GetVehicle()
	if vehicle.GetTrip().GetTripId() != "4B-R01_shp" || vehicle.GetTrip().GetRouteId() != "4B" {
		t.Errorf("entity trip = %s/%s", vehicle.GetTrip().GetTripId(), vehicle.GetTrip().GetRouteId())
	}
	if vehicle.GetVehicle().GetId() != "BUS-001" {
		t.Errorf("entity vehicle id = %s, want BUS-001", vehicle.GetVehicle().GetId())
	}
	if vehicle.GetPosition().GetLatitude() != -6.18 || vehicle.GetPosition().GetLongitude() != 106.82 {
		t.Errorf("entity position = %v,%v", vehicle.GetPosition().GetLatitude(), vehicle.GetPosition().GetLongitude())
	}
	wantTimestamp := time.Date(2026, 7, 27, 1, 15, 30, 0, time.UTC).Unix()
	if vehicle.GetTimestamp() != uint64(wantTimestamp) {
		t.Errorf("entity timestamp = %d, want %d", vehicle.GetTimestamp(), wantTimestamp)
	}
}
