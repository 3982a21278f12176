package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/TransJakartaLabs/etacast/business/eta/pipeline"
	"github.com/redis/go-redis/v9"
)

const (
	vehicleChannelPrefix = "bus."
	tripChannelPrefix    = "trip."
	stopKeyPrefix        = "stop."
)

// stopEtaEntry is the stored per-stop ETA value, one hash field per vehicle
type stopEtaEntry struct {
	Eta   string `json:"eta"`
	BusId string `json:"bus_id"`
}

// vehicleUpdate is the position update published per vehicle
type vehicleUpdate struct {
	BusCode    string  `json:"bus_code"`
	Koridor    string  `json:"koridor"`
	TripId     string  `json:"trip_id"`
	Gpsdate    string  `json:"gpsdatetime"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	GpsHeading float64 `json:"gpsheading"`
	GpsSpeed   float64 `json:"gpsspeed"`
}

// tripAggregate is the per-trip row published after a vehicle's ETAs are
// recorded
type tripAggregate struct {
	TripId       string            `json:"trip_id"`
	BusCode      string            `json:"bus_code"`
	ServiceClass string            `json:"service_class"`
	StopEtas     map[string]string `json:"stop_etas"`
	PublishedAt  string            `json:"published_at"`
}

// resultPublisher fans pipeline output out to the redis pub/sub channels and
// the per-stop ETA map store
type resultPublisher struct {
	log *log.Logger
	rdb *redis.Client
}

func makeResultPublisher(log *log.Logger, rdb *redis.Client) *resultPublisher {
	return &resultPublisher{log: log, rdb: rdb}
}

// publishVehiclePosition publishes fix on the vehicle's channel
func (p *resultPublisher) publishVehiclePosition(ctx context.Context, fix pipeline.GpsFix, tripID string) {
	payload, err := json.Marshal(vehicleUpdate{
		BusCode:    fix.BusCode,
		Koridor:    fix.CorridorID,
		TripId:     tripID,
		Gpsdate:    fix.Time.Format(time.RFC3339),
		Latitude:   fix.Lat,
		Longitude:  fix.Lon,
		GpsHeading: fix.Heading,
		GpsSpeed:   fix.Speed,
	})
	if err != nil {
		p.log.Printf("error marshaling vehicle update for %s: %v\n", fix.BusCode, err)
		return
	}
	if err = p.rdb.Publish(ctx, vehicleChannelPrefix+fix.BusCode, payload).Err(); err != nil {
		p.log.Printf("error publishing vehicle update for %s: %v\n", fix.BusCode, err)
	}
}

// recordStopEtas writes one ETA entry per downstream stop into the per-stop
// map store and returns the ISO arrival strings it wrote
func (p *resultPublisher) recordStopEtas(ctx context.Context,
	busCode string,
	stopEtas map[string]float64,
	now time.Time) (map[string]string, error) {

	arrivals := make(map[string]string, len(stopEtas))
	for stopID, seconds := range stopEtas {
		arrival := now.Add(time.Duration(seconds * float64(time.Second)))
		arrivals[stopID] = arrival.Format(time.RFC3339)

		payload, err := json.Marshal(stopEtaEntry{Eta: arrivals[stopID], BusId: busCode})
		if err != nil {
			return nil, err
		}
		if err = p.rdb.HSet(ctx, stopKeyPrefix+stopID, busCode, payload).Err(); err != nil {
			return nil, fmt.Errorf("recording eta for stop %s: %w", stopID, err)
		}
	}
	return arrivals, nil
}

// publishTripAggregate publishes the vehicle's per-stop arrivals on its
// trip's channel
func (p *resultPublisher) publishTripAggregate(ctx context.Context,
	tripID string,
	busCode string,
	serviceClass string,
	arrivals map[string]string,
	now time.Time) {

	payload, err := json.Marshal(tripAggregate{
		TripId:       tripID,
		BusCode:      busCode,
		ServiceClass: serviceClass,
		StopEtas:     arrivals,
		PublishedAt:  now.Format(time.RFC3339),
	})
	if err != nil {
		p.log.Printf("error marshaling trip aggregate for %s: %v\n", tripID, err)
		return
	}
	if err = p.rdb.Publish(ctx, tripChannelPrefix+tripID, payload).Err(); err != nil {
		p.log.Printf("error publishing trip aggregate for %s: %v\n", tripID, err)
	}
}

// pruneExpiredEtas deletes stored ETA entries whose arrival time has passed
func (p *resultPublisher) pruneExpiredEtas(ctx context.Context, stopIDs []string, now time.Time) {
	for _, stopID := range stopIDs {
		key := stopKeyPrefix + stopID
		fields, err := p.rdb.HGetAll(ctx, key).Result()
		if err != nil {
			p.log.Printf("error reading eta entries for %s: %v\n", stopID, err)
			continue
		}
		for field, value := range fields {
			var entry stopEtaEntry
			if err = json.Unmarshal([]byte(value), &entry); err != nil {
				p.rdb.HDel(ctx, key, field)
				continue
			}
			arrival, err := time.Parse(time.RFC3339, entry.Eta)
			if err != nil || arrival.Before(now) {
				p.rdb.HDel(ctx, key, field)
			}
		}
	}
}
