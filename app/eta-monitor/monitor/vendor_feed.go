package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TransJakartaLabs/etacast/business/eta/pipeline"
	"github.com/TransJakartaLabs/etacast/foundation/httpclient"
)

// errTransientIngest marks a vendor API failure that should abort the tick
// but not the service
var errTransientIngest = errors.New("transient vendor ingest failure")

// vendorTimeLayouts are the timestamp formats the vendor feed has been seen
// producing
var vendorTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// vendorRow is one bus position row from the vendor GPS API
type vendorRow struct {
	BusCode     string  `json:"bus_code"`
	Koridor     string  `json:"koridor"`
	TripId      string  `json:"trip_id"`
	GpsDatetime string  `json:"gpsdatetime"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	GpsHeading  float64 `json:"gpsheading"`
	GpsSpeed    float64 `json:"gpsspeed"`
}

// vendorFeed polls the credentialed vendor GPS API
type vendorFeed struct {
	client    *httpclient.Client
	url       string
	corridors map[string]bool
	location  *time.Location
}

// makeVendorFeed builds a vendorFeed limited to the corridors in corridorIDs
func makeVendorFeed(client *httpclient.Client, url string, corridorIDs []string, location *time.Location) *vendorFeed {
	corridors := make(map[string]bool, len(corridorIDs))
	for _, id := range corridorIDs {
		corridors[id] = true
	}
	return &vendorFeed{client: client, url: url, corridors: corridors, location: location}
}

// fetch retrieves the current vehicle positions. Any failure of the first
// request triggers one re-login attempt and one retry before the tick is
// given up as transient.
func (f *vendorFeed) fetch(ctx context.Context) ([]pipeline.GpsFix, error) {
	var rows []vendorRow
	err := f.client.GetJSON(ctx, f.url, &rows)
	if err != nil {
		if err = f.client.Login(ctx); err != nil {
			return nil, fmt.Errorf("%w: re-authentication failed: %v", errTransientIngest, err)
		}
		err = f.client.GetJSON(ctx, f.url, &rows)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errTransientIngest, err)
	}
	return f.parseRows(rows)
}

// parseRows converts vendor rows on whitelisted corridors into fixes
func (f *vendorFeed) parseRows(rows []vendorRow) ([]pipeline.GpsFix, error) {
	fixes := make([]pipeline.GpsFix, 0, len(rows))
	for _, row := range rows {
		if !f.corridors[row.Koridor] {
			continue
		}
		at, err := parseVendorTime(row.GpsDatetime, f.location)
		if err != nil {
			return nil, fmt.Errorf("bus %s: %w", row.BusCode, err)
		}
		fixes = append(fixes, pipeline.GpsFix{
			BusCode:      row.BusCode,
			CorridorID:   row.Koridor,
			VendorTripID: row.TripId,
			Time:         at,
			Lat:          row.Latitude,
			Lon:          row.Longitude,
			Heading:      row.GpsHeading,
			Speed:        row.GpsSpeed,
			IsNew:        true,
		})
	}
	return fixes, nil
}

// parseVendorTime parses the vendor's timestamp string in the service's local
// time zone
func parseVendorTime(value string, location *time.Location) (time.Time, error) {
	for _, layout := range vendorTimeLayouts {
		if at, err := time.ParseInLocation(layout, value, location); err == nil {
			return at, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable gpsdatetime %q", value)
}
