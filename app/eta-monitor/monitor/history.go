package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/TransJakartaLabs/etacast/business/eta/pipeline"
	"github.com/redis/go-redis/v9"
)

const historyKeyPrefix = "bus."

// historyStore maintains each vehicle's bounded fix history as a redis list:
// newest fix first, trimmed to the history cap, expiring at 01:00 the
// following calendar day
type historyStore struct {
	rdb      *redis.Client
	cap      int
	location *time.Location
}

func makeHistoryStore(rdb *redis.Client, cap int, location *time.Location) *historyStore {
	return &historyStore{rdb: rdb, cap: cap, location: location}
}

func historyKey(busCode string) string {
	return historyKeyPrefix + busCode
}

// lastFixTime returns the timestamp of the newest stored fix for busCode
func (h *historyStore) lastFixTime(ctx context.Context, busCode string) (time.Time, bool, error) {
	values, err := h.rdb.LRange(ctx, historyKey(busCode), 0, 0).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading history head for %s: %w", busCode, err)
	}
	if len(values) == 0 {
		return time.Time{}, false, nil
	}
	var fix pipeline.GpsFix
	if err = json.Unmarshal([]byte(values[0]), &fix); err != nil {
		return time.Time{}, false, fmt.Errorf("parsing history head for %s: %w", busCode, err)
	}
	return fix.Time, true, nil
}

// record pushes fix onto busCode's history, trims to the cap, and refreshes
// the key's service-day expiry. The stored copy is never marked new; newness
// is a per-tick property decided by the caller.
func (h *historyStore) record(ctx context.Context, fix pipeline.GpsFix) error {
	stored := fix
	stored.IsNew = false
	payload, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	key := historyKey(fix.BusCode)
	pipe := h.rdb.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, int64(h.cap-1))
	pipe.ExpireAt(ctx, key, nextServiceExpiry(fix.Time.In(h.location)))
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording fix for %s: %w", fix.BusCode, err)
	}
	return nil
}

// window reads busCode's stored fixes, newest first, marking as new any fix
// whose timestamp appears in newTimes
func (h *historyStore) window(ctx context.Context, busCode string, newTimes map[int64]bool) ([]pipeline.GpsFix, error) {
	values, err := h.rdb.LRange(ctx, historyKey(busCode), 0, int64(h.cap-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading history for %s: %w", busCode, err)
	}
	fixes := make([]pipeline.GpsFix, 0, len(values))
	for _, value := range values {
		var fix pipeline.GpsFix
		if err = json.Unmarshal([]byte(value), &fix); err != nil {
			return nil, fmt.Errorf("parsing history for %s: %w", busCode, err)
		}
		fix.IsNew = newTimes[fix.Time.Unix()]
		fixes = append(fixes, fix)
	}
	return fixes, nil
}

// nextServiceExpiry returns 01:00 on the calendar day after at
func nextServiceExpiry(at time.Time) time.Time {
	next := at.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), 1, 0, 0, 0, at.Location())
}
