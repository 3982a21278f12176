// Package monitor drives the realtime ETA service: it polls the vendor GPS
// feed, maintains each vehicle's fix history, fans the per-vehicle ETA
// pipeline out across goroutines, and publishes the results to the pub/sub
// channels and the per-stop ETA store.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/TransJakartaLabs/etacast/business/data/mlmodels"
	"github.com/TransJakartaLabs/etacast/business/data/schedule"
	"github.com/TransJakartaLabs/etacast/business/eta/geometry"
	"github.com/TransJakartaLabs/etacast/business/eta/pipeline"
	"github.com/TransJakartaLabs/etacast/foundation/httpclient"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

// Conf contains all configurable parameters in monitor
type Conf struct {
	LoopEverySeconds        int
	QuietHourStart          int
	QuietHourEnd            int
	InferenceTimeoutSeconds int
	Location                *time.Location
	Pipeline                pipeline.Config
}

// RunEtaMonitorLoop builds the shared pipeline state from the loaded
// schedule and runs the polling loop until shutdownSignal fires
func RunEtaMonitorLoop(log *log.Logger,
	rdb *redis.Client,
	natsConn *nats.Conn,
	vendorClient *httpclient.Client,
	vendorPositionsURL string,
	static *schedule.StaticData,
	model *mlmodels.MLModel,
	conf Conf,
	shutdownSignal chan os.Signal) error {

	log.Println("Building geometry index")
	index, err := geometry.BuildIndex(static.TripInputs, static.PairRows)
	if err != nil {
		return fmt.Errorf("building geometry index: %w", err)
	}

	pipe := pipeline.NewPipeline(pipeline.Deps{
		Index:     index,
		Binning:   pipeline.MakeStopBinning(static.StopMeanEtas, conf.Pipeline.CongestionBins),
		Predictor: makeNatsPredictor(natsConn, model, time.Duration(conf.InferenceTimeoutSeconds)*time.Second),
	}, conf.Pipeline)

	feed := makeVendorFeed(vendorClient, vendorPositionsURL, conf.Pipeline.Corridors, conf.Location)
	history := makeHistoryStore(rdb, conf.Pipeline.HistoryCap, conf.Location)
	publisher := makeResultPublisher(log, rdb)
	calendar := makeServiceCalendar(conf.QuietHourStart, conf.QuietHourEnd)

	stopIDs := make([]string, 0, len(static.Stops))
	for _, stop := range static.Stops {
		stopIDs = append(stopIDs, stop.StopId)
	}

	loopDuration := time.Duration(conf.LoopEverySeconds) * time.Second
	sleepChan := make(chan bool)
	sleep := time.Duration(0) //run immediately the first time

	for {
		go func() {
			time.Sleep(sleep)
			sleepChan <- true
		}()

		select {
		case <-shutdownSignal:
			log.Printf("Exiting on shutdown signal")
			return nil
		case <-sleepChan:
			break
		}

		//set default sleep for next loop in the event of an error after continue statements
		sleep = loopDuration

		start := time.Now().In(conf.Location)

		if calendar.isQuietHours(start) {
			log.Printf("quiet hours, skipping tick at %s\n", start.Format("15:04:05"))
			continue
		}

		ctx := context.Background()

		fixes, err := feed.fetch(ctx)
		if err != nil {
			if errors.Is(err, errTransientIngest) {
				log.Printf("aborting tick on vendor feed failure: %v\n", err)
			} else {
				log.Printf("error retrieving vehicle positions. error:%v\n", err)
			}
			continue
		}
		log.Printf("loaded %d vehicle positions\n", len(fixes))

		published, failed := runVehicleTasks(ctx, log, pipe, history, publisher,
			fixes, calendar.serviceClass(start), start)

		publisher.pruneExpiredEtas(ctx, stopIDs, start)

		workTook := time.Now().Sub(start)
		log.Printf("tick published %d vehicles, %d without result, work took %s\n",
			published, failed, workTook.Round(time.Millisecond))

		// if the work took longer than loopEverySeconds don't sleep at all on the next loop
		if workTook >= loopDuration {
			sleep = time.Duration(0)
		} else {
			sleep = loopDuration - workTook
		}
	}
}

// runVehicleTasks fans one task per distinct vehicle out across goroutines
// and waits for all of them
func runVehicleTasks(ctx context.Context,
	log *log.Logger,
	pipe *pipeline.Pipeline,
	history *historyStore,
	publisher *resultPublisher,
	fixes []pipeline.GpsFix,
	serviceClass string,
	now time.Time) (published int, failed int) {

	byBus := groupByBus(fixes)

	var mu sync.Mutex
	wg := sync.WaitGroup{}
	for busCode, busFixes := range byBus {
		wg.Add(1)
		go func(busCode string, busFixes []pipeline.GpsFix) {
			defer wg.Done()
			ok := processVehicle(ctx, log, pipe, history, publisher, busCode, busFixes, serviceClass, now)
			mu.Lock()
			if ok {
				published++
			} else {
				failed++
			}
			mu.Unlock()
		}(busCode, busFixes)
	}
	wg.Wait()
	return published, failed
}

// processVehicle updates one vehicle's history, runs the pipeline over its
// window, and publishes the result. Returns false when the history store or
// the pipeline fails for the vehicle, or its ETAs cannot be recorded; a
// result with an empty ETA set still counts as published.
func processVehicle(ctx context.Context,
	log *log.Logger,
	pipe *pipeline.Pipeline,
	history *historyStore,
	publisher *resultPublisher,
	busCode string,
	busFixes []pipeline.GpsFix,
	serviceClass string,
	now time.Time) bool {

	sort.SliceStable(busFixes, func(i, j int) bool {
		return busFixes[i].Time.Before(busFixes[j].Time)
	})

	newTimes := make(map[int64]bool)
	for _, fix := range busFixes {
		lastTime, present, err := history.lastFixTime(ctx, busCode)
		if err != nil {
			log.Printf("error reading history for bus %s: %v\n", busCode, err)
			return false
		}
		if !present || fix.Time.After(lastTime) {
			if err = history.record(ctx, fix); err != nil {
				log.Printf("error recording fix for bus %s: %v\n", busCode, err)
				return false
			}
			newTimes[fix.Time.Unix()] = true
		}
	}

	window, err := history.window(ctx, busCode, newTimes)
	if err != nil {
		log.Printf("error reading window for bus %s: %v\n", busCode, err)
		return false
	}

	result, err := pipe.Run(ctx, window)
	if err != nil {
		if errors.Is(err, pipeline.ErrInsufficientHistory) {
			return false
		}
		log.Printf("error processing bus %s: %v\n", busCode, err)
		return false
	}

	latest := busFixes[len(busFixes)-1]
	publisher.publishVehiclePosition(ctx, latest, result.TripID)

	arrivals, err := publisher.recordStopEtas(ctx, busCode, result.StopEtas, now)
	if err != nil {
		log.Printf("error recording etas for bus %s: %v\n", busCode, err)
		return false
	}
	publisher.publishTripAggregate(ctx, result.TripID, busCode, serviceClass, arrivals, now)
	return true
}

// groupByBus groups fixes by vehicle
func groupByBus(fixes []pipeline.GpsFix) map[string][]pipeline.GpsFix {
	byBus := make(map[string][]pipeline.GpsFix)
	for _, fix := range fixes {
		byBus[fix.BusCode] = append(byBus[fix.BusCode], fix)
	}
	return byBus
}
