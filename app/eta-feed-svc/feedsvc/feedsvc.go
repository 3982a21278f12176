// Package feedsvc serves the public faces of the ETA service: the GTFS
// realtime VehiclePositions feed, the corridor listing, and per-stop ETA
// lookups. Positions stream in over the redis pub/sub channels the monitor
// publishes on.
package feedsvc

import (
	logger "log"
	"os"
	"sync"
	"time"

	"github.com/TransJakartaLabs/etacast/business/data/schedule"
	"github.com/redis/go-redis/v9"
)

//StartServices brings up backgroundLoop, vehiclePositionListener and webservice.
//Exits on shutdown signal.
func StartServices(log *logger.Logger,
	expirePositionSeconds int,
	httpPort int,
	rdb *redis.Client,
	routes []schedule.Route,
	shutdownSignal chan os.Signal) {

	wg := sync.WaitGroup{}

	//create shared container
	positions := makePositionCollection()

	//create shutdown channels
	backgroundLoopShutdown := make(chan bool, 1)
	positionListenerShutdown := make(chan bool, 1)
	webServiceShutdown := make(chan bool, 1)

	//start all child services
	go runBackgroundLoop(log, &wg, positions, backgroundLoopShutdown, expirePositionSeconds)
	go runVehiclePositionListener(log, &wg, rdb, positions, positionListenerShutdown)
	go runWebService(log, &wg, positions, rdb, routes, httpPort, webServiceShutdown)

	select {
	case <-shutdownSignal:
		log.Printf("Exiting on shutdown signal, shutting down subroutines")
		backgroundLoopShutdown <- true
		positionListenerShutdown <- true
		webServiceShutdown <- true
		wg.Wait()
		log.Printf("Subroutines shut down, exiting feed service")
	}
}

//runBackgroundLoop frequently expires stale positions from positionCollection
func runBackgroundLoop(log *logger.Logger,
	wg *sync.WaitGroup,
	positions *positionCollection,
	shutdownSignal chan bool,
	expirePositionSeconds int) {
	wg.Add(1)
	defer wg.Done()

	sleepChan := make(chan bool)

	loopDuration := time.Duration(3) * time.Second
	sleep := loopDuration

	for {

		go func() {
			time.Sleep(sleep)
			sleepChan <- true
		}()

		select {
		case <-shutdownSignal:
			log.Printf("Exiting background loop on shutdown signal")
			return
		case <-sleepChan:
		}

		removed, size := positions.expirePositions(time.Now(), expirePositionSeconds)
		log.Printf("Position collection has %d vehicles. Removed %d stale positions", size, removed)
	}
}
