package feedsvc

import (
	"context"
	"encoding/json"
	logger "log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// vehicleChannelPattern matches the per-vehicle channels the monitor
// publishes position updates on
const vehicleChannelPattern = "bus.*"

// runVehiclePositionListener subscribes to the vehicle position channels and
// applies updates to the position collection until shutdown
func runVehiclePositionListener(log *logger.Logger,
	wg *sync.WaitGroup,
	rdb *redis.Client,
	positions *positionCollection,
	shutdownSignal chan bool) {
	wg.Add(1)
	defer wg.Done()

	ctx := context.Background()
	pubsub := rdb.PSubscribe(ctx, vehicleChannelPattern)
	log.Printf("Subscribed to %s\n", vehicleChannelPattern)
	defer func() {
		if err := pubsub.Close(); err != nil {
			log.Printf("Error closing pubsub subscription: %v\n", err)
		}
	}()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				log.Printf("vehicle position channel closed, exiting listener\n")
				return
			}
			applyPositionUpdate(log, positions, msg.Payload)
		case <-shutdownSignal:
			log.Printf("exiting vehicle position listener on shutdown signal\n")
			return
		}
	}
}

// applyPositionUpdate unmarshals one published position and stores it
func applyPositionUpdate(log *logger.Logger, positions *positionCollection, payload string) {
	var update vehiclePositionUpdate
	if err := json.Unmarshal([]byte(payload), &update); err != nil {
		log.Printf("error parsing vehicle position update: %v, payload:%s", err, payload)
		return
	}
	positions.updatePosition(&update, time.Now())
}
