package feedsvc

import (
	"context"
	"encoding/json"
	logger "log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/TransJakartaLabs/etacast/business/data/schedule"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
)

//defaultHttpHandler simple default http handler for default route
type defaultHttpHandler struct {
}

//ServeHTTP implements defaultHttpHandler http.Handler interface
func (h *defaultHttpHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Application-Status", "OK")
}

//routesHandler serves the static corridor listing
type routesHandler struct {
	log    *logger.Logger
	routes []schedule.Route
}

//ServeHTTP implements routesHandler's http.Handler interface
func (h *routesHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	writeJSON(h.log, w, h.routes)
}

//stopEtaHandler serves the per-stop ETA entries from the map store
type stopEtaHandler struct {
	log *logger.Logger
	rdb *redis.Client
}

//stopEtaResponse wraps the ETA entries stored for one stop
type stopEtaResponse struct {
	StopId string         `json:"stop_id"`
	Etas   []stopEtaValue `json:"etas"`
}

type stopEtaValue struct {
	Eta   string `json:"eta"`
	BusId string `json:"bus_id"`
}

//ServeHTTP implements stopEtaHandler's http.Handler interface
func (h *stopEtaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stopID := mux.Vars(r)["stopID"]
	fields, err := h.rdb.HGetAll(r.Context(), "stop."+stopID).Result()
	if err != nil {
		h.log.Printf("error reading eta entries for %s: %v\n", stopID, err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	response := stopEtaResponse{StopId: stopID, Etas: make([]stopEtaValue, 0, len(fields))}
	for _, value := range fields {
		var entry stopEtaValue
		if err = json.Unmarshal([]byte(value), &entry); err != nil {
			continue
		}
		response.Etas = append(response.Etas, entry)
	}
	writeJSON(h.log, w, response)
}

//vehiclePositionsHandler serves the current vehicle positions as a GTFS
//realtime VehiclePositions feed
type vehiclePositionsHandler struct {
	log       *logger.Logger
	positions *positionCollection
}

//ServeHTTP implements vehiclePositionsHandler's http.Handler interface
func (h *vehiclePositionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	asText := strings.ToLower(r.FormValue("text")) == "true"
	feedMessage := h.buildFeedMessage(time.Now())

	if asText {
		stringResponse := prototext.MarshalOptions{Multiline: true}.Format(feedMessage)
		w.Header().Set("Content-Type", "text/plain")
		if _, err := w.Write([]byte(stringResponse)); err != nil {
			h.log.Printf("Error writing bytes to http.ResponseWriter, error:%s", err)
		}
		return
	}

	bytes, err := proto.Marshal(feedMessage)
	if err != nil {
		h.log.Printf("Failed to marshal FeedMessage to bytes, error:%s", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/grtfeed")
	if _, err = w.Write(bytes); err != nil {
		h.log.Printf("Error writing bytes to http.ResponseWriter, error:%s", err)
	}
}

//buildFeedMessage builds a gtfs-rt FeedMessage from the current positions
func (h *vehiclePositionsHandler) buildFeedMessage(now time.Time) *gtfsrt.FeedMessage {
	gtfsRealtimeVersion := "2.0"
	incrementality := gtfsrt.FeedHeader_FULL_DATASET
	timestamp := uint64(now.Unix())
	feedMessage := gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: &gtfsRealtimeVersion,
			Incrementality:      &incrementality,
			Timestamp:           &timestamp,
		},
		Entity: []*gtfsrt.FeedEntity{},
	}
	for _, position := range h.positions.positionList() {
		feedMessage.Entity = append(feedMessage.Entity, makeVehiclePositionEntity(position))
	}
	return &feedMessage
}

//makeVehiclePositionEntity creates a gtfs-rt FeedEntity for one vehicle
func makeVehiclePositionEntity(update *vehiclePositionUpdate) *gtfsrt.FeedEntity {
	busCode := update.BusCode
	routeId := update.Koridor
	tripId := update.TripId
	latitude := float32(update.Latitude)
	longitude := float32(update.Longitude)
	bearing := float32(update.GpsHeading)
	speed := float32(update.GpsSpeed)

	var timestamp uint64
	if at, err := time.Parse(time.RFC3339, update.Gpsdatetime); err == nil {
		timestamp = uint64(at.Unix())
	}

	return &gtfsrt.FeedEntity{
		Id: &busCode,
		Vehicle: &gtfsrt.VehiclePosition{
			Trip: &gtfsrt.TripDescriptor{
				TripId:  &tripId,
				RouteId: &routeId,
			},
			Vehicle: &gtfsrt.VehicleDescriptor{
				Id:    &busCode,
				Label: &busCode,
			},
			Position: &gtfsrt.Position{
				Latitude:  &latitude,
				Longitude: &longitude,
				Bearing:   &bearing,
				Speed:     &speed,
			},
			Timestamp: &timestamp,
		},
	}
}

//writeJSON marshals v to the response writer as json
func writeJSON(log *logger.Logger, w http.ResponseWriter, v interface{}) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error marshaling json response: %v\n", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err = w.Write(jsonData); err != nil {
		log.Printf("Error writing json response: %s", err)
	}
}

//createServer creates configured http.Server for the feed service
func createServer(log *logger.Logger,
	positions *positionCollection,
	rdb *redis.Client,
	routes []schedule.Route,
	httpPort int) *http.Server {

	r := mux.NewRouter()
	r.Handle("/", &defaultHttpHandler{})
	r.Handle("/routes", &routesHandler{log: log, routes: routes})
	r.Handle("/stops/{stopID}/etas", &stopEtaHandler{log: log, rdb: rdb})
	r.Handle("/vehiclePositions", &vehiclePositionsHandler{log: log, positions: positions})
	srv := &http.Server{
		Addr: strings.Join([]string{"0.0.0.0", strconv.Itoa(httpPort)}, ":"),
		// Good practice to set timeouts to avoid Slowloris attacks.
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      r,
	}
	return srv
}

//runWebService starts up the feed web service, and terminates on shutdown signal
func runWebService(log *logger.Logger,
	wg *sync.WaitGroup,
	positions *positionCollection,
	rdb *redis.Client,
	routes []schedule.Route,
	httpPort int,
	shutdownSignal chan bool,
) {
	wg.Add(1)
	defer wg.Done()
	srv := createServer(log, positions, rdb, routes, httpPort)
	log.Printf("Starting server on port %d", httpPort)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Printf("server ListenAndServe ended. %s", err)
		}
	}()
	shutdownCtx, serverCancelFunc := context.WithTimeout(context.Background(), time.Duration(5)*time.Second)
	defer serverCancelFunc()

	select {
	case <-shutdownSignal:
		log.Printf("ending webservice on shutdown signal")
		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			log.Printf("error shutting down webservice, error:%s", err)
		}
	}
}
