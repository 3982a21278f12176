package main

import (
	"context"
	"fmt"
	logger "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TransJakartaLabs/etacast/app/eta-monitor/monitor"
	"github.com/TransJakartaLabs/etacast/business/data/mlmodels"
	"github.com/TransJakartaLabs/etacast/business/data/schedule"
	"github.com/TransJakartaLabs/etacast/business/eta/pipeline"
	"github.com/TransJakartaLabs/etacast/foundation/database"
	"github.com/TransJakartaLabs/etacast/foundation/httpclient"
	"github.com/ardanlabs/conf"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "ETA_MONITOR : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	var cfg struct {
		conf.Version
		Args conf.Args
		DB   struct {
			User       string `conf:"default:postgres"`
			Password   string `conf:"default:postgres,noprint"`
			Host       string `conf:"default:0.0.0.0"`
			Name       string `conf:"default:postgres"`
			DisableTLS bool   `conf:"default:true"`
		}
		Redis struct {
			Host     string `conf:"default:0.0.0.0:6379"`
			Password string `conf:"noprint"`
			DB       int    `conf:"default:0"`
		}
		NATS struct {
			URL string `conf:"default:nats://localhost:4222"`
		}
		Vendor struct {
			LoginUrl       string `conf:"default:https://gps.example.id/api/login"`
			PositionsUrl   string `conf:"default:https://gps.example.id/api/positions"`
			Username       string `conf:"default:etacast"`
			Password       string `conf:"default:etacast,noprint"`
			TimeoutSeconds int    `conf:"default:10"`
		}
		ETA struct {
			LoopEverySeconds        int     `conf:"default:5"`
			QuietHourStart          int     `conf:"default:1"`
			QuietHourEnd            int     `conf:"default:5"`
			Timezone                string  `conf:"default:Asia/Jakarta"`
			ModelName               string  `conf:"default:segment_time_xgb"`
			InferenceTimeoutSeconds int     `conf:"default:10"`
			OnRouteMeters           float64 `conf:"default:100"`
			SkipFixMeters           float64 `conf:"default:15"`
			DirectionTieMeters      float64 `conf:"default:20"`
			WindowK                 int     `conf:"default:5"`
			MinWindow               int     `conf:"default:10"`
			HistoryCap              int     `conf:"default:20"`
			CongestionBins          int     `conf:"default:8"`
			Percentile              float64 `conf:"default:25"`
			Corridors               []string
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Realtime bus ETA monitor"
	const prefix = "MONITOR"
	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	location, err := time.LoadLocation(cfg.ETA.Timezone)
	if err != nil {
		return fmt.Errorf("loading timezone %s: %w", cfg.ETA.Timezone, err)
	}

	// =========================================================================
	// Start Database

	log.Println("main: Initializing database support")

	db, err := database.Open(database.Config{
		User:       cfg.DB.User,
		Password:   cfg.DB.Password,
		Host:       cfg.DB.Host,
		Name:       cfg.DB.Name,
		DisableTLS: cfg.DB.DisableTLS,
	})
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer func() {
		log.Printf("main: Database Stopping : %s", cfg.DB.Host)
		if err = db.Close(); err != nil {
			log.Printf("main: error closing database: %v", err)
		}
	}()

	// =========================================================================
	// Start Redis and NATS

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err = rdb.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		_ = rdb.Close()
	}()

	natsConn, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("connecting to nats: %w", err)
	}
	defer natsConn.Close()

	// =========================================================================
	// Load static data

	pipelineConfig := pipeline.DefaultConfig()
	pipelineConfig.OnRouteThresholdMeters = cfg.ETA.OnRouteMeters
	pipelineConfig.SkipFixThresholdMeters = cfg.ETA.SkipFixMeters
	pipelineConfig.DirectionTieThresholdMeters = cfg.ETA.DirectionTieMeters
	pipelineConfig.WindowK = cfg.ETA.WindowK
	pipelineConfig.MinWindow = cfg.ETA.MinWindow
	pipelineConfig.HistoryCap = cfg.ETA.HistoryCap
	pipelineConfig.CongestionBins = cfg.ETA.CongestionBins
	pipelineConfig.Percentile = cfg.ETA.Percentile
	if len(cfg.ETA.Corridors) > 0 {
		pipelineConfig.Corridors = cfg.ETA.Corridors
	}

	log.Println("main: Loading static schedule data")
	static, err := schedule.LoadStaticData(db, pipelineConfig.Corridors)
	if err != nil {
		return fmt.Errorf("loading static schedule data: %w", err)
	}
	log.Printf("main: Loaded %d trips, %d stops, %d stop-pair rows",
		len(static.TripInputs), len(static.Stops), len(static.PairRows))

	model, err := mlmodels.GetCurrentMLModel(db, cfg.ETA.ModelName)
	if err != nil {
		return fmt.Errorf("loading ml model: %w", err)
	}
	log.Printf("main: Using model %s version %d", model.ModelName, model.Version)

	vendorClient := httpclient.New(cfg.Vendor.LoginUrl, cfg.Vendor.Username, cfg.Vendor.Password,
		time.Duration(cfg.Vendor.TimeoutSeconds)*time.Second)
	if err = vendorClient.Login(context.Background()); err != nil {
		return fmt.Errorf("vendor login: %w", err)
	}

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	return monitor.RunEtaMonitorLoop(log, rdb, natsConn, vendorClient, cfg.Vendor.PositionsUrl,
		static, model, monitor.Conf{
			LoopEverySeconds:        cfg.ETA.LoopEverySeconds,
			QuietHourStart:          cfg.ETA.QuietHourStart,
			QuietHourEnd:            cfg.ETA.QuietHourEnd,
			InferenceTimeoutSeconds: cfg.ETA.InferenceTimeoutSeconds,
			Location:                location,
			Pipeline:                pipelineConfig,
		}, shutdown)
}
