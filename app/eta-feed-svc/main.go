package main

import (
	"context"
	"fmt"
	logger "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/TransJakartaLabs/etacast/app/eta-feed-svc/feedsvc"
	"github.com/TransJakartaLabs/etacast/business/data/schedule"
	"github.com/TransJakartaLabs/etacast/foundation/database"
	"github.com/ardanlabs/conf"
	"github.com/redis/go-redis/v9"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "ETA_FEED : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
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
		Feed struct {
			HttpPort              int `conf:"default:8181"`
			ExpirePositionSeconds int `conf:"default:300"`
			Corridors             []string
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "GTFS realtime and ETA lookup facade"
	const prefix = "FEEDSVC"
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

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

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
		_ = db.Close()
	}()

	corridors := cfg.Feed.Corridors
	if len(corridors) == 0 {
		corridors = []string{"4B", "D21", "9H"}
	}

	routes, err := schedule.GetRoutes(db, corridors)
	if err != nil {
		return fmt.Errorf("loading routes: %w", err)
	}
	log.Printf("main: Loaded %d routes", len(routes))

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

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	feedsvc.StartServices(log, cfg.Feed.ExpirePositionSeconds, cfg.Feed.HttpPort, rdb, routes, shutdown)
	return nil
}
