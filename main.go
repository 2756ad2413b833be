package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	aqm "github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/middleware"
	"github.com/chopline/kds/internal/announce"
	"github.com/chopline/kds/internal/event"
	"github.com/chopline/kds/internal/events"
	"github.com/chopline/kds/internal/feed"
	"github.com/chopline/kds/internal/kds"
	"github.com/chopline/kds/internal/mongo"
)

const (
	appNamespace = "KDS"
	appName      = "kds"
	appVersion   = "0.1.0"
)

func main() {
	config, err := aqm.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("Cannot setup %s(%s): %v", appName, appVersion, err)
	}

	logLevel, _ := config.GetString("log.level")
	logger := aqm.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	natsURL, _ := config.GetString("nats.url")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	publisher, err := feed.NewNATSPublisher(natsURL)
	if err != nil {
		log.Fatalf("Cannot connect to NATS publisher: %v", err)
	}

	orderRepo := mongo.NewOrderRepo(config, publisher, logger)
	engine := kds.NewEngine(orderRepo, logger)

	lifecycles := []interface{}{orderRepo}

	// Change feed: durable JetStream consumer when enabled, NATS core with
	// resync-on-reconnect otherwise.
	var changeFeed events.Feed
	streamEnabled, _ := config.GetString("nats.stream.enabled")
	if streamEnabled == "true" {
		stream, err := feed.NewNATSStream(feed.NATSStreamConfig{
			URL:          natsURL,
			StreamName:   "ORDER_CHANGES",
			Topic:        event.OrderChangesTopic,
			ConsumerName: appName,
			MaxAge:       24 * time.Hour,
		})
		if err != nil {
			log.Fatalf("Cannot connect to NATS stream: %v", err)
		}
		changeFeed = stream
		lifecycles = append(lifecycles, aqm.LifecycleHooks{
			OnStop: func(context.Context) error { return stream.Close() },
		})
	} else {
		subscriber, err := feed.NewNATSSubscriber(natsURL)
		if err != nil {
			log.Fatalf("Cannot connect to NATS subscriber: %v", err)
		}
		changeFeed = subscriber
		lifecycles = append(lifecycles, aqm.LifecycleHooks{
			OnStop: func(context.Context) error { return subscriber.Close() },
		})

		subscriber.SetReconnectHandler(func() {
			if err := engine.Resync(ctx); err != nil {
				logger.Errorf("resync after feed reconnect failed: %v", err)
			}
		})
	}

	changeSubscriber := events.NewOrderChangeSubscriber(changeFeed, engine, logger)
	engine.SetFeed(changeSubscriber)

	announceTopic, _ := config.GetString("announce.topic")
	speaker := announce.NewNATSSpeaker(publisher, announceTopic)
	orchestrator := announce.New(speaker, logger, announce.Options{
		LargeItems: intConfig(config, "announce.large_items", 0),
		BusyOrders: intConfig(config, "announce.busy_orders", 0),
	})
	orchestrator.SetLoadCounter(engine.ActiveCount)
	engine.SetAnnouncer(orchestrator)

	handler := kds.NewHandler(engine, orderRepo, config, logger)

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      logger,
		DisableCORS: true,
	})
	stack = append(stack, middleware.InternalOnly())

	lifecycles = append(lifecycles,
		aqm.LifecycleHooks{
			OnStart: engine.Attach,
			OnStop:  engine.Detach,
		},
		aqm.LifecycleHooks{
			OnStop: func(context.Context) error { return publisher.Close() },
		},
	)

	options := []aqm.Option{
		aqm.WithConfig(config),
		aqm.WithLogger(logger),
		aqm.WithHTTPMiddleware(stack...),
		aqm.WithHTTPServerModules("web.port", handler),
		aqm.WithLifecycle(lifecycles...),
		aqm.WithHealthChecks(appName),
	}

	ms := aqm.NewMicro(options...)
	logger.Infof("Starting %s(%s)", appName, appVersion)

	if err := ms.Run(ctx); err != nil {
		log.Fatalf("%s(%s) stopped with error: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}

func intConfig(config *aqm.Config, key string, fallback int) int {
	raw, _ := config.GetString(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
