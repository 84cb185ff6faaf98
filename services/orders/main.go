package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/middleware"
	"github.com/joho/godotenv"

	"github.com/appetiteclub/orderboard/services/orders/internal/grpchealth"
	"github.com/appetiteclub/orderboard/services/orders/internal/notify"
	"github.com/appetiteclub/orderboard/services/orders/internal/order"
	"github.com/appetiteclub/orderboard/services/orders/internal/stream"
)

const (
	appNamespace = "ORDERS"
	appName      = "orders"
	appVersion   = "0.1.0"
)

func main() {
	// A missing .env is fine; real deployments use the environment directly.
	_ = godotenv.Load()

	config, err := apt.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("%s(%s) cannot setup: %v", appName, appVersion, err)
	}

	logLevel, _ := config.GetString("log.level")
	logger := apt.NewLogger(logLevel)
	metrics := apt.NoopMetrics{}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	seedCtx, cancelSeeds := context.WithCancel(ctx)
	defer cancelSeeds()

	st, err := openStore(ctx, config, logger)
	if err != nil {
		log.Fatalf("%s(%s) cannot start order store: %v", appName, appVersion, err)
	}

	eventBus, err := openBus(config, logger)
	if err != nil {
		_ = st.stop(context.Background())
		log.Fatalf("%s(%s) cannot connect event transport: %v", appName, appVersion, err)
	}

	cache := order.NewOrderStateCache(eventBus.stream, st.repo, order.DefaultWindow, logger)
	service := order.NewService(st.repo, cache, eventBus.publisher, logger)

	orderEventSub := order.NewOrderEventSubscriber(eventBus.orderEvents, cache, logger)
	stationFeedSub := order.NewStationFeedSubscriber(eventBus.subscriber, service, logger)

	handler := order.NewHandler(order.HandlerDeps{Service: service, Metrics: metrics}, config, logger)

	broker := stream.NewBroker(logger)
	cache.OnChange(broker.Publish)
	streamHandler := stream.NewHandler(broker, metrics, logger)

	healthSvc := grpchealth.NewService(config.GetDurationOrDef("grpc.health.interval", 0), logger)
	healthSvc.AddCheck("store", st.ping)
	if eventBus.ping != nil {
		healthSvc.AddCheck("events", eventBus.ping)
	}

	lifecycles := []any{
		apt.LifecycleHooks{OnStop: st.stop},
		apt.LifecycleHooks{OnStop: func(context.Context) error { return eventBus.Close() }},
		cache,
		orderEventSub,
		stationFeedSub,
		broker,
	}

	token, _ := config.GetString("telegram.token")
	if token != "" {
		bot, err := notify.NewBotSender(token)
		if err != nil {
			log.Fatalf("%s(%s) cannot setup telegram notifier: %v", appName, appVersion, err)
		}
		chatID, err := strconv.ParseInt(config.GetStringOrDef("telegram.chat.id", "0"), 10, 64)
		if err != nil {
			log.Fatalf("%s(%s) invalid telegram.chat.id: %v", appName, appVersion, err)
		}
		notifier := notify.NewReadyNotifier(bot, chatID, logger)
		cache.OnChange(notifier.Observe)
		lifecycles = append(lifecycles, notifier)
		logger.Info("ready notifier enabled", "chat_id", chatID)
	}

	demoEnabled, _ := config.GetString("seeding.demo")
	if demoEnabled == "true" {
		logger.Info("Demo seeding enabled for orders service")
		lifecycles = append(lifecycles, apt.LifecycleHooks{
			OnStart: order.DemoSeedingFunc(seedCtx, service, st.tracker, logger),
			OnStop: func(context.Context) error {
				cancelSeeds()
				return nil
			},
		})
	}

	// The SSE stream is long lived, so the request timeout is off for the whole server.
	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:         logger,
		Metrics:        metrics,
		DisableCORS:    true,
		DisableTimeout: true,
	})
	stack = append(stack, middleware.InternalOnly())

	options := []apt.Option{
		apt.WithConfig(config),
		apt.WithLogger(logger),
		apt.WithMetrics(metrics),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", handler, streamHandler),
		apt.WithGRPCServerModules("grpc.port", healthSvc),
		apt.WithLifecycle(lifecycles...),
		apt.WithHealthChecks(appName, nil, st.ping),
	}

	ms := apt.NewMicro(options...)
	logger.Infof("Starting %s(%s)", appName, appVersion)

	err = ms.Run(ctx)
	if err != nil {
		_ = eventBus.Close()
		_ = st.stop(context.Background())
		log.Fatalf("%s(%s) stopped: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}
