package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitea.xscloud.ru/xscloud/golib/pkg/infrastructure/amqp"
	"gitea.xscloud.ru/xscloud/golib/pkg/infrastructure/logging"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"storefront/pkg/common/domain"
	"storefront/pkg/storefront/application/service"
	"storefront/pkg/storefront/domain/model"
	"storefront/pkg/storefront/infrastructure/aigateway"
	"storefront/pkg/storefront/infrastructure/broker"
	"storefront/pkg/storefront/infrastructure/mailer"
	"storefront/pkg/storefront/infrastructure/mysql"
	redisstore "storefront/pkg/storefront/infrastructure/redis"
	"storefront/pkg/storefront/infrastructure/transport"
)

func serviceCommand() *cli.Command {
	return &cli.Command{
		Name:   "service",
		Usage:  "run the HTTP API",
		Action: runService,
	}
}

func runService(c *cli.Context) error {
	cfg, err := parseEnv()
	if err != nil {
		return err
	}
	if err := cfg.requireJWTSecret(); err != nil {
		return err
	}

	killSignalChan := getKillSignalChan()
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	db, err := mysql.Open(ctx, cfg.dsn())
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := mysql.MigrateUp(db.DB); err != nil {
			return err
		}
	}

	dispatcher, closeDispatcher, err := newDispatcher(cfg)
	if err != nil {
		return err
	}
	defer closeDispatcher()

	var idempotency service.IdempotencyStore
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return errors.Wrap(err, "failed to connect to redis")
		}
		idempotency = redisstore.NewIdempotencyStore(rdb)
	} else {
		log.Warn("redis is not configured, checkout idempotency keys are ignored")
	}

	var sender model.NotificationSender = mailer.LogSender{}
	if cfg.SMTPHost != "" {
		sender = mailer.NewSMTPSender(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			Timeout:  cfg.SMTPTimeout,
		})
	}

	if cfg.AIGatewayURL == "" {
		log.Warn("ai gateway is not configured, content generation will fail")
	}
	gateway := aigateway.NewClient(aigateway.Config{
		URL:        cfg.AIGatewayURL,
		APIKey:     cfg.AIGatewayKey,
		Timeout:    cfg.AIGatewayTimeout,
		MaxRetries: cfg.AIGatewayRetries,
	})

	services := newServices(db, dispatcher, idempotency, sender, gateway)
	router := transport.Router(services, transport.Config{
		JWTSecret:      []byte(cfg.JWTSecret),
		WebhookSecret:  []byte(cfg.WebhookSecret),
		AIRate:         rate.Limit(cfg.AIRatePerMinute / 60),
		AIBurst:        cfg.AIBurst,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.ServeAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Handlers give up at RequestTimeout; the margin leaves room to write the error.
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(log.Fields{"url": cfg.ServeAddress}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "failed to start server")
		}
		return nil
	})
	g.Go(func() error {
		select {
		case killSignal := <-killSignalChan:
			logKillSignal(killSignal)
		case <-gctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newServices(
	db *sqlx.DB,
	dispatcher domain.EventDispatcher,
	idempotency service.IdempotencyStore,
	sender model.NotificationSender,
	gateway model.ContentGateway,
) transport.Services {
	products := mysql.NewProductRepository(db)
	carts := mysql.NewCartRepository(db)
	orders := mysql.NewOrderRepository(db)
	users := mysql.NewUserDirectory(db)

	notifications := service.NewNotificationService(mysql.NewNotificationRepository(db), users, sender)
	loyalty := service.NewLoyaltyService(mysql.NewLoyaltyRepository(db))
	referrals := service.NewReferralService(mysql.NewReferralRepository(db), orders, loyalty, notifications, dispatcher)
	catalog := service.NewCatalogService(products, users)

	return transport.Services{
		Catalog:       catalog,
		Cart:          service.NewCartService(carts, products),
		Checkout:      service.NewCheckoutService(carts, products, orders, idempotency, dispatcher),
		Payments:      service.NewPaymentService(mysql.NewPaymentRepository(db), orders, users, notifications, referrals, dispatcher),
		Fulfillment:   service.NewFulfillmentService(orders, users, notifications, loyalty, dispatcher),
		Notifications: notifications,
		Wishlist:      service.NewWishlistService(mysql.NewWishlistRepository(db), products),
		Referrals:     referrals,
		Loyalty:       loyalty,
		Content:       service.NewContentService(gateway, mysql.NewContentRepository(db), catalog, users),
	}
}

func newDispatcher(cfg *config) (domain.EventDispatcher, func(), error) {
	switch cfg.Broker {
	case "", "log":
		return broker.NewLogDispatcher(), func() {}, nil
	case "amqp":
		logger := logging.NewJSONLogger(&logging.Config{AppName: appID})
		d, err := broker.NewAMQPDispatcher(appID, &amqp.ConnectionConfig{
			User:           cfg.AMQPUser,
			Password:       cfg.AMQPPassword,
			Host:           cfg.AMQPHost,
			ConnectTimeout: cfg.AMQPConnectTimeout,
		}, cfg.AMQPExchange, logger)
		if err != nil {
			return nil, nil, err
		}
		return d, closer("amqp", d.Close), nil
	case "kafka":
		d := broker.NewKafkaDispatcher(broker.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		return d, closer("kafka", d.Close), nil
	default:
		return nil, nil, errors.Errorf("unknown broker %q", cfg.Broker)
	}
}

func closer(name string, fn func() error) func() {
	return func() {
		if err := fn(); err != nil {
			log.WithError(err).WithField("broker", name).Warn("failed to close broker")
		}
	}
}

func getKillSignalChan() chan os.Signal {
	osKillSignalChan := make(chan os.Signal, 1)
	signal.Notify(osKillSignalChan, os.Interrupt, syscall.SIGTERM)
	return osKillSignalChan
}

func logKillSignal(killSignal os.Signal) {
	switch killSignal {
	case os.Interrupt:
		log.Info("Got SIGINT...")
	case syscall.SIGTERM:
		log.Info("Got SIGTERM...")
	}
}
