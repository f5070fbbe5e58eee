package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/storefront/infrastructure/mysql"
)

type config struct {
	ServeAddress    string        `envconfig:"serve_address" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"shutdown_timeout" default:"15s"`
	RequestTimeout  time.Duration `envconfig:"request_timeout" default:"15s"`
	LogLevel        string        `envconfig:"log_level" default:"info"`
	MigrateOnStart  bool          `envconfig:"migrate_on_start" default:"false"`

	DBHost     string `envconfig:"db_host" default:"localhost:3306"`
	DBUser     string `envconfig:"db_user" default:"storefront"`
	DBPassword string `envconfig:"db_password"`
	DBName     string `envconfig:"db_name" default:"storefront"`

	JWTSecret     string        `envconfig:"jwt_secret"`
	TokenTTL      time.Duration `envconfig:"token_ttl" default:"24h"`
	WebhookSecret string        `envconfig:"webhook_secret"`

	AIGatewayURL     string        `envconfig:"ai_gateway_url"`
	AIGatewayKey     string        `envconfig:"ai_gateway_key"`
	AIGatewayTimeout time.Duration `envconfig:"ai_gateway_timeout" default:"10s"`
	AIGatewayRetries uint64        `envconfig:"ai_gateway_retries" default:"3"`
	AIRatePerMinute  float64       `envconfig:"ai_rate_per_minute" default:"10"`
	AIBurst          int           `envconfig:"ai_burst" default:"3"`

	// Broker is one of log, amqp or kafka.
	Broker             string        `envconfig:"broker" default:"log"`
	AMQPUser           string        `envconfig:"amqp_user" default:"guest"`
	AMQPPassword       string        `envconfig:"amqp_password" default:"guest"`
	AMQPHost           string        `envconfig:"amqp_host" default:"localhost:5672"`
	AMQPConnectTimeout time.Duration `envconfig:"amqp_connect_timeout" default:"30s"`
	AMQPExchange       string        `envconfig:"amqp_exchange" default:"storefront.events"`
	KafkaBrokers       []string      `envconfig:"kafka_brokers" default:"localhost:9092"`
	KafkaTopic         string        `envconfig:"kafka_topic" default:"storefront-events"`

	// RedisAddress enables checkout idempotency keys when set.
	RedisAddress string `envconfig:"redis_address"`

	SMTPHost     string `envconfig:"smtp_host"`
	SMTPPort     int    `envconfig:"smtp_port" default:"587"`
	SMTPUsername string `envconfig:"smtp_username"`
	SMTPPassword string `envconfig:"smtp_password"`
	SMTPFrom     string `envconfig:"smtp_from" default:"no-reply@storefront.local"`
	// SMTPTimeout bounds one delivery including the connection.
	SMTPTimeout time.Duration `envconfig:"smtp_timeout" default:"10s"`
}

func parseEnv() (*config, error) {
	c := new(config)
	if err := envconfig.Process(appID, c); err != nil {
		return nil, errors.Wrap(err, "failed to parse env")
	}
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", c.LogLevel)
	}
	log.SetLevel(level)
	return c, nil
}

func (c *config) dsn() mysql.DSN {
	return mysql.DSN{Host: c.DBHost, User: c.DBUser, Password: c.DBPassword, Name: c.DBName}
}

func (c *config) requireJWTSecret() error {
	if c.JWTSecret == "" {
		return errors.New("STOREFRONT_JWT_SECRET is required")
	}
	return nil
}
