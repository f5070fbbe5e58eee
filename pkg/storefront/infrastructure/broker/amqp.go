package broker

import (
	"context"

	"gitea.xscloud.ru/xscloud/golib/pkg/infrastructure/amqp"
	"github.com/pkg/errors"
	amqp091 "github.com/rabbitmq/amqp091-go"

	"storefront/pkg/common/domain"
)

type producer interface {
	Publish(ctx context.Context, delivery amqp.Delivery) error
}

// AMQPDispatcher publishes every event to a topic exchange with the event
// type as routing key. Publishes wait for the broker confirm.
type AMQPDispatcher struct {
	conn     amqp.Connection
	producer producer
}

func NewAMQPDispatcher(appID string, cfg *amqp.ConnectionConfig, exchange string, logger amqp.Logger) (*AMQPDispatcher, error) {
	conn := amqp.NewAMQPConnection(appID, cfg, logger)
	p := conn.Producer(&amqp.ExchangeConfig{
		Name:    exchange,
		Kind:    amqp091.ExchangeTopic,
		Durable: true,
	}, nil, nil)
	if err := conn.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to connect to amqp broker at %s", cfg.Host)
	}
	return &AMQPDispatcher{conn: conn, producer: p}, nil
}

func (d *AMQPDispatcher) Dispatch(event domain.Event) error {
	id, body, err := encode(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	err = d.producer.Publish(ctx, amqp.Delivery{
		RoutingKey:    event.Type(),
		CorrelationID: id.String(),
		ContentType:   "application/json",
		Type:          event.Type(),
		Body:          body,
	})
	return errors.Wrapf(err, "failed to publish %s", event.Type())
}

func (d *AMQPDispatcher) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Stop()
}
