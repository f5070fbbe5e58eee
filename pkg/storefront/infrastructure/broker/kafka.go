package broker

import (
	"context"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"storefront/pkg/common/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

// KafkaDispatcher writes events to a single topic keyed by event type.
type KafkaDispatcher struct {
	writer messageWriter
}

func NewKafkaDispatcher(writer messageWriter) *KafkaDispatcher {
	return &KafkaDispatcher{writer: writer}
}

func (d *KafkaDispatcher) Dispatch(event domain.Event) error {
	id, body, err := encode(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	err = d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Type()),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(id.String())},
		},
	})
	return errors.Wrapf(err, "failed to write %s", event.Type())
}

func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}
