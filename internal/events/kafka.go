package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// KafkaPublisher sends ledger events to one topic through a synchronous producer
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher dials brokers and waits for all in-sync replicas on every send
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = "wallet-ledger"
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	cfg.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// Publish sends events in order, keyed by user id
func (p *KafkaPublisher) Publish(ctx context.Context, events ...LedgerEvent) error {
	msgs := make([]*sarama.ProducerMessage, 0, len(events))
	for _, event := range events {
		value, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", event.ID, err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(event.PartitionKey()),
			Value: sarama.ByteEncoder(value),
			Headers: []sarama.RecordHeader{
				{Key: []byte("event-id"), Value: []byte(event.ID)},
				{Key: []byte("event-kind"), Value: []byte(event.Kind)},
			},
		})
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, msg := range msgs {
		partition, offset, err := p.producer.SendMessage(msg)
		if err != nil {
			return fmt.Errorf("send to %s: %w", p.topic, err)
		}
		logrus.WithFields(logrus.Fields{
			"topic":     p.topic,
			"partition": partition,
			"offset":    offset,
		}).Debug("ledger event published")
	}
	return nil
}

// Close flushes and closes the producer
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
