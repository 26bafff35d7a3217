package repository

import (
	"context"

	"FreshSnap/internal/domain/models"
	"FreshSnap/internal/domain/repository"
	pkgkafka "FreshSnap/pkg/kafka"
)

// KafkaPublisher implements Publisher for Kafka. Keyed by pid so all points
// of one instrument land on the same partition in order.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, point *models.PricePoint) error {
	return p.producer.Publish(ctx, p.topic, []byte(point.PID), point)
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, points []*models.PricePoint) error {
	if len(points) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(points))
	for i, point := range points {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(point.PID),
			Value: point,
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
