package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"BartWatch/internal/domain/models"
	"BartWatch/internal/domain/repository"
	pkgkafka "BartWatch/pkg/kafka"
	pkgredis "BartWatch/pkg/redis"
)

// KafkaPublisher implements NotificationSink for Kafka. Packets are keyed by station
// so one station's notifications stay ordered within a partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.NotificationSink {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Publish(ctx context.Context, pkt models.NotificationPacket) error {
	return p.producer.Publish(ctx, p.topic, []byte(pkt.Station), pkt)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// RedisPublisher implements NotificationSink with Redis PUBLISH.
type RedisPublisher struct {
	client  *pkgredis.Client
	channel string
}

// NewRedisPublisher creates Redis pub/sub publisher.
func NewRedisPublisher(client *pkgredis.Client, channel string) repository.NotificationSink {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Name() string { return "redis" }

func (p *RedisPublisher) Publish(ctx context.Context, pkt models.NotificationPacket) error {
	b, err := json.Marshal(pkt)
	if err != nil {
		return fmt.Errorf("marshal packet: %w", err)
	}
	return p.client.Publish(ctx, p.channel, b)
}

func (p *RedisPublisher) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
