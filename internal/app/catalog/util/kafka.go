package util

import (
	"context"
	"fmt"
	"time"

	"carteras/pkg/metrics"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer обертка над Kafka writer для отправки событий
// Используется для событий о товарах в топике product_events
type KafkaProducer struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaProducer создает новый Kafka producer
// brokers - список брокеров Kafka в формате ["host:port"]
// topic - имя топика для событий о товарах
func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
		// Настройки батчинга для production окружения
		BatchSize:    100,
		BatchTimeout: 10 * time.Second,
	}

	return &KafkaProducer{writer: writer, topic: topic}
}

// PublishMessage отправляет сообщение в Kafka
// key - ключ партиционирования (ProductID, чтобы события одного товара
// сохраняли порядок)
func (p *KafkaProducer) PublishMessage(ctx context.Context, key string, value []byte) error {
	message := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}

	timer := metrics.NewKafkaProduceTimer("catalog", p.topic)
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		timer.Error()
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	timer.Success()

	return nil
}

// Close закрывает Kafka writer и освобождает ресурсы
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
