package metrics

import (
	"time"
)

type RedisOperation string

const (
	RedisOpGet RedisOperation = "get"
	RedisOpSet RedisOperation = "set"
	RedisOpDel RedisOperation = "del"
)

func RecordCacheHit(service, keyPrefix string) {
	RedisCacheHits.WithLabelValues(service, keyPrefix).Inc()
}

func RecordCacheMiss(service, keyPrefix string) {
	RedisCacheMisses.WithLabelValues(service, keyPrefix).Inc()
}

func RecordRedisError(service string, op RedisOperation) {
	RedisErrors.WithLabelValues(service, string(op)).Inc()
}

func RecordKafkaMessageProduced(service, topic string, duration time.Duration) {
	KafkaMessagesProduced.WithLabelValues(service, topic).Inc()
	KafkaProduceDuration.WithLabelValues(service, topic).Observe(duration.Seconds())
}

func RecordKafkaError(service, topic, operation string) {
	KafkaErrors.WithLabelValues(service, topic, operation).Inc()
}

type KafkaProduceTimer struct {
	service string
	topic   string
	start   time.Time
}

func NewKafkaProduceTimer(service, topic string) *KafkaProduceTimer {
	return &KafkaProduceTimer{
		service: service,
		topic:   topic,
		start:   time.Now(),
	}
}

func (kt *KafkaProduceTimer) Success() {
	RecordKafkaMessageProduced(kt.service, kt.topic, time.Since(kt.start))
}

func (kt *KafkaProduceTimer) Error() {
	RecordKafkaError(kt.service, kt.topic, "produce")
}
