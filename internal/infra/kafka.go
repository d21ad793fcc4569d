package infra

import (
	"fmt"

	"github.com/segmentio/kafka-go"
)

// MakeKafkaReader builds the consumer-group reader of transcoding events.
func MakeKafkaReader(brokers []string, topic, groupID string) (*kafka.Reader, error) {
	if len(brokers) == 0 || brokers[0] == "" {
		return nil, fmt.Errorf("KAFKA_BROKERS environment variable is not set")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})

	return reader, nil
}
