package saga

import "github.com/segmentio/kafka-go"

// NewWriter builds the producer the outbox dispatcher writes through.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}
