package broadcast

import (
	"context"
	"strconv"
	"time"

	"github.com/Shopify/sarama"
	"github.com/eapache/go-resiliency/breaker"

	"github.com/luma/ibzmq/protocol"
)

// KafkaPublisher mirrors the broadcast onto a Kafka topic. Messages are keyed
// by type id so each type stays ordered within its partition.
//
// Sends go through a circuit breaker; while it is open Publish fails fast
// with breaker.ErrBreakerOpen instead of stalling the decoder.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	breaker  *breaker.Breaker
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		breaker:  breaker.New(3, 1, 10*time.Second),
	}
}

// NewKafkaProducer connects a synchronous producer to brokers.
func NewKafkaProducer(brokers []string, clientID string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.ClientID = clientID
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Partitioner = sarama.NewHashPartitioner

	return sarama.NewSyncProducer(brokers, config)
}

func (k *KafkaPublisher) Publish(ctx context.Context, msg *protocol.Message) error {
	return k.breaker.Run(func() error {
		_, _, err := k.producer.SendMessage(&sarama.ProducerMessage{
			Topic: k.topic,
			Key:   sarama.StringEncoder(strconv.Itoa(msg.TypeID)),
			Value: sarama.ByteEncoder(msg.Encode()),
		})

		return err
	})
}

func (k *KafkaPublisher) Close() error {
	return k.producer.Close()
}

var _ Publisher = (*KafkaPublisher)(nil)
