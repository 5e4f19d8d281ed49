package broadcast_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/eapache/go-resiliency/breaker"
	"github.com/nats-io/nats.go"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/multierr"

	"github.com/luma/ibzmq/broadcast"
	"github.com/luma/ibzmq/protocol"
	"github.com/luma/ibzmq/storage"
)

func matchValue(pattern string) func([]byte) error {
	re := regexp.MustCompile(pattern)

	return func(val []byte) error {
		if !re.Match(val) {
			return fmt.Errorf("value %q does not match %s", val, pattern)
		}

		return nil
	}
}

type fakeConn struct {
	published []*nats.Msg
	err       error
}

func (f *fakeConn) PublishMsg(m *nats.Msg) error {
	if f.err != nil {
		return f.err
	}

	f.published = append(f.published, m)
	return nil
}

type failingPublisher struct {
	err error
}

func (f failingPublisher) Publish(ctx context.Context, msg *protocol.Message) error {
	return f.err
}

var _ = Describe("broadcast", func() {
	var (
		ctx context.Context
		msg *protocol.Message
	)

	BeforeEach(func() {
		ctx = context.Background()
		msg = &protocol.Message{
			TypeID:  protocol.TickPrice,
			Version: 2,
			Fields:  []string{"1", "2", "100.5", "101.0", "10", "20", "1"},
		}
	})

	Describe("NATSPublisher", func() {
		It("publishes the NUL framed tuple with type headers", func() {
			conn := &fakeConn{}
			publisher := broadcast.NewNATSPublisher(conn, "ibzmq.messages", nil)

			Expect(publisher.Publish(ctx, msg)).To(Succeed())
			Expect(conn.published).To(HaveLen(1))

			m := conn.published[0]
			Expect(m.Subject).To(Equal("ibzmq.messages"))
			Expect(m.Data).To(Equal([]byte("1\x002\x00100.5\x00101.0\x0010\x0020\x001\x00")))
			Expect(m.Header.Get(broadcast.HeaderMessageType)).To(Equal("1"))
			Expect(m.Header.Get(broadcast.HeaderMessageName)).To(Equal("TICK_PRICE"))
		})

		It("returns connection errors", func() {
			conn := &fakeConn{err: nats.ErrConnectionClosed}
			publisher := broadcast.NewNATSPublisher(conn, "ibzmq.messages", nil)

			Expect(publisher.Publish(ctx, msg)).To(MatchError(nats.ErrConnectionClosed))
		})
	})

	Describe("KafkaPublisher", func() {
		It("sends the tuple keyed by type id", func() {
			producer := mocks.NewSyncProducer(GinkgoT(), nil)
			producer.ExpectSendMessageWithCheckerFunctionAndSucceed(matchValue(`^1\x002\x00100\.5\x00`))

			publisher := broadcast.NewKafkaPublisher(producer, "ib-messages")
			Expect(publisher.Publish(ctx, msg)).To(Succeed())
			Expect(publisher.Close()).To(Succeed())
		})

		It("returns the producer error for a well formed tuple", func() {
			producer := mocks.NewSyncProducer(GinkgoT(), nil)
			producer.ExpectSendMessageWithCheckerFunctionAndFail(matchValue(`^1\x002\x00`), sarama.ErrNotLeaderForPartition)

			publisher := broadcast.NewKafkaPublisher(producer, "ib-messages")
			Expect(publisher.Publish(ctx, msg)).To(MatchError(sarama.ErrNotLeaderForPartition))
			Expect(publisher.Close()).To(Succeed())
		})

		It("opens the breaker after repeated failures", func() {
			producer := mocks.NewSyncProducer(GinkgoT(), nil)
			for i := 0; i < 3; i++ {
				producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
			}

			publisher := broadcast.NewKafkaPublisher(producer, "ib-messages")
			for i := 0; i < 3; i++ {
				Expect(publisher.Publish(ctx, msg)).To(MatchError(sarama.ErrOutOfBrokers))
			}

			Expect(publisher.Publish(ctx, msg)).To(MatchError(breaker.ErrBreakerOpen))
			Expect(publisher.Close()).To(Succeed())
		})
	})

	Describe("StorePublisher", func() {
		It("appends to the store", func() {
			store := storage.NewInmemoryStore()
			defer store.Close()

			Expect(broadcast.NewStorePublisher(store).Publish(ctx, msg)).To(Succeed())
			Expect(store.Latest(ctx, protocol.TickPrice)).To(Equal(msg))
		})
	})

	Describe("Fanout", func() {
		It("publishes to every publisher even when one fails", func() {
			conn := &fakeConn{}
			store := storage.NewInmemoryStore()
			defer store.Close()

			boom := errors.New("boom")
			fanout := broadcast.Fanout{
				failingPublisher{err: boom},
				broadcast.NewNATSPublisher(conn, "ibzmq.messages", nil),
				broadcast.NewStorePublisher(store),
			}

			err := fanout.Publish(ctx, msg)
			Expect(multierr.Errors(err)).To(Equal([]error{boom}))
			Expect(conn.published).To(HaveLen(1))
			Expect(store.Count(protocol.TickPrice)).To(Equal(int64(1)))
		})

		It("fails without publishers", func() {
			Expect(broadcast.Fanout{}.Publish(ctx, msg)).To(MatchError(broadcast.ErrNoPublishers))
		})
	})
})
